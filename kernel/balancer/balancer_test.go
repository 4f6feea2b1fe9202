package balancer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBalancer(t *testing.T, targetPort int) *Balancer {
	t.Helper()
	b := New(Config{ControlPort: 0, SourcePort: 0, TargetPort: targetPort})
	require.NoError(t, b.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = b.Stop(ctx)
	})
	return b
}

// bannerServer accepts connections on host:port and writes its banner to each,
// so tests can tell which backend served a proxied connection.
func bannerServer(t *testing.T, host string, port int, banner string) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_, _ = conn.Write([]byte(banner))
			_ = conn.Close()
		}
	}()
	return ln
}

func postConfig(t *testing.T, b *Balancer, hosts []string) configReply {
	t.Helper()
	body, err := json.Marshal(configBody{Hosts: hosts})
	require.NoError(t, err)
	resp, err := http.Post("http://"+b.ControlAddr()+"/config", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply configReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	return reply
}

func dialProxy(t *testing.T, b *Balancer) string {
	t.Helper()
	conn, err := net.Dial("tcp", b.ProxyAddr())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(data)
}

func TestBalancer_ConfigRoundTrip(t *testing.T) {
	b := startBalancer(t, 8000)

	resp, err := http.Get("http://" + b.ControlAddr() + "/config")
	require.NoError(t, err)
	var reply configReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	_ = resp.Body.Close()
	assert.Empty(t, reply.Backends)
	assert.Equal(t, 8000, reply.TargetPort)

	posted := postConfig(t, b, []string{"10.0.0.1", "10.0.0.2"})
	assert.Equal(t, "updated", posted.Status)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, posted.Backends)

	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, b.Backends())
}

func TestBalancer_InvalidConfigRejected(t *testing.T) {
	b := startBalancer(t, 8000)

	resp, err := http.Post("http://"+b.ControlAddr()+"/config", "application/json",
		bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, b.Backends())
}

func TestBalancer_RoundRobin(t *testing.T) {
	// Two backends on distinct loopback addresses sharing one port: bind the
	// first ephemerally, then reuse its port on 127.0.0.2.
	first := bannerServer(t, "127.0.0.1", 0, "one")
	port := first.Addr().(*net.TCPAddr).Port
	bannerServer(t, "127.0.0.2", port, "two")

	b := startBalancer(t, port)
	postConfig(t, b, []string{"127.0.0.1", "127.0.0.2"})

	seen := map[string]int{}
	for i := 0; i < 4; i++ {
		seen[dialProxy(t, b)]++
	}
	assert.Equal(t, map[string]int{"one": 2, "two": 2}, seen)
}

func TestBalancer_NoBackendsClosesConnection(t *testing.T) {
	b := startBalancer(t, 8000)
	assert.Equal(t, "", dialProxy(t, b))
}

func TestBalancer_ReplaceRewindsCursor(t *testing.T) {
	s := &state{}
	s.replace([]string{"a", "b", "c"})

	pickNext := func() string {
		host, ok := s.pick()
		require.True(t, ok)
		return host
	}
	assert.Equal(t, "a", pickNext())
	assert.Equal(t, "b", pickNext())

	s.replace([]string{"x", "y"})
	assert.Equal(t, "x", pickNext())
	assert.Equal(t, "y", pickNext())
	assert.Equal(t, "x", pickNext())

	s.replace(nil)
	_, ok := s.pick()
	assert.False(t, ok)
}
