package balancer

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var log = pfxlog.ChannelLogger("balancer")

// DefaultControlPort is the fixed control port used by deployed balancer
// containers. In-process balancers usually pass 0 and discover the bound
// port through ControlAddr.
const DefaultControlPort = 9999

// Config carries the three balancer ports. Zero values bind ephemeral ports.
type Config struct {
	ControlPort int
	SourcePort  int
	TargetPort  int
}

// Balancer runs two loops sharing one backend list: an HTTP control endpoint
// that replaces the list atomically, and a TCP accept loop that round-robins
// accepted connections across the backends.
type Balancer struct {
	cfg       Config
	state     *state
	controlLn net.Listener
	proxyLn   net.Listener
	httpSrv   *http.Server
}

func New(cfg Config) *Balancer {
	return &Balancer{cfg: cfg, state: &state{}}
}

// Start binds both listeners and launches the serve loops. It returns once
// both ports are listening, so ControlAddr/ProxyAddr are valid afterwards.
func (b *Balancer) Start() error {
	controlLn, err := net.Listen("tcp", ":"+strconv.Itoa(b.cfg.ControlPort))
	if err != nil {
		return errors.Wrap(err, "binding control port")
	}
	proxyLn, err := net.Listen("tcp", ":"+strconv.Itoa(b.cfg.SourcePort))
	if err != nil {
		_ = controlLn.Close()
		return errors.Wrap(err, "binding source port")
	}
	b.controlLn = controlLn
	b.proxyLn = proxyLn
	b.httpSrv = &http.Server{Handler: b.router()}

	go func() {
		if err := b.httpSrv.Serve(controlLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("control endpoint exited")
		}
	}()
	go b.acceptLoop()

	log.Infof("control endpoint on %s, proxying %s -> backends:%d",
		b.ControlAddr(), b.ProxyAddr(), b.cfg.TargetPort)
	return nil
}

// Stop closes both listeners. Relays in flight end when their connections do.
func (b *Balancer) Stop(ctx context.Context) error {
	var result error
	if b.httpSrv != nil {
		if err := b.httpSrv.Shutdown(ctx); err != nil {
			result = err
		}
	}
	if b.proxyLn != nil {
		if err := b.proxyLn.Close(); err != nil && result == nil {
			result = err
		}
	}
	return result
}

func (b *Balancer) ControlAddr() string {
	return b.controlLn.Addr().String()
}

func (b *Balancer) ProxyAddr() string {
	return b.proxyLn.Addr().String()
}

// Backends returns the currently configured backend list.
func (b *Balancer) Backends() []string {
	return b.state.snapshot()
}

type configBody struct {
	Hosts []string `json:"hosts"`
}

type configReply struct {
	Status     string   `json:"status,omitempty"`
	Backends   []string `json:"backends"`
	TargetPort int      `json:"target_port"`
}

func (b *Balancer) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/config", func(w http.ResponseWriter, req *http.Request) {
		writeJson(w, http.StatusOK, configReply{
			Backends:   b.state.snapshot(),
			TargetPort: b.cfg.TargetPort,
		})
	})
	r.Post("/config", func(w http.ResponseWriter, req *http.Request) {
		var body configBody
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "invalid config body: "+err.Error(), http.StatusBadRequest)
			return
		}
		b.state.replace(body.Hosts)
		log.Infof("backends updated: %v", body.Hosts)
		writeJson(w, http.StatusOK, configReply{
			Status:     "updated",
			Backends:   body.Hosts,
			TargetPort: b.cfg.TargetPort,
		})
	})
	return r
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (b *Balancer) acceptLoop() {
	for {
		conn, err := b.proxyLn.Accept()
		if err != nil {
			return
		}
		go b.proxy(conn)
	}
}

// proxy relays one accepted connection to the next backend. With no backend
// configured the connection is closed immediately.
func (b *Balancer) proxy(client net.Conn) {
	host, ok := b.state.pick()
	if !ok {
		_ = client.Close()
		return
	}

	backend, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(b.cfg.TargetPort)))
	if err != nil {
		log.WithError(err).Warnf("backend [%s] unreachable", host)
		_ = client.Close()
		return
	}

	// Each direction runs independently. Closing both conns when either
	// direction finishes unblocks the other, so teardown is symmetric.
	g := &errgroup.Group{}
	relay := func(dst, src net.Conn) func() error {
		return func() error {
			_, err := io.Copy(dst, src)
			_ = dst.Close()
			_ = src.Close()
			return err
		}
	}
	g.Go(relay(backend, client))
	g.Go(relay(client, backend))
	_ = g.Wait()
}
