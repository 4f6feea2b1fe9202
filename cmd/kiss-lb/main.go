package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/openkiss/kiss/kernel/balancer"
	"github.com/sirupsen/logrus"
)

// kiss-lb is the deployable load-balancer image: a TCP proxy on SOURCE_PORT
// round-robining to backends on TARGET_PORT, reconfigured at runtime via the
// control endpoint on CONTROL_PORT.
func main() {
	pfxlog.GlobalInit(logrus.InfoLevel, pfxlog.DefaultOptions().SetTrimPrefix("github.com/openkiss/"))

	lb := balancer.New(balancer.Config{
		ControlPort: envInt("CONTROL_PORT", balancer.DefaultControlPort),
		SourcePort:  envInt("SOURCE_PORT", 9000),
		TargetPort:  envInt("TARGET_PORT", 8000),
	})
	if err := lb.Start(); err != nil {
		logrus.WithError(err).Fatal("starting load balancer")
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := lb.Stop(ctx); err != nil {
		logrus.WithError(err).Error("stopping load balancer")
	}
}

func envInt(key string, dflt int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return dflt
}
