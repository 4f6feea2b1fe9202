package workload

import (
	"context"
	"time"

	"github.com/openkiss/kiss/kernel/balancer"
	"github.com/openkiss/kiss/kernel/routing"
	"github.com/openziti/foundation/v2/concurrenz"
)

// LoadBalancerWorkload runs a kernel/balancer instance as an in-process
// container, so services work the same in workload mode as in docker mode.
// The control port is ephemeral; the service controller discovers it via
// ControlAddr.
type LoadBalancerWorkload struct {
	cfg         balancer.Config
	controlAddr concurrenz.AtomicValue[string]
}

// ControlAddr returns the bound control endpoint address, or "" until the
// balancer is listening.
func (w *LoadBalancerWorkload) ControlAddr() string {
	return w.controlAddr.Load()
}

func (w *LoadBalancerWorkload) Run(ctx context.Context, inbox <-chan routing.Envelope, api *routing.Router) error {
	lb := balancer.New(w.cfg)
	if err := lb.Start(); err != nil {
		return err
	}
	w.controlAddr.Store(lb.ControlAddr())

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lb.Stop(stopCtx)
	}()

	// the balancer serves on its own loops; this loop just drains control
	// messages until shutdown
	for {
		select {
		case <-ctx.Done():
			return nil
		case envelope, ok := <-inbox:
			if !ok {
				return nil
			}
			if envelope.IsRequest() {
				envelope.Reply.Resolve(lb.Backends())
			}
		}
	}
}

func init() {
	Register("loadbalancer", func(params map[string]any) (Workload, error) {
		return &LoadBalancerWorkload{
			cfg: balancer.Config{
				ControlPort: 0,
				SourcePort:  paramInt(params, "SOURCE_PORT", 0),
				TargetPort:  paramInt(params, "TARGET_PORT", 0),
			},
		}, nil
	})
}
