package runtime

import (
	"context"

	"github.com/openkiss/kiss/kernel/model"
	"github.com/openkiss/kiss/kernel/routing"
	"github.com/openkiss/kiss/kernel/workload"
	"github.com/openziti/foundation/v2/concurrenz"
	"github.com/pkg/errors"
)

const inboxDepth = 64

// WorkloadRunnable runs a registered workload on its own goroutine with a
// buffered inbox channel. It implements routing.Endpoint, so the router can
// deliver messages into it.
type WorkloadRunnable struct {
	name     string
	workload workload.Workload
	api      *routing.Router
	inbox    chan routing.Envelope
	cancel   context.CancelFunc
	done     chan struct{}
	running  concurrenz.AtomicBoolean
}

func NewWorkloadRunnable(name string, w workload.Workload, api *routing.Router) *WorkloadRunnable {
	return &WorkloadRunnable{
		name:     name,
		workload: w,
		api:      api,
		inbox:    make(chan routing.Envelope, inboxDepth),
		done:     make(chan struct{}),
	}
}

func (r *WorkloadRunnable) Name() string {
	return r.name
}

func (r *WorkloadRunnable) Start() error {
	if !r.running.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go func() {
		defer close(r.done)
		if err := r.workload.Run(ctx, r.inbox, r.api); err != nil {
			log.WithError(err).Errorf("workload [%s] exited with error", r.name)
		}
	}()
	return nil
}

// Stop cancels the workload context and joins with the deadline ctx carries.
// A workload that ignores cancellation leaves Stop returning after the
// deadline without full teardown.
func (r *WorkloadRunnable) Stop(ctx context.Context) error {
	if !r.running.CompareAndSwap(true, false) {
		return nil
	}
	r.cancel()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		log.Warnf("workload [%s] did not stop before deadline", r.name)
		return nil
	}
}

// Deliver enqueues an envelope on the inbox. It fails once the unit has
// finished, rather than blocking forever.
func (r *WorkloadRunnable) Deliver(envelope routing.Envelope) error {
	select {
	case r.inbox <- envelope:
		return nil
	case <-r.done:
		return errors.Errorf("container [%s] is not running", r.name)
	}
}

// ControlAddr forwards to the workload when it exposes a control endpoint.
func (r *WorkloadRunnable) ControlAddr() string {
	if addressed, ok := r.workload.(ControlAddressed); ok {
		return addressed.ControlAddr()
	}
	return ""
}

// WorkloadFactory builds in-process runnables from container specs. A spec
// naming the load-balancer image maps onto the registered balancer workload,
// with the spec's env as parameters, so services run without docker.
func WorkloadFactory() Factory {
	return func(resource *model.Resource, api *routing.Router) (Runnable, error) {
		spec := resource.Container()
		name := spec.Workload()
		params := spec.Params()
		if name == "" && spec.Image() == model.LoadBalancerImage {
			name = model.LoadBalancerImage
			params = spec.Env()
		}
		if name == "" {
			return nil, errors.Errorf("container [%s] declares no workload", resource.Name)
		}
		w, err := workload.New(name, params)
		if err != nil {
			return nil, errors.Wrapf(err, "container [%s]", resource.Name)
		}
		return NewWorkloadRunnable(resource.Name, w, api), nil
	}
}
