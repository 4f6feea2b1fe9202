package runtime

import (
	"context"

	"github.com/michaelquigley/pfxlog"
	"github.com/openkiss/kiss/kernel/model"
	"github.com/openkiss/kiss/kernel/routing"
)

var log = pfxlog.ChannelLogger("runtime")

// Runnable is the live backing unit for a Container resource. It is derived
// state, owned exclusively by the container controller, and never a source
// of truth.
type Runnable interface {
	Name() string
	Start() error

	// Stop is cooperative and best-effort: it signals the unit and waits
	// no longer than ctx allows. A unit stuck in its own logic may outlive
	// Stop; callers must tolerate that.
	Stop(ctx context.Context) error
}

// ControlAddressed is implemented by runnables whose unit exposes a
// load-balancer control endpoint. The service controller uses it to locate
// the endpoint, the in-process analogue of docker inspect.
type ControlAddressed interface {
	ControlAddr() string
}

// Factory materializes a Runnable from a Container resource spec. The router
// handle is passed through to workload-backed units for forwarding.
type Factory func(resource *model.Resource, api *routing.Router) (Runnable, error)
