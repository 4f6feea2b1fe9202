package engine

import (
	"sync"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/openkiss/kiss/kernel/model"
	"github.com/openkiss/kiss/kernel/store"
)

var log = pfxlog.ChannelLogger("engine")

// State is a controller's lifecycle state.
type State string

const (
	Stopped  State = "stopped"
	Running  State = "running"
	Stopping State = "stopping"
)

// DefaultInterval is the reconcile tick interval.
const DefaultInterval = time.Second

// joinTimeout bounds how long Stop waits for the loop to exit.
const joinTimeout = 10 * time.Second

// Reconciler adjusts derived state toward the desired resources of one kind.
// A pass must be idempotent; it is retried every tick.
type Reconciler interface {
	Kind() model.Kind
	Reconcile(resources []*model.Resource) error
}

// Controller runs a Reconciler on a periodic loop against store snapshots.
// Composition over inheritance: the per-kind behavior is entirely in the
// injected Reconciler.
type Controller struct {
	store      store.Store
	reconciler Reconciler
	interval   time.Duration

	mu    sync.Mutex
	state State
	stopC chan struct{}
	done  chan struct{}
}

func NewController(s store.Store, r Reconciler, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{
		store:      s,
		reconciler: r,
		interval:   interval,
		state:      Stopped,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start transitions Stopped -> Running and begins the reconcile loop.
// Starting a controller that is not stopped is a no-op.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Stopped {
		return
	}
	c.state = Running
	c.stopC = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(c.stopC, c.done)
}

// Stop transitions Running -> Stopping, lets the loop run one final pass
// against an empty desired set so the reconciler tears down everything it
// owns, and joins with a bounded timeout. Safe to call repeatedly.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return
	}
	c.state = Stopping
	close(c.stopC)
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-time.After(joinTimeout):
		log.Warnf("%s controller did not stop before deadline", c.reconciler.Kind())
	}
}

func (c *Controller) loop(stopC <-chan struct{}, done chan<- struct{}) {
	kind := c.reconciler.Kind()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.pass(c.store.List(kind))
		select {
		case <-stopC:
			// shutdown is itself reconciliation: converge toward empty
			log.Infof("%s controller shutting down all resources", kind)
			c.pass(nil)
			c.mu.Lock()
			c.state = Stopped
			c.mu.Unlock()
			close(done)
			return
		case <-ticker.C:
		}
	}
}

// pass runs one reconcile attempt. Failures are logged, never fatal; the
// next tick retries.
func (c *Controller) pass(resources []*model.Resource) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s controller reconcile panic: %v", c.reconciler.Kind(), r)
		}
	}()
	if err := c.reconciler.Reconcile(resources); err != nil {
		log.WithError(err).Errorf("%s controller reconcile failed", c.reconciler.Kind())
	}
}
