package cluster

import (
	"context"
	"strings"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/openkiss/kiss/kernel/engine"
	"github.com/openkiss/kiss/kernel/model"
	"github.com/openkiss/kiss/kernel/routing"
	"github.com/openkiss/kiss/kernel/runtime"
	"github.com/openkiss/kiss/kernel/store"
	"github.com/openziti/foundation/v2/concurrenz"
	"github.com/pkg/errors"
)

var log = pfxlog.ChannelLogger("cluster")

// Options configures cluster assembly.
type Options struct {
	// Interval overrides the controllers' reconcile tick. Zero keeps the
	// default.
	Interval time.Duration

	// UseDocker backs image specs with docker containers on a dedicated
	// network instead of requiring in-process workloads.
	UseDocker bool

	// DockerNetwork names the docker network. Empty selects the default.
	DockerNetwork string
}

// Cluster owns the store and the three controllers, wires their
// dependencies, and exposes start/stop lifecycle.
type Cluster struct {
	store       *store.MemoryStore
	containers  *engine.ContainerReconciler
	api         *routing.Router
	controllers []*engine.Controller
	docker      *runtime.DockerRuntime
	running     concurrenz.AtomicBoolean
}

func New(opts Options) (*Cluster, error) {
	c := &Cluster{
		store:      store.NewMemoryStore(),
		containers: engine.NewContainerReconciler(),
	}
	c.api = routing.NewRouter(c.store, c.containers)

	factory := runtime.WorkloadFactory()
	if opts.UseDocker {
		dockerRuntime, err := runtime.NewDockerRuntime(opts.DockerNetwork)
		if err != nil {
			return nil, err
		}
		c.docker = dockerRuntime
		factory = runtime.DockerFactory(dockerRuntime)
	}
	c.containers.Wire(factory, c.api)

	c.controllers = []*engine.Controller{
		engine.NewController(c.store, engine.NewReplicaSetReconciler(c.store), opts.Interval),
		engine.NewController(c.store, c.containers, opts.Interval),
		engine.NewController(c.store, engine.NewServiceReconciler(c.store, c.containers), opts.Interval),
	}
	return c, nil
}

// Start brings up the docker network when configured and starts the
// controllers. Starting a running cluster is a no-op.
func (c *Cluster) Start() error {
	if !c.running.CompareAndSwap(false, true) {
		return nil
	}
	if c.docker != nil {
		if err := c.docker.EnsureNetwork(context.Background()); err != nil {
			c.running.Set(false)
			return err
		}
	}
	for _, controller := range c.controllers {
		controller.Start()
	}
	log.Info("cluster started")
	return nil
}

// Stop stops every controller; each tears down everything it owns through
// its final empty reconcile pass. Safe to call repeatedly.
func (c *Cluster) Stop() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	for _, controller := range c.controllers {
		controller.Stop()
	}
	if c.docker != nil {
		if err := c.docker.RemoveNetwork(context.Background()); err != nil {
			return err
		}
	}
	log.Info("cluster stopped")
	return nil
}

// Apply creates or updates each resource, continuing past individual
// failures the way a manifest apply should.
func (c *Cluster) Apply(resources []*model.Resource) error {
	var failures []string
	for _, resource := range resources {
		var err error
		if _, exists := c.store.Get(resource.Kind, resource.Name); exists {
			if err = c.store.Update(resource); err == nil {
				log.Infof("updated %s [%s]", resource.Kind, resource.Name)
			}
		} else {
			if err = c.store.Create(resource); err == nil {
				log.Infof("created %s [%s]", resource.Kind, resource.Name)
			}
		}
		if err != nil {
			log.WithError(err).Errorf("applying %s [%s]", resource.Kind, resource.Name)
			failures = append(failures, resource.Name+": "+err.Error())
		}
	}
	if len(failures) > 0 {
		return errors.Errorf("apply failures: %s", strings.Join(failures, "; "))
	}
	return nil
}

// Delete removes a resource, reporting whether anything was removed.
func (c *Cluster) Delete(kind model.Kind, name string) bool {
	return c.store.Delete(kind, name)
}

func (c *Cluster) Get(kind model.Kind, name string) (*model.Resource, bool) {
	return c.store.Get(kind, name)
}

func (c *Cluster) List(kind model.Kind) []*model.Resource {
	return c.store.List(kind)
}

// Router returns the messaging surface for containers and services.
func (c *Cluster) Router() *routing.Router {
	return c.api
}

// Store exposes the resource CRUD surface.
func (c *Cluster) Store() store.Store {
	return c.store
}
