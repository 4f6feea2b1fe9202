package engine

import (
	"context"
	"strings"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/openkiss/kiss/kernel/model"
	"github.com/openkiss/kiss/kernel/routing"
	"github.com/openkiss/kiss/kernel/runtime"
	"github.com/pkg/errors"
)

// stopTimeout bounds the wait for a single runnable to stop.
const stopTimeout = 5 * time.Second

// ContainerReconciler maintains the authoritative map from container name to
// live runnable. It diffs on presence/absence only: a resource mutated in
// place under the same name is deliberately not restarted.
type ContainerReconciler struct {
	factory   runtime.Factory
	api       *routing.Router
	runnables cmap.ConcurrentMap[string, runtime.Runnable]
}

func NewContainerReconciler() *ContainerReconciler {
	return &ContainerReconciler{
		runnables: cmap.New[runtime.Runnable](),
	}
}

// Wire injects the runnable factory and router. Called once during cluster
// assembly, before the controller starts; the router itself resolves
// endpoints through this reconciler.
func (c *ContainerReconciler) Wire(factory runtime.Factory, api *routing.Router) {
	c.factory = factory
	c.api = api
}

func (c *ContainerReconciler) Kind() model.Kind {
	return model.KindContainer
}

func (c *ContainerReconciler) Reconcile(resources []*model.Resource) error {
	desired := make(map[string]*model.Resource, len(resources))
	for _, resource := range resources {
		desired[resource.Name] = resource
	}

	// stop and discard live units that are no longer desired
	for name, runnable := range c.runnables.Items() {
		if _, wanted := desired[name]; wanted {
			continue
		}
		log.Infof("stopping container [%s]", name)
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		if err := runnable.Stop(ctx); err != nil {
			log.WithError(err).Warnf("stopping container [%s]", name)
		}
		cancel()
		c.runnables.Remove(name)
	}

	// start desired units that are not live yet
	var failures []string
	for name, resource := range desired {
		if c.runnables.Has(name) {
			continue
		}
		log.Infof("starting container [%s]", name)
		runnable, err := c.factory(resource, c.api)
		if err != nil {
			log.WithError(err).Errorf("building container [%s]", name)
			failures = append(failures, name+": "+err.Error())
			continue
		}
		if err := runnable.Start(); err != nil {
			log.WithError(err).Errorf("starting container [%s]", name)
			failures = append(failures, name+": "+err.Error())
			continue
		}
		c.runnables.Set(name, runnable)
	}

	if len(failures) > 0 {
		return errors.Errorf("container start failures: %s", strings.Join(failures, "; "))
	}
	return nil
}

// Runnable returns the live unit for a container name.
func (c *ContainerReconciler) Runnable(name string) (runtime.Runnable, bool) {
	return c.runnables.Get(name)
}

// Endpoint implements routing.EndpointSource over the live runnable map.
// Units without an inbox (docker-backed) are not routable.
func (c *ContainerReconciler) Endpoint(name string) (routing.Endpoint, bool) {
	runnable, ok := c.runnables.Get(name)
	if !ok {
		return nil, false
	}
	endpoint, ok := runnable.(routing.Endpoint)
	return endpoint, ok
}

func (c *ContainerReconciler) Endpoints() []routing.Endpoint {
	var endpoints []routing.Endpoint
	for _, runnable := range c.runnables.Items() {
		if endpoint, ok := runnable.(routing.Endpoint); ok {
			endpoints = append(endpoints, endpoint)
		}
	}
	return endpoints
}
