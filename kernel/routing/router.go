package routing

import (
	"math/rand/v2"
	"path"

	"github.com/openkiss/kiss/kernel/model"
	"github.com/openkiss/kiss/kernel/store"
	"github.com/pkg/errors"
)

// ErrNoBackends is returned when a service selector matches no live
// endpoints. Services may legitimately have zero backends transiently.
var ErrNoBackends = errors.New("no backends match service")

// Envelope is the unit delivered into an endpoint's inbox. Reply is nil for
// fire-and-forget messages.
type Envelope struct {
	Value any
	Reply *Future
}

// IsRequest reports whether the sender expects a reply.
func (e Envelope) IsRequest() bool {
	return e.Reply != nil
}

// Endpoint is a live unit messages can be delivered to.
type Endpoint interface {
	Name() string
	Deliver(Envelope) error
}

// EndpointSource resolves names to currently live endpoints. The container
// controller implements this over its runnable map, so service sends always
// see live units rather than a controller's cached match set.
type EndpointSource interface {
	Endpoint(name string) (Endpoint, bool)
	Endpoints() []Endpoint
}

// Router delivers messages to containers directly or through a service
// selector.
type Router struct {
	store     store.Store
	endpoints EndpointSource
}

func NewRouter(s store.Store, endpoints EndpointSource) *Router {
	return &Router{store: s, endpoints: endpoints}
}

// SendToContainer delivers value to the named container. With expectReply it
// returns a Future the receiving workload resolves exactly once.
func (r *Router) SendToContainer(name string, value any, expectReply bool) (*Future, error) {
	endpoint, ok := r.endpoints.Endpoint(name)
	if !ok {
		return nil, errors.Wrapf(store.ErrNotFound, "container [%s]", name)
	}
	return r.deliver(endpoint, value, expectReply)
}

// SendToService delivers value to one uniformly random live endpoint matching
// the named service's selector. Every call picks independently; this is a
// distinct policy from the load balancer's round robin.
func (r *Router) SendToService(serviceName string, value any, expectReply bool) (*Future, error) {
	service, ok := r.store.Get(model.KindService, serviceName)
	if !ok {
		return nil, errors.Wrapf(store.ErrNotFound, "service [%s]", serviceName)
	}

	selector := service.Service().Selector()
	var matches []Endpoint
	for _, endpoint := range r.endpoints.Endpoints() {
		if matched, _ := path.Match(selector, endpoint.Name()); matched {
			matches = append(matches, endpoint)
		}
	}
	if len(matches) == 0 {
		return nil, errors.Wrapf(ErrNoBackends, "service [%s] selector '%s'", serviceName, selector)
	}

	return r.deliver(matches[rand.IntN(len(matches))], value, expectReply)
}

func (r *Router) deliver(endpoint Endpoint, value any, expectReply bool) (*Future, error) {
	envelope := Envelope{Value: value}
	if expectReply {
		envelope.Reply = NewFuture()
	}
	if err := endpoint.Deliver(envelope); err != nil {
		return nil, errors.Wrapf(err, "delivering to [%s]", endpoint.Name())
	}
	return envelope.Reply, nil
}
