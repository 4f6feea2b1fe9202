package engine

import (
	"context"
	"testing"
	"time"

	"github.com/openkiss/kiss/kernel/balancer"
	"github.com/openkiss/kiss/kernel/model"
	"github.com/openkiss/kiss/kernel/runtime"
	"github.com/openkiss/kiss/kernel/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// balancerRunnable fronts a live in-process balancer so the reconciler can
// discover its control endpoint.
type balancerRunnable struct {
	name string
	lb   *balancer.Balancer
}

func (b *balancerRunnable) Name() string                   { return b.name }
func (b *balancerRunnable) Start() error                   { return nil }
func (b *balancerRunnable) Stop(ctx context.Context) error { return nil }
func (b *balancerRunnable) ControlAddr() string            { return b.lb.ControlAddr() }

type fakeRunnableSource struct {
	runnables map[string]runtime.Runnable
}

func (f *fakeRunnableSource) Runnable(name string) (runtime.Runnable, bool) {
	runnable, ok := f.runnables[name]
	return runnable, ok
}

func testService(name, selector string) *model.Resource {
	return model.NewService(name, map[string]any{
		"selector":   selector,
		"port":       9000,
		"targetPort": 8000,
	}, nil)
}

func TestServiceReconciler_CreatesLoadBalancer(t *testing.T) {
	s := store.NewMemoryStore()
	r := NewServiceReconciler(s, &fakeRunnableSource{})

	require.NoError(t, r.Reconcile([]*model.Resource{testService("api", "api-*")}))

	lb, ok := s.Get(model.KindContainer, model.LoadBalancerName("api"))
	require.True(t, ok, "first pass must declare the balancer container")
	spec := lb.Container()
	assert.Equal(t, model.LoadBalancerImage, spec.Image())
	assert.EqualValues(t, 9000, spec.Env()["SOURCE_PORT"])
	assert.EqualValues(t, 8000, spec.Env()["TARGET_PORT"])
}

func TestServiceReconciler_PushesBackends(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Create(model.NewContainer("api-1", map[string]any{"image": "x"}, nil)))
	require.NoError(t, s.Create(model.NewContainer("api-0", map[string]any{"image": "x"}, nil)))
	require.NoError(t, s.Create(model.NewContainer("other", map[string]any{"image": "x"}, nil)))

	lb := balancer.New(balancer.Config{TargetPort: 8000})
	require.NoError(t, lb.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = lb.Stop(ctx)
	}()

	source := &fakeRunnableSource{runnables: map[string]runtime.Runnable{
		model.LoadBalancerName("api"): &balancerRunnable{name: model.LoadBalancerName("api"), lb: lb},
	}}
	r := NewServiceReconciler(s, source)
	service := testService("api", "api-*")

	// first pass declares the balancer, second pushes the matches to it
	require.NoError(t, r.Reconcile([]*model.Resource{service}))
	assert.Empty(t, lb.Backends())
	require.NoError(t, r.Reconcile([]*model.Resource{service}))
	assert.Equal(t, []string{"api-0", "api-1"}, lb.Backends())

	// unchanged matches are not re-pushed
	require.NoError(t, r.Reconcile([]*model.Resource{service}))
	assert.Equal(t, []string{"api-0", "api-1"}, lb.Backends())

	// a new matching container changes the set and triggers a push
	require.NoError(t, s.Create(model.NewContainer("api-2", map[string]any{"image": "x"}, nil)))
	require.NoError(t, r.Reconcile([]*model.Resource{service}))
	assert.Equal(t, []string{"api-0", "api-1", "api-2"}, lb.Backends())
}

func TestServiceReconciler_RetriesUntilBalancerReachable(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Create(model.NewContainer("api-0", map[string]any{"image": "x"}, nil)))

	source := &fakeRunnableSource{runnables: map[string]runtime.Runnable{}}
	r := NewServiceReconciler(s, source)
	service := testService("api", "api-*")

	// passes 2..n fail to push while the balancer is absent; the watermark
	// must not advance
	require.NoError(t, r.Reconcile([]*model.Resource{service}))
	require.NoError(t, r.Reconcile([]*model.Resource{service}))
	require.NoError(t, r.Reconcile([]*model.Resource{service}))

	lb := balancer.New(balancer.Config{TargetPort: 8000})
	require.NoError(t, lb.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = lb.Stop(ctx)
	}()
	source.runnables[model.LoadBalancerName("api")] =
		&balancerRunnable{name: model.LoadBalancerName("api"), lb: lb}

	require.NoError(t, r.Reconcile([]*model.Resource{service}))
	assert.Equal(t, []string{"api-0"}, lb.Backends())
}

func TestServiceReconciler_DeletesBalancerWithService(t *testing.T) {
	s := store.NewMemoryStore()
	r := NewServiceReconciler(s, &fakeRunnableSource{})
	service := testService("api", "api-*")

	require.NoError(t, r.Reconcile([]*model.Resource{service}))
	_, ok := s.Get(model.KindContainer, model.LoadBalancerName("api"))
	require.True(t, ok)

	require.NoError(t, r.Reconcile(nil))
	_, ok = s.Get(model.KindContainer, model.LoadBalancerName("api"))
	assert.False(t, ok, "removing the service removes its balancer")
}
