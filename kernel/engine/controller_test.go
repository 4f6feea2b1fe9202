package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/openkiss/kiss/kernel/model"
	"github.com/openkiss/kiss/kernel/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 10 * time.Millisecond

// recordingReconciler captures every pass it is handed and can be told to
// fail or panic, to prove the loop survives both.
type recordingReconciler struct {
	mu     sync.Mutex
	passes [][]*model.Resource
	fail   error
	panics bool
}

func (r *recordingReconciler) Kind() model.Kind {
	return model.KindContainer
}

func (r *recordingReconciler) Reconcile(resources []*model.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, resources)
	if r.panics {
		panic("boom")
	}
	return r.fail
}

func (r *recordingReconciler) passCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.passes)
}

func (r *recordingReconciler) lastPass() []*model.Resource {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.passes) == 0 {
		return nil
	}
	return r.passes[len(r.passes)-1]
}

func TestController_Lifecycle(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Create(model.NewContainer("web", map[string]any{"image": "nginx"}, nil)))

	r := &recordingReconciler{}
	c := NewController(s, r, testInterval)
	assert.Equal(t, Stopped, c.State())

	c.Start()
	assert.Equal(t, Running, c.State())

	require.Eventually(t, func() bool { return r.passCount() >= 3 }, time.Second, time.Millisecond,
		"expected repeated reconcile passes")

	c.Stop()
	assert.Equal(t, Stopped, c.State())

	// shutdown runs one final pass against an empty desired set
	assert.Nil(t, r.lastPass())

	passes := r.passCount()
	time.Sleep(5 * testInterval)
	assert.Equal(t, passes, r.passCount(), "loop must not tick after Stop")
}

func TestController_FirstPassIsImmediate(t *testing.T) {
	r := &recordingReconciler{}
	c := NewController(store.NewMemoryStore(), r, time.Hour)
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool { return r.passCount() >= 1 }, time.Second, time.Millisecond)
}

func TestController_SurvivesErrorsAndPanics(t *testing.T) {
	r := &recordingReconciler{fail: assert.AnError, panics: true}
	c := NewController(store.NewMemoryStore(), r, testInterval)
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool { return r.passCount() >= 3 }, time.Second, time.Millisecond,
		"loop must keep ticking through reconcile panics")
}

func TestController_StartStopIdempotent(t *testing.T) {
	r := &recordingReconciler{}
	c := NewController(store.NewMemoryStore(), r, testInterval)

	c.Stop() // stopping a stopped controller is a no-op

	c.Start()
	c.Start()
	require.Eventually(t, func() bool { return r.passCount() >= 1 }, time.Second, time.Millisecond)

	c.Stop()
	c.Stop()
	assert.Equal(t, Stopped, c.State())
}

func TestController_SeesStoreSnapshot(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Create(model.NewContainer("a", map[string]any{"image": "x"}, nil)))

	r := &recordingReconciler{}
	c := NewController(s, r, testInterval)
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool {
		last := r.lastPass()
		return len(last) == 1 && last[0].Name == "a"
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Create(model.NewContainer("b", map[string]any{"image": "y"}, nil)))
	require.Eventually(t, func() bool { return len(r.lastPass()) == 2 }, time.Second, time.Millisecond)
}
