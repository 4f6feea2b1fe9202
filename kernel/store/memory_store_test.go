package store

import (
	"testing"

	"github.com/openkiss/kiss/kernel/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.Create(model.NewContainer("echo-1", nil, nil)))

	err := s.Create(model.NewContainer("echo-1", nil, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	// same name under a different kind is a distinct key
	require.NoError(t, s.Create(model.NewService("echo-1", nil, nil)))
}

func TestMemoryStore_UpdateAbsent(t *testing.T) {
	s := NewMemoryStore()

	err := s.Update(model.NewContainer("missing", nil, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_GetAndUpdate(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.Create(model.NewContainer("echo-1", map[string]any{"workload": "echo"}, nil)))

	r, ok := s.Get(model.KindContainer, "echo-1")
	require.True(t, ok)
	assert.Equal(t, "echo", r.Container().Workload())

	require.NoError(t, s.Update(model.NewContainer("echo-1", map[string]any{"workload": "calculator"}, nil)))

	r, ok = s.Get(model.KindContainer, "echo-1")
	require.True(t, ok)
	assert.Equal(t, "calculator", r.Container().Workload())

	_, ok = s.Get(model.KindService, "echo-1")
	assert.False(t, ok)
}

func TestMemoryStore_DeleteAbsent(t *testing.T) {
	s := NewMemoryStore()

	assert.False(t, s.Delete(model.KindContainer, "missing"))

	require.NoError(t, s.Create(model.NewContainer("echo-1", nil, nil)))
	assert.True(t, s.Delete(model.KindContainer, "echo-1"))
	assert.False(t, s.Delete(model.KindContainer, "echo-1"))
}

func TestMemoryStore_ListSnapshot(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.Create(model.NewContainer("a", map[string]any{"workload": "echo"}, nil)))
	require.NoError(t, s.Create(model.NewContainer("b", nil, nil)))

	listed := s.List(model.KindContainer)
	require.Len(t, listed, 2)

	// mutating the snapshot must not leak back into the store
	for _, r := range listed {
		r.Spec["workload"] = "mutated"
	}
	r, ok := s.Get(model.KindContainer, "a")
	require.True(t, ok)
	assert.Equal(t, "echo", r.Container().Workload())

	assert.Empty(t, s.List(model.KindService))
}
