package store

import (
	"github.com/openkiss/kiss/kernel/model"
	"github.com/pkg/errors"
)

var (
	// ErrAlreadyExists is returned by Create when (kind, name) is taken.
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrNotFound is returned by Update when (kind, name) is absent.
	ErrNotFound = errors.New("resource not found")
)

// Store is the sole external mutation surface for desired state. All
// operations are atomic with respect to each other.
type Store interface {
	// Create adds a resource, failing with ErrAlreadyExists if the
	// (kind, name) key is present.
	Create(resource *model.Resource) error

	// Update replaces a resource, failing with ErrNotFound if absent.
	Update(resource *model.Resource) error

	// Get returns the resource for (kind, name), or false if absent.
	Get(kind model.Kind, name string) (*model.Resource, bool)

	// List returns a snapshot copy of all resources of a kind. Order is
	// not guaranteed.
	List(kind model.Kind) []*model.Resource

	// Delete removes a resource, reporting whether anything was removed.
	Delete(kind model.Kind, name string) bool
}
