// Package store provides the authoritative record store for tasks and users.
//
// The store carries no business rules: invariants are enforced by the tracker,
// which is the only writer. A single put or delete is atomic relative to
// concurrent reads; swapping the in-memory backend for a durable one must not
// change tracker behavior.
package store

import (
	"errors"

	"github.com/syncboard/syncboard/internal/identity"
	"github.com/syncboard/syncboard/internal/task"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the keyed Task and User collection.
type Store interface {
	GetTask(id string) (*task.Task, error)
	PutTask(t *task.Task) error
	DeleteTask(id string) error
	ListTasks() ([]*task.Task, error)

	GetUser(id string) (*identity.User, error)
	PutUser(u *identity.User) error
	DeleteUser(id string) error
	ListUsers() ([]*identity.User, error)

	Close() error
}
