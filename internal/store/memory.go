package store

import (
	"sort"
	"sync"

	"github.com/syncboard/syncboard/internal/identity"
	"github.com/syncboard/syncboard/internal/task"
)

// MemoryStore is a volatile Store backed by process memory.
// Records are cloned on the way in and out so callers can never alias the
// store's copy.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*task.Task
	users map[string]*identity.User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]*task.Task),
		users: make(map[string]*identity.User),
	}
}

func (m *MemoryStore) GetTask(id string) (*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (m *MemoryStore) PutTask(t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks[t.ID] = t.Clone()
	return nil
}

func (m *MemoryStore) DeleteTask(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

// ListTasks returns all tasks sorted by creation time, oldest first.
func (m *MemoryStore) ListTasks() ([]*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*task.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) GetUser(id string) (*identity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) PutUser(u *identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteUser(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// ListUsers returns all users sorted by creation time, oldest first.
func (m *MemoryStore) ListUsers() ([]*identity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*identity.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
