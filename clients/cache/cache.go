// Package cache maintains a per-viewer mirror of the task collection,
// reconciling REST responses, pushed events, and optimistic local writes.
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/syncboard/syncboard/internal/task"
)

// pendingMutation snapshots the state needed to undo an optimistic write.
type pendingMutation struct {
	taskID string
	prev   *task.Task // nil means the write was a speculative creation
}

type queryEntry struct {
	value   any
	expires time.Time
}

// TaskCache mirrors the server's task collection for one viewer.
//
// Server values win unconditionally: responses and pushed events overwrite
// local entries whole, with no field merge. A version guard makes the apply
// idempotent and order-independent between the unicast response and the
// broadcast event for the same commit.
type TaskCache struct {
	mu      sync.RWMutex
	tasks   map[string]*task.Task
	pending map[string]*pendingMutation

	queries  map[string]queryEntry
	queryTTL time.Duration
}

// New creates an empty cache. queryTTL bounds the lifetime of read-query
// entries; zero disables query caching.
func New(queryTTL time.Duration) *TaskCache {
	return &TaskCache{
		tasks:    make(map[string]*task.Task),
		pending:  make(map[string]*pendingMutation),
		queries:  make(map[string]queryEntry),
		queryTTL: queryTTL,
	}
}

// Get returns the cached task, if present.
func (c *TaskCache) Get(id string) (*task.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// List returns all cached tasks, oldest first.
func (c *TaskCache) List() []*task.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*task.Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of cached tasks.
func (c *TaskCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tasks)
}

// ReplaceAll installs a full resync snapshot, discarding everything local.
// Pending optimistic state is dropped: after a resync the server copy is the
// only truth.
func (c *TaskCache) ReplaceAll(tasks []*task.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tasks = make(map[string]*task.Task, len(tasks))
	for _, t := range tasks {
		c.tasks[t.ID] = t.Clone()
	}
	c.pending = make(map[string]*pendingMutation)
	c.queries = make(map[string]queryEntry)
}

// ApplyServer reconciles an authoritative task value from a response or a
// pushed event. An entry already at a newer version is left alone, which
// makes response/event arrival order irrelevant.
func (c *TaskCache) ApplyServer(t *task.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.tasks[t.ID]; ok && cur.Version > t.Version {
		return
	}
	cp := t.Clone()
	c.tasks[t.ID] = cp

	// The server value supersedes any rollback snapshot for this task.
	for _, p := range c.pending {
		if p.taskID == t.ID {
			p.prev = cp.Clone()
		}
	}
	c.invalidateClassLocked("tasks")
}

// RemoveServer reconciles an authoritative deletion. No tombstone is kept: a
// unicast response that raced the deletion can re-insert the task until the
// next event or resync removes it again.
func (c *TaskCache) RemoveServer(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.tasks, taskID)
	for _, p := range c.pending {
		if p.taskID == taskID {
			p.prev = nil
		}
	}
	c.invalidateClassLocked("tasks")
}

// BeginUpsert optimistically inserts or replaces a task before server
// confirmation, remembering the pre-mutation snapshot under mutID.
func (c *TaskCache) BeginUpsert(mutID string, t *task.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var prev *task.Task
	if cur, ok := c.tasks[t.ID]; ok {
		prev = cur.Clone()
	}
	c.pending[mutID] = &pendingMutation{taskID: t.ID, prev: prev}
	c.tasks[t.ID] = t.Clone()
	c.invalidateClassLocked("tasks")
}

// BeginDelete optimistically removes a task before server confirmation.
func (c *TaskCache) BeginDelete(mutID, taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var prev *task.Task
	if cur, ok := c.tasks[taskID]; ok {
		prev = cur.Clone()
	}
	c.pending[mutID] = &pendingMutation{taskID: taskID, prev: prev}
	delete(c.tasks, taskID)
	c.invalidateClassLocked("tasks")
}

// Confirm resolves an optimistic mutation with the server's value. A nil
// value confirms a deletion. A creation confirmed under a server-assigned id
// drops the entry filed under the temporary one.
func (c *TaskCache) Confirm(mutID string, serverTask *task.Task) {
	c.mu.Lock()
	p, ok := c.pending[mutID]
	delete(c.pending, mutID)
	if ok && serverTask != nil && p.taskID != serverTask.ID {
		delete(c.tasks, p.taskID)
		c.invalidateClassLocked("tasks")
	}
	c.mu.Unlock()

	if !ok {
		// A pushed event may have reconciled this task already.
		if serverTask != nil {
			c.ApplyServer(serverTask)
		}
		return
	}

	if serverTask != nil {
		c.ApplyServer(serverTask)
		return
	}
	c.RemoveServer(p.taskID)
}

// Rollback undoes an optimistic mutation after its request failed, restoring
// the pre-mutation snapshot or removing a speculative creation.
func (c *TaskCache) Rollback(mutID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[mutID]
	if !ok {
		return
	}
	delete(c.pending, mutID)

	if p.prev == nil {
		delete(c.tasks, p.taskID)
	} else {
		c.tasks[p.taskID] = p.prev.Clone()
	}
	c.invalidateClassLocked("tasks")
}

// GetQuery returns a cached read-query result keyed by endpoint+parameters.
func (c *TaskCache) GetQuery(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.queries[key]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.value, true
}

// PutQuery caches a read-query result.
func (c *TaskCache) PutQuery(key string, value any) {
	if c.queryTTL <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries[key] = queryEntry{value: value, expires: time.Now().Add(c.queryTTL)}
}

// InvalidateClass drops every query entry under the given key prefix.
func (c *TaskCache) InvalidateClass(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateClassLocked(prefix)
}

func (c *TaskCache) invalidateClassLocked(prefix string) {
	for k := range c.queries {
		if strings.HasPrefix(k, prefix) {
			delete(c.queries, k)
		}
	}
}
