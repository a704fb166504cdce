// Package tracker is the dependency-consistency engine: it validates and
// atomically commits task mutations against the store and publishes one event
// per confirmed change.
package tracker

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/syncboard/syncboard/internal/events"
	"github.com/syncboard/syncboard/internal/store"
	"github.com/syncboard/syncboard/internal/task"
)

// Tracker commits mutations sequentially: mu makes it a single committer, so
// events for the same task always leave in commit order and the
// validate-then-commit sequence of one operation never interleaves with
// another.
type Tracker struct {
	store store.Store
	bus   *events.Bus

	mu  sync.Mutex
	now func() time.Time
}

// New creates a tracker over the given store and event bus.
func New(st store.Store, bus *events.Bus) *Tracker {
	return &Tracker{
		store: st,
		bus:   bus,
		now:   time.Now,
	}
}

// CreateTaskInput carries the caller-supplied fields for a new task.
type CreateTaskInput struct {
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Priority       task.Priority `json:"priority"`
	Status         task.Status   `json:"status"`
	AssignedUserID string        `json:"assigned_user_id"`
	Dependencies   []string      `json:"dependencies"`
}

// TaskPatch is a partial update. Nil fields are left untouched. Version is
// the version the caller last read; zero skips the staleness check.
type TaskPatch struct {
	Title          *string        `json:"title,omitempty"`
	Description    *string        `json:"description,omitempty"`
	Priority       *task.Priority `json:"priority,omitempty"`
	Status         *task.Status   `json:"status,omitempty"`
	AssignedUserID *string        `json:"assigned_user_id,omitempty"`
	Dependencies   *[]string      `json:"dependencies,omitempty"`
	Version        int64          `json:"version,omitempty"`
}

// TaskDetail is a task with its direct dependency and dependent tasks resolved.
type TaskDetail struct {
	Task         *task.Task   `json:"task"`
	Dependencies []*task.Task `json:"dependencies"`
	Dependents   []*task.Task `json:"dependents"`
}

// CreateTask validates input, assigns an id and timestamps, commits the task,
// and broadcasts task_created.
func (tr *Tracker) CreateTask(in CreateTaskInput) (*task.Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	title := strings.TrimSpace(in.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}

	priority := in.Priority
	if priority == "" {
		priority = task.PriorityMedium
	}
	if !task.ValidPriority(priority) {
		return nil, validationf("unknown priority %q", priority)
	}

	status := in.Status
	if status == "" {
		status = task.StatusToDo
	}
	if !task.ValidStatus(status) {
		return nil, validationf("unknown status %q", status)
	}

	if in.AssignedUserID != "" {
		if err := tr.checkUserExists(in.AssignedUserID); err != nil {
			return nil, err
		}
	}

	deps := task.NormalizeDependencies(in.Dependencies)
	id := task.GenerateID()
	if err := tr.checkDependencies(id, deps); err != nil {
		return nil, err
	}

	now := tr.now()
	t := &task.Task{
		ID:             id,
		Title:          title,
		Description:    in.Description,
		Priority:       priority,
		Status:         status,
		AssignedUserID: in.AssignedUserID,
		Dependencies:   deps,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}

	if status == task.StatusDone {
		if ok, blocking := tr.depsAllDone(deps); !ok {
			return nil, unmetf("task cannot start done: dependency %s is not done", blocking)
		}
	}

	if err := tr.store.PutTask(t); err != nil {
		return nil, internalf("commit task: %v", err)
	}

	tr.bus.Publish(events.NewTypedEvent(events.SourceTracker, events.TaskCreatedPayload{Task: t}))
	if t.AssignedUserID != "" {
		tr.bus.Publish(events.NewAddressedEvent(events.SourceTracker, events.TaskAssignedPayload{Task: t}, t.AssignedUserID))
	}
	return t.Clone(), nil
}

// UpdateTask merges a partial update into the task, re-validating references
// and the done gate against the dependency set that will be in effect after
// the merge. Broadcasts task_updated on success.
func (tr *Tracker) UpdateTask(id string, patch TaskPatch) (*task.Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	cur, err := tr.getTask(id)
	if err != nil {
		return nil, err
	}
	if patch.Version != 0 && patch.Version != cur.Version {
		return nil, conflictf("stale write: task %s is at version %d, patch read version %d", id, cur.Version, patch.Version)
	}

	next := cur.Clone()
	prevAssignee := cur.AssignedUserID

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		next.Title = title
	}
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return nil, err
		}
		next.Description = *patch.Description
	}
	if patch.Priority != nil {
		if !task.ValidPriority(*patch.Priority) {
			return nil, validationf("unknown priority %q", *patch.Priority)
		}
		next.Priority = *patch.Priority
	}
	if patch.AssignedUserID != nil {
		if *patch.AssignedUserID != "" {
			if err := tr.checkUserExists(*patch.AssignedUserID); err != nil {
				return nil, err
			}
		}
		next.AssignedUserID = *patch.AssignedUserID
	}
	if patch.Dependencies != nil {
		deps := task.NormalizeDependencies(*patch.Dependencies)
		if err := tr.checkDependencies(id, deps); err != nil {
			return nil, err
		}
		if path := tr.findCycle(id, deps); path != nil {
			return nil, cycleError(path)
		}
		next.Dependencies = deps
	}
	if patch.Status != nil {
		if !task.ValidStatus(*patch.Status) {
			return nil, validationf("unknown status %q", *patch.Status)
		}
		if *patch.Status == task.StatusDone {
			// Gate against the post-merge dependency set, not the stored one.
			if ok, blocking := tr.depsAllDone(next.Dependencies); !ok {
				return nil, unmetf("task %s cannot complete: dependency %s is not done", id, blocking)
			}
		}
		next.Status = *patch.Status
	}

	next.Version = cur.Version + 1
	next.UpdatedAt = tr.bumpedClock(cur.UpdatedAt)

	if err := tr.store.PutTask(next); err != nil {
		return nil, internalf("commit task: %v", err)
	}

	tr.bus.Publish(events.NewTypedEvent(events.SourceTracker, events.TaskUpdatedPayload{Task: next}))
	if next.AssignedUserID != "" && next.AssignedUserID != prevAssignee {
		tr.bus.Publish(events.NewAddressedEvent(events.SourceTracker, events.TaskAssignedPayload{Task: next}, next.AssignedUserID))
	}
	return next.Clone(), nil
}

// DeleteTask removes a task. It fails with Conflict while any other task's
// dependency set contains the id, and broadcasts task_deleted on success.
func (tr *Tracker) DeleteTask(id string, version int64) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	cur, err := tr.getTask(id)
	if err != nil {
		return err
	}
	if version != 0 && version != cur.Version {
		return conflictf("stale delete: task %s is at version %d, caller read version %d", id, cur.Version, version)
	}

	dependents, err := tr.dependentsOf(id)
	if err != nil {
		return err
	}
	if len(dependents) > 0 {
		names := make([]string, 0, len(dependents))
		for _, d := range dependents {
			names = append(names, d.ID)
		}
		return conflictf("task %s has dependents: %s", id, strings.Join(names, ", "))
	}

	if err := tr.store.DeleteTask(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundf("task %s", id)
		}
		return internalf("delete task: %v", err)
	}

	tr.bus.Publish(events.NewTypedEvent(events.SourceTracker, events.TaskDeletedPayload{TaskID: id}))
	return nil
}

// MarkComplete transitions a task to done under the same gating as UpdateTask.
func (tr *Tracker) MarkComplete(id string, version int64) (*task.Task, error) {
	done := task.StatusDone
	return tr.UpdateTask(id, TaskPatch{Status: &done, Version: version})
}

// CanComplete reports whether the task exists and every task in its current
// dependency set is done. A dependency id that no longer resolves counts as
// not satisfied.
func (tr *Tracker) CanComplete(id string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t, err := tr.getTask(id)
	if err != nil {
		return false
	}
	ok, _ := tr.depsAllDone(t.Dependencies)
	return ok
}

// GetTask returns a task by id.
func (tr *Tracker) GetTask(id string) (*task.Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.getTask(id)
}

// GetTaskDetail returns a task with its dependencies and dependents resolved.
// Dependency ids that no longer resolve are omitted from the resolved list.
func (tr *Tracker) GetTaskDetail(id string) (*TaskDetail, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t, err := tr.getTask(id)
	if err != nil {
		return nil, err
	}

	deps := make([]*task.Task, 0, len(t.Dependencies))
	for _, depID := range t.Dependencies {
		dep, err := tr.getTask(depID)
		if err != nil {
			continue
		}
		deps = append(deps, dep)
	}

	dependents, err := tr.dependentsOf(id)
	if err != nil {
		return nil, err
	}

	return &TaskDetail{Task: t, Dependencies: deps, Dependents: dependents}, nil
}

// ListTasks returns all tasks.
func (tr *Tracker) ListTasks() ([]*task.Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	list, err := tr.store.ListTasks()
	if err != nil {
		return nil, internalf("list tasks: %v", err)
	}
	return list, nil
}

// TasksForUser returns all tasks assigned to a user.
func (tr *Tracker) TasksForUser(userID string) ([]*task.Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	list, err := tr.store.ListTasks()
	if err != nil {
		return nil, internalf("list tasks: %v", err)
	}
	out := make([]*task.Task, 0)
	for _, t := range list {
		if t.AssignedUserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

// Blocked returns all non-done tasks whose dependency set is not fully done.
func (tr *Tracker) Blocked() ([]*task.Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	list, err := tr.store.ListTasks()
	if err != nil {
		return nil, internalf("list tasks: %v", err)
	}
	out := make([]*task.Task, 0)
	for _, t := range list {
		if t.Status == task.StatusDone {
			continue
		}
		if ok, _ := tr.depsAllDone(t.Dependencies); !ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Dependents returns all tasks whose dependency set contains id.
func (tr *Tracker) Dependents(id string) ([]*task.Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.dependentsOf(id)
}

func (tr *Tracker) getTask(id string) (*task.Task, error) {
	t, err := tr.store.GetTask(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundf("task %s", id)
		}
		return nil, internalf("get task %s: %v", id, err)
	}
	return t, nil
}

func (tr *Tracker) checkUserExists(userID string) error {
	_, err := tr.store.GetUser(userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return validationf("assigned user %s does not exist", userID)
		}
		return internalf("get user %s: %v", userID, err)
	}
	return nil
}

// checkDependencies rejects self-references and ids that do not resolve.
func (tr *Tracker) checkDependencies(taskID string, deps []string) error {
	for _, depID := range deps {
		if depID == taskID {
			return validationf("task cannot depend on itself")
		}
		if _, err := tr.store.GetTask(depID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return validationf("dependency %s does not exist", depID)
			}
			return internalf("get dependency %s: %v", depID, err)
		}
	}
	return nil
}

// depsAllDone reports whether every dependency resolves to a done task.
// On failure it returns the first blocking id.
func (tr *Tracker) depsAllDone(deps []string) (bool, string) {
	for _, depID := range deps {
		dep, err := tr.store.GetTask(depID)
		if err != nil {
			return false, depID
		}
		if dep.Status != task.StatusDone {
			return false, depID
		}
	}
	return true, ""
}

func (tr *Tracker) dependentsOf(id string) ([]*task.Task, error) {
	list, err := tr.store.ListTasks()
	if err != nil {
		return nil, internalf("list tasks: %v", err)
	}
	out := make([]*task.Task, 0)
	for _, t := range list {
		if t.ID != id && t.DependsOn(id) {
			out = append(out, t)
		}
	}
	return out, nil
}

// bumpedClock keeps UpdatedAt monotonically non-decreasing even if the wall
// clock steps backwards between commits.
func (tr *Tracker) bumpedClock(prev time.Time) time.Time {
	now := tr.now()
	if now.Before(prev) {
		return prev
	}
	return now
}

func validateTitle(title string) error {
	if title == "" {
		return validationf("title is required")
	}
	if len(title) > task.MaxTitleLen {
		return validationf("title exceeds %d characters", task.MaxTitleLen)
	}
	return nil
}

func validateDescription(desc string) error {
	if len(desc) > task.MaxDescriptionLen {
		return validationf("description exceeds %d characters", task.MaxDescriptionLen)
	}
	return nil
}
