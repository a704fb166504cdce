// Package task defines the task model shared by the tracker, gateway, and clients.
package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusToDo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Field length limits enforced at mutation time.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 2000
)

// Task is a unit of work with a dependency set.
//
// Dependencies holds ids of tasks that must be done before this task can
// transition to done. It is a set: order is irrelevant and duplicates are
// collapsed on write. Version increments on every commit; callers supply the
// version they last read so stale writes can be rejected.
type Task struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Priority       Priority  `json:"priority"`
	Status         Status    `json:"status"`
	AssignedUserID string    `json:"assigned_user_id,omitempty"`
	Dependencies   []string  `json:"dependencies,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Version        int64     `json:"version"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Dependencies != nil {
		cp.Dependencies = append([]string(nil), t.Dependencies...)
	}
	return &cp
}

// DependsOn reports whether id is in the task's dependency set.
func (t *Task) DependsOn(id string) bool {
	for _, d := range t.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}

// NormalizeDependencies collapses duplicates while preserving first-seen order.
func NormalizeDependencies(deps []string) []string {
	if len(deps) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(deps))
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// GenerateID creates a unique task identifier.
func GenerateID() string {
	u := uuid.New().String()
	return "task_" + strings.ReplaceAll(u[:13], "-", "")
}
