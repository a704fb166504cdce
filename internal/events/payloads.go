package events

import (
	"encoding/json"
	"time"

	"github.com/syncboard/syncboard/internal/identity"
	"github.com/syncboard/syncboard/internal/task"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

type TaskCreatedPayload struct {
	Task *task.Task `json:"task"`
}

func (TaskCreatedPayload) EventType() EventType { return EventTaskCreated }

type TaskUpdatedPayload struct {
	Task *task.Task `json:"task"`
}

func (TaskUpdatedPayload) EventType() EventType { return EventTaskUpdated }

type TaskDeletedPayload struct {
	TaskID string `json:"task_id"`
}

func (TaskDeletedPayload) EventType() EventType { return EventTaskDeleted }

// TaskAssignedPayload is delivered addressed to the assignee in addition to
// the broadcast task_updated event.
type TaskAssignedPayload struct {
	Task       *task.Task `json:"task"`
	AssignedBy string     `json:"assigned_by,omitempty"`
}

func (TaskAssignedPayload) EventType() EventType { return EventTaskAssigned }

type UserJoinedPayload struct {
	User *identity.User `json:"user"`
}

func (UserJoinedPayload) EventType() EventType { return EventUserJoined }

type UserLeftPayload struct {
	User *identity.User `json:"user"`
}

func (UserLeftPayload) EventType() EventType { return EventUserLeft }

// NewTypedEvent builds an Event for broadcast fan-out.
func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

// NewAddressedEvent builds an Event delivered only to userID's connections.
func NewAddressedEvent(source EventSource, payload EventPayload, userID string) Event {
	e := NewTypedEvent(source, payload)
	e.TargetUserID = userID
	return e
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// ExtractPayload decodes an event's payload into its typed form.
func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

func GetTaskCreatedPayload(e Event) (TaskCreatedPayload, bool) {
	return ExtractPayload[TaskCreatedPayload](e)
}

func GetTaskUpdatedPayload(e Event) (TaskUpdatedPayload, bool) {
	return ExtractPayload[TaskUpdatedPayload](e)
}

func GetTaskDeletedPayload(e Event) (TaskDeletedPayload, bool) {
	return ExtractPayload[TaskDeletedPayload](e)
}

func GetTaskAssignedPayload(e Event) (TaskAssignedPayload, bool) {
	return ExtractPayload[TaskAssignedPayload](e)
}

func GetUserJoinedPayload(e Event) (UserJoinedPayload, bool) {
	return ExtractPayload[UserJoinedPayload](e)
}

func GetUserLeftPayload(e Event) (UserLeftPayload, bool) {
	return ExtractPayload[UserLeftPayload](e)
}
