package events

import (
	"sync"
	"testing"
	"time"

	"github.com/syncboard/syncboard/internal/task"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventTaskCreated)

	bus.Publish(NewTypedEvent(SourceTracker, TaskCreatedPayload{Task: &task.Task{ID: "task_1"}}))
	bus.Publish(NewTypedEvent(SourceTracker, TaskDeletedPayload{TaskID: "task_1"}))

	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) >= 1
	})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventTaskCreated {
		t.Errorf("expected task_created, got %s", received[0].Type)
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewTypedEvent(SourceTracker, TaskCreatedPayload{Task: &task.Task{ID: "task_1"}}))
	bus.Publish(NewTypedEvent(SourceTracker, TaskDeletedPayload{TaskID: "task_1"}))

	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 2
	})
}

func TestBusPreservesPublishOrder(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var seen []string

	bus.Subscribe(func(e Event) {
		p, ok := GetTaskUpdatedPayload(e)
		if !ok {
			return
		}
		mu.Lock()
		seen = append(seen, p.Task.Title)
		mu.Unlock()
	}, EventTaskUpdated)

	for i, title := range []string{"one", "two", "three"} {
		bus.Publish(NewTypedEvent(SourceTracker, TaskUpdatedPayload{
			Task: &task.Task{ID: "task_1", Title: title, Version: int64(i + 1)},
		}))
	}

	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	for i, want := range []string{"one", "two", "three"} {
		if seen[i] != want {
			t.Fatalf("delivery order: got %v", seen)
		}
	}
}

func TestAddressedEvent(t *testing.T) {
	e := NewAddressedEvent(SourceTracker, TaskAssignedPayload{Task: &task.Task{ID: "task_1"}}, "user_9")
	if e.TargetUserID != "user_9" {
		t.Fatalf("TargetUserID: got %q", e.TargetUserID)
	}
	if e.Type != EventTaskAssigned {
		t.Fatalf("Type: got %s", e.Type)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	src := &task.Task{ID: "task_1", Title: "hello", Status: task.StatusToDo, Version: 3}
	e := NewTypedEvent(SourceTracker, TaskCreatedPayload{Task: src})

	p, ok := GetTaskCreatedPayload(e)
	if !ok {
		t.Fatal("extract failed")
	}
	if p.Task.ID != src.ID || p.Task.Title != src.Title || p.Task.Version != 3 {
		t.Fatalf("payload mismatch: %+v", p.Task)
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := 0; i < 5; i++ {
		rb.Add(NewTypedEvent(SourceTracker, TaskDeletedPayload{TaskID: "task_1"}))
	}

	events := rb.Get(10)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
}

func TestSubscribeChan(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(8, EventTaskCreated)
	defer unsub()

	bus.Publish(NewTypedEvent(SourceTracker, TaskCreatedPayload{Task: &task.Task{ID: "task_1"}}))

	select {
	case e := <-ch:
		if e.Type != EventTaskCreated {
			t.Errorf("expected task_created, got %s", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	// Stall the dispatcher so the buffer fills and further publishes hit
	// the drop path.
	release := make(chan struct{})
	bus.Subscribe(func(Event) { <-release })
	defer close(release)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 8; i++ {
			bus.Publish(NewTypedEvent(SourceTracker, TaskDeletedPayload{TaskID: "task_1"}))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full bus")
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
