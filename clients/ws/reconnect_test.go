package ws

import (
	"testing"
	"time"
)

func TestBackoffSchedule(t *testing.T) {
	m := NewReconnectionManager(time.Second, 5, nil)
	m.Connecting()
	m.Connected()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for i, expected := range want {
		delay, ok := m.Dropped()
		if !ok {
			t.Fatalf("attempt %d: unexpectedly exhausted", i+1)
		}
		if delay != expected {
			t.Errorf("attempt %d: delay = %v, want %v", i+1, delay, expected)
		}
		if m.State() != StateReconnecting {
			t.Errorf("attempt %d: state = %s", i+1, m.State())
		}
	}

	delay, ok := m.Dropped()
	if ok {
		t.Fatalf("expected exhaustion after max attempts, got delay %v", delay)
	}
	if m.State() != StateError {
		t.Errorf("state after exhaustion = %s, want %s", m.State(), StateError)
	}
}

func TestConnectedResetsAttempts(t *testing.T) {
	m := NewReconnectionManager(time.Second, 3, nil)
	m.Connecting()
	m.Connected()

	if _, ok := m.Dropped(); !ok {
		t.Fatal("first drop exhausted")
	}
	if _, ok := m.Dropped(); !ok {
		t.Fatal("second drop exhausted")
	}

	m.Connected()
	if m.Attempt() != 0 {
		t.Fatalf("attempt after reconnect = %d", m.Attempt())
	}

	delay, ok := m.Dropped()
	if !ok || delay != time.Second {
		t.Fatalf("backoff after reset = %v, %v; want 1s, true", delay, ok)
	}
}

func TestInitialState(t *testing.T) {
	m := NewReconnectionManager(time.Second, 3, nil)
	if m.State() != StateDisconnected {
		t.Fatalf("initial state = %s", m.State())
	}
	m.Connecting()
	if m.State() != StateConnecting {
		t.Fatalf("state = %s", m.State())
	}
	m.Connected()
	if m.State() != StateConnected {
		t.Fatalf("state = %s", m.State())
	}
}

func TestResetAfterLeave(t *testing.T) {
	m := NewReconnectionManager(time.Second, 3, nil)
	m.Connecting()
	m.Connected()
	m.Dropped()

	m.Reset()
	if m.State() != StateDisconnected {
		t.Fatalf("state after reset = %s", m.State())
	}
	if m.Attempt() != 0 {
		t.Fatalf("attempt after reset = %d", m.Attempt())
	}
}

func TestStateChangeCallback(t *testing.T) {
	var seen []State
	m := NewReconnectionManager(time.Second, 1, func(s State) { seen = append(seen, s) })

	m.Connecting()
	m.Connected()
	m.Dropped() // reconnecting
	m.Dropped() // error

	want := []State{StateConnecting, StateConnected, StateReconnecting, StateError}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition %d = %s, want %s", i, seen[i], want[i])
		}
	}
}
