package ws

import (
	"encoding/json"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	params, _ := json.Marshal(JoinParams{SessionToken: "tok-123"})
	f := Frame{
		Type:   FrameTypeRequest,
		ID:     "req-1",
		Method: MethodUserJoin,
		Params: params,
	}

	data, err := MarshalFrame(f)
	if err != nil {
		t.Fatalf("MarshalFrame: %v", err)
	}

	got, err := UnmarshalFrame(data)
	if err != nil {
		t.Fatalf("UnmarshalFrame: %v", err)
	}
	if got.Type != FrameTypeRequest || got.Method != MethodUserJoin || got.ID != "req-1" {
		t.Fatalf("frame mismatch: %+v", got)
	}

	var p JoinParams
	if err := json.Unmarshal(got.Params, &p); err != nil {
		t.Fatalf("params: %v", err)
	}
	if p.SessionToken != "tok-123" {
		t.Fatalf("token: %q", p.SessionToken)
	}
}

func TestNewEventFrame(t *testing.T) {
	f, err := NewEventFrame("task_created", map[string]any{"task": map[string]any{"id": "task_1"}})
	if err != nil {
		t.Fatalf("NewEventFrame: %v", err)
	}
	if f.Type != FrameTypeEvent || f.Event != "task_created" {
		t.Fatalf("frame: %+v", f)
	}
	if len(f.Payload) == 0 {
		t.Fatal("expected payload")
	}
}

func TestNewResponseFrame(t *testing.T) {
	ok, err := NewResponseFrame("req-1", true, map[string]string{"status": "left"}, "")
	if err != nil {
		t.Fatalf("NewResponseFrame: %v", err)
	}
	if ok.OK == nil || !*ok.OK {
		t.Fatal("expected ok response")
	}

	fail, err := NewResponseFrame("req-2", false, nil, "invalid session")
	if err != nil {
		t.Fatalf("NewResponseFrame: %v", err)
	}
	if fail.OK == nil || *fail.OK || fail.Error != "invalid session" {
		t.Fatalf("fail frame: %+v", fail)
	}
}
