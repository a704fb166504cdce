package task

import "testing"

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusToDo, StatusInProgress, StatusDone} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false", s)
		}
	}
	if ValidStatus("archived") {
		t.Error("unknown status accepted")
	}
}

func TestValidPriority(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if !ValidPriority(p) {
			t.Errorf("ValidPriority(%q) = false", p)
		}
	}
	if ValidPriority("urgent") {
		t.Error("unknown priority accepted")
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if len(id) < 10 || id[:5] != "task_" {
		t.Fatalf("unexpected id: %s", id)
	}
	if id == GenerateID() {
		t.Fatal("ids not unique")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &Task{ID: "t1", Dependencies: []string{"a", "b"}}
	cp := orig.Clone()
	cp.Dependencies[0] = "z"
	if orig.Dependencies[0] != "a" {
		t.Fatal("clone shares dependency slice")
	}

	var nilTask *Task
	if nilTask.Clone() != nil {
		t.Fatal("nil clone")
	}
}

func TestNormalizeDependencies(t *testing.T) {
	got := NormalizeDependencies([]string{"b", "a", "b", "a", "c"})
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	if NormalizeDependencies(nil) != nil {
		t.Fatal("nil input not preserved")
	}
}

func TestDependsOn(t *testing.T) {
	task := &Task{Dependencies: []string{"a", "b"}}
	if !task.DependsOn("a") || task.DependsOn("c") {
		t.Fatal("DependsOn")
	}
}
