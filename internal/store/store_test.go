package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/syncboard/syncboard/internal/identity"
	"github.com/syncboard/syncboard/internal/task"
)

// The same contract applies to every backend: swapping the store must not
// change tracker behavior.
func runStoreContract(t *testing.T, st Store) {
	t.Helper()

	now := time.Now().Truncate(time.Millisecond)

	// Tasks
	a := &task.Task{
		ID:           "task_a",
		Title:        "first",
		Priority:     task.PriorityMedium,
		Status:       task.StatusToDo,
		Dependencies: []string{"task_x"},
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
	if err := st.PutTask(a); err != nil {
		t.Fatalf("PutTask: %v", err)
	}

	got, err := st.GetTask("task_a")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Title != "first" || len(got.Dependencies) != 1 {
		t.Fatalf("task round trip: %+v", got)
	}

	// Mutating the returned value must not leak into the store.
	got.Title = "mutated"
	got.Dependencies[0] = "task_y"
	fresh, _ := st.GetTask("task_a")
	if fresh.Title != "first" || fresh.Dependencies[0] != "task_x" {
		t.Fatal("store copy aliased by caller mutation")
	}

	// Overwrite (put is an upsert)
	a.Version = 2
	a.Title = "second"
	if err := st.PutTask(a); err != nil {
		t.Fatalf("PutTask overwrite: %v", err)
	}
	fresh, _ = st.GetTask("task_a")
	if fresh.Version != 2 || fresh.Title != "second" {
		t.Fatalf("overwrite not applied: %+v", fresh)
	}

	b := &task.Task{ID: "task_b", Title: "later", CreatedAt: now.Add(time.Second), UpdatedAt: now.Add(time.Second)}
	if err := st.PutTask(b); err != nil {
		t.Fatalf("PutTask: %v", err)
	}

	list, err := st.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(list) != 2 || list[0].ID != "task_a" || list[1].ID != "task_b" {
		t.Fatalf("ListTasks order: %v", []string{list[0].ID, list[1].ID})
	}

	if err := st.DeleteTask("task_b"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := st.DeleteTask("task_b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: got %v, want ErrNotFound", err)
	}
	if _, err := st.GetTask("task_b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted: got %v, want ErrNotFound", err)
	}

	// Users
	u := &identity.User{ID: "user_a", Username: "ada", Email: "ada@example.com", CreatedAt: now}
	if err := st.PutUser(u); err != nil {
		t.Fatalf("PutUser: %v", err)
	}
	gotU, err := st.GetUser("user_a")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if gotU.Username != "ada" {
		t.Fatalf("user round trip: %+v", gotU)
	}
	users, err := st.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("ListUsers: got %d, want 1", len(users))
	}
	if _, err := st.GetUser("user_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: got %v, want ErrNotFound", err)
	}
	if err := st.DeleteUser("user_a"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	st := NewMemoryStore()
	defer st.Close()
	runStoreContract(t, st)
}

func TestSQLiteStoreContract(t *testing.T) {
	st, err := OpenSQLite(filepath.Join(t.TempDir(), "syncboard.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer st.Close()
	runStoreContract(t, st)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncboard.db")

	st, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	now := time.Now()
	if err := st.PutTask(&task.Task{ID: "task_p", Title: "persists", CreatedAt: now, UpdatedAt: now, Version: 1}); err != nil {
		t.Fatalf("PutTask: %v", err)
	}
	st.Close()

	st2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	got, err := st2.GetTask("task_p")
	if err != nil {
		t.Fatalf("GetTask after reopen: %v", err)
	}
	if got.Title != "persists" {
		t.Fatalf("Title: got %q", got.Title)
	}
}
