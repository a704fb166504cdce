package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/syncboard/syncboard/internal/tracker"
)

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in tracker.CreateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, &tracker.Error{Kind: tracker.ErrValidation, Msg: "invalid request body"})
		return
	}

	t, err := s.tracker.CreateTask(in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusCreated, t)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.tracker.ListTasks()
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, list)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	detail, err := s.tracker.GetTaskDetail(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, detail)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch tracker.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, &tracker.Error{Kind: tracker.ErrValidation, Msg: "invalid request body"})
		return
	}

	t, err := s.tracker.UpdateTask(chi.URLParam(r, "id"), patch)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	version := parseVersion(r)

	if err := s.tracker.DeleteTask(id, version); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	version := parseVersion(r)

	t, err := s.tracker.MarkComplete(id, version)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, t)
}

func (s *Server) handleMyTasks(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	list, err := s.tracker.TasksForUser(user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, list)
}

func (s *Server) handleBlockedTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.tracker.Blocked()
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, list)
}

// parseVersion reads the optional ?version= staleness guard.
func parseVersion(r *http.Request) int64 {
	raw := r.URL.Query().Get("version")
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
