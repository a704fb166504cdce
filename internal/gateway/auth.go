package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/syncboard/syncboard/internal/identity"
	"github.com/syncboard/syncboard/internal/tracker"
)

type contextKey string

const userContextKey contextKey = "syncboard.user"

// requireSession resolves the bearer token and stores the user on the request
// context. Missing or invalid tokens are rejected before any handler runs.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, &tracker.Error{Kind: tracker.ErrAuthentication, Msg: "missing session token"})
			return
		}
		user, ok := s.auth.VerifySession(token)
		if !ok {
			respondError(w, &tracker.Error{Kind: tracker.ErrAuthentication, Msg: "invalid session token"})
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func userFrom(r *http.Request) *identity.User {
	u, _ := r.Context().Value(userContextKey).(*identity.User)
	return u
}

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResult struct {
	User         *identity.User `json:"user"`
	SessionToken string         `json:"session_token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, &tracker.Error{Kind: tracker.ErrValidation, Msg: "invalid request body"})
		return
	}

	user, sess, err := s.auth.Register(creds.Username, creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, identity.ErrUsernameTaken) {
			respondError(w, &tracker.Error{Kind: tracker.ErrConflict, Msg: err.Error()})
			return
		}
		respondError(w, &tracker.Error{Kind: tracker.ErrValidation, Msg: err.Error()})
		return
	}
	respondOK(w, http.StatusCreated, authResult{User: user, SessionToken: sess.Token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, &tracker.Error{Kind: tracker.ErrValidation, Msg: "invalid request body"})
		return
	}

	user, sess, err := s.auth.Login(creds.Username, creds.Password)
	if err != nil {
		respondError(w, &tracker.Error{Kind: tracker.ErrAuthentication, Msg: "invalid credentials"})
		return
	}
	respondOK(w, http.StatusOK, authResult{User: user, SessionToken: sess.Token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		s.auth.Logout(token)
	}
	respondOK(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
