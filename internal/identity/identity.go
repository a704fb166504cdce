// Package identity provides user accounts and session verification.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account that can own sessions and be assigned tasks.
// Immutable after creation; profile editing is out of scope.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session maps an opaque token to a user.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Verifier resolves a session token to its user.
// This is the only identity capability the tracker and hub depend on.
type Verifier interface {
	VerifySession(token string) (*User, bool)
}

// GenerateUserID creates a unique user identifier.
func GenerateUserID() string {
	u := uuid.New().String()
	return "user_" + strings.ReplaceAll(u[:13], "-", "")
}

// GenerateToken creates an opaque session token.
func GenerateToken() string {
	return uuid.New().String()
}
