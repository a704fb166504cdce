package identity

import (
	"errors"
	"testing"
	"time"
)

type memUsers struct {
	byID map[string]*User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]*User)}
}

func (m *memUsers) GetUser(id string) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func (m *memUsers) PutUser(u *User) error {
	m.byID[u.ID] = u
	return nil
}

func (m *memUsers) ListUsers() ([]*User, error) {
	out := make([]*User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

func TestRegisterAndVerify(t *testing.T) {
	svc := NewService(newMemUsers())

	u, sess, err := svc.Register("ada", "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Username != "ada" || u.ID == "" {
		t.Fatalf("user: %+v", u)
	}
	if sess.Token == "" || sess.UserID != u.ID {
		t.Fatalf("session: %+v", sess)
	}

	got, ok := svc.VerifySession(sess.Token)
	if !ok || got.ID != u.ID {
		t.Fatalf("VerifySession: %v, %v", got, ok)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := NewService(newMemUsers())

	if _, _, err := svc.Register("ada", "", "pw"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, _, err := svc.Register("ada", "", "other")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestRegisterRequiresFields(t *testing.T) {
	svc := NewService(newMemUsers())

	if _, _, err := svc.Register("", "", "pw"); err == nil {
		t.Fatal("empty username accepted")
	}
	if _, _, err := svc.Register("ada", "", ""); err == nil {
		t.Fatal("empty password accepted")
	}
	if _, _, err := svc.Register("  ", "", "pw"); err == nil {
		t.Fatal("whitespace username accepted")
	}
}

func TestLogin(t *testing.T) {
	svc := NewService(newMemUsers())
	svc.Register("ada", "", "secret")

	u, sess, err := svc.Login("ada", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.Username != "ada" || sess.Token == "" {
		t.Fatalf("login result: %+v, %+v", u, sess)
	}

	if _, _, err := svc.Login("ada", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, _, err := svc.Login("nobody", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc := NewService(newMemUsers())
	_, sess, _ := svc.Register("ada", "", "secret")

	svc.Logout(sess.Token)
	if _, ok := svc.VerifySession(sess.Token); ok {
		t.Fatal("session survived logout")
	}

	// Unknown tokens are a no-op.
	svc.Logout("bogus")
}

func TestSweepExpired(t *testing.T) {
	svc := NewService(newMemUsers())

	now := time.Unix(1000, 0)
	svc.now = func() time.Time { return now }

	_, old, _ := svc.Register("ada", "", "pw")

	now = now.Add(2 * time.Hour)
	_, fresh, _ := svc.Login("ada", "pw")

	removed := svc.SweepExpired(time.Hour)
	if removed != 1 {
		t.Fatalf("removed = %d", removed)
	}
	if _, ok := svc.VerifySession(old.Token); ok {
		t.Fatal("expired session still valid")
	}
	if _, ok := svc.VerifySession(fresh.Token); !ok {
		t.Fatal("fresh session swept")
	}
}

func TestSweepDisabled(t *testing.T) {
	svc := NewService(newMemUsers())

	now := time.Unix(1000, 0)
	svc.now = func() time.Time { return now }
	_, sess, _ := svc.Register("ada", "", "pw")

	now = now.Add(24 * time.Hour)
	if removed := svc.SweepExpired(0); removed != 0 {
		t.Fatalf("removed = %d with ttl 0", removed)
	}
	if _, ok := svc.VerifySession(sess.Token); !ok {
		t.Fatal("session swept with expiry disabled")
	}
}
