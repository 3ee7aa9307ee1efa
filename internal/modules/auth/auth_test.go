package auth

import (
	"errors"
	"testing"
	"time"

	jwtpkg "github.com/studylog/core/internal/pkg/jwt"
	"github.com/studylog/core/internal/testutil"
)

func TestRegisterAndLogin(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewService(db, time.Hour)

	u, err := svc.Register(&RegisterDTO{Username: "minji", Password: "secret123", Name: "김민지"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if u.ID == "" {
		t.Fatal("registered user has no id")
	}
	if u.Password == "secret123" {
		t.Fatal("password stored in plaintext")
	}

	token, logged, err := svc.Login("minji", "secret123")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if logged.ID != u.ID {
		t.Fatalf("logged in as %s, want %s", logged.ID, u.ID)
	}

	claims, err := jwtpkg.Parse(token)
	if err != nil {
		t.Fatalf("Parse token error: %v", err)
	}
	if claims.UserID != u.ID {
		t.Fatalf("token uid=%s, want %s", claims.UserID, u.ID)
	}
}

func TestRegisterDefaultsNameToUsername(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewService(db, time.Hour)

	u, err := svc.Register(&RegisterDTO{Username: "hoon", Password: "secret123"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if u.Name != "hoon" {
		t.Fatalf("name=%q, want username fallback", u.Name)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewService(db, time.Hour)

	if _, err := svc.Register(&RegisterDTO{Username: "minji", Password: "secret123"}); err != nil {
		t.Fatalf("first Register error: %v", err)
	}
	if _, err := svc.Register(&RegisterDTO{Username: "minji", Password: "other456"}); !errors.Is(err, errUsernameTaken) {
		t.Fatalf("err=%v, want errUsernameTaken", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewService(db, time.Hour)

	if _, _, err := svc.Login("ghost", "whatever"); !errors.Is(err, errBadCredentials) {
		t.Fatalf("unknown user: err=%v, want errBadCredentials", err)
	}

	if _, err := svc.Register(&RegisterDTO{Username: "minji", Password: "secret123"}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if _, _, err := svc.Login("minji", "wrongpass"); !errors.Is(err, errBadCredentials) {
		t.Fatalf("wrong password: err=%v, want errBadCredentials", err)
	}
}

func TestLoginUpdatesLastLoginTime(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewService(db, time.Hour)

	if _, err := svc.Register(&RegisterDTO{Username: "minji", Password: "secret123"}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	_, u, err := svc.Login("minji", "secret123")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	got, err := svc.Profile(u.ID)
	if err != nil {
		t.Fatalf("Profile error: %v", err)
	}
	if got.LastLoginTime == nil {
		t.Fatal("last_login_time not set after login")
	}
}
