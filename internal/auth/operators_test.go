package auth_test

import (
	"errors"
	"testing"

	"github.com/jmerrifield20/custodyledger/internal/auth"
)

func TestOperators_Authenticate(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	ops := auth.Operators{"alice": hash}

	if err := ops.Authenticate("alice", "hunter2"); err != nil {
		t.Errorf("valid credentials rejected: %v", err)
	}

	cases := []struct{ name, user, pass string }{
		{"wrong password", "alice", "hunter3"},
		{"unknown operator", "bob", "hunter2"},
		{"empty name", "", "hunter2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ops.Authenticate(tc.user, tc.pass); !errors.Is(err, auth.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestHashPassword_empty(t *testing.T) {
	if _, err := auth.HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}
