package identity

import (
	"errors"
	"testing"

	"github.com/examhall/examhall/internal/docstore"
	"github.com/examhall/examhall/internal/model"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	s, err := docstore.New(":memory:")
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, nil)
}

func TestSignUpCreatesUnapprovedProfile(t *testing.T) {
	g := newTestGateway(t)

	accountID, err := g.SignUp("Alice@Example.com", "s3cret", "alice")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	p, err := g.Profile(accountID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Role != model.RoleUser {
		t.Errorf("expected role user, got %q", p.Role)
	}
	if p.IsApproved {
		t.Error("new accounts must start unapproved")
	}
	if p.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", p.Email)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected createdAt to be set")
	}

	// Same email again, regardless of case.
	if _, err := g.SignUp("alice@example.COM", "other", "alice2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignInAndResolve(t *testing.T) {
	g := newTestGateway(t)

	accountID, err := g.SignUp("bob@example.com", "hunter2", "bob")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	// Wrong password and unknown email look identical.
	if _, err := g.SignIn("bob@example.com", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password: expected ErrBadCredentials, got %v", err)
	}
	if _, err := g.SignIn("nobody@example.com", "hunter2"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown email: expected ErrBadCredentials, got %v", err)
	}

	token, err := g.SignIn("bob@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	p, err := g.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p == nil || p.AccountID != accountID {
		t.Fatalf("expected profile for %s, got %+v", accountID, p)
	}

	// After sign-out the token is dead.
	if err := g.SignOut(token); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	p, err = g.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve after signout: %v", err)
	}
	if p != nil {
		t.Error("expected nil profile after sign-out")
	}

	// Unknown token resolves to nothing, not an error.
	p, err = g.Resolve("bogus")
	if err != nil || p != nil {
		t.Errorf("unknown token: got %v, %v", p, err)
	}
}

func TestResolveMissingProfileIsFatal(t *testing.T) {
	s, err := docstore.New(":memory:")
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	g := New(s, nil)

	accountID, err := g.SignUp("carol@example.com", "pw", "carol")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	token, err := g.SignIn("carol@example.com", "pw")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	// Simulate a lost profile document.
	if err := s.Delete("users", accountID); err != nil {
		t.Fatalf("delete profile: %v", err)
	}

	if _, err := g.Resolve(token); !errors.Is(err, ErrProfileMissing) {
		t.Errorf("expected ErrProfileMissing, got %v", err)
	}
}

func TestSetApproval(t *testing.T) {
	g := newTestGateway(t)

	accountID, err := g.SignUp("dave@example.com", "pw", "dave")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if err := g.SetApproval(accountID, true); err != nil {
		t.Fatalf("SetApproval: %v", err)
	}
	p, err := g.Profile(accountID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if !p.IsApproved {
		t.Error("expected approved profile")
	}
	// Username survives the field-level update.
	if p.Username != "dave" {
		t.Errorf("approval toggle clobbered profile: %+v", p)
	}

	if err := g.SetApproval(accountID, false); err != nil {
		t.Fatalf("SetApproval revoke: %v", err)
	}
	p, _ = g.Profile(accountID)
	if p.IsApproved {
		t.Error("expected approval revoked")
	}

	if err := g.SetApproval("missing", true); err == nil {
		t.Error("expected error for unknown account")
	}
}

func TestSeedAdmin(t *testing.T) {
	g := newTestGateway(t)

	accountID, err := g.SeedAdmin("admin@example.com", "pw", "admin")
	if err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	p, err := g.Profile(accountID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Role != model.RoleAdmin {
		t.Errorf("expected admin role, got %q", p.Role)
	}
	if !p.IsApproved {
		t.Error("expected seeded admin to be approved")
	}

	count, err := g.AccountCount()
	if err != nil {
		t.Fatalf("AccountCount: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 account, got %d", count)
	}
}
