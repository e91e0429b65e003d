// Package identity is the identity gateway: account creation, credential
// verification, and token session lifecycle, with account-changed events
// published on every state transition.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/examhall/examhall/internal/docstore"
	"github.com/examhall/examhall/internal/events"
	"github.com/examhall/examhall/internal/model"
)

const (
	usersCollection       = "users"
	credentialsCollection = "credentials"
	sessionsCollection    = "authSessions"

	sessionTTL = 24 * time.Hour
)

var (
	// ErrEmailTaken is returned by SignUp for an already-registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrBadCredentials is returned by SignIn for an unknown email or a
	// wrong password; callers must not distinguish the two.
	ErrBadCredentials = errors.New("invalid email or password")
	// ErrProfileMissing means an account authenticated but has no profile
	// document. This is a profile-integrity failure: the caller must end
	// the session and return the user to the entry page.
	ErrProfileMissing = errors.New("user profile missing")
)

type Gateway struct {
	store *docstore.Store
	bus   *events.Bus
}

func New(store *docstore.Store, bus *events.Bus) *Gateway {
	return &Gateway{store: store, bus: bus}
}

// SignUp creates the account credentials and the one profile document.
// New accounts always start as unapproved regular users.
func (g *Gateway) SignUp(email, password, username string) (string, error) {
	email = normalizeEmail(email)

	var existing model.Credentials
	err := g.store.Get(credentialsCollection, email, &existing)
	if err == nil {
		return "", ErrEmailTaken
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return "", fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	accountID := uuid.NewString()
	if err := g.store.Put(credentialsCollection, email, model.Credentials{
		AccountID:    accountID,
		PasswordHash: string(hash),
	}); err != nil {
		return "", fmt.Errorf("store credentials: %w", err)
	}

	if err := g.store.Put(usersCollection, accountID, model.UserProfile{
		AccountID:  accountID,
		Username:   username,
		Email:      email,
		Role:       model.RoleUser,
		IsApproved: false,
		CreatedAt:  time.Now(),
	}); err != nil {
		return "", fmt.Errorf("store profile: %w", err)
	}

	slog.Info("account created", "account_id", accountID, "username", username)
	g.publish(events.AccountSignedUp, accountID)
	return accountID, nil
}

// SignIn verifies credentials and mints a session token.
func (g *Gateway) SignIn(email, password string) (string, error) {
	email = normalizeEmail(email)

	var creds model.Credentials
	if err := g.store.Get(credentialsCollection, email, &creds); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return "", ErrBadCredentials
		}
		return "", fmt.Errorf("load credentials: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return "", ErrBadCredentials
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	now := time.Now()
	if err := g.store.Put(sessionsCollection, token, model.AuthSession{
		AccountID: creds.AccountID,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	g.publish(events.AccountSignedIn, creds.AccountID)
	return token, nil
}

// SignOut ends the session for the given token, if any.
func (g *Gateway) SignOut(token string) error {
	var sess model.AuthSession
	err := g.store.Get(sessionsCollection, token, &sess)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := g.store.Delete(sessionsCollection, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	g.publish(events.AccountSignedOut, sess.AccountID)
	return nil
}

// Resolve maps a session token to the account's profile. A missing or
// expired session yields (nil, nil); a live session without a profile
// document yields ErrProfileMissing.
func (g *Gateway) Resolve(token string) (*model.UserProfile, error) {
	var sess model.AuthSession
	err := g.store.Get(sessionsCollection, token, &sess)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = g.store.Delete(sessionsCollection, token)
		g.publish(events.AccountSignedOut, sess.AccountID)
		return nil, nil
	}

	profile, err := g.Profile(sess.AccountID)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Profile returns the profile document for an account id.
func (g *Gateway) Profile(accountID string) (*model.UserProfile, error) {
	var p model.UserProfile
	if err := g.store.Get(usersCollection, accountID, &p); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrProfileMissing
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

// ListProfiles scans the whole users collection.
func (g *Gateway) ListProfiles() ([]model.UserProfile, error) {
	docs, err := g.store.List(usersCollection)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	profiles := make([]model.UserProfile, 0, len(docs))
	for _, d := range docs {
		var p model.UserProfile
		if err := unmarshalDoc(d, &p); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// SetApproval flips the approval flag with a field-level update, leaving
// the rest of the profile document untouched.
func (g *Gateway) SetApproval(accountID string, approved bool) error {
	if err := g.store.UpdateField(usersCollection, accountID, "isApproved", approved); err != nil {
		return fmt.Errorf("update approval: %w", err)
	}
	g.publish(events.AccountApprovalChange, accountID)
	return nil
}

// AccountCount returns the number of registered accounts.
func (g *Gateway) AccountCount() (int, error) {
	return g.store.Count(usersCollection)
}

// SeedAdmin creates an approved admin account. Used once at first startup.
func (g *Gateway) SeedAdmin(email, password, username string) (string, error) {
	accountID, err := g.SignUp(email, password, username)
	if err != nil {
		return "", err
	}
	if err := g.store.UpdateField(usersCollection, accountID, "role", model.RoleAdmin); err != nil {
		return "", fmt.Errorf("set admin role: %w", err)
	}
	if err := g.store.UpdateField(usersCollection, accountID, "isApproved", true); err != nil {
		return "", fmt.Errorf("approve admin: %w", err)
	}
	return accountID, nil
}

func (g *Gateway) publish(typ events.AccountEventType, accountID string) {
	if g.bus == nil {
		return
	}
	if err := g.bus.PublishAccountChanged(events.AccountEvent{Type: typ, AccountID: accountID}); err != nil {
		slog.Warn("publish account event failed", "type", typ, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func unmarshalDoc(d docstore.Doc, dest any) error {
	if err := json.Unmarshal(d.Body, dest); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}
