package model

import (
	"context"
	"time"
)

// Role represents a user's access level.
type Role string

const (
	// RoleUser is a regular exam-taking user.
	RoleUser Role = "user"
	// RoleAdmin is an administrator.
	RoleAdmin Role = "admin"
)

// UserProfile is the per-account record holding role and approval state.
// Exactly one profile exists per account; after sign-up only Role and
// IsApproved are ever mutated, and only by an admin.
type UserProfile struct {
	AccountID  string    `json:"accountId"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	IsApproved bool      `json:"isApproved"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Credentials links a sign-in email to an account. Kept separate from the
// profile so the profile document never carries the password hash.
type Credentials struct {
	AccountID    string `json:"accountId"`
	PasswordHash string `json:"passwordHash"`
}

// AuthSession is a server-side login session referenced by a cookie token.
type AuthSession struct {
	AccountID string    `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Question is a single multiple-choice question.
// Answer indexes Options; ingestion validates 0 <= Answer < len(Options).
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// QuestionPaper is a named, ordered set of questions, the unit of an exam.
// Its document id is a slug of SubjectName computed at creation time.
type QuestionPaper struct {
	SubjectName string     `json:"subjectName"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CatalogEntry is the listing shape of a paper on the dashboard.
type CatalogEntry struct {
	ID            string `json:"id"`
	SubjectName   string `json:"subjectName"`
	QuestionCount int    `json:"questionCount"`
}

// SkippedAnswer is the sentinel shown when a question was never answered.
const SkippedAnswer = "Skipped"

// QuestionResult is the graded outcome of one question.
type QuestionResult struct {
	Question       string `json:"question"`
	SelectedAnswer string `json:"selectedAnswer"`
	CorrectAnswer  string `json:"correctAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	Explanation    string `json:"explanation,omitempty"`
}

// ResultSet is the graded, ordered outcome of one completed session.
// Outcome order always equals question order.
type ResultSet struct {
	SubjectName string           `json:"subjectName"`
	Results     []QuestionResult `json:"results"`
	Score       int              `json:"score"`
	Total       int              `json:"total"`
}

// PaperImport is the bulk-ingestion format accepted by the admin console.
type PaperImport struct {
	Title     string           `json:"title" validate:"required"`
	Questions []QuestionImport `json:"questions" validate:"required,min=1,dive"`
}

// QuestionImport is one question in the bulk-ingestion format. Answer is a
// pointer so a missing field is distinguishable from a legitimate index 0.
type QuestionImport struct {
	Question    string   `json:"question" validate:"required"`
	Options     []string `json:"options" validate:"required,min=1,dive,required"`
	Answer      *int     `json:"answer" validate:"required"`
	Explanation string   `json:"explanation,omitempty"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	BasePath         string // URL prefix for sub-path deployments (e.g. "/exams")
	SecureCookies    bool   // Set Secure flag on cookies (disable for local dev)
	PendingNoticeURL string // optional page embedded below the pending-approval notice
	DraftEnabled     bool   // admin AI draft action available
}

type profileCtxKey struct{}

// ContextWithProfile stores the authenticated profile in the request context.
func ContextWithProfile(ctx context.Context, p *UserProfile) context.Context {
	return context.WithValue(ctx, profileCtxKey{}, p)
}

// ProfileFromContext retrieves the authenticated profile from context, or nil.
func ProfileFromContext(ctx context.Context) *UserProfile {
	p, _ := ctx.Value(profileCtxKey{}).(*UserProfile)
	return p
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

type flashCtxKey struct{}

// ContextWithFlash stores a one-shot notice message in context.
func ContextWithFlash(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, flashCtxKey{}, msg)
}

// FlashFromContext retrieves the one-shot notice message, or empty string.
func FlashFromContext(ctx context.Context) string {
	m, _ := ctx.Value(flashCtxKey{}).(string)
	return m
}
