// Package handler serves the portal: entry pages, the approval-gated
// dashboard, the exam and result pages, and the admin console.
package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/examhall/examhall/internal/access"
	"github.com/examhall/examhall/internal/exam"
	"github.com/examhall/examhall/internal/handler/views"
	"github.com/examhall/examhall/internal/handoff"
	appI18n "github.com/examhall/examhall/internal/i18n"
	"github.com/examhall/examhall/internal/identity"
	"github.com/examhall/examhall/internal/llm"
	"github.com/examhall/examhall/internal/model"
	"github.com/examhall/examhall/internal/paper"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	gateway *identity.Gateway
	papers  *paper.Repository
	exams   *exam.Manager
	channel handoff.Channel
	llm     *llm.Client
	config  model.AppConfig
}

// New creates a new Handler. llmClient may be nil; the draft action is
// then absent from the admin console.
func New(g *identity.Gateway, p *paper.Repository, m *exam.Manager, ch handoff.Channel, llmClient *llm.Client, cfg model.AppConfig) *Handler {
	if llmClient == nil {
		cfg.DraftEnabled = false
	}
	return &Handler{gateway: g, papers: p, exams: m, channel: ch, llm: llmClient, config: cfg}
}

// path prefixes a route with the configured base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

// BasePathMiddleware makes the deployment prefix available to templates.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.csrfMiddleware)

	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Get("/signup", h.handleSignupPage)
	r.Post("/signup", h.handleSignup)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.With(h.gate(access.PageDashboard)).Get("/", h.handleDashboard)

		r.Group(func(r chi.Router) {
			r.Use(h.gate(access.PageExam))
			r.Post("/exam/start", h.handleStartExam)
			r.Get("/exam", h.handleExamPage)
			r.Post("/exam/answer", h.handleAnswer)
			r.Post("/exam/submit", h.handleSubmit)
		})

		r.With(h.gate(access.PageResult)).Get("/result", h.handleResult)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.gate(access.PageAdmin))
			r.Get("/", h.handleAdminPage)
			r.Post("/users/{accountID}/approval", h.handleSetApproval)
			r.Post("/papers", h.handleCreatePaper)
			r.Get("/papers/{paperID}/confirm-delete", h.handleConfirmDelete)
			r.Post("/papers/{paperID}/delete", h.handleDeletePaper)
			r.Post("/papers/draft", h.handleDraftPaper)
		})
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	profile := model.ProfileFromContext(r.Context())

	if access.Resolve(profile) == access.SurfacePending {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := views.PendingPage(profile, h.config.PendingNoticeURL).Render(r.Context(), w); err != nil {
			slog.Error("render error", "error", err)
		}
		return
	}

	entries, err := h.papers.List()
	if err != nil {
		slog.Error("failed to list papers", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	flash := ""
	if id := h.takeFlash(w, r); id != "" {
		flash = appI18n.T(r.Context(), id)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.DashboardPage(profile, entries, flash).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleStartExam(w http.ResponseWriter, r *http.Request) {
	profile := model.ProfileFromContext(r.Context())
	token := tokenFromContext(r.Context())
	subjectID := r.FormValue("subject")

	p, err := h.papers.Get(subjectID)
	if errors.Is(err, paper.ErrNotFound) {
		// The paper was deleted between listing and starting.
		h.setFlash(w, "ExamNotFound")
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	if err != nil {
		slog.Error("failed to load paper", "id", subjectID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sel := handoff.Selection{SubjectID: subjectID, SubjectName: p.SubjectName}
	if err := handoff.PutSelection(r.Context(), h.channel, profile.AccountID, sel); err != nil {
		slog.Error("failed to store selection", "error", err)
	}

	h.exams.Start(token, profile.AccountID, subjectID, p)
	slog.Info("exam started", "account_id", profile.AccountID, "subject", subjectID)
	http.Redirect(w, r, h.path("/exam"), http.StatusSeeOther)
}

func (h *Handler) handleExamPage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.liveSession(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.ExamPage(s.SubjectName, s.Questions, s.Answers()).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// liveSession returns the token's session, restarting it from the stored
// selection after a page reload. A missing selection bounces to the
// dashboard; false means a response was already written.
func (h *Handler) liveSession(w http.ResponseWriter, r *http.Request) (*exam.Session, bool) {
	profile := model.ProfileFromContext(r.Context())
	token := tokenFromContext(r.Context())

	if s := h.exams.Get(token); s != nil {
		return s, true
	}

	sel, err := handoff.GetSelection(r.Context(), h.channel, profile.AccountID)
	if errors.Is(err, handoff.ErrNotFound) {
		h.setFlash(w, "NoActiveExam")
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return nil, false
	}
	if err != nil {
		slog.Error("failed to read selection", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}

	p, err := h.papers.Get(sel.SubjectID)
	if errors.Is(err, paper.ErrNotFound) {
		h.setFlash(w, "ExamNotFound")
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return nil, false
	}
	if err != nil {
		slog.Error("failed to load paper", "id", sel.SubjectID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}

	return h.exams.Start(token, profile.AccountID, sel.SubjectID, p), true
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	token := tokenFromContext(r.Context())
	s := h.exams.Get(token)
	if s == nil {
		h.setFlash(w, "NoActiveExam")
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}

	questionIdx, err1 := strconv.Atoi(r.FormValue("question"))
	optionIdx, err2 := strconv.Atoi(r.FormValue("option"))
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid selection", http.StatusBadRequest)
		return
	}

	if err := s.Select(questionIdx, optionIdx); err != nil {
		if errors.Is(err, exam.ErrAlreadySubmitted) {
			http.Redirect(w, r, h.path("/result"), http.StatusSeeOther)
			return
		}
		http.Error(w, "invalid selection", http.StatusBadRequest)
		return
	}

	// Incremental saves come from the exam form; nothing to render.
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	profile := model.ProfileFromContext(r.Context())
	token := tokenFromContext(r.Context())

	s := h.exams.Get(token)
	if s == nil {
		h.setFlash(w, "NoActiveExam")
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}

	// The submitted form is authoritative for the final selections.
	for i := range s.Questions {
		v := r.FormValue(fmt.Sprintf("q%d", i))
		if v == "" {
			continue
		}
		opt, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		if err := s.Select(i, opt); err != nil {
			slog.Warn("ignoring invalid selection", "question", i, "error", err)
		}
	}

	rs, err := s.Submit()
	if errors.Is(err, exam.ErrAlreadySubmitted) {
		http.Redirect(w, r, h.path("/result"), http.StatusSeeOther)
		return
	}
	if err != nil {
		slog.Error("submit failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := handoff.PutResult(r.Context(), h.channel, profile.AccountID, rs); err != nil {
		slog.Error("failed to store result", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := handoff.ClearSelection(r.Context(), h.channel, profile.AccountID); err != nil {
		slog.Error("failed to clear selection", "error", err)
	}
	h.exams.Drop(token)

	slog.Info("exam submitted",
		"account_id", profile.AccountID,
		"subject", s.SubjectID,
		"score", rs.Score,
		"total", rs.Total)
	http.Redirect(w, r, h.path("/result"), http.StatusSeeOther)
}

func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request) {
	profile := model.ProfileFromContext(r.Context())

	rs, err := handoff.TakeResult(r.Context(), h.channel, profile.AccountID)
	if errors.Is(err, handoff.ErrNotFound) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if renderErr := views.NoResultPage().Render(r.Context(), w); renderErr != nil {
			slog.Error("render error", "error", renderErr)
		}
		return
	}
	if err != nil {
		slog.Error("failed to read result", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.ResultPage(rs).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
