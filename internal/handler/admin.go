package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/examhall/examhall/internal/handler/views"
	appI18n "github.com/examhall/examhall/internal/i18n"
	"github.com/examhall/examhall/internal/ingest"
	"github.com/examhall/examhall/internal/model"
	"github.com/examhall/examhall/internal/paper"
)

// adminView gathers both console panels. Each panel fails independently:
// a broken list shows its inline error while the other panel stays live.
func (h *Handler) adminView(r *http.Request) views.AdminView {
	v := views.AdminView{DraftEnabled: h.config.DraftEnabled}

	profiles, err := h.gateway.ListProfiles()
	if err != nil {
		slog.Error("failed to list profiles", "error", err)
		v.UserErr = appI18n.T(r.Context(), "UserListError")
	} else {
		for _, p := range profiles {
			if p.Role != model.RoleAdmin {
				v.Users = append(v.Users, p)
			}
		}
	}

	papers, err := h.papers.List()
	if err != nil {
		slog.Error("failed to list papers", "error", err)
		v.PaperErr = appI18n.T(r.Context(), "PaperListError")
	} else {
		v.Papers = papers
	}

	return v
}

func (h *Handler) renderAdmin(w http.ResponseWriter, r *http.Request, v views.AdminView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.AdminPage(v).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	v := h.adminView(r)
	if id := h.takeFlash(w, r); id != "" {
		v.Notice = appI18n.T(r.Context(), id)
	}
	h.renderAdmin(w, r, v)
}

func (h *Handler) handleSetApproval(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	approved, err := strconv.ParseBool(r.FormValue("approved"))
	if err != nil {
		http.Error(w, "invalid approval value", http.StatusBadRequest)
		return
	}

	if err := h.gateway.SetApproval(accountID, approved); err != nil {
		slog.Error("failed to set approval", "account_id", accountID, "error", err)
		v := h.adminView(r)
		v.UserErr = appI18n.T(r.Context(), "ApproveError")
		h.renderAdmin(w, r, v)
		return
	}

	slog.Info("approval changed", "account_id", accountID, "approved", approved)
	http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
}

func (h *Handler) handleCreatePaper(w http.ResponseWriter, r *http.Request) {
	raw := r.FormValue("paper_json")

	pi, err := ingest.Parse(raw)
	if err != nil {
		// Show the exact validation failure and keep the admin's input.
		v := h.adminView(r)
		v.IngestErr = err.Error()
		v.PaperJSON = raw
		h.renderAdmin(w, r, v)
		return
	}

	id, err := h.papers.Create(pi.Title, ingest.Questions(pi))
	if err != nil {
		slog.Error("failed to store paper", "title", pi.Title, "error", err)
		v := h.adminView(r)
		v.IngestErr = err.Error()
		v.PaperJSON = raw
		h.renderAdmin(w, r, v)
		return
	}

	slog.Info("paper ingested", "id", id, "title", pi.Title, "questions", len(pi.Questions))
	h.setFlash(w, "PaperAdded")
	http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
}

func (h *Handler) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")

	p, err := h.papers.Get(paperID)
	if errors.Is(err, paper.ErrNotFound) {
		http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
		return
	}
	if err != nil {
		slog.Error("failed to load paper", "id", paperID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	v := h.adminView(r)
	v.ConfirmDelete = &model.CatalogEntry{
		ID:            paperID,
		SubjectName:   p.SubjectName,
		QuestionCount: len(p.Questions),
	}
	h.renderAdmin(w, r, v)
}

func (h *Handler) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")

	if err := h.papers.Delete(paperID); err != nil {
		slog.Error("failed to delete paper", "id", paperID, "error", err)
		v := h.adminView(r)
		v.PaperErr = err.Error()
		h.renderAdmin(w, r, v)
		return
	}

	slog.Info("paper deleted", "id", paperID)
	h.setFlash(w, "PaperDeleted")
	http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
}

func (h *Handler) handleDraftPaper(w http.ResponseWriter, r *http.Request) {
	if h.llm == nil || !h.config.DraftEnabled {
		http.Error(w, "drafting is not configured", http.StatusNotFound)
		return
	}

	subject := r.FormValue("subject")
	count, err := strconv.Atoi(r.FormValue("count"))
	if err != nil || count < 1 {
		count = 10
	}
	if subject == "" {
		v := h.adminView(r)
		v.IngestErr = appI18n.T(r.Context(), "DraftError")
		h.renderAdmin(w, r, v)
		return
	}

	draft, err := h.llm.DraftPaper(r.Context(), subject, count)
	if err != nil {
		slog.Error("draft generation failed", "subject", subject, "error", err)
		v := h.adminView(r)
		v.IngestErr = appI18n.T(r.Context(), "DraftError")
		h.renderAdmin(w, r, v)
		return
	}

	// The draft lands in the textarea for review; saving it goes through
	// the normal ingest validation.
	v := h.adminView(r)
	v.PaperJSON = draft
	h.renderAdmin(w, r, v)
}
