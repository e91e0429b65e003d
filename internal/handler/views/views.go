// Package views renders the portal's HTML with templ templates.
package views

//go:generate templ generate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/examhall/examhall/internal/model"
)

// AdminView gathers everything the admin console renders in one pass.
// Panel errors are independent: one panel failing leaves the other live.
type AdminView struct {
	Users  []model.UserProfile
	Papers []model.CatalogEntry

	UserErr   string
	PaperErr  string
	IngestErr string
	Notice    string

	// PaperJSON preserves the ingest textarea across a failed save or
	// fills it with a generated draft.
	PaperJSON string

	// ConfirmDelete, when set, renders the delete confirmation for this
	// paper in place of the paper list actions.
	ConfirmDelete *model.CatalogEntry

	DraftEnabled bool
}

func path(ctx context.Context, p string) string {
	return model.BasePathFromContext(ctx) + p
}

func csrfToken(ctx context.Context) string {
	return model.CSRFTokenFromContext(ctx)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// answerVals is the hx-vals payload for saving one selection.
func answerVals(questionIdx, optionIdx int) string {
	return fmt.Sprintf(`{"question": %d, "option": %d}`, questionIdx, optionIdx)
}

func hasAnswer(answers map[int]int, questionIdx, optionIdx int) bool {
	v, ok := answers[questionIdx]
	return ok && v == optionIdx
}
