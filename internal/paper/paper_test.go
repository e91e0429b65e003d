package paper

import (
	"errors"
	"testing"

	"github.com/examhall/examhall/internal/docstore"
	"github.com/examhall/examhall/internal/model"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	s, err := docstore.New(":memory:")
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewRepository(s)
}

func sampleQuestions() []model.Question {
	return []model.Question{
		{Question: "2+2?", Options: []string{"3", "4", "5"}, Answer: 1},
		{Question: "Capital of France?", Options: []string{"Paris", "Lyon"}, Answer: 0, Explanation: "Paris is the capital."},
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Math Test", "math-test"},
		{"math test", "math-test"},
		{"  Physics   Final  ", "physics-final"},
		{"Chemistry", "chemistry"},
	}
	for _, tt := range tests {
		if got := Slug(tt.title); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestCreateGetList(t *testing.T) {
	r := newTestRepo(t)

	// Empty catalog is a valid state.
	entries, err := r.List()
	if err != nil {
		t.Fatalf("List empty: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty catalog, got %d", len(entries))
	}

	id, err := r.Create("Math Test", sampleQuestions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != "math-test" {
		t.Errorf("expected id 'math-test', got %q", id)
	}

	p, err := r.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.SubjectName != "Math Test" {
		t.Errorf("expected subject 'Math Test', got %q", p.SubjectName)
	}
	if len(p.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(p.Questions))
	}
	if p.Questions[0].Answer != 1 {
		t.Errorf("expected answer index 1, got %d", p.Questions[0].Answer)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected createdAt to be set")
	}

	entries, err = r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].SubjectName != "Math Test" || entries[0].QuestionCount != 2 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestCreateSameTitleOverwrites(t *testing.T) {
	r := newTestRepo(t)

	if _, err := r.Create("Math Test", sampleQuestions()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	smaller := sampleQuestions()[:1]
	id, err := r.Create("Math  Test", smaller)
	if err != nil {
		t.Fatalf("Create again: %v", err)
	}
	if id != "math-test" {
		t.Errorf("expected same id, got %q", id)
	}

	entries, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected overwrite, got %d entries", len(entries))
	}
	if entries[0].QuestionCount != 1 {
		t.Errorf("expected overwritten paper with 1 question, got %d", entries[0].QuestionCount)
	}
}

func TestCreateEmptyTitle(t *testing.T) {
	r := newTestRepo(t)
	if _, err := r.Create("   ", sampleQuestions()); err == nil {
		t.Error("expected error for whitespace-only title")
	}
}

func TestDeleteThenGet(t *testing.T) {
	r := newTestRepo(t)

	id, err := r.Create("Quiz", sampleQuestions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// The stale-id race: the paper vanished between list and open.
	if _, err := r.Get(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
