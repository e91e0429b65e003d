package exam

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/examhall/examhall/internal/events"
	"github.com/examhall/examhall/internal/model"
)

func samplePaper() *model.QuestionPaper {
	return &model.QuestionPaper{
		SubjectName: "Quiz",
		Questions: []model.Question{
			{Question: "2+2?", Options: []string{"3", "4", "5"}, Answer: 1},
			{Question: "Sky color?", Options: []string{"blue", "green"}, Answer: 0, Explanation: "Rayleigh scattering."},
			{Question: "1+2?", Options: []string{"2", "3", "4"}, Answer: 1},
		},
	}
}

func TestSelectAndSubmit(t *testing.T) {
	s := NewSession("acc", "quiz", samplePaper())

	if err := s.Select(0, 1); err != nil {
		t.Fatalf("Select: %v", err)
	}
	// Changing a selection overwrites the prior one.
	if err := s.Select(1, 1); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := s.Select(1, 0); err != nil {
		t.Fatalf("Select overwrite: %v", err)
	}
	// Re-selecting the same option is a no-op.
	if err := s.Select(1, 0); err != nil {
		t.Fatalf("Select repeat: %v", err)
	}
	// Question 2 is left unanswered.

	rs, err := s.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if rs.Score != 2 || rs.Total != 3 {
		t.Errorf("expected score 2/3, got %d/%d", rs.Score, rs.Total)
	}
	if len(rs.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(rs.Results))
	}
	// Outcome order equals question order.
	if rs.Results[0].Question != "2+2?" || rs.Results[2].Question != "1+2?" {
		t.Error("results not in question order")
	}
	if !rs.Results[0].IsCorrect || rs.Results[0].SelectedAnswer != "4" {
		t.Errorf("unexpected first result: %+v", rs.Results[0])
	}
	if rs.Results[2].SelectedAnswer != model.SkippedAnswer || rs.Results[2].IsCorrect {
		t.Errorf("expected skipped third result, got %+v", rs.Results[2])
	}

	// A session is consumed exactly once.
	if _, err := s.Submit(); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("expected ErrAlreadySubmitted, got %v", err)
	}
	if err := s.Select(0, 0); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("Select after submit: expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestSelectBounds(t *testing.T) {
	s := NewSession("acc", "quiz", samplePaper())

	if err := s.Select(7, 0); !errors.Is(err, ErrNoSuchQuestion) {
		t.Errorf("expected ErrNoSuchQuestion, got %v", err)
	}
	if err := s.Select(-1, 0); !errors.Is(err, ErrNoSuchQuestion) {
		t.Errorf("expected ErrNoSuchQuestion, got %v", err)
	}
	if err := s.Select(0, 3); !errors.Is(err, ErrNoSuchOption) {
		t.Errorf("expected ErrNoSuchOption, got %v", err)
	}
	if err := s.Select(0, -1); !errors.Is(err, ErrNoSuchOption) {
		t.Errorf("expected ErrNoSuchOption, got %v", err)
	}
}

func TestSessionSnapshotsQuestions(t *testing.T) {
	p := samplePaper()
	s := NewSession("acc", "quiz", p)

	// Mutating the paper after load must not affect the session.
	p.Questions[0].Answer = 2

	if err := s.Select(0, 1); err != nil {
		t.Fatalf("Select: %v", err)
	}
	rs, err := s.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !rs.Results[0].IsCorrect {
		t.Error("session should grade against the snapshot taken at load time")
	}
}

func TestGradeScoreMatchesCorrectCount(t *testing.T) {
	questions := samplePaper().Questions

	tests := []struct {
		name      string
		answers   map[int]int
		wantScore int
	}{
		{"none answered", map[int]int{}, 0},
		{"all correct", map[int]int{0: 1, 1: 0, 2: 1}, 3},
		{"all wrong", map[int]int{0: 0, 1: 1, 2: 0}, 0},
		{"mixed with skip", map[int]int{0: 1, 1: 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := Grade("Quiz", questions, tt.answers)
			if rs.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", rs.Score, tt.wantScore)
			}
			// The score is exactly the count of correct outcomes.
			correct := 0
			for _, r := range rs.Results {
				if r.IsCorrect {
					correct++
				}
			}
			if correct != rs.Score {
				t.Errorf("score %d disagrees with %d correct outcomes", rs.Score, correct)
			}
			if rs.Total != len(questions) {
				t.Errorf("total = %d, want %d", rs.Total, len(questions))
			}
		})
	}
}

func TestGradeIsDeterministic(t *testing.T) {
	questions := samplePaper().Questions
	answers := map[int]int{0: 1, 2: 0}

	first := Grade("Quiz", questions, answers)
	second := Grade("Quiz", questions, answers)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical answers must grade identically")
	}
}

func TestGradeSkippedVersusWrong(t *testing.T) {
	questions := []model.Question{
		{Question: "2+2?", Options: []string{"3", "4", "5"}, Answer: 1, Explanation: "2+2=4"},
	}

	skipped := Grade("Quiz", questions, map[int]int{})
	if skipped.Results[0].SelectedAnswer != model.SkippedAnswer {
		t.Errorf("expected %q, got %q", model.SkippedAnswer, skipped.Results[0].SelectedAnswer)
	}
	if skipped.Results[0].IsCorrect || skipped.Score != 0 {
		t.Error("skipped question must count as incorrect")
	}

	wrong := Grade("Quiz", questions, map[int]int{0: 0})
	if wrong.Results[0].SelectedAnswer != "3" {
		t.Errorf("expected selected text '3', got %q", wrong.Results[0].SelectedAnswer)
	}
	if wrong.Score != 0 {
		t.Error("wrong answer must not score")
	}
	// Both carry the explanation for the result page.
	if wrong.Results[0].Explanation != "2+2=4" {
		t.Errorf("expected explanation, got %q", wrong.Results[0].Explanation)
	}
}

func TestGradeMalformedAnswerIndex(t *testing.T) {
	// A paper seeded before bounds validation existed: no option is ever
	// correct, but grading must not panic.
	questions := []model.Question{
		{Question: "q", Options: []string{"a", "b"}, Answer: 5},
	}
	rs := Grade("Quiz", questions, map[int]int{0: 0})
	if rs.Score != 0 {
		t.Errorf("expected score 0, got %d", rs.Score)
	}
	if rs.Results[0].CorrectAnswer != "" {
		t.Errorf("expected empty correct answer text, got %q", rs.Results[0].CorrectAnswer)
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	p := samplePaper()

	if m.Get("tok") != nil {
		t.Fatal("expected no session")
	}

	s := m.Start("tok", "acc", "quiz", p)
	if m.Get("tok") != s {
		t.Fatal("expected started session")
	}

	// Starting again discards the unfinished session.
	s2 := m.Start("tok", "acc", "quiz", p)
	if m.Get("tok") != s2 {
		t.Fatal("expected replacement session")
	}

	m.Drop("tok")
	if m.Get("tok") != nil {
		t.Fatal("expected dropped session")
	}

	m.Start("tok1", "acc", "quiz", p)
	m.Start("tok2", "acc", "quiz", p)
	m.Start("tok3", "other", "quiz", p)
	m.DropAccount("acc")
	if m.Get("tok1") != nil || m.Get("tok2") != nil {
		t.Error("expected account sessions dropped")
	}
	if m.Get("tok3") == nil {
		t.Error("expected other account's session to survive")
	}
}

func TestManagerWatchDropsOnSignOut(t *testing.T) {
	m := NewManager()
	bus := events.NewBus()
	t.Cleanup(func() { bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := m.Watch(ctx, bus); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	m.Start("tok", "acc", "quiz", samplePaper())
	if err := bus.PublishAccountChanged(events.AccountEvent{Type: events.AccountSignedOut, AccountID: "acc"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.Get("tok") != nil {
		if time.Now().After(deadline) {
			t.Fatal("session not dropped after sign-out event")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
