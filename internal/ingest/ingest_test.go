package ingest

import (
	"errors"
	"testing"
)

const validInput = `{
	"title": "Quiz",
	"questions": [
		{"question": "2+2?", "options": ["3", "4", "5"], "answer": 1},
		{"question": "1+1?", "options": ["2", "3"], "answer": 0, "explanation": "basic addition"}
	]
}`

func TestParseValid(t *testing.T) {
	pi, err := Parse(validInput)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pi.Title != "Quiz" {
		t.Errorf("expected title 'Quiz', got %q", pi.Title)
	}
	if len(pi.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(pi.Questions))
	}

	qs := Questions(pi)
	if qs[0].Answer != 1 {
		t.Errorf("expected answer 1, got %d", qs[0].Answer)
	}
	if qs[1].Explanation != "basic addition" {
		t.Errorf("expected explanation carried over, got %q", qs[1].Explanation)
	}
}

func TestParseAnswerZeroIsValid(t *testing.T) {
	// Index 0 is a legitimate answer; a plain int would make it look unset.
	_, err := Parse(`{"title": "T", "questions": [{"question": "q", "options": ["a", "b"], "answer": 0}]}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"syntax error", `{"title": "x", `, ErrInvalidJSON},
		{"not an object", `[1, 2, 3]`, ErrInvalidJSON},
		{"missing title", `{"questions": [{"question": "q", "options": ["a"], "answer": 0}]}`, ErrMissingTitle},
		{"empty title", `{"title": "", "questions": [{"question": "q", "options": ["a"], "answer": 0}]}`, ErrMissingTitle},
		{"missing questions", `{"title": "x"}`, ErrMissingQuestions},
		{"empty questions", `{"title": "x", "questions": []}`, ErrMissingQuestions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseQuestionErrors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantNumber int
	}{
		{
			"missing question text",
			`{"title": "x", "questions": [{"options": ["a"], "answer": 0}]}`,
			1,
		},
		{
			"missing options",
			`{"title": "x", "questions": [{"question": "q", "answer": 0}]}`,
			1,
		},
		{
			"missing answer",
			`{"title": "x", "questions": [{"question": "q", "options": ["a", "b"]}]}`,
			1,
		},
		{
			"answer out of range",
			`{"title": "x", "questions": [
				{"question": "ok", "options": ["a", "b"], "answer": 1},
				{"question": "bad", "options": ["a", "b"], "answer": 2}
			]}`,
			2,
		},
		{
			"negative answer",
			`{"title": "x", "questions": [{"question": "q", "options": ["a"], "answer": -1}]}`,
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			var qerr *QuestionError
			if !errors.As(err, &qerr) {
				t.Fatalf("expected QuestionError, got %v", err)
			}
			if qerr.Number != tt.wantNumber {
				t.Errorf("expected question %d named, got %d (%v)", tt.wantNumber, qerr.Number, err)
			}
		})
	}
}
