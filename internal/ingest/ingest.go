// Package ingest parses and validates bulk question-paper input before
// anything touches the store. Validation order: JSON syntax, structure,
// then answer-index bounds; each failure is a distinct error and nothing
// is written.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/examhall/examhall/internal/model"
)

var (
	// ErrInvalidJSON means the input does not parse at all.
	ErrInvalidJSON = errors.New("input is not valid JSON")
	// ErrMissingTitle means the title field is absent or empty.
	ErrMissingTitle = errors.New(`"title" is required`)
	// ErrMissingQuestions means the questions field is absent or empty.
	ErrMissingQuestions = errors.New(`"questions" must be a non-empty array`)
)

// QuestionError names the offending question when a single entry fails
// validation. Number is 1-based for display.
type QuestionError struct {
	Number int
	Reason string
}

func (e *QuestionError) Error() string {
	return fmt.Sprintf("question %d: %s", e.Number, e.Reason)
}

var validate = validator.New()

// Parse turns raw admin input into a validated PaperImport.
func Parse(input string) (*model.PaperImport, error) {
	var pi model.PaperImport
	if err := json.Unmarshal([]byte(input), &pi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	if err := validate.Struct(&pi); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, mapFieldError(verrs[0])
		}
		return nil, err
	}

	// Bounds check on the answer index; a bad index would otherwise
	// silently grade every submission against a nonexistent option.
	for i, q := range pi.Questions {
		if *q.Answer < 0 || *q.Answer >= len(q.Options) {
			return nil, &QuestionError{
				Number: i + 1,
				Reason: fmt.Sprintf("answer index %d is out of range for %d options", *q.Answer, len(q.Options)),
			}
		}
	}

	return &pi, nil
}

// Questions converts the validated import into domain questions.
func Questions(pi *model.PaperImport) []model.Question {
	qs := make([]model.Question, len(pi.Questions))
	for i, q := range pi.Questions {
		qs[i] = model.Question{
			Question:    q.Question,
			Options:     q.Options,
			Answer:      *q.Answer,
			Explanation: q.Explanation,
		}
	}
	return qs
}

func mapFieldError(fe validator.FieldError) error {
	ns := fe.StructNamespace()
	switch fe.StructField() {
	case "Title":
		return ErrMissingTitle
	case "Questions":
		return ErrMissingQuestions
	}

	num := questionNumber(ns)
	switch fe.StructField() {
	case "Question":
		return &QuestionError{Number: num, Reason: "question text is required"}
	case "Options":
		return &QuestionError{Number: num, Reason: "options must be a non-empty array of non-empty strings"}
	case "Answer":
		return &QuestionError{Number: num, Reason: `"answer" index is required`}
	}
	// Options[i] dive failures report the element, not the field.
	if strings.Contains(ns, ".Options[") {
		return &QuestionError{Number: num, Reason: "options must be a non-empty array of non-empty strings"}
	}
	return fmt.Errorf("invalid field %s", fe.StructNamespace())
}

// questionNumber extracts the 1-based question index from a namespace like
// "PaperImport.Questions[2].Answer". Returns 0 when absent.
func questionNumber(ns string) int {
	start := strings.Index(ns, "Questions[")
	if start < 0 {
		return 0
	}
	rest := ns[start+len("Questions["):]
	end := strings.Index(rest, "]")
	if end < 0 {
		return 0
	}
	num := 0
	for _, c := range rest[:end] {
		if c < '0' || c > '9' {
			return 0
		}
		num = num*10 + int(c-'0')
	}
	return num + 1
}
