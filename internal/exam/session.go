// Package exam implements the exam session lifecycle: a session snapshots
// one paper's questions at load time, captures single-select answers, and
// is consumed exactly once at submission to produce a result set.
package exam

import (
	"errors"
	"fmt"

	"github.com/examhall/examhall/internal/model"
)

var (
	// ErrAlreadySubmitted means the session was consumed; it never resumes.
	ErrAlreadySubmitted = errors.New("exam already submitted")
	// ErrNoSuchQuestion means the question index is outside the snapshot.
	ErrNoSuchQuestion = errors.New("no such question")
	// ErrNoSuchOption means the option index is outside the question's options.
	ErrNoSuchOption = errors.New("no such option")
)

// Session is the in-memory state of one user attempting one paper. It has
// exactly one writer (the user's selections) and one reader (submission).
type Session struct {
	AccountID   string
	SubjectID   string
	SubjectName string
	Questions   []model.Question

	answers   map[int]int
	submitted bool
}

// NewSession snapshots the paper's questions at load time. Later edits to
// the stored paper do not affect a running session.
func NewSession(accountID, subjectID string, p *model.QuestionPaper) *Session {
	questions := make([]model.Question, len(p.Questions))
	copy(questions, p.Questions)
	return &Session{
		AccountID:   accountID,
		SubjectID:   subjectID,
		SubjectName: p.SubjectName,
		Questions:   questions,
		answers:     make(map[int]int),
	}
}

// Select records the option chosen for a question, overwriting any prior
// selection. Selecting the same option twice is a no-op on the result.
func (s *Session) Select(questionIdx, optionIdx int) error {
	if s.submitted {
		return ErrAlreadySubmitted
	}
	if questionIdx < 0 || questionIdx >= len(s.Questions) {
		return fmt.Errorf("%w: %d", ErrNoSuchQuestion, questionIdx)
	}
	if optionIdx < 0 || optionIdx >= len(s.Questions[questionIdx].Options) {
		return fmt.Errorf("%w: question %d option %d", ErrNoSuchOption, questionIdx, optionIdx)
	}
	s.answers[questionIdx] = optionIdx
	return nil
}

// Answers returns a copy of the sparse answer map; unanswered questions
// are absent.
func (s *Session) Answers() map[int]int {
	out := make(map[int]int, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Submitted reports whether the session has been consumed.
func (s *Session) Submitted() bool {
	return s.submitted
}

// Submit grades the session. It is allowed exactly once; the grading step
// itself never fails for a well-formed session.
func (s *Session) Submit() (*model.ResultSet, error) {
	if s.submitted {
		return nil, ErrAlreadySubmitted
	}
	s.submitted = true
	return Grade(s.SubjectName, s.Questions, s.answers), nil
}

// Grade scores answers against questions. It is pure and total: outcomes
// come out in question order, a skipped question counts as incorrect with
// the Skipped sentinel, and the score is the count of exact index matches.
func Grade(subjectName string, questions []model.Question, answers map[int]int) *model.ResultSet {
	rs := &model.ResultSet{
		SubjectName: subjectName,
		Results:     make([]model.QuestionResult, 0, len(questions)),
		Total:       len(questions),
	}
	for i, q := range questions {
		ans, answered := answers[i]
		isCorrect := answered && ans == q.Answer

		selected := model.SkippedAnswer
		if answered && ans >= 0 && ans < len(q.Options) {
			selected = q.Options[ans]
		}
		// Guard against papers seeded before ingestion validated bounds.
		correct := ""
		if q.Answer >= 0 && q.Answer < len(q.Options) {
			correct = q.Options[q.Answer]
		}

		if isCorrect {
			rs.Score++
		}
		rs.Results = append(rs.Results, model.QuestionResult{
			Question:       q.Question,
			SelectedAnswer: selected,
			CorrectAnswer:  correct,
			IsCorrect:      isCorrect,
			Explanation:    q.Explanation,
		})
	}
	return rs
}
