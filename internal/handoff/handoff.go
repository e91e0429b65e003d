// Package handoff is the transient channel that carries state between
// pages: the subject picked on the dashboard travels to the exam page, and
// the graded result travels to the result page. Entries are string-encoded,
// scoped per account, and bounded by a TTL so abandoned hand-offs expire.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/examhall/examhall/internal/model"
)

// Keys used on the channel. Result keys are read destructively.
const (
	KeySubjectID      = "currentExamSubjectId"
	KeySubjectName    = "currentExamSubjectName"
	KeyResults        = "examResults"
	KeyScore          = "examScore"
	KeyTotalQuestions = "totalQuestions"
	KeyResultSubject  = "examSubject"
)

// DefaultTTL bounds how long an orphaned hand-off survives.
const DefaultTTL = 2 * time.Hour

// ErrNotFound means the key is absent, expired, or already consumed.
var ErrNotFound = errors.New("handoff: not found")

// Channel stores short-lived string values scoped to one account.
// Get leaves the value in place; Take removes it on read.
type Channel interface {
	Set(ctx context.Context, accountID, key, value string) error
	Get(ctx context.Context, accountID, key string) (string, error)
	Take(ctx context.Context, accountID, key string) (string, error)
	Delete(ctx context.Context, accountID string, keys ...string) error
	Close() error
}

// Selection is the dashboard-to-exam hand-off.
type Selection struct {
	SubjectID   string
	SubjectName string
}

// PutSelection records which paper the account is about to sit.
func PutSelection(ctx context.Context, ch Channel, accountID string, sel Selection) error {
	if err := ch.Set(ctx, accountID, KeySubjectID, sel.SubjectID); err != nil {
		return err
	}
	return ch.Set(ctx, accountID, KeySubjectName, sel.SubjectName)
}

// GetSelection reads the pending selection without consuming it, so a
// page refresh during the exam still knows the subject.
func GetSelection(ctx context.Context, ch Channel, accountID string) (Selection, error) {
	id, err := ch.Get(ctx, accountID, KeySubjectID)
	if err != nil {
		return Selection{}, err
	}
	name, err := ch.Get(ctx, accountID, KeySubjectName)
	if err != nil {
		return Selection{}, err
	}
	return Selection{SubjectID: id, SubjectName: name}, nil
}

// PutResult stores a graded result set for the result page. The detailed
// outcomes are JSON; score, total and subject are stored alongside as
// plain strings.
func PutResult(ctx context.Context, ch Channel, accountID string, rs *model.ResultSet) error {
	body, err := json.Marshal(rs.Results)
	if err != nil {
		return fmt.Errorf("handoff: encode results: %w", err)
	}
	if err := ch.Set(ctx, accountID, KeyResults, string(body)); err != nil {
		return err
	}
	if err := ch.Set(ctx, accountID, KeyScore, strconv.Itoa(rs.Score)); err != nil {
		return err
	}
	if err := ch.Set(ctx, accountID, KeyTotalQuestions, strconv.Itoa(rs.Total)); err != nil {
		return err
	}
	return ch.Set(ctx, accountID, KeyResultSubject, rs.SubjectName)
}

// TakeResult consumes a stored result set. The first successful read
// erases the entry; a second read returns ErrNotFound.
func TakeResult(ctx context.Context, ch Channel, accountID string) (*model.ResultSet, error) {
	body, err := ch.Take(ctx, accountID, KeyResults)
	if err != nil {
		return nil, err
	}

	rs := &model.ResultSet{}
	if err := json.Unmarshal([]byte(body), &rs.Results); err != nil {
		return nil, fmt.Errorf("handoff: decode results: %w", err)
	}
	if s, err := ch.Take(ctx, accountID, KeyScore); err == nil {
		rs.Score, _ = strconv.Atoi(s)
	}
	if s, err := ch.Take(ctx, accountID, KeyTotalQuestions); err == nil {
		rs.Total, _ = strconv.Atoi(s)
	}
	if s, err := ch.Take(ctx, accountID, KeyResultSubject); err == nil {
		rs.SubjectName = s
	}
	return rs, nil
}

// ClearSelection drops a pending selection, for abandoned exams.
func ClearSelection(ctx context.Context, ch Channel, accountID string) error {
	return ch.Delete(ctx, accountID, KeySubjectID, KeySubjectName)
}

// ClearAll drops everything the account has on the channel.
func ClearAll(ctx context.Context, ch Channel, accountID string) error {
	return ch.Delete(ctx, accountID,
		KeySubjectID, KeySubjectName, KeyResults, KeyScore, KeyTotalQuestions, KeyResultSubject)
}

func scopedKey(accountID, key string) string {
	return "handoff:" + accountID + ":" + key
}
