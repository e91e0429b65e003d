package handoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/examhall/examhall/internal/model"
)

func testChannels(t *testing.T) map[string]Channel {
	t.Helper()

	mr := miniredis.RunT(t)
	rc, err := NewRedis(context.Background(), mr.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { rc.Close() })

	return map[string]Channel{
		"memory": NewMemory(time.Minute),
		"redis":  rc,
	}
}

func TestSelectionRoundTrip(t *testing.T) {
	for name, ch := range testChannels(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sel := Selection{SubjectID: "math-test", SubjectName: "Math Test"}
			if err := PutSelection(ctx, ch, "acc", sel); err != nil {
				t.Fatalf("PutSelection: %v", err)
			}

			// Non-destructive: readable repeatedly until cleared.
			for i := 0; i < 2; i++ {
				got, err := GetSelection(ctx, ch, "acc")
				if err != nil {
					t.Fatalf("GetSelection: %v", err)
				}
				if got != sel {
					t.Errorf("got %+v, want %+v", got, sel)
				}
			}

			if err := ClearSelection(ctx, ch, "acc"); err != nil {
				t.Fatalf("ClearSelection: %v", err)
			}
			if _, err := GetSelection(ctx, ch, "acc"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after clear, got %v", err)
			}
		})
	}
}

func TestResultIsConsumedOnce(t *testing.T) {
	for name, ch := range testChannels(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rs := &model.ResultSet{
				SubjectName: "Quiz",
				Score:       1,
				Total:       2,
				Results: []model.QuestionResult{
					{Question: "2+2?", SelectedAnswer: "4", CorrectAnswer: "4", IsCorrect: true},
					{Question: "1+1?", SelectedAnswer: model.SkippedAnswer, CorrectAnswer: "2"},
				},
			}
			if err := PutResult(ctx, ch, "acc", rs); err != nil {
				t.Fatalf("PutResult: %v", err)
			}

			got, err := TakeResult(ctx, ch, "acc")
			if err != nil {
				t.Fatalf("TakeResult: %v", err)
			}
			if got.Score != 1 || got.Total != 2 || got.SubjectName != "Quiz" {
				t.Errorf("unexpected result set: %+v", got)
			}
			if len(got.Results) != 2 || got.Results[1].SelectedAnswer != model.SkippedAnswer {
				t.Errorf("unexpected outcomes: %+v", got.Results)
			}

			if _, err := TakeResult(ctx, ch, "acc"); !errors.Is(err, ErrNotFound) {
				t.Errorf("second read should consume nothing, got %v", err)
			}
		})
	}
}

func TestAccountsAreIsolated(t *testing.T) {
	for name, ch := range testChannels(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := PutSelection(ctx, ch, "alice", Selection{SubjectID: "a", SubjectName: "A"}); err != nil {
				t.Fatalf("PutSelection: %v", err)
			}
			if _, err := GetSelection(ctx, ch, "bob"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound for other account, got %v", err)
			}
		})
	}
}

func TestMemoryExpiry(t *testing.T) {
	ch := NewMemory(time.Minute)
	base := time.Now()
	ch.now = func() time.Time { return base }

	ctx := context.Background()
	if err := ch.Set(ctx, "acc", KeySubjectID, "math"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ch.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := ch.Get(ctx, "acc", KeySubjectID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expiry, got %v", err)
	}
}

func TestRedisExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	ch, err := NewRedis(context.Background(), mr.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { ch.Close() })

	ctx := context.Background()
	if err := ch.Set(ctx, "acc", KeySubjectID, "math"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := ch.Get(ctx, "acc", KeySubjectID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expiry, got %v", err)
	}
}
