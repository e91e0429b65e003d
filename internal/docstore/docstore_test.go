package docstore

import (
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type testDoc struct {
	Name     string `json:"name"`
	Approved bool   `json:"approved"`
	Count    int    `json:"count"`
}

func TestPutGetDelete(t *testing.T) {
	s := newTestStore(t)

	// Missing document.
	var got testDoc
	if err := s.Get("users", "u1", &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing: expected ErrNotFound, got %v", err)
	}

	// Put and read back.
	if err := s.Put("users", "u1", testDoc{Name: "alice", Count: 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Get("users", "u1", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "alice" || got.Count != 3 {
		t.Errorf("unexpected doc: %+v", got)
	}

	// Put overwrites the whole body.
	if err := s.Put("users", "u1", testDoc{Name: "bob"}); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	if err := s.Get("users", "u1", &got); err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if got.Name != "bob" || got.Count != 0 {
		t.Errorf("expected full overwrite, got %+v", got)
	}

	// Delete, then get is not-found.
	if err := s.Delete("users", "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Get("users", "u1", &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: expected ErrNotFound, got %v", err)
	}

	// Deleting again is a no-op.
	if err := s.Delete("users", "u1"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestListIsolatesCollections(t *testing.T) {
	s := newTestStore(t)

	// Empty collection is valid.
	docs, err := s.List("papers")
	if err != nil {
		t.Fatalf("List empty: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty list, got %d", len(docs))
	}

	for _, id := range []string{"b", "a", "c"} {
		if err := s.Put("papers", id, testDoc{Name: id}); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}
	if err := s.Put("users", "u1", testDoc{Name: "alice"}); err != nil {
		t.Fatalf("Put user: %v", err)
	}

	docs, err = s.List("papers")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(docs))
	}
	// Scan order is id order.
	if docs[0].ID != "a" || docs[1].ID != "b" || docs[2].ID != "c" {
		t.Errorf("unexpected order: %s %s %s", docs[0].ID, docs[1].ID, docs[2].ID)
	}

	count, err := s.Count("papers")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
}

func TestUpdateField(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put("users", "u1", testDoc{Name: "alice", Approved: false, Count: 7}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := s.UpdateField("users", "u1", "approved", true); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}

	var got testDoc
	if err := s.Get("users", "u1", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Approved {
		t.Error("expected approved to be true")
	}
	// The rest of the body is untouched.
	if got.Name != "alice" || got.Count != 7 {
		t.Errorf("field update clobbered document: %+v", got)
	}

	// Missing document.
	if err := s.UpdateField("users", "nope", "approved", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
