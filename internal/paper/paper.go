// Package paper provides access to question papers stored as documents in
// the questionPapers collection.
package paper

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/examhall/examhall/internal/docstore"
	"github.com/examhall/examhall/internal/model"
)

const collection = "questionPapers"

// ErrNotFound is returned when a paper does not exist, including the valid
// race where a paper is deleted between listing and opening.
var ErrNotFound = errors.New("question paper not found")

type Repository struct {
	store *docstore.Store
}

func NewRepository(store *docstore.Store) *Repository {
	return &Repository{store: store}
}

// Slug derives a paper's document id from its title: lowercased, with
// whitespace runs replaced by single hyphens. The id is a pure function of
// the title; creating two papers with the same title overwrites.
func Slug(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "-")
}

// List scans the catalog. An empty store yields an empty slice.
func (r *Repository) List() ([]model.CatalogEntry, error) {
	docs, err := r.store.List(collection)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	entries := make([]model.CatalogEntry, 0, len(docs))
	for _, d := range docs {
		var p model.QuestionPaper
		if err := json.Unmarshal(d.Body, &p); err != nil {
			return nil, fmt.Errorf("decode paper %s: %w", d.ID, err)
		}
		entries = append(entries, model.CatalogEntry{
			ID:            d.ID,
			SubjectName:   p.SubjectName,
			QuestionCount: len(p.Questions),
		})
	}
	return entries, nil
}

// Get returns the full paper for an id.
func (r *Repository) Get(id string) (*model.QuestionPaper, error) {
	var p model.QuestionPaper
	if err := r.store.Get(collection, id, &p); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get paper %s: %w", id, err)
	}
	return &p, nil
}

// Create stores a paper under the slug of its title, overwriting any
// existing paper at that id.
func (r *Repository) Create(title string, questions []model.Question) (string, error) {
	id := Slug(title)
	if id == "" {
		return "", errors.New("paper title is empty")
	}
	err := r.store.Put(collection, id, model.QuestionPaper{
		SubjectName: title,
		Questions:   questions,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("store paper %s: %w", id, err)
	}
	return id, nil
}

// Delete removes a paper. Subsequent gets return ErrNotFound.
func (r *Repository) Delete(id string) error {
	if err := r.store.Delete(collection, id); err != nil {
		return fmt.Errorf("delete paper %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored papers.
func (r *Repository) Count() (int, error) {
	return r.store.Count(collection)
}
