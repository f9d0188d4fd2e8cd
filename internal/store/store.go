// Package store keeps the portfolio collections. Every backend hands out ids
// from a per-collection counter so an id is never reused after a delete.
package store

import (
	"context"
	"errors"

	"github.com/devfolio/portfolio-api/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Collection names shared by every backend.
const (
	Messages  = "messages"
	Ratings   = "ratings"
	BlogPosts = "blog_posts"
	Projects  = "projects"
)

// Store is the storage abstraction for a single entity collection.
type Store[E any] interface {
	// List returns every record in id (insertion) order.
	List(ctx context.Context) ([]E, error)
	Get(ctx context.Context, id int64) (E, error)
	// Insert assigns the next id to e and returns the stored record.
	Insert(ctx context.Context, e E) (E, error)
	// Update replaces the record stored under id. The id is kept.
	Update(ctx context.Context, id int64, e E) (E, error)
	Delete(ctx context.Context, id int64) error
}

// Set groups the four collections served by the API.
type Set struct {
	Messages  Store[models.Message]
	Ratings   Store[models.Rating]
	BlogPosts Store[models.BlogPost]
	Projects  Store[models.Project]

	// Backend is a short name reported by /ready.
	Backend string
}

func withID[E any, P models.Ptr[E]](e E, id int64) E {
	P(&e).SetEntityID(id)
	return e
}

func idOf[E any, P models.Ptr[E]](e E) int64 {
	return P(&e).EntityID()
}
