package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/internal/query"
	"github.com/devfolio/portfolio-api/internal/store"
	"github.com/devfolio/portfolio-api/pkg/metrics"
)

// Collection is the CRUD service for one entity type.
type Collection[E any, P models.Ptr[E]] struct {
	name     string
	store    store.Store[E]
	validate func(E) error
	// prepare runs on every create before validation (e.g. to stamp a date).
	prepare func(*E)
}

func newCollection[E any, P models.Ptr[E]](name string, s store.Store[E], validate func(E) error, prepare func(*E)) *Collection[E, P] {
	return &Collection[E, P]{name: name, store: s, validate: validate, prepare: prepare}
}

func (c *Collection[E, P]) observe(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrRatingRequired),
		errors.Is(err, ErrRatingRange), errors.Is(err, ErrInvalidBody):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	metrics.EntityOperations.WithLabelValues(c.name, op, outcome).Inc()
}

// List returns the whole collection in insertion order.
func (c *Collection[E, P]) List(ctx context.Context) ([]E, error) {
	out, err := c.store.List(ctx)
	c.observe("list", err)
	return out, err
}

func (c *Collection[E, P]) Get(ctx context.Context, id int64) (E, error) {
	e, err := c.store.Get(ctx, id)
	c.observe("get", err)
	return e, err
}

// Create validates e and stores it under the next id.
func (c *Collection[E, P]) Create(ctx context.Context, e E) (out E, err error) {
	defer func() { c.observe("create", err) }()
	P(&e).SetEntityID(0)
	if c.prepare != nil {
		c.prepare(&e)
	}
	if err := c.validate(e); err != nil {
		return out, err
	}
	return c.store.Insert(ctx, e)
}

// Update loads the record stored under id, lets apply overwrite the fields
// present in the request payload, validates the result and stores it. The id
// never changes, whatever the payload says.
func (c *Collection[E, P]) Update(ctx context.Context, id int64, apply func(*E) error) (out E, err error) {
	defer func() { c.observe("update", err) }()
	current, err := c.store.Get(ctx, id)
	if err != nil {
		return out, err
	}
	if err := apply(&current); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	P(&current).SetEntityID(id)
	if err := c.validate(current); err != nil {
		return out, err
	}
	return c.store.Update(ctx, id, current)
}

// Delete removes the record stored under id.
func (c *Collection[E, P]) Delete(ctx context.Context, id int64) (err error) {
	defer func() { c.observe("delete", err) }()
	return c.store.Delete(ctx, id)
}

// Query returns the records matched by f.
func (c *Collection[E, P]) Query(ctx context.Context, f query.Filter[E]) ([]E, error) {
	items, err := c.store.List(ctx)
	c.observe("query", err)
	if err != nil {
		return nil, err
	}
	return query.Apply(items, f), nil
}
