package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/internal/query"
	"github.com/devfolio/portfolio-api/pkg/logger"
)

// Mode selects how a Resource reaches the API.
type Mode string

const (
	// ModeOnline only talks to the API; failures are returned and the mirror
	// is left untouched.
	ModeOnline Mode = "online"
	// ModeFallback talks to the API and applies the mutation to the local
	// mirror when the API is unreachable or answers 5xx.
	ModeFallback Mode = "fallback"
	// ModeOffline never contacts the API.
	ModeOffline Mode = "offline"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeOnline, ModeFallback, ModeOffline:
		return m, nil
	case "":
		return ModeOnline, nil
	}
	return "", fmt.Errorf("unknown mode %q (want online, fallback or offline)", s)
}

// ErrNotFound is returned by local mutations on an unknown id.
var ErrNotFound = errors.New("record not found")

type eventKind int

const (
	// mirror replaced by a successful fetch
	evSynced eventKind = iota
	// server accepted a mutation
	evConfirmed
	// mutation applied to the mirror only
	evLocal
	// fetch failed, mirror kept
	evStale
)

type event struct {
	collection string
	kind       eventKind
	err        error
}

// Resource mirrors one API collection.
type Resource[E any, P models.Ptr[E]] struct {
	name     string
	path     string
	client   *Client
	mode     func() Mode
	validate func(E) error
	prepare  func(*E)
	emit     func(event)

	mu    sync.RWMutex
	items []E
	// highest id the mirror has held; local ids are taken above it
	last int64
}

func newResource[E any, P models.Ptr[E]](name, path string, c *Client, mode func() Mode, emit func(event)) *Resource[E, P] {
	return &Resource[E, P]{name: name, path: path, client: c, mode: mode, emit: emit}
}

func (r *Resource[E, P]) Name() string { return r.name }

// Items returns a copy of the mirror.
func (r *Resource[E, P]) Items() []E {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]E(nil), r.items...)
}

// Get looks id up in the mirror.
func (r *Resource[E, P]) Get(id int64) (E, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.index(id); i >= 0 {
		return r.items[i], true
	}
	var zero E
	return zero, false
}

func (r *Resource[E, P]) replace(items []E) {
	r.mu.Lock()
	r.items = append([]E(nil), items...)
	r.last = max(r.last, maxID[E, P](r.items))
	r.mu.Unlock()
}

func (r *Resource[E, P]) lastID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

func (r *Resource[E, P]) setLastID(id int64) {
	r.mu.Lock()
	r.last = max(r.last, id)
	r.mu.Unlock()
}

// index must be called with mu held.
func (r *Resource[E, P]) index(id int64) int {
	for i := range r.items {
		if P(&r.items[i]).EntityID() == id {
			return i
		}
	}
	return -1
}

func (r *Resource[E, P]) itemPath(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

// fallback decides whether err from the API lets the local path run. 4xx
// answers and a cancelled caller context are returned as is.
func (r *Resource[E, P]) fallback(ctx context.Context, op string, err error) bool {
	if r.mode() != ModeFallback || ctx.Err() != nil {
		return false
	}
	var ae *APIError
	if errors.As(err, &ae) && ae.Status < http.StatusInternalServerError {
		return false
	}
	logger.Warnw("api unavailable, applying change locally", "collection", r.name, "op", op, "error", err)
	return true
}

func (r *Resource[E, P]) fetch(ctx context.Context) ([]E, error) {
	var items []E
	if err := r.client.do(ctx, http.MethodGet, r.path, nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Fetch replaces the mirror with the server's collection. In fallback mode a
// failed fetch keeps the current mirror and is only reported through the
// dashboard status.
func (r *Resource[E, P]) Fetch(ctx context.Context) error {
	if r.mode() == ModeOffline {
		return nil
	}
	items, err := r.fetch(ctx)
	if err != nil {
		if r.fallback(ctx, "fetch", err) {
			r.emit(event{collection: r.name, kind: evStale, err: err})
			return nil
		}
		return err
	}
	r.replace(items)
	r.emit(event{collection: r.name, kind: evSynced})
	return nil
}

// confirm refreshes the mirror after a server-side mutation. When the
// re-fetch fails the server-confirmed change is applied locally instead.
func (r *Resource[E, P]) confirm(ctx context.Context, apply func([]E) []E) {
	items, err := r.fetch(ctx)
	if err == nil {
		r.replace(items)
		r.emit(event{collection: r.name, kind: evSynced})
		return
	}
	logger.Debugf("re-fetch of %s failed, applying confirmed change: %v", r.name, err)
	r.mu.Lock()
	r.items = apply(r.items)
	r.last = max(r.last, maxID[E, P](r.items))
	r.mu.Unlock()
	r.emit(event{collection: r.name, kind: evConfirmed})
}

// Create adds e. The id is assigned by the server, or by the mirror's own
// counter locally.
func (r *Resource[E, P]) Create(ctx context.Context, e E) (E, error) {
	P(&e).SetEntityID(0)
	var cause error
	if r.mode() != ModeOffline {
		var out E
		err := r.client.do(ctx, http.MethodPost, r.path, nil, e, &out)
		if err == nil {
			r.confirm(ctx, func(items []E) []E { return append(items, out) })
			return out, nil
		}
		if !r.fallback(ctx, "create", err) {
			var zero E
			return zero, err
		}
		cause = err
	}
	return r.createLocal(e, cause)
}

func (r *Resource[E, P]) createLocal(e E, cause error) (E, error) {
	if r.prepare != nil {
		r.prepare(&e)
	}
	if r.validate != nil {
		if err := r.validate(e); err != nil {
			var zero E
			return zero, err
		}
	}
	r.mu.Lock()
	r.items = appendNext[E, P](r.items, &e, &r.last)
	r.mu.Unlock()
	r.emit(event{collection: r.name, kind: evLocal, err: cause})
	return e, nil
}

// submit posts e to a public form endpoint, which answers with a message
// rather than the stored record.
func (r *Resource[E, P]) submit(ctx context.Context, path string, e E) error {
	var cause error
	if r.mode() != ModeOffline {
		err := r.client.do(ctx, http.MethodPost, path, nil, e, nil)
		if err == nil {
			if r.prepare != nil {
				r.prepare(&e)
			}
			r.confirm(ctx, func(items []E) []E { return appendNext[E, P](items, &e, &r.last) })
			return nil
		}
		if !r.fallback(ctx, "submit", err) {
			return err
		}
		cause = err
	}
	_, err := r.createLocal(e, cause)
	return err
}

// Update overlays patch (JSON field names) on the record stored under id.
func (r *Resource[E, P]) Update(ctx context.Context, id int64, patch map[string]any) (E, error) {
	var cause error
	if r.mode() != ModeOffline {
		var out E
		err := r.client.do(ctx, http.MethodPut, r.itemPath(id), nil, patch, &out)
		if err == nil {
			r.confirm(ctx, func(items []E) []E {
				for i := range items {
					if P(&items[i]).EntityID() == id {
						items[i] = out
					}
				}
				return items
			})
			return out, nil
		}
		if !r.fallback(ctx, "update", err) {
			var zero E
			return zero, err
		}
		cause = err
	}
	return r.updateLocal(id, patch, cause)
}

func (r *Resource[E, P]) updateLocal(id int64, patch map[string]any, cause error) (E, error) {
	var zero E
	r.mu.Lock()
	i := r.index(id)
	if i < 0 {
		r.mu.Unlock()
		return zero, fmt.Errorf("%s %d: %w", r.name, id, ErrNotFound)
	}
	next, err := merge[E, P](r.items[i], patch)
	if err == nil && r.validate != nil {
		err = r.validate(next)
	}
	if err != nil {
		r.mu.Unlock()
		return zero, err
	}
	r.items[i] = next
	r.mu.Unlock()
	r.emit(event{collection: r.name, kind: evLocal, err: cause})
	return next, nil
}

// Save creates e when it has no id and replaces the stored record otherwise.
func (r *Resource[E, P]) Save(ctx context.Context, e E) (E, error) {
	id := P(&e).EntityID()
	if id == 0 {
		return r.Create(ctx, e)
	}
	patch, err := toPatch(e)
	if err != nil {
		var zero E
		return zero, err
	}
	return r.Update(ctx, id, patch)
}

// Delete removes the record stored under id.
func (r *Resource[E, P]) Delete(ctx context.Context, id int64) error {
	var cause error
	if r.mode() != ModeOffline {
		err := r.client.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil, nil)
		if err == nil {
			r.confirm(ctx, func(items []E) []E { return remove[E, P](items, id) })
			return nil
		}
		if !r.fallback(ctx, "delete", err) {
			return err
		}
		cause = err
	}
	r.mu.Lock()
	if r.index(id) < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%s %d: %w", r.name, id, ErrNotFound)
	}
	r.items = remove[E, P](r.items, id)
	r.mu.Unlock()
	r.emit(event{collection: r.name, kind: evLocal, err: cause})
	return nil
}

// Query asks the API's /query endpoint, or filters the mirror with the same
// filter when the API is not used. The mirror is not modified.
func (r *Resource[E, P]) Query(ctx context.Context, f query.Filter[E]) ([]E, error) {
	if r.mode() != ModeOffline {
		var out []E
		err := r.client.do(ctx, http.MethodGet, r.path+"/query", f.Values(), nil, &out)
		if err == nil {
			return out, nil
		}
		if !r.fallback(ctx, "query", err) {
			return nil, err
		}
	}
	return query.Apply(r.Items(), f), nil
}

// appendNext stores e under the next id above both the mirror and *last, so
// ids freed by a delete are not handed out again.
func appendNext[E any, P models.Ptr[E]](items []E, e *E, last *int64) []E {
	*last = max(*last, maxID[E, P](items)) + 1
	P(e).SetEntityID(*last)
	return append(items, *e)
}

func maxID[E any, P models.Ptr[E]](items []E) int64 {
	var m int64
	for i := range items {
		m = max(m, P(&items[i]).EntityID())
	}
	return m
}

func remove[E any, P models.Ptr[E]](items []E, id int64) []E {
	out := items[:0]
	for i := range items {
		if P(&items[i]).EntityID() != id {
			out = append(out, items[i])
		}
	}
	return out
}

// merge applies the same overlay the API does: fields present in patch
// replace the stored ones, the id is kept.
func merge[E any, P models.Ptr[E]](cur E, patch map[string]any) (E, error) {
	next := cur
	b, err := json.Marshal(patch)
	if err != nil {
		return cur, err
	}
	if err := json.Unmarshal(b, &next); err != nil {
		return cur, fmt.Errorf("invalid patch: %w", err)
	}
	P(&next).SetEntityID(P(&cur).EntityID())
	return next, nil
}

// toPatch turns a whole record into an update body. Model fields carry no
// omitempty, so cleared values are sent and overwrite the stored ones.
func toPatch(e any) (map[string]any, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	delete(m, "id")
	return m, nil
}
