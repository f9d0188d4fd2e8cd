package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/internal/portfolio/service"
	"golang.org/x/sync/errgroup"
)

// Collection names used in Status.
const (
	Messages  = "messages"
	Ratings   = "ratings"
	BlogPosts = "blogPosts"
	Projects  = "projects"
)

// Status tells a UI whether the mirrors still match the server.
type Status struct {
	Mode Mode `json:"mode"`
	// Diverged is set while local-only changes exist.
	Diverged     bool              `json:"diverged"`
	LocalChanges int               `json:"localChanges"`
	Pending      map[string]int    `json:"pending,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`
	LastError    string            `json:"lastError,omitempty"`
	LastSync     time.Time         `json:"lastSync,omitempty"`
}

// ChangeFunc is called after every change to a mirror or to the status.
type ChangeFunc func(Status, Metrics)

// Dashboard bundles the four collection mirrors of the admin dashboard.
type Dashboard struct {
	Client    *Client
	Messages  *Resource[models.Message, *models.Message]
	Ratings   *Resource[models.Rating, *models.Rating]
	BlogPosts *Resource[models.BlogPost, *models.BlogPost]
	Projects  *Resource[models.Project, *models.Project]

	mu        sync.Mutex
	mode      Mode
	pending   map[string]int
	errs      map[string]string
	lastErr   string
	lastSync  time.Time
	listeners []ChangeFunc
	now       func() time.Time
}

func New(c *Client, mode Mode) *Dashboard {
	if mode == "" {
		mode = ModeOnline
	}
	d := &Dashboard{
		Client:  c,
		mode:    mode,
		pending: map[string]int{},
		errs:    map[string]string{},
		now:     time.Now,
	}
	d.Messages = newResource[models.Message, *models.Message](Messages, "/api/messages", c, d.Mode, d.handle)
	d.Messages.validate = service.ValidateMessage
	d.Messages.prepare = func(m *models.Message) {
		if m.Date.IsZero() {
			m.Date = d.now().UTC()
		}
	}
	d.Ratings = newResource[models.Rating, *models.Rating](Ratings, "/api/portfolio-ratings", c, d.Mode, d.handle)
	d.Ratings.validate = service.ValidateRating
	d.Ratings.prepare = func(r *models.Rating) {
		if r.Date.IsZero() {
			r.Date = d.now().UTC()
		}
	}
	d.BlogPosts = newResource[models.BlogPost, *models.BlogPost](BlogPosts, "/api/blog-posts", c, d.Mode, d.handle)
	d.BlogPosts.validate = service.ValidatePost
	d.Projects = newResource[models.Project, *models.Project](Projects, "/api/projects", c, d.Mode, d.handle)
	d.Projects.validate = service.ValidateProject
	return d
}

func (d *Dashboard) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

func (d *Dashboard) SetMode(m Mode) {
	d.mu.Lock()
	d.mode = m
	d.mu.Unlock()
	d.notify()
}

// OnChange registers fn; it runs synchronously on the goroutine that made
// the change.
func (d *Dashboard) OnChange(fn ChangeFunc) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

func (d *Dashboard) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statusLocked()
}

func (d *Dashboard) statusLocked() Status {
	st := Status{Mode: d.mode, LastError: d.lastErr, LastSync: d.lastSync}
	if len(d.pending) > 0 {
		st.Pending = make(map[string]int, len(d.pending))
		for k, n := range d.pending {
			st.Pending[k] = n
			st.LocalChanges += n
		}
	}
	if len(d.errs) > 0 {
		st.Errors = make(map[string]string, len(d.errs))
		for k, e := range d.errs {
			st.Errors[k] = e
		}
	}
	st.Diverged = st.LocalChanges > 0
	return st
}

// Metrics derives the overview counters from the current mirrors.
func (d *Dashboard) Metrics() Metrics {
	return Compute(d.Messages.Items(), d.Ratings.Items(), d.BlogPosts.Items(), d.Projects.Items())
}

func (d *Dashboard) handle(ev event) {
	d.mu.Lock()
	switch ev.kind {
	case evSynced:
		// server state replaces whatever was changed locally
		delete(d.pending, ev.collection)
		delete(d.errs, ev.collection)
		d.lastSync = d.now()
	case evConfirmed:
		delete(d.errs, ev.collection)
	case evLocal:
		d.pending[ev.collection]++
	case evStale:
	}
	if ev.err != nil {
		d.errs[ev.collection] = ev.err.Error()
		d.lastErr = ev.err.Error()
	}
	d.mu.Unlock()
	d.notify()
}

func (d *Dashboard) notify() {
	d.mu.Lock()
	st := d.statusLocked()
	ls := append([]ChangeFunc(nil), d.listeners...)
	d.mu.Unlock()
	if len(ls) == 0 {
		return
	}
	m := d.Metrics()
	for _, fn := range ls {
		fn(st, m)
	}
}

// Refresh fetches all four collections concurrently.
func (d *Dashboard) Refresh(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Messages.Fetch(ctx) })
	g.Go(func() error { return d.Ratings.Fetch(ctx) })
	g.Go(func() error { return d.BlogPosts.Fetch(ctx) })
	g.Go(func() error { return d.Projects.Fetch(ctx) })
	return g.Wait()
}

// SubmitRating sends a rating through the public rating form. The score is
// checked before anything is sent.
func (d *Dashboard) SubmitRating(ctx context.Context, score int, comment string) error {
	r := models.Rating{Rating: score, Comment: comment}
	if err := service.ValidateRating(r); err != nil {
		return err
	}
	return d.Ratings.submit(ctx, "/api/portfolio-rating", r)
}
