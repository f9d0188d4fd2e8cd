package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/internal/notify"
	"github.com/devfolio/portfolio-api/internal/portfolio/handler"
	"github.com/devfolio/portfolio-api/internal/portfolio/service"
	"github.com/devfolio/portfolio-api/internal/query"
	"github.com/devfolio/portfolio-api/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

// apiServer runs the real API and can be told to fail.
type apiServer struct {
	*httptest.Server
	fail     atomic.Int32 // status for every request, 0 passes through
	failGets atomic.Bool
	mailDown atomic.Bool
	hits     atomic.Int32
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	s := &apiServer{}
	n := notify.Func(func(context.Context, models.Message) error {
		if s.mailDown.Load() {
			return errors.New("smtp down")
		}
		return nil
	})
	g := gin.New()
	handler.RegisterRoutes(g, service.New(store.NewMemorySet().Set(), n), handler.Options{})
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if code := s.fail.Load(); code != 0 {
			http.Error(w, `{"error":"boom"}`, int(code))
			return
		}
		if s.failGets.Load() && r.Method == http.MethodGet {
			http.Error(w, `{"error":"boom"}`, http.StatusBadGateway)
			return
		}
		g.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func testClient(url string) *Client {
	return NewClient(url, WithHTTPClient(&http.Client{
		Timeout:   2 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}))
}

// deadURL points at a server that is already closed.
func deadURL() string {
	s := httptest.NewServer(http.NotFoundHandler())
	s.Close()
	return s.URL
}

func post(title, status string) models.BlogPost {
	return models.BlogPost{Title: title, Date: "2024-01-15", Status: status, Content: "Content here..."}
}

func TestOnlineRoundTrip(t *testing.T) {
	srv := newAPIServer(t)
	d := New(testClient(srv.URL), ModeOnline)
	ctx := context.Background()

	p1, err := d.BlogPosts.Create(ctx, post("Web Security Best Practices", models.PostPublished))
	require.NoError(t, err)
	require.Equal(t, int64(1), p1.ID)
	p2, err := d.BlogPosts.Create(ctx, post("Cybersecurity Trends", models.PostDraft))
	require.NoError(t, err)
	require.Equal(t, int64(2), p2.ID)

	updated, err := d.BlogPosts.Update(ctx, p2.ID, map[string]any{"status": models.PostPublished})
	require.NoError(t, err)
	require.Equal(t, models.PostPublished, updated.Status)
	require.Equal(t, "Cybersecurity Trends", updated.Title)

	got, ok := d.BlogPosts.Get(p2.ID)
	require.True(t, ok)
	require.Equal(t, models.PostPublished, got.Status)

	require.NoError(t, d.BlogPosts.Delete(ctx, p1.ID))
	require.Len(t, d.BlogPosts.Items(), 1)

	err = d.BlogPosts.Delete(ctx, p1.ID)
	require.True(t, IsStatus(err, http.StatusNotFound), err)

	m := d.Metrics()
	require.Equal(t, 1, m.PublishedPosts)
	require.Equal(t, 0, m.DraftPosts)
	require.False(t, d.Status().Diverged)
}

func TestOnlineFailureLeavesMirror(t *testing.T) {
	srv := newAPIServer(t)
	d := New(testClient(srv.URL), ModeOnline)
	ctx := context.Background()

	_, err := d.Projects.Create(ctx, models.Project{Name: "E-commerce Platform", Description: "Full-stack", Status: models.ProjectActive, StartDate: "2024-01-01", EndDate: "2024-03-01"})
	require.NoError(t, err)

	srv.fail.Store(http.StatusInternalServerError)
	_, err = d.Projects.Create(ctx, models.Project{Name: "Other", Description: "x", Status: models.ProjectPending, StartDate: "2024-02-01", EndDate: "2024-05-01"})
	require.True(t, IsStatus(err, http.StatusInternalServerError), err)
	require.Len(t, d.Projects.Items(), 1)
	require.False(t, d.Status().Diverged)
}

func TestFallbackAppliesLocalChangeOn5xx(t *testing.T) {
	srv := newAPIServer(t)
	d := New(testClient(srv.URL), ModeFallback)
	ctx := context.Background()

	var (
		mu      sync.Mutex
		changes []Status
	)
	d.OnChange(func(st Status, _ Metrics) {
		mu.Lock()
		changes = append(changes, st)
		mu.Unlock()
	})

	for _, title := range []string{"a", "b"} {
		_, err := d.BlogPosts.Create(ctx, post(title, models.PostDraft))
		require.NoError(t, err)
	}

	srv.fail.Store(http.StatusServiceUnavailable)
	local, err := d.BlogPosts.Create(ctx, post("c", models.PostPublished))
	require.NoError(t, err)
	require.Equal(t, int64(3), local.ID)

	_, err = d.BlogPosts.Update(ctx, 1, map[string]any{"status": models.PostPublished})
	require.NoError(t, err)
	require.NoError(t, d.BlogPosts.Delete(ctx, 2))

	st := d.Status()
	require.True(t, st.Diverged)
	require.Equal(t, 3, st.LocalChanges)
	require.Equal(t, 3, st.Pending[BlogPosts])
	require.Contains(t, st.LastError, "503")
	mu.Lock()
	require.True(t, changes[len(changes)-1].Diverged)
	mu.Unlock()

	m := d.Metrics()
	require.Equal(t, 2, m.TotalPosts)
	require.Equal(t, 2, m.PublishedPosts)

	// unknown ids are still reported
	err = d.BlogPosts.Delete(ctx, 42)
	require.ErrorIs(t, err, ErrNotFound)

	// a failed fetch keeps the mirror
	require.NoError(t, d.BlogPosts.Fetch(ctx))
	require.Len(t, d.BlogPosts.Items(), 2)

	// once the server is back its state wins
	srv.fail.Store(0)
	require.NoError(t, d.Refresh(ctx))
	require.False(t, d.Status().Diverged)
	require.Len(t, d.BlogPosts.Items(), 2)
	first, _ := d.BlogPosts.Get(1)
	require.Equal(t, models.PostDraft, first.Status)
}

func TestFallbackKeeps4xxAuthoritative(t *testing.T) {
	srv := newAPIServer(t)
	d := New(testClient(srv.URL), ModeFallback)
	ctx := context.Background()

	_, err := d.BlogPosts.Create(ctx, models.BlogPost{Title: "only a title"})
	require.True(t, IsStatus(err, http.StatusBadRequest), err)
	require.Empty(t, d.BlogPosts.Items())

	_, err = d.BlogPosts.Update(ctx, 7, map[string]any{"status": models.PostDraft})
	require.True(t, IsStatus(err, http.StatusNotFound), err)
	require.False(t, d.Status().Diverged)
}

func TestFallbackOnTransportError(t *testing.T) {
	d := New(testClient(deadURL()), ModeFallback)
	ctx := context.Background()

	require.NoError(t, d.Refresh(ctx))
	require.NotEmpty(t, d.Status().Errors[Messages])

	m, err := d.Messages.Create(ctx, models.Message{Name: "A", Email: "a@x.com", Subject: "S", Message: "M"})
	require.NoError(t, err)
	require.Equal(t, int64(1), m.ID)
	require.False(t, m.Date.IsZero())

	// local writes validate like the API
	_, err = d.Messages.Create(ctx, models.Message{Name: "A"})
	require.ErrorIs(t, err, service.ErrMissingFields)

	_, err = d.Messages.Update(ctx, m.ID, map[string]any{"read": true})
	require.NoError(t, err)
	require.Equal(t, 0, d.Metrics().UnreadMessages)
}

func TestConfirmedValueAppliedWhenRefetchFails(t *testing.T) {
	srv := newAPIServer(t)
	d := New(testClient(srv.URL), ModeOnline)
	ctx := context.Background()

	srv.failGets.Store(true)
	p, err := d.BlogPosts.Create(ctx, post("a", models.PostDraft))
	require.NoError(t, err)
	require.Equal(t, []models.BlogPost{p}, d.BlogPosts.Items())
	require.False(t, d.Status().Diverged)
}

func TestOfflineNeverContactsServer(t *testing.T) {
	srv := newAPIServer(t)
	d := New(testClient(srv.URL), ModeOffline)
	ctx := context.Background()

	require.NoError(t, d.Refresh(ctx))
	p, err := d.Projects.Create(ctx, models.Project{Name: "Data Management System", Description: "Enterprise", Status: models.ProjectPending, StartDate: "2024-02-01", EndDate: "2024-05-01"})
	require.NoError(t, err)
	_, err = d.Projects.Update(ctx, p.ID, map[string]any{"status": models.ProjectCompleted})
	require.NoError(t, err)
	require.NoError(t, d.SubmitRating(ctx, 5, "Great"))

	got, err := d.Projects.Query(ctx, query.ProjectFilter{Status: models.ProjectCompleted})
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.Zero(t, srv.hits.Load())
	require.Equal(t, 1, d.Metrics().CompletedProjects)
	require.Equal(t, 3, d.Status().LocalChanges)
}

func TestAverageRatingOnBothPaths(t *testing.T) {
	scores := []int{5, 4, 5, 4, 5}
	ctx := context.Background()

	srv := newAPIServer(t)
	online := New(testClient(srv.URL), ModeOnline)
	for _, s := range scores {
		require.NoError(t, online.SubmitRating(ctx, s, ""))
	}
	require.InDelta(t, 4.6, online.Metrics().AverageRating, 1e-9)
	require.Equal(t, 3, online.Metrics().FiveStarRatings)

	var last Metrics
	offline := New(testClient(srv.URL), ModeOffline)
	offline.OnChange(func(_ Status, m Metrics) { last = m })
	for _, s := range scores {
		require.NoError(t, offline.SubmitRating(ctx, s, ""))
	}
	require.InDelta(t, 4.6, last.AverageRating, 1e-9)
	require.InDelta(t, online.Metrics().AverageRating, offline.Metrics().AverageRating, 1e-9)
}

func TestSubmitRatingValidatesLocally(t *testing.T) {
	srv := newAPIServer(t)
	d := New(testClient(srv.URL), ModeOnline)

	err := d.SubmitRating(context.Background(), 0, "no stars")
	require.ErrorIs(t, err, service.ErrRatingRequired)
	err = d.SubmitRating(context.Background(), 6, "")
	require.ErrorIs(t, err, service.ErrRatingRange)
	require.Zero(t, srv.hits.Load())
}

func TestQueryServerAndLocalAgree(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()
	d := New(testClient(srv.URL), ModeOnline)
	for _, p := range []models.BlogPost{post("React Tips", models.PostPublished), post("Go tips", models.PostDraft), post("Security", models.PostPublished)} {
		_, err := d.BlogPosts.Create(ctx, p)
		require.NoError(t, err)
	}
	f := query.PostFilter{Title: "tips"}

	remote, err := d.BlogPosts.Query(ctx, f)
	require.NoError(t, err)
	require.Len(t, remote, 2)

	d.SetMode(ModeOffline)
	local, err := d.BlogPosts.Query(ctx, f)
	require.NoError(t, err)
	require.Equal(t, remote, local)
}

func TestModal(t *testing.T) {
	d := New(testClient(deadURL()), ModeOffline)
	ctx := context.Background()
	modal := NewModal(d.BlogPosts, func() models.BlogPost {
		return models.BlogPost{Status: models.PostDraft, Date: "2024-01-01"}
	})

	require.Equal(t, ModalClosed, modal.State())
	require.Nil(t, modal.Draft())
	_, err := modal.Submit(ctx)
	require.ErrorIs(t, err, ErrModalClosed)

	require.NoError(t, modal.OpenCreate())
	require.Equal(t, ModalCreate, modal.State())
	require.ErrorIs(t, modal.OpenCreate(), ErrModalOpen)
	require.Equal(t, models.PostDraft, modal.Draft().Status)

	// invalid drafts keep the modal open
	_, err = modal.Submit(ctx)
	require.ErrorIs(t, err, service.ErrMissingFields)
	require.Equal(t, ModalCreate, modal.State())

	modal.Draft().Title = "Hello"
	modal.Draft().Content = "Body"
	created, err := modal.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), created.ID)
	require.Equal(t, ModalClosed, modal.State())

	require.NoError(t, modal.OpenEdit(created))
	require.Equal(t, ModalEdit, modal.State())
	modal.Draft().Title = "Discarded"
	modal.Cancel()
	stored, _ := d.BlogPosts.Get(created.ID)
	require.Equal(t, "Hello", stored.Title)

	require.NoError(t, modal.OpenEdit(stored))
	modal.Draft().Status = models.PostPublished
	saved, err := modal.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, created.ID, saved.ID)
	require.Equal(t, models.PostPublished, saved.Status)
	require.Len(t, d.BlogPosts.Items(), 1)
}

func TestModalEditClearsFields(t *testing.T) {
	for _, mode := range []Mode{ModeOnline, ModeFallback} {
		t.Run(string(mode), func(t *testing.T) {
			srv := newAPIServer(t)
			d := New(testClient(srv.URL), mode)
			ctx := context.Background()

			r, err := d.Ratings.Create(ctx, models.Rating{Rating: 4, Comment: "Great"})
			require.NoError(t, err)
			m, err := d.Messages.Create(ctx, models.Message{Name: "A", Email: "a@x.com", Subject: "S", Message: "M", Read: true, Source: models.SourceBlog})
			require.NoError(t, err)
			require.Equal(t, 0, d.Metrics().UnreadMessages)

			if mode == ModeFallback {
				srv.fail.Store(http.StatusServiceUnavailable)
			}

			ratings := NewModal(d.Ratings, func() models.Rating { return models.Rating{} })
			require.NoError(t, ratings.OpenEdit(r))
			ratings.Draft().Comment = ""
			savedR, err := ratings.Submit(ctx)
			require.NoError(t, err)
			require.Equal(t, "", savedR.Comment)
			require.Equal(t, 4, savedR.Rating)

			messages := NewModal(d.Messages, func() models.Message { return models.Message{} })
			require.NoError(t, messages.OpenEdit(m))
			messages.Draft().Read = false
			messages.Draft().Source = ""
			savedM, err := messages.Submit(ctx)
			require.NoError(t, err)
			require.False(t, savedM.Read)
			require.Equal(t, "", savedM.Source)
			require.Equal(t, 1, d.Metrics().UnreadMessages)

			stored, ok := d.Ratings.Get(r.ID)
			require.True(t, ok)
			require.Equal(t, "", stored.Comment)

			if mode == ModeFallback {
				require.True(t, d.Status().Diverged)
				return
			}
			// the server copy is cleared too
			require.NoError(t, d.Refresh(ctx))
			stored, _ = d.Ratings.Get(r.ID)
			require.Equal(t, "", stored.Comment)
			msg, _ := d.Messages.Get(m.ID)
			require.False(t, msg.Read)
		})
	}
}

func TestContactForm(t *testing.T) {
	srv := newAPIServer(t)
	c := testClient(srv.URL)
	ctx := context.Background()

	var seen []string
	f := &ContactForm{Name: "A", Email: "a@x.com", Subject: "S", Message: "M"}
	require.NoError(t, f.Submit(ctx, c, func(s string) { seen = append(seen, s) }))
	require.Equal(t, []string{ContactSending, ContactSent}, seen)
	require.Equal(t, ContactSent, f.Status)
	require.Empty(t, f.Name)

	srv.mailDown.Store(true)
	f = &ContactForm{Name: "B", Email: "b@x.com", Subject: "S", Message: "M"}
	require.Error(t, f.Submit(ctx, c, nil))
	require.Equal(t, ContactFailed, f.Status)
	require.Equal(t, "B", f.Name)

	// both messages were stored despite the mail failure
	d := New(c, ModeOnline)
	require.NoError(t, d.Messages.Fetch(ctx))
	require.Len(t, d.Messages.Items(), 2)

	f = &ContactForm{Name: "C", Email: "c@x.com", Subject: "S", Message: "M"}
	require.Error(t, f.Submit(ctx, testClient(deadURL()), nil))
	require.Equal(t, ContactError, f.Status)
}

func TestStateSaveLoad(t *testing.T) {
	ctx := context.Background()
	d := New(testClient(deadURL()), ModeOffline)
	_, err := d.Messages.Create(ctx, models.Message{Name: "A", Email: "a@x.com", Subject: "S", Message: "M", Source: models.SourceContact})
	require.NoError(t, err)
	require.NoError(t, d.SubmitRating(ctx, 4, "ok"))

	path := filepath.Join(t.TempDir(), "state.json")
	empty, err := LoadState(path)
	require.NoError(t, err)
	require.Empty(t, empty.Messages)

	require.NoError(t, SaveState(path, d.Snapshot()))
	st, err := LoadState(path)
	require.NoError(t, err)

	d2 := New(testClient(deadURL()), ModeOffline)
	d2.Restore(st)
	require.Equal(t, d.Messages.Items()[0].Name, d2.Messages.Items()[0].Name)
	require.Equal(t, 2, d2.Status().LocalChanges)
	require.Equal(t, map[string]int{models.SourceContact: 1}, d2.Metrics().MessagesBySource)
}

func TestLocalIDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	d := New(testClient(deadURL()), ModeOffline)
	for _, title := range []string{"a", "b", "c"} {
		_, err := d.BlogPosts.Create(ctx, post(title, models.PostDraft))
		require.NoError(t, err)
	}
	require.NoError(t, d.BlogPosts.Delete(ctx, 3))

	p, err := d.BlogPosts.Create(ctx, post("d", models.PostDraft))
	require.NoError(t, err)
	require.Equal(t, int64(4), p.ID)
	require.NoError(t, d.BlogPosts.Delete(ctx, 4))

	// the counter travels with the saved state
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, SaveState(path, d.Snapshot()))
	st, err := LoadState(path)
	require.NoError(t, err)
	require.Equal(t, int64(4), st.LastIDs[BlogPosts])

	d2 := New(testClient(deadURL()), ModeOffline)
	d2.Restore(st)
	p, err = d2.BlogPosts.Create(ctx, post("e", models.PostDraft))
	require.NoError(t, err)
	require.Equal(t, int64(5), p.ID)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	require.Equal(t, ModeOnline, m)
	m, err = ParseMode("offline")
	require.NoError(t, err)
	require.Equal(t, ModeOffline, m)
	_, err = ParseMode("sometimes")
	require.Error(t, err)
}
