package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/internal/notify"
	"github.com/devfolio/portfolio-api/internal/portfolio/service"
	"github.com/devfolio/portfolio-api/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type testAPI struct {
	t       *testing.T
	g       *gin.Engine
	mailErr error
}

func newTestAPI(t *testing.T, opts Options) *testAPI {
	a := &testAPI{t: t, g: gin.New()}
	n := notify.Func(func(context.Context, models.Message) error { return a.mailErr })
	RegisterRoutes(a.g, service.New(store.NewMemorySet().Set(), n), opts)
	return a
}

func (a *testAPI) do(method, path, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.g.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, w)["error"]
}

const postBody = `{"title":"Hello","date":"2024-01-01","status":"Draft","content":"Body"}`

func TestCreateAssignsSequentialIDs(t *testing.T) {
	api := newTestAPI(t, Options{})
	for i := 1; i <= 3; i++ {
		w := api.do(http.MethodPost, "/api/blog-posts", postBody)
		require.Equal(t, http.StatusCreated, w.Code)
		require.Equal(t, int64(i), decode[models.BlogPost](t, w).ID)
	}
}

func TestCreateMissingFieldsLeavesCollectionUnchanged(t *testing.T) {
	api := newTestAPI(t, Options{})
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/projects",
		`{"name":"Site","description":"d","status":"Active","startDate":"2024-01-01","endDate":"2024-02-01"}`).Code)

	for _, body := range []string{"", `{}`, `{"name":"Site"}`, `{"name":"Site","description":"d","status":"Active","startDate":"2024-01-01"}`} {
		w := api.do(http.MethodPost, "/api/projects", body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		require.Equal(t, "Missing required fields", errorBody(t, w))
	}
	list := decode[[]models.Project](t, api.do(http.MethodGet, "/api/projects", ""))
	require.Len(t, list, 1)

	w := api.do(http.MethodPost, "/api/projects", `{"name":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid request body", errorBody(t, w))
}

func TestUpdateAndDeleteUnknownID(t *testing.T) {
	api := newTestAPI(t, Options{})
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/blog-posts", postBody).Code)

	cases := []struct {
		path string
		msg  string
	}{
		{"/api/blog-posts/99", "Blog post not found"},
		{"/api/blog-posts/abc", "Blog post not found"},
		{"/api/projects/1", "Project not found"},
		{"/api/messages/7", "Message not found"},
		{"/api/portfolio-ratings/7", "Rating not found"},
	}
	for _, tc := range cases {
		w := api.do(http.MethodPut, tc.path, `{"status":"Published"}`)
		require.Equal(t, http.StatusNotFound, w.Code, tc.path)
		require.Equal(t, tc.msg, errorBody(t, w))

		w = api.do(http.MethodDelete, tc.path, "")
		require.Equal(t, http.StatusNotFound, w.Code, tc.path)
		require.Equal(t, tc.msg, errorBody(t, w))
	}

	list := decode[[]models.BlogPost](t, api.do(http.MethodGet, "/api/blog-posts", ""))
	require.Len(t, list, 1)
	require.Equal(t, models.PostDraft, list[0].Status)
}

func TestDeleteIsNotIdempotentSuccess(t *testing.T) {
	api := newTestAPI(t, Options{})
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/blog-posts", postBody).Code)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/blog-posts", postBody).Code)

	w := api.do(http.MethodDelete, "/api/blog-posts/1", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Body.String())

	list := decode[[]models.BlogPost](t, api.do(http.MethodGet, "/api/blog-posts", ""))
	require.Len(t, list, 1)
	require.Equal(t, int64(2), list[0].ID)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/blog-posts/1", "").Code)
	}

	// ids are not reused after a delete
	w = api.do(http.MethodPost, "/api/blog-posts", postBody)
	require.Equal(t, int64(3), decode[models.BlogPost](t, w).ID)
}

func TestContactSubmission(t *testing.T) {
	api := newTestAPI(t, Options{})
	body := `{"name":"A","email":"a@x.com","subject":"S","message":"M"}`

	w := api.do(http.MethodPost, "/api/contact", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Message received and email sent", decode[map[string]string](t, w)["message"])

	api.mailErr = errors.New("smtp: connection refused")
	w = api.do(http.MethodPost, "/api/contact", body)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Failed to send email", errorBody(t, w))

	msgs := decode[[]models.Message](t, api.do(http.MethodGet, "/api/messages", ""))
	require.Len(t, msgs, 2)
	for i, m := range msgs {
		require.Equal(t, int64(i+1), m.ID)
		require.Equal(t, "A", m.Name)
		require.Equal(t, "a@x.com", m.Email)
		require.Equal(t, "S", m.Subject)
		require.Equal(t, "M", m.Message)
		require.False(t, m.Date.IsZero())
		require.False(t, m.Read)
	}

	w = api.do(http.MethodPost, "/api/contact", `{"name":"A","email":"a@x.com"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing required fields", errorBody(t, w))
}

func TestRatingSubmission(t *testing.T) {
	api := newTestAPI(t, Options{})

	w := api.do(http.MethodPost, "/api/portfolio-rating", `{"rating":5,"comment":"Great"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Rating submitted", decode[map[string]string](t, w)["message"])

	w = api.do(http.MethodPost, "/api/portfolio-rating", `{"comment":"no score"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Rating is required", errorBody(t, w))

	w = api.do(http.MethodPost, "/api/portfolio-rating", `{"rating":9}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Rating must be between 1 and 5", errorBody(t, w))

	ratings := decode[[]models.Rating](t, api.do(http.MethodGet, "/api/portfolio-ratings", ""))
	require.Len(t, ratings, 1)
	require.Equal(t, int64(1), ratings[0].ID)
	require.Equal(t, 5, ratings[0].Rating)
	require.Equal(t, "Great", ratings[0].Comment)
	require.False(t, ratings[0].Date.IsZero())
}

func TestBlogPostRoundTrip(t *testing.T) {
	api := newTestAPI(t, Options{})
	created := decode[models.BlogPost](t, api.do(http.MethodPost, "/api/blog-posts", postBody))

	w := api.do(http.MethodPut, "/api/blog-posts/1", `{"id":50,"status":"Published"}`)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.BlogPost](t, w)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, created.Title, updated.Title)
	require.Equal(t, models.PostPublished, updated.Status)

	list := decode[[]models.BlogPost](t, api.do(http.MethodGet, "/api/blog-posts", ""))
	require.Len(t, list, 1)
	require.Equal(t, models.PostPublished, list[0].Status)

	w = api.do(http.MethodPut, "/api/blog-posts/1", `{"title":""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessageAdminRoutes(t *testing.T) {
	api := newTestAPI(t, Options{})
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/contact", `{"name":"A","email":"a@x.com","subject":"S","message":"M"}`).Code)

	w := api.do(http.MethodPost, "/api/messages", `{"name":"B","email":"b@x.com","subject":"S","message":"M","source":"blog","category":"feedback"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, int64(2), decode[models.Message](t, w).ID)

	w = api.do(http.MethodPut, "/api/messages/1", `{"read":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, decode[models.Message](t, w).Read)

	w = api.do(http.MethodGet, "/api/messages/query?read=false", "")
	require.Equal(t, http.StatusOK, w.Code)
	unread := decode[[]models.Message](t, w)
	require.Len(t, unread, 1)
	require.Equal(t, "B", unread[0].Name)

	w = api.do(http.MethodGet, "/api/messages/query?dateFrom=yesterday", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid query parameters", errorBody(t, w))
}

func TestQueryEndpoints(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.do(http.MethodPost, "/api/projects", `{"name":"Portfolio Site","description":"d","status":"Active","startDate":"2024-01-01","endDate":"2024-06-01"}`)
	api.do(http.MethodPost, "/api/projects", `{"name":"CLI","description":"d","status":"Completed","startDate":"2023-01-01","endDate":"2023-06-01"}`)
	api.do(http.MethodPost, "/api/portfolio-ratings", `{"rating":4}`)
	api.do(http.MethodPost, "/api/portfolio-ratings", `{"rating":5,"comment":"Nice"}`)

	projects := decode[[]models.Project](t, api.do(http.MethodGet, "/api/projects/query?status=active", ""))
	require.Len(t, projects, 1)
	require.Equal(t, "Portfolio Site", projects[0].Name)

	ratings := decode[[]models.Rating](t, api.do(http.MethodGet, "/api/portfolio-ratings/query?hasComment=true", ""))
	require.Len(t, ratings, 1)
	require.Equal(t, 5, ratings[0].Rating)

	posts := decode[[]models.BlogPost](t, api.do(http.MethodGet, "/api/blog-posts/query?title=x", ""))
	require.Empty(t, posts)
}

func TestAdminGuardAndLimits(t *testing.T) {
	deny := func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer ok" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		c.Next()
	}
	limited := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
	}
	api := newTestAPI(t, Options{AdminGuard: deny, RatingLimit: limited})

	require.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/messages", "").Code)
	require.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/blog-posts", postBody).Code)
	require.Equal(t, http.StatusUnauthorized, api.do(http.MethodDelete, "/api/projects/1", "").Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/blog-posts", "").Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/portfolio-ratings", "").Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/contact", `{"name":"A","email":"a@x.com","subject":"S","message":"M"}`).Code)
	require.Equal(t, http.StatusTooManyRequests, api.do(http.MethodPost, "/api/portfolio-rating", `{"rating":5}`).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("Authorization", "Bearer ok")
	w := httptest.NewRecorder()
	api.g.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
