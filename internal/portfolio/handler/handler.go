package handler

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/internal/portfolio/service"
	"github.com/devfolio/portfolio-api/internal/query"
	"github.com/devfolio/portfolio-api/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Options carries the optional middlewares wrapped around the routes.
// A nil handler is skipped.
type Options struct {
	// AdminGuard protects dashboard routes (listing messages, any write
	// besides the public contact and rating forms).
	AdminGuard gin.HandlerFunc
	// ContactLimit and RatingLimit throttle the public submission forms.
	ContactLimit gin.HandlerFunc
	RatingLimit  gin.HandlerFunc
}

func chain(mws ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mws))
	for _, mw := range mws {
		if mw != nil {
			out = append(out, mw)
		}
	}
	return out
}

func with(mw gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	return append(chain(mw), h)
}

// RegisterRoutes mounts the portfolio API under /api.
func RegisterRoutes(r gin.IRouter, svc *service.Service, opts Options) {
	api := r.Group("/api")
	guard := opts.AdminGuard

	api.POST("/contact", with(opts.ContactLimit, submitContact(svc))...)
	api.POST("/portfolio-rating", with(opts.RatingLimit, submitRating(svc))...)

	messages := resource[models.Message, *models.Message]{
		col:      svc.Messages,
		notFound: "Message not found",
		parse: func(v url.Values) (query.Filter[models.Message], error) {
			return query.ParseMessageFilter(v)
		},
	}
	api.GET("/messages", with(guard, messages.list)...)
	api.GET("/messages/query", with(guard, messages.query)...)
	api.POST("/messages", with(guard, messages.create)...)
	api.PUT("/messages/:id", with(guard, messages.update)...)
	api.DELETE("/messages/:id", with(guard, messages.remove)...)

	ratings := resource[models.Rating, *models.Rating]{
		col:      svc.Ratings,
		notFound: "Rating not found",
		parse: func(v url.Values) (query.Filter[models.Rating], error) {
			return query.ParseRatingFilter(v)
		},
	}
	api.GET("/portfolio-ratings", ratings.list)
	api.GET("/portfolio-ratings/query", ratings.query)
	api.POST("/portfolio-ratings", with(guard, ratings.create)...)
	api.PUT("/portfolio-ratings/:id", with(guard, ratings.update)...)
	api.DELETE("/portfolio-ratings/:id", with(guard, ratings.remove)...)

	posts := resource[models.BlogPost, *models.BlogPost]{
		col:      svc.BlogPosts,
		notFound: "Blog post not found",
		parse: func(v url.Values) (query.Filter[models.BlogPost], error) {
			return query.ParsePostFilter(v)
		},
	}
	api.GET("/blog-posts", posts.list)
	api.GET("/blog-posts/query", posts.query)
	api.POST("/blog-posts", with(guard, posts.create)...)
	api.PUT("/blog-posts/:id", with(guard, posts.update)...)
	api.DELETE("/blog-posts/:id", with(guard, posts.remove)...)

	projects := resource[models.Project, *models.Project]{
		col:      svc.Projects,
		notFound: "Project not found",
		parse: func(v url.Values) (query.Filter[models.Project], error) {
			return query.ParseProjectFilter(v)
		},
	}
	api.GET("/projects", projects.list)
	api.GET("/projects/query", projects.query)
	api.POST("/projects", with(guard, projects.create)...)
	api.PUT("/projects/:id", with(guard, projects.update)...)
	api.DELETE("/projects/:id", with(guard, projects.remove)...)
}

// writeError maps service errors to the static JSON error bodies of the API.
func writeError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, service.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
	case errors.Is(err, service.ErrRatingRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rating is required"})
	case errors.Is(err, service.ErrRatingRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rating must be between 1 and 5"})
	case errors.Is(err, service.ErrInvalidBody):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
	case errors.Is(err, query.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
	case errors.Is(err, service.ErrNotification):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send email"})
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// bindJSON decodes the body into v. An empty body leaves v untouched so
// presence validation reports the missing fields.
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func submitContact(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in models.Message
		if err := bindJSON(c, &in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if _, err := svc.SubmitContact(c.Request.Context(), in); err != nil {
			writeError(c, err, "Message not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Message received and email sent"})
	}
}

func submitRating(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in models.Rating
		if err := bindJSON(c, &in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if _, err := svc.SubmitRating(c.Request.Context(), in); err != nil {
			writeError(c, err, "Rating not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Rating submitted"})
	}
}

// resource serves the generic CRUD and query routes of one collection.
type resource[E any, P models.Ptr[E]] struct {
	col      *service.Collection[E, P]
	notFound string
	parse    func(url.Values) (query.Filter[E], error)
}

func (rs resource[E, P]) id(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": rs.notFound})
		return 0, false
	}
	return id, true
}

func (rs resource[E, P]) list(c *gin.Context) {
	items, err := rs.col.List(c.Request.Context())
	if err != nil {
		writeError(c, err, rs.notFound)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (rs resource[E, P]) query(c *gin.Context) {
	f, err := rs.parse(c.Request.URL.Query())
	if err != nil {
		writeError(c, err, rs.notFound)
		return
	}
	items, err := rs.col.Query(c.Request.Context(), f)
	if err != nil {
		writeError(c, err, rs.notFound)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (rs resource[E, P]) create(c *gin.Context) {
	var e E
	if err := bindJSON(c, &e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	out, err := rs.col.Create(c.Request.Context(), e)
	if err != nil {
		writeError(c, err, rs.notFound)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (rs resource[E, P]) update(c *gin.Context) {
	id, ok := rs.id(c)
	if !ok {
		return
	}
	out, err := rs.col.Update(c.Request.Context(), id, func(e *E) error {
		return bindJSON(c, e)
	})
	if err != nil {
		writeError(c, err, rs.notFound)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (rs resource[E, P]) remove(c *gin.Context) {
	id, ok := rs.id(c)
	if !ok {
		return
	}
	if err := rs.col.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err, rs.notFound)
		return
	}
	c.Status(http.StatusNoContent)
}
