package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/internal/notify"
	"github.com/devfolio/portfolio-api/internal/store"
	"github.com/devfolio/portfolio-api/pkg/logger"
	"github.com/devfolio/portfolio-api/pkg/metrics"
)

var (
	ErrNotFound       = store.ErrNotFound
	ErrMissingFields  = errors.New("missing required fields")
	ErrRatingRequired = errors.New("rating is required")
	ErrRatingRange    = fmt.Errorf("rating must be between %d and %d", models.MinRating, models.MaxRating)
	ErrInvalidBody    = errors.New("invalid request body")
	// ErrNotification is returned by SubmitContact when the message was stored
	// but the notification could not be delivered.
	ErrNotification = errors.New("failed to send email")
)

const defaultNotifyTimeout = 10 * time.Second

// Service bundles the four portfolio collections and the contact flow.
type Service struct {
	Messages  *Collection[models.Message, *models.Message]
	Ratings   *Collection[models.Rating, *models.Rating]
	BlogPosts *Collection[models.BlogPost, *models.BlogPost]
	Projects  *Collection[models.Project, *models.Project]

	notifier      notify.Notifier
	notifyTimeout time.Duration
	now           func() time.Time
}

type Option func(*Service)

// WithNotifyTimeout bounds the notification call made by SubmitContact.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(set *store.Set, n notify.Notifier, opts ...Option) *Service {
	if n == nil {
		n = notify.LogNotifier{}
	}
	s := &Service{notifier: n, notifyTimeout: defaultNotifyTimeout, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.Messages = newCollection[models.Message, *models.Message]("messages", set.Messages, ValidateMessage, func(m *models.Message) {
		if m.Date.IsZero() {
			m.Date = s.now().UTC()
		}
	})
	s.Ratings = newCollection[models.Rating, *models.Rating]("ratings", set.Ratings, ValidateRating, func(r *models.Rating) {
		if r.Date.IsZero() {
			r.Date = s.now().UTC()
		}
	})
	s.BlogPosts = newCollection[models.BlogPost, *models.BlogPost]("blog_posts", set.BlogPosts, ValidatePost, nil)
	s.Projects = newCollection[models.Project, *models.Project]("projects", set.Projects, ValidateProject, nil)
	return s
}

// SubmitContact stores a message sent from the public contact form and then
// notifies the owner. The message stays stored when the notification fails;
// the caller gets ErrNotification together with the stored record.
func (s *Service) SubmitContact(ctx context.Context, in models.Message) (models.Message, error) {
	msg := models.Message{
		Name:    in.Name,
		Email:   in.Email,
		Subject: in.Subject,
		Message: in.Message,
		Date:    s.now().UTC(),
	}
	stored, err := s.Messages.Create(ctx, msg)
	if err != nil {
		return stored, err
	}

	nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyContact(nctx, stored); err != nil {
		metrics.ContactNotifications.WithLabelValues("error").Inc()
		logger.Errorf("contact notification for message %d failed: %v", stored.ID, err)
		return stored, fmt.Errorf("%w: %v", ErrNotification, err)
	}
	metrics.ContactNotifications.WithLabelValues("ok").Inc()
	return stored, nil
}

// SubmitRating stores a rating from the public rating widget. Only the score
// and comment are taken from the request.
func (s *Service) SubmitRating(ctx context.Context, in models.Rating) (models.Rating, error) {
	return s.Ratings.Create(ctx, models.Rating{Rating: in.Rating, Comment: in.Comment})
}

func blank(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}

// ValidateMessage and the other Validate functions check required-field
// presence. The dashboard client runs them before local mutations.
func ValidateMessage(m models.Message) error {
	if blank(m.Name, m.Email, m.Subject, m.Message) {
		return ErrMissingFields
	}
	return nil
}

// ValidateRating also enforces the 1-5 range.
func ValidateRating(r models.Rating) error {
	if r.Rating == 0 {
		return ErrRatingRequired
	}
	if r.Rating < models.MinRating || r.Rating > models.MaxRating {
		return ErrRatingRange
	}
	return nil
}

func ValidatePost(p models.BlogPost) error {
	if blank(p.Title, p.Date, p.Status, p.Content) {
		return ErrMissingFields
	}
	return nil
}

func ValidateProject(p models.Project) error {
	if blank(p.Name, p.Description, p.Status, p.StartDate, p.EndDate) {
		return ErrMissingFields
	}
	return nil
}
