// Package notify delivers contact-form notifications to the site owner.
package notify

import (
	"context"
	"fmt"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/pkg/logger"
)

// Notifier is called once a contact message has been stored.
type Notifier interface {
	NotifyContact(ctx context.Context, m models.Message) error
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, m models.Message) error

func (f Func) NotifyContact(ctx context.Context, m models.Message) error { return f(ctx, m) }

// Subject returns the notification subject line for m.
func Subject(m models.Message) string {
	return fmt.Sprintf("New Contact Message from %s - %s", m.Name, m.Subject)
}

// Body returns the plain-text notification body for m.
func Body(m models.Message) string {
	return fmt.Sprintf("Name: %s\nEmail: %s\nSubject: %s\nMessage: %s", m.Name, m.Email, m.Subject, m.Message)
}

// LogNotifier only logs the notification. Used when SMTP is not configured.
type LogNotifier struct{}

func (LogNotifier) NotifyContact(_ context.Context, m models.Message) error {
	logger.Infow("contact notification (mail disabled)", "id", m.ID, "subject", Subject(m))
	return nil
}
