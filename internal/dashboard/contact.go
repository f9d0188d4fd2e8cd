package dashboard

import (
	"context"
	"net/http"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/pkg/logger"
)

// Status strings shown under the contact form.
const (
	ContactSending = "Sending..."
	ContactSent    = "Message sent successfully!"
	ContactFailed  = "Failed to send message."
	ContactError   = "Error sending message."
)

// ContactForm is the public contact form. Fields are cleared after a
// successful send.
type ContactForm struct {
	Name    string
	Email   string
	Subject string
	Message string

	Status string
}

// Submit posts the form to /api/contact. progress, when set, sees every
// status change. A non-2xx answer yields ContactFailed and a transport error
// ContactError; the error is returned either way.
func (f *ContactForm) Submit(ctx context.Context, c *Client, progress func(string)) error {
	set := func(s string) {
		f.Status = s
		if progress != nil {
			progress(s)
		}
	}
	set(ContactSending)
	msg := models.Message{Name: f.Name, Email: f.Email, Subject: f.Subject, Message: f.Message}
	err := c.do(ctx, http.MethodPost, "/api/contact", nil, msg, nil)
	switch {
	case err == nil:
		*f = ContactForm{}
		set(ContactSent)
	case IsAPIError(err):
		set(ContactFailed)
	default:
		logger.Errorf("contact form: %v", err)
		set(ContactError)
	}
	return err
}
