// Package admin authenticates the single dashboard operator configured for
// the site.
package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devfolio/portfolio-api/internal/config"
	"github.com/devfolio/portfolio-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Service checks admin credentials against a bcrypt hash.
type Service struct {
	username string
	hash     []byte

	mu    sync.Mutex
	admin models.Admin
	now   func() time.Time
}

// HashPassword returns the bcrypt hash for a plain password (used by the CLI
// to produce ADMIN_PASSWORD_HASH).
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// NewService builds the authenticator from config. A plain password is
// hashed once at startup; a configured hash is used as is.
func NewService(cfg config.AdminConfig) (*Service, error) {
	if !cfg.Enabled() {
		return nil, errors.New("admin credentials not configured")
	}
	hash := []byte(cfg.PasswordHash)
	if len(hash) == 0 {
		h, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		hash = h
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH: %w", err)
	}
	return &Service{
		username: cfg.Username,
		hash:     hash,
		admin:    models.Admin{Username: cfg.Username, Name: cfg.Username, Email: cfg.Email},
		now:      time.Now,
	}, nil
}

// Authenticate returns the admin profile when username and password match.
func (s *Service) Authenticate(_ context.Context, username, password string) (models.Admin, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passErr := bcrypt.CompareHashAndPassword(s.hash, []byte(password))
	if !userOK || passErr != nil {
		return models.Admin{}, ErrInvalidCredentials
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin.LastLogin = s.now().UTC()
	return s.admin, nil
}

// Profile returns the admin profile for a verified subject.
func (s *Service) Profile(subject string) (models.Admin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subject != s.username {
		return models.Admin{}, false
	}
	return s.admin, true
}
