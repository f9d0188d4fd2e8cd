package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ErrInvalidRefresh is returned by Rotate for unknown or expired refresh tokens.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service { return &Service{repo: r, now: time.Now} }

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CreateSession stores a new refresh session and returns the refresh token
func (s *Service) CreateSession(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	r, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	sess := &Session{
		RefreshToken: r,
		Subject:      subject,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return r, nil
}

// ValidateRefresh returns the session if refresh token is valid and not expired
func (s *Service) ValidateRefresh(ctx context.Context, refresh string) (*Session, error) {
	sess, err := s.repo.GetByRefresh(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if sess.Expired(s.now().UTC()) {
		// cleanup expired session
		_ = s.repo.DeleteByRefresh(ctx, refresh)
		return nil, nil
	}
	return sess, nil
}

// Rotate exchanges a valid refresh token for a new one. The old token stops
// working immediately.
func (s *Service) Rotate(ctx context.Context, refresh string, ttl time.Duration) (*Session, string, error) {
	sess, err := s.ValidateRefresh(ctx, refresh)
	if err != nil {
		return nil, "", err
	}
	if sess == nil {
		return nil, "", ErrInvalidRefresh
	}
	if err := s.repo.DeleteByRefresh(ctx, refresh); err != nil {
		return nil, "", err
	}
	next, err := s.CreateSession(ctx, sess.Subject, ttl)
	if err != nil {
		return nil, "", err
	}
	return sess, next, nil
}

func (s *Service) DeleteRefresh(ctx context.Context, refresh string) error {
	return s.repo.DeleteByRefresh(ctx, refresh)
}
