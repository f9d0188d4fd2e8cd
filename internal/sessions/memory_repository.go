package sessions

import (
	"context"
	"sync"
)

// MemoryRepository keeps sessions in process memory. Used when neither Redis
// nor MongoDB is configured; sessions do not survive a restart.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: map[string]Session{}}
}

func (r *MemoryRepository) Create(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.RefreshToken] = *s
	return nil
}

func (r *MemoryRepository) GetByRefresh(_ context.Context, refresh string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[refresh]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *MemoryRepository) DeleteByRefresh(_ context.Context, refresh string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, refresh)
	return nil
}
