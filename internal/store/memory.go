package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/devfolio/portfolio-api/internal/models"
)

// Memory is an in-process collection guarded by a RWMutex. Records are kept in
// insertion order; next is the last id handed out.
type Memory[E any, P models.Ptr[E]] struct {
	mu    sync.RWMutex
	items []E
	next  int64
}

func NewMemory[E any, P models.Ptr[E]]() *Memory[E, P] {
	return &Memory[E, P]{}
}

func (m *Memory[E, P]) List(_ context.Context) ([]E, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]E, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *Memory[E, P]) Get(_ context.Context, id int64) (E, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.index(id); i >= 0 {
		return m.items[i], nil
	}
	var zero E
	return zero, ErrNotFound
}

func (m *Memory[E, P]) Insert(_ context.Context, e E) (E, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	e = withID[E, P](e, m.next)
	m.items = append(m.items, e)
	return e, nil
}

func (m *Memory[E, P]) Update(_ context.Context, id int64, e E) (E, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		var zero E
		return zero, ErrNotFound
	}
	e = withID[E, P](e, id)
	m.items[i] = e
	return e, nil
}

func (m *Memory[E, P]) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return ErrNotFound
	}
	m.items = append(m.items[:i], m.items[i+1:]...)
	return nil
}

func (m *Memory[E, P]) index(id int64) int {
	for i := range m.items {
		if idOf[E, P](m.items[i]) == id {
			return i
		}
	}
	return -1
}

type memoryDump[E any] struct {
	Next  int64 `json:"next"`
	Items []E   `json:"items"`
}

// MarshalJSON writes the records together with the id counter so a restored
// collection keeps handing out fresh ids.
func (m *Memory[E, P]) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := m.items
	if items == nil {
		items = []E{}
	}
	return json.Marshal(memoryDump[E]{Next: m.next, Items: items})
}

func (m *Memory[E, P]) UnmarshalJSON(b []byte) error {
	var d memoryDump[E]
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	for _, e := range d.Items {
		if id := idOf[E, P](e); id > d.Next {
			d.Next = id
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = d.Items
	m.next = d.Next
	return nil
}

// MemorySet is the default backend: four in-memory collections.
type MemorySet struct {
	Messages  *Memory[models.Message, *models.Message]   `json:"messages"`
	Ratings   *Memory[models.Rating, *models.Rating]     `json:"ratings"`
	BlogPosts *Memory[models.BlogPost, *models.BlogPost] `json:"blogPosts"`
	Projects  *Memory[models.Project, *models.Project]   `json:"projects"`
}

func NewMemorySet() *MemorySet {
	return &MemorySet{
		Messages:  NewMemory[models.Message](),
		Ratings:   NewMemory[models.Rating](),
		BlogPosts: NewMemory[models.BlogPost](),
		Projects:  NewMemory[models.Project](),
	}
}

func (s *MemorySet) Set() *Set {
	return &Set{
		Messages:  s.Messages,
		Ratings:   s.Ratings,
		BlogPosts: s.BlogPosts,
		Projects:  s.Projects,
		Backend:   "memory",
	}
}
