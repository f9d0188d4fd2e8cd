package dashboard

import (
	"context"
	"errors"

	"github.com/devfolio/portfolio-api/internal/models"
)

type ModalState int

const (
	ModalClosed ModalState = iota
	ModalCreate
	ModalEdit
)

func (s ModalState) String() string {
	switch s {
	case ModalCreate:
		return "open-for-create"
	case ModalEdit:
		return "open-for-edit"
	}
	return "closed"
}

var (
	ErrModalOpen   = errors.New("modal already open")
	ErrModalClosed = errors.New("modal is closed")
)

// Modal is the create/edit form of one entity type. Only one record can be
// edited at a time.
type Modal[E any, P models.Ptr[E]] struct {
	res   *Resource[E, P]
	blank func() E

	state ModalState
	draft E
}

// NewModal returns a closed modal saving through res. blank builds the
// template used by OpenCreate; nil means the zero value.
func NewModal[E any, P models.Ptr[E]](res *Resource[E, P], blank func() E) *Modal[E, P] {
	if blank == nil {
		blank = func() E {
			var zero E
			return zero
		}
	}
	return &Modal[E, P]{res: res, blank: blank}
}

func (m *Modal[E, P]) State() ModalState { return m.state }

// Draft is the record being edited; nil while closed.
func (m *Modal[E, P]) Draft() *E {
	if m.state == ModalClosed {
		return nil
	}
	return &m.draft
}

func (m *Modal[E, P]) OpenCreate() error {
	if m.state != ModalClosed {
		return ErrModalOpen
	}
	m.draft = m.blank()
	P(&m.draft).SetEntityID(0)
	m.state = ModalCreate
	return nil
}

// OpenEdit loads a copy of rec; edits are discarded unless submitted.
func (m *Modal[E, P]) OpenEdit(rec E) error {
	if m.state != ModalClosed {
		return ErrModalOpen
	}
	m.draft = rec
	m.state = ModalEdit
	return nil
}

// Submit creates or updates the draft depending on whether it has an id. The
// modal closes on success and stays open with the draft intact on error.
func (m *Modal[E, P]) Submit(ctx context.Context) (E, error) {
	if m.state == ModalClosed {
		var zero E
		return zero, ErrModalClosed
	}
	out, err := m.res.Save(ctx, m.draft)
	if err != nil {
		return out, err
	}
	m.Cancel()
	return out, nil
}

func (m *Modal[E, P]) Cancel() {
	var zero E
	m.draft = zero
	m.state = ModalClosed
}
