package warehouse

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrWarehouseNotFound = errors.New("warehouse not found")
	ErrBlankName         = errors.New("warehouse name is required")
	ErrBlankAddress      = errors.New("warehouse address is required")
)

// Warehouse is a physical stock location. Deactivated warehouses keep their
// stock rows but are skipped by allocation.
type Warehouse struct {
	ID        string
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(name, address string) (*Warehouse, error) {
	if name == "" {
		return nil, ErrBlankName
	}
	if address == "" {
		return nil, ErrBlankAddress
	}
	now := time.Now()
	return &Warehouse{
		ID:        uuid.New().String(),
		Name:      name,
		Address:   address,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (w *Warehouse) Update(name, address string) error {
	if name == "" {
		return ErrBlankName
	}
	if address == "" {
		return ErrBlankAddress
	}
	w.Name = name
	w.Address = address
	w.UpdatedAt = time.Now()
	return nil
}

func (w *Warehouse) Activate() {
	w.Active = true
	w.UpdatedAt = time.Now()
}

func (w *Warehouse) Deactivate() {
	w.Active = false
	w.UpdatedAt = time.Now()
}

type Store interface {
	Save(ctx context.Context, w *Warehouse) error
	FindByID(ctx context.Context, id string) (*Warehouse, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	FindAll(ctx context.Context) ([]*Warehouse, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, name, address string) (*Warehouse, error) {
	w, err := New(name, address)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) Update(ctx context.Context, id, name, address string) (*Warehouse, error) {
	w, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := w.Update(name, address); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) Activate(ctx context.Context, id string) error {
	w, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	w.Activate()
	return s.store.Save(ctx, w)
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	w, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	w.Deactivate()
	return s.store.Save(ctx, w)
}
