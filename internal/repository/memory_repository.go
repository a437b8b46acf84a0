package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fairyhunter13/promotion-service/internal/model"
	"github.com/fairyhunter13/promotion-service/internal/service"
)

// MemoryRepository keeps promotions in process memory.
// It mirrors the Postgres repository, including the live product name uniqueness.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*model.Promotion
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[int64]*model.Promotion)}
}

// Insert stores a copy of p and sets its id.
func (r *MemoryRepository) Insert(_ context.Context, p *model.Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(p.ProductName, 0) {
		return service.ErrPromotionExists
	}

	r.nextID++
	p.ID = r.nextID
	r.rows[p.ID] = p.Clone()
	return nil
}

// GetByID returns a copy of the promotion, or nil, nil if the id is unknown.
func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*model.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

// Update replaces the stored promotion with a copy of p.
func (r *MemoryRepository) Update(_ context.Context, p *model.Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[p.ID]; !ok {
		return service.ErrPromotionNotFound
	}
	if p.Status != model.StatusDeleted && r.nameTaken(p.ProductName, p.ID) {
		return service.ErrPromotionExists
	}
	r.rows[p.ID] = p.Clone()
	return nil
}

// NameExists reports whether a non-deleted promotion other than excludeID uses name.
func (r *MemoryRepository) NameExists(_ context.Context, name string, excludeID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.nameTaken(name, excludeID), nil
}

// List returns copies of the matching promotions ordered by id.
func (r *MemoryRepository) List(_ context.Context, filter model.Filter) ([]*model.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	promos := []*model.Promotion{}
	for _, p := range r.rows {
		if filter.Matches(p) {
			promos = append(promos, p.Clone())
		}
	}
	sort.Slice(promos, func(i, j int) bool { return promos[i].ID < promos[j].ID })
	return promos, nil
}

// ExpireOverdue flips active promotions whose expiration date is before now to expired.
func (r *MemoryRepository) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, p := range r.rows {
		if p.Status == model.StatusActive && p.ExpirationDate.Before(now) {
			p.Status = model.StatusExpired
			p.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// nameTaken must be called with the lock held.
func (r *MemoryRepository) nameTaken(name string, excludeID int64) bool {
	for id, p := range r.rows {
		if id != excludeID && p.Status != model.StatusDeleted && p.ProductName == name {
			return true
		}
	}
	return false
}
