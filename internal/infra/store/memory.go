// Package store provides the in-memory persistence adapter. Durable storage
// is a surrounding-system concern; this adapter implements the same ports a
// database-backed one would.
package store

import (
	"context"
	"sync"

	"github.com/kbarry/remitax-go/internal/domain"
)

// Memory is a thread-safe in-memory receipt and household store.
type Memory struct {
	mu       sync.RWMutex
	receipts map[string][]*domain.Receipt // householdID -> receipts in insertion order
	families map[string]*domain.FamilyDeclaration
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		receipts: make(map[string][]*domain.Receipt),
		families: make(map[string]*domain.FamilyDeclaration),
	}
}

// SaveReceipt appends a receipt to its household.
func (m *Memory) SaveReceipt(_ context.Context, r *domain.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *r
	m.receipts[r.HouseholdID] = append(m.receipts[r.HouseholdID], &cp)
	return nil
}

// GetReceipt returns one receipt by id.
func (m *Memory) GetReceipt(_ context.Context, householdID, receiptID string) (*domain.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.receipts[householdID] {
		if r.ID == receiptID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "receipt", ID: receiptID}
}

// ListReceipts returns the household's receipts in insertion order.
func (m *Memory) ListReceipts(_ context.Context, householdID string) ([]*domain.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.receipts[householdID]
	out := make([]*domain.Receipt, 0, len(stored))
	for _, r := range stored {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

// UpdateReceipt replaces a stored receipt with the given one.
func (m *Memory) UpdateReceipt(_ context.Context, r *domain.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, stored := range m.receipts[r.HouseholdID] {
		if stored.ID == r.ID {
			cp := *r
			m.receipts[r.HouseholdID][i] = &cp
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "receipt", ID: r.ID}
}

// PutFamily replaces the household's family declaration wholesale.
func (m *Memory) PutFamily(_ context.Context, f *domain.FamilyDeclaration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *f
	cp.Children = append([]domain.Child(nil), f.Children...)
	m.families[f.HouseholdID] = &cp
	return nil
}

// GetFamily returns the household's family declaration.
func (m *Memory) GetFamily(_ context.Context, householdID string) (*domain.FamilyDeclaration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.families[householdID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "family declaration", ID: householdID}
	}
	cp := *f
	cp.Children = append([]domain.Child(nil), f.Children...)
	return &cp, nil
}
