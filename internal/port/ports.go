// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/kbarry/remitax-go/internal/domain"
)

// RateFetcher retrieves a currency-rate table from the external rate source.
type RateFetcher interface {
	FetchRates(ctx context.Context, base string) (domain.RateTable, error)
}

// Cache provides generic caching with TTL and stale reads.
type Cache[T any] interface {
	Get(key string) (T, bool)
	GetStale(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// ReceiptStore persists receipts and their derived fields.
// The core never deletes receipts; deletion belongs to the surrounding system.
type ReceiptStore interface {
	SaveReceipt(ctx context.Context, r *domain.Receipt) error
	GetReceipt(ctx context.Context, householdID, receiptID string) (*domain.Receipt, error)
	ListReceipts(ctx context.Context, householdID string) ([]*domain.Receipt, error)
	UpdateReceipt(ctx context.Context, r *domain.Receipt) error
}

// HouseholdStore persists family declarations, replaced wholesale per
// household.
type HouseholdStore interface {
	PutFamily(ctx context.Context, f *domain.FamilyDeclaration) error
	GetFamily(ctx context.Context, householdID string) (*domain.FamilyDeclaration, error)
}
