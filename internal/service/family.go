package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/port"
)

var famTracer = otel.Tracer("service/family")

// Family manages the household's declared relatives. Declarations are
// replaced wholesale; there is no partial edit.
type Family struct {
	store  port.HouseholdStore
	logger *zap.Logger
}

// NewFamily creates the family service.
func NewFamily(store port.HouseholdStore, logger *zap.Logger) *Family {
	return &Family{store: store, logger: logger}
}

// Put replaces the household's family declaration.
func (f *Family) Put(ctx context.Context, householdID string, decl domain.FamilyDeclaration) (*domain.FamilyDeclaration, error) {
	ctx, span := famTracer.Start(ctx, "Family.Put")
	defer span.End()

	if householdID == "" {
		return nil, &domain.ErrValidation{Field: "household_id", Message: "must not be empty"}
	}

	decl.HouseholdID = householdID
	decl.FatherName = strings.TrimSpace(decl.FatherName)
	decl.MotherName = strings.TrimSpace(decl.MotherName)
	children := decl.Children[:0]
	for _, c := range decl.Children {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name != "" {
			children = append(children, c)
		}
	}
	decl.Children = children

	if decl.IsEmpty() {
		return nil, &domain.ErrValidation{Field: "family", Message: "at least one relative must be declared"}
	}
	decl.DeclaredAt = time.Now()

	if err := f.store.PutFamily(ctx, &decl); err != nil {
		return nil, err
	}
	f.logger.Info("family declaration replaced",
		zap.String("household_id", householdID),
		zap.Int("children", len(decl.Children)))
	return &decl, nil
}

// Get returns the household's current declaration.
func (f *Family) Get(ctx context.Context, householdID string) (*domain.FamilyDeclaration, error) {
	ctx, span := famTracer.Start(ctx, "Family.Get")
	defer span.End()

	return f.store.GetFamily(ctx, householdID)
}
