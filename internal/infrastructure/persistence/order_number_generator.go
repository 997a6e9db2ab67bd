package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderNumberGenerator issues ORD-YYYYMMDD-NNNNN numbers from a per tenant,
// per day counter row. The upsert holds the row lock until commit, so
// concurrent callers never receive the same sequence.
type GormOrderNumberGenerator struct {
	db *gorm.DB
}

// NewGormOrderNumberGenerator creates a new GormOrderNumberGenerator
func NewGormOrderNumberGenerator(db *gorm.DB) *GormOrderNumberGenerator {
	return &GormOrderNumberGenerator{db: db}
}

// Next returns the next order number for tenantID on the UTC day of at
func (g *GormOrderNumberGenerator) Next(ctx context.Context, tenantID uuid.UUID, at time.Time) (string, error) {
	day := at.UTC().Format("20060102")
	var seq models.OrderSequenceModel

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counter := models.OrderSequenceModel{TenantID: tenantID, Day: day, Value: 1}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value": gorm.Expr("order_number_sequences.value + 1"),
			}),
		}).Create(&counter).Error; err != nil {
			return err
		}
		return tx.Where("day = ?", day).First(&seq).Error
	})
	if err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}

	return order.FormatOrderNumber(at, seq.Value), nil
}

var _ order.OrderNumberGenerator = (*GormOrderNumberGenerator)(nil)
