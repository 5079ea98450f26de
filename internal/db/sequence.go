package db

import (
	"context"
	"fmt"

	gormModels "infinite-experiment/edigate/internal/models/gorm"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionSequenceName is the Postgres sequence backing transaction numbers
const TransactionSequenceName = "edi_transaction_number_seq"

// Sequencer hands out strictly increasing transaction sequence values
type Sequencer interface {
	Next(ctx context.Context, tenantID string) (int64, error)
}

// PostgresSequencer draws from a native sequence. Values are global rather
// than per tenant, which keeps them unique and increasing per tenant too.
type PostgresSequencer struct {
	db *sqlx.DB
}

func NewPostgresSequencer(db *sqlx.DB) *PostgresSequencer {
	return &PostgresSequencer{db: db}
}

func (s *PostgresSequencer) Next(ctx context.Context, _ string) (int64, error) {
	var next int64
	if err := s.db.GetContext(ctx, &next, "SELECT nextval($1)", TransactionSequenceName); err != nil {
		return 0, fmt.Errorf("failed to read transaction sequence: %w", err)
	}
	return next, nil
}

// CounterSequencer keeps one counter row per tenant and increments it under a
// row lock. Used where no native sequence exists.
type CounterSequencer struct {
	db *gorm.DB
}

func NewCounterSequencer(db *gorm.DB) *CounterSequencer {
	return &CounterSequencer{db: db}
}

func (s *CounterSequencer) Next(ctx context.Context, tenantID string) (int64, error) {
	var next int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counter := gormModels.TransactionCounter{Name: "tx:" + tenantID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", counter.Name).
			First(&counter).Error; err != nil {
			return err
		}
		next = counter.Value + 1
		return tx.Model(&gormModels.TransactionCounter{}).
			Where("name = ?", counter.Name).
			Update("value", next).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment transaction counter: %w", err)
	}
	return next, nil
}
