package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/db"
	gormModels "infinite-experiment/edigate/internal/models/gorm"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionFilter narrows List. Zero values are ignored.
type TransactionFilter struct {
	TenantID     string
	PartnerID    string
	Direction    constants.Direction
	Status       constants.TransactionStatus
	DocumentType constants.DocumentType
	Limit        int
	Offset       int
}

// TransactionRepo is the append-mostly EDI transaction log
type TransactionRepo struct {
	db  *gorm.DB
	seq db.Sequencer
}

func NewTransactionRepo(gdb *gorm.DB, seq db.Sequencer) *TransactionRepo {
	return &TransactionRepo{db: gdb, seq: seq}
}

// FormatTransactionNumber renders the display number of a sequence value
func FormatTransactionNumber(seq int64) string {
	return fmt.Sprintf("EDI-%08d", seq)
}

// Create inserts a new log entry. The id and display number are assigned
// here; status defaults to pending.
func (r *TransactionRepo) Create(ctx context.Context, tx *gormModels.EdiTransaction) error {
	next, err := r.seq.Next(ctx, tx.TenantID)
	if err != nil {
		return err
	}

	tx.ID = uuid.New().String()
	tx.Sequence = next
	tx.TransactionNumber = FormatTransactionNumber(next)
	if tx.Status == "" {
		tx.Status = constants.StatusPending
	}
	if tx.Status != constants.StatusPending {
		now := time.Now().UTC()
		tx.ProcessedAt = &now
	}

	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create edi transaction: %w", err)
	}
	return nil
}

// Get retrieves a tenant's transaction, or nil when it does not exist
func (r *TransactionRepo) Get(ctx context.Context, tenantID, id string) (*gormModels.EdiTransaction, error) {
	var tx gormModels.EdiTransaction

	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&tx).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch edi transaction: %w", err)
	}
	return &tx, nil
}

// List returns transactions newest first
func (r *TransactionRepo) List(ctx context.Context, f TransactionFilter) ([]gormModels.EdiTransaction, error) {
	q := r.db.WithContext(ctx).Where("tenant_id = ?", f.TenantID)
	if f.PartnerID != "" {
		q = q.Where("partner_id = ?", f.PartnerID)
	}
	if f.Direction != "" {
		q = q.Where("direction = ?", f.Direction)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DocumentType != "" {
		q = q.Where("document_type = ?", f.DocumentType)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var txs []gormModels.EdiTransaction
	err := q.Order("sequence DESC").Limit(limit).Offset(f.Offset).Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list edi transactions: %w", err)
	}
	return txs, nil
}

// ListPending returns the oldest pending inbound transactions across tenants
func (r *TransactionRepo) ListPending(ctx context.Context, limit int) ([]gormModels.EdiTransaction, error) {
	var txs []gormModels.EdiTransaction

	err := r.db.WithContext(ctx).
		Where("direction = ? AND status = ?", constants.DirectionInbound, constants.StatusPending).
		Order("sequence").
		Limit(limit).
		Find(&txs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	return txs, nil
}

// FindByMessageID returns the most recent transaction correlated with an AS2
// Message-ID, or nil.
func (r *TransactionRepo) FindByMessageID(ctx context.Context, direction constants.Direction, messageID string) (*gormModels.EdiTransaction, error) {
	var tx gormModels.EdiTransaction

	err := r.db.WithContext(ctx).
		Where("message_id = ? AND direction = ?", messageID, direction).
		Order("sequence DESC").
		First(&tx).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch edi transaction: %w", err)
	}
	return &tx, nil
}

// FindOutboundByControlNumber finds the outbound document a 997 acknowledges
func (r *TransactionRepo) FindOutboundByControlNumber(ctx context.Context, tenantID, partnerID, controlNumber string) (*gormModels.EdiTransaction, error) {
	var tx gormModels.EdiTransaction

	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND partner_id = ? AND direction = ? AND control_number = ?",
			tenantID, partnerID, constants.DirectionOutbound, controlNumber).
		Order("sequence DESC").
		First(&tx).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch edi transaction: %w", err)
	}
	return &tx, nil
}

// SetParsed records the outcome of parsing without changing the status
func (r *TransactionRepo) SetParsed(ctx context.Context, id string, docType constants.DocumentType, parsed, controlNumber string) error {
	updates := map[string]interface{}{
		"parsed_content": parsed,
	}
	if docType != "" {
		updates["document_type"] = docType
	}
	if controlNumber != "" {
		updates["control_number"] = controlNumber
	}

	result := r.db.WithContext(ctx).
		Model(&gormModels.EdiTransaction{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update edi transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus moves a transaction forward in its lifecycle. The source
// status is checked in the same statement, so a concurrent writer cannot
// resurrect a terminal transaction.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, id string, to constants.TransactionStatus, errorMessage string) error {
	from := constants.SourceStatuses(to)
	if len(from) == 0 {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":        to,
		"error_message": errorMessage,
		"processed_at":  &now,
	}

	result := r.db.WithContext(ctx).
		Model(&gormModels.EdiTransaction{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update edi transaction status: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&gormModels.EdiTransaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to fetch edi transaction: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrInvalidTransition
}
