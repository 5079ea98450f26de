package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/db/repositories"
	"infinite-experiment/edigate/internal/erp"
	"infinite-experiment/edigate/internal/formats"
	"infinite-experiment/edigate/internal/logging"
	"infinite-experiment/edigate/internal/metrics"
	"infinite-experiment/edigate/internal/models/dtos"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
	"infinite-experiment/edigate/internal/x12"
	"strings"
)

// AcknowledgmentSender delivers generated documents back to a partner
type AcknowledgmentSender interface {
	Deliver(ctx context.Context, partner *gormModels.TradingPartner, docType constants.DocumentType, rows []dtos.Row) (*gormModels.EdiTransaction, error)
}

// InboundOutcome describes what processing did with one inbound transaction
type InboundOutcome struct {
	TransactionID string                      `json:"transaction_id"`
	DocumentType  constants.DocumentType      `json:"document_type"`
	Status        constants.TransactionStatus `json:"status"`
	Warnings      []string                    `json:"warnings,omitempty"`
	Error         string                      `json:"error,omitempty"`
	// FormatError is set when the content could not be parsed at all
	FormatError bool `json:"-"`
}

// InboundService parses received documents, maps them to canonical rows
// and applies them to the ERP
type InboundService struct {
	txRepo   *repositories.TransactionRepo
	partners *repositories.PartnerRepo
	mappings *repositories.FieldMappingRepo
	bridge   *erp.Bridge
	acks     AcknowledgmentSender
	metrics  *metrics.MetricsRegistry
}

// NewInboundService creates the inbound processor. acks may be nil, in which
// case no 997s are sent.
func NewInboundService(
	txRepo *repositories.TransactionRepo,
	partners *repositories.PartnerRepo,
	mappings *repositories.FieldMappingRepo,
	bridge *erp.Bridge,
	acks AcknowledgmentSender,
	metricsReg *metrics.MetricsRegistry,
) *InboundService {
	return &InboundService{
		txRepo:   txRepo,
		partners: partners,
		mappings: mappings,
		bridge:   bridge,
		acks:     acks,
		metrics:  metricsReg,
	}
}

// parsedSet is one transaction set worth of rows
type parsedSet struct {
	Type          string     `json:"transactionSet"`
	ControlNumber string     `json:"controlNumber,omitempty"`
	Rows          []dtos.Row `json:"rows"`

	functionalID string
	groupControl string
}

// Process moves a pending inbound transaction to completed or failed. The
// returned error is reserved for storage failures, which leave the
// transaction pending so it is retried.
func (s *InboundService) Process(ctx context.Context, tx *gormModels.EdiTransaction) (*InboundOutcome, error) {
	log := logging.WithPartner(tx.TenantID, tx.PartnerID).With("transaction_id", tx.ID)
	outcome := &InboundOutcome{TransactionID: tx.ID, DocumentType: tx.DocumentType}

	partner, err := s.partners.Get(ctx, tx.TenantID, tx.PartnerID)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return s.finish(ctx, tx, outcome, "", nil, ErrPartnerNotFound)
	}

	format := tx.Format
	if sniffed, ok := formats.SniffFormat([]byte(tx.RawContent)); ok {
		format = sniffed
	}

	sets, controlNumber, err := s.parse(format, tx)
	if err != nil {
		outcome.FormatError = true
		log.Warnw("[InboundService] Failed to parse document", "format", format, "error", err)
		return s.finish(ctx, tx, outcome, controlNumber, nil, err)
	}
	if len(sets) > 0 && sets[0].Type != "" {
		outcome.DocumentType = constants.DocumentType(sets[0].Type)
	}

	var failures []string
	var acks []erp.Acknowledgment
	for _, set := range sets {
		docType := constants.DocumentType(set.Type)
		warnings, setErr := s.apply(ctx, partner, docType, set.Rows)
		outcome.Warnings = append(outcome.Warnings, warnings...)
		if setErr != nil {
			failures = append(failures, setErr.Error())
			log.Warnw("[InboundService] Document rejected", "document_type", docType, "error", setErr)
		}
		if format == constants.FormatX12 && partner.AutoAcknowledge && docType != constants.DocumentType997 {
			acks = append(acks, erp.AcknowledgmentFor(set.functionalID, set.groupControl, set.Type, set.ControlNumber, setErr == nil))
		}
	}

	var procErr error
	if len(failures) > 0 {
		procErr = errors.New(strings.Join(failures, "; "))
	}
	outcome, err = s.finish(ctx, tx, outcome, controlNumber, sets, procErr)
	if err != nil {
		return nil, err
	}

	for _, ack := range acks {
		s.sendAcknowledgment(ctx, partner, ack)
	}
	return outcome, nil
}

func (s *InboundService) parse(format constants.DocumentFormat, tx *gormModels.EdiTransaction) ([]parsedSet, string, error) {
	if format != constants.FormatX12 {
		rows, err := formats.Parse(format, []byte(tx.RawContent))
		if err != nil {
			return nil, "", err
		}
		docType := tx.DocumentType
		if docType == "" {
			docType = constants.DefaultInboundDocumentType
		}
		return []parsedSet{{Type: string(docType), Rows: rows}}, "", nil
	}

	ic, err := x12.Parse(tx.RawContent)
	if err != nil {
		return nil, "", err
	}
	var sets []parsedSet
	for _, group := range ic.FunctionalGroups {
		for _, set := range group.TransactionSets {
			rows, err := x12.ExtractData(set)
			if err != nil {
				return nil, normalizeControlNumber(ic.ControlNumber), err
			}
			sets = append(sets, parsedSet{
				Type:          set.Type,
				ControlNumber: set.ControlNumber,
				Rows:          rows,
				functionalID:  group.FunctionalID,
				groupControl:  group.ControlNumber,
			})
		}
	}
	if len(sets) == 0 {
		return nil, normalizeControlNumber(ic.ControlNumber), &x12.StructuralError{Reason: "interchange contains no transaction sets"}
	}
	return sets, normalizeControlNumber(ic.ControlNumber), nil
}

// apply runs one transaction set through mapping and the ERP bridge, or
// correlates it with outbound documents when it is a 997
func (s *InboundService) apply(ctx context.Context, partner *gormModels.TradingPartner, docType constants.DocumentType, rows []dtos.Row) ([]string, error) {
	mapper, err := loadMapper(ctx, s.mappings, partner.ID, docType)
	if err != nil {
		return nil, err
	}
	rows = mapper.ApplyRows(rows)

	if docType == constants.DocumentType997 {
		return s.applyAcknowledgments(ctx, partner, rows), nil
	}

	result, err := s.bridge.Process(ctx, partner.TenantID, docType, rows)
	if err != nil {
		return nil, err
	}
	return result.Warnings, nil
}

// applyAcknowledgments marks the outbound documents a 997 refers to.
// A group is acknowledged only when every set in it was accepted.
func (s *InboundService) applyAcknowledgments(ctx context.Context, partner *gormModels.TradingPartner, rows []dtos.Row) []string {
	var warnings []string
	accepted := map[string]bool{}
	errorCodes := map[string]string{}
	var order []string

	for _, ack := range erp.AcknowledgmentsFromRows(rows) {
		ctrl := normalizeControlNumber(ack.GroupControlNumber)
		if _, seen := accepted[ctrl]; !seen {
			order = append(order, ctrl)
			accepted[ctrl] = true
		}
		if !ack.Accepted {
			accepted[ctrl] = false
			if ack.ErrorCode != "" {
				errorCodes[ctrl] = ack.ErrorCode
			}
		}
	}

	for _, ctrl := range order {
		original, err := s.txRepo.FindOutboundByControlNumber(ctx, partner.TenantID, partner.ID, ctrl)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to look up control number %s: %v", ctrl, err))
			continue
		}
		if original == nil {
			warnings = append(warnings, fmt.Sprintf("no outbound document with control number %s", ctrl))
			continue
		}

		status, msg := constants.StatusAcknowledged, ""
		if !accepted[ctrl] {
			status = constants.StatusFailed
			msg = "rejected by functional acknowledgment"
			if code := errorCodes[ctrl]; code != "" {
				msg += " (error code " + code + ")"
			}
		}
		if err := s.txRepo.UpdateStatus(ctx, original.ID, status, msg); err != nil {
			warnings = append(warnings, fmt.Sprintf("transaction %s not updated: %v", original.TransactionNumber, err))
			continue
		}
		s.metrics.RecordTransaction(string(original.Direction), string(original.DocumentType), string(status))
	}
	return warnings
}

func (s *InboundService) sendAcknowledgment(ctx context.Context, partner *gormModels.TradingPartner, ack erp.Acknowledgment) {
	if s.acks == nil {
		return
	}
	ackPartner := *partner
	ackPartner.DocumentFormat = constants.FormatX12
	if _, err := s.acks.Deliver(ctx, &ackPartner, constants.DocumentType997, erp.Generate997(ack)); err != nil {
		logging.WithPartner(partner.TenantID, partner.ID).Warnw("[InboundService] Failed to send 997",
			"group_control_number", ack.GroupControlNumber, "error", err)
	}
}

// finish records the parsed rows and the final status of the transaction
func (s *InboundService) finish(
	ctx context.Context,
	tx *gormModels.EdiTransaction,
	outcome *InboundOutcome,
	controlNumber string,
	sets []parsedSet,
	procErr error,
) (*InboundOutcome, error) {
	parsed := ""
	if len(sets) > 0 {
		data, err := json.Marshal(sets)
		if err != nil {
			return nil, fmt.Errorf("failed to encode parsed content: %w", err)
		}
		parsed = string(data)
	}
	if err := s.txRepo.SetParsed(ctx, tx.ID, outcome.DocumentType, parsed, controlNumber); err != nil {
		return nil, err
	}

	status, msg := constants.StatusCompleted, strings.Join(outcome.Warnings, "; ")
	if procErr != nil {
		status, msg = constants.StatusFailed, procErr.Error()
		if len(outcome.Warnings) > 0 {
			msg += "; " + strings.Join(outcome.Warnings, "; ")
		}
		outcome.Error = procErr.Error()
	}
	if err := s.txRepo.UpdateStatus(ctx, tx.ID, status, msg); err != nil {
		return nil, err
	}

	tx.Status = status
	tx.ErrorMessage = msg
	tx.DocumentType = outcome.DocumentType
	outcome.Status = status
	s.metrics.RecordTransaction(string(tx.Direction), string(outcome.DocumentType), string(status))
	return outcome, nil
}
