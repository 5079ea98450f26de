package responses

import (
	"time"

	"infinite-experiment/edigate/internal/constants"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
)

// TransactionResponse is one transaction log entry. Content is only filled
// for single-transaction lookups.
type TransactionResponse struct {
	ID                string                      `json:"id"`
	TransactionNumber string                      `json:"transaction_number"`
	PartnerID         string                      `json:"partner_id"`
	Direction         constants.Direction         `json:"direction"`
	DocumentType      constants.DocumentType      `json:"document_type"`
	Format            constants.DocumentFormat    `json:"format"`
	Status            constants.TransactionStatus `json:"status"`
	FileName          string                      `json:"file_name,omitempty"`
	MessageID         string                      `json:"message_id,omitempty"`
	ControlNumber     string                      `json:"control_number,omitempty"`
	ErrorMessage      string                      `json:"error_message,omitempty"`
	RawContent        string                      `json:"raw_content,omitempty"`
	ParsedContent     string                      `json:"parsed_content,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
	ProcessedAt       *time.Time                  `json:"processed_at,omitempty"`
}

func NewTransactionResponse(tx *gormModels.EdiTransaction, withContent bool) TransactionResponse {
	resp := TransactionResponse{
		ID:                tx.ID,
		TransactionNumber: tx.TransactionNumber,
		PartnerID:         tx.PartnerID,
		Direction:         tx.Direction,
		DocumentType:      tx.DocumentType,
		Format:            tx.Format,
		Status:            tx.Status,
		FileName:          tx.FileName,
		MessageID:         tx.MessageID,
		ControlNumber:     tx.ControlNumber,
		ErrorMessage:      tx.ErrorMessage,
		CreatedAt:         tx.CreatedAt,
		ProcessedAt:       tx.ProcessedAt,
	}
	if withContent {
		resp.RawContent = tx.RawContent
		resp.ParsedContent = tx.ParsedContent
	}
	return resp
}

func NewTransactionListResponse(txs []gormModels.EdiTransaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, NewTransactionResponse(&txs[i], false))
	}
	return out
}
