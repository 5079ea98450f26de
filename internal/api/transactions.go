package api

import (
	"fmt"
	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/db/repositories"
	"infinite-experiment/edigate/internal/logging"
	"infinite-experiment/edigate/internal/models/dtos/requests"
	"infinite-experiment/edigate/internal/models/dtos/responses"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
)

func parseTransactionFilter(r *http.Request, tenantID string) (repositories.TransactionFilter, error) {
	q := r.URL.Query()
	f := repositories.TransactionFilter{
		TenantID:     tenantID,
		PartnerID:    q.Get("partner_id"),
		Direction:    constants.Direction(q.Get("direction")),
		Status:       constants.TransactionStatus(q.Get("status")),
		DocumentType: constants.DocumentType(q.Get("document_type")),
		Limit:        defaultTransactionLimit,
	}

	switch f.Direction {
	case "", constants.DirectionInbound, constants.DirectionOutbound:
	default:
		return f, fmt.Errorf("invalid direction %q", f.Direction)
	}
	if f.DocumentType != "" && !f.DocumentType.IsValid() {
		return f, fmt.Errorf("invalid document_type %q", f.DocumentType)
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = min(n, maxTransactionLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid offset %q", v)
		}
		f.Offset = n
	}
	return f, nil
}

// ListTransactionsHandler handles GET /api/v1/transactions
//
// Query parameters: partner_id, direction, status, document_type, limit
// (default 50, at most 500) and offset. Content is omitted from list items.
func ListTransactionsHandler(reader TransactionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}

		filter, err := parseTransactionFilter(r, tenantID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		txs, err := reader.List(r.Context(), filter)
		if err != nil {
			respondWithServiceError(w, r, err, "list transactions")
			return
		}
		resp := responses.NewListResponse(responses.NewTransactionListResponse(txs))
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}

// GetTransactionHandler handles GET /api/v1/transactions/{id}
func GetTransactionHandler(reader TransactionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}

		tx, err := reader.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
		if err != nil {
			respondWithServiceError(w, r, err, "fetch transaction")
			return
		}
		if tx == nil {
			respondWithError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		resp := responses.NewTransactionResponse(tx, true)
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}

// SendOutboundHandler handles POST /api/v1/outbound/{docType}
//
// A delivery that fails after the document was built answers 502 and still
// returns the failed transaction.
func SendOutboundHandler(sender DocumentSender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}
		docType, ok := documentTypeParam(w, r)
		if !ok {
			return
		}
		if docType == constants.DocumentType997 {
			respondWithError(w, http.StatusBadRequest, "997 acknowledgments are generated automatically")
			return
		}

		var req requests.OutboundRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.PartnerID == "" || req.EntityID == "" {
			respondWithError(w, http.StatusBadRequest, "partner_id and entity_id are required")
			return
		}

		tx, err := sender.Send(r.Context(), tenantID, req.PartnerID, docType, req.EntityID)
		if err != nil && tx != nil {
			logging.WithPartner(tenantID, req.PartnerID).Warnw("[API] Outbound delivery failed",
				"transaction_id", tx.ID, "document_type", docType, "error", err)
			resp := responses.NewTransactionResponse(tx, false)
			respondWithErrorData(w, http.StatusBadGateway, err.Error(), &resp)
			return
		}
		if err != nil {
			respondWithServiceError(w, r, err, "send document")
			return
		}

		resp := responses.NewTransactionResponse(tx, false)
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}
