package api

import (
	"errors"
	"infinite-experiment/edigate/internal/as2"
	"infinite-experiment/edigate/internal/logging"
	"infinite-experiment/edigate/internal/models/dtos/responses"
	"infinite-experiment/edigate/internal/services"
	"io"
	"net/http"
	"strconv"
)

// AS2ReceiveHandler handles POST /as2/receive. The answer is the MDN itself
// unless the sender asked for asynchronous delivery.
func AS2ReceiveHandler(receiver AS2Receiver, maxBodyBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readLimitedBody(w, r, maxBodyBytes)
		if !ok {
			return
		}

		req := services.AS2ReceiveRequest{
			AS2From:               r.Header.Get("AS2-From"),
			AS2To:                 r.Header.Get("AS2-To"),
			MessageID:             r.Header.Get("Message-ID"),
			ContentType:           r.Header.Get("Content-Type"),
			ReceiptDeliveryOption: r.Header.Get("Receipt-Delivery-Option"),
			Body:                  body,
		}

		resp, err := receiver.Receive(r.Context(), req)
		switch {
		case errors.Is(err, services.ErrMissingAS2Headers):
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, services.ErrUnknownAS2Partner):
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		case err != nil:
			respondWithServiceError(w, r, err, "receive AS2 message")
			return
		}

		if resp.TransactionID != "" {
			w.Header().Set("X-Transaction-Id", resp.TransactionID)
		}
		if len(resp.Body) == 0 {
			w.WriteHeader(resp.StatusCode)
			return
		}
		w.Header().Set("Content-Type", resp.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(resp.Body)
	}
}

// AS2MDNHandler handles POST /as2/mdn, where partners return asynchronous
// MDNs for messages we sent
func AS2MDNHandler(receiver AS2Receiver, maxBodyBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readLimitedBody(w, r, maxBodyBytes)
		if !ok {
			return
		}

		tx, err := receiver.HandleAsyncMDN(r.Context(), body)
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		case errors.Is(err, as2.ErrNotMDN), errors.Is(err, services.ErrMissingOriginalID):
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			respondWithServiceError(w, r, err, "apply MDN")
			return
		}

		resp := responses.NewTransactionResponse(tx, false)
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}

func readLimitedBody(w http.ResponseWriter, r *http.Request, maxBodyBytes int64) ([]byte, bool) {
	if maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Message body too large")
			return nil, false
		}
		logging.Warn("[AS2Handler] Failed to read body", "error", err)
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	return body, true
}
