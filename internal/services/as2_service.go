package services

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"infinite-experiment/edigate/internal/as2"
	"infinite-experiment/edigate/internal/common"
	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/db/repositories"
	"infinite-experiment/edigate/internal/formats"
	"infinite-experiment/edigate/internal/logging"
	"infinite-experiment/edigate/internal/metrics"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"
)

var (
	ErrMissingAS2Headers   = errors.New("AS2-From and AS2-To headers are required")
	ErrUnknownAS2Partner   = errors.New("unknown AS2 partner")
	ErrTransactionNotFound = errors.New("no transaction matches the MDN")
	ErrMissingOriginalID   = errors.New("MDN has no Original-Message-ID")
)

// AS2Options configures inbound AS2 handling
type AS2Options struct {
	ReportingUA     string
	StrictSigner    bool
	DuplicateWindow time.Duration
	// AsyncMDNTimeout bounds the delivery of one asynchronous MDN
	AsyncMDNTimeout time.Duration
}

// AS2ReceiveRequest carries the parts of an inbound AS2 POST the engine uses
type AS2ReceiveRequest struct {
	AS2From               string
	AS2To                 string
	MessageID             string
	ContentType           string
	ReceiptDeliveryOption string
	Body                  []byte
}

// AS2Response is the HTTP answer to an inbound message: an MDN, or an empty
// body when the MDN is delivered asynchronously
type AS2Response struct {
	StatusCode    int
	ContentType   string
	Body          []byte
	TransactionID string
	Duplicate     bool
}

// AS2Service implements the AS2 receive and asynchronous MDN endpoints
type AS2Service struct {
	partners *repositories.PartnerRepo
	settings *repositories.SettingsRepo
	txRepo   *repositories.TransactionRepo
	inbound  *InboundService
	cache    common.CacheInterface
	client   *as2.Client
	metrics  *metrics.MetricsRegistry
	opts     AS2Options

	asyncWG sync.WaitGroup
}

func NewAS2Service(
	partners *repositories.PartnerRepo,
	settings *repositories.SettingsRepo,
	txRepo *repositories.TransactionRepo,
	inbound *InboundService,
	cache common.CacheInterface,
	client *as2.Client,
	metricsReg *metrics.MetricsRegistry,
	opts AS2Options,
) *AS2Service {
	if opts.DuplicateWindow <= 0 {
		opts.DuplicateWindow = 24 * time.Hour
	}
	if opts.AsyncMDNTimeout <= 0 {
		opts.AsyncMDNTimeout = 60 * time.Second
	}
	return &AS2Service{
		partners: partners,
		settings: settings,
		txRepo:   txRepo,
		inbound:  inbound,
		cache:    cache,
		client:   client,
		metrics:  metricsReg,
		opts:     opts,
	}
}

// Receive handles one inbound AS2 message. Unknown senders are rejected
// with ErrUnknownAS2Partner and nothing is stored. Every other message gets
// an MDN: processed when the content was recovered and parsed, failed (with
// HTTP 400) when decryption, verification or parsing failed.
func (s *AS2Service) Receive(ctx context.Context, req AS2ReceiveRequest) (*AS2Response, error) {
	as2From := as2.UnquoteAS2Name(req.AS2From)
	as2To := as2.UnquoteAS2Name(req.AS2To)
	if as2From == "" || as2To == "" {
		return nil, ErrMissingAS2Headers
	}

	partner, settings, err := s.resolve(ctx, as2From, as2To)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		logging.Warn("[AS2Service] Message from unknown partner", "as2_from", as2From, "as2_to", as2To)
		s.metrics.RecordAS2(string(constants.DirectionInbound), "unknown_partner")
		return nil, ErrUnknownAS2Partner
	}
	log := logging.WithPartner(partner.TenantID, partner.ID)

	originalID := req.MessageID
	if originalID == "" {
		originalID = as2.NewMessageID(as2From)
	}
	messageID := as2.NormalizeMessageID(originalID)

	mdn := as2.MdnData{
		OriginalMessageID: originalID,
		ReportingUA:       s.opts.ReportingUA,
		FinalRecipient:    as2To,
	}

	unpacked, unpackErr := s.unpack(req, partner, settings)
	if unpackErr != nil {
		log.Warnw("[AS2Service] Failed to unpack message", "message_id", messageID, "error", unpackErr)
		tx, err := s.recordFailure(ctx, partner, messageID, req.Body, unpackErr)
		if err != nil {
			return nil, err
		}
		mdn.Disposition = as2.DispositionFailed
		mdn.ErrorMessage = unpackErr.Error()
		return s.respond(req, mdn, http.StatusBadRequest, tx.ID)
	}
	mdn.MIC = unpacked.MIC

	duplicate, err := s.isDuplicate(ctx, partner.TenantID, messageID)
	if err != nil {
		return nil, err
	}
	if duplicate {
		log.Infow("[AS2Service] Duplicate message acknowledged", "message_id", messageID)
		mdn.Disposition = as2.DispositionProcessed
		resp, err := s.respond(req, mdn, http.StatusOK, "")
		if resp != nil {
			resp.Duplicate = true
		}
		return resp, err
	}

	format := partnerFormat(partner)
	if sniffed, ok := formats.SniffFormat(unpacked.Content); ok {
		format = sniffed
	}
	tx := &gormModels.EdiTransaction{
		TenantID:     partner.TenantID,
		PartnerID:    partner.ID,
		Direction:    constants.DirectionInbound,
		DocumentType: defaultDocumentType(partner),
		Format:       format,
		Status:       constants.StatusPending,
		RawContent:   storableContent(unpacked.Content),
		MessageID:    messageID,
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		s.forgetMessage(partner.TenantID, messageID)
		return nil, err
	}

	outcome, err := s.inbound.Process(ctx, tx)
	if err != nil {
		// The transaction stays pending and the worker retries it
		log.Errorw("[AS2Service] Processing deferred", "transaction_id", tx.ID, "error", err)
		mdn.Disposition = as2.DispositionProcessed
		return s.respond(req, mdn, http.StatusOK, tx.ID)
	}

	if outcome.FormatError {
		s.forgetMessage(partner.TenantID, messageID)
		mdn.Disposition = as2.DispositionFailed
		mdn.ErrorMessage = outcome.Error
		return s.respond(req, mdn, http.StatusBadRequest, tx.ID)
	}

	log.Infow("[AS2Service] Message received",
		"transaction_id", tx.ID,
		"message_id", messageID,
		"document_type", outcome.DocumentType,
		"status", outcome.Status,
		"signed", unpacked.Signed,
		"encrypted", unpacked.Encrypted)
	mdn.Disposition = as2.DispositionProcessed
	return s.respond(req, mdn, http.StatusOK, tx.ID)
}

// resolve finds the sending partner. When AS2-To names a known tenant, the
// partner must belong to that tenant.
func (s *AS2Service) resolve(ctx context.Context, as2From, as2To string) (*gormModels.TradingPartner, *gormModels.EdiSettings, error) {
	settings, err := s.settings.FindByAS2ID(ctx, as2To)
	if err != nil {
		return nil, nil, err
	}

	var partner *gormModels.TradingPartner
	if settings != nil {
		partner, err = s.partners.FindByAS2IDInTenant(ctx, settings.TenantID, as2From)
	} else {
		partner, err = s.partners.FindByAS2ID(ctx, as2From)
	}
	if err != nil || partner == nil {
		return nil, nil, err
	}

	if settings == nil {
		settings, err = s.settings.GetByTenant(ctx, partner.TenantID)
		if err != nil {
			return nil, nil, err
		}
	}
	return partner, settings, nil
}

func (s *AS2Service) unpack(req AS2ReceiveRequest, partner *gormModels.TradingPartner, settings *gormModels.EdiSettings) (*as2.Unpacked, error) {
	keys, err := tenantKeys(settings)
	if err != nil {
		return nil, &as2.ProcessingError{Stage: "keys", Err: err}
	}
	var partnerCert *x509.Certificate
	if partner.PartnerCertificate != "" {
		partnerCert, err = as2.ParseCertificatePEM(partner.PartnerCertificate)
		if err != nil {
			return nil, &as2.ProcessingError{Stage: "keys", Err: err}
		}
	}
	return as2.Unpack(req.ContentType, req.Body, as2.UnpackOptions{
		Keys:         keys,
		PartnerCert:  partnerCert,
		StrictSigner: s.opts.StrictSigner,
	})
}

// isDuplicate claims the message id in the cache, falling back to the
// transaction log for ids older than the cache window. Failed messages may
// be resent under the same id. The claim is released when the log cannot
// be read, so a resend is processed rather than acknowledged unseen.
func (s *AS2Service) isDuplicate(ctx context.Context, tenantID, messageID string) (bool, error) {
	if s.cache != nil {
		if !s.cache.SetIfAbsent(s.messageKey(tenantID, messageID), true, s.opts.DuplicateWindow) {
			return true, nil
		}
	}
	existing, err := s.txRepo.FindByMessageID(ctx, constants.DirectionInbound, messageID)
	if err != nil {
		s.forgetMessage(tenantID, messageID)
		return false, err
	}
	return existing != nil && existing.TenantID == tenantID && existing.Status != constants.StatusFailed, nil
}

func (s *AS2Service) messageKey(tenantID, messageID string) string {
	return string(constants.CachePrefixAS2Message) + tenantID + ":" + messageID
}

func (s *AS2Service) forgetMessage(tenantID, messageID string) {
	if s.cache != nil {
		s.cache.Delete(s.messageKey(tenantID, messageID))
	}
}

// recordFailure logs a message whose content could not be recovered. The
// raw body is kept for manual inspection.
func (s *AS2Service) recordFailure(ctx context.Context, partner *gormModels.TradingPartner, messageID string, body []byte, cause error) (*gormModels.EdiTransaction, error) {
	tx := &gormModels.EdiTransaction{
		TenantID:     partner.TenantID,
		PartnerID:    partner.ID,
		Direction:    constants.DirectionInbound,
		DocumentType: defaultDocumentType(partner),
		Format:       partnerFormat(partner),
		Status:       constants.StatusFailed,
		RawContent:   storableContent(body),
		MessageID:    messageID,
		ErrorMessage: cause.Error(),
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}
	s.metrics.RecordTransaction(string(tx.Direction), string(tx.DocumentType), string(tx.Status))
	return tx, nil
}

// respond renders the MDN, synchronously or by scheduling its delivery
func (s *AS2Service) respond(req AS2ReceiveRequest, mdn as2.MdnData, status int, txID string) (*AS2Response, error) {
	body, contentType, err := as2.GenerateMDN(mdn)
	if err != nil {
		return nil, fmt.Errorf("failed to generate MDN: %w", err)
	}
	s.metrics.RecordAS2(string(constants.DirectionInbound), string(mdn.Disposition))

	if req.ReceiptDeliveryOption == "" || s.client == nil {
		return &AS2Response{StatusCode: status, ContentType: contentType, Body: body, TransactionID: txID}, nil
	}

	s.asyncWG.Add(1)
	go func() {
		defer s.asyncWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.AsyncMDNTimeout)
		defer cancel()
		if err := s.client.SendMDN(ctx, req.ReceiptDeliveryOption, body, contentType); err != nil {
			logging.Warn("[AS2Service] Failed to deliver async MDN",
				"url", req.ReceiptDeliveryOption,
				"original_message_id", mdn.OriginalMessageID,
				"error", err)
		}
	}()
	return &AS2Response{StatusCode: status, ContentType: "text/plain", TransactionID: txID}, nil
}

// Wait blocks until scheduled asynchronous MDNs have been delivered
func (s *AS2Service) Wait() {
	s.asyncWG.Wait()
}

// HandleAsyncMDN applies an MDN a partner posted back for one of our
// outbound messages
func (s *AS2Service) HandleAsyncMDN(ctx context.Context, body []byte) (*gormModels.EdiTransaction, error) {
	mdn, err := as2.ParseMDN(body)
	if err != nil {
		return nil, err
	}
	messageID := as2.NormalizeMessageID(mdn.OriginalMessageID)
	if messageID == "" {
		return nil, ErrMissingOriginalID
	}

	tx, err := s.txRepo.FindByMessageID(ctx, constants.DirectionOutbound, messageID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}

	status, msg := constants.StatusAcknowledged, ""
	if !mdn.Processed() {
		status = constants.StatusFailed
		msg = "partner MDN reported failure"
		if mdn.ErrorMessage != "" {
			msg += ": " + mdn.ErrorMessage
		}
	}
	if err := s.txRepo.UpdateStatus(ctx, tx.ID, status, msg); err != nil {
		return tx, err
	}

	s.metrics.RecordAS2(string(constants.DirectionOutbound), string(mdn.Disposition))
	s.metrics.RecordTransaction(string(tx.Direction), string(tx.DocumentType), string(status))
	logging.WithPartner(tx.TenantID, tx.PartnerID).Infow("[AS2Service] Async MDN applied",
		"transaction_id", tx.ID, "message_id", messageID, "disposition", mdn.Disposition)

	tx.Status = status
	tx.ErrorMessage = msg
	return tx, nil
}

func defaultDocumentType(p *gormModels.TradingPartner) constants.DocumentType {
	if p.DefaultDocumentType != "" {
		return p.DefaultDocumentType
	}
	return constants.DefaultInboundDocumentType
}

// storableContent keeps text as is and base64 encodes binary bodies, which a
// text column cannot hold
func storableContent(b []byte) string {
	if utf8.Valid(b) && bytes.IndexByte(b, 0) < 0 {
		return string(b)
	}
	return base64.StdEncoding.EncodeToString(b)
}
