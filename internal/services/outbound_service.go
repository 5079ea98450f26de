package services

import (
	"context"
	"fmt"
	"infinite-experiment/edigate/internal/as2"
	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/db/repositories"
	"infinite-experiment/edigate/internal/erp"
	"infinite-experiment/edigate/internal/formats"
	"infinite-experiment/edigate/internal/logging"
	"infinite-experiment/edigate/internal/metrics"
	"infinite-experiment/edigate/internal/models/dtos"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
	"infinite-experiment/edigate/internal/sftp"
	"infinite-experiment/edigate/internal/x12"
	"path"
	"strconv"
	"time"
)

// OutboundService turns ERP records into partner documents and delivers
// them over the partner's transport
type OutboundService struct {
	txRepo      *repositories.TransactionRepo
	partners    *repositories.PartnerRepo
	settings    *repositories.SettingsRepo
	mappings    *repositories.FieldMappingRepo
	bridge      *erp.Bridge
	as2Client   *as2.Client
	sftpDialer  sftp.Dialer
	metrics     *metrics.MetricsRegistry
	asyncMDNURL string
	now         func() time.Time
}

// NewOutboundService creates the outbound sender. asyncMDNURL, when set, asks
// partners to return MDNs asynchronously to that URL.
func NewOutboundService(
	txRepo *repositories.TransactionRepo,
	partners *repositories.PartnerRepo,
	settings *repositories.SettingsRepo,
	mappings *repositories.FieldMappingRepo,
	bridge *erp.Bridge,
	as2Client *as2.Client,
	sftpDialer sftp.Dialer,
	metricsReg *metrics.MetricsRegistry,
	asyncMDNURL string,
) *OutboundService {
	return &OutboundService{
		txRepo:      txRepo,
		partners:    partners,
		settings:    settings,
		mappings:    mappings,
		bridge:      bridge,
		as2Client:   as2Client,
		sftpDialer:  sftpDialer,
		metrics:     metricsReg,
		asyncMDNURL: asyncMDNURL,
		now:         time.Now,
	}
}

// Send generates the document for an ERP entity and delivers it. Lookup
// failures return an error without a transaction; once a document exists,
// the returned transaction records the delivery outcome.
func (s *OutboundService) Send(
	ctx context.Context,
	tenantID string,
	partnerID string,
	docType constants.DocumentType,
	entityID string,
) (*gormModels.EdiTransaction, error) {
	partner, err := s.partners.Get(ctx, tenantID, partnerID)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	if !partner.IsActive {
		return nil, ErrPartnerInactive
	}

	rows, err := s.bridge.Generate(ctx, tenantID, docType, entityID)
	if err != nil {
		return nil, err
	}
	return s.Deliver(ctx, partner, docType, rows)
}

// Deliver serializes canonical rows in the partner's format and sends them.
// It always writes exactly one outbound transaction.
func (s *OutboundService) Deliver(
	ctx context.Context,
	partner *gormModels.TradingPartner,
	docType constants.DocumentType,
	rows []dtos.Row,
) (*gormModels.EdiTransaction, error) {
	log := logging.WithPartner(partner.TenantID, partner.ID)

	settings, err := s.settings.GetByTenant(ctx, partner.TenantID)
	if err != nil {
		return nil, err
	}

	format := partnerFormat(partner)
	tx := &gormModels.EdiTransaction{
		TenantID:     partner.TenantID,
		PartnerID:    partner.ID,
		Direction:    constants.DirectionOutbound,
		DocumentType: docType,
		Format:       format,
	}

	content, controlNumber, serErr := s.serialize(ctx, partner, settings, docType, format, rows)
	tx.RawContent = string(content)
	tx.ControlNumber = controlNumber
	tx.FileName = s.fileName(docType, format, controlNumber)

	if serErr != nil {
		tx.Status = constants.StatusFailed
		tx.ErrorMessage = serErr.Error()
		if err := s.txRepo.Create(ctx, tx); err != nil {
			return nil, err
		}
		s.metrics.RecordTransaction(string(tx.Direction), string(docType), string(tx.Status))
		log.Warnw("[OutboundService] Failed to build document", "transaction_id", tx.ID, "error", serErr)
		return tx, serErr
	}

	var messageID string
	if partner.CommunicationMethod == constants.CommunicationAS2 && settings != nil && settings.AS2ID != "" {
		messageID = as2.NewMessageID(settings.AS2ID)
		tx.MessageID = as2.NormalizeMessageID(messageID)
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	var status constants.TransactionStatus
	var sendErr error
	switch partner.CommunicationMethod {
	case constants.CommunicationAS2:
		status, sendErr = s.sendAS2(ctx, partner, settings, format, content, messageID)
	case constants.CommunicationSFTP:
		status, sendErr = s.uploadSFTP(ctx, partner, tx.FileName, content)
	default:
		status, sendErr = constants.StatusFailed, fmt.Errorf("unsupported communication method %q", partner.CommunicationMethod)
	}

	errMsg := ""
	if sendErr != nil {
		status = constants.StatusFailed
		errMsg = sendErr.Error()
		log.Errorw("[OutboundService] Delivery failed", "transaction_id", tx.ID, "document_type", docType, "error", sendErr)
	} else {
		log.Infow("[OutboundService] Document delivered", "transaction_id", tx.ID, "document_type", docType, "status", status)
	}

	if err := s.txRepo.UpdateStatus(ctx, tx.ID, status, errMsg); err != nil {
		return tx, fmt.Errorf("failed to record delivery outcome: %w", err)
	}
	tx.Status = status
	tx.ErrorMessage = errMsg
	s.metrics.RecordTransaction(string(tx.Direction), string(docType), string(status))
	return tx, sendErr
}

func (s *OutboundService) serialize(
	ctx context.Context,
	partner *gormModels.TradingPartner,
	settings *gormModels.EdiSettings,
	docType constants.DocumentType,
	format constants.DocumentFormat,
	rows []dtos.Row,
) ([]byte, string, error) {
	mapper, err := loadMapper(ctx, s.mappings, partner.ID, docType)
	if err != nil {
		return nil, "", err
	}
	rows = mapper.ReverseRows(rows)

	if format == constants.FormatX12 {
		segments, err := x12.GenerateSegments(string(docType), rows)
		if err != nil {
			return nil, "", err
		}
		opts := x12.EnvelopeOptions{
			SenderQualifier:   "ZZ",
			SenderID:          partner.X12SenderID,
			ReceiverQualifier: "ZZ",
			ReceiverID:        partner.X12ReceiverID,
			Timestamp:         s.now().UTC(),
		}
		if opts.SenderID == "" && settings != nil {
			opts.SenderID = settings.X12SenderID
		}
		text, ctrl, err := x12.BuildInterchange(opts, string(docType), segments)
		if err != nil {
			return nil, "", err
		}
		return []byte(text), strconv.FormatInt(ctrl, 10), nil
	}

	content, err := formats.Generate(format, rows)
	if err != nil {
		return nil, "", err
	}
	return content, "", nil
}

func (s *OutboundService) fileName(docType constants.DocumentType, format constants.DocumentFormat, controlNumber string) string {
	name := fmt.Sprintf("%s_%s", docType, s.now().UTC().Format("20060102T150405"))
	if controlNumber != "" {
		name += "_" + controlNumber
	}
	return name + "." + fileExtension(format)
}

func (s *OutboundService) sendAS2(
	ctx context.Context,
	partner *gormModels.TradingPartner,
	settings *gormModels.EdiSettings,
	format constants.DocumentFormat,
	content []byte,
	messageID string,
) (constants.TransactionStatus, error) {
	if settings == nil || settings.AS2ID == "" {
		return constants.StatusFailed, ErrAS2NotConfigured
	}
	keys, err := tenantKeys(settings)
	if err != nil {
		return constants.StatusFailed, err
	}
	opts := as2.PackOptions{Signer: keys, ContentType: mimeTypeFor(format)}
	if partner.PartnerCertificate != "" {
		cert, err := as2.ParseCertificatePEM(partner.PartnerCertificate)
		if err != nil {
			return constants.StatusFailed, fmt.Errorf("invalid partner certificate: %w", err)
		}
		opts.Recipient = cert
	}

	packed, err := as2.Pack(content, opts)
	if err != nil {
		return constants.StatusFailed, err
	}

	req := as2.SendRequest{
		URL:        partner.AS2URL,
		AS2From:    settings.AS2ID,
		AS2To:      partner.AS2ID,
		MessageID:  messageID,
		Subject:    "EDI document from " + settings.AS2ID,
		Packed:     packed,
		RequestMDN: partner.RequestMDN,
	}
	if partner.RequestMDN {
		req.AsyncMDNURL = s.asyncMDNURL
	}

	result, err := s.as2Client.Send(ctx, req)
	if s.metrics != nil && result != nil {
		s.metrics.AS2SendDuration.Observe(result.Duration.Seconds())
	}
	if err != nil {
		s.metrics.RecordAS2(string(constants.DirectionOutbound), "error")
		return constants.StatusFailed, err
	}

	if result.MDN == nil {
		s.metrics.RecordAS2(string(constants.DirectionOutbound), "sent")
		return constants.StatusCompleted, nil
	}

	s.metrics.RecordAS2(string(constants.DirectionOutbound), string(result.MDN.Disposition))
	if !result.MDN.Processed() {
		return constants.StatusFailed, fmt.Errorf("partner MDN reported failure: %s", result.MDN.ErrorMessage)
	}
	if result.MDN.MIC != "" && !as2.MICMatches(packed.MIC, result.MDN.MIC) {
		logging.WithPartner(partner.TenantID, partner.ID).Warnw("[OutboundService] MDN MIC mismatch",
			"message_id", messageID, "expected", packed.MIC, "received", result.MDN.MIC)
	}
	return constants.StatusAcknowledged, nil
}

func (s *OutboundService) uploadSFTP(ctx context.Context, partner *gormModels.TradingPartner, fileName string, content []byte) (constants.TransactionStatus, error) {
	if partner.SFTPOutgoingDir == "" {
		return constants.StatusFailed, fmt.Errorf("partner has no outgoing directory")
	}
	client, err := s.sftpDialer.Dial(ctx, sftp.ConfigFromPartner(partner))
	if err != nil {
		return constants.StatusFailed, fmt.Errorf("failed to connect: %w", err)
	}
	defer client.Close()

	if err := client.WriteFile(path.Join(partner.SFTPOutgoingDir, fileName), content); err != nil {
		return constants.StatusFailed, fmt.Errorf("failed to upload %s: %w", fileName, err)
	}
	return constants.StatusCompleted, nil
}
