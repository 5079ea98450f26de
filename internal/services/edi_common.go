package services

import (
	"context"
	"errors"
	"fmt"
	"infinite-experiment/edigate/internal/as2"
	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/db/repositories"
	"infinite-experiment/edigate/internal/mapping"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
	"strings"
)

var (
	ErrPartnerNotFound  = errors.New("trading partner not found")
	ErrPartnerInactive  = errors.New("trading partner is inactive")
	ErrAS2NotConfigured = errors.New("tenant AS2 identity is not configured")
)

// loadMapper builds the partner's mapper for a document type. A partner
// without rules gets an empty mapper, which passes rows through.
func loadMapper(ctx context.Context, repo *repositories.FieldMappingRepo, partnerID string, docType constants.DocumentType) (*mapping.Mapper, error) {
	if repo == nil {
		return mapping.NewMapperFromRules(), nil
	}
	records, err := repo.ListRules(ctx, partnerID, docType)
	if err != nil {
		return nil, err
	}
	return mapping.NewMapper(records)
}

// tenantKeys loads the tenant's own certificate and key. Missing settings
// yield nil keys.
func tenantKeys(settings *gormModels.EdiSettings) (*as2.KeyPair, error) {
	if settings == nil {
		return nil, nil
	}
	kp, err := as2.LoadKeyPair(settings.Certificate, settings.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant keys: %w", err)
	}
	return kp, nil
}

func fileExtension(format constants.DocumentFormat) string {
	switch format {
	case constants.FormatX12:
		return "edi"
	case constants.FormatXML:
		return "xml"
	case constants.FormatJSON:
		return "json"
	default:
		return "csv"
	}
}

func mimeTypeFor(format constants.DocumentFormat) string {
	switch format {
	case constants.FormatXML:
		return "application/xml"
	case constants.FormatJSON:
		return "application/json"
	case constants.FormatCSV:
		return "text/csv"
	default:
		return "application/edi-x12"
	}
}

// partnerFormat returns the partner's exchange format, x12 when unset
func partnerFormat(p *gormModels.TradingPartner) constants.DocumentFormat {
	if p.DocumentFormat == "" {
		return constants.FormatX12
	}
	return p.DocumentFormat
}

// normalizeControlNumber drops leading zeros so ISA13 and GS06 style values compare equal
func normalizeControlNumber(s string) string {
	s = strings.TrimLeft(strings.TrimSpace(s), "0")
	if s == "" {
		return "0"
	}
	return s
}
