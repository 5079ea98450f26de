package services

import (
	"context"
	"errors"
	"fmt"
	"infinite-experiment/edigate/internal/as2"
	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/db/repositories"
	"infinite-experiment/edigate/internal/logging"
	"infinite-experiment/edigate/internal/mapping"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
)

// ValidationError marks input the caller has to correct
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

// SchedulerRefresher rebuilds the polling jobs from the partner table
type SchedulerRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// PartnerService manages trading partners, their mapping rules and the
// tenant's own AS2 settings
type PartnerService struct {
	partners  *repositories.PartnerRepo
	settings  *repositories.SettingsRepo
	mappings  *repositories.FieldMappingRepo
	scheduler SchedulerRefresher
}

// NewPartnerService creates the service. scheduler may be nil when polling
// is disabled.
func NewPartnerService(
	partners *repositories.PartnerRepo,
	settings *repositories.SettingsRepo,
	mappings *repositories.FieldMappingRepo,
	scheduler SchedulerRefresher,
) *PartnerService {
	return &PartnerService{
		partners:  partners,
		settings:  settings,
		mappings:  mappings,
		scheduler: scheduler,
	}
}

func (s *PartnerService) List(ctx context.Context, tenantID string) ([]gormModels.TradingPartner, error) {
	return s.partners.ListByTenant(ctx, tenantID)
}

func (s *PartnerService) Get(ctx context.Context, tenantID, partnerID string) (*gormModels.TradingPartner, error) {
	p, err := s.partners.Get(ctx, tenantID, partnerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPartnerNotFound
	}
	return p, nil
}

// Create stores a new partner and reschedules polling
func (s *PartnerService) Create(ctx context.Context, p *gormModels.TradingPartner) error {
	if err := s.validate(p); err != nil {
		return err
	}

	// Column defaults apply to false booleans on insert, so they are
	// written again afterwards
	isActive, requestMDN := p.IsActive, p.RequestMDN
	if err := s.partners.Create(ctx, p); err != nil {
		return err
	}
	if !isActive || !requestMDN {
		p.IsActive, p.RequestMDN = isActive, requestMDN
		if err := s.partners.Update(ctx, p); err != nil {
			return err
		}
	}

	logging.WithPartner(p.TenantID, p.ID).Infow("[PartnerService] Partner created", "method", p.CommunicationMethod)
	s.refresh(ctx)
	return nil
}

// Update replaces a partner's configuration and reschedules polling
func (s *PartnerService) Update(ctx context.Context, p *gormModels.TradingPartner) error {
	if err := s.validate(p); err != nil {
		return err
	}
	if err := s.partners.Update(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrPartnerNotFound
		}
		return err
	}

	logging.WithPartner(p.TenantID, p.ID).Infow("[PartnerService] Partner updated", "active", p.IsActive)
	s.refresh(ctx)
	return nil
}

// Deactivate stops all exchange with a partner. Its history is kept.
func (s *PartnerService) Deactivate(ctx context.Context, tenantID, partnerID string) error {
	if err := s.partners.SetActive(ctx, tenantID, partnerID, false); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrPartnerNotFound
		}
		return err
	}
	logging.WithPartner(tenantID, partnerID).Infow("[PartnerService] Partner deactivated")
	s.refresh(ctx)
	return nil
}

func (s *PartnerService) validate(p *gormModels.TradingPartner) error {
	if err := p.Validate(); err != nil {
		return &ValidationError{Err: err}
	}
	if p.PartnerCertificate != "" {
		if _, err := as2.ParseCertificatePEM(p.PartnerCertificate); err != nil {
			return invalid("invalid partner certificate: %v", err)
		}
	}
	return nil
}

// refresh rebuilds the polling jobs. A failure is logged; the partner
// change itself has already been stored.
func (s *PartnerService) refresh(ctx context.Context) {
	if s.scheduler == nil {
		return
	}
	if _, err := s.scheduler.Refresh(ctx); err != nil {
		logging.Error("[PartnerService] Failed to refresh poll scheduler", "error", err)
	}
}

// ListMappings returns a partner's rules for one document type
func (s *PartnerService) ListMappings(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType) ([]gormModels.EdiFieldMapping, error) {
	if _, err := s.Get(ctx, tenantID, partnerID); err != nil {
		return nil, err
	}
	return s.mappings.ListRules(ctx, partnerID, docType)
}

// ReplaceMappings swaps a partner's rule set for one document type. Rules
// are checked by building a mapper before anything is stored.
func (s *PartnerService) ReplaceMappings(
	ctx context.Context,
	tenantID string,
	partnerID string,
	docType constants.DocumentType,
	rules []gormModels.EdiFieldMapping,
) error {
	if !docType.IsValid() {
		return invalid("unsupported document type %q", docType)
	}
	if _, err := s.Get(ctx, tenantID, partnerID); err != nil {
		return err
	}
	if _, err := mapping.NewMapper(rules); err != nil {
		return &ValidationError{Err: err}
	}
	return s.mappings.ReplaceRules(ctx, tenantID, partnerID, docType, rules)
}

// GetSettings returns the tenant's AS2 settings, or nil when none are stored
func (s *PartnerService) GetSettings(ctx context.Context, tenantID string) (*gormModels.EdiSettings, error) {
	return s.settings.GetByTenant(ctx, tenantID)
}

// UpdateSettings stores the tenant's identity. A certificate and key must be
// supplied together and must belong to each other.
func (s *PartnerService) UpdateSettings(ctx context.Context, settings *gormModels.EdiSettings) error {
	if (settings.Certificate == "") != (settings.PrivateKey == "") {
		return invalid("certificate and private key must be provided together")
	}
	if settings.Certificate != "" {
		kp, err := as2.LoadKeyPair(settings.Certificate, settings.PrivateKey)
		if err != nil {
			return &ValidationError{Err: err}
		}
		if kp == nil {
			return invalid("certificate and private key must not be blank")
		}
		if err := kp.Validate(); err != nil {
			return &ValidationError{Err: err}
		}
	}
	if err := s.settings.Upsert(ctx, settings); err != nil {
		return err
	}
	logging.Info("[PartnerService] Settings updated", "tenant_id", settings.TenantID, "as2_id", settings.AS2ID)
	return nil
}
