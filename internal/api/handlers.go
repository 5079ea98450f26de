package api

import (
	"context"
	"infinite-experiment/edigate/internal/auth"
	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/db/repositories"
	"infinite-experiment/edigate/internal/jobs"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
	"infinite-experiment/edigate/internal/services"
	"net/http"
)

// PartnerManager is the partner, mapping and settings surface the API needs
type PartnerManager interface {
	List(ctx context.Context, tenantID string) ([]gormModels.TradingPartner, error)
	Get(ctx context.Context, tenantID, partnerID string) (*gormModels.TradingPartner, error)
	Create(ctx context.Context, p *gormModels.TradingPartner) error
	Update(ctx context.Context, p *gormModels.TradingPartner) error
	Deactivate(ctx context.Context, tenantID, partnerID string) error
	ListMappings(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType) ([]gormModels.EdiFieldMapping, error)
	ReplaceMappings(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType, rules []gormModels.EdiFieldMapping) error
	GetSettings(ctx context.Context, tenantID string) (*gormModels.EdiSettings, error)
	UpdateSettings(ctx context.Context, settings *gormModels.EdiSettings) error
}

// TransactionReader serves the transaction log
type TransactionReader interface {
	List(ctx context.Context, f repositories.TransactionFilter) ([]gormModels.EdiTransaction, error)
	Get(ctx context.Context, tenantID, id string) (*gormModels.EdiTransaction, error)
}

// DocumentSender generates and delivers outbound documents
type DocumentSender interface {
	Send(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType, entityID string) (*gormModels.EdiTransaction, error)
}

// AS2Receiver handles the public AS2 endpoints
type AS2Receiver interface {
	Receive(ctx context.Context, req services.AS2ReceiveRequest) (*services.AS2Response, error)
	HandleAsyncMDN(ctx context.Context, body []byte) (*gormModels.EdiTransaction, error)
}

// JobScheduler exposes the SFTP poll scheduler
type JobScheduler interface {
	RunNow(ctx context.Context, tenantID, partnerID string) (*jobs.PollResult, error)
	PollAll(ctx context.Context, tenantID string) []*jobs.PollResult
	Refresh(ctx context.Context) (int, error)
	Status(tenantID string) []jobs.JobStatus
}

var (
	_ PartnerManager    = (*services.PartnerService)(nil)
	_ TransactionReader = (*repositories.TransactionRepo)(nil)
	_ DocumentSender    = (*services.OutboundService)(nil)
	_ AS2Receiver       = (*services.AS2Service)(nil)
	_ JobScheduler      = (*jobs.PollScheduler)(nil)
)

func tenantFrom(r *http.Request) string {
	return auth.TenantID(r.Context())
}

// requireTenant writes a 401 and returns "" when the caller has no tenant
func requireTenant(w http.ResponseWriter, r *http.Request) string {
	tenantID := tenantFrom(r)
	if tenantID == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized: missing claims")
	}
	return tenantID
}
