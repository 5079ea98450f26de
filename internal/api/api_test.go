package api

import (
	"context"
	"encoding/json"
	"errors"
	"infinite-experiment/edigate/internal/as2"
	"infinite-experiment/edigate/internal/auth"
	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/db/repositories"
	"infinite-experiment/edigate/internal/erp"
	"infinite-experiment/edigate/internal/jobs"
	"infinite-experiment/edigate/internal/models/dtos/responses"
	"infinite-experiment/edigate/internal/models/entities"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
	"infinite-experiment/edigate/internal/services"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

const testTenant = "11111111-1111-1111-1111-111111111111"

type mockPartnerManager struct {
	ListFunc            func(ctx context.Context, tenantID string) ([]gormModels.TradingPartner, error)
	GetFunc             func(ctx context.Context, tenantID, partnerID string) (*gormModels.TradingPartner, error)
	CreateFunc          func(ctx context.Context, p *gormModels.TradingPartner) error
	UpdateFunc          func(ctx context.Context, p *gormModels.TradingPartner) error
	DeactivateFunc      func(ctx context.Context, tenantID, partnerID string) error
	ListMappingsFunc    func(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType) ([]gormModels.EdiFieldMapping, error)
	ReplaceMappingsFunc func(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType, rules []gormModels.EdiFieldMapping) error
	GetSettingsFunc     func(ctx context.Context, tenantID string) (*gormModels.EdiSettings, error)
	UpdateSettingsFunc  func(ctx context.Context, settings *gormModels.EdiSettings) error
}

func (m *mockPartnerManager) List(ctx context.Context, tenantID string) ([]gormModels.TradingPartner, error) {
	return m.ListFunc(ctx, tenantID)
}

func (m *mockPartnerManager) Get(ctx context.Context, tenantID, partnerID string) (*gormModels.TradingPartner, error) {
	return m.GetFunc(ctx, tenantID, partnerID)
}

func (m *mockPartnerManager) Create(ctx context.Context, p *gormModels.TradingPartner) error {
	return m.CreateFunc(ctx, p)
}

func (m *mockPartnerManager) Update(ctx context.Context, p *gormModels.TradingPartner) error {
	return m.UpdateFunc(ctx, p)
}

func (m *mockPartnerManager) Deactivate(ctx context.Context, tenantID, partnerID string) error {
	return m.DeactivateFunc(ctx, tenantID, partnerID)
}

func (m *mockPartnerManager) ListMappings(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType) ([]gormModels.EdiFieldMapping, error) {
	return m.ListMappingsFunc(ctx, tenantID, partnerID, docType)
}

func (m *mockPartnerManager) ReplaceMappings(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType, rules []gormModels.EdiFieldMapping) error {
	return m.ReplaceMappingsFunc(ctx, tenantID, partnerID, docType, rules)
}

func (m *mockPartnerManager) GetSettings(ctx context.Context, tenantID string) (*gormModels.EdiSettings, error) {
	return m.GetSettingsFunc(ctx, tenantID)
}

func (m *mockPartnerManager) UpdateSettings(ctx context.Context, settings *gormModels.EdiSettings) error {
	return m.UpdateSettingsFunc(ctx, settings)
}

type mockTransactionReader struct {
	ListFunc func(ctx context.Context, f repositories.TransactionFilter) ([]gormModels.EdiTransaction, error)
	GetFunc  func(ctx context.Context, tenantID, id string) (*gormModels.EdiTransaction, error)
}

func (m *mockTransactionReader) List(ctx context.Context, f repositories.TransactionFilter) ([]gormModels.EdiTransaction, error) {
	return m.ListFunc(ctx, f)
}

func (m *mockTransactionReader) Get(ctx context.Context, tenantID, id string) (*gormModels.EdiTransaction, error) {
	return m.GetFunc(ctx, tenantID, id)
}

type mockDocumentSender struct {
	SendFunc func(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType, entityID string) (*gormModels.EdiTransaction, error)
}

func (m *mockDocumentSender) Send(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType, entityID string) (*gormModels.EdiTransaction, error) {
	return m.SendFunc(ctx, tenantID, partnerID, docType, entityID)
}

type mockAS2Receiver struct {
	ReceiveFunc        func(ctx context.Context, req services.AS2ReceiveRequest) (*services.AS2Response, error)
	HandleAsyncMDNFunc func(ctx context.Context, body []byte) (*gormModels.EdiTransaction, error)
}

func (m *mockAS2Receiver) Receive(ctx context.Context, req services.AS2ReceiveRequest) (*services.AS2Response, error) {
	return m.ReceiveFunc(ctx, req)
}

func (m *mockAS2Receiver) HandleAsyncMDN(ctx context.Context, body []byte) (*gormModels.EdiTransaction, error) {
	return m.HandleAsyncMDNFunc(ctx, body)
}

type mockJobScheduler struct {
	RunNowFunc  func(ctx context.Context, tenantID, partnerID string) (*jobs.PollResult, error)
	PollAllFunc func(ctx context.Context, tenantID string) []*jobs.PollResult
	RefreshFunc func(ctx context.Context) (int, error)
	StatusFunc  func(tenantID string) []jobs.JobStatus
}

func (m *mockJobScheduler) RunNow(ctx context.Context, tenantID, partnerID string) (*jobs.PollResult, error) {
	return m.RunNowFunc(ctx, tenantID, partnerID)
}

func (m *mockJobScheduler) PollAll(ctx context.Context, tenantID string) []*jobs.PollResult {
	return m.PollAllFunc(ctx, tenantID)
}

func (m *mockJobScheduler) Refresh(ctx context.Context) (int, error) {
	return m.RefreshFunc(ctx)
}

func (m *mockJobScheduler) Status(tenantID string) []jobs.JobStatus {
	return m.StatusFunc(tenantID)
}

// serve routes one request through a chi router so URL parameters resolve
func serve(method, pattern, target string, body string, h http.HandlerFunc, authenticated bool) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		req = req.WithContext(auth.SetUserClaims(req.Context(), &auth.JWTClaims{Tenant: testTenant}))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) responses.APIResponse[T] {
	t.Helper()
	var resp responses.APIResponse[T]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestCreatePartnerHandler_Success(t *testing.T) {
	var created *gormModels.TradingPartner
	mock := &mockPartnerManager{
		CreateFunc: func(ctx context.Context, p *gormModels.TradingPartner) error {
			p.ID = "p-1"
			created = p
			return nil
		},
	}

	body := `{"name":"Acme","communication_method":"sftp","sftp_host":"sftp.acme.test","sftp_username":"edi",
		"sftp_password":"hunter2","sftp_incoming_dir":"/in","poll_schedule":"*/5 * * * *"}`
	rr := serve("POST", "/partners", "/partners", body, CreatePartnerHandler(mock), true)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if created.TenantID != testTenant {
		t.Errorf("Expected tenant %s, got %s", testTenant, created.TenantID)
	}
	if !created.IsActive || !created.RequestMDN {
		t.Errorf("Expected active partner requesting MDNs by default, got %+v", created)
	}
	if created.SFTPPassword != "hunter2" {
		t.Errorf("Expected password to be stored")
	}
	if strings.Contains(rr.Body.String(), "hunter2") {
		t.Error("Response must not echo the SFTP password")
	}

	resp := decode[responses.PartnerResponse](t, rr)
	if resp.Data == nil || resp.Data.ID != "p-1" || !resp.Data.HasSFTPPassword {
		t.Errorf("Unexpected partner response: %+v", resp.Data)
	}
}

func TestCreatePartnerHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest},
		{"validation", `{"name":"X","communication_method":"fax"}`,
			&services.ValidationError{Err: errors.New(`unsupported communication method "fax"`)}, http.StatusBadRequest},
		{"storage failure", `{"name":"X","communication_method":"as2","as2_id":"X"}`,
			errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockPartnerManager{
				CreateFunc: func(ctx context.Context, p *gormModels.TradingPartner) error { return tt.createErr },
			}
			rr := serve("POST", "/partners", "/partners", tt.body, CreatePartnerHandler(mock), true)
			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			resp := decode[any](t, rr)
			if resp.Status != "error" || resp.Error == "" {
				t.Errorf("Expected error response, got %+v", resp)
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(resp.Error, "connection refused") {
				t.Error("Internal errors must not leak to the caller")
			}
		})
	}
}

func TestPartnerHandlers_MissingClaims(t *testing.T) {
	mock := &mockPartnerManager{}
	rr := serve("GET", "/partners", "/partners", "", ListPartnersHandler(mock), false)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
}

func TestListPartnersHandler_Empty(t *testing.T) {
	mock := &mockPartnerManager{
		ListFunc: func(ctx context.Context, tenantID string) ([]gormModels.TradingPartner, error) {
			return nil, nil
		},
	}
	rr := serve("GET", "/partners", "/partners", "", ListPartnersHandler(mock), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"items":[]`) {
		t.Errorf("Expected empty items array, got %s", rr.Body.String())
	}
}

func TestGetPartnerHandler_NotFound(t *testing.T) {
	mock := &mockPartnerManager{
		GetFunc: func(ctx context.Context, tenantID, partnerID string) (*gormModels.TradingPartner, error) {
			return nil, services.ErrPartnerNotFound
		},
	}
	rr := serve("GET", "/partners/{id}", "/partners/missing", "", GetPartnerHandler(mock), true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestUpdatePartnerHandler_KeepsStoredSecrets(t *testing.T) {
	existing := &gormModels.TradingPartner{
		ID:                  "p-1",
		TenantID:            testTenant,
		Name:                "Acme",
		CommunicationMethod: constants.CommunicationSFTP,
		IsActive:            true,
		SFTPHost:            "old.acme.test",
		SFTPPassword:        "secret",
	}
	var updated *gormModels.TradingPartner
	mock := &mockPartnerManager{
		GetFunc: func(ctx context.Context, tenantID, partnerID string) (*gormModels.TradingPartner, error) {
			if partnerID != "p-1" {
				t.Errorf("Expected partner p-1, got %s", partnerID)
			}
			copied := *existing
			return &copied, nil
		},
		UpdateFunc: func(ctx context.Context, p *gormModels.TradingPartner) error {
			updated = p
			return nil
		},
	}

	body := `{"name":"Acme Corp","communication_method":"sftp","sftp_host":"new.acme.test","sftp_username":"edi",
		"sftp_incoming_dir":"/in","poll_schedule":"@hourly","is_active":false}`
	rr := serve("PUT", "/partners/{id}", "/partners/p-1", body, UpdatePartnerHandler(mock), true)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if updated.SFTPPassword != "secret" {
		t.Errorf("Expected stored password to survive, got %q", updated.SFTPPassword)
	}
	if updated.SFTPHost != "new.acme.test" || updated.Name != "Acme Corp" {
		t.Errorf("Expected configuration to be replaced, got %+v", updated)
	}
	if updated.IsActive {
		t.Error("Expected partner to be deactivated")
	}
}

func TestDeactivatePartnerHandler(t *testing.T) {
	var deactivated string
	mock := &mockPartnerManager{
		DeactivateFunc: func(ctx context.Context, tenantID, partnerID string) error {
			deactivated = partnerID
			return nil
		},
		GetFunc: func(ctx context.Context, tenantID, partnerID string) (*gormModels.TradingPartner, error) {
			return &gormModels.TradingPartner{ID: partnerID, IsActive: false}, nil
		},
	}
	rr := serve("DELETE", "/partners/{id}", "/partners/p-9", "", DeactivatePartnerHandler(mock), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if deactivated != "p-9" {
		t.Errorf("Expected p-9 to be deactivated, got %q", deactivated)
	}
}

func TestReplaceMappingsHandler(t *testing.T) {
	var stored []gormModels.EdiFieldMapping
	mock := &mockPartnerManager{
		ReplaceMappingsFunc: func(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType, rules []gormModels.EdiFieldMapping) error {
			if docType != constants.DocumentType850 {
				t.Errorf("Expected document type 850, got %s", docType)
			}
			stored = rules
			return nil
		},
	}

	body := `{"rules":[{"source_field":"PO","target_field":"poNumber"},{"source_field":"Qty","target_field":"quantity","transform":"number"}]}`
	rr := serve("PUT", "/partners/{id}/mappings/{docType}", "/partners/p-1/mappings/850", body, ReplaceMappingsHandler(mock), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(stored) != 2 || stored[0].Position != 1 || stored[1].Position != 2 {
		t.Fatalf("Expected two rules numbered in order, got %+v", stored)
	}
	if stored[1].PartnerID != "p-1" || stored[1].TenantID != testTenant {
		t.Errorf("Expected rules scoped to partner and tenant, got %+v", stored[1])
	}

	rr = serve("PUT", "/partners/{id}/mappings/{docType}", "/partners/p-1/mappings/999", body, ReplaceMappingsHandler(mock), true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown document type, got %d", rr.Code)
	}
}

func TestGetSettingsHandler(t *testing.T) {
	settings := &gormModels.EdiSettings{TenantID: testTenant, AS2ID: "SELLER", Certificate: "CERT", PrivateKey: "KEY-MATERIAL"}
	mock := &mockPartnerManager{
		GetSettingsFunc: func(ctx context.Context, tenantID string) (*gormModels.EdiSettings, error) {
			return settings, nil
		},
	}
	rr := serve("GET", "/settings", "/settings", "", GetSettingsHandler(mock), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "KEY-MATERIAL") {
		t.Error("Private key must never be returned")
	}
	resp := decode[responses.SettingsResponse](t, rr)
	if !resp.Data.HasPrivateKey || resp.Data.AS2ID != "SELLER" {
		t.Errorf("Unexpected settings response: %+v", resp.Data)
	}

	settings = nil
	rr = serve("GET", "/settings", "/settings", "", GetSettingsHandler(mock), true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 without settings, got %d", rr.Code)
	}
}

func TestUpdateSettingsHandler_KeepsKeyPairWhenOmitted(t *testing.T) {
	var saved *gormModels.EdiSettings
	mock := &mockPartnerManager{
		GetSettingsFunc: func(ctx context.Context, tenantID string) (*gormModels.EdiSettings, error) {
			return &gormModels.EdiSettings{ID: "s-1", TenantID: tenantID, AS2ID: "OLD", Certificate: "CERT", PrivateKey: "KEY"}, nil
		},
		UpdateSettingsFunc: func(ctx context.Context, s *gormModels.EdiSettings) error {
			saved = s
			return nil
		},
	}

	rr := serve("PUT", "/settings", "/settings", `{"as2_id":"NEW","company_name":"Seller"}`, UpdateSettingsHandler(mock), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if saved.AS2ID != "NEW" || saved.Certificate != "CERT" || saved.PrivateKey != "KEY" || saved.ID != "s-1" {
		t.Errorf("Unexpected saved settings: %+v", saved)
	}

	rr = serve("PUT", "/settings", "/settings", `{"company_name":"Seller"}`, UpdateSettingsHandler(mock), true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without as2_id, got %d", rr.Code)
	}
}

func TestListTransactionsHandler_Filter(t *testing.T) {
	var got repositories.TransactionFilter
	reader := &mockTransactionReader{
		ListFunc: func(ctx context.Context, f repositories.TransactionFilter) ([]gormModels.EdiTransaction, error) {
			got = f
			return []gormModels.EdiTransaction{{ID: "tx-1", RawContent: "ISA*..."}}, nil
		},
	}

	rr := serve("GET", "/transactions", "/transactions?direction=inbound&status=failed&document_type=850&limit=9999&offset=10",
		"", ListTransactionsHandler(reader), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	want := repositories.TransactionFilter{
		TenantID:     testTenant,
		Direction:    constants.DirectionInbound,
		Status:       constants.StatusFailed,
		DocumentType: constants.DocumentType850,
		Limit:        500,
		Offset:       10,
	}
	if got != want {
		t.Errorf("Expected filter %+v, got %+v", want, got)
	}
	if strings.Contains(rr.Body.String(), "ISA*") {
		t.Error("List responses must omit content")
	}

	for _, q := range []string{"direction=sideways", "limit=0", "offset=-1", "document_type=123"} {
		rr := serve("GET", "/transactions", "/transactions?"+q, "", ListTransactionsHandler(reader), true)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %s, got %d", q, rr.Code)
		}
	}
}

func TestGetTransactionHandler(t *testing.T) {
	reader := &mockTransactionReader{
		GetFunc: func(ctx context.Context, tenantID, id string) (*gormModels.EdiTransaction, error) {
			if id == "tx-1" {
				return &gormModels.EdiTransaction{ID: id, TenantID: tenantID, RawContent: "ISA*00"}, nil
			}
			return nil, nil
		},
	}

	rr := serve("GET", "/transactions/{id}", "/transactions/tx-1", "", GetTransactionHandler(reader), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	resp := decode[responses.TransactionResponse](t, rr)
	if resp.Data.RawContent != "ISA*00" {
		t.Errorf("Expected raw content in detail response, got %+v", resp.Data)
	}

	rr = serve("GET", "/transactions/{id}", "/transactions/tx-2", "", GetTransactionHandler(reader), true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestSendOutboundHandler(t *testing.T) {
	failedTx := &gormModels.EdiTransaction{ID: "tx-f", Status: constants.StatusFailed, ErrorMessage: "as2 send failed"}
	tests := []struct {
		name       string
		docType    string
		body       string
		tx         *gormModels.EdiTransaction
		err        error
		wantStatus int
	}{
		{"delivered", "810", `{"partner_id":"p-1","entity_id":"so-1"}`,
			&gormModels.EdiTransaction{ID: "tx-1", Status: constants.StatusCompleted}, nil, http.StatusOK},
		{"delivery failed", "810", `{"partner_id":"p-1","entity_id":"so-1"}`,
			failedTx, &as2.SendError{StatusCode: 500, Body: "boom"}, http.StatusBadGateway},
		{"missing entity", "856", `{"partner_id":"p-1","entity_id":"so-x"}`,
			nil, &erp.ResolutionError{Entity: "sales order", Reference: "so-x"}, http.StatusNotFound},
		{"inactive partner", "850", `{"partner_id":"p-1","entity_id":"po-1"}`,
			nil, services.ErrPartnerInactive, http.StatusConflict},
		{"missing fields", "810", `{"partner_id":"p-1"}`, nil, nil, http.StatusBadRequest},
		{"997 rejected", "997", `{"partner_id":"p-1","entity_id":"x"}`, nil, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockDocumentSender{
				SendFunc: func(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType, entityID string) (*gormModels.EdiTransaction, error) {
					if string(docType) != tt.docType {
						t.Errorf("Expected document type %s, got %s", tt.docType, docType)
					}
					return tt.tx, tt.err
				},
			}
			rr := serve("POST", "/outbound/{docType}", "/outbound/"+tt.docType, tt.body, SendOutboundHandler(sender), true)
			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus == http.StatusBadGateway {
				resp := decode[responses.TransactionResponse](t, rr)
				if resp.Data == nil || resp.Data.ID != "tx-f" {
					t.Errorf("Expected failed transaction in response, got %+v", resp.Data)
				}
			}
		})
	}
}

func TestAS2ReceiveHandler_ReturnsMDN(t *testing.T) {
	var got services.AS2ReceiveRequest
	receiver := &mockAS2Receiver{
		ReceiveFunc: func(ctx context.Context, req services.AS2ReceiveRequest) (*services.AS2Response, error) {
			got = req
			return &services.AS2Response{
				StatusCode:    http.StatusOK,
				ContentType:   "multipart/report; boundary=x",
				Body:          []byte("MDN BODY"),
				TransactionID: "tx-7",
			}, nil
		},
	}

	req := httptest.NewRequest("POST", "/as2/receive", strings.NewReader("ISA*00"))
	req.Header.Set("AS2-From", "BUYER")
	req.Header.Set("AS2-To", "SELLER")
	req.Header.Set("Message-ID", "<m1@buyer>")
	req.Header.Set("Content-Type", "application/edi-x12")
	rr := httptest.NewRecorder()
	AS2ReceiveHandler(receiver, 1024).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "MDN BODY" {
		t.Errorf("Expected MDN body, got %q", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "multipart/report; boundary=x" {
		t.Errorf("Unexpected content type %q", ct)
	}
	if rr.Header().Get("X-Transaction-Id") != "tx-7" {
		t.Error("Expected transaction id header")
	}
	if got.AS2From != "BUYER" || got.AS2To != "SELLER" || got.MessageID != "<m1@buyer>" || string(got.Body) != "ISA*00" {
		t.Errorf("Unexpected receive request: %+v", got)
	}
}

func TestAS2ReceiveHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"unknown partner", "x", services.ErrUnknownAS2Partner, http.StatusNotFound},
		{"missing headers", "x", services.ErrMissingAS2Headers, http.StatusBadRequest},
		{"too large", strings.Repeat("x", 64), nil, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receiver := &mockAS2Receiver{
				ReceiveFunc: func(ctx context.Context, req services.AS2ReceiveRequest) (*services.AS2Response, error) {
					return nil, tt.err
				},
			}
			req := httptest.NewRequest("POST", "/as2/receive", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			AS2ReceiveHandler(receiver, 16).ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestAS2MDNHandler(t *testing.T) {
	tests := []struct {
		name       string
		tx         *gormModels.EdiTransaction
		err        error
		wantStatus int
	}{
		{"applied", &gormModels.EdiTransaction{ID: "tx-1", Status: constants.StatusAcknowledged}, nil, http.StatusOK},
		{"no match", nil, services.ErrTransactionNotFound, http.StatusNotFound},
		{"not an mdn", nil, as2.ErrNotMDN, http.StatusBadRequest},
		{"no original id", nil, services.ErrMissingOriginalID, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receiver := &mockAS2Receiver{
				HandleAsyncMDNFunc: func(ctx context.Context, body []byte) (*gormModels.EdiTransaction, error) {
					return tt.tx, tt.err
				},
			}
			req := httptest.NewRequest("POST", "/as2/mdn", strings.NewReader("mdn"))
			rr := httptest.NewRecorder()
			AS2MDNHandler(receiver, 1024).ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestJobHandlers(t *testing.T) {
	scheduler := &mockJobScheduler{
		RunNowFunc: func(ctx context.Context, tenantID, partnerID string) (*jobs.PollResult, error) {
			if partnerID == "p-1" {
				return &jobs.PollResult{PartnerID: partnerID, TenantID: tenantID, Files: 2, Moved: 2}, nil
			}
			return nil, jobs.ErrPartnerNotScheduled
		},
		PollAllFunc: func(ctx context.Context, tenantID string) []*jobs.PollResult {
			return []*jobs.PollResult{
				{PartnerID: "p-1", TenantID: tenantID, Files: 1},
				{PartnerID: "p-3", TenantID: tenantID, Error: "dial tcp: timeout"},
			}
		},
		RefreshFunc: func(ctx context.Context) (int, error) { return 3, nil },
		StatusFunc: func(tenantID string) []jobs.JobStatus {
			return []jobs.JobStatus{{PartnerID: "p-1", TenantID: tenantID, Schedule: "@hourly"}}
		},
	}

	rr := serve("POST", "/jobs/poll/{partnerId}", "/jobs/poll/p-1", "", PollPartnerHandler(scheduler), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	poll := decode[jobs.PollResult](t, rr)
	if poll.Data.Files != 2 {
		t.Errorf("Expected 2 files, got %+v", poll.Data)
	}

	rr = serve("POST", "/jobs/poll/{partnerId}", "/jobs/poll/p-2", "", PollPartnerHandler(scheduler), true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unscheduled partner, got %d", rr.Code)
	}

	rr = serve("POST", "/jobs/poll", "/jobs/poll", "", PollAllHandler(scheduler), true)
	all := decode[responses.ListResponse[jobs.PollResult]](t, rr)
	if rr.Code != http.StatusOK || all.Data.Count != 2 || all.Data.Items[1].Error == "" {
		t.Errorf("Expected both poll results, got %d %+v", rr.Code, all.Data)
	}

	rr = serve("POST", "/jobs/refresh", "/jobs/refresh", "", RefreshJobsHandler(scheduler), true)
	refresh := decode[RefreshJobsResponse](t, rr)
	if rr.Code != http.StatusOK || refresh.Data.Scheduled != 3 {
		t.Errorf("Expected 3 scheduled jobs, got %d %+v", rr.Code, refresh.Data)
	}

	rr = serve("GET", "/jobs/status", "/jobs/status", "", JobStatusHandler(scheduler), true)
	status := decode[responses.ListResponse[jobs.JobStatus]](t, rr)
	if status.Data.Count != 1 || status.Data.Items[0].TenantID != testTenant {
		t.Errorf("Unexpected job status: %+v", status.Data)
	}
}

func TestHealthCheckHandler(t *testing.T) {
	up := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("dial tcp: refused") })

	rr := httptest.NewRecorder()
	HealthCheckHandler(time.Now().Add(-time.Minute), map[string]Pinger{"postgres": up}).
		ServeHTTP(rr, httptest.NewRequest("GET", "/healthCheck", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	HealthCheckHandler(time.Now(), map[string]Pinger{"postgres": up, "redis": down}).
		ServeHTTP(rr, httptest.NewRequest("GET", "/healthCheck", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", rr.Code)
	}
	var resp entities.HealthCheckResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "down" || resp.Dependencies["redis"].Status != "down" || resp.Dependencies["postgres"].Status != "ok" {
		t.Errorf("Unexpected health response: %+v", resp)
	}
}

func TestHealthCheckHandler_ReportsLatency(t *testing.T) {
	slow := PingFunc(func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	rr := httptest.NewRecorder()
	HealthCheckHandler(time.Now(), map[string]Pinger{"sftp": slow}).
		ServeHTTP(rr, httptest.NewRequest("GET", "/healthCheck", nil))
	var resp entities.HealthCheckResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got := resp.Dependencies["sftp"].LatencyMs; got < 20 {
		t.Errorf("Expected latency of at least 20ms, got %d", got)
	}
}
