package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"infinite-experiment/edigate/internal/api"
	"infinite-experiment/edigate/internal/auth"
	"infinite-experiment/edigate/internal/common"
	"infinite-experiment/edigate/internal/config"
	"infinite-experiment/edigate/internal/db/dbtest"
	"infinite-experiment/edigate/internal/metrics"
	"infinite-experiment/edigate/internal/models/dtos/responses"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	testSecret = "router-test-secret"
	tenantA    = "aaaaaaaa-0000-0000-0000-000000000001"
	tenantB    = "bbbbbbbb-0000-0000-0000-000000000002"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.AppConfig{
		JWTSecret:              testSecret,
		AS2RateLimit:           100,
		AS2RateBurst:           100,
		AS2HTTPTimeout:         5 * time.Second,
		DuplicateWindow:        time.Hour,
		MaxAS2BodyBytes:        1 << 20,
		SFTPTimeout:            5 * time.Second,
		SFTPMaxConcurrentPolls: 2,
	}
	reg := metrics.NewMetricsRegistryWith(prometheus.NewRegistry())

	deps, err := api.InitDependencies(context.Background(), cfg, dbtest.Open(t), nil, common.NewCacheService(60, 60), reg)
	if err != nil {
		t.Fatalf("Failed to init dependencies: %v", err)
	}
	t.Cleanup(deps.Services.Scheduler.Stop)

	return RegisterRoutes(cfg, deps, reg, time.Now())
}

func bearer(t *testing.T, tenantID string) string {
	t.Helper()
	token, err := auth.IssueToken(testSecret, tenantID, "ops@example.com", "admin", time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return "Bearer " + token
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_HealthCheck(t *testing.T) {
	h := newTestRouter(t)

	rr := do(h, "GET", "/healthCheck", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("Expected a request id header")
	}
}

func TestRouter_APIRequiresToken(t *testing.T) {
	h := newTestRouter(t)

	if rr := do(h, "GET", "/api/v1/partners", "", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", rr.Code)
	}
	if rr := do(h, "GET", "/api/v1/partners", "Bearer not-a-token", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 with a bad token, got %d", rr.Code)
	}
}

func TestRouter_PartnersAreTenantScoped(t *testing.T) {
	h := newTestRouter(t)
	tokenA := bearer(t, tenantA)

	rr := do(h, "POST", "/api/v1/partners", tokenA,
		`{"name":"Acme","communication_method":"as2","as2_id":"ACME","as2_url":"https://acme.example.com/as2"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created responses.APIResponse[responses.PartnerResponse]
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if created.Data == nil || created.Data.ID == "" {
		t.Fatalf("Expected created partner, got %+v", created)
	}

	rr = do(h, "GET", "/api/v1/partners", tokenA, "")
	var listA responses.APIResponse[responses.ListResponse[responses.PartnerResponse]]
	if err := json.NewDecoder(rr.Body).Decode(&listA); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if listA.Data.Count != 1 || listA.Data.Items[0].Name != "Acme" {
		t.Errorf("Expected one partner for tenant A, got %+v", listA.Data)
	}

	tokenB := bearer(t, tenantB)
	if rr := do(h, "GET", "/api/v1/partners/"+created.Data.ID, tokenB, ""); rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 across tenants, got %d", rr.Code)
	}
}

func TestRouter_AS2ReceiveRequiresHeaders(t *testing.T) {
	h := newTestRouter(t)

	rr := do(h, "POST", "/as2/receive", "", "ISA*00*")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without AS2 headers, got %d: %s", rr.Code, rr.Body.String())
	}
}
