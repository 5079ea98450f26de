package api

import (
	"infinite-experiment/edigate/internal/jobs"
	"infinite-experiment/edigate/internal/logging"
	"infinite-experiment/edigate/internal/models/dtos/responses"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type RefreshJobsResponse struct {
	Scheduled   int       `json:"scheduled"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// PollPartnerHandler handles POST /api/v1/jobs/poll/{partnerId}. The poll
// runs synchronously; a failed poll is reported inside the result.
func PollPartnerHandler(scheduler JobScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}

		partnerID := chi.URLParam(r, "partnerId")
		logging.WithPartner(tenantID, partnerID).Infow("[JobsHandler] Poll manually triggered")

		result, err := scheduler.RunNow(r.Context(), tenantID, partnerID)
		if err != nil && result == nil {
			respondWithServiceError(w, r, err, "poll partner")
			return
		}
		respondWithSuccess(w, http.StatusOK, result)
	}
}

// PollAllHandler handles POST /api/v1/jobs/poll. Every scheduled partner
// of the caller is polled once.
func PollAllHandler(scheduler JobScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}

		logging.Info("[JobsHandler] Poll of all partners triggered", "tenant_id", tenantID)
		results := scheduler.PollAll(r.Context(), tenantID)

		polled := make([]jobs.PollResult, 0, len(results))
		for _, result := range results {
			polled = append(polled, *result)
		}
		resp := responses.NewListResponse(polled)
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}

// RefreshJobsHandler handles POST /api/v1/jobs/refresh
func RefreshJobsHandler(scheduler JobScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireTenant(w, r) == "" {
			return
		}

		n, err := scheduler.Refresh(r.Context())
		if err != nil {
			respondWithServiceError(w, r, err, "refresh poll jobs")
			return
		}
		respondWithSuccess(w, http.StatusOK, &RefreshJobsResponse{Scheduled: n, RefreshedAt: time.Now().UTC()})
	}
}

// JobStatusHandler handles GET /api/v1/jobs/status for the caller's partners
func JobStatusHandler(scheduler JobScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}

		resp := responses.NewListResponse[jobs.JobStatus](scheduler.Status(tenantID))
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}
