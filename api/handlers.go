/*
handlers.go - HTTP handlers for the planning API

PURPOSE:
  Implements the run lifecycle and batch query endpoints. Runs are
  fire-and-forget: triggering returns a run id immediately and the caller
  polls the run state until it is terminal, then reads the published
  batches. "Current" endpoints resolve the latest completed run at query
  time.

HANDLER GROUPS:
  Runs:     TriggerRun, ListRuns, GetRun
  Batches:  GetRequirements, GetCapacity, GetSummary, GetErrors
  Current:  CurrentRequirements, CurrentCapacity, CurrentSummary
  (scenario handlers live in scenarios.go)

ERROR MAPPING:
  planning.ErrRunNotFound -> 404
  bad request bodies/dates -> 400
  everything else -> 500

SEE ALSO:
  - server.go: route wiring
  - scenarios.go: demo dataset management
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/planning-engine/factory"
	"github.com/warp/planning-engine/planning"
)

// Handler carries the API dependencies.
type Handler struct {
	Store     planning.BatchStore
	Facility  planning.FacilityID
	Threshold decimal.Decimal // soft bottleneck threshold
	Log       *logrus.Logger

	mu       sync.Mutex
	scenario factory.Scenario
	orch     *planning.Orchestrator
}

// NewHandler wires a handler with the first built-in scenario loaded.
func NewHandler(store planning.BatchStore, facility planning.FacilityID, threshold decimal.Decimal, log *logrus.Logger) *Handler {
	h := &Handler{
		Store:     store,
		Facility:  facility,
		Threshold: threshold,
		Log:       log,
	}
	h.setScenario(factory.Scenarios()[0])
	return h
}

// setScenario swaps the active dataset and rebuilds the orchestrator over
// its sources. Callers hold no lock; this takes it.
func (h *Handler) setScenario(s factory.Scenario) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scenario = s
	h.orch = planning.NewOrchestrator(
		planning.Config{
			Facility:            h.Facility,
			BottleneckThreshold: h.Threshold,
			Parallelism:         4,
		},
		s.Catalog, s.Demand, s.Inventory,
		h.Store, h.Log,
	)
}

func (h *Handler) current() (factory.Scenario, *planning.Orchestrator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scenario, h.orch
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// TriggerRun starts a planning run. POST /api/runs
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req TriggerRunRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	scenario, orch := h.current()
	asOf := scenario.AsOf
	if req.AsOf != "" {
		parsed, err := planning.ParseBucket(req.AsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	// Detach from the request context: the run outlives the HTTP exchange.
	id, err := orch.Start(context.Background(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": string(id)})
}

// ListRuns returns the facility's runs, newest first. GET /api/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context(), h.Facility)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunDTO(run))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRun returns one run's state. GET /api/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.GetRun(r.Context(), planning.RunID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(run))
}

// =============================================================================
// BATCH HANDLERS
// =============================================================================

// GetRequirements returns a run's material batch. GET /api/runs/{id}/requirements
func (h *Handler) GetRequirements(w http.ResponseWriter, r *http.Request) {
	batch, err := h.Store.MaterialBatch(r.Context(), planning.RunID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaterialBatchDTO(batch))
}

// GetCapacity returns a run's capacity batch. GET /api/runs/{id}/capacity
func (h *Handler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	batch, err := h.Store.CapacityBatch(r.Context(), planning.RunID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCapacityBatchDTO(batch))
}

// GetSummary returns a run's aggregates. GET /api/runs/{id}/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Store.Summary(r.Context(), planning.RunID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(sum))
}

// GetErrors returns a run's per-item errors. GET /api/runs/{id}/errors
func (h *Handler) GetErrors(w http.ResponseWriter, r *http.Request) {
	batch, err := h.Store.MaterialBatch(r.Context(), planning.RunID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaterialBatchDTO(batch).ItemErrors)
}

// =============================================================================
// CURRENT HANDLERS - Latest completed run, resolved per request
// =============================================================================

func (h *Handler) currentRun(w http.ResponseWriter, r *http.Request) (planning.RunRecord, bool) {
	run, err := h.Store.LatestCompleted(r.Context(), h.Facility)
	if err != nil {
		writeStoreError(w, err)
		return planning.RunRecord{}, false
	}
	return run, true
}

// CurrentRequirements serves the latest completed material batch.
func (h *Handler) CurrentRequirements(w http.ResponseWriter, r *http.Request) {
	run, ok := h.currentRun(w, r)
	if !ok {
		return
	}
	batch, err := h.Store.MaterialBatch(r.Context(), run.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaterialBatchDTO(batch))
}

// CurrentCapacity serves the latest completed capacity batch.
func (h *Handler) CurrentCapacity(w http.ResponseWriter, r *http.Request) {
	run, ok := h.currentRun(w, r)
	if !ok {
		return
	}
	batch, err := h.Store.CapacityBatch(r.Context(), run.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCapacityBatchDTO(batch))
}

// CurrentSummary serves the latest completed run summary.
func (h *Handler) CurrentSummary(w http.ResponseWriter, r *http.Request) {
	run, ok := h.currentRun(w, r)
	if !ok {
		return
	}
	sum, err := h.Store.Summary(r.Context(), run.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(sum))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, planning.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
