/*
scenarios.go - Demo dataset management

PURPOSE:
  The planning engine normally reads live catalog/demand/inventory
  services. For demos and local development the API instead serves the
  built-in scenarios from the factory package; loading one swaps the
  orchestrator's input sources.

SEE ALSO:
  - factory/scenario.go: the datasets themselves
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/warp/planning-engine/factory"
)

// ListScenarios returns the built-in datasets. GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	current, _ := h.current()
	var out []ScenarioDTO
	for _, s := range factory.Scenarios() {
		out = append(out, ScenarioDTO{
			Name:        s.Name,
			Description: s.Description,
			AsOf:        s.AsOf.String(),
			Current:     s.Name == current.Name,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the active dataset. GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current, _ := h.current()
	writeJSON(w, http.StatusOK, ScenarioDTO{
		Name:        current.Name,
		Description: current.Description,
		AsOf:        current.AsOf.String(),
		Current:     true,
	})
}

// LoadScenario activates a dataset. POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	scenario, err := factory.ByName(req.Name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.setScenario(scenario)
	h.Log.WithField("scenario", scenario.Name).Info("scenario loaded")
	writeJSON(w, http.StatusOK, ScenarioDTO{
		Name:        scenario.Name,
		Description: scenario.Description,
		AsOf:        scenario.AsOf.String(),
		Current:     true,
	})
}
