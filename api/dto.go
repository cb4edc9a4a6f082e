/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: converts domain records into these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/planning-engine/planning"
)

// =============================================================================
// RUNS
// =============================================================================

// TriggerRunRequest starts a planning run. AsOf defaults to the loaded
// scenario's date (or today) when omitted.
type TriggerRunRequest struct {
	AsOf string `json:"as_of,omitempty"` // YYYY-MM-DD
}

// RunDTO is the pollable state of a run.
type RunDTO struct {
	ID         string     `json:"id"`
	Facility   string     `json:"facility"`
	AsOf       string     `json:"as_of"`
	State      string     `json:"state"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func toRunDTO(run planning.RunRecord) RunDTO {
	dto := RunDTO{
		ID:        string(run.ID),
		Facility:  string(run.FacilityID),
		AsOf:      run.AsOf.String(),
		State:     string(run.State),
		Error:     run.Error,
		StartedAt: run.StartedAt,
	}
	if !run.FinishedAt.IsZero() {
		t := run.FinishedAt
		dto.FinishedAt = &t
	}
	return dto
}

// =============================================================================
// MATERIAL REQUIREMENTS
// =============================================================================

// RequirementDTO is one item/bucket planning line.
type RequirementDTO struct {
	ItemID           string          `json:"item_id"`
	Bucket           string          `json:"bucket"`
	Gross            decimal.Decimal `json:"gross"`
	InventoryApplied decimal.Decimal `json:"inventory_applied"`
	ReceiptsApplied  decimal.Decimal `json:"receipts_applied"`
	Net              decimal.Decimal `json:"net"`
	OrderQty         decimal.Decimal `json:"order_qty"`
	ReleaseBucket    string          `json:"release_bucket,omitempty"`
	ShortageQty      decimal.Decimal `json:"shortage_qty"`
	ShortageCost     decimal.Decimal `json:"shortage_cost"`
	Priority         string          `json:"priority"`
	Status           string          `json:"status"`
}

func toRequirementDTO(r planning.MaterialRequirement) RequirementDTO {
	return RequirementDTO{
		ItemID:           string(r.ItemID),
		Bucket:           r.Bucket.String(),
		Gross:            r.Gross,
		InventoryApplied: r.InventoryApplied,
		ReceiptsApplied:  r.ReceiptsApplied,
		Net:              r.Net,
		OrderQty:         r.OrderQty,
		ReleaseBucket:    r.ReleaseBucket.String(),
		ShortageQty:      r.ShortageQty,
		ShortageCost:     r.ShortageCost,
		Priority:         string(r.Priority),
		Status:           string(r.Status),
	}
}

// ItemErrorDTO is a per-item planning failure.
type ItemErrorDTO struct {
	ItemID string `json:"item_id"`
	Class  string `json:"class"`
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}

// WarningDTO is a data-quality warning.
type WarningDTO struct {
	Code       string `json:"code"`
	ItemID     string `json:"item_id,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
	Detail     string `json:"detail"`
}

// MaterialBatchDTO is the full material side of a run.
type MaterialBatchDTO struct {
	RunID        string           `json:"run_id"`
	Facility     string           `json:"facility"`
	AsOf         string           `json:"as_of"`
	Requirements []RequirementDTO `json:"requirements"`
	ItemErrors   []ItemErrorDTO   `json:"item_errors"`
	Warnings     []WarningDTO     `json:"warnings"`
}

func toMaterialBatchDTO(b planning.MaterialRequirementBatch) MaterialBatchDTO {
	dto := MaterialBatchDTO{
		RunID:        string(b.RunID),
		Facility:     string(b.FacilityID),
		AsOf:         b.AsOf.String(),
		Requirements: make([]RequirementDTO, 0, len(b.Requirements)),
		ItemErrors:   make([]ItemErrorDTO, 0, len(b.ItemErrors)),
		Warnings:     make([]WarningDTO, 0, len(b.Warnings)),
	}
	for _, r := range b.Requirements {
		dto.Requirements = append(dto.Requirements, toRequirementDTO(r))
	}
	for _, e := range b.ItemErrors {
		dto.ItemErrors = append(dto.ItemErrors, ItemErrorDTO{
			ItemID: string(e.ItemID), Class: string(e.Class), Stage: e.Stage, Detail: e.Detail,
		})
	}
	for _, w := range b.Warnings {
		dto.Warnings = append(dto.Warnings, toWarningDTO(w))
	}
	return dto
}

func toWarningDTO(w planning.DataWarning) WarningDTO {
	return WarningDTO{
		Code:       w.Code,
		ItemID:     string(w.ItemID),
		ResourceID: string(w.ResourceID),
		Bucket:     w.Bucket.String(),
		Detail:     w.Detail,
	}
}

// =============================================================================
// CAPACITY
// =============================================================================

// CapacityLoadDTO is one resource/bucket utilization line.
type CapacityLoadDTO struct {
	ResourceID  string          `json:"resource_id"`
	Bucket      string          `json:"bucket"`
	PlannedLoad decimal.Decimal `json:"planned_load"`
	Available   decimal.Decimal `json:"available"`
	Utilization decimal.Decimal `json:"utilization"`
	Bottleneck  bool            `json:"bottleneck"`
	ExcessHours decimal.Decimal `json:"excess_hours"`
}

// CapacityBatchDTO is the full capacity side of a run.
type CapacityBatchDTO struct {
	RunID    string            `json:"run_id"`
	Facility string            `json:"facility"`
	AsOf     string            `json:"as_of"`
	Loads    []CapacityLoadDTO `json:"loads"`
	Warnings []WarningDTO      `json:"warnings"`
}

func toCapacityBatchDTO(b planning.CapacityLoadBatch) CapacityBatchDTO {
	dto := CapacityBatchDTO{
		RunID:    string(b.RunID),
		Facility: string(b.FacilityID),
		AsOf:     b.AsOf.String(),
		Loads:    make([]CapacityLoadDTO, 0, len(b.Loads)),
		Warnings: make([]WarningDTO, 0, len(b.Warnings)),
	}
	for _, l := range b.Loads {
		dto.Loads = append(dto.Loads, CapacityLoadDTO{
			ResourceID:  string(l.ResourceID),
			Bucket:      l.Bucket.String(),
			PlannedLoad: l.PlannedLoad,
			Available:   l.Available,
			Utilization: l.Utilization,
			Bottleneck:  l.Bottleneck,
			ExcessHours: l.ExcessHours,
		})
	}
	for _, w := range b.Warnings {
		dto.Warnings = append(dto.Warnings, toWarningDTO(w))
	}
	return dto
}

// =============================================================================
// SUMMARY AND SCENARIOS
// =============================================================================

// SummaryDTO carries the dashboard aggregates.
type SummaryDTO struct {
	RunID              string          `json:"run_id"`
	TotalMaterials     int             `json:"total_materials"`
	ShortageItems      int             `json:"shortage_items"`
	CriticalShortages  int             `json:"critical_shortages"`
	TotalShortageValue decimal.Decimal `json:"total_shortage_value"`
	AverageLeadTime    decimal.Decimal `json:"average_lead_time"`
}

func toSummaryDTO(s planning.RunSummary) SummaryDTO {
	return SummaryDTO{
		RunID:              string(s.RunID),
		TotalMaterials:     s.TotalMaterials,
		ShortageItems:      s.ShortageItems,
		CriticalShortages:  s.CriticalShortages,
		TotalShortageValue: s.TotalShortageValue,
		AverageLeadTime:    s.AverageLeadTime,
	}
}

// ScenarioDTO describes a loadable demo dataset.
type ScenarioDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AsOf        string `json:"as_of"`
	Current     bool   `json:"current"`
}

// LoadScenarioRequest selects the active scenario.
type LoadScenarioRequest struct {
	Name string `json:"name"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
