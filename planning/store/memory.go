// Package store provides BatchStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/planning-engine/planning"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	runs      map[planning.RunID]planning.RunRecord
	materials map[planning.RunID]planning.MaterialRequirementBatch
	capacity  map[planning.RunID]planning.CapacityLoadBatch
	summaries map[planning.RunID]planning.RunSummary
	order     []planning.RunID // creation order, for deterministic listing
}

func NewMemory() *Memory {
	return &Memory{
		runs:      make(map[planning.RunID]planning.RunRecord),
		materials: make(map[planning.RunID]planning.MaterialRequirementBatch),
		capacity:  make(map[planning.RunID]planning.CapacityLoadBatch),
		summaries: make(map[planning.RunID]planning.RunSummary),
	}
}

func (m *Memory) CreateRun(_ context.Context, run planning.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	m.order = append(m.order, run.ID)
	return nil
}

func (m *Memory) UpdateRun(_ context.Context, run planning.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return planning.ErrRunNotFound
	}
	m.runs[run.ID] = run
	return nil
}

// PublishBatch stores batches and the terminal state together. Memory has no
// real transactions; the single lock gives the same all-or-nothing view.
func (m *Memory) PublishBatch(_ context.Context, run planning.RunRecord, mat planning.MaterialRequirementBatch, cap planning.CapacityLoadBatch, sum planning.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return planning.ErrRunNotFound
	}
	m.runs[run.ID] = run
	m.materials[run.ID] = mat
	m.capacity[run.ID] = cap
	m.summaries[run.ID] = sum
	return nil
}

func (m *Memory) GetRun(_ context.Context, id planning.RunID) (planning.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return planning.RunRecord{}, planning.ErrRunNotFound
	}
	return run, nil
}

func (m *Memory) ListRuns(_ context.Context, facility planning.FacilityID) ([]planning.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []planning.RunRecord
	for _, id := range m.order {
		run := m.runs[id]
		if run.FacilityID == facility {
			out = append(out, run)
		}
	}
	// Newest first.
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (m *Memory) LatestCompleted(_ context.Context, facility planning.FacilityID) (planning.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best planning.RunRecord
	found := false
	for _, id := range m.order {
		run := m.runs[id]
		if run.FacilityID != facility || run.State != planning.RunComplete {
			continue
		}
		if !found || run.FinishedAt.After(best.FinishedAt) {
			best = run
			found = true
		}
	}
	if !found {
		return planning.RunRecord{}, planning.ErrRunNotFound
	}
	return best, nil
}

func (m *Memory) MaterialBatch(_ context.Context, id planning.RunID) (planning.MaterialRequirementBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.materials[id]
	if !ok {
		return planning.MaterialRequirementBatch{}, planning.ErrRunNotFound
	}
	return b, nil
}

func (m *Memory) CapacityBatch(_ context.Context, id planning.RunID) (planning.CapacityLoadBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.capacity[id]
	if !ok {
		return planning.CapacityLoadBatch{}, planning.ErrRunNotFound
	}
	return b, nil
}

func (m *Memory) Summary(_ context.Context, id planning.RunID) (planning.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[id]
	if !ok {
		return planning.RunSummary{}, planning.ErrRunNotFound
	}
	return s, nil
}
