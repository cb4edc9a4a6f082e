package planning

import (
	"testing"
)

func TestSummarize(t *testing.T) {
	items := map[ItemID]Item{
		"A": lflItem("A", 2),
		"B": lflItem("B", 5),
		"C": lflItem("C", 8),
	}
	batch := MaterialRequirementBatch{
		RunID: "run-1",
		Requirements: []MaterialRequirement{
			{ItemID: "A", Bucket: day(2), Priority: PriorityCritical, ShortageQty: dec("10"), ShortageCost: dec("100")},
			{ItemID: "A", Bucket: day(9), Priority: PriorityLow},
			{ItemID: "B", Bucket: day(4), Priority: PriorityHigh, ShortageQty: dec("5"), ShortageCost: dec("40")},
			{ItemID: "C", Bucket: day(6), Priority: PriorityLow},
		},
	}

	s := Summarize(batch, items)

	if s.RunID != "run-1" {
		t.Errorf("run id = %s, want run-1", s.RunID)
	}
	if s.TotalMaterials != 3 {
		t.Errorf("total materials = %d, want 3 distinct items", s.TotalMaterials)
	}
	if s.ShortageItems != 2 {
		t.Errorf("shortage items = %d, want 2", s.ShortageItems)
	}
	if s.CriticalShortages != 1 {
		t.Errorf("critical shortages = %d, want 1", s.CriticalShortages)
	}
	if !s.TotalShortageValue.Equal(dec("140")) {
		t.Errorf("shortage value = %s, want 140", s.TotalShortageValue)
	}
	// (2 + 5 + 8) / 3 = 5
	if !s.AverageLeadTime.Equal(dec("5")) {
		t.Errorf("average lead time = %s, want 5", s.AverageLeadTime)
	}
}

func TestSummarize_EmptyBatch(t *testing.T) {
	s := Summarize(MaterialRequirementBatch{RunID: "run-1"}, nil)
	if s.TotalMaterials != 0 || s.ShortageItems != 0 {
		t.Errorf("empty batch produced counts: %+v", s)
	}
	if !s.AverageLeadTime.IsZero() {
		t.Errorf("average lead time = %s, want 0", s.AverageLeadTime)
	}
}
