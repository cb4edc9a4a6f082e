package planning

import (
	"testing"
)

func shortageLine(item string, bucket Bucket, qty, cost string, weight int) MaterialRequirement {
	return MaterialRequirement{
		ItemID:       ItemID(item),
		Bucket:       bucket,
		ShortageQty:  dec(qty),
		ShortageCost: dec(cost),
		DemandWeight: weight,
		Status:       StatusShortage,
	}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		req  MaterialRequirement
		item Item
		want PriorityClass
	}{
		{
			// 3 days out against a 5-day lead: no time left to react.
			name: "inside lead time is critical",
			req:  shortageLine("A", day(3), "10", "100", 1),
			item: lflItem("A", 5),
			want: PriorityCritical,
		},
		{
			name: "weight four is critical regardless of horizon",
			req:  shortageLine("A", day(30), "10", "100", 4),
			item: lflItem("A", 5),
			want: PriorityCritical,
		},
		{
			// 8 days out, lead 5: beyond lead but inside twice the lead.
			name: "shortage inside twice lead time is high",
			req:  shortageLine("A", day(8), "10", "100", 1),
			item: lflItem("A", 5),
			want: PriorityHigh,
		},
		{
			// 15 days out, lead 5: inside four times the lead.
			name: "shortage inside four times lead time is medium",
			req:  shortageLine("A", day(15), "10", "100", 1),
			item: lflItem("A", 5),
			want: PriorityMedium,
		},
		{
			// 25 days out against a 5-day lead: ample slack.
			name: "distant shortage is low",
			req:  shortageLine("A", day(25), "10", "100", 1),
			item: lflItem("A", 5),
			want: PriorityLow,
		},
		{
			name: "covered line far out is low",
			req: MaterialRequirement{
				ItemID: "A", Bucket: day(25), DemandWeight: 1, Status: StatusPlanned,
			},
			item: lflItem("A", 5),
			want: PriorityLow,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.req, tc.item, day(0)); got != tc.want {
				t.Errorf("classify = %s, want %s", got, tc.want)
			}
		})
	}
}

// =============================================================================
// REPORT ORDERING
// =============================================================================

func TestClassifyShortages_StampsAndOrders(t *testing.T) {
	items := map[ItemID]Item{
		"URGENT": lflItem("URGENT", 5),
		"LATER":  lflItem("LATER", 5),
		"CHEAP":  lflItem("CHEAP", 5),
		"DEAR":   lflItem("DEAR", 5),
		"FINE":   lflItem("FINE", 5),
	}
	reqs := []MaterialRequirement{
		shortageLine("LATER", day(25), "10", "100", 1),
		shortageLine("URGENT", day(3), "10", "100", 1),
		// Same class and bucket: the costlier shortage ranks first.
		shortageLine("CHEAP", day(8), "10", "50", 1),
		shortageLine("DEAR", day(8), "10", "500", 1),
		{ItemID: "FINE", Bucket: day(4), Status: StatusPlanned},
	}

	shortages := ClassifyShortages(reqs, items, day(0))

	// Every line got a class stamped in place, covered lines included.
	for _, r := range reqs {
		if r.Priority == "" {
			t.Errorf("item %s left unclassified", r.ItemID)
		}
	}
	// Covered lines stay out of the shortage report.
	if len(shortages) != 4 {
		t.Fatalf("got %d shortages, want 4", len(shortages))
	}
	wantOrder := []ItemID{"URGENT", "DEAR", "CHEAP", "LATER"}
	for i, id := range wantOrder {
		if shortages[i].ItemID != id {
			t.Errorf("shortages[%d] = %s, want %s", i, shortages[i].ItemID, id)
		}
	}
}
