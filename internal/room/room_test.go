package room

import "testing"

func TestRoomTotal(t *testing.T) {
	r := Room{
		Title: "Dinner",
		Menu: []MenuItem{
			{ID: "0", Name: "Pizza", Price: 60},
			{ID: "1", Name: "Pasta", Price: 30},
			{ID: "2", Name: "Water"},
		},
	}
	if got := r.Total(); got != 90 {
		t.Fatalf("expected total 90, got %v", got)
	}

	if got := (Room{}).Total(); got != 0 {
		t.Fatalf("expected empty menu total 0, got %v", got)
	}
}

func TestComputeSplit(t *testing.T) {
	tests := []struct {
		name         string
		total        float64
		others       int
		participants int
		share        float64
	}{
		{"alone", 100, 0, 1, 100},
		{"three others", 100, 3, 4, 25},
		{"two others", 90, 2, 3, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeSplit(tt.total, tt.others)
			if s.Total != tt.total {
				t.Errorf("total: expected %v, got %v", tt.total, s.Total)
			}
			if s.Participants != tt.participants {
				t.Errorf("participants: expected %d, got %d", tt.participants, s.Participants)
			}
			if s.Share != tt.share {
				t.Errorf("share: expected %v, got %v", tt.share, s.Share)
			}
		})
	}
}

func TestComputeSplitDegenerateCount(t *testing.T) {
	// A negative delta can only come from a buggy presence feed; the
	// share falls back to the raw total instead of dividing by zero.
	s := ComputeSplit(100, -1)
	if s.Share != 100 {
		t.Fatalf("expected share 100, got %v", s.Share)
	}
}
