package domain

import "testing"

func TestBandFor(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       ConfidenceBand
	}{
		{"established - 0.99", 0.99, BandEstablished},
		{"established boundary - 0.851", 0.851, BandEstablished},
		{"probable - 0.85", 0.85, BandProbable},
		{"probable boundary - 0.701", 0.701, BandProbable},
		{"uncertain - 0.70", 0.70, BandUncertain},
		{"uncertain boundary - 0.401", 0.401, BandUncertain},
		{"speculative - 0.40", 0.40, BandSpeculative},
		{"speculative - 0.0", 0.0, BandSpeculative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BandFor(tt.confidence)
			if got != tt.want {
				t.Errorf("BandFor(%v) = %v, want %v", tt.confidence, got, tt.want)
			}
		})
	}
}

func TestBandReason(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range []float64{0.9, 0.8, 0.5, 0.1} {
		r := BandReason(c)
		if r == "" {
			t.Errorf("BandReason(%v) is empty", c)
		}
		seen[r] = true
	}
	if len(seen) != len(AllBands()) {
		t.Errorf("expected one reason per band, got %d", len(seen))
	}
}
