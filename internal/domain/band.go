package domain

// ConfidenceBand is a coarse reading of a confidence value for people who
// should not have to interpret raw numbers.
type ConfidenceBand string

const (
	BandEstablished ConfidenceBand = "established"
	BandProbable    ConfidenceBand = "probable"
	BandUncertain   ConfidenceBand = "uncertain"
	BandSpeculative ConfidenceBand = "speculative"
)

func BandFor(confidence float64) ConfidenceBand {
	switch {
	case confidence > 0.85:
		return BandEstablished
	case confidence > 0.70:
		return BandProbable
	case confidence > 0.40:
		return BandUncertain
	default:
		return BandSpeculative
	}
}

func BandReason(confidence float64) string {
	switch BandFor(confidence) {
	case BandEstablished:
		return "confidence > 0.85"
	case BandProbable:
		return "0.70 < confidence <= 0.85"
	case BandUncertain:
		return "0.40 < confidence <= 0.70"
	default:
		return "confidence <= 0.40"
	}
}

func AllBands() []ConfidenceBand {
	return []ConfidenceBand{BandEstablished, BandProbable, BandUncertain, BandSpeculative}
}
