package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanContradictions_Negation(t *testing.T) {
	scan := ScanContradictions("Caffeine improves memory in adults. Caffeine does not improve memory in adults.")

	require.Len(t, scan.Claims, 2)
	assert.Equal(t, 1, scan.PairsChecked)
	require.Len(t, scan.Contradictions, 1)
	c := scan.Contradictions[0]
	assert.Equal(t, "Caffeine improves memory in adults", c.ClaimA)
	assert.Contains(t, c.Reason, "negates")
	assert.Greater(t, c.Score, 0.0)
	assert.LessOrEqual(t, c.Score, 1.0)
}

func TestScanContradictions_Antonyms(t *testing.T) {
	scan := ScanContradictions("Exercise increases bone density in older adults. Exercise decreases bone density in older adults.")

	require.Len(t, scan.Contradictions, 1)
	assert.Contains(t, scan.Contradictions[0].Reason, "increases")
}

func TestScanContradictions_Bullets(t *testing.T) {
	text := "Findings:\n- Coffee raises blood pressure briefly\n- Coffee lowers blood pressure briefly\n"
	scan := ScanContradictions(text)

	require.NotEmpty(t, scan.Claims)
	assert.Equal(t, "Coffee raises blood pressure briefly", scan.Claims[0])
	assert.Len(t, scan.Contradictions, 1)
}

func TestScanContradictions_NoConflict(t *testing.T) {
	tests := map[string]string{
		"empty":            "",
		"short fragments":  "Yes. No. Maybe so.",
		"unrelated claims": "Sleep improves recall in students. Interest rates affect housing markets strongly.",
		"agreeing claims":  "Aspirin reduces clot formation in patients. Aspirin reduces clot formation in most patients.",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			scan := ScanContradictions(text)
			assert.Empty(t, scan.Contradictions)
			assert.NotNil(t, scan.Contradictions)
		})
	}
}

func TestScanContradictions_ClaimCap(t *testing.T) {
	var sb strings.Builder
	for range 100 {
		sb.WriteString("This sentence has enough words in it. ")
	}
	scan := ScanContradictions(sb.String())

	assert.Len(t, scan.Claims, maxClaims)
	assert.Equal(t, maxClaims*(maxClaims-1)/2, scan.PairsChecked)
}
