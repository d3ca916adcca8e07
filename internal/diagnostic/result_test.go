package diagnostic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sessionWith(suspected map[string]float64, confirmed []string, visited []string) *Session {
	responses := map[string]string{}
	for _, id := range visited {
		responses[id] = "B"
	}
	return &Session{
		SessionID:               "SESSION-1",
		LearnerID:               "learner-1",
		FormID:                  "form-1",
		VisitedNodes:            visited,
		Responses:               responses,
		SuspectedMisconceptions: suspected,
		ConfirmedMisconceptions: confirmed,
		Status:                  StatusCompleted,
	}
}

func TestPrimaryMisconception(t *testing.T) {
	tests := []struct {
		name      string
		suspected map[string]float64
		want      string
	}{
		{"empty", map[string]float64{}, ""},
		{"single", map[string]float64{"MISC-2": 0.4}, "MISC-2"},
		{"argmax", map[string]float64{"MISC-1": 0.3, "MISC-2": 0.8}, "MISC-2"},
		{"tie breaks lexicographically", map[string]float64{"MISC-B": 0.5, "MISC-A": 0.5}, "MISC-A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, primaryMisconception(tt.suspected))
		})
	}
}

func TestDetermineSeverity(t *testing.T) {
	catalog := fakeCatalog{
		"MISC-CRIT": SeverityCritical,
		"MISC-HIGH": SeverityHigh,
		"MISC-MED":  SeverityMedium,
		"MISC-LOW":  SeverityLow,
	}

	tests := []struct {
		name      string
		suspected map[string]float64
		confirmed []string
		want      Severity
	}{
		{"nothing suspected", nil, nil, SeverityLow},
		{"confirmed critical wins", map[string]float64{"MISC-CRIT": 0.9, "MISC-MED": 0.9}, []string{"MISC-MED", "MISC-CRIT"}, SeverityCritical},
		{"confirmed high", map[string]float64{"MISC-HIGH": 0.9}, []string{"MISC-HIGH"}, SeverityHigh},
		{"confirmed medium", map[string]float64{"MISC-MED": 0.9}, []string{"MISC-MED"}, SeverityMedium},
		// A confirmed tag ranked low in the catalog falls through to the
		// suspected-confidence rule, mirroring the severity ladder.
		{"confirmed low falls through", map[string]float64{"MISC-LOW": 0.9}, []string{"MISC-LOW"}, SeverityMedium},
		{"unknown tag falls through", map[string]float64{"MISC-GHOST": 0.9}, []string{"MISC-GHOST"}, SeverityMedium},
		{"suspected strong", map[string]float64{"MISC-HIGH": 0.7}, nil, SeverityMedium},
		{"suspected weak", map[string]float64{"MISC-HIGH": 0.69}, nil, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineSeverity(tt.suspected, tt.confirmed, catalog))
		})
	}
}

func TestConfidenceScore(t *testing.T) {
	tests := []struct {
		name      string
		suspected map[string]float64
		visited   []string
		want      float64
	}{
		{"no misconceptions means confident", nil, []string{"R1"}, 1.0},
		{"root only, no boost", map[string]float64{"MISC-1": 0.5}, []string{"R1"}, 0.5},
		{"one probe boosts", map[string]float64{"MISC-1": 0.5}, []string{"R1", "P1"}, 0.6},
		{"boost caps at 0.2", map[string]float64{"MISC-1": 0.5}, []string{"R1", "P1", "P2", "P3", "P4"}, 0.7},
		{"score caps at 1.0", map[string]float64{"MISC-1": 0.95}, []string{"R1", "P1"}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sessionWith(tt.suspected, nil, tt.visited)
			assert.InDelta(t, tt.want, confidenceScore(s), 1e-9)
		})
	}
}

func TestKeyEvidence(t *testing.T) {
	t.Run("bounded to three, visitation order", func(t *testing.T) {
		s := sessionWith(map[string]float64{"MISC-1": 0.8}, nil, []string{"R1", "P1", "P2", "P3"})
		assert.Equal(t, []string{"R1: selected B", "P1: selected B", "P2: selected B"}, keyEvidence(s))
	})

	t.Run("empty without suspicion", func(t *testing.T) {
		s := sessionWith(nil, nil, []string{"R1", "P1"})
		assert.Empty(t, keyEvidence(s))
	})
}

func TestSynthesize(t *testing.T) {
	s := sessionWith(map[string]float64{"MISC-1": 0.9}, []string{"MISC-1"}, []string{"R1", "P1"})
	s.TotalTimeSeconds = 42
	completedAt := time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC)

	r := Synthesize(s, fakeCatalog{"MISC-1": SeverityCritical}, completedAt)

	assert.Equal(t, "SESSION-1", r.SessionID)
	assert.Equal(t, "learner-1", r.LearnerID)
	assert.Equal(t, "form-1", r.FormID)
	assert.Equal(t, "MISC-1", r.PrimaryMisconception)
	assert.Equal(t, SeverityCritical, r.Severity)
	assert.Equal(t, []string{"R1", "P1"}, r.ResponsePath)
	assert.InDelta(t, 1.0, r.ConfidenceScore, 1e-9)
	assert.Equal(t, 42, r.TotalTimeSeconds)
	assert.Equal(t, completedAt, r.CompletedAt)
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityLow.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityCritical.Rank())
}
