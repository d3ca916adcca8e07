package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyConfidence(t *testing.T) {
	tests := []struct {
		name  string
		start map[string]float64
		tag   string
		delta float64
		want  map[string]float64
	}{
		{"new tag", map[string]float64{}, "MISC-1", 0.5, map[string]float64{"MISC-1": 0.5}},
		{"accumulates", map[string]float64{"MISC-1": 0.4}, "MISC-1", 0.3, map[string]float64{"MISC-1": 0.7}},
		{"clamps high", map[string]float64{"MISC-1": 0.9}, "MISC-1", 0.9, map[string]float64{"MISC-1": 1.0}},
		{"clamps low", map[string]float64{"MISC-1": 0.2}, "MISC-1", -0.9, map[string]float64{"MISC-1": 0.0}},
		{"other tags untouched", map[string]float64{"MISC-1": 0.4}, "MISC-2", 0.6, map[string]float64{"MISC-1": 0.4, "MISC-2": 0.6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyConfidence(tt.start, tt.tag, tt.delta)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyConfidence_NoOp(t *testing.T) {
	conf := map[string]float64{"MISC-1": 0.4}

	// Empty tag and zero delta both return the input as-is.
	assert.Equal(t, conf, ApplyConfidence(conf, "", 0.7))
	assert.Equal(t, conf, ApplyConfidence(conf, "MISC-1", 0))
}

func TestApplyConfidence_DoesNotMutateInput(t *testing.T) {
	conf := map[string]float64{"MISC-1": 0.4}
	updated := ApplyConfidence(conf, "MISC-1", 0.5)

	require.Equal(t, 0.4, conf["MISC-1"])
	require.Equal(t, 0.9, updated["MISC-1"])
}

func TestApplyConfidence_StaysWithinBounds(t *testing.T) {
	// Any sequence of deltas must keep every confidence inside [0,1].
	deltas := []float64{0.9, 0.9, -1.0, -1.0, 0.3, 1.0, -0.05, 0.5, -2.0, 0.7}

	conf := map[string]float64{}
	for _, d := range deltas {
		conf = ApplyConfidence(conf, "MISC-1", d)
		require.GreaterOrEqual(t, conf["MISC-1"], 0.0, "delta %v drove confidence below zero", d)
		require.LessOrEqual(t, conf["MISC-1"], 1.0, "delta %v drove confidence above one", d)
	}
}

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, 0.85, th.Confirm)
	assert.Equal(t, 0.90, th.EarlyExit)
}
