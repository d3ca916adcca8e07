package diagnostic

// Thresholds are the tuning constants of the engine. The defaults come from
// the form pilots and are preserved exactly; change them through config, not
// here.
type Thresholds struct {
	// Confirm is the confidence at which a misconception enters the
	// confirmed set. Membership is monotonic: later disconfirming evidence
	// lowers the displayed confidence but never un-confirms.
	Confirm float64

	// EarlyExit ends the session as soon as any suspected misconception
	// exceeds this confidence, even mid-branch.
	EarlyExit float64
}

// DefaultThresholds returns the production constants.
func DefaultThresholds() Thresholds {
	return Thresholds{Confirm: 0.85, EarlyExit: 0.90}
}

// ApplyConfidence returns a copy of confidences with delta applied to tag,
// clamped to [0,1]. The input map is never mutated. An empty tag or a zero
// delta returns the input unchanged.
func ApplyConfidence(confidences map[string]float64, tag string, delta float64) map[string]float64 {
	if tag == "" || delta == 0 {
		return confidences
	}

	updated := make(map[string]float64, len(confidences)+1)
	for k, v := range confidences {
		updated[k] = v
	}
	updated[tag] = clamp01(confidences[tag] + delta)
	return updated
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
