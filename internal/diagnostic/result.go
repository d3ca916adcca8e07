package diagnostic

import (
	"fmt"
	"sort"
	"time"
)

// Severity ranks how badly a confirmed misconception blocks progress. Values
// come from the misconception catalog.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank returns the ordering of a severity (low < medium < high < critical).
// Unknown values rank lowest.
func (s Severity) Rank() int {
	return severityRank[s]
}

// CatalogLookup resolves a misconception tag to its catalogued severity. The
// catalog itself lives outside the engine; tags missing from it are simply
// skipped when determining overall severity.
type CatalogLookup interface {
	SeverityFor(tag string) (Severity, bool)
}

// Result is the final diagnostic finding for one completed session. It is
// created exactly once, at termination, and never modified afterwards.
type Result struct {
	SessionID string `json:"session_id"`
	LearnerID string `json:"learner_id"`
	FormID    string `json:"form_id"`

	PrimaryMisconception string             `json:"primary_misconception,omitempty"`
	AllMisconceptions    map[string]float64 `json:"all_misconceptions"`
	Severity             Severity           `json:"severity"`

	ResponsePath []string `json:"response_path"`
	KeyEvidence  []string `json:"key_evidence"`

	// ConfidenceScore is certainty in the overall diagnosis, distinct from
	// the per-misconception confidences above.
	ConfidenceScore  float64   `json:"confidence_score"`
	TotalTimeSeconds int       `json:"total_time_seconds"`
	CompletedAt      time.Time `json:"completed_at"`
}

const maxKeyEvidence = 3

// Synthesize computes the Result for a finished session. Everything here is
// a pure function of the session state plus the catalog, so a lost result
// can always be re-derived.
func Synthesize(s *Session, catalog CatalogLookup, completedAt time.Time) *Result {
	return &Result{
		SessionID:            s.SessionID,
		LearnerID:            s.LearnerID,
		FormID:               s.FormID,
		PrimaryMisconception: primaryMisconception(s.SuspectedMisconceptions),
		AllMisconceptions:    s.SuspectedMisconceptions,
		Severity:             determineSeverity(s.SuspectedMisconceptions, s.ConfirmedMisconceptions, catalog),
		ResponsePath:         s.VisitedNodes,
		KeyEvidence:          keyEvidence(s),
		ConfidenceScore:      confidenceScore(s),
		TotalTimeSeconds:     s.TotalTimeSeconds,
		CompletedAt:          completedAt,
	}
}

// primaryMisconception picks the tag with the highest confidence; ties break
// lexicographically so the result is deterministic. Empty when the learner
// showed no detectable misconception.
func primaryMisconception(suspected map[string]float64) string {
	best := ""
	bestConf := -1.0
	for _, tag := range sortedTags(suspected) {
		if conf := suspected[tag]; conf > bestConf {
			best, bestConf = tag, conf
		}
	}
	return best
}

// determineSeverity: confirmed misconceptions answer with the worst catalog
// severity among them (medium and up); otherwise a strongly suspected one
// (>= 0.70) is medium, and anything weaker is low.
func determineSeverity(suspected map[string]float64, confirmed []string, catalog CatalogLookup) Severity {
	if len(suspected) == 0 {
		return SeverityLow
	}

	if len(confirmed) > 0 && catalog != nil {
		worst := Severity("")
		for _, tag := range confirmed {
			sev, ok := catalog.SeverityFor(tag)
			if !ok {
				continue
			}
			if worst == "" || sev.Rank() > worst.Rank() {
				worst = sev
			}
		}
		if worst.Rank() >= SeverityMedium.Rank() {
			return worst
		}
	}

	if maxConfidence(suspected) >= 0.70 {
		return SeverityMedium
	}
	return SeverityLow
}

// confidenceScore: with no suspected misconceptions we are fully confident
// the learner has none. Otherwise start from the strongest single signal and
// add a modest boost per corroborating probe beyond the root, capped at 0.2.
func confidenceScore(s *Session) float64 {
	if len(s.SuspectedMisconceptions) == 0 {
		return 1.0
	}

	probeBoost := 0.1 * float64(len(s.VisitedNodes)-1)
	if probeBoost > 0.2 {
		probeBoost = 0.2
	}

	score := maxConfidence(s.SuspectedMisconceptions) + probeBoost
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// keyEvidence lists up to three "{node_id}: selected {option}" entries in
// visitation order, only when at least one misconception is suspected.
func keyEvidence(s *Session) []string {
	if len(s.SuspectedMisconceptions) == 0 {
		return nil
	}

	evidence := make([]string, 0, maxKeyEvidence)
	for _, nodeID := range s.VisitedNodes {
		option, ok := s.Responses[nodeID]
		if !ok {
			continue
		}
		evidence = append(evidence, fmt.Sprintf("%s: selected %s", nodeID, option))
		if len(evidence) == maxKeyEvidence {
			break
		}
	}
	return evidence
}

func maxConfidence(suspected map[string]float64) float64 {
	max := 0.0
	for _, conf := range suspected {
		if conf > max {
			max = conf
		}
	}
	return max
}

func sortedTags(m map[string]float64) []string {
	tags := make([]string, 0, len(m))
	for tag := range m {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
