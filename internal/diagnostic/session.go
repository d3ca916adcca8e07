package diagnostic

import "time"

// SessionStatus 会话状态机：in_progress → completed / abandoned
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// Session is one learner's walk through a decision graph. It is mutated only
// by the Navigator and becomes immutable once Status is StatusCompleted.
// Callers must serialize Advance calls per session; distinct sessions are
// fully independent.
type Session struct {
	SessionID string `json:"session_id"`
	LearnerID string `json:"learner_id"`
	FormID    string `json:"form_id"`

	CurrentNodeID string            `json:"current_node_id"`
	VisitedNodes  []string          `json:"visited_nodes"`
	Responses     map[string]string `json:"responses"`

	SuspectedMisconceptions map[string]float64 `json:"suspected_misconceptions"`
	ConfirmedMisconceptions []string           `json:"confirmed_misconceptions"`

	Status           SessionStatus `json:"status"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	TotalTimeSeconds int           `json:"total_time_seconds"`
}

// Confirmed reports whether tag is already in the confirmed set.
func (s *Session) Confirmed(tag string) bool {
	for _, t := range s.ConfirmedMisconceptions {
		if t == tag {
			return true
		}
	}
	return false
}
