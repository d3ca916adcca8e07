package model

import (
	"encoding/json"
	"time"

	"mathdiag_backend/internal/diagnostic"
)

// DiagnosticSession 学习者走一份诊断表单的持久化状态。
// JSON 列与引擎的 Session 互转；encoding/json 对 map 按键排序，
// 序列化结果是稳定的。
type DiagnosticSession struct {
	BaseModel
	SessionID string `gorm:"size:100;uniqueIndex;not null" json:"sessionId"`
	LearnerID string `gorm:"size:100;index:ix_sessions_learner_status;not null" json:"learnerId"`
	FormID    string `gorm:"size:100;index;not null" json:"formId"`

	CurrentNodeID string          `gorm:"size:100;not null" json:"currentNodeId"`
	VisitedNodes  json.RawMessage `gorm:"type:json" json:"visitedNodes"`
	Responses     json.RawMessage `gorm:"type:json" json:"responses"`

	SuspectedMisconceptions json.RawMessage `gorm:"type:json" json:"suspectedMisconceptions"`
	ConfirmedMisconceptions json.RawMessage `gorm:"type:json" json:"confirmedMisconceptions"`

	Status           string     `gorm:"size:20;index:ix_sessions_learner_status;default:'in_progress'" json:"status"`
	StartedAt        time.Time  `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	TotalTimeSeconds int        `gorm:"default:0" json:"totalTimeSeconds"`
}

func (DiagnosticSession) TableName() string {
	return "diagnostic_sessions"
}

// NewSessionRecord serializes engine state into a persistable row.
func NewSessionRecord(s *diagnostic.Session) (*DiagnosticSession, error) {
	rec := &DiagnosticSession{
		SessionID:        s.SessionID,
		LearnerID:        s.LearnerID,
		FormID:           s.FormID,
		CurrentNodeID:    s.CurrentNodeID,
		Status:           string(s.Status),
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
		TotalTimeSeconds: s.TotalTimeSeconds,
	}
	if err := rec.setState(s); err != nil {
		return nil, err
	}
	return rec, nil
}

// ApplyState refreshes the JSON/state columns from engine state, keeping the
// row identity (ID, timestamps) intact for updates.
func (m *DiagnosticSession) ApplyState(s *diagnostic.Session) error {
	m.CurrentNodeID = s.CurrentNodeID
	m.Status = string(s.Status)
	m.CompletedAt = s.CompletedAt
	m.TotalTimeSeconds = s.TotalTimeSeconds
	return m.setState(s)
}

func (m *DiagnosticSession) setState(s *diagnostic.Session) error {
	var err error
	if m.VisitedNodes, err = json.Marshal(s.VisitedNodes); err != nil {
		return err
	}
	if m.Responses, err = json.Marshal(s.Responses); err != nil {
		return err
	}
	if m.SuspectedMisconceptions, err = json.Marshal(s.SuspectedMisconceptions); err != nil {
		return err
	}
	if m.ConfirmedMisconceptions, err = json.Marshal(s.ConfirmedMisconceptions); err != nil {
		return err
	}
	return nil
}

// State deserializes the row back into engine state.
func (m *DiagnosticSession) State() (*diagnostic.Session, error) {
	s := &diagnostic.Session{
		SessionID:               m.SessionID,
		LearnerID:               m.LearnerID,
		FormID:                  m.FormID,
		CurrentNodeID:           m.CurrentNodeID,
		VisitedNodes:            []string{},
		Responses:               map[string]string{},
		SuspectedMisconceptions: map[string]float64{},
		ConfirmedMisconceptions: []string{},
		Status:                  diagnostic.SessionStatus(m.Status),
		StartedAt:               m.StartedAt,
		CompletedAt:             m.CompletedAt,
		TotalTimeSeconds:        m.TotalTimeSeconds,
	}

	for _, col := range []struct {
		raw json.RawMessage
		dst interface{}
	}{
		{m.VisitedNodes, &s.VisitedNodes},
		{m.Responses, &s.Responses},
		{m.SuspectedMisconceptions, &s.SuspectedMisconceptions},
		{m.ConfirmedMisconceptions, &s.ConfirmedMisconceptions},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, err
		}
	}

	return s, nil
}
