package model

import (
	"encoding/json"
	"time"

	"mathdiag_backend/internal/diagnostic"
)

// DiagnosticResult 一次已完成会话的最终诊断结论，按 session_id 唯一，
// 落库后不再修改。
type DiagnosticResult struct {
	BaseModel
	SessionID string `gorm:"size:100;uniqueIndex;not null" json:"sessionId"`
	LearnerID string `gorm:"size:100;index:ix_results_learner_completed;not null" json:"learnerId"`
	FormID    string `gorm:"size:100;index;not null" json:"formId"`

	PrimaryMisconception string          `gorm:"size:50" json:"primaryMisconception,omitempty"`
	AllMisconceptions    json.RawMessage `gorm:"type:json;not null" json:"allMisconceptions"`
	Severity             string          `gorm:"size:20;not null" json:"severity"`

	ResponsePath json.RawMessage `gorm:"type:json;not null" json:"responsePath"`
	KeyEvidence  json.RawMessage `gorm:"type:json" json:"keyEvidence,omitempty"`

	ConfidenceScore  float64   `gorm:"not null" json:"confidenceScore"`
	TotalTimeSeconds int       `gorm:"not null" json:"totalTimeSeconds"`
	CompletedAt      time.Time `gorm:"index:ix_results_learner_completed" json:"completedAt"`

	ReviewedByTeacher bool   `gorm:"default:false" json:"reviewedByTeacher"`
	TeacherNotes      string `gorm:"type:text" json:"teacherNotes,omitempty"`
}

func (DiagnosticResult) TableName() string {
	return "diagnostic_results"
}

// NewResultRecord serializes an engine result into a persistable row.
func NewResultRecord(r *diagnostic.Result) (*DiagnosticResult, error) {
	all, err := json.Marshal(r.AllMisconceptions)
	if err != nil {
		return nil, err
	}
	path, err := json.Marshal(r.ResponsePath)
	if err != nil {
		return nil, err
	}
	evidence, err := json.Marshal(r.KeyEvidence)
	if err != nil {
		return nil, err
	}

	return &DiagnosticResult{
		SessionID:            r.SessionID,
		LearnerID:            r.LearnerID,
		FormID:               r.FormID,
		PrimaryMisconception: r.PrimaryMisconception,
		AllMisconceptions:    all,
		Severity:             string(r.Severity),
		ResponsePath:         path,
		KeyEvidence:          evidence,
		ConfidenceScore:      r.ConfidenceScore,
		TotalTimeSeconds:     r.TotalTimeSeconds,
		CompletedAt:          r.CompletedAt,
	}, nil
}

// ToResult deserializes the row back into the engine's result type.
func (m *DiagnosticResult) ToResult() (*diagnostic.Result, error) {
	r := &diagnostic.Result{
		SessionID:            m.SessionID,
		LearnerID:            m.LearnerID,
		FormID:               m.FormID,
		PrimaryMisconception: m.PrimaryMisconception,
		AllMisconceptions:    map[string]float64{},
		Severity:             diagnostic.Severity(m.Severity),
		ConfidenceScore:      m.ConfidenceScore,
		TotalTimeSeconds:     m.TotalTimeSeconds,
		CompletedAt:          m.CompletedAt,
	}

	if len(m.AllMisconceptions) > 0 {
		if err := json.Unmarshal(m.AllMisconceptions, &r.AllMisconceptions); err != nil {
			return nil, err
		}
	}
	if len(m.ResponsePath) > 0 {
		if err := json.Unmarshal(m.ResponsePath, &r.ResponsePath); err != nil {
			return nil, err
		}
	}
	if len(m.KeyEvidence) > 0 {
		if err := json.Unmarshal(m.KeyEvidence, &r.KeyEvidence); err != nil {
			return nil, err
		}
	}

	return r, nil
}
