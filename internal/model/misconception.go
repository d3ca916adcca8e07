package model

import "encoding/json"

// Misconception 误解目录条目：一个有固定标签的、已归档的数学误解模式。
// 目录由外部教研流程维护；引擎只按 tag 查询严重度。
type Misconception struct {
	BaseModel
	Tag         string `gorm:"size:50;uniqueIndex;not null" json:"tag"`
	Name        string `gorm:"size:200;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"size:100;index" json:"category"`

	// Severity ∈ {low, medium, high, critical}
	Severity string `gorm:"size:20;not null;default:'medium'" json:"severity"`

	GradeLevels         json.RawMessage `gorm:"type:json" json:"gradeLevels,omitempty"`
	EvidencePatterns    json.RawMessage `gorm:"type:json" json:"evidencePatterns,omitempty"`
	RemediationStrategy string          `gorm:"type:text" json:"remediationStrategy"`

	Verified   bool `gorm:"default:false" json:"verified"`
	UsageCount int  `gorm:"default:0" json:"usageCount"`
}

func (Misconception) TableName() string {
	return "misconceptions"
}
