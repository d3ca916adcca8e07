package model

import "encoding/json"

// DiagnosticForm 一份诊断表单：一棵已验证的决策图以及其元数据。
// 图由外部生成管线产出，入库前必须通过结构校验；入库后只读，
// 可被任意数量的会话共享。
type DiagnosticForm struct {
	BaseModel
	FormID     string `gorm:"size:100;uniqueIndex;not null" json:"formId"`
	Title      string `gorm:"size:200;not null" json:"title"`
	GradeLevel int    `gorm:"index" json:"gradeLevel"`

	RootNodeID string `gorm:"size:100;not null" json:"rootNodeId"`
	MaxDepth   int    `gorm:"not null;default:3" json:"maxDepth"`

	// Graph holds the full decision graph in the generation wire shape.
	Graph json.RawMessage `gorm:"type:json;not null" json:"graph"`

	Validated bool   `gorm:"default:false" json:"validated"`
	Version   int    `gorm:"default:1" json:"version"`
	CreatedBy string `gorm:"size:100" json:"createdBy"`

	TimesAssigned  int `gorm:"default:0" json:"timesAssigned"`
	TimesCompleted int `gorm:"default:0" json:"timesCompleted"`
}

func (DiagnosticForm) TableName() string {
	return "diagnostic_forms"
}
