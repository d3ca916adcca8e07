package service

import (
	"encoding/json"
	"fmt"

	"mathdiag_backend/internal/diagnostic"
	"mathdiag_backend/internal/model"
	"mathdiag_backend/internal/repository"
	"mathdiag_backend/pkg/logger"
	"mathdiag_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// FormService 诊断表单的接收与校验。校验是构建期门禁：violations 非空的
// 图拒绝入库，让运行时的导航可以假设图是干净的。
type FormService struct {
	Repo *repository.FormRepository
}

func NewFormService(repo *repository.FormRepository) *FormService {
	return &FormService{Repo: repo}
}

// GraphValidationError carries the full violation list so callers can render
// every structural defect at once instead of fixing them one round-trip at a
// time.
type GraphValidationError struct {
	Violations []diagnostic.Violation
}

func (e *GraphValidationError) Error() string {
	return fmt.Sprintf("graph validation failed with %d violation(s)", len(e.Violations))
}

type RegisterFormRequest struct {
	FormID     string          `json:"formId" binding:"required"`
	Title      string          `json:"title" binding:"required"`
	GradeLevel int             `json:"gradeLevel"`
	Graph      json.RawMessage `json:"graph" binding:"required"`
}

// RegisterForm parses and validates an incoming decision graph and persists
// it. The stored form is marked validated; navigation only ever loads
// validated forms.
func (s *FormService) RegisterForm(req RegisterFormRequest, createdBy string) (*model.DiagnosticForm, error) {
	g, err := diagnostic.ParseGraph(req.Graph)
	if err != nil {
		monitoring.FormsRejected.Inc()
		return nil, err
	}

	if violations := diagnostic.Validate(g); len(violations) > 0 {
		monitoring.FormsRejected.Inc()
		logger.Log.Warn("diagnostic form rejected",
			zap.String("formId", req.FormID),
			zap.Int("violations", len(violations)))
		return nil, &GraphValidationError{Violations: violations}
	}

	form := &model.DiagnosticForm{
		FormID:     req.FormID,
		Title:      req.Title,
		GradeLevel: req.GradeLevel,
		RootNodeID: g.RootNodeID,
		MaxDepth:   g.MaxDepth,
		Graph:      req.Graph,
		Validated:  true,
		Version:    1,
		CreatedBy:  createdBy,
	}
	if err := s.Repo.Create(form); err != nil {
		return nil, err
	}

	logger.Log.Info("diagnostic form registered",
		zap.String("formId", form.FormID),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("maxDepth", g.MaxDepth))
	return form, nil
}

// FormSummary is the metadata shape exposed to API clients; the raw graph
// (with answer keys) stays server-side.
type FormSummary struct {
	FormID         string `json:"formId"`
	Title          string `json:"title"`
	GradeLevel     int    `json:"gradeLevel"`
	RootNodeID     string `json:"rootNodeId"`
	MaxDepth       int    `json:"maxDepth"`
	NodeCount      int    `json:"nodeCount"`
	Validated      bool   `json:"validated"`
	Version        int    `json:"version"`
	TimesAssigned  int    `json:"timesAssigned"`
	TimesCompleted int    `json:"timesCompleted"`
}

func (s *FormService) GetForm(formID string) (*FormSummary, error) {
	form, err := s.Repo.FindByFormID(formID)
	if err != nil {
		return nil, err
	}
	return summarize(form), nil
}

func (s *FormService) ListForms(page, pageSize int) ([]FormSummary, int64, error) {
	forms, total, err := s.Repo.List(page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	summaries := make([]FormSummary, 0, len(forms))
	for i := range forms {
		summaries = append(summaries, *summarize(&forms[i]))
	}
	return summaries, total, nil
}

func summarize(form *model.DiagnosticForm) *FormSummary {
	nodeCount := 0
	if g, err := diagnostic.ParseGraph(form.Graph); err == nil {
		nodeCount = len(g.Nodes)
	}
	return &FormSummary{
		FormID:         form.FormID,
		Title:          form.Title,
		GradeLevel:     form.GradeLevel,
		RootNodeID:     form.RootNodeID,
		MaxDepth:       form.MaxDepth,
		NodeCount:      nodeCount,
		Validated:      form.Validated,
		Version:        form.Version,
		TimesAssigned:  form.TimesAssigned,
		TimesCompleted: form.TimesCompleted,
	}
}
