package service

import (
	"encoding/json"

	"mathdiag_backend/internal/diagnostic"
	"mathdiag_backend/internal/model"
	"mathdiag_backend/internal/repository"
	"mathdiag_backend/internal/util"
	"mathdiag_backend/pkg/logger"

	"go.uber.org/zap"
)

// CatalogService 误解目录查询，同时充当引擎的 CatalogLookup。
type CatalogService struct {
	Repo *repository.MisconceptionRepository
}

func NewCatalogService(repo *repository.MisconceptionRepository) *CatalogService {
	return &CatalogService{Repo: repo}
}

// SeverityFor satisfies diagnostic.CatalogLookup. Lookup failures degrade to
// "not in catalog": severity synthesis skips unknown tags rather than
// failing a completed session over a catalog gap.
func (s *CatalogService) SeverityFor(tag string) (diagnostic.Severity, bool) {
	entry, err := s.Repo.FindByTag(tag)
	if err != nil {
		if err != util.ErrMisconceptionNotFound {
			logger.Log.Warn("catalog lookup failed", zap.String("tag", tag), zap.Error(err))
		}
		return "", false
	}
	return diagnostic.Severity(entry.Severity), true
}

// MisconceptionDetail is the catalog entry in API shape.
type MisconceptionDetail struct {
	Tag                 string   `json:"tag"`
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	Category            string   `json:"category"`
	Severity            string   `json:"severity"`
	GradeLevels         []int    `json:"gradeLevels,omitempty"`
	EvidencePatterns    []string `json:"evidencePatterns,omitempty"`
	RemediationStrategy string   `json:"remediationStrategy,omitempty"`
	Verified            bool     `json:"verified"`
	UsageCount          int      `json:"usageCount"`
}

func (s *CatalogService) GetByTag(tag string) (*MisconceptionDetail, error) {
	entry, err := s.Repo.FindByTag(tag)
	if err != nil {
		return nil, err
	}
	return toDetail(entry), nil
}

func (s *CatalogService) List(category string, page, pageSize int) ([]MisconceptionDetail, int64, error) {
	entries, total, err := s.Repo.List(category, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	details := make([]MisconceptionDetail, 0, len(entries))
	for i := range entries {
		details = append(details, *toDetail(&entries[i]))
	}
	return details, total, nil
}

func toDetail(m *model.Misconception) *MisconceptionDetail {
	d := &MisconceptionDetail{
		Tag:                 m.Tag,
		Name:                m.Name,
		Description:         m.Description,
		Category:            m.Category,
		Severity:            m.Severity,
		RemediationStrategy: m.RemediationStrategy,
		Verified:            m.Verified,
		UsageCount:          m.UsageCount,
	}
	if len(m.GradeLevels) > 0 {
		_ = json.Unmarshal(m.GradeLevels, &d.GradeLevels)
	}
	if len(m.EvidencePatterns) > 0 {
		_ = json.Unmarshal(m.EvidencePatterns, &d.EvidencePatterns)
	}
	return d
}
