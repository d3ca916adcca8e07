package repository

import (
	"errors"

	"mathdiag_backend/internal/model"
	"mathdiag_backend/internal/util"

	"gorm.io/gorm"
)

type ResultRepository struct {
	DB *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

func (r *ResultRepository) FindBySessionID(sessionID string) (*model.DiagnosticResult, error) {
	var result model.DiagnosticResult
	err := r.DB.Where("session_id = ?", sessionID).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListByLearner 按完成时间倒序返回某学习者的诊断结果。
func (r *ResultRepository) ListByLearner(learnerID string, page, pageSize int) ([]model.DiagnosticResult, int64, error) {
	var results []model.DiagnosticResult
	var total int64

	query := r.DB.Model(&model.DiagnosticResult{}).Where("learner_id = ?", learnerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("completed_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&results).Error
	return results, total, err
}

func (r *ResultRepository) MarkReviewed(sessionID, notes string) error {
	res := r.DB.Model(&model.DiagnosticResult{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"reviewed_by_teacher": true,
			"teacher_notes":       notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrResultNotFound
	}
	return nil
}
