package repository

import (
	"errors"

	"mathdiag_backend/internal/model"
	"mathdiag_backend/internal/util"

	"gorm.io/gorm"
)

type MisconceptionRepository struct {
	DB *gorm.DB
}

func NewMisconceptionRepository(db *gorm.DB) *MisconceptionRepository {
	return &MisconceptionRepository{DB: db}
}

func (r *MisconceptionRepository) FindByTag(tag string) (*model.Misconception, error) {
	var entry model.Misconception
	err := r.DB.Where("tag = ?", tag).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrMisconceptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *MisconceptionRepository) List(category string, page, pageSize int) ([]model.Misconception, int64, error) {
	var entries []model.Misconception
	var total int64

	query := r.DB.Model(&model.Misconception{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("tag ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	return entries, total, err
}

func (r *MisconceptionRepository) IncrementUsage(tag string) error {
	return r.DB.Model(&model.Misconception{}).
		Where("tag = ?", tag).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}
