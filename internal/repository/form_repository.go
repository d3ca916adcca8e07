package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mathdiag_backend/internal/diagnostic"
	"mathdiag_backend/internal/model"
	"mathdiag_backend/internal/util"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// FormRepository 诊断表单存取。表单入库后只读，图 JSON 以 form_id 为键
// 缓存在 Redis，穿透时回源 MySQL。
type FormRepository struct {
	DB       *gorm.DB
	Redis    *redis.Client
	cacheTTL time.Duration
}

func NewFormRepository(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration) *FormRepository {
	return &FormRepository{DB: db, Redis: rdb, cacheTTL: cacheTTL}
}

func graphCacheKey(formID string) string {
	return fmt.Sprintf("diagnostic:form:%s:graph", formID)
}

func (r *FormRepository) Create(form *model.DiagnosticForm) error {
	return r.DB.Create(form).Error
}

func (r *FormRepository) FindByFormID(formID string) (*model.DiagnosticForm, error) {
	var form model.DiagnosticForm
	err := r.DB.Where("form_id = ?", formID).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrFormNotFound
	}
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// Graph returns the parsed decision graph for a form, Redis-cached.
func (r *FormRepository) Graph(ctx context.Context, formID string) (*diagnostic.Graph, error) {
	key := graphCacheKey(formID)

	if r.Redis != nil {
		if cached, err := r.Redis.Get(ctx, key).Bytes(); err == nil {
			if g, err := diagnostic.ParseGraph(cached); err == nil {
				return g, nil
			}
			// Unparseable cache entry: drop it and fall through to MySQL.
			r.Redis.Del(ctx, key)
		}
	}

	form, err := r.FindByFormID(formID)
	if err != nil {
		return nil, err
	}

	g, err := diagnostic.ParseGraph(form.Graph)
	if err != nil {
		return nil, err
	}

	if r.Redis != nil {
		r.Redis.Set(ctx, key, []byte(form.Graph), r.cacheTTL)
	}
	return g, nil
}

func (r *FormRepository) IncrementAssigned(formID string) error {
	return r.DB.Model(&model.DiagnosticForm{}).
		Where("form_id = ?", formID).
		UpdateColumn("times_assigned", gorm.Expr("times_assigned + 1")).Error
}

func (r *FormRepository) List(page, limit int) ([]model.DiagnosticForm, int64, error) {
	var forms []model.DiagnosticForm
	var total int64
	query := r.DB.Model(&model.DiagnosticForm{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&forms).Error
	return forms, total, err
}
