package repository

import (
	"errors"
	"time"

	"mathdiag_backend/internal/model"
	"mathdiag_backend/internal/util"
	"mathdiag_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionRepository 诊断会话存取。完成写入（会话状态 + 结果）在单个
// 事务里提交，保证不会出现"会话已完成但结果缺失"的半程状态。
type SessionRepository struct {
	DB          *gorm.DB
	maxRetries  int
	baseBackoff time.Duration
}

func NewSessionRepository(db *gorm.DB, maxRetries int, baseBackoff time.Duration) *SessionRepository {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &SessionRepository{DB: db, maxRetries: maxRetries, baseBackoff: baseBackoff}
}

func (r *SessionRepository) Create(session *model.DiagnosticSession) error {
	return r.withRetry(func() error {
		return r.DB.Create(session).Error
	})
}

func (r *SessionRepository) FindBySessionID(sessionID string) (*model.DiagnosticSession, error) {
	var session model.DiagnosticSession
	err := r.DB.Where("session_id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Update(session *model.DiagnosticSession) error {
	return r.withRetry(func() error {
		return r.DB.Save(session).Error
	})
}

// CompleteWithResult marks the session completed and writes its result in
// one transaction: both land or neither does. The result is idempotent per
// session (unique session_id); a retry after a half-acknowledged commit
// skips the insert if the row already exists.
func (r *SessionRepository) CompleteWithResult(session *model.DiagnosticSession, result *model.DiagnosticResult) error {
	return r.withRetry(func() error {
		return r.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(session).Error; err != nil {
				return err
			}

			var count int64
			if err := tx.Model(&model.DiagnosticResult{}).
				Where("session_id = ?", result.SessionID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return nil
			}
			if err := tx.Create(result).Error; err != nil {
				return err
			}

			return tx.Model(&model.DiagnosticForm{}).
				Where("form_id = ?", session.FormID).
				UpdateColumn("times_completed", gorm.Expr("times_completed + 1")).Error
		})
	})
}

// withRetry retries transient store failures a bounded number of times with
// linear backoff before surfacing the error.
func (r *SessionRepository) withRetry(op func() error) error {
	var err error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt < r.maxRetries {
			logger.Log.Warn("session store write failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
			time.Sleep(time.Duration(attempt) * r.baseBackoff)
		}
	}
	return err
}
