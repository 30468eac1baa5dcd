package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/fatflowers/letterdesk/internal/models"
)

type AuditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Create(ctx context.Context, e *models.LetterAuditLog) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *AuditRepo) ListByLetter(ctx context.Context, letterID string) ([]*models.LetterAuditLog, error) {
	var rows []*models.LetterAuditLog
	if err := r.db.WithContext(ctx).Where("letter_id = ?", letterID).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return rows, nil
}
