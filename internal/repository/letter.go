package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/pkg/tool"
)

type LetterRepo struct {
	db *gorm.DB
}

func NewLetterRepo(db *gorm.DB) *LetterRepo { return &LetterRepo{db: db} }

func (r *LetterRepo) Create(ctx context.Context, l *models.Letter) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to create letter: %w", err)
	}
	return nil
}

func (r *LetterRepo) Get(ctx context.Context, id string) (*models.Letter, error) {
	if !tool.IsUUID(id) {
		return nil, ErrNotFound
	}
	var l models.Letter
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get letter: %w", err)
	}
	return &l, nil
}

func (r *LetterRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Letter{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count letters: %w", err)
	}
	return count, nil
}

func (r *LetterRepo) List(ctx context.Context, q *LetterQuery) ([]*models.Letter, int64, error) {
	if q == nil {
		q = &LetterQuery{}
	}
	if q.Size <= 0 {
		q.Size = 20
	}
	if q.From < 0 {
		q.From = 0
	}

	tx := r.db.WithContext(ctx).Model(&models.Letter{})
	if q.UserID != "" {
		tx = tx.Where("user_id = ?", q.UserID)
	}
	if len(q.Statuses) > 0 {
		tx = tx.Where("status IN ?", q.Statuses)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count letters: %w", err)
	}

	var rows []*models.Letter
	err := tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: q.SortOrder != "asc"}).
		Limit(q.Size).
		Offset(q.From).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list letters: %w", err)
	}
	return rows, total, nil
}

func (r *LetterRepo) Transition(ctx context.Context, id string, guard LetterGuard, upd LetterUpdate) (*models.Letter, error) {
	if !tool.IsUUID(id) {
		return nil, ErrConflict
	}
	var out []*models.Letter
	res := r.guarded(r.db.WithContext(ctx), id, guard).
		Model(&out).
		Clauses(clause.Returning{}).
		Updates(upd.Columns(time.Now()))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to transition letter: %w", res.Error)
	}
	if res.RowsAffected == 0 || len(out) == 0 {
		return nil, ErrConflict
	}
	return out[0], nil
}

// guarded scopes tx to the letter and the guard's preconditions so that the
// check and the write happen in one statement.
func (r *LetterRepo) guarded(tx *gorm.DB, id string, guard LetterGuard) *gorm.DB {
	tx = tx.Where("id = ?", id)
	if len(guard.From) > 0 {
		tx = tx.Where("status IN ?", guard.From)
	}
	if guard.Reviewer != "" {
		tx = tx.Where("(reviewed_by IS NULL OR reviewed_by = ?)", guard.Reviewer)
	}
	return tx
}
