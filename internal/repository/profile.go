package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fatflowers/letterdesk/internal/models"
)

type ProfileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) *ProfileRepo { return &ProfileRepo{db: db} }

func (r *ProfileRepo) Get(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (r *ProfileRepo) Create(ctx context.Context, p *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) SetSuperUser(ctx context.Context, id string, isSuperUser bool) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_super_user": isSuperUser, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to update super user flag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProfileRepo) ListSuperUsers(ctx context.Context) ([]*models.Profile, error) {
	var rows []*models.Profile
	if err := r.db.WithContext(ctx).Where("is_super_user = ?", true).Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list super users: %w", err)
	}
	return rows, nil
}
