package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/letterdesk/internal/models"
)

type CouponRepo struct {
	db *gorm.DB
}

func NewCouponRepo(db *gorm.DB) *CouponRepo { return &CouponRepo{db: db} }

func (r *CouponRepo) FindActive(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.db.WithContext(ctx).Where("code = ? AND is_active = ?", code, true).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find coupon: %w", err)
	}
	return &c, nil
}

func (r *CouponRepo) Create(ctx context.Context, c *models.Coupon) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

func (r *CouponRepo) List(ctx context.Context, employeeID string) ([]*models.Coupon, error) {
	tx := r.db.WithContext(ctx).Model(&models.Coupon{})
	if employeeID != "" {
		tx = tx.Where("employee_id = ?", employeeID)
	}
	var rows []*models.Coupon
	if err := tx.Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return rows, nil
}

func (r *CouponRepo) IncrementUsage(ctx context.Context, code string) (int, error) {
	var out []*models.Coupon
	res := r.db.WithContext(ctx).Model(&out).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "usage_count"}}}).
		Where("code = ?", code).
		Updates(map[string]any{
			"usage_count": gorm.Expr("usage_count + 1"),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to increment coupon usage: %w", res.Error)
	}
	if res.RowsAffected == 0 || len(out) == 0 {
		return 0, ErrNotFound
	}
	return out[0].UsageCount, nil
}

func (r *CouponRepo) CreateUsage(ctx context.Context, u *models.CouponUsage) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *CouponRepo) CreateCommission(ctx context.Context, c *models.Commission) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CouponRepo) ListCommissions(ctx context.Context, employeeID string) ([]*models.Commission, error) {
	var rows []*models.Commission
	if err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	return rows, nil
}
