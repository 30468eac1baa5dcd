package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/pkg/types"
)

type SubscriptionRepo struct {
	db *gorm.DB
}

func NewSubscriptionRepo(db *gorm.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

func (r *SubscriptionRepo) latestActiveQuery(tx *gorm.DB, userID string) *gorm.DB {
	return tx.Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", userID, types.SubscriptionStatusActive).
		Order("created_at desc").
		Limit(1)
}

func (r *SubscriptionRepo) LatestActive(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.latestActiveQuery(r.db.WithContext(ctx), userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}
	return &sub, nil
}

// ConsumeCredit issues a single guarded decrement:
//
//	UPDATE subscription SET credits_remaining = credits_remaining - 1
//	WHERE id = (latest active id) AND credits_remaining > 0 RETURNING *
func (r *SubscriptionRepo) ConsumeCredit(ctx context.Context, userID string) (*models.Subscription, error) {
	db := r.db.WithContext(ctx)
	latest := r.latestActiveQuery(db.Session(&gorm.Session{NewDB: true}), userID).Select("id")

	var out []*models.Subscription
	res := db.Model(&out).
		Clauses(clause.Returning{}).
		Where("id = (?)", latest).
		Where("status = ? AND credits_remaining > 0", types.SubscriptionStatusActive).
		Updates(map[string]any{
			"credits_remaining": gorm.Expr("credits_remaining - 1"),
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to consume credit: %w", res.Error)
	}
	if res.RowsAffected == 0 || len(out) == 0 {
		return nil, ErrConflict
	}
	return out[0], nil
}

// RefundCredit issues a single guarded increment:
//
//	UPDATE subscription SET credits_remaining = credits_remaining + 1
//	WHERE id = ? AND status = 'active' RETURNING *
func (r *SubscriptionRepo) RefundCredit(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	var out []*models.Subscription
	res := r.db.WithContext(ctx).Model(&out).
		Clauses(clause.Returning{}).
		Where("id = ? AND status = ?", subscriptionID, types.SubscriptionStatusActive).
		Updates(map[string]any{
			"credits_remaining": gorm.Expr("credits_remaining + 1"),
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to refund credit: %w", res.Error)
	}
	if res.RowsAffected == 0 || len(out) == 0 {
		return nil, ErrConflict
	}
	return out[0], nil
}

func (r *SubscriptionRepo) CreateSuperseding(ctx context.Context, sub *models.Subscription) ([]*models.Subscription, error) {
	var superseded []*models.Subscription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&superseded).
			Clauses(clause.Returning{}).
			Where("user_id = ? AND status = ?", sub.UserID, types.SubscriptionStatusActive).
			Updates(map[string]any{
				"status":      types.SubscriptionStatusCanceled,
				"canceled_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to supersede active subscriptions: %w", res.Error)
		}
		if err := tx.Create(sub).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return superseded, nil
}

func (r *SubscriptionRepo) SaveLog(ctx context.Context, log *models.SubscriptionLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
