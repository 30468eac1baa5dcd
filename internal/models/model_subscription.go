package models

import (
	"time"

	"github.com/fatflowers/letterdesk/pkg/types"
)

// Subscription is a purchased letter bundle. Credits are deducted one per
// non-trial generation and only ever added by a new checkout.
type Subscription struct {
	ID     string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string                   `gorm:"column:user_id;type:varchar(64);not null;index:idx_subscription_user_status,priority:1" json:"user_id"`
	Plan   string                   `gorm:"column:plan;type:varchar(64);not null" json:"plan"`
	Status types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null;index:idx_subscription_user_status,priority:2" json:"status"`
	// Price is the amount paid after discount, in cents.
	Price int64 `gorm:"column:price;not null" json:"price"`
	// Discount is the amount taken off the plan price, in cents.
	Discount         int64      `gorm:"column:discount;not null;default:0" json:"discount"`
	CouponCode       *string    `gorm:"column:coupon_code;type:varchar(64);default:null" json:"coupon_code"`
	CreditsRemaining int        `gorm:"column:credits_remaining;not null;default:0;check:credits_remaining >= 0" json:"credits_remaining"`
	PeriodStart      time.Time  `gorm:"column:current_period_start;not null" json:"current_period_start"`
	PeriodEnd        time.Time  `gorm:"column:current_period_end;not null" json:"current_period_end"`
	CanceledAt       *time.Time `gorm:"column:canceled_at;default:null" json:"canceled_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// HasCredit reports whether the subscription can pay for one more letter.
func (s *Subscription) HasCredit() bool {
	return s != nil && s.Status == types.SubscriptionStatusActive && s.CreditsRemaining > 0
}
