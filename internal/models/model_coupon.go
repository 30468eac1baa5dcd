package models

import (
	"time"

	"github.com/fatflowers/letterdesk/pkg/types"
)

// Coupon is a discount code, optionally owned by an employee who earns a
// commission on each paid redemption.
type Coupon struct {
	ID              string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Code            string    `gorm:"column:code;type:varchar(64);not null;uniqueIndex" json:"code"`
	DiscountPercent int       `gorm:"column:discount_percent;not null;check:discount_percent BETWEEN 0 AND 100" json:"discount_percent"`
	EmployeeID      *string   `gorm:"column:employee_id;type:varchar(64);default:null;index" json:"employee_id"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	UsageCount      int       `gorm:"column:usage_count;not null;default:0" json:"usage_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Coupon) TableName() string {
	return "coupon"
}

// CouponUsage is written once per checkout that carried a code, matched or not.
type CouponUsage struct {
	ID              string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID          string    `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	CouponCode      string    `gorm:"column:coupon_code;type:varchar(64);not null;index" json:"coupon_code"`
	EmployeeID      *string   `gorm:"column:employee_id;type:varchar(64);default:null" json:"employee_id"`
	DiscountPercent int       `gorm:"column:discount_percent;not null" json:"discount_percent"`
	AmountBefore    int64     `gorm:"column:amount_before;not null" json:"amount_before"`
	AmountAfter     int64     `gorm:"column:amount_after;not null" json:"amount_after"`
	CreatedAt       time.Time `json:"created_at"`
}

func (CouponUsage) TableName() string {
	return "coupon_usage"
}

type Commission struct {
	ID                 string                 `gorm:"column:id;type:uuid;primary_key" json:"id"`
	EmployeeID         string                 `gorm:"column:employee_id;type:varchar(64);not null;index" json:"employee_id"`
	SubscriptionID     string                 `gorm:"column:subscription_id;type:uuid;not null;uniqueIndex" json:"subscription_id"`
	SubscriptionAmount int64                  `gorm:"column:subscription_amount;not null" json:"subscription_amount"`
	CommissionRateBps  int64                  `gorm:"column:commission_rate_bps;not null" json:"commission_rate_bps"`
	CommissionAmount   int64                  `gorm:"column:commission_amount;not null" json:"commission_amount"`
	Status             types.CommissionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt          time.Time              `json:"created_at"`
}

func (Commission) TableName() string {
	return "commission"
}
