package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/pkg/tool"
)

var (
	ErrInvalidCoupon = errors.New("invalid coupon")
	ErrDuplicateCode = errors.New("coupon code already exists")
)

type CreateCouponRequest struct {
	Code            string  `json:"code" binding:"required"`
	DiscountPercent int     `json:"discount_percent"`
	EmployeeID      *string `json:"employee_id"`
}

// CreateCoupon stores a new active coupon. Reserved codes cannot be shadowed.
func (e *Engine) CreateCoupon(ctx context.Context, req *CreateCouponRequest) (*models.Coupon, error) {
	code := NormalizeCode(req.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidCoupon)
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return nil, fmt.Errorf("%w: discount_percent must be within 0-100", ErrInvalidCoupon)
	}
	if e.isReserved(code) {
		return nil, fmt.Errorf("%w: %s is reserved", ErrInvalidCoupon, code)
	}
	var employeeID *string
	if req.EmployeeID != nil && *req.EmployeeID != "" {
		id := *req.EmployeeID
		employeeID = &id
	}
	c := &models.Coupon{
		ID:              tool.GenerateUUIDV7(),
		Code:            code,
		DiscountPercent: req.DiscountPercent,
		EmployeeID:      employeeID,
		IsActive:        true,
	}
	if err := e.coupons.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return c, nil
}

// ListCoupons returns every coupon, or only those owned by employeeID.
func (e *Engine) ListCoupons(ctx context.Context, employeeID string) ([]*models.Coupon, error) {
	return e.coupons.List(ctx, employeeID)
}

func (e *Engine) ListCommissions(ctx context.Context, employeeID string) ([]*models.Commission, error) {
	return e.coupons.ListCommissions(ctx, employeeID)
}
