package coupon

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/pkg/config"
)

const basisPoints = 10000

// Discount is the resolved outcome of a coupon code.
type Discount struct {
	// Code is the normalised code, empty when none was supplied.
	Code    string
	Percent int
	// EmployeeID is set when the coupon earns an employee commission.
	EmployeeID *string
	SuperUser  bool
	// Matched is false for codes that neither are reserved nor exist.
	Matched bool
}

// Commissionable reports whether a redemption pays the coupon's employee.
func (d *Discount) Commissionable() bool {
	return d.EmployeeID != nil && *d.EmployeeID != "" && !d.SuperUser
}

func (d *Discount) outcome() string {
	switch {
	case d.Code == "":
		return "none"
	case d.SuperUser:
		return "super_user"
	case d.Commissionable():
		return "employee"
	case d.Matched:
		return "coupon"
	}
	return "unmatched"
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ApplyDiscount returns base reduced by percent, rounded half-up to the
// nearest minor unit.
func ApplyDiscount(base int64, percent int) int64 {
	percent = min(max(percent, 0), 100)
	return (base*int64(100-percent) + 50) / 100
}

// CommissionAmount returns rateBps of amount, rounded half-up.
func CommissionAmount(amount, rateBps int64) int64 {
	return (amount*rateBps + basisPoints/2) / basisPoints
}

type Engine struct {
	cfg     *config.Config
	coupons repository.CouponStore
	log     *zap.SugaredLogger
}

func NewEngine(cfg *config.Config, coupons repository.CouponStore, log *zap.SugaredLogger) *Engine {
	return &Engine{cfg: cfg, coupons: coupons, log: log}
}

func (e *Engine) isReserved(code string) bool {
	return slices.ContainsFunc(e.cfg.Coupon.SuperUserCodes, func(c string) bool {
		return NormalizeCode(c) == code
	})
}

// Resolve maps a raw code to its discount. Reserved codes grant the
// super-user outcome without a table lookup. Unknown codes resolve to no
// discount and no error so a typo never blocks checkout.
func (e *Engine) Resolve(ctx context.Context, raw string) (*Discount, error) {
	code := NormalizeCode(raw)
	if code == "" {
		return &Discount{}, nil
	}
	if e.isReserved(code) {
		return &Discount{Code: code, Percent: 100, SuperUser: true, Matched: true}, nil
	}
	c, err := e.coupons.FindActive(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return &Discount{Code: code}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve coupon: %w", err)
	}
	return &Discount{
		Code:       code,
		Percent:    c.DiscountPercent,
		EmployeeID: c.EmployeeID,
		SuperUser:  c.DiscountPercent >= 100,
		Matched:    true,
	}, nil
}
