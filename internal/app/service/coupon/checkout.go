package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/pkg/logctx"
	"github.com/fatflowers/letterdesk/pkg/metrics"
	"github.com/fatflowers/letterdesk/pkg/tool"
	"github.com/fatflowers/letterdesk/pkg/types"
)

var ErrUnknownPlan = errors.New("unknown plan")

type CheckoutResult struct {
	Subscription     *models.Subscription `json:"subscription"`
	DiscountPercent  int                  `json:"discount_percent"`
	SuperUser        bool                 `json:"is_super_user"`
	CommissionAmount int64                `json:"commission_amount,omitempty"`
}

// CheckoutService creates subscriptions and records the coupon side ledger.
type CheckoutService struct {
	engine   *Engine
	subs     repository.SubscriptionStore
	profiles repository.ProfileStore
}

func NewCheckoutService(engine *Engine, subs repository.SubscriptionStore, profiles repository.ProfileStore) *CheckoutService {
	return &CheckoutService{engine: engine, subs: subs, profiles: profiles}
}

// Checkout prices planID with the supplied code and makes the new
// subscription the user's only active one. Coupon side effects run only
// after the subscription has been stored; their failures are logged and do
// not undo the purchase.
func (s *CheckoutService) Checkout(ctx context.Context, userID, planID, rawCode string) (*CheckoutResult, error) {
	plan := s.engine.cfg.GetPlanByID(planID)
	if plan == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, planID)
	}
	discount, err := s.engine.Resolve(ctx, rawCode)
	if err != nil {
		return nil, err
	}

	price := ApplyDiscount(plan.Price, discount.Percent)
	now := time.Now()
	sub := &models.Subscription{
		ID:               tool.GenerateUUIDV7(),
		UserID:           userID,
		Plan:             plan.ID,
		Status:           types.SubscriptionStatusActive,
		Price:            price,
		Discount:         plan.Price - price,
		CreditsRemaining: plan.Letters,
		PeriodStart:      now,
		PeriodEnd:        now.AddDate(0, 0, plan.PeriodDays),
	}
	if discount.Code != "" {
		code := discount.Code
		sub.CouponCode = &code
	}

	superseded, err := s.subs.CreateSuperseding(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	metrics.Checkouts.WithLabelValues(plan.ID, discount.outcome()).Inc()

	lg := logctx.FromCtx(ctx, s.engine.log)
	lg.Infof("checkout completed, user_id=%s, plan=%s, price=%d, superseded=%d", userID, plan.ID, price, len(superseded))
	s.saveLogs(ctx, sub, superseded)

	result := &CheckoutResult{Subscription: sub, DiscountPercent: discount.Percent, SuperUser: discount.SuperUser}

	if discount.SuperUser {
		if err := s.profiles.SetSuperUser(ctx, userID, true); err != nil {
			lg.Errorf("failed to set super user flag, user_id=%s: %v", userID, err)
		}
	}
	if discount.Code != "" {
		usage := &models.CouponUsage{
			ID:              tool.GenerateUUIDV7(),
			UserID:          userID,
			CouponCode:      discount.Code,
			EmployeeID:      discount.EmployeeID,
			DiscountPercent: discount.Percent,
			AmountBefore:    plan.Price,
			AmountAfter:     price,
		}
		if err := s.engine.coupons.CreateUsage(ctx, usage); err != nil {
			lg.Errorf("failed to record coupon usage, code=%s: %v", discount.Code, err)
		}
	}
	if discount.Commissionable() {
		result.CommissionAmount = s.recordCommission(ctx, sub, discount)
	}
	return result, nil
}

func (s *CheckoutService) recordCommission(ctx context.Context, sub *models.Subscription, d *Discount) int64 {
	lg := logctx.FromCtx(ctx, s.engine.log)
	rate := s.engine.cfg.Coupon.CommissionRateBps
	c := &models.Commission{
		ID:                 tool.GenerateUUIDV7(),
		EmployeeID:         *d.EmployeeID,
		SubscriptionID:     sub.ID,
		SubscriptionAmount: sub.Price,
		CommissionRateBps:  rate,
		CommissionAmount:   CommissionAmount(sub.Price, rate),
		Status:             types.CommissionStatusPending,
	}
	if _, err := s.engine.coupons.IncrementUsage(ctx, d.Code); err != nil {
		lg.Errorf("failed to increment coupon usage, code=%s: %v", d.Code, err)
	}
	if err := s.engine.coupons.CreateCommission(ctx, c); err != nil {
		lg.Errorf("failed to create commission, subscription_id=%s: %v", sub.ID, err)
		return 0
	}
	return c.CommissionAmount
}

func (s *CheckoutService) saveLogs(ctx context.Context, sub *models.Subscription, superseded []*models.Subscription) {
	entries := make([]*models.SubscriptionLog, 0, len(superseded)+1)
	for _, old := range superseded {
		after := *old
		before := *old
		before.Status = types.SubscriptionStatusActive
		before.CanceledAt = nil
		entries = append(entries, &models.SubscriptionLog{
			ID:             tool.GenerateUUIDV7(),
			UserID:         old.UserID,
			SubscriptionID: old.ID,
			Reason:         types.SubscriptionChangeReasonSuperseded,
			Before:         datatypes.NewJSONType(&before),
			After:          datatypes.NewJSONType(&after),
			Extra:          datatypes.JSONMap{"superseded_by": sub.ID},
		})
	}
	entries = append(entries, &models.SubscriptionLog{
		ID:             tool.GenerateUUIDV7(),
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		Reason:         types.SubscriptionChangeReasonPurchase,
		After:          datatypes.NewJSONType(sub),
		Extra:          datatypes.JSONMap{},
	})
	for _, e := range entries {
		if err := s.subs.SaveLog(ctx, e); err != nil {
			logctx.FromCtx(ctx, s.engine.log).Warnf("failed to save subscription log, subscription_id=%s: %v", e.SubscriptionID, err)
		}
	}
}
