package credit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/pkg/logctx"
	"github.com/fatflowers/letterdesk/pkg/tool"
	"github.com/fatflowers/letterdesk/pkg/types"
)

// ErrNoCredit is the entitlement failure: no free trial and no remaining credit.
var ErrNoCredit = errors.New("no letter credits remaining")

// Entitlement is the outcome of an entitlement check.
type Entitlement struct {
	// FreeTrial marks the user's first letter, which is never charged.
	FreeTrial bool
	// SuperUser callers are always entitled and never charged.
	SuperUser bool
}

// Chargeable reports whether a successful draft must consume a credit.
func (e *Entitlement) Chargeable() bool {
	return !e.FreeTrial && !e.SuperUser
}

// Balance summarises a user's credit position.
type Balance struct {
	Plan              string     `json:"plan,omitempty"`
	CreditsRemaining  int        `json:"credits_remaining"`
	PeriodEnd         *time.Time `json:"current_period_end,omitempty"`
	HasSubscription   bool       `json:"has_subscription"`
	FreeTrialEligible bool       `json:"free_trial_eligible"`
	IsSuperUser       bool       `json:"is_super_user"`
}

type Ledger struct {
	letters repository.LetterStore
	subs    repository.SubscriptionStore
	log     *zap.SugaredLogger
}

func NewLedger(letters repository.LetterStore, subs repository.SubscriptionStore, log *zap.SugaredLogger) *Ledger {
	return &Ledger{letters: letters, subs: subs, log: log}
}

// IsFreeTrialEligible is true iff the user has never created a letter, in any status.
func (l *Ledger) IsFreeTrialEligible(ctx context.Context, userID string) (bool, error) {
	n, err := l.letters.CountByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to count letters: %w", err)
	}
	return n == 0, nil
}

// HasCredit checks the most recently created active subscription.
func (l *Ledger) HasCredit(ctx context.Context, userID string) (bool, error) {
	sub, err := l.subs.LatestActive(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sub.HasCredit(), nil
}

// Entitlement decides whether actor may start a generation. It returns
// ErrNoCredit when the user is neither trial eligible nor holding a credit.
func (l *Ledger) Entitlement(ctx context.Context, actor *types.Actor) (*Entitlement, error) {
	trial, err := l.IsFreeTrialEligible(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if actor.IsSuperUser {
		return &Entitlement{FreeTrial: trial, SuperUser: true}, nil
	}
	if trial {
		return &Entitlement{FreeTrial: true}, nil
	}
	ok, err := l.HasCredit(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoCredit
	}
	return &Entitlement{}, nil
}

// Consume deducts exactly one credit from the latest active subscription.
// The deduction is a single guarded update, so concurrent callers can never
// drive the balance below zero. letterID is recorded in the change log.
// It returns the id of the subscription that was charged.
func (l *Ledger) Consume(ctx context.Context, userID, letterID string) (string, error) {
	after, err := l.subs.ConsumeCredit(ctx, userID)
	if errors.Is(err, repository.ErrConflict) {
		return "", ErrNoCredit
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume credit: %w", err)
	}

	before := *after
	before.CreditsRemaining++
	entry := &models.SubscriptionLog{
		ID:             tool.GenerateUUIDV7(),
		UserID:         userID,
		SubscriptionID: after.ID,
		Reason:         types.SubscriptionChangeReasonConsume,
		Before:         datatypes.NewJSONType(&before),
		After:          datatypes.NewJSONType(after),
		Extra:          datatypes.JSONMap{"letter_id": letterID},
	}
	if err := l.subs.SaveLog(ctx, entry); err != nil {
		logctx.FromCtx(ctx, l.log).Warnf("failed to save subscription log, subscription_id=%s: %v", after.ID, err)
	}
	return after.ID, nil
}

// Refund returns the credit Consume took from subscriptionID for letterID.
func (l *Ledger) Refund(ctx context.Context, userID, subscriptionID, letterID string) error {
	after, err := l.subs.RefundCredit(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to refund credit: %w", err)
	}

	before := *after
	before.CreditsRemaining--
	entry := &models.SubscriptionLog{
		ID:             tool.GenerateUUIDV7(),
		UserID:         userID,
		SubscriptionID: after.ID,
		Reason:         types.SubscriptionChangeReasonRefund,
		Before:         datatypes.NewJSONType(&before),
		After:          datatypes.NewJSONType(after),
		Extra:          datatypes.JSONMap{"letter_id": letterID},
	}
	if err := l.subs.SaveLog(ctx, entry); err != nil {
		logctx.FromCtx(ctx, l.log).Warnf("failed to save subscription log, subscription_id=%s: %v", after.ID, err)
	}
	return nil
}

func (l *Ledger) Balance(ctx context.Context, actor *types.Actor) (*Balance, error) {
	trial, err := l.IsFreeTrialEligible(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	b := &Balance{FreeTrialEligible: trial, IsSuperUser: actor.IsSuperUser}
	sub, err := l.subs.LatestActive(ctx, actor.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return b, nil
	}
	if err != nil {
		return nil, err
	}
	end := sub.PeriodEnd
	b.Plan = sub.Plan
	b.CreditsRemaining = sub.CreditsRemaining
	b.PeriodEnd = &end
	b.HasSubscription = true
	return b, nil
}
