// Package repository holds the persistence contracts used by the services and
// their gorm implementations. Every guarded mutation is a single conditional
// statement so concurrent requests cannot both pass the same guard.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/pkg/types"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a conditional update matched no row.
	ErrConflict = errors.New("conditional update matched no row")
)

// LetterGuard is the precondition of a letter transition.
type LetterGuard struct {
	// From lists the statuses the letter may currently be in.
	From []types.LetterStatus
	// Reviewer, when set, requires reviewed_by to be NULL or equal to it.
	Reviewer string
}

// LetterUpdate lists the columns a transition writes. Nil fields are left alone.
type LetterUpdate struct {
	Status          types.LetterStatus
	AIDraftContent  *string
	FinalContent    *string
	ReviewedBy      *string
	ReviewNotes     *string
	RejectionReason *string
	FailureReason   *string
	ReviewedAt      *time.Time
	ApprovedAt      *time.Time
}

// Columns renders the update as a gorm column map.
func (u *LetterUpdate) Columns(now time.Time) map[string]any {
	cols := map[string]any{"updated_at": now}
	if u.Status != "" {
		cols["status"] = u.Status
	}
	if u.AIDraftContent != nil {
		cols["ai_draft_content"] = *u.AIDraftContent
	}
	if u.FinalContent != nil {
		cols["final_content"] = *u.FinalContent
	}
	if u.ReviewedBy != nil {
		cols["reviewed_by"] = *u.ReviewedBy
	}
	if u.ReviewNotes != nil {
		cols["review_notes"] = *u.ReviewNotes
	}
	if u.RejectionReason != nil {
		cols["rejection_reason"] = *u.RejectionReason
	}
	if u.FailureReason != nil {
		cols["failure_reason"] = *u.FailureReason
	}
	if u.ReviewedAt != nil {
		cols["reviewed_at"] = *u.ReviewedAt
	}
	if u.ApprovedAt != nil {
		cols["approved_at"] = *u.ApprovedAt
	}
	return cols
}

// LetterQuery filters letter listings.
type LetterQuery struct {
	UserID    string
	Statuses  []types.LetterStatus
	From      int
	Size      int
	SortOrder string
}

type LetterStore interface {
	Create(ctx context.Context, l *models.Letter) error
	Get(ctx context.Context, id string) (*models.Letter, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	List(ctx context.Context, q *LetterQuery) ([]*models.Letter, int64, error)
	// Transition applies upd only when guard holds and returns the updated row.
	// It returns ErrConflict when the guard does not hold.
	Transition(ctx context.Context, id string, guard LetterGuard, upd LetterUpdate) (*models.Letter, error)
}

type SubscriptionStore interface {
	// LatestActive returns the most recently created active subscription.
	LatestActive(ctx context.Context, userID string) (*models.Subscription, error)
	// ConsumeCredit decrements the latest active subscription's balance only if
	// it is positive. It returns ErrConflict when nothing could be deducted.
	ConsumeCredit(ctx context.Context, userID string) (*models.Subscription, error)
	// RefundCredit gives one credit back to the given subscription while it
	// is still active. It returns ErrConflict when the row is no longer active.
	RefundCredit(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	// CreateSuperseding cancels every active subscription of sub.UserID and
	// inserts sub in one transaction. The canceled rows are returned.
	CreateSuperseding(ctx context.Context, sub *models.Subscription) ([]*models.Subscription, error)
	SaveLog(ctx context.Context, log *models.SubscriptionLog) error
}

type ProfileStore interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	Create(ctx context.Context, p *models.Profile) error
	SetSuperUser(ctx context.Context, id string, isSuperUser bool) error
	ListSuperUsers(ctx context.Context) ([]*models.Profile, error)
}

type CouponStore interface {
	// FindActive looks a coupon up by its normalised code.
	FindActive(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, c *models.Coupon) error
	List(ctx context.Context, employeeID string) ([]*models.Coupon, error)
	// IncrementUsage atomically bumps usage_count and returns the new value.
	IncrementUsage(ctx context.Context, code string) (int, error)
	CreateUsage(ctx context.Context, u *models.CouponUsage) error
	CreateCommission(ctx context.Context, c *models.Commission) error
	ListCommissions(ctx context.Context, employeeID string) ([]*models.Commission, error)
}

type AuditStore interface {
	Create(ctx context.Context, e *models.LetterAuditLog) error
	ListByLetter(ctx context.Context, letterID string) ([]*models.LetterAuditLog, error)
}
