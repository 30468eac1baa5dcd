package letter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"github.com/fatflowers/letterdesk/internal/app/service/credit"
	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/pkg/metrics"
	"github.com/fatflowers/letterdesk/pkg/tool"
	"github.com/fatflowers/letterdesk/pkg/types"
)

const (
	failureCauseDrafting = "drafting"
	failureCauseEmpty    = "empty_content"
	failureCauseCredit   = "credit_deduction"
)

type GenerateRequest struct {
	LetterType types.LetterType   `json:"letterType"`
	IntakeData *models.IntakeData `json:"intakeData"`
}

func (r *GenerateRequest) validate() error {
	if r == nil {
		return fmt.Errorf("%w: letterType and intakeData are required", ErrValidation)
	}
	if !r.LetterType.Supported() {
		return fmt.Errorf("%w: unsupported letter type %q", ErrValidation, r.LetterType)
	}
	if missing := r.IntakeData.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// Generate validates the intake, checks entitlement, drafts the letter and
// queues it for review. Validation and entitlement failures write nothing.
// Once the letter row exists every failure leaves it in failed, never in
// generating.
func (s *Service) Generate(ctx context.Context, actor *types.Actor, req *GenerateRequest) (*models.Letter, error) {
	if actor.Role != types.RoleSubscriber && !actor.IsSuperUser {
		return nil, fmt.Errorf("%w: only subscribers can generate letters", ErrForbidden)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	ent, err := s.ledger.Entitlement(ctx, actor)
	if err != nil {
		return nil, err
	}

	created := now()
	l := &models.Letter{
		ID:          tool.GenerateUUIDV7(),
		UserID:      actor.UserID,
		Title:       fmt.Sprintf("%s - %s", req.LetterType.Label(), created.Format("2006-01-02")),
		LetterType:  req.LetterType,
		IntakeData:  datatypes.NewJSONType(req.IntakeData),
		Status:      types.LetterStatusGenerating,
		IsFreeTrial: ent.FreeTrial,
		CreatedAt:   created,
	}
	if err := s.letters.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create letter: %w", err)
	}
	s.record(ctx, l, types.AuditActionCreated, "", types.LetterStatusGenerating, "Letter generation requested", actor.UserID)

	lg := logger(ctx, s.log)
	draftCtx, cancel := s.draftingContext(ctx)
	content, err := s.drafter.Generate(draftCtx, l.LetterType, req.IntakeData)
	cancel()
	if err != nil {
		lg.Errorf("drafting failed, letter_id=%s: %v", l.ID, err)
		s.fail(ctx, l, failureCauseDrafting, "Drafting service failed: "+err.Error(), nil)
		return nil, ErrGenerationFailed
	}
	if strings.TrimSpace(content) == "" {
		s.fail(ctx, l, failureCauseEmpty, "Drafting service returned empty content", nil)
		return nil, ErrGenerationFailed
	}

	var chargedSub string
	if ent.Chargeable() {
		chargedSub, err = s.ledger.Consume(ctx, actor.UserID, l.ID)
		if err != nil {
			lg.Warnf("credit deduction failed, letter_id=%s: %v", l.ID, err)
			s.fail(ctx, l, failureCauseCredit, "Credit deduction failed: "+err.Error(), &content)
			if errors.Is(err, credit.ErrNoCredit) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to deduct credit: %w", err)
		}
	}

	out, err := s.letters.Transition(ctx, l.ID,
		repository.LetterGuard{From: []types.LetterStatus{types.LetterStatusGenerating}},
		repository.LetterUpdate{Status: types.LetterStatusPendingReview, AIDraftContent: &content},
	)
	if err != nil {
		lg.Errorf("failed to store draft, letter_id=%s: %v", l.ID, err)
		note := "Failed to store draft: " + err.Error()
		if chargedSub != "" {
			note += s.refund(ctx, actor.UserID, chargedSub, l.ID)
		}
		s.fail(ctx, l, failureCauseDrafting, note, &content)
		return nil, ErrGenerationFailed
	}

	metrics.LettersGenerated.WithLabelValues(string(l.LetterType), strconv.FormatBool(l.IsFreeTrial)).Inc()
	s.record(ctx, out, types.AuditActionDrafted, types.LetterStatusGenerating, types.LetterStatusPendingReview, "AI draft generated", actor.UserID)
	return out.ForOwner(), nil
}

// refund gives back the credit charged for a letter whose draft could not be
// stored and returns the suffix for the failure note.
func (s *Service) refund(ctx context.Context, userID, subscriptionID, letterID string) string {
	if err := s.ledger.Refund(context.WithoutCancel(ctx), userID, subscriptionID, letterID); err != nil {
		logger(ctx, s.log).Errorf("failed to refund credit, letter_id=%s subscription_id=%s: %v", letterID, subscriptionID, err)
		return "; credit refund failed"
	}
	return "; credit refunded"
}

// fail moves a generating letter to failed and audits the cause. It runs
// detached from ctx cancellation so a dropped request still settles the row.
func (s *Service) fail(ctx context.Context, l *models.Letter, cause, note string, draft *string) {
	ctx = context.WithoutCancel(ctx)
	metrics.LettersFailed.WithLabelValues(cause).Inc()

	_, err := s.letters.Transition(ctx, l.ID,
		repository.LetterGuard{From: []types.LetterStatus{types.LetterStatusGenerating}},
		repository.LetterUpdate{Status: types.LetterStatusFailed, FailureReason: &note, AIDraftContent: draft},
	)
	if err != nil {
		logger(ctx, s.log).Errorf("failed to mark letter failed, letter_id=%s: %v", l.ID, err)
		return
	}
	s.record(ctx, l, types.AuditActionFailed, types.LetterStatusGenerating, types.LetterStatusFailed, note, l.UserID)
}
