package letter

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/pkg/types"
)

const (
	noteReviewStarted = "Admin started reviewing the letter"
	noteApproved      = "Letter approved by admin"
)

type ApproveRequest struct {
	FinalContent string `json:"finalContent"`
	ReviewNotes  string `json:"reviewNotes"`
}

type RejectRequest struct {
	RejectionReason string `json:"rejectionReason"`
	ReviewNotes     string `json:"reviewNotes"`
}

type ImproveRequest struct {
	Content     string `json:"content"`
	Instruction string `json:"instruction"`
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// checkReviewer applies the read side of the assignment guard. The write
// side is enforced again by the conditional update.
func checkReviewer(l *models.Letter, adminID string) error {
	if l.AssignedToOther(adminID) {
		return ErrReviewerConflict
	}
	return nil
}

// StartReview claims a queued letter for actor. Reopening a letter the same
// admin already holds is a no-op.
func (s *Service) StartReview(ctx context.Context, actor *types.Actor, id string) (*models.Letter, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkReviewer(l, actor.UserID); err != nil {
		return nil, err
	}
	if !reviewable(l.Status) {
		return nil, fmt.Errorf("%w: letter is %s", ErrInvalidStatus, l.Status)
	}
	if l.Status == types.LetterStatusUnderReview && l.ReviewedBy != nil {
		return l, nil
	}

	at := now()
	out, err := s.transition(ctx, id, actor.UserID,
		repository.LetterGuard{From: []types.LetterStatus{l.Status}, Reviewer: actor.UserID},
		repository.LetterUpdate{Status: types.LetterStatusUnderReview, ReviewedBy: &actor.UserID, ReviewedAt: &at},
	)
	if err != nil {
		return nil, err
	}
	if l.Status == types.LetterStatusPendingReview {
		s.record(ctx, out, types.AuditActionReviewStarted, l.Status, types.LetterStatusUnderReview, noteReviewStarted, actor.UserID)
	}
	return out, nil
}

func (s *Service) loadForDecision(ctx context.Context, actor *types.Actor, id string) (*models.Letter, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkReviewer(l, actor.UserID); err != nil {
		return nil, err
	}
	if l.Status != types.LetterStatusUnderReview {
		return nil, fmt.Errorf("%w: letter is %s", ErrInvalidStatus, l.Status)
	}
	return l, nil
}

// Approve publishes finalContent as the letter's final text. An unassigned
// letter is assigned to the approving admin.
func (s *Service) Approve(ctx context.Context, actor *types.Actor, id string, req *ApproveRequest) (*models.Letter, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if req == nil || strings.TrimSpace(req.FinalContent) == "" {
		return nil, fmt.Errorf("%w: final content is required", ErrValidation)
	}
	l, err := s.loadForDecision(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	at := now()
	content := req.FinalContent
	out, err := s.transition(ctx, id, actor.UserID,
		repository.LetterGuard{From: []types.LetterStatus{types.LetterStatusUnderReview}, Reviewer: actor.UserID},
		repository.LetterUpdate{
			Status:       types.LetterStatusApproved,
			FinalContent: &content,
			ReviewedBy:   &actor.UserID,
			ReviewNotes:  optional(req.ReviewNotes),
			ReviewedAt:   &at,
			ApprovedAt:   &at,
		},
	)
	if err != nil {
		return nil, err
	}
	note := noteApproved
	if n := optional(req.ReviewNotes); n != nil {
		note = *n
	}
	s.record(ctx, out, types.AuditActionApproved, l.Status, types.LetterStatusApproved, note, actor.UserID)
	return out, nil
}

// Reject closes the letter with a client visible reason.
func (s *Service) Reject(ctx context.Context, actor *types.Actor, id string, req *RejectRequest) (*models.Letter, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if req == nil || strings.TrimSpace(req.RejectionReason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}
	l, err := s.loadForDecision(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	at := now()
	reason := req.RejectionReason
	out, err := s.transition(ctx, id, actor.UserID,
		repository.LetterGuard{From: []types.LetterStatus{types.LetterStatusUnderReview}, Reviewer: actor.UserID},
		repository.LetterUpdate{
			Status:          types.LetterStatusRejected,
			RejectionReason: &reason,
			ReviewedBy:      &actor.UserID,
			ReviewNotes:     optional(req.ReviewNotes),
			ReviewedAt:      &at,
		},
	)
	if err != nil {
		return nil, err
	}
	s.record(ctx, out, types.AuditActionRejected, l.Status, types.LetterStatusRejected, "Rejection reason: "+reason, actor.UserID)
	return out, nil
}

// ImproveDraft asks the drafting service to rewrite content following
// instruction. The letter itself is not modified.
func (s *Service) ImproveDraft(ctx context.Context, actor *types.Actor, id string, req *ImproveRequest) (string, error) {
	if !actor.IsAdmin() {
		return "", ErrForbidden
	}
	if req == nil || strings.TrimSpace(req.Content) == "" || strings.TrimSpace(req.Instruction) == "" {
		return "", fmt.Errorf("%w: content and instruction are required", ErrValidation)
	}
	l, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if err := checkReviewer(l, actor.UserID); err != nil {
		return "", err
	}

	draftCtx, cancel := s.draftingContext(ctx)
	defer cancel()
	improved, err := s.drafter.Improve(draftCtx, req.Content, req.Instruction)
	if err != nil {
		logger(ctx, s.log).Errorf("improve draft failed, letter_id=%s: %v", id, err)
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return improved, nil
}
