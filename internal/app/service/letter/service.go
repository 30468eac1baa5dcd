package letter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/letterdesk/internal/app/service/audit"
	"github.com/fatflowers/letterdesk/internal/app/service/credit"
	"github.com/fatflowers/letterdesk/internal/app/service/drafting"
	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/pkg/config"
	"github.com/fatflowers/letterdesk/pkg/logctx"
	"github.com/fatflowers/letterdesk/pkg/metrics"
	"github.com/fatflowers/letterdesk/pkg/types"
)

// Service owns the letter state machine:
//
//	generating -> pending_review -> under_review -> approved | rejected
//	generating -> failed
type Service struct {
	cfg     *config.Config
	letters repository.LetterStore
	ledger  *credit.Ledger
	drafter drafting.Service
	audit   *audit.Service
	log     *zap.SugaredLogger
}

func NewService(cfg *config.Config, letters repository.LetterStore, ledger *credit.Ledger, drafter drafting.Service, auditSvc *audit.Service, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, letters: letters, ledger: ledger, drafter: drafter, audit: auditSvc, log: log}
}

func (s *Service) record(ctx context.Context, l *models.Letter, action types.AuditAction, from, to types.LetterStatus, note, actorID string) {
	metrics.LetterTransitions.WithLabelValues(string(action)).Inc()
	s.audit.Record(ctx, &models.LetterAuditLog{
		LetterID:    l.ID,
		Action:      action,
		OldStatus:   from,
		NewStatus:   to,
		Notes:       note,
		PerformedBy: actorID,
	})
}

func (s *Service) load(ctx context.Context, id string) (*models.Letter, error) {
	l, err := s.letters.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load letter: %w", err)
	}
	l.Status = l.Status.Canonical()
	return l, nil
}

// explainConflict turns a guarded update that matched nothing into the
// error the caller should see.
func (s *Service) explainConflict(ctx context.Context, id, adminID string) error {
	cur, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if cur.AssignedToOther(adminID) {
		return ErrReviewerConflict
	}
	return ErrStatusConflict
}

func (s *Service) transition(ctx context.Context, id, adminID string, guard repository.LetterGuard, upd repository.LetterUpdate) (*models.Letter, error) {
	l, err := s.letters.Transition(ctx, id, guard, upd)
	if errors.Is(err, repository.ErrConflict) {
		return nil, s.explainConflict(ctx, id, adminID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update letter: %w", err)
	}
	return l, nil
}

// Get returns a letter visible to actor. Letters owned by someone else are
// reported as not found to non-admins.
func (s *Service) Get(ctx context.Context, actor *types.Actor, id string) (*models.Letter, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return l, nil
	}
	if l.UserID != actor.UserID {
		return nil, ErrNotFound
	}
	return l.ForOwner(), nil
}

type ListRequest struct {
	Status    types.LetterStatus `form:"status"`
	From      int                `form:"from"`
	Size      int                `form:"size"`
	SortOrder string             `form:"sort_order"`
}

type ListResponse struct {
	Items []*models.Letter `json:"items"`
	Total int64            `json:"total"`
}

// List returns every letter to admins and only the caller's own letters to
// everyone else.
func (s *Service) List(ctx context.Context, actor *types.Actor, req *ListRequest) (*ListResponse, error) {
	if req == nil {
		req = &ListRequest{}
	}
	if req.Size <= 0 || req.Size > 100 {
		req.Size = 20
	}
	q := &repository.LetterQuery{From: max(req.From, 0), Size: req.Size, SortOrder: req.SortOrder}
	if !actor.IsAdmin() {
		q.UserID = actor.UserID
	}
	if req.Status != "" {
		q.Statuses = []types.LetterStatus{req.Status.Canonical()}
		if req.Status.Canonical() == types.LetterStatusApproved {
			q.Statuses = append(q.Statuses, types.LetterStatusCompleted)
		}
	}

	rows, total, err := s.letters.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list letters: %w", err)
	}
	items := make([]*models.Letter, 0, len(rows))
	for _, l := range rows {
		l.Status = l.Status.Canonical()
		if !actor.IsAdmin() {
			l = l.ForOwner()
		}
		items = append(items, l)
	}
	return &ListResponse{Items: items, Total: total}, nil
}

// History returns the audit trail of a letter. Admin only.
func (s *Service) History(ctx context.Context, actor *types.Actor, id string) ([]*models.LetterAuditLog, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	return s.audit.List(ctx, id)
}

func (s *Service) draftingContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Drafting.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Drafting.Timeout)
	}
	return context.WithCancel(ctx)
}

func reviewable(status types.LetterStatus) bool {
	return slices.Contains([]types.LetterStatus{types.LetterStatusPendingReview, types.LetterStatusUnderReview}, status)
}

func logger(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	return logctx.FromCtx(ctx, base)
}

func now() time.Time { return time.Now() }
