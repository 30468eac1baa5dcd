// Package memstore provides in-process implementations of the repository
// contracts for tests. Guarded writes hold the store mutex across check and
// write, so they give the same all-or-nothing behaviour as the SQL statements.
// Exported fields such as Letters.FailTransitionTo inject faults. Nothing
// outside _test.go files may import this package.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/pkg/types"
)

type Letters struct {
	mu   sync.Mutex
	rows map[string]*models.Letter
	// FailTransitionTo makes Transition fail with an error when the update
	// would move a letter into that status.
	FailTransitionTo types.LetterStatus
}

func NewLetters() *Letters { return &Letters{rows: map[string]*models.Letter{}} }

func cloneLetter(l *models.Letter) *models.Letter {
	cp := *l
	return &cp
}

func (s *Letters) Create(_ context.Context, l *models.Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	s.rows[l.ID] = cloneLetter(l)
	return nil
}

func (s *Letters) Get(_ context.Context, id string) (*models.Letter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneLetter(l), nil
}

// Delete removes a letter outright.
func (s *Letters) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
}

func (s *Letters) All() []*models.Letter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Letter, 0, len(s.rows))
	for _, l := range s.rows {
		out = append(out, cloneLetter(l))
	}
	return out
}

func (s *Letters) CountByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, l := range s.rows {
		if l.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Letters) List(_ context.Context, q *repository.LetterQuery) ([]*models.Letter, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q == nil {
		q = &repository.LetterQuery{}
	}
	var matched []*models.Letter
	for _, l := range s.rows {
		if q.UserID != "" && l.UserID != q.UserID {
			continue
		}
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, l.Status) {
			continue
		}
		matched = append(matched, cloneLetter(l))
	}
	sort.Slice(matched, func(i, j int) bool {
		if q.SortOrder == "asc" {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	size := q.Size
	if size <= 0 {
		size = 20
	}
	from := max(q.From, 0)
	if from >= len(matched) {
		return nil, total, nil
	}
	return matched[from:min(from+size, len(matched))], total, nil
}

func (s *Letters) Transition(_ context.Context, id string, guard repository.LetterGuard, upd repository.LetterUpdate) (*models.Letter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrConflict
	}
	if len(guard.From) > 0 && !slices.Contains(guard.From, l.Status) {
		return nil, repository.ErrConflict
	}
	if guard.Reviewer != "" && l.ReviewedBy != nil && *l.ReviewedBy != guard.Reviewer {
		return nil, repository.ErrConflict
	}
	if s.FailTransitionTo != "" && upd.Status == s.FailTransitionTo {
		return nil, errInjected
	}
	next := cloneLetter(l)
	if upd.Status != "" {
		next.Status = upd.Status
	}
	setString(&next.AIDraftContent, upd.AIDraftContent)
	setString(&next.FinalContent, upd.FinalContent)
	setString(&next.ReviewedBy, upd.ReviewedBy)
	setString(&next.ReviewNotes, upd.ReviewNotes)
	setString(&next.RejectionReason, upd.RejectionReason)
	setString(&next.FailureReason, upd.FailureReason)
	if upd.ReviewedAt != nil {
		t := *upd.ReviewedAt
		next.ReviewedAt = &t
	}
	if upd.ApprovedAt != nil {
		t := *upd.ApprovedAt
		next.ApprovedAt = &t
	}
	next.UpdatedAt = time.Now()
	s.rows[id] = next
	return cloneLetter(next), nil
}

func setString(dst **string, v *string) {
	if v == nil {
		return
	}
	s := *v
	*dst = &s
}

var (
	_ repository.LetterStore       = (*Letters)(nil)
	_ repository.SubscriptionStore = (*Subscriptions)(nil)
	_ repository.ProfileStore      = (*Profiles)(nil)
	_ repository.CouponStore       = (*Coupons)(nil)
	_ repository.AuditStore        = (*Audits)(nil)
)
