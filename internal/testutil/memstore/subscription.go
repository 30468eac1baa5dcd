package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/pkg/types"
)

type Subscriptions struct {
	mu   sync.Mutex
	rows []*models.Subscription
	logs []*models.SubscriptionLog
}

func NewSubscriptions() *Subscriptions { return &Subscriptions{} }

func cloneSub(s *models.Subscription) *models.Subscription {
	cp := *s
	return &cp
}

// Put inserts a subscription as is, bypassing supersession.
func (s *Subscriptions) Put(sub *models.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	s.rows = append(s.rows, cloneSub(sub))
}

func (s *Subscriptions) latestActive(userID string) *models.Subscription {
	var latest *models.Subscription
	for _, row := range s.rows {
		if row.UserID != userID || row.Status != types.SubscriptionStatusActive {
			continue
		}
		if latest == nil || !row.CreatedAt.Before(latest.CreatedAt) {
			latest = row
		}
	}
	return latest
}

func (s *Subscriptions) LatestActive(_ context.Context, userID string) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub := s.latestActive(userID); sub != nil {
		return cloneSub(sub), nil
	}
	return nil, repository.ErrNotFound
}

func (s *Subscriptions) ConsumeCredit(_ context.Context, userID string) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.latestActive(userID)
	if sub == nil || sub.CreditsRemaining <= 0 {
		return nil, repository.ErrConflict
	}
	sub.CreditsRemaining--
	sub.UpdatedAt = time.Now()
	return cloneSub(sub), nil
}

func (s *Subscriptions) RefundCredit(_ context.Context, subscriptionID string) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == subscriptionID && row.Status == types.SubscriptionStatusActive {
			row.CreditsRemaining++
			row.UpdatedAt = time.Now()
			return cloneSub(row), nil
		}
	}
	return nil, repository.ErrConflict
}

func (s *Subscriptions) CreateSuperseding(_ context.Context, sub *models.Subscription) ([]*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var superseded []*models.Subscription
	for _, row := range s.rows {
		if row.UserID == sub.UserID && row.Status == types.SubscriptionStatusActive {
			row.Status = types.SubscriptionStatusCanceled
			row.CanceledAt = &now
			row.UpdatedAt = now
			superseded = append(superseded, cloneSub(row))
		}
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	s.rows = append(s.rows, cloneSub(sub))
	return superseded, nil
}

func (s *Subscriptions) SaveLog(_ context.Context, log *models.SubscriptionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

func (s *Subscriptions) All() []*models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Subscription, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, cloneSub(row))
	}
	return out
}

func (s *Subscriptions) Logs() []*models.SubscriptionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.SubscriptionLog(nil), s.logs...)
}
