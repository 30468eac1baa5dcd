package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
)

type Coupons struct {
	mu          sync.Mutex
	coupons     map[string]*models.Coupon
	usages      []*models.CouponUsage
	commissions []*models.Commission
	// CommissionErr, when set, is returned by CreateCommission.
	CommissionErr error
}

func NewCoupons(seed ...*models.Coupon) *Coupons {
	c := &Coupons{coupons: map[string]*models.Coupon{}}
	for _, row := range seed {
		cp := *row
		c.coupons[row.Code] = &cp
	}
	return c
}

func (s *Coupons) FindActive(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.coupons[code]
	if !ok || !row.IsActive {
		return nil, repository.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *Coupons) Get(code string) *models.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.coupons[code]
	if !ok {
		return nil
	}
	cp := *row
	return &cp
}

func (s *Coupons) Create(_ context.Context, c *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.coupons[c.Code]; ok {
		return repository.ErrConflict
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	s.coupons[c.Code] = &cp
	return nil
}

func (s *Coupons) List(_ context.Context, employeeID string) ([]*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Coupon
	for _, row := range s.coupons {
		if employeeID != "" && (row.EmployeeID == nil || *row.EmployeeID != employeeID) {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Coupons) IncrementUsage(_ context.Context, code string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.coupons[code]
	if !ok {
		return 0, repository.ErrNotFound
	}
	row.UsageCount++
	return row.UsageCount, nil
}

func (s *Coupons) CreateUsage(_ context.Context, u *models.CouponUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usages = append(s.usages, u)
	return nil
}

func (s *Coupons) CreateCommission(_ context.Context, c *models.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CommissionErr != nil {
		return s.CommissionErr
	}
	for _, row := range s.commissions {
		if row.SubscriptionID == c.SubscriptionID {
			return repository.ErrConflict
		}
	}
	s.commissions = append(s.commissions, c)
	return nil
}

func (s *Coupons) ListCommissions(_ context.Context, employeeID string) ([]*models.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Commission
	for _, row := range s.commissions {
		if row.EmployeeID == employeeID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *Coupons) Usages() []*models.CouponUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.CouponUsage(nil), s.usages...)
}
