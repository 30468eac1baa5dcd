package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
)

type Profiles struct {
	mu   sync.Mutex
	rows map[string]*models.Profile
}

func NewProfiles(seed ...*models.Profile) *Profiles {
	p := &Profiles{rows: map[string]*models.Profile{}}
	for _, row := range seed {
		cp := *row
		p.rows[row.ID] = &cp
	}
	return p
}

func (s *Profiles) Get(_ context.Context, id string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *Profiles) Create(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	s.rows[p.ID] = &cp
	return nil
}

func (s *Profiles) SetSuperUser(_ context.Context, id string, isSuperUser bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	row.IsSuperUser = isSuperUser
	row.UpdatedAt = time.Now()
	return nil
}

func (s *Profiles) ListSuperUsers(_ context.Context) ([]*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Profile
	for _, row := range s.rows {
		if row.IsSuperUser {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
