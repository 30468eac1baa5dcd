package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/fatflowers/letterdesk/internal/models"
)

type Audits struct {
	mu   sync.Mutex
	rows []*models.LetterAuditLog
	// Err, when set, is returned by Create.
	Err error
}

func NewAudits() *Audits { return &Audits{} }

func (s *Audits) Create(_ context.Context, e *models.LetterAuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	cp := *e
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *Audits) ListByLetter(_ context.Context, letterID string) ([]*models.LetterAuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.LetterAuditLog
	for _, row := range s.rows {
		if row.LetterID == letterID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Audits) All() []*models.LetterAuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.LetterAuditLog(nil), s.rows...)
}
