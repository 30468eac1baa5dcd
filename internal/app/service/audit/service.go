package audit

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/pkg/logctx"
	"github.com/fatflowers/letterdesk/pkg/metrics"
	"github.com/fatflowers/letterdesk/pkg/tool"
)

type Service struct {
	store repository.AuditStore
	log   *zap.SugaredLogger
}

func New(store repository.AuditStore, log *zap.SugaredLogger) *Service {
	return &Service{store: store, log: log}
}

// Record persists one audit entry. A failed write is logged and counted but
// never returned, so it cannot roll back the transition it describes.
// Nil input is ignored.
func (s *Service) Record(ctx context.Context, entry *models.LetterAuditLog) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if err := s.store.Create(ctx, entry); err != nil {
		metrics.AuditFailures.Inc()
		logctx.FromCtx(ctx, s.log).Errorf("failed to save audit entry, letter_id=%s, action=%s: %v", entry.LetterID, entry.Action, err)
	}
}

func (s *Service) List(ctx context.Context, letterID string) ([]*models.LetterAuditLog, error) {
	return s.store.ListByLetter(ctx, letterID)
}

var Module = fx.Options(
	fx.Provide(New),
)
