package drafting

import (
	"context"
	"errors"

	"go.uber.org/fx"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/pkg/types"
)

var (
	// ErrEmptyContent means the model answered but produced no text.
	ErrEmptyContent = errors.New("drafting service returned empty content")
	ErrUpstream     = errors.New("drafting service unavailable")
)

// Service drafts and rewrites letter text.
type Service interface {
	Generate(ctx context.Context, letterType types.LetterType, intake *models.IntakeData) (string, error)
	Improve(ctx context.Context, content, instruction string) (string, error)
}

var Module = fx.Options(
	fx.Provide(fx.Annotate(NewGeminiClient, fx.As(new(Service)))),
)
