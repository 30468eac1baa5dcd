package profile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/pkg/logctx"
	"github.com/fatflowers/letterdesk/pkg/types"
)

var (
	ErrForbidden = errors.New("admin access required")
	ErrNotFound  = errors.New("profile not found")
)

// landingPages maps each role to the dashboard it lands on after sign in.
var landingPages = map[types.Role]string{
	types.RoleSubscriber: "/dashboard/letters",
	types.RoleEmployee:   "/dashboard/commissions",
	types.RoleAdmin:      "/dashboard/admin",
}

// LandingPage returns the landing path for role, defaulting to the
// subscriber dashboard.
func LandingPage(role types.Role) string {
	if p, ok := landingPages[role]; ok {
		return p
	}
	return landingPages[types.RoleSubscriber]
}

// Identity is what the bearer token says about the caller.
type Identity struct {
	Subject  string
	Email    string
	FullName string
}

type Service struct {
	store repository.ProfileStore
	log   *zap.SugaredLogger
}

func NewService(store repository.ProfileStore, log *zap.SugaredLogger) *Service {
	return &Service{store: store, log: log}
}

// Resolve loads the profile behind an authenticated identity. The first
// request of a new identity provisions a subscriber profile.
func (s *Service) Resolve(ctx context.Context, id *Identity) (*models.Profile, error) {
	p, err := s.store.Get(ctx, id.Subject)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	p = &models.Profile{
		ID:       id.Subject,
		Email:    id.Email,
		FullName: id.FullName,
		Role:     types.RoleSubscriber,
	}
	if err := s.store.Create(ctx, p); err != nil {
		// a concurrent first request may have won the insert
		if existing, getErr := s.store.Get(ctx, id.Subject); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to provision profile: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infof("provisioned profile, user_id=%s", p.ID)
	return p, nil
}

type SetSuperUserRequest struct {
	UserID      string `json:"userId" binding:"required"`
	IsSuperUser *bool  `json:"isSuperUser" binding:"required"`
}

// SetSuperUser grants or revokes the super-user flag. Admin only.
func (s *Service) SetSuperUser(ctx context.Context, actor *types.Actor, userID string, flag bool) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.store.SetSuperUser(ctx, userID, flag); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	logctx.FromCtx(ctx, s.log).Infof("super user flag changed, user_id=%s, is_super_user=%t, by=%s", userID, flag, actor.UserID)
	return nil
}

func (s *Service) ListSuperUsers(ctx context.Context, actor *types.Actor) ([]*models.Profile, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.store.ListSuperUsers(ctx)
}

var Module = fx.Options(
	fx.Provide(NewService),
)
