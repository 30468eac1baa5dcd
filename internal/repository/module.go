package repository

import "go.uber.org/fx"

// Module exposes the gorm-backed stores under their interfaces.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(NewLetterRepo, fx.As(new(LetterStore))),
		fx.Annotate(NewSubscriptionRepo, fx.As(new(SubscriptionStore))),
		fx.Annotate(NewProfileRepo, fx.As(new(ProfileStore))),
		fx.Annotate(NewCouponRepo, fx.As(new(CouponStore))),
		fx.Annotate(NewAuditRepo, fx.As(new(AuditStore))),
	),
)
