package coupon

import "go.uber.org/fx"

// Module exposes the coupon engine and checkout via Fx.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Provide(NewCheckoutService),
)
