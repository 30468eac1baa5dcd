package letter

import "go.uber.org/fx"

// Module exposes the letter lifecycle service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
