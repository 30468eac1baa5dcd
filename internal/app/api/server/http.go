package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/letterdesk/docs"
	"github.com/fatflowers/letterdesk/internal/app/api/handlers"
	mw "github.com/fatflowers/letterdesk/internal/app/api/middleware"
	"github.com/fatflowers/letterdesk/internal/app/service/coupon"
	"github.com/fatflowers/letterdesk/internal/app/service/credit"
	"github.com/fatflowers/letterdesk/internal/app/service/letter"
	"github.com/fatflowers/letterdesk/internal/app/service/profile"
	"github.com/fatflowers/letterdesk/internal/app/service/statistics"
	cfgpkg "github.com/fatflowers/letterdesk/pkg/config"
	"github.com/fatflowers/letterdesk/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func newGenerateLimiter(cfg *cfgpkg.Config, log *zap.SugaredLogger) *mw.RateLimiter {
	return mw.NewRateLimiter(cfg.RateLimit.GeneratePerMinute, cfg.RateLimit.Burst, log)
}

type routeParams struct {
	fx.In

	Log        *zap.SugaredLogger
	Cfg        *cfgpkg.Config
	Auth       *mw.Auth
	Limiter    *mw.RateLimiter
	Letters    *letter.Service
	Ledger     *credit.Ledger
	Engine     *coupon.Engine
	Checkout   *coupon.CheckoutService
	Profiles   *profile.Service
	Statistics *statistics.Service
}

func registerRoutes(r *gin.Engine, p routeParams) {
	log := p.Log
	if p.Cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		prom.SetListenAddress(p.Cfg.MetricsAddr)
		prom.Use(r)

		log.Infow("metrics started", "addr", p.Cfg.MetricsAddr)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterHealthRoutes(pub)
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	pub.GET("/api/v1/plans", handlers.ApiListPlans(p.Cfg))

	// Authenticated group
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log), p.Auth.Handler())

	handlers.RegisterLetterRoutes(apiV1, p.Letters, log, p.Limiter.Handler())
	handlers.RegisterBillingRoutes(apiV1, p.Ledger, p.Checkout, log)
	handlers.RegisterUserRoutes(apiV1, p.Engine, log)
	handlers.RegisterAdminRoutes(apiV1, p.Profiles, p.Engine, p.Statistics, log)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	// WriteTimeout must outlast a drafting call.
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second, WriteTimeout: cfg.Drafting.Timeout + 30*time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Provide(newGenerateLimiter),
	fx.Provide(mw.NewAuth),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
