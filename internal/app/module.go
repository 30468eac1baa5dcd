package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/letterdesk/internal/app/api/server"
	"github.com/fatflowers/letterdesk/internal/app/service/audit"
	"github.com/fatflowers/letterdesk/internal/app/service/coupon"
	"github.com/fatflowers/letterdesk/internal/app/service/credit"
	"github.com/fatflowers/letterdesk/internal/app/service/drafting"
	"github.com/fatflowers/letterdesk/internal/app/service/letter"
	"github.com/fatflowers/letterdesk/internal/app/service/profile"
	"github.com/fatflowers/letterdesk/internal/app/service/statistics"
	"github.com/fatflowers/letterdesk/internal/platform/db"
	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/pkg/config"
	"github.com/fatflowers/letterdesk/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	repository.Module,
	server.Module,
	audit.Module,
	credit.Module,
	coupon.Module,
	drafting.Module,
	letter.Module,
	profile.Module,
	statistics.Module,
)
