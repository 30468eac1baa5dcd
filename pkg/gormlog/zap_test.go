package gormlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func TestShortCaller(t *testing.T) {
	cases := map[string]string{
		"": "",
		"/home/dev/repo/internal/repository/letter.go:88": "internal/repository/letter.go:88",
		"/go/pkg/mod/gorm.io/gorm@v1/finisher_api.go:12":  "pkg/mod/gorm.io/gorm@v1/finisher_api.go:12",
		"/opt/build/app/main.go:7":                        "build/app/main.go:7",
	}
	for in, want := range cases {
		assert.Equal(t, want, shortCaller(in), in)
	}
}

func TestNew_LevelFollowsVerbosity(t *testing.T) {
	base := zap.NewNop().Sugar()
	assert.Equal(t, gormlogger.Info, New(base, true).config.LogLevel)
	assert.Equal(t, gormlogger.Warn, New(base, false).config.LogLevel)

	quiet := New(base, true).LogMode(gormlogger.Silent).(*ZapLogger)
	assert.Equal(t, gormlogger.Silent, quiet.config.LogLevel)
}
