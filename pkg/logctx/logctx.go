package logctx

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	loggerKey  = "logger"
	traceIDKey = "traceID"
	userIDKey  = "user_id"
)

// FromGin returns a request-scoped logger from gin.Context if present,
// otherwise returns the provided base logger.
func FromGin(c *gin.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return base
	}
	if l, ok := c.Get(loggerKey); ok {
		if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
			return lg
		}
	}
	if c.Request == nil {
		return base
	}
	return FromCtx(c.Request.Context(), base)
}

// FromCtx returns a logger from context if set, otherwise attempts to enrich
// base with trace_id/user_id from context values.
func FromCtx(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if ctx == nil {
		return base
	}
	if lg, ok := ctx.Value(loggerKey).(*zap.SugaredLogger); ok && lg != nil {
		return lg
	}
	var fields []interface{}
	if tid, ok := ctx.Value(traceIDKey).(string); ok && tid != "" {
		fields = append(fields, "trace_id", tid)
	}
	if uid, ok := ctx.Value(userIDKey).(string); ok && uid != "" {
		fields = append(fields, "user_id", uid)
	}
	if len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}

// Attach stores lg as the request-scoped logger on both gin.Context and the
// request's context.Context.
func Attach(c *gin.Context, lg *zap.SugaredLogger) {
	c.Set(loggerKey, lg)
	ctx := context.WithValue(c.Request.Context(), loggerKey, lg)
	c.Request = c.Request.WithContext(ctx)
}

// WithUserID records the authenticated user on the request and rebinds the
// request logger so every later log line carries user_id.
func WithUserID(c *gin.Context, base *zap.SugaredLogger, userID string) {
	c.Set(userIDKey, userID)
	ctx := context.WithValue(c.Request.Context(), userIDKey, userID)
	c.Request = c.Request.WithContext(ctx)
	Attach(c, FromGin(c, base).With("user_id", userID))
}
