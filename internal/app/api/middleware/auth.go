package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"

	"github.com/fatflowers/letterdesk/internal/app/service/profile"
	"github.com/fatflowers/letterdesk/pkg/config"
	"github.com/fatflowers/letterdesk/pkg/logctx"
	"github.com/fatflowers/letterdesk/pkg/response"
	"github.com/fatflowers/letterdesk/pkg/types"
)

const actorKey = "actor"

var errInvalidToken = errors.New("invalid or expired token")

// Claims is the bearer token payload issued by the identity provider.
type Claims struct {
	Email    string `json:"email,omitempty"`
	FullName string `json:"name,omitempty"`
	jwt.StandardClaims
}

type Auth struct {
	cfg      config.AuthConfig
	profiles *profile.Service
	log      *zap.SugaredLogger
}

func NewAuth(cfg *config.Config, profiles *profile.Service, log *zap.SugaredLogger) *Auth {
	return &Auth{cfg: cfg.Auth, profiles: profiles, log: log}
}

func extractToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func (a *Auth) parse(raw string) (*Claims, error) {
	if a.cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: signing secret not configured", errInvalidToken)
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", errInvalidToken)
	}
	if a.cfg.Issuer != "" && !claims.VerifyIssuer(a.cfg.Issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", errInvalidToken)
	}
	return claims, nil
}

// Handler authenticates the bearer token and stores the caller's actor on
// the context. Requests without a valid token stop here with 401.
func (a *Auth) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing authorization token"))
			return
		}
		claims, err := a.parse(raw)
		if err != nil {
			logctx.FromGin(c, a.log).Infof("rejected bearer token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, errInvalidToken.Error()))
			return
		}

		logctx.WithUserID(c, a.log, claims.Subject)
		p, err := a.profiles.Resolve(c.Request.Context(), &profile.Identity{Subject: claims.Subject, Email: claims.Email, FullName: claims.FullName})
		if err != nil {
			logctx.FromGin(c, a.log).Errorf("failed to resolve profile: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		c.Set(actorKey, p.Actor())
		c.Next()
	}
}

// RequireRole must run after Handler.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor == nil || !slices.Contains(roles, actor.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, "insufficient permissions"))
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated caller, or nil outside Handler.
func ActorFrom(c *gin.Context) *types.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(*types.Actor); ok {
			return actor
		}
	}
	return nil
}

// SetActor stores actor on c. Handler tests use it to skip token parsing.
func SetActor(c *gin.Context, actor *types.Actor) {
	c.Set(actorKey, actor)
}
