package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/letterdesk/internal/app/api/middleware"
	"github.com/fatflowers/letterdesk/internal/app/service/coupon"
	"github.com/fatflowers/letterdesk/internal/app/service/profile"
	"github.com/fatflowers/letterdesk/pkg/response"
	"github.com/fatflowers/letterdesk/pkg/types"
)

type MeResponse struct {
	*types.Actor
	LandingPage string `json:"landing_page"`
}

// @Summary      Current user
// @Description  Returns the caller's role, super-user flag and dashboard landing page.
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespMe
// @Router       /api/v1/me [get]
func ApiGetMe(c *gin.Context) {
	actor := mw.ActorFrom(c)
	c.JSON(http.StatusOK, response.OKT(&MeResponse{Actor: actor, LandingPage: profile.LandingPage(actor.Role)}))
}

// @Summary      My commissions (Employee)
// @Tags         Employee
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespCommissions
// @Router       /api/v1/employee/commissions [get]
func ApiMyCommissions(engine *coupon.Engine, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := engine.ListCommissions(c.Request.Context(), mw.ActorFrom(c).UserID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      My coupons (Employee)
// @Tags         Employee
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespCoupons
// @Router       /api/v1/employee/coupons [get]
func ApiMyCoupons(engine *coupon.Engine, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := engine.ListCoupons(c.Request.Context(), mw.ActorFrom(c).UserID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

func RegisterUserRoutes(r gin.IRouter, engine *coupon.Engine, log *zap.SugaredLogger) {
	r.GET("/me", ApiGetMe)
	emp := r.Group("/employee", mw.RequireRole(types.RoleEmployee))
	emp.GET("/commissions", ApiMyCommissions(engine, log))
	emp.GET("/coupons", ApiMyCoupons(engine, log))
}
