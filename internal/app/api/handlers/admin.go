package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/letterdesk/internal/app/api/middleware"
	"github.com/fatflowers/letterdesk/internal/app/service/coupon"
	"github.com/fatflowers/letterdesk/internal/app/service/profile"
	"github.com/fatflowers/letterdesk/internal/app/service/statistics"
	"github.com/fatflowers/letterdesk/pkg/response"
	"github.com/fatflowers/letterdesk/pkg/types"
)

// @Summary      List super-users (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespProfiles
// @Router       /api/v1/admin/super-users [get]
func ApiListSuperUsers(svc *profile.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.ListSuperUsers(c.Request.Context(), mw.ActorFrom(c))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Grant or revoke super-user (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body profile.SetSuperUserRequest true "Target user and flag"
// @Success      200  {object}  handlers.RespOK
// @Failure      404  {object}  handlers.RespError
// @Router       /api/v1/admin/super-users [post]
func ApiSetSuperUser(svc *profile.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req profile.SetSuperUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svc.SetSuperUser(c.Request.Context(), mw.ActorFrom(c), req.UserID, *req.IsSuperUser); err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Create coupon (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body coupon.CreateCouponRequest true "Coupon"
// @Success      200  {object}  handlers.RespCoupon
// @Failure      400  {object}  handlers.RespError
// @Failure      409  {object}  handlers.RespError
// @Router       /api/v1/admin/coupons [post]
func ApiCreateCoupon(engine *coupon.Engine, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req coupon.CreateCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		cp, err := engine.CreateCoupon(c.Request.Context(), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(cp))
	}
}

// @Summary      List coupons (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        employee_id query string false "Only coupons owned by this employee"
// @Success      200  {object}  handlers.RespCoupons
// @Router       /api/v1/admin/coupons [get]
func ApiListCoupons(engine *coupon.Engine, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := engine.ListCoupons(c.Request.Context(), c.Query("employee_id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      List commissions (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        employee_id query string false "Only commissions of this employee"
// @Success      200  {object}  handlers.RespCommissions
// @Router       /api/v1/admin/commissions [get]
func ApiListCommissions(engine *coupon.Engine, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := engine.ListCommissions(c.Request.Context(), c.Query("employee_id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Dashboard statistics (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.Request true "Data items and filters"
// @Success      200  {object}  handlers.RespStatistics
// @Failure      400  {object}  handlers.RespError
// @Router       /api/v1/admin/statistics [post]
func ApiGetStatistics(svc *statistics.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.GetStatistic(c.Request.Context(), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// RegisterAdminRoutes mounts the admin routes. statSvc may be nil when no
// database is configured.
func RegisterAdminRoutes(r gin.IRouter, profiles *profile.Service, engine *coupon.Engine, statSvc *statistics.Service, log *zap.SugaredLogger) {
	g := r.Group("/admin", mw.RequireRole(types.RoleAdmin))
	g.GET("/super-users", ApiListSuperUsers(profiles, log))
	g.POST("/super-users", ApiSetSuperUser(profiles, log))
	g.POST("/coupons", ApiCreateCoupon(engine, log))
	g.GET("/coupons", ApiListCoupons(engine, log))
	g.GET("/commissions", ApiListCommissions(engine, log))
	if statSvc != nil {
		g.POST("/statistics", ApiGetStatistics(statSvc, log))
	}
}
