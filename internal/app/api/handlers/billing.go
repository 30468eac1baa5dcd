package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/letterdesk/internal/app/api/middleware"
	"github.com/fatflowers/letterdesk/internal/app/service/coupon"
	"github.com/fatflowers/letterdesk/internal/app/service/credit"
	"github.com/fatflowers/letterdesk/pkg/config"
	"github.com/fatflowers/letterdesk/pkg/response"
	"github.com/fatflowers/letterdesk/pkg/types"
)

// @Summary      List plans
// @Description  Returns the purchasable letter bundles. Prices are in cents.
// @Tags         Billing
// @Produce      json
// @Success      200  {object}  handlers.RespPlans
// @Router       /api/v1/plans [get]
func ApiListPlans(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans := cfg.Plans
		if plans == nil {
			plans = []*types.Plan{}
		}
		c.JSON(http.StatusOK, response.OKT(plans))
	}
}

// @Summary      Credit balance
// @Description  Returns the caller's active plan, remaining credits and free trial eligibility.
// @Tags         Billing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespBalance
// @Router       /api/v1/credits [get]
func ApiGetBalance(ledger *credit.Ledger, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := ledger.Balance(c.Request.Context(), mw.ActorFrom(c))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(b))
	}
}

type CheckoutRequest struct {
	PlanType   string `json:"planType" binding:"required"`
	CouponCode string `json:"couponCode"`
}

// @Summary      Checkout
// @Description  Buys a plan, optionally with a coupon code. The new subscription replaces any active one.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body handlers.CheckoutRequest true "Plan and optional coupon"
// @Success      200  {object}  handlers.RespCheckout
// @Failure      400  {object}  handlers.RespError
// @Router       /api/v1/checkout [post]
func ApiCheckout(svc *coupon.CheckoutService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.Checkout(c.Request.Context(), mw.ActorFrom(c).UserID, req.PlanType, req.CouponCode)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterBillingRoutes(r gin.IRouter, ledger *credit.Ledger, checkout *coupon.CheckoutService, log *zap.SugaredLogger) {
	r.GET("/credits", ApiGetBalance(ledger, log))
	r.POST("/checkout", mw.RequireRole(types.RoleSubscriber), ApiCheckout(checkout, log))
}
