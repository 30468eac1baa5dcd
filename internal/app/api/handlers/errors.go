package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/letterdesk/internal/app/service/coupon"
	"github.com/fatflowers/letterdesk/internal/app/service/credit"
	"github.com/fatflowers/letterdesk/internal/app/service/letter"
	"github.com/fatflowers/letterdesk/internal/app/service/profile"
	"github.com/fatflowers/letterdesk/internal/app/service/statistics"
	"github.com/fatflowers/letterdesk/pkg/logctx"
	"github.com/fatflowers/letterdesk/pkg/response"
)

// NeedsSubscription is the error payload of an entitlement failure.
type NeedsSubscription struct {
	Error             string `json:"error"`
	NeedsSubscription bool   `json:"needsSubscription"`
}

// writeError maps service errors to an HTTP status and envelope code.
// Unrecognised errors are logged and answered with a generic 500.
func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, credit.ErrNoCredit):
		c.JSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeNeedsSubscription, &NeedsSubscription{
			Error:             err.Error(),
			NeedsSubscription: true,
		}))
	case errors.Is(err, letter.ErrForbidden), errors.Is(err, profile.ErrForbidden):
		c.JSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, err.Error()))
	case errors.Is(err, letter.ErrValidation),
		errors.Is(err, letter.ErrInvalidStatus),
		errors.Is(err, coupon.ErrUnknownPlan),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, statistics.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
	case errors.Is(err, letter.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
	case errors.Is(err, letter.ErrReviewerConflict),
		errors.Is(err, letter.ErrStatusConflict),
		errors.Is(err, coupon.ErrDuplicateCode):
		c.JSON(http.StatusConflict, response.ErrorT[any](response.APIResponseCodeConflict, err.Error()))
	case errors.Is(err, letter.ErrGenerationFailed):
		logctx.FromGin(c, log).Warnf("generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, letter.ErrGenerationFailed.Error()))
	default:
		logctx.FromGin(c, log).Errorf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, nil))
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, msg))
}
