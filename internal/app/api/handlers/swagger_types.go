package handlers

import (
	"github.com/fatflowers/letterdesk/internal/app/service/credit"
	"github.com/fatflowers/letterdesk/internal/app/service/statistics"
	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/pkg/response"
	"github.com/fatflowers/letterdesk/pkg/types"
)

// The Resp* types document the response envelope for swag.

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespError struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    string                   `json:"data"`
}

type RespNeedsSubscription struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    NeedsSubscription        `json:"data"`
}

type RespLetter struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Letter            `json:"data"`
}

type SwaggerLetterList struct {
	Items []models.Letter `json:"items"`
	Total int64           `json:"total"`
}

type RespLetterList struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SwaggerLetterList        `json:"data"`
}

type RespImproveLetter struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ImproveLetterResponse    `json:"data"`
}

type RespAuditTrail struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.LetterAuditLog  `json:"data"`
}

type RespPlans struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []types.Plan             `json:"data"`
}

type RespBalance struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    credit.Balance           `json:"data"`
}

// SwaggerCheckout mirrors coupon.CheckoutResult.
type SwaggerCheckout struct {
	Subscription     models.Subscription `json:"subscription"`
	DiscountPercent  int                 `json:"discount_percent"`
	SuperUser        bool                `json:"is_super_user"`
	CommissionAmount int64               `json:"commission_amount,omitempty"`
}

type RespCheckout struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SwaggerCheckout          `json:"data"`
}

type RespMe struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    MeResponse               `json:"data"`
}

type RespProfiles struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Profile         `json:"data"`
}

type RespCoupon struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Coupon            `json:"data"`
}

type RespCoupons struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Coupon          `json:"data"`
}

type RespCommissions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Commission      `json:"data"`
}

type RespStatistics struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    statistics.Response      `json:"data"`
}
