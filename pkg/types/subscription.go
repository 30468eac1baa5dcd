package types

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonPurchase   SubscriptionChangeReason = "purchase"
	SubscriptionChangeReasonSuperseded SubscriptionChangeReason = "superseded"
	SubscriptionChangeReasonConsume    SubscriptionChangeReason = "consume"
	SubscriptionChangeReasonRefund     SubscriptionChangeReason = "refund"
)

// Plan is a purchasable letter bundle. Prices are in minor units (cents).
type Plan struct {
	ID         string `json:"id" mapstructure:"id"`
	Name       string `json:"name" mapstructure:"name"`
	Price      int64  `json:"price" mapstructure:"price"`
	Letters    int    `json:"letters" mapstructure:"letters"`
	PeriodDays int    `json:"period_days" mapstructure:"period_days"`
}

type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
)
