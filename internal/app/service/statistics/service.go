package statistics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/pkg/types"
)

type StatisticType string

const (
	// Letters
	StatisticTypeDailyLetterCount   StatisticType = "daily_letter_count"
	StatisticTypeLetterStatusCount  StatisticType = "letter_status_count"
	StatisticTypeDailyFailedLetters StatisticType = "daily_failed_letter_count"

	// Checkout and subscriptions
	StatisticTypeDailyCheckoutCount      StatisticType = "daily_checkout_count"
	StatisticTypeDailyRevenue            StatisticType = "daily_revenue"
	StatisticTypeActiveSubscriptionCount StatisticType = "active_subscription_count"

	// Coupons
	StatisticTypeCommissionByEmployee StatisticType = "commission_by_employee"
	StatisticTypeCouponUsageCount     StatisticType = "coupon_usage_count"
)

// FilterType names filters that only make sense for some statistics.
type FilterType string

const (
	FilterTypeLetterType  FilterType = "letter_type"
	FilterTypeIsFreeTrial FilterType = "is_free_trial"
	FilterTypeEmployeeID  FilterType = "employee_id"
	FilterTypePlan        FilterType = "plan"
)

var filterTypes = []FilterType{
	FilterTypeLetterType,
	FilterTypeIsFreeTrial,
	FilterTypeEmployeeID,
	FilterTypePlan,
}

var validFilters = map[FilterType][]StatisticType{
	FilterTypeLetterType:  {StatisticTypeDailyLetterCount, StatisticTypeLetterStatusCount, StatisticTypeDailyFailedLetters},
	FilterTypeIsFreeTrial: {StatisticTypeDailyLetterCount, StatisticTypeLetterStatusCount},
	FilterTypeEmployeeID:  {StatisticTypeCommissionByEmployee, StatisticTypeCouponUsageCount},
	FilterTypePlan:        {StatisticTypeDailyCheckoutCount, StatisticTypeDailyRevenue, StatisticTypeActiveSubscriptionCount},
}

var ErrInvalidRequest = errors.New("invalid statistics request")

var statisticTypes = []StatisticType{
	StatisticTypeDailyLetterCount,
	StatisticTypeLetterStatusCount,
	StatisticTypeDailyFailedLetters,
	StatisticTypeDailyCheckoutCount,
	StatisticTypeDailyRevenue,
	StatisticTypeActiveSubscriptionCount,
	StatisticTypeCommissionByEmployee,
	StatisticTypeCouponUsageCount,
}

type DataItem struct {
	ID StatisticType `json:"id"`
}

type Request struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*DataItem           `json:"data_items"`
}

// Validate checks every data item id and filter before any query runs.
func (r *Request) Validate() error {
	if len(r.DataItems) == 0 {
		return fmt.Errorf("%w: data_items is required", ErrInvalidRequest)
	}
	for _, di := range r.DataItems {
		if di == nil || !lo.Contains(statisticTypes, di.ID) {
			return fmt.Errorf("%w: unknown data item", ErrInvalidRequest)
		}
	}
	for _, f := range r.Filters {
		if f == nil {
			return fmt.Errorf("%w: empty filter", ErrInvalidRequest)
		}
		if err := f.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	return nil
}

// GetFilters keeps the filters that apply to statisticType. Filters on
// plain columns, such as a created_at date range, always apply.
func (r *Request) GetFilters(statisticType StatisticType) *Request {
	if r == nil || len(r.Filters) == 0 {
		return &Request{}
	}
	var result Request
	for _, filter := range r.Filters {
		if statisticTypes, ok := validFilters[FilterType(filter.Field)]; ok {
			if lo.Contains(statisticTypes, statisticType) {
				result.Filters = append(result.Filters, filter)
			}
		} else {
			result.Filters = append(result.Filters, filter)
		}
	}
	return &result
}

// Build composes a WHERE clause from the filters, with custom handling for
// boolean filter fields.
func (r *Request) Build(builder clause.Builder) {
	if len(r.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range r.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		switch filter.Field {
		case string(FilterTypeIsFreeTrial):
			if len(filter.Values) > 0 && fmt.Sprint(filter.Values[0]) == "true" {
				builder.WriteString("is_free_trial = true")
			} else {
				builder.WriteString("is_free_trial = false")
			}
		default:
			filter.Build(builder)
		}
	}
}

func (r *Request) where(statisticType StatisticType) clause.Where {
	return clause.Where{Exprs: []clause.Expression{r.GetFilters(statisticType)}}
}

type ResponseDataItem struct {
	Date   string `json:"date,omitempty"`
	Label  string `json:"label,omitempty"`
	Value  int64  `json:"value"`
	Value2 int64  `json:"value2,omitempty"`
}

type Response struct {
	DataItems map[StatisticType][]ResponseDataItem `json:"data_items"`
}

// Service computes the admin dashboard figures.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

const dayExpr = "TO_CHAR(created_at, 'YYYY-MM-DD')"

func (s *Service) getDailyLetterCount(ctx context.Context, request *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	q := s.db.WithContext(ctx).Table(models.Letter{}.TableName()).
		Select(dayExpr + " as date, count(*) as value").
		Where(request.where(StatisticTypeDailyLetterCount)).
		Group(dayExpr).
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// getLetterStatusCount folds the legacy completed label into approved.
func (s *Service) getLetterStatusCount(ctx context.Context, request *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	statusExpr := fmt.Sprintf("CASE WHEN status = '%s' THEN '%s' ELSE status END", types.LetterStatusCompleted, types.LetterStatusApproved)
	q := s.db.WithContext(ctx).Table(models.Letter{}.TableName()).
		Select(statusExpr + " as label, count(*) as value").
		Where(request.where(StatisticTypeLetterStatusCount)).
		Group(statusExpr).
		Order("label")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyFailedLetters(ctx context.Context, request *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	q := s.db.WithContext(ctx).Table(models.Letter{}.TableName()).
		Select(dayExpr+" as date, count(*) as value").
		Where("status = ?", types.LetterStatusFailed).
		Where(request.where(StatisticTypeDailyFailedLetters)).
		Group(dayExpr).
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyCheckoutCount(ctx context.Context, request *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	q := s.db.WithContext(ctx).Table(models.Subscription{}.TableName()).
		Select(dayExpr + " as date, plan as label, count(*) as value").
		Where(request.where(StatisticTypeDailyCheckoutCount)).
		Group(dayExpr).
		Group("plan").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// getDailyRevenue reports the amount paid (value) and the discount granted
// (value2) per day, in cents.
func (s *Service) getDailyRevenue(ctx context.Context, request *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	q := s.db.WithContext(ctx).Table(models.Subscription{}.TableName()).
		Select(dayExpr + " as date, sum(price) as value, sum(discount) as value2").
		Where(request.where(StatisticTypeDailyRevenue)).
		Group(dayExpr).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getActiveSubscriptionCount(ctx context.Context, request *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	q := s.db.WithContext(ctx).Table(models.Subscription{}.TableName()).
		Select("count(*) as value, coalesce(sum(credits_remaining), 0) as value2").
		Where(request.where(StatisticTypeActiveSubscriptionCount)).
		Where("status = ?", types.SubscriptionStatusActive).
		Where("current_period_end >= ?", time.Now())
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getCommissionByEmployee(ctx context.Context, request *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	q := s.db.WithContext(ctx).Table(models.Commission{}.TableName()).
		Select("employee_id as label, sum(commission_amount) as value, count(*) as value2").
		Where(request.where(StatisticTypeCommissionByEmployee)).
		Group("employee_id").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "value"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getCouponUsageCount(ctx context.Context, request *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	q := s.db.WithContext(ctx).Table(models.CouponUsage{}.TableName()).
		Select("coupon_code as label, count(*) as value, sum(amount_before - amount_after) as value2").
		Where(request.where(StatisticTypeCouponUsageCount)).
		Group("coupon_code").
		Order("label")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getStatistic(ctx context.Context, request *Request, dataItem *DataItem) ([]ResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyLetterCount:
		return s.getDailyLetterCount(ctx, request)
	case StatisticTypeLetterStatusCount:
		return s.getLetterStatusCount(ctx, request)
	case StatisticTypeDailyFailedLetters:
		return s.getDailyFailedLetters(ctx, request)
	case StatisticTypeDailyCheckoutCount:
		return s.getDailyCheckoutCount(ctx, request)
	case StatisticTypeDailyRevenue:
		return s.getDailyRevenue(ctx, request)
	case StatisticTypeActiveSubscriptionCount:
		return s.getActiveSubscriptionCount(ctx, request)
	case StatisticTypeCommissionByEmployee:
		return s.getCommissionByEmployee(ctx, request)
	case StatisticTypeCouponUsageCount:
		return s.getCouponUsageCount(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// GetStatistic computes every requested data item concurrently. A data item
// that a supplied filter does not apply to yields an empty series.
func (s *Service) GetStatistic(ctx context.Context, request *Request) (*Response, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []ResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *DataItem) {
			defer wg.Done()
			for _, filter := range request.Filters {
				ft := FilterType(filter.Field)
				if lo.Contains(filterTypes, ft) && !lo.Contains(validFilters[ft], di.ID) {
					resChan <- &lo.Entry[StatisticType, []ResponseDataItem]{Key: di.ID, Value: nil}
					return
				}
			}
			res, err := s.getStatistic(ctx, request, di)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, []ResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]ResponseDataItem)
	for i := 0; i < len(request.DataItems); i++ {
		select {
		case err := <-errChan:
			if err != nil {
				return nil, err
			}
		case entry := <-resChan:
			if entry != nil {
				results[entry.Key] = entry.Value
			}
		}
	}
	return &Response{DataItems: results}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
