package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mw "github.com/fatflowers/letterdesk/internal/app/api/middleware"
	"github.com/fatflowers/letterdesk/internal/app/service/audit"
	"github.com/fatflowers/letterdesk/internal/app/service/coupon"
	"github.com/fatflowers/letterdesk/internal/app/service/credit"
	"github.com/fatflowers/letterdesk/internal/app/service/letter"
	"github.com/fatflowers/letterdesk/internal/app/service/profile"
	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/testutil/memstore"
	"github.com/fatflowers/letterdesk/pkg/config"
	"github.com/fatflowers/letterdesk/pkg/response"
	"github.com/fatflowers/letterdesk/pkg/types"
)

type stubDrafter struct {
	err error
}

func (s *stubDrafter) Generate(context.Context, types.LetterType, *models.IntakeData) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "Dear Acme LLC,\n\nPlease pay the outstanding invoice.", nil
}

func (s *stubDrafter) Improve(_ context.Context, content, instruction string) (string, error) {
	return content + " [" + instruction + "]", nil
}

type testEnv struct {
	router   *gin.Engine
	letters  *memstore.Letters
	subs     *memstore.Subscriptions
	coupons  *memstore.Coupons
	profiles *memstore.Profiles
	drafter  *stubDrafter
}

var (
	subscriber = &types.Actor{UserID: "user-1", Role: types.RoleSubscriber}
	admin      = &types.Actor{UserID: "admin-1", Role: types.RoleAdmin}
	employee   = &types.Actor{UserID: "emp-1", Role: types.RoleEmployee}
)

// actorHeader selects the caller in tests in place of a bearer token.
const actorHeader = "X-Test-Actor"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()

	cfg := &config.Config{
		Drafting: config.DraftingConfig{Timeout: time.Second},
		Coupon:   config.CouponConfig{SuperUserCodes: []string{"TALK3"}, CommissionRateBps: 500},
		Plans:    config.DefaultPlans(),
	}
	env := &testEnv{
		letters:  memstore.NewLetters(),
		subs:     memstore.NewSubscriptions(),
		coupons:  memstore.NewCoupons(),
		profiles: memstore.NewProfiles(&models.Profile{ID: subscriber.UserID, Role: types.RoleSubscriber}),
		drafter:  &stubDrafter{},
	}
	ledger := credit.NewLedger(env.letters, env.subs, log)
	letterSvc := letter.NewService(cfg, env.letters, ledger, env.drafter, audit.New(memstore.NewAudits(), log), log)
	engine := coupon.NewEngine(cfg, env.coupons, log)
	checkout := coupon.NewCheckoutService(engine, env.subs, env.profiles)
	profileSvc := profile.NewService(env.profiles, log)

	actors := map[string]*types.Actor{
		subscriber.UserID: subscriber,
		admin.UserID:      admin,
		employee.UserID:   employee,
	}
	r := gin.New()
	RegisterHealthRoutes(r)
	api := r.Group("/api/v1")
	api.GET("/plans", ApiListPlans(cfg))
	authed := api.Group("", func(c *gin.Context) {
		actor, ok := actors[c.GetHeader(actorHeader)]
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		mw.SetActor(c, actor)
		c.Next()
	})
	RegisterLetterRoutes(authed, letterSvc, log, nil)
	RegisterBillingRoutes(authed, ledger, checkout, log)
	RegisterUserRoutes(authed, engine, log)
	RegisterAdminRoutes(authed, profileSvc, engine, nil, log)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, actor *types.Actor, method, path string, body any) (*httptest.ResponseRecorder, *response.APIResponse[json.RawMessage]) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set(actorHeader, actor.UserID)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env response.APIResponse[json.RawMessage]
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, &env
}

func generateBody() map[string]any {
	return map[string]any{
		"letterType": "demand_letter",
		"intakeData": map[string]any{
			"senderName":       "Ana Ruiz",
			"senderAddress":    "1 Main St",
			"recipientName":    "Acme LLC",
			"recipientAddress": "2 Side St",
			"issueDescription": "Unpaid invoice",
			"desiredOutcome":   "Payment within 14 days",
			"amountDemanded":   "1200",
		},
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	w, body := env.do(t, nil, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, response.APIResponseCodeOK, body.Code)
}

func TestGenerate_TrialThenNeedsSubscription(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, subscriber, http.MethodPost, "/api/v1/letters/generate", generateBody())
	require.Equal(t, http.StatusOK, w.Code)
	var l models.Letter
	require.NoError(t, json.Unmarshal(body.Data, &l))
	assert.Equal(t, types.LetterStatusPendingReview, l.Status)
	assert.True(t, l.IsFreeTrial)

	w, body = env.do(t, subscriber, http.MethodPost, "/api/v1/letters/generate", generateBody())
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, response.APIResponseCodeNeedsSubscription, body.Code)
	var ns NeedsSubscription
	require.NoError(t, json.Unmarshal(body.Data, &ns))
	assert.True(t, ns.NeedsSubscription)
	assert.Len(t, env.letters.All(), 1)
}

func TestGenerate_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, subscriber, http.MethodPost, "/api/v1/letters/generate", map[string]any{"letterType": "demand_letter"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, response.APIResponseCodeBadRequest, body.Code)

	w, _ = env.do(t, employee, http.MethodPost, "/api/v1/letters/generate", generateBody())
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, env.letters.All())
}

func TestGenerate_DraftingFailureIsGeneric500(t *testing.T) {
	env := newTestEnv(t)
	env.drafter.err = errors.New("upstream said: quota exceeded for key abc")

	w, body := env.do(t, subscriber, http.MethodPost, "/api/v1/letters/generate", generateBody())
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "quota")
	assert.Equal(t, response.APIResponseCodeError, body.Code)

	rows := env.letters.All()
	require.Len(t, rows, 1)
	assert.Equal(t, types.LetterStatusFailed, rows[0].Status)
}

func TestReviewFlow(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, subscriber, http.MethodPost, "/api/v1/letters/generate", generateBody())
	var l models.Letter
	require.NoError(t, json.Unmarshal(body.Data, &l))
	base := "/api/v1/letters/" + l.ID

	w, _ := env.do(t, subscriber, http.MethodPost, base+"/start-review", nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, body = env.do(t, admin, http.MethodPost, base+"/start-review", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(body.Data, &l))
	assert.Equal(t, types.LetterStatusUnderReview, l.Status)

	w, body = env.do(t, admin, http.MethodPost, base+"/improve", map[string]string{"content": "Pay now.", "instruction": "be polite"})
	require.Equal(t, http.StatusOK, w.Code)
	var improved ImproveLetterResponse
	require.NoError(t, json.Unmarshal(body.Data, &improved))
	assert.Equal(t, "Pay now. [be polite]", improved.ImprovedContent)

	w, _ = env.do(t, admin, http.MethodPost, base+"/approve", map[string]string{"finalContent": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.do(t, admin, http.MethodPost, base+"/approve", map[string]string{"finalContent": "Final text"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(body.Data, &l))
	assert.Equal(t, types.LetterStatusApproved, l.Status)

	w, body = env.do(t, admin, http.MethodPost, base+"/reject", map[string]string{"rejectionReason": "late"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.APIResponseCodeBadRequest, body.Code)

	w, body = env.do(t, admin, http.MethodGet, base+"/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trail []models.LetterAuditLog
	require.NoError(t, json.Unmarshal(body.Data, &trail))
	assert.Len(t, trail, 4)

	w, body = env.do(t, subscriber, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(body.Data, &l))
	require.NotNil(t, l.FinalContent)
	assert.Equal(t, "Final text", *l.FinalContent)
}

func TestGetLetter_OtherUsersLetterIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	draft := "draft"
	require.NoError(t, env.letters.Create(context.Background(), &models.Letter{
		ID: "l-other", UserID: "someone-else", LetterType: types.LetterTypeDemand,
		Status: types.LetterStatusPendingReview, AIDraftContent: &draft,
	}))

	w, body := env.do(t, subscriber, http.MethodGet, "/api/v1/letters/l-other", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.APIResponseCodeNotFound, body.Code)

	w, _ = env.do(t, admin, http.MethodGet, "/api/v1/letters/l-other", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListLetters(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, subscriber, http.MethodPost, "/api/v1/letters/generate", generateBody())

	w, body := env.do(t, subscriber, http.MethodGet, "/api/v1/letters?status=pending_review", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res SwaggerLetterList
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.EqualValues(t, 1, res.Total)

	w, body = env.do(t, subscriber, http.MethodGet, "/api/v1/letters?status=approved", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.EqualValues(t, 0, res.Total)
}

func TestCheckoutAndBalance(t *testing.T) {
	env := newTestEnv(t)
	empID := employee.UserID
	w, _ := env.do(t, admin, http.MethodPost, "/api/v1/admin/coupons", map[string]any{"code": "emp10", "discount_percent": 20, "employee_id": empID})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := env.do(t, subscriber, http.MethodPost, "/api/v1/checkout", map[string]string{"planType": "standard_4_month", "couponCode": "EMP10"})
	require.Equal(t, http.StatusOK, w.Code)
	var res SwaggerCheckout
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.EqualValues(t, 23920, res.Subscription.Price)
	assert.EqualValues(t, 1196, res.CommissionAmount)

	w, body = env.do(t, subscriber, http.MethodGet, "/api/v1/credits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bal credit.Balance
	require.NoError(t, json.Unmarshal(body.Data, &bal))
	assert.Equal(t, 4, bal.CreditsRemaining)
	assert.True(t, bal.HasSubscription)

	w, body = env.do(t, employee, http.MethodGet, "/api/v1/employee/commissions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var commissions []models.Commission
	require.NoError(t, json.Unmarshal(body.Data, &commissions))
	require.Len(t, commissions, 1)
	assert.EqualValues(t, 1196, commissions[0].CommissionAmount)

	w, _ = env.do(t, subscriber, http.MethodPost, "/api/v1/checkout", map[string]string{"planType": "gold"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, admin, http.MethodPost, "/api/v1/admin/coupons", map[string]any{"code": "EMP10", "discount_percent": 5})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminSuperUsers(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, subscriber, http.MethodGet, "/api/v1/admin/super-users", nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = env.do(t, admin, http.MethodPost, "/api/v1/admin/super-users", map[string]any{"userId": subscriber.UserID})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, admin, http.MethodPost, "/api/v1/admin/super-users", map[string]any{"userId": "ghost", "isSuperUser": true})
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, admin, http.MethodPost, "/api/v1/admin/super-users", map[string]any{"userId": subscriber.UserID, "isSuperUser": true})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := env.do(t, admin, http.MethodGet, "/api/v1/admin/super-users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []models.Profile
	require.NoError(t, json.Unmarshal(body.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, subscriber.UserID, rows[0].ID)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	w, body := env.do(t, employee, http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me MeResponse
	require.NoError(t, json.Unmarshal(body.Data, &me))
	assert.Equal(t, "/dashboard/commissions", me.LandingPage)
	assert.Equal(t, types.RoleEmployee, me.Role)
}

func TestListPlans(t *testing.T) {
	env := newTestEnv(t)
	w, body := env.do(t, nil, http.MethodGet, "/api/v1/plans", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var plans []types.Plan
	require.NoError(t, json.Unmarshal(body.Data, &plans))
	assert.Len(t, plans, 3)
}
