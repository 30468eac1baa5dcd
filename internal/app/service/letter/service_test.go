package letter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/letterdesk/internal/app/service/audit"
	"github.com/fatflowers/letterdesk/internal/app/service/credit"
	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/testutil/memstore"
	"github.com/fatflowers/letterdesk/pkg/config"
	"github.com/fatflowers/letterdesk/pkg/types"
)

type fakeDrafter struct {
	mu       sync.Mutex
	calls    int
	generate func(ctx context.Context) (string, error)
	improve  func(content, instruction string) (string, error)
}

func (f *fakeDrafter) Generate(ctx context.Context, _ types.LetterType, _ *models.IntakeData) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.generate == nil {
		return "Dear Sir or Madam,\n\nPlease pay.", nil
	}
	return f.generate(ctx)
}

func (f *fakeDrafter) Improve(_ context.Context, content, instruction string) (string, error) {
	if f.improve == nil {
		return content + " (" + instruction + ")", nil
	}
	return f.improve(content, instruction)
}

func (f *fakeDrafter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	svc     *Service
	letters *memstore.Letters
	subs    *memstore.Subscriptions
	audits  *memstore.Audits
	drafter *fakeDrafter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop().Sugar()
	letters := memstore.NewLetters()
	subs := memstore.NewSubscriptions()
	audits := memstore.NewAudits()
	drafter := &fakeDrafter{}
	cfg := &config.Config{Drafting: config.DraftingConfig{Timeout: time.Second}}
	svc := NewService(cfg, letters, credit.NewLedger(letters, subs, log), drafter, audit.New(audits, log), log)
	return &fixture{svc: svc, letters: letters, subs: subs, audits: audits, drafter: drafter}
}

var (
	subscriber = &types.Actor{UserID: "user-1", Role: types.RoleSubscriber}
	adminA     = &types.Actor{UserID: "admin-a", Role: types.RoleAdmin}
	adminB     = &types.Actor{UserID: "admin-b", Role: types.RoleAdmin}
)

func validRequest() *GenerateRequest {
	return &GenerateRequest{
		LetterType: types.LetterTypeDemand,
		IntakeData: &models.IntakeData{
			SenderName:       "Ana Ruiz",
			SenderAddress:    "1 Main St",
			RecipientName:    "Acme LLC",
			RecipientAddress: "2 Side St",
			IssueDescription: "Unpaid invoice",
			DesiredOutcome:   "Payment within 14 days",
		},
	}
}

// seedLetter stores a letter directly in the given state. Terminal rows carry
// the content their status requires.
func (f *fixture) seedLetter(t *testing.T, id string, status types.LetterStatus, reviewer *string) *models.Letter {
	t.Helper()
	draft := "draft"
	l := &models.Letter{ID: id, UserID: subscriber.UserID, LetterType: types.LetterTypeDemand, Status: status, AIDraftContent: &draft, ReviewedBy: reviewer}
	switch status.Canonical() {
	case types.LetterStatusApproved:
		l.FinalContent = strPtr("final")
	case types.LetterStatusRejected:
		l.RejectionReason = strPtr("rejected")
	}
	require.NoError(t, l.CheckContentInvariant())
	require.NoError(t, f.letters.Create(context.Background(), l))
	return l
}

func (f *fixture) giveCredits(userID string, n int) {
	f.subs.Put(&models.Subscription{ID: "sub-" + userID, UserID: userID, Plan: "standard_4_month", Status: types.SubscriptionStatusActive, CreditsRemaining: n})
}

func (f *fixture) auditActions(letterID string) []types.AuditAction {
	rows, _ := f.audits.ListByLetter(context.Background(), letterID)
	out := make([]types.AuditAction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Action)
	}
	return out
}

func requireContentInvariant(t *testing.T, f *fixture) {
	t.Helper()
	for _, l := range f.letters.All() {
		require.NoError(t, l.CheckContentInvariant())
	}
}

func strPtr(s string) *string { return &s }

func TestHappyPath_TrialGenerationThroughApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	eligible, err := f.svc.ledger.IsFreeTrialEligible(ctx, subscriber.UserID)
	require.NoError(t, err)
	require.True(t, eligible)

	l, err := f.svc.Generate(ctx, subscriber, validRequest())
	require.NoError(t, err)
	require.Equal(t, types.LetterStatusPendingReview, l.Status)
	require.True(t, l.IsFreeTrial)
	require.NotNil(t, l.AIDraftContent)
	require.Contains(t, l.Title, "Demand Letter - ")

	eligible, err = f.svc.ledger.IsFreeTrialEligible(ctx, subscriber.UserID)
	require.NoError(t, err)
	require.False(t, eligible)

	l, err = f.svc.StartReview(ctx, adminA, l.ID)
	require.NoError(t, err)
	require.Equal(t, types.LetterStatusUnderReview, l.Status)
	require.Equal(t, adminA.UserID, *l.ReviewedBy)

	l, err = f.svc.Approve(ctx, adminA, l.ID, &ApproveRequest{FinalContent: "Dear Sir..."})
	require.NoError(t, err)
	require.Equal(t, types.LetterStatusApproved, l.Status)
	require.Equal(t, "Dear Sir...", *l.FinalContent)
	require.NotNil(t, l.ApprovedAt)

	rows, err := f.audits.ListByLetter(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	want := []struct {
		action   types.AuditAction
		from, to types.LetterStatus
	}{
		{types.AuditActionCreated, "", types.LetterStatusGenerating},
		{types.AuditActionDrafted, types.LetterStatusGenerating, types.LetterStatusPendingReview},
		{types.AuditActionReviewStarted, types.LetterStatusPendingReview, types.LetterStatusUnderReview},
		{types.AuditActionApproved, types.LetterStatusUnderReview, types.LetterStatusApproved},
	}
	for i, w := range want {
		assert.Equal(t, w.action, rows[i].Action)
		assert.Equal(t, w.from, rows[i].OldStatus)
		assert.Equal(t, w.to, rows[i].NewStatus)
	}
	require.Equal(t, noteReviewStarted, rows[2].Notes)
	require.Equal(t, noteApproved, rows[3].Notes)
	requireContentInvariant(t, f)
}

func TestGenerate_NoCreditRejectedBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)
	f.seedLetter(t, "prior", types.LetterStatusApproved, nil)
	f.giveCredits(subscriber.UserID, 0)
	before := len(f.letters.All())

	_, err := f.svc.Generate(context.Background(), subscriber, validRequest())
	require.ErrorIs(t, err, ErrNoCredit)
	require.Len(t, f.letters.All(), before)
	require.Zero(t, f.drafter.Calls())
}

func TestGenerate_ValidationBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.IntakeData.RecipientAddress = " "
	_, err := f.svc.Generate(context.Background(), subscriber, req)
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "recipientAddress")

	req = validRequest()
	req.LetterType = "love_letter"
	_, err = f.svc.Generate(context.Background(), subscriber, req)
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Generate(context.Background(), subscriber, &GenerateRequest{LetterType: types.LetterTypeDemand})
	require.ErrorIs(t, err, ErrValidation)

	require.Empty(t, f.letters.All())
	require.Zero(t, f.drafter.Calls())
}

func TestGenerate_OnlySubscribers(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Generate(context.Background(), adminA, validRequest())
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Generate(context.Background(), &types.Actor{UserID: "e", Role: types.RoleEmployee}, validRequest())
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGenerate_PaidConsumesOneCredit(t *testing.T) {
	f := newFixture(t)
	f.seedLetter(t, "prior", types.LetterStatusApproved, nil)
	f.giveCredits(subscriber.UserID, 2)

	l, err := f.svc.Generate(context.Background(), subscriber, validRequest())
	require.NoError(t, err)
	require.False(t, l.IsFreeTrial)
	require.Equal(t, 1, f.subs.All()[0].CreditsRemaining)
}

func TestGenerate_SuperUserNotCharged(t *testing.T) {
	f := newFixture(t)
	f.seedLetter(t, "prior", types.LetterStatusApproved, nil)
	su := &types.Actor{UserID: subscriber.UserID, Role: types.RoleSubscriber, IsSuperUser: true}

	l, err := f.svc.Generate(context.Background(), su, validRequest())
	require.NoError(t, err)
	require.Equal(t, types.LetterStatusPendingReview, l.Status)
	require.Empty(t, f.subs.Logs())
}

func TestGenerate_DraftingFailureMarksFailed(t *testing.T) {
	cases := map[string]func(ctx context.Context) (string, error){
		"error": func(context.Context) (string, error) { return "", errors.New("upstream 500") },
		"empty": func(context.Context) (string, error) { return "   ", nil },
		"timeout": func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.svc.cfg.Drafting.Timeout = 20 * time.Millisecond
			f.drafter.generate = gen

			_, err := f.svc.Generate(context.Background(), subscriber, validRequest())
			require.ErrorIs(t, err, ErrGenerationFailed)

			all := f.letters.All()
			require.Len(t, all, 1)
			require.Equal(t, types.LetterStatusFailed, all[0].Status)
			require.NotNil(t, all[0].FailureReason)
			require.Equal(t, []types.AuditAction{types.AuditActionCreated, types.AuditActionFailed}, f.auditActions(all[0].ID))
		})
	}
}

func TestGenerate_DeductionFailureMarksFailedAndKeepsDraft(t *testing.T) {
	f := newFixture(t)
	f.seedLetter(t, "prior", types.LetterStatusApproved, nil)
	f.giveCredits(subscriber.UserID, 1)
	// another request spends the last credit while the draft is in flight
	f.drafter.generate = func(context.Context) (string, error) {
		_, err := f.svc.ledger.Consume(context.Background(), subscriber.UserID, "other")
		require.NoError(t, err)
		return "draft text", nil
	}

	_, err := f.svc.Generate(context.Background(), subscriber, validRequest())
	require.ErrorIs(t, err, ErrNoCredit)

	var failed *models.Letter
	for _, l := range f.letters.All() {
		if l.ID != "prior" {
			failed = l
		}
	}
	require.NotNil(t, failed)
	require.Equal(t, types.LetterStatusFailed, failed.Status)
	require.Equal(t, "draft text", *failed.AIDraftContent)
	require.Contains(t, *failed.FailureReason, "Credit deduction failed")
	require.Equal(t, []types.AuditAction{types.AuditActionCreated, types.AuditActionFailed}, f.auditActions(failed.ID))
}

func TestGenerate_DraftStoreFailureRefundsCredit(t *testing.T) {
	f := newFixture(t)
	f.seedLetter(t, "prior", types.LetterStatusApproved, nil)
	f.giveCredits(subscriber.UserID, 1)
	f.letters.FailTransitionTo = types.LetterStatusPendingReview

	_, err := f.svc.Generate(context.Background(), subscriber, validRequest())
	require.ErrorIs(t, err, ErrGenerationFailed)

	require.Equal(t, 1, f.subs.All()[0].CreditsRemaining)
	var failed *models.Letter
	for _, l := range f.letters.All() {
		if l.ID != "prior" {
			failed = l
		}
	}
	require.NotNil(t, failed)
	require.Equal(t, types.LetterStatusFailed, failed.Status)
	require.NotNil(t, failed.AIDraftContent)
	require.Contains(t, *failed.FailureReason, "credit refunded")
	require.Equal(t, []types.AuditAction{types.AuditActionCreated, types.AuditActionFailed}, f.auditActions(failed.ID))
	entries, err := f.audits.ListByLetter(context.Background(), failed.ID)
	require.NoError(t, err)
	require.Contains(t, entries[1].Notes, "credit refunded")

	logs := f.subs.Logs()
	require.Len(t, logs, 2)
	require.Equal(t, types.SubscriptionChangeReasonConsume, logs[0].Reason)
	require.Equal(t, types.SubscriptionChangeReasonRefund, logs[1].Reason)
	require.Equal(t, failed.ID, logs[1].Extra["letter_id"])
	requireContentInvariant(t, f)
}

func TestGenerate_ConcurrentAttemptsNeverOverspend(t *testing.T) {
	f := newFixture(t)
	f.seedLetter(t, "prior", types.LetterStatusApproved, nil)
	const credits = 2
	f.giveCredits(subscriber.UserID, credits)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Generate(context.Background(), subscriber, validRequest())
			if err != nil {
				assert.ErrorIs(t, err, ErrNoCredit)
			}
		}()
	}
	wg.Wait()

	queued := 0
	for _, l := range f.letters.All() {
		if l.Status == types.LetterStatusPendingReview {
			queued++
		}
		assert.NotEqual(t, types.LetterStatusGenerating, l.Status)
	}
	require.Equal(t, credits, queued)
	require.Equal(t, 0, f.subs.All()[0].CreditsRemaining)
	requireContentInvariant(t, f)
}

func TestStartReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLetter(t, "l1", types.LetterStatusPendingReview, nil)

	_, err := f.svc.StartReview(ctx, subscriber, "l1")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.StartReview(ctx, adminA, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	l, err := f.svc.StartReview(ctx, adminA, "l1")
	require.NoError(t, err)
	require.Equal(t, types.LetterStatusUnderReview, l.Status)

	// reopening by the same admin does not emit a second entry
	_, err = f.svc.StartReview(ctx, adminA, "l1")
	require.NoError(t, err)
	require.Equal(t, []types.AuditAction{types.AuditActionReviewStarted}, f.auditActions("l1"))

	f.seedLetter(t, "l2", types.LetterStatusFailed, nil)
	_, err = f.svc.StartReview(ctx, adminA, "l2")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestReviewerExclusivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLetter(t, "l1", types.LetterStatusUnderReview, strPtr(adminA.UserID))
	before, err := f.letters.Get(ctx, "l1")
	require.NoError(t, err)

	_, err = f.svc.StartReview(ctx, adminB, "l1")
	require.ErrorIs(t, err, ErrReviewerConflict)
	_, err = f.svc.Approve(ctx, adminB, "l1", &ApproveRequest{FinalContent: "mine"})
	require.ErrorIs(t, err, ErrReviewerConflict)
	_, err = f.svc.Reject(ctx, adminB, "l1", &RejectRequest{RejectionReason: "nope"})
	require.ErrorIs(t, err, ErrReviewerConflict)
	_, err = f.svc.ImproveDraft(ctx, adminB, "l1", &ImproveRequest{Content: "x", Instruction: "y"})
	require.ErrorIs(t, err, ErrReviewerConflict)

	after, err := f.letters.Get(ctx, "l1")
	require.NoError(t, err)
	require.Equal(t, before.Status, after.Status)
	require.Equal(t, *before.ReviewedBy, *after.ReviewedBy)
	require.Nil(t, after.FinalContent)
	require.Nil(t, after.RejectionReason)
	require.Empty(t, f.auditActions("l1"))
}

func TestStartReview_ConcurrentAdminsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	f.seedLetter(t, "l1", types.LetterStatusPendingReview, nil)

	admins := []*types.Actor{adminA, adminB}
	errs := make([]error, len(admins))
	var wg sync.WaitGroup
	for i, a := range admins {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.StartReview(context.Background(), a, "l1")
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrReviewerConflict)
		}
	}
	require.Equal(t, 1, wins)
	require.Len(t, f.auditActions("l1"), 1)
}

func TestApprove_UnassignedDegradesToCaller(t *testing.T) {
	f := newFixture(t)
	f.seedLetter(t, "l1", types.LetterStatusUnderReview, nil)

	l, err := f.svc.Approve(context.Background(), adminB, "l1", &ApproveRequest{FinalContent: "Final", ReviewNotes: "tightened tone"})
	require.NoError(t, err)
	require.Equal(t, adminB.UserID, *l.ReviewedBy)
	require.Equal(t, "tightened tone", *l.ReviewNotes)

	rows, err := f.audits.ListByLetter(context.Background(), "l1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "tightened tone", rows[0].Notes)
}

func TestApprove_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLetter(t, "l1", types.LetterStatusPendingReview, nil)

	_, err := f.svc.Approve(ctx, adminA, "l1", &ApproveRequest{FinalContent: "  "})
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Approve(ctx, adminA, "l1", &ApproveRequest{FinalContent: "text"})
	require.ErrorIs(t, err, ErrInvalidStatus)
	_, err = f.svc.Approve(ctx, subscriber, "l1", &ApproveRequest{FinalContent: "text"})
	require.ErrorIs(t, err, ErrForbidden)

	l, err := f.letters.Get(ctx, "l1")
	require.NoError(t, err)
	require.Equal(t, types.LetterStatusPendingReview, l.Status)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLetter(t, "l1", types.LetterStatusUnderReview, strPtr(adminA.UserID))

	_, err := f.svc.Reject(ctx, adminA, "l1", &RejectRequest{})
	require.ErrorIs(t, err, ErrValidation)

	l, err := f.svc.Reject(ctx, adminA, "l1", &RejectRequest{RejectionReason: "Insufficient facts"})
	require.NoError(t, err)
	require.Equal(t, types.LetterStatusRejected, l.Status)
	require.Equal(t, "Insufficient facts", *l.RejectionReason)

	rows, err := f.audits.ListByLetter(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Rejection reason: Insufficient facts", rows[0].Notes)

	_, err = f.svc.Approve(ctx, adminA, "l1", &ApproveRequest{FinalContent: "late"})
	require.ErrorIs(t, err, ErrInvalidStatus)
	requireContentInvariant(t, f)
}

func TestImproveDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLetter(t, "l1", types.LetterStatusUnderReview, strPtr(adminA.UserID))

	text, err := f.svc.ImproveDraft(ctx, adminA, "l1", &ImproveRequest{Content: "Pay now", Instruction: "be polite"})
	require.NoError(t, err)
	require.Equal(t, "Pay now (be polite)", text)

	_, err = f.svc.ImproveDraft(ctx, adminA, "l1", &ImproveRequest{Content: "Pay now"})
	require.ErrorIs(t, err, ErrValidation)

	f.drafter.improve = func(string, string) (string, error) { return "", errors.New("boom") }
	_, err = f.svc.ImproveDraft(ctx, adminA, "l1", &ImproveRequest{Content: "a", Instruction: "b"})
	require.ErrorIs(t, err, ErrGenerationFailed)

	l, err := f.letters.Get(ctx, "l1")
	require.NoError(t, err)
	require.Equal(t, "draft", *l.AIDraftContent)
	require.Empty(t, f.auditActions("l1"))
}

func TestGetAndList_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLetter(t, "mine", types.LetterStatusCompleted, nil)
	require.NoError(t, f.letters.Create(ctx, &models.Letter{ID: "theirs", UserID: "user-2", Status: types.LetterStatusPendingReview, ReviewNotes: strPtr("internal")}))

	l, err := f.svc.Get(ctx, subscriber, "mine")
	require.NoError(t, err)
	require.Equal(t, types.LetterStatusApproved, l.Status)

	_, err = f.svc.Get(ctx, subscriber, "theirs")
	require.ErrorIs(t, err, ErrNotFound)

	l, err = f.svc.Get(ctx, adminA, "theirs")
	require.NoError(t, err)
	require.Equal(t, "internal", *l.ReviewNotes)

	res, err := f.svc.List(ctx, subscriber, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)

	res, err = f.svc.List(ctx, adminA, &ListRequest{Status: types.LetterStatusApproved})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.Equal(t, "mine", res.Items[0].ID)

	res, err = f.svc.List(ctx, adminA, &ListRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Total)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLetter(t, "l1", types.LetterStatusPendingReview, nil)
	_, err := f.svc.StartReview(ctx, adminA, "l1")
	require.NoError(t, err)

	_, err = f.svc.History(ctx, subscriber, "l1")
	require.ErrorIs(t, err, ErrForbidden)

	rows, err := f.svc.History(ctx, adminA, "l1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
