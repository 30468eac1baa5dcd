package credit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/internal/repository"
	"github.com/fatflowers/letterdesk/internal/testutil/memstore"
	"github.com/fatflowers/letterdesk/pkg/types"
)

func newLedger() (*Ledger, *memstore.Letters, *memstore.Subscriptions) {
	letters := memstore.NewLetters()
	subs := memstore.NewSubscriptions()
	return NewLedger(letters, subs, zap.NewNop().Sugar()), letters, subs
}

func activeSub(id, userID string, credits int, createdAt time.Time) *models.Subscription {
	return &models.Subscription{
		ID:               id,
		UserID:           userID,
		Plan:             "standard_4_month",
		Status:           types.SubscriptionStatusActive,
		CreditsRemaining: credits,
		CreatedAt:        createdAt,
	}
}

func TestEntitlement_FreeTrialForFirstLetter(t *testing.T) {
	l, _, _ := newLedger()
	ent, err := l.Entitlement(context.Background(), &types.Actor{UserID: "u1", Role: types.RoleSubscriber})
	require.NoError(t, err)
	require.True(t, ent.FreeTrial)
	require.False(t, ent.Chargeable())
}

func TestEntitlement_AnyPriorLetterEndsTrial(t *testing.T) {
	l, letters, _ := newLedger()
	require.NoError(t, letters.Create(context.Background(), &models.Letter{ID: "l1", UserID: "u1", Status: types.LetterStatusFailed}))

	_, err := l.Entitlement(context.Background(), &types.Actor{UserID: "u1"})
	require.ErrorIs(t, err, ErrNoCredit)
}

func TestEntitlement_UsesLatestActiveSubscription(t *testing.T) {
	l, letters, subs := newLedger()
	ctx := context.Background()
	require.NoError(t, letters.Create(ctx, &models.Letter{ID: "l1", UserID: "u1"}))
	now := time.Now()
	subs.Put(activeSub("old", "u1", 3, now.Add(-time.Hour)))
	subs.Put(activeSub("new", "u1", 0, now))

	ok, err := l.HasCredit(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = l.Entitlement(ctx, &types.Actor{UserID: "u1"})
	require.ErrorIs(t, err, ErrNoCredit)
}

func TestEntitlement_SuperUserNeverCharged(t *testing.T) {
	l, letters, _ := newLedger()
	require.NoError(t, letters.Create(context.Background(), &models.Letter{ID: "l1", UserID: "u1"}))

	ent, err := l.Entitlement(context.Background(), &types.Actor{UserID: "u1", IsSuperUser: true})
	require.NoError(t, err)
	require.True(t, ent.SuperUser)
	require.False(t, ent.Chargeable())
}

func TestEntitlement_PaidCredit(t *testing.T) {
	l, letters, subs := newLedger()
	require.NoError(t, letters.Create(context.Background(), &models.Letter{ID: "l1", UserID: "u1"}))
	subs.Put(activeSub("s1", "u1", 2, time.Now()))

	ent, err := l.Entitlement(context.Background(), &types.Actor{UserID: "u1"})
	require.NoError(t, err)
	require.True(t, ent.Chargeable())
}

func TestConsume_WritesChangeLog(t *testing.T) {
	l, _, subs := newLedger()
	subs.Put(activeSub("s1", "u1", 2, time.Now()))

	subID, err := l.Consume(context.Background(), "u1", "letter-1")
	require.NoError(t, err)
	require.Equal(t, "s1", subID)

	logs := subs.Logs()
	require.Len(t, logs, 1)
	require.Equal(t, types.SubscriptionChangeReasonConsume, logs[0].Reason)
	require.Equal(t, 2, logs[0].Before.Data().CreditsRemaining)
	require.Equal(t, 1, logs[0].After.Data().CreditsRemaining)
	require.Equal(t, "letter-1", logs[0].Extra["letter_id"])
}

func TestConsume_EmptyBalance(t *testing.T) {
	l, _, subs := newLedger()
	subs.Put(activeSub("s1", "u1", 0, time.Now()))

	_, err := l.Consume(context.Background(), "u1", "x")
	require.ErrorIs(t, err, ErrNoCredit)
	_, err = l.Consume(context.Background(), "nobody", "x")
	require.ErrorIs(t, err, ErrNoCredit)
}

func TestConsume_ConcurrentNeverOverspends(t *testing.T) {
	l, _, subs := newLedger()
	subs.Put(activeSub("s1", "u1", 1, time.Now()))

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Consume(context.Background(), "u1", "x"); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, succeeded.Load())
	all := subs.All()
	require.Len(t, all, 1)
	require.Equal(t, 0, all[0].CreditsRemaining)
}

func TestBalance(t *testing.T) {
	l, _, subs := newLedger()
	ctx := context.Background()
	actor := &types.Actor{UserID: "u1"}

	b, err := l.Balance(ctx, actor)
	require.NoError(t, err)
	require.False(t, b.HasSubscription)
	require.True(t, b.FreeTrialEligible)

	subs.Put(activeSub("s1", "u1", 4, time.Now()))
	b, err = l.Balance(ctx, actor)
	require.NoError(t, err)
	require.True(t, b.HasSubscription)
	require.Equal(t, 4, b.CreditsRemaining)
	require.Equal(t, "standard_4_month", b.Plan)
}

func TestRefund_RestoresBalanceAndWritesChangeLog(t *testing.T) {
	l, _, subs := newLedger()
	subs.Put(activeSub("s1", "u1", 1, time.Now()))

	subID, err := l.Consume(context.Background(), "u1", "letter-1")
	require.NoError(t, err)
	require.NoError(t, l.Refund(context.Background(), "u1", subID, "letter-1"))

	require.Equal(t, 1, subs.All()[0].CreditsRemaining)
	logs := subs.Logs()
	require.Len(t, logs, 2)
	require.Equal(t, types.SubscriptionChangeReasonRefund, logs[1].Reason)
	require.Equal(t, 0, logs[1].Before.Data().CreditsRemaining)
	require.Equal(t, 1, logs[1].After.Data().CreditsRemaining)
	require.Equal(t, "letter-1", logs[1].Extra["letter_id"])
}

func TestRefund_CanceledSubscriptionIsNotCredited(t *testing.T) {
	l, _, subs := newLedger()
	sub := activeSub("s1", "u1", 0, time.Now())
	sub.Status = types.SubscriptionStatusCanceled
	subs.Put(sub)

	err := l.Refund(context.Background(), "u1", "s1", "letter-1")
	require.ErrorIs(t, err, repository.ErrConflict)
	require.Equal(t, 0, subs.All()[0].CreditsRemaining)
	require.Empty(t, subs.Logs())
}
