package statement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/money"
	"github.com/tinoosan/cashflow/internal/storage/memory"
)

func mv(acc uuid.UUID, day int, amount money.Cents) ledger.BankMovement {
	return ledger.BankMovement{ID: uuid.New(), AccountID: acc, Date: ledger.Date(2024, time.February, day), Amount: amount}
}

func TestBuild(t *testing.T) {
	acc := ledger.BankAccount{ID: uuid.New(), OpeningBalance: 1000}
	before := mv(acc.ID, 1, 500)
	beforeReversed := mv(acc.ID, 2, 9999)
	beforeReversed.Reversed = true
	in := mv(acc.ID, 10, 300)
	in.Reconciled = true
	out := mv(acc.ID, 11, -200)
	rev := mv(acc.ID, 12, -50)
	rev.Reversed = true
	after := mv(acc.ID, 28, 1)

	st := Build(acc, []ledger.BankMovement{after, out, before, rev, in, beforeReversed}, ledger.Date(2024, time.February, 5), ledger.Date(2024, time.February, 20))
	require.Equal(t, KPIs{Opening: 1500, Inflow: 300, Outflow: 200, PeriodNet: 100, Closing: 1600, Unreconciled: -200}, st.KPIs)
	require.Len(t, st.Rows, 3)
	require.Equal(t, in.ID, st.Rows[0].ID)
	require.Equal(t, money.Cents(1800), st.Rows[0].Balance)
	require.Equal(t, money.Cents(1600), st.Rows[1].Balance)
	require.Equal(t, money.Cents(1600), st.Rows[2].Balance, "reversed movement must not move the balance")
}

func TestActionsFor(t *testing.T) {
	open := ledger.BankMovement{}
	done := ledger.BankMovement{Reconciled: true}
	gone := ledger.BankMovement{Reversed: true}

	require.Equal(t, Actions{}, ActionsFor(nil))
	require.Equal(t, Actions{CanReconcile: true, CanReverse: true}, ActionsFor([]ledger.BankMovement{open}))
	require.Equal(t, Actions{CanReconcile: true}, ActionsFor([]ledger.BankMovement{open, open}))
	require.Equal(t, Actions{CanUndo: true, CanReverse: true}, ActionsFor([]ledger.BankMovement{done}))
	require.Equal(t, Actions{}, ActionsFor([]ledger.BankMovement{open, done}))
	require.Equal(t, Actions{}, ActionsFor([]ledger.BankMovement{gone}))
}

func TestView_SingleSubscription(t *testing.T) {
	st := memory.New()
	user := uuid.New()
	a := ledger.BankAccount{ID: uuid.New(), UserID: user, Name: "A", OpeningBalance: 100}
	b := ledger.BankAccount{ID: uuid.New(), UserID: user, Name: "B", OpeningBalance: 200}
	st.SeedBankAccount(a)
	st.SeedBankAccount(b)

	var mu sync.Mutex
	var seen []uuid.UUID
	v := NewView(st, user, func(s Statement) {
		mu.Lock()
		seen = append(seen, s.AccountID)
		mu.Unlock()
	}, nil)
	ctx := context.Background()

	require.NoError(t, v.Select(ctx, a.ID, time.Time{}, time.Time{}))
	require.Equal(t, 1, st.Subscribers())
	require.NoError(t, v.Select(ctx, b.ID, time.Time{}, time.Time{}))
	require.Equal(t, 1, st.Subscribers(), "switching accounts must drop the old listener")

	m := mv(a.ID, 3, 10)
	m.UserID = user
	st.SeedMovement(m)
	m2 := mv(b.ID, 3, 25)
	m2.UserID = user
	st.SeedMovement(m2)

	latest, ok := v.Latest()
	require.True(t, ok)
	require.Equal(t, b.ID, latest.AccountID)
	require.Equal(t, money.Cents(225), latest.KPIs.Closing)

	mu.Lock()
	require.Equal(t, []uuid.UUID{a.ID, b.ID, b.ID}, seen)
	mu.Unlock()

	v.Close()
	require.Equal(t, 0, st.Subscribers())
}
