// Package statement builds the per-account bank statement and keeps it live
// through a single store subscription per view.
package statement

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/money"
)

// Row is one movement with the balance after it.
type Row struct {
	ledger.BankMovement
	Balance money.Cents `json:"balance"`
}

// KPIs summarises the period. Reversed movements are left out of every total.
type KPIs struct {
	Opening      money.Cents `json:"opening"`
	Inflow       money.Cents `json:"inflow"`
	Outflow      money.Cents `json:"outflow"`
	PeriodNet    money.Cents `json:"period_net"`
	Closing      money.Cents `json:"closing"`
	Unreconciled money.Cents `json:"unreconciled"`
}

// Statement is the processed view of one account over a period.
type Statement struct {
	AccountID uuid.UUID `json:"account_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	KPIs      KPIs      `json:"kpis"`
	Rows      []Row     `json:"rows"`
}

// Build computes the statement from every movement of the account. A zero
// start or end leaves that side of the period open.
func Build(account ledger.BankAccount, movements []ledger.BankMovement, start, end time.Time) Statement {
	st := Statement{AccountID: account.ID, Start: start, End: end}
	opening := account.OpeningBalance
	period := make([]ledger.BankMovement, 0, len(movements))
	for _, m := range movements {
		d := ledger.Day(m.Date)
		if !start.IsZero() && d.Before(ledger.Day(start)) {
			if !m.Reversed {
				opening += m.Amount
			}
			continue
		}
		if !end.IsZero() && d.After(ledger.Day(end)) {
			continue
		}
		period = append(period, m)
	}
	sort.SliceStable(period, func(i, j int) bool {
		if !period[i].Date.Equal(period[j].Date) {
			return period[i].Date.Before(period[j].Date)
		}
		return period[i].CreatedAt.Before(period[j].CreatedAt)
	})

	k := KPIs{Opening: opening}
	bal := opening
	st.Rows = make([]Row, 0, len(period))
	for _, m := range period {
		if !m.Reversed {
			bal += m.Amount
			if m.Amount > 0 {
				k.Inflow += m.Amount
			} else {
				k.Outflow += -m.Amount
			}
			if !m.Reconciled {
				k.Unreconciled += m.Amount
			}
		}
		st.Rows = append(st.Rows, Row{BankMovement: m, Balance: bal})
	}
	k.PeriodNet = k.Inflow - k.Outflow
	k.Closing = opening + k.PeriodNet
	st.KPIs = k
	return st
}

// Actions are the bulk actions allowed for a selection.
type Actions struct {
	CanReconcile bool `json:"can_reconcile"`
	CanUndo      bool `json:"can_undo"`
	CanReverse   bool `json:"can_reverse"`
}

// ActionsFor applies the selection rules: nothing is allowed on reversed
// movements, reconcile needs every movement unreconciled, undo needs every
// movement reconciled and reverse takes exactly one movement.
func ActionsFor(selected []ledger.BankMovement) Actions {
	if len(selected) == 0 {
		return Actions{}
	}
	var anyReconciled, anyOpen, anyReversed bool
	for _, m := range selected {
		if m.Reconciled {
			anyReconciled = true
		} else {
			anyOpen = true
		}
		if m.Reversed {
			anyReversed = true
		}
	}
	return Actions{
		CanReconcile: !anyReconciled && !anyReversed,
		CanUndo:      !anyOpen && !anyReversed,
		CanReverse:   len(selected) == 1 && !anyReversed,
	}
}
