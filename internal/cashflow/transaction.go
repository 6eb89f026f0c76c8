// Package cashflow merges realized, projected and simulated records into one
// date-ordered ledger and computes balances over it. Everything here is pure;
// store access lives in the fetch package.
package cashflow

import (
	"time"

	"github.com/google/uuid"
	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/money"
)

// Kind tags the source of a unified transaction.
type Kind string

const (
	KindPayment          Kind = "payment"
	KindReceipt          Kind = "receipt"
	KindTransfer         Kind = "transfer"
	KindProjectedExpense Kind = "projected_expense"
	KindProjectedRevenue Kind = "projected_revenue"
	KindSimulated        Kind = "simulated"
	KindComparison       Kind = "comparison"
)

// TransferLegs is the payload carried only by transfers. The amount is
// directional: inflow at To, outflow at From.
type TransferLegs struct {
	From   uuid.UUID   `json:"from"`
	To     uuid.UUID   `json:"to"`
	Amount money.Cents `json:"amount"`
}

// Transaction is one ledger line. Inflow and Outflow are zero for transfers;
// their effect depends on the account filter and is resolved by Effect.
type Transaction struct {
	ID           uuid.UUID `json:"id"`
	ParentID     uuid.UUID `json:"parent_id"`
	Kind         Kind      `json:"kind"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description"`
	Counterparty string    `json:"counterparty"`
	Category     string    `json:"category"`
	// CategoryID is the parent title's chart-of-accounts id.
	CategoryID string      `json:"category_id,omitempty"`
	DueDate    time.Time   `json:"due_date"`
	Inflow     money.Cents `json:"inflow"`
	Outflow    money.Cents `json:"outflow"`
	Interest   money.Cents `json:"interest"`
	Discount   money.Cents `json:"discount"`
	// AccountID is the settling account; zero for projections, simulations and transfers.
	AccountID  uuid.UUID       `json:"account_id"`
	Reconciled bool            `json:"reconciled"`
	Activity   ledger.Activity `json:"activity"`
	Transfer   *TransferLegs   `json:"transfer,omitempty"`
	// CreatedAt breaks ties between same-day lines when known.
	CreatedAt time.Time `json:"created_at"`
}

// IsRealized reports whether the line is an actual settlement or transfer.
func (t Transaction) IsRealized() bool {
	switch t.Kind {
	case KindPayment, KindReceipt, KindTransfer:
		return true
	}
	return false
}

// IsProjected reports whether the line is a forecast (projections and what-if overlays).
func (t Transaction) IsProjected() bool { return !t.IsRealized() }

func (t Transaction) IsSimulated() bool {
	return t.Kind == KindSimulated || t.Kind == KindComparison
}

func (t Transaction) IsComparison() bool { return t.Kind == KindComparison }

// Touches reports whether the line moves money in or out of account.
func (t Transaction) Touches(account uuid.UUID) bool {
	if t.Kind == KindTransfer {
		return t.Transfer != nil && (t.Transfer.From == account || t.Transfer.To == account)
	}
	return t.AccountID == account
}

// Effect returns the inflow and outflow this line contributes under filter.
// counted is false when the line must be left out of totals and running balances.
func (t Transaction) Effect(filter AccountFilter) (in, out money.Cents, counted bool) {
	switch t.Kind {
	case KindPayment, KindReceipt,
		KindProjectedExpense, KindProjectedRevenue,
		KindSimulated, KindComparison:
		return t.Inflow, t.Outflow, true
	case KindTransfer:
		id, ok := filter.Account()
		if !ok || t.Transfer == nil {
			return 0, 0, false
		}
		switch id {
		case t.Transfer.To:
			return t.Transfer.Amount, 0, true
		case t.Transfer.From:
			return 0, t.Transfer.Amount, true
		}
		return 0, 0, false
	default:
		return 0, 0, false
	}
}

// Net is inflow minus outflow under filter.
func (t Transaction) Net(filter AccountFilter) money.Cents {
	in, out, ok := t.Effect(filter)
	if !ok {
		return 0
	}
	return in - out
}

// AccountFilter selects either every account or a single one.
type AccountFilter struct {
	id uuid.UUID
}

// AllAccounts aggregates every account; transfers net to zero.
func AllAccounts() AccountFilter { return AccountFilter{} }

// Account restricts to one account.
func Account(id uuid.UUID) AccountFilter { return AccountFilter{id: id} }

// Account returns the selected account and true, or false for all accounts.
func (f AccountFilter) Account() (uuid.UUID, bool) { return f.id, f.id != uuid.Nil }

func (f AccountFilter) IsAll() bool { return f.id == uuid.Nil }

func (f AccountFilter) String() string {
	if f.IsAll() {
		return "all"
	}
	return f.id.String()
}

// ReconciliationFilter narrows by reconciled flag.
type ReconciliationFilter string

const (
	ReconAll          ReconciliationFilter = "all"
	ReconReconciled   ReconciliationFilter = "reconciled"
	ReconUnreconciled ReconciliationFilter = "unreconciled"
)

// ParseReconciliationFilter accepts the three filter names; empty means all.
func ParseReconciliationFilter(s string) (ReconciliationFilter, bool) {
	switch ReconciliationFilter(s) {
	case "", ReconAll:
		return ReconAll, true
	case ReconReconciled, ReconUnreconciled:
		return ReconciliationFilter(s), true
	}
	return "", false
}
