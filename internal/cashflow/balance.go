package cashflow

import (
	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/money"
)

// KPIs are the period totals shown above the ledger.
type KPIs struct {
	Opening money.Cents `json:"opening"`
	Inflow  money.Cents `json:"inflow"`
	Outflow money.Cents `json:"outflow"`
	Net     money.Cents `json:"net"`
	Closing money.Cents `json:"closing"`
}

// Row is a ledger line with its directional amounts and the balance after it.
type Row struct {
	Transaction
	In      money.Cents `json:"in"`
	Out     money.Cents `json:"out"`
	Balance money.Cents `json:"balance"`
}

// OpeningBalance sums the selected accounts' opening balances and the net
// effect of every realized line in prior. prior must already be limited to
// lines strictly before the cutoff date.
func OpeningBalance(accounts []ledger.BankAccount, prior []Transaction, filter AccountFilter) money.Cents {
	var total money.Cents
	id, single := filter.Account()
	for _, a := range accounts {
		if single && a.ID != id {
			continue
		}
		total += a.OpeningBalance
	}
	for _, t := range ApplyFilters(prior, filter, ReconAll) {
		if !t.IsRealized() {
			continue
		}
		total += t.Net(filter)
	}
	return total
}

// ApplyFilters keeps lines touching the selected account (either leg for
// transfers) whose reconciled flag matches recon.
func ApplyFilters(txs []Transaction, filter AccountFilter, recon ReconciliationFilter) []Transaction {
	out := make([]Transaction, 0, len(txs))
	id, single := filter.Account()
	for _, t := range txs {
		if single && !t.Touches(id) {
			continue
		}
		switch recon {
		case ReconReconciled:
			if !t.Reconciled {
				continue
			}
		case ReconUnreconciled:
			if t.Reconciled {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// ComputeKPIs totals the lines. Transfers only count when a single account is selected.
func ComputeKPIs(opening money.Cents, txs []Transaction, filter AccountFilter) KPIs {
	k := KPIs{Opening: opening}
	for _, t := range txs {
		in, out, ok := t.Effect(filter)
		if !ok {
			continue
		}
		k.Inflow += in
		k.Outflow += out
	}
	k.Net = k.Inflow - k.Outflow
	k.Closing = opening + k.Net
	return k
}

// RunningBalances walks txs in order. Lines without an effect under filter
// (transfers under all accounts, transfers not touching the account) are
// omitted from the result.
func RunningBalances(txs []Transaction, opening money.Cents, filter AccountFilter) []Row {
	rows := make([]Row, 0, len(txs))
	bal := opening
	for _, t := range txs {
		in, out, ok := t.Effect(filter)
		if !ok {
			continue
		}
		bal += in - out
		rows = append(rows, Row{Transaction: t, In: in, Out: out, Balance: bal})
	}
	return rows
}
