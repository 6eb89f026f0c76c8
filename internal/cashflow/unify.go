package cashflow

import (
	"sort"

	"github.com/google/uuid"
	"github.com/tinoosan/cashflow/internal/ledger"
)

const (
	notAvailable     = "N/A"
	projectedPrefix  = "(Projected) "
	transferCategory = "Transfer"
	internalParty    = "Internal"
)

// Sources is the raw material for one unification pass.
type Sources struct {
	Payments  []ledger.Settlement
	Receipts  []ledger.Settlement
	Transfers []ledger.Transfer
	Projected []ledger.Title
	// Titles resolves settlement parents.
	Titles map[uuid.UUID]ledger.Title
	// Chart resolves category ids to chart-of-accounts entries.
	Chart map[string]ledger.ChartAccount
	// Accounts names the legs of transfers.
	Accounts map[uuid.UUID]ledger.BankAccount
}

// Unify turns the sources into ledger lines sorted by date. Reversed
// settlements and reversal records are skipped; settlements whose parent title
// cannot be resolved are dropped.
func Unify(src Sources) []Transaction {
	out := make([]Transaction, 0, len(src.Payments)+len(src.Receipts)+len(src.Transfers)+len(src.Projected))
	for _, s := range src.Payments {
		if tx, ok := src.settlement(s, KindPayment); ok {
			out = append(out, tx)
		}
	}
	for _, s := range src.Receipts {
		if tx, ok := src.settlement(s, KindReceipt); ok {
			out = append(out, tx)
		}
	}
	for _, tr := range src.Transfers {
		out = append(out, src.transfer(tr))
	}
	for _, t := range src.Projected {
		out = append(out, src.projected(t))
	}
	SortByDate(out)
	return out
}

func (src Sources) settlement(s ledger.Settlement, kind Kind) (Transaction, bool) {
	if s.Reversed || s.Kind == ledger.SettlementReversal {
		return Transaction{}, false
	}
	parent, ok := src.Titles[s.TitleID]
	if !ok {
		return Transaction{}, false
	}
	category, activity := src.category(parent.CategoryID)
	tx := Transaction{
		ID:           s.ID,
		ParentID:     parent.ID,
		Kind:         kind,
		Date:         ledger.Day(s.Date),
		Description:  parent.Description,
		Counterparty: orNA(parent.Counterparty),
		Category:     category,
		CategoryID:   parent.CategoryID,
		DueDate:      ledger.Day(parent.DueDate),
		Interest:     s.Interest,
		Discount:     s.Discount,
		AccountID:    s.AccountID,
		Reconciled:   s.Reconciled,
		Activity:     activity,
		CreatedAt:    s.CreatedAt,
	}
	if kind == KindPayment {
		tx.Outflow = s.Principal
	} else {
		tx.Inflow = s.Principal
	}
	return tx, true
}

func (src Sources) transfer(tr ledger.Transfer) Transaction {
	return Transaction{
		ID:           tr.ID,
		Kind:         KindTransfer,
		Date:         ledger.Day(tr.Date),
		Description:  "Transfer from " + src.accountName(tr.FromAccount) + " to " + src.accountName(tr.ToAccount),
		Counterparty: internalParty,
		Category:     transferCategory,
		DueDate:      ledger.Day(tr.Date),
		Reconciled:   tr.Reconciled,
		Transfer:     &TransferLegs{From: tr.FromAccount, To: tr.ToAccount, Amount: tr.Amount},
		CreatedAt:    tr.CreatedAt,
	}
}

func (src Sources) projected(t ledger.Title) Transaction {
	category, activity := src.category(t.CategoryID)
	tx := Transaction{
		ID:           t.ID,
		ParentID:     t.ID,
		Date:         ledger.Day(t.DueDate),
		Description:  projectedPrefix + t.Description,
		Counterparty: orNA(t.Counterparty),
		Category:     category,
		CategoryID:   t.CategoryID,
		DueDate:      ledger.Day(t.DueDate),
		Activity:     activity,
		CreatedAt:    t.CreatedAt,
	}
	if t.Kind == ledger.TitleRevenue {
		tx.Kind = KindProjectedRevenue
		tx.Inflow = t.Outstanding()
	} else {
		tx.Kind = KindProjectedExpense
		tx.Outflow = t.Outstanding()
	}
	return tx
}

func (src Sources) category(id string) (string, ledger.Activity) {
	c, ok := src.Chart[id]
	if !ok {
		return notAvailable, ledger.ActivityOperating
	}
	if c.Activity == "" {
		return c.Name, ledger.ActivityOperating
	}
	return c.Name, c.Activity
}

func (src Sources) accountName(id uuid.UUID) string {
	if a, ok := src.Accounts[id]; ok && a.Name != "" {
		return a.Name
	}
	return id.String()
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

// SortByDate orders lines by day, then creation time. Equal keys keep their input order.
func SortByDate(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
}
