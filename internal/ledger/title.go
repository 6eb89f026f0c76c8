package ledger

import (
	"time"

	"github.com/tinoosan/cashflow/internal/money"
)

// EffectiveStatus reads a missing status as pending.
func (t Title) EffectiveStatus() Status {
	if t.Status == "" {
		return StatusPending
	}
	return t.Status
}

// Outstanding is the amount still expected: Remaining when tracked, else Original.
func (t Title) Outstanding() money.Cents {
	if t.Remaining != nil {
		return *t.Remaining
	}
	return t.Original
}

// Recompute derives Remaining from the aggregate totals.
func (t *Title) Recompute() {
	r := t.Original + t.TotalInterest - t.TotalSettled - t.TotalDiscount
	t.Remaining = &r
}

// ApplySettlement adds a payment or receipt to the aggregates and moves the status forward.
func (t *Title) ApplySettlement(s Settlement) {
	t.TotalSettled += s.Principal
	t.TotalInterest += s.Interest
	t.TotalDiscount += s.Discount
	t.Recompute()
	if *t.Remaining <= 0 {
		t.Status = StatusSettled
	} else {
		t.Status = StatusPartial
	}
}

// ApplyReversal undoes a settlement's contribution. With nothing left settled the
// title returns to Overdue or Pending depending on its due date relative to today.
func (t *Title) ApplyReversal(s Settlement, today time.Time) {
	t.TotalSettled -= s.Principal
	t.TotalInterest -= s.Interest
	t.TotalDiscount -= s.Discount
	t.Recompute()
	switch {
	case t.TotalSettled > 0:
		t.Status = StatusPartial
	case Day(t.DueDate).Before(Day(today)):
		t.Status = StatusOverdue
	default:
		t.Status = StatusPending
	}
}

// SettlementKindFor returns the settlement kind that pays off a title of this kind.
func SettlementKindFor(k TitleKind) SettlementKind {
	if k == TitleRevenue {
		return SettlementReceipt
	}
	return SettlementPayment
}

// OriginTypeFor returns the movement origin type for settlements of a title of this kind.
func OriginTypeFor(k TitleKind) OriginType {
	if k == TitleRevenue {
		return OriginReceiptRevenue
	}
	return OriginPaymentExpense
}

// TitleKindFor maps a movement origin type back to the kind of title it references.
func TitleKindFor(o OriginType) TitleKind {
	if o == OriginReceiptRevenue {
		return TitleRevenue
	}
	return TitleExpense
}

// SignedAmount is the cash effect of a settlement on its bank account.
func (s Settlement) SignedAmount() money.Cents {
	v := s.Principal + s.Interest - s.Discount
	if s.Kind == SettlementPayment {
		return -v
	}
	return v
}
