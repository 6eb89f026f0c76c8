package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTitle_SettleThenReverse(t *testing.T) {
	today := Date(2024, time.March, 10)
	title := Title{ID: uuid.New(), Kind: TitleExpense, Original: 10000, Status: StatusPending, DueDate: Date(2024, time.March, 1)}
	if title.Outstanding() != 10000 {
		t.Fatalf("outstanding before any settlement: %d", title.Outstanding())
	}
	pay := Settlement{Kind: SettlementPayment, Principal: 10000}
	title.ApplySettlement(pay)
	if title.Status != StatusSettled || *title.Remaining != 0 {
		t.Fatalf("after settle: %+v", title)
	}
	title.ApplyReversal(pay, today)
	if title.TotalSettled != 0 || *title.Remaining != 10000 {
		t.Fatalf("after reversal: settled=%d remaining=%d", title.TotalSettled, *title.Remaining)
	}
	if title.Status != StatusOverdue {
		t.Fatalf("past due title should be overdue, got %s", title.Status)
	}

	title.DueDate = Date(2024, time.April, 1)
	title.ApplySettlement(pay)
	title.ApplyReversal(pay, today)
	if title.Status != StatusPending {
		t.Fatalf("future due title should be pending, got %s", title.Status)
	}
}

func TestTitle_PartialWithInterestAndDiscount(t *testing.T) {
	title := Title{Original: 10000, DueDate: Date(2024, time.January, 1)}
	title.ApplySettlement(Settlement{Kind: SettlementPayment, Principal: 4000, Interest: 200, Discount: 100})
	// 10000 + 200 - 4000 - 100
	if *title.Remaining != 6100 || title.Status != StatusPartial {
		t.Fatalf("unexpected: remaining=%d status=%s", *title.Remaining, title.Status)
	}
	second := Settlement{Kind: SettlementPayment, Principal: 2000}
	title.ApplySettlement(second)
	title.ApplyReversal(second, Date(2024, time.February, 1))
	if title.Status != StatusPartial || *title.Remaining != 6100 {
		t.Fatalf("reversal of one of two payments: remaining=%d status=%s", *title.Remaining, title.Status)
	}
}

func TestSettlementSignedAmount(t *testing.T) {
	p := Settlement{Kind: SettlementPayment, Principal: 1000, Interest: 50, Discount: 10}
	if p.SignedAmount() != -1040 {
		t.Fatalf("payment: %d", p.SignedAmount())
	}
	r := Settlement{Kind: SettlementReceipt, Principal: 1000}
	if r.SignedAmount() != 1000 {
		t.Fatalf("receipt: %d", r.SignedAmount())
	}
}

func TestAddMonths(t *testing.T) {
	cases := []struct {
		in   time.Time
		n    int
		want time.Time
	}{
		{Date(2024, time.January, 15), 1, Date(2024, time.February, 15)},
		{Date(2024, time.January, 31), 1, Date(2024, time.February, 29)},
		{Date(2023, time.January, 31), 1, Date(2023, time.February, 28)},
		{Date(2024, time.November, 30), 3, Date(2025, time.February, 28)},
		{Date(2024, time.June, 5), 12, Date(2025, time.June, 5)},
	}
	for _, c := range cases {
		if got := AddMonths(c.in, c.n); !got.Equal(c.want) {
			t.Fatalf("AddMonths(%s, %d) = %s, want %s", c.in.Format(DateLayout), c.n, got.Format(DateLayout), c.want.Format(DateLayout))
		}
	}
}

func TestNotificationIDDeterministic(t *testing.T) {
	id := uuid.New()
	a := NotificationID(id, NotifyOverduePayable)
	if a != NotificationID(id, NotifyOverduePayable) {
		t.Fatalf("id not deterministic")
	}
	if a == NotificationID(id, NotifyDueSoonPayable) {
		t.Fatalf("types must yield different ids")
	}
}
