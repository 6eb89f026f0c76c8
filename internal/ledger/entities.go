package ledger

import (
    "time"

    "github.com/google/uuid"
    "github.com/tinoosan/cashflow/internal/meta"
    "github.com/tinoosan/cashflow/internal/money"
)

// TitleKind distinguishes payables from receivables.
type TitleKind string

const (
	// TitleExpense is an amount owed by the user (a payable).
	TitleExpense TitleKind = "expense"
	// TitleRevenue is an amount owed to the user (a receivable).
	TitleRevenue TitleKind = "revenue"
)

// Status is the lifecycle state of a title.
type Status string

const (
	StatusPending Status = "pending"
	StatusOverdue Status = "overdue"
	StatusPartial Status = "partial"
	StatusSettled Status = "settled"
	StatusSplit   Status = "split"
)

// Open reports whether a title with this status still expects money.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusOverdue || s == StatusPartial
}

// Activity classifies cash flows for the DRE statement.
type Activity string

const (
	ActivityOperating Activity = "operating"
	ActivityInvesting Activity = "investing"
	ActivityFinancing Activity = "financing"
)

// SettlementKind enumerates records in a title's settlement history.
type SettlementKind string

const (
	SettlementPayment  SettlementKind = "payment"
	SettlementReceipt  SettlementKind = "receipt"
	SettlementReversal SettlementKind = "reversal"
)

// OriginType links a bank movement back to the record that produced it.
type OriginType string

const (
	OriginPaymentExpense OriginType = "PAYMENT_EXPENSE"
	OriginReceiptRevenue OriginType = "RECEIPT_REVENUE"
	// OriginTransfer marks a transfer leg. ParentID is the transfer and
	// RecordID is the opposite leg.
	OriginTransfer OriginType = "TRANSFER"
)

// User captures the owner of cash-flow data.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email *string   `json:"email,omitempty"`
}

// BankAccount is a cash-holding account. Its balance at any date is derived.
type BankAccount struct {
    ID     uuid.UUID `json:"id"`
    UserID uuid.UUID `json:"user_id"`
    Name   string    `json:"name"`
    // OpeningBalance is fixed at creation.
    OpeningBalance money.Cents `json:"opening_balance"`
    CreatedAt      time.Time   `json:"created_at"`
}

// Title is a payable (expense) or receivable (revenue).
type Title struct {
    ID           uuid.UUID   `json:"id"`
    UserID       uuid.UUID   `json:"user_id"`
    Kind         TitleKind   `json:"kind"`
    Description  string      `json:"description"`
    Counterparty string      `json:"counterparty"`
    DueDate      time.Time   `json:"due_date"`
    CategoryID   string      `json:"category_id"`
    Original     money.Cents `json:"original"`
    Status       Status      `json:"status"`
    // Aggregates maintained by settlements and reversals.
    TotalSettled  money.Cents `json:"total_settled"`
    TotalInterest money.Cents `json:"total_interest"`
    TotalDiscount money.Cents `json:"total_discount"`
    // Remaining is nil for titles that never had a settlement recorded.
    Remaining *money.Cents `json:"remaining"`
    CreatedAt time.Time    `json:"created_at"`
}

// Settlement is a payment, receipt or reversal record inside a title's history.
type Settlement struct {
    ID              uuid.UUID      `json:"id"`
    TitleID         uuid.UUID      `json:"title_id"`
    UserID          uuid.UUID      `json:"user_id"`
    Kind            SettlementKind `json:"kind"`
    Date            time.Time      `json:"date"`
    Principal       money.Cents    `json:"principal"`
    Interest        money.Cents    `json:"interest"`
    Discount        money.Cents    `json:"discount"`
    AccountID       uuid.UUID      `json:"account_id"`
    Reconciled      bool           `json:"reconciled"`
    Reversed        bool           `json:"reversed"`
    ResponsibleUser string         `json:"responsible_user,omitempty"`
    Reason          string         `json:"reason,omitempty"`
    CreatedAt       time.Time      `json:"created_at"`
}

// Transfer moves money between two of the user's accounts.
type Transfer struct {
    ID          uuid.UUID   `json:"id"`
    UserID      uuid.UUID   `json:"user_id"`
    Date        time.Time   `json:"date"`
    Amount      money.Cents `json:"amount"`
    FromAccount uuid.UUID   `json:"from_account"`
    ToAccount   uuid.UUID   `json:"to_account"`
    Description string      `json:"description"`
    Reconciled  bool        `json:"reconciled"`
    CreatedAt   time.Time   `json:"created_at"`
}

// Origin points at the settlement a bank movement was generated from.
type Origin struct {
    Type     OriginType `json:"type"`
    ParentID uuid.UUID  `json:"parent_id"`
    RecordID uuid.UUID  `json:"record_id"`
}

// BankMovement is a signed line in an account statement; positive amounts are inflows.
type BankMovement struct {
    ID           uuid.UUID   `json:"id"`
    UserID       uuid.UUID   `json:"user_id"`
    AccountID    uuid.UUID   `json:"account_id"`
    Date         time.Time   `json:"date"`
    Amount       money.Cents `json:"amount"`
    Description  string      `json:"description"`
    Reconciled   bool        `json:"reconciled"`
    ReconciledAt *time.Time  `json:"reconciled_at,omitempty"`
    ReconciledBy string      `json:"reconciled_by,omitempty"`
    Reversed     bool        `json:"reversed"`
    // Origin is nil for manual movements.
    Origin    *Origin   `json:"origin,omitempty"`
    CreatedAt time.Time `json:"created_at"`
}

// ChartAccount is one node in the chart of accounts.
type ChartAccount struct {
    ID         string    `json:"id"`
    UserID     uuid.UUID `json:"user_id"`
    Code       string    `json:"code"`
    ParentCode string    `json:"parent_code,omitempty"`
    Name       string    `json:"name"`
    Activity   Activity  `json:"activity"`
    Leaf       bool      `json:"leaf"`
}

// Notification is a user-facing alert about a title.
type Notification struct {
    ID        string           `json:"id"`
    UserID    uuid.UUID        `json:"user_id"`
    RelatedID uuid.UUID        `json:"related_id"`
    Type      NotificationType `json:"type"`
    Title     string           `json:"title"`
    Message   string           `json:"message"`
    // Metadata holds presentation hints (icon, icon_class).
    Metadata  meta.Metadata `json:"metadata,omitempty"`
    Link      string        `json:"link,omitempty"`
    Read      bool          `json:"read"`
    Pinned    bool          `json:"pinned"`
    Important bool          `json:"important"`
    Cleared   bool          `json:"cleared"`
    CreatedAt time.Time     `json:"created_at"`
}
