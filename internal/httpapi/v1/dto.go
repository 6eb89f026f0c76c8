package v1

import (
    "encoding/json"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/cashflow/internal/cashflow"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/money"
    "github.com/tinoosan/cashflow/internal/whatif"
)

// day is a calendar date on the wire: YYYY-MM-DD, or RFC 3339 truncated to its date.
type day struct{ time.Time }

func (d *day) UnmarshalJSON(b []byte) error {
    var s string
    if err := json.Unmarshal(b, &s); err != nil { return err }
    s = strings.TrimSpace(s)
    if s == "" { d.Time = time.Time{}; return nil }
    if t, err := ledger.ParseDay(s); err == nil { d.Time = t; return nil }
    t, err := time.Parse(time.RFC3339, s)
    if err != nil { return err }
    d.Time = ledger.Day(t)
    return nil
}

func (d day) MarshalJSON() ([]byte, error) {
    if d.IsZero() { return []byte(`""`), nil }
    return json.Marshal(d.Format(ledger.DateLayout))
}

// Cash flow

type cashflowResponse struct {
    Generation uint64         `json:"generation"`
    Account    string         `json:"account"`
    Opening    money.Cents    `json:"opening"`
    KPIs       cashflow.KPIs  `json:"kpis"`
    Rows       []cashflow.Row `json:"rows"`
    Series     whatif.Series  `json:"series"`
}

type openingBalanceResponse struct {
    Cutoff  day         `json:"cutoff"`
    Account string      `json:"account"`
    Balance money.Cents `json:"balance"`
}

// Settlements and reconciliation

type postSettlementRequest struct {
    AccountID       uuid.UUID   `json:"account_id"`
    Date            day         `json:"date"`
    Principal       money.Cents `json:"principal"`
    Interest        money.Cents `json:"interest"`
    Discount        money.Cents `json:"discount"`
    ResponsibleUser string      `json:"responsible_user"`
}

type settlementRef struct {
    TitleID      uuid.UUID `json:"title_id"`
    SettlementID uuid.UUID `json:"settlement_id"`
}

type reconcileSettlementsRequest struct {
    Items      []settlementRef `json:"items"`
    Reconciled bool            `json:"reconciled"`
}

type reconcileMovementsRequest struct {
    IDs        []uuid.UUID `json:"ids"`
    Reconciled bool        `json:"reconciled"`
    Actor      string      `json:"actor"`
}

// batchResult reports a batch write that may have been partial.
type batchResult struct {
    Requested int    `json:"requested"`
    Updated   int    `json:"updated"`
    Error     string `json:"error,omitempty"`
}

type movementActionsRequest struct {
    IDs []uuid.UUID `json:"ids"`
}

type reversalResponse struct {
    MovementID uuid.UUID          `json:"movement_id"`
    Manual     bool               `json:"manual"`
    Reversal   *ledger.Settlement `json:"reversal,omitempty"`
    Title      *ledger.Title      `json:"title,omitempty"`
    Transfer   *ledger.Transfer   `json:"transfer,omitempty"`
}

// Chart of accounts

type putChartAccountRequest struct {
    Code       string          `json:"code"`
    ParentCode string          `json:"parent_code"`
    Name       string          `json:"name"`
    Activity   ledger.Activity `json:"activity"`
    Leaf       bool            `json:"leaf"`
}

// Accounts and transfers

type postAccountRequest struct {
    Name           string      `json:"name"`
    OpeningBalance money.Cents `json:"opening_balance"`
}

type postAccountsBatchRequest struct {
    Accounts []postAccountRequest `json:"accounts"`
}

type batchItemError struct {
    Index int    `json:"index"`
    Code  string `json:"code"`
    Error string `json:"error"`
}

type postAccountsBatchResponse struct {
    Accounts []ledger.BankAccount `json:"accounts"`
    Errors   []batchItemError     `json:"errors,omitempty"`
}

type patchAccountRequest struct {
    Name           *string      `json:"name"`
    OpeningBalance *money.Cents `json:"opening_balance"`
}

type postTransferRequest struct {
    FromAccount uuid.UUID   `json:"from_account"`
    ToAccount   uuid.UUID   `json:"to_account"`
    Date        day         `json:"date"`
    Amount      money.Cents `json:"amount"`
    Description string      `json:"description"`
}

type transferResponse struct {
    Transfer ledger.Transfer     `json:"transfer"`
    Outflow  ledger.BankMovement `json:"outflow"`
    Inflow   ledger.BankMovement `json:"inflow"`
}

// What-if

type whatIfItemRequest struct {
    Kind         ledger.TitleKind `json:"kind"`
    Description  string           `json:"description"`
    Amount       money.Cents      `json:"amount"`
    Start        day              `json:"start"`
    Mode         whatif.Mode      `json:"mode"`
    Installments int              `json:"installments,omitempty"`
    Occurrences  int              `json:"occurrences,omitempty"`
    Frequency    whatif.Frequency `json:"frequency,omitempty"`
}

func (req whatIfItemRequest) input() whatif.Input {
    return whatif.Input{
        Kind:         req.Kind,
        Description:  req.Description,
        Amount:       req.Amount,
        Start:        req.Start.Time,
        Mode:         req.Mode,
        Installments: req.Installments,
        Occurrences:  req.Occurrences,
        Frequency:    req.Frequency,
    }
}

type whatIfItemsResponse struct {
    Items        []ledger.ScenarioItem `json:"items"`
    ComparisonID *uuid.UUID            `json:"comparison_id,omitempty"`
    Comparison   []ledger.ScenarioItem `json:"comparison,omitempty"`
}

type saveScenarioRequest struct {
    Name string `json:"name"`
}

type comparisonRequest struct {
    ScenarioID uuid.UUID `json:"scenario_id"`
}

// Notifications

type clearSidebarRequest struct {
    IncludePinned    bool `json:"include_pinned"`
    IncludeImportant bool `json:"include_important"`
}

type countResponse struct {
    Count int `json:"count"`
}

type itemsResponse[T any] struct {
    Items []T `json:"items"`
}

func items[T any](in []T) itemsResponse[T] {
    if in == nil { in = []T{} }
    return itemsResponse[T]{Items: in}
}
