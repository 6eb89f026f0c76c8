// Package dashboard orchestrates one cash-flow view: fetch, unify, overlay the
// session's what-if items, filter, and compute balances.
package dashboard

import (
    "context"
    "log/slog"
    "time"

    "github.com/google/uuid"
    "golang.org/x/sync/errgroup"

    "github.com/tinoosan/cashflow/internal/cashflow"
    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/fetch"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/money"
    "github.com/tinoosan/cashflow/internal/whatif"
)

// Query is one dashboard request.
type Query struct {
    UserID             uuid.UUID
    Start              time.Time
    End                time.Time
    Account            cashflow.AccountFilter
    Reconciliation     cashflow.ReconciliationFilter
    ShowRealized       bool
    ShowProjected      bool
    IncludeProjections bool
}

func (q Query) validate() error {
    if q.UserID == uuid.Nil { return errs.ErrInvalid }
    if q.Start.IsZero() { return errs.Invalid("start", "required") }
    if q.End.IsZero() { return errs.Invalid("end", "required") }
    if ledger.Day(q.End).Before(ledger.Day(q.Start)) { return errs.Invalid("end", "must not be before start") }
    return nil
}

// Result is everything the dashboard renders for a query.
type Result struct {
    Generation   uint64
    Opening      money.Cents
    KPIs         cashflow.KPIs
    Transactions []cashflow.Transaction
    Rows         []cashflow.Row
    Series       whatif.Series
}

// Service loads dashboards.
type Service struct {
    fetcher *fetch.Fetcher
    log     *slog.Logger
}

func New(fetcher *fetch.Fetcher, logger *slog.Logger) *Service {
    if logger == nil { logger = slog.Default() }
    return &Service{fetcher: fetcher, log: logger}
}

// Load runs q for the session. Starting a load cancels the session's previous
// one; if a newer load starts before this one finishes, ErrSuperseded is
// returned instead of a result.
func (s *Service) Load(ctx context.Context, sess *whatif.Session, q Query) (Result, error) {
    if err := q.validate(); err != nil { return Result{}, err }
    if q.Reconciliation == "" { q.Reconciliation = cashflow.ReconAll }
    ctx, gen := sess.Begin(ctx)
    defer sess.Finish(gen)

    var (
        opening money.Cents
        src     cashflow.Sources
    )
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() (err error) {
        opening, err = s.openingBalance(gctx, q.UserID, q.Start, q.Account)
        return err
    })
    g.Go(func() (err error) {
        period := fetch.Between(q.Start, q.End)
        req := fetch.Request{UserID: q.UserID}
        if q.ShowRealized { req.Realized = &period }
        if q.ShowProjected { req.Projected = &period }
        src, err = s.fetcher.Fetch(gctx, req)
        return err
    })
    if err := g.Wait(); err != nil {
        if !sess.Current(gen) { return Result{}, errs.ErrSuperseded }
        s.log.Warn("dashboard load failed", "user_id", q.UserID, "err", err)
        return Result{}, err
    }

    txs := cashflow.Unify(src)
    _, comparison := sess.Comparison()
    txs = append(txs, whatif.Overlay(sess.Items(), false)...)
    txs = append(txs, whatif.Overlay(comparison, true)...)
    cashflow.SortByDate(txs)
    txs = cashflow.ApplyFilters(txs, q.Account, q.Reconciliation)

    // comparison lines only feed the chart series
    lines := make([]cashflow.Transaction, 0, len(txs))
    for _, t := range txs {
        if !t.IsComparison() { lines = append(lines, t) }
    }
    res := Result{
        Generation:   gen,
        Opening:      opening,
        KPIs:         cashflow.ComputeKPIs(opening, lines, q.Account),
        Transactions: lines,
        Rows:         cashflow.RunningBalances(lines, opening, q.Account),
        Series:       whatif.Build(txs, opening, q.IncludeProjections, q.Account),
    }
    if !sess.Current(gen) { return Result{}, errs.ErrSuperseded }
    return res, nil
}

// OpeningBalance is the balance of the selected accounts at the start of cutoff.
func (s *Service) OpeningBalance(ctx context.Context, userID uuid.UUID, cutoff time.Time, account cashflow.AccountFilter) (money.Cents, error) {
    if userID == uuid.Nil { return 0, errs.ErrInvalid }
    if cutoff.IsZero() { return 0, errs.Invalid("cutoff", "required") }
    return s.openingBalance(ctx, userID, cutoff, account)
}

func (s *Service) openingBalance(ctx context.Context, userID uuid.UUID, cutoff time.Time, account cashflow.AccountFilter) (money.Cents, error) {
    before := fetch.Before(cutoff)
    src, err := s.fetcher.Fetch(ctx, fetch.Request{UserID: userID, Realized: &before})
    if err != nil { return 0, err }
    accounts := make([]ledger.BankAccount, 0, len(src.Accounts))
    for _, a := range src.Accounts { accounts = append(accounts, a) }
    return cashflow.OpeningBalance(accounts, cashflow.Unify(src), account), nil
}

// PeriodComparison sets a period's realized totals beside the period of the
// same length that ends the day before it starts.
type PeriodComparison struct {
    Start         time.Time     `json:"start"`
    End           time.Time     `json:"end"`
    PreviousStart time.Time     `json:"previous_start"`
    PreviousEnd   time.Time     `json:"previous_end"`
    Current       cashflow.KPIs `json:"current"`
    Previous      cashflow.KPIs `json:"previous"`
}

// ComparePeriods totals realized inflow and outflow over all accounts for
// [start, end] and for the preceding period.
func (s *Service) ComparePeriods(ctx context.Context, userID uuid.UUID, start, end time.Time) (PeriodComparison, error) {
    q := Query{UserID: userID, Start: start, End: end}
    if err := q.validate(); err != nil { return PeriodComparison{}, err }
    start, end = ledger.Day(start), ledger.Day(end)
    days := ledger.DaysBetween(start, end) + 1
    prevEnd := start.AddDate(0, 0, -1)
    prevStart := prevEnd.AddDate(0, 0, -(days - 1))
    out := PeriodComparison{Start: start, End: end, PreviousStart: prevStart, PreviousEnd: prevEnd}

    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() (err error) {
        out.Current, err = s.realizedKPIs(gctx, userID, start, end)
        return err
    })
    g.Go(func() (err error) {
        out.Previous, err = s.realizedKPIs(gctx, userID, prevStart, prevEnd)
        return err
    })
    if err := g.Wait(); err != nil { return PeriodComparison{}, err }
    return out, nil
}

func (s *Service) realizedKPIs(ctx context.Context, userID uuid.UUID, start, end time.Time) (cashflow.KPIs, error) {
    r := fetch.Between(start, end)
    src, err := s.fetcher.Fetch(ctx, fetch.Request{UserID: userID, Realized: &r})
    if err != nil { return cashflow.KPIs{}, err }
    return cashflow.ComputeKPIs(0, cashflow.Unify(src), cashflow.AllAccounts()), nil
}
