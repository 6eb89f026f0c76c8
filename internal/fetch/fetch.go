// Package fetch reads the records a cash-flow view needs. Store queries are
// coarse (whole collections per user); exact date and status checks are done
// here so no composite index is ever required.
package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/tinoosan/cashflow/internal/cashflow"
	"github.com/tinoosan/cashflow/internal/errs"
	"github.com/tinoosan/cashflow/internal/ledger"
)

var fetchErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cashflow",
		Name:      "fetch_errors_total",
		Help:      "Store reads that failed while building a cash-flow view",
	},
	[]string{"op"},
)

// Reader is the store surface the fetcher needs.
type Reader interface {
	ListTitles(ctx context.Context, userID uuid.UUID, kind ledger.TitleKind) ([]ledger.Title, error)
	ListSettlements(ctx context.Context, userID uuid.UUID, kind ledger.TitleKind) ([]ledger.Settlement, error)
	ListTransfers(ctx context.Context, userID uuid.UUID) ([]ledger.Transfer, error)
	ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.BankAccount, error)
	ListChart(ctx context.Context, userID uuid.UUID) ([]ledger.ChartAccount, error)
}

// ChartCache is an optional read-through cache for chart-of-accounts lists.
type ChartCache interface {
	GetChart(ctx context.Context, userID uuid.UUID) ([]ledger.ChartAccount, bool)
	PutChart(ctx context.Context, userID uuid.UUID, chart []ledger.ChartAccount)
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// Range is a date window. A zero bound is open.
type Range struct {
	Start time.Time
	End   time.Time
	// EndExclusive makes End itself fall outside the window.
	EndExclusive bool
}

// Before is the window of everything strictly before cutoff.
func Before(cutoff time.Time) Range {
	return Range{End: ledger.Day(cutoff), EndExclusive: true}
}

// Between is the inclusive window [start, end].
func Between(start, end time.Time) Range {
	return Range{Start: ledger.Day(start), End: ledger.Day(end)}
}

// Contains reports whether the calendar day of d is inside the window.
func (r Range) Contains(d time.Time) bool {
	d = ledger.Day(d)
	if !r.Start.IsZero() && d.Before(ledger.Day(r.Start)) {
		return false
	}
	if r.End.IsZero() {
		return true
	}
	end := ledger.Day(r.End)
	if r.EndExclusive {
		return d.Before(end)
	}
	return !d.After(end)
}

// Request selects what to read. A nil range skips that stream.
type Request struct {
	UserID    uuid.UUID
	Realized  *Range
	Projected *Range
}

// Fetcher runs the reads of a Request concurrently and joins them.
type Fetcher struct {
	store Reader
	chart ChartCache
	log   *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithChartCache routes chart reads through c.
func WithChartCache(c ChartCache) Option { return func(f *Fetcher) { f.chart = c } }

// WithLogger sets the logger used for failed reads.
func WithLogger(l *slog.Logger) Option { return func(f *Fetcher) { f.log = l } }

func New(store Reader, opts ...Option) *Fetcher {
	f := &Fetcher{store: store, log: slog.Default()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch returns the unification sources for req. Any failed read aborts the
// others and is returned as a FetchError.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (cashflow.Sources, error) {
	var (
		expenses, revenues []ledger.Title
		payments, receipts []ledger.Settlement
		transfers          []ledger.Transfer
		accounts           []ledger.BankAccount
		chart              []ledger.ChartAccount
	)
	g, gctx := errgroup.WithContext(ctx)
	f.read(g, "list_expenses", func() (err error) {
		expenses, err = f.store.ListTitles(gctx, req.UserID, ledger.TitleExpense)
		return err
	})
	f.read(g, "list_revenues", func() (err error) {
		revenues, err = f.store.ListTitles(gctx, req.UserID, ledger.TitleRevenue)
		return err
	})
	f.read(g, "list_accounts", func() (err error) {
		accounts, err = f.store.ListBankAccounts(gctx, req.UserID)
		return err
	})
	f.read(g, "list_chart", func() (err error) {
		chart, err = f.loadChart(gctx, req.UserID)
		return err
	})
	if req.Realized != nil {
		f.read(g, "list_payments", func() (err error) {
			payments, err = f.store.ListSettlements(gctx, req.UserID, ledger.TitleExpense)
			return err
		})
		f.read(g, "list_receipts", func() (err error) {
			receipts, err = f.store.ListSettlements(gctx, req.UserID, ledger.TitleRevenue)
			return err
		})
		f.read(g, "list_transfers", func() (err error) {
			transfers, err = f.store.ListTransfers(gctx, req.UserID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return cashflow.Sources{}, err
	}

	src := cashflow.Sources{
		Titles:   make(map[uuid.UUID]ledger.Title, len(expenses)+len(revenues)),
		Chart:    make(map[string]ledger.ChartAccount, len(chart)),
		Accounts: make(map[uuid.UUID]ledger.BankAccount, len(accounts)),
	}
	for _, t := range expenses {
		src.Titles[t.ID] = t
	}
	for _, t := range revenues {
		src.Titles[t.ID] = t
	}
	for _, c := range chart {
		src.Chart[c.ID] = c
	}
	for _, a := range accounts {
		src.Accounts[a.ID] = a
	}
	if r := req.Realized; r != nil {
		src.Payments = settledIn(payments, *r)
		src.Receipts = settledIn(receipts, *r)
		for _, tr := range transfers {
			if r.Contains(tr.Date) {
				src.Transfers = append(src.Transfers, tr)
			}
		}
	}
	if r := req.Projected; r != nil {
		src.Projected = append(openDueIn(expenses, *r), openDueIn(revenues, *r)...)
	}
	return src, nil
}

// Accounts lists the user's bank accounts.
func (f *Fetcher) Accounts(ctx context.Context, userID uuid.UUID) ([]ledger.BankAccount, error) {
	out, err := f.store.ListBankAccounts(ctx, userID)
	if err != nil {
		f.failed("list_accounts", err)
		return nil, errs.Fetch("list_accounts", err)
	}
	return out, nil
}

// Titles lists titles of one kind, unfiltered.
func (f *Fetcher) Titles(ctx context.Context, userID uuid.UUID, kind ledger.TitleKind) ([]ledger.Title, error) {
	out, err := f.store.ListTitles(ctx, userID, kind)
	if err != nil {
		op := "list_" + string(kind) + "s"
		f.failed(op, err)
		return nil, errs.Fetch(op, err)
	}
	return out, nil
}

// Chart returns the chart of accounts, from cache when available.
func (f *Fetcher) Chart(ctx context.Context, userID uuid.UUID) ([]ledger.ChartAccount, error) {
	c, err := f.loadChart(ctx, userID)
	if err != nil {
		f.failed("list_chart", err)
		return nil, errs.Fetch("list_chart", err)
	}
	return c, nil
}

// InvalidateChart drops the cached chart after a chart write.
func (f *Fetcher) InvalidateChart(ctx context.Context, userID uuid.UUID) {
	if f.chart != nil {
		f.chart.Invalidate(ctx, userID)
	}
}

func (f *Fetcher) loadChart(ctx context.Context, userID uuid.UUID) ([]ledger.ChartAccount, error) {
	if f.chart != nil {
		if c, ok := f.chart.GetChart(ctx, userID); ok {
			return c, nil
		}
	}
	c, err := f.store.ListChart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f.chart != nil {
		f.chart.PutChart(ctx, userID, c)
	}
	return c, nil
}

func (f *Fetcher) read(g *errgroup.Group, op string, fn func() error) {
	g.Go(func() error {
		if err := fn(); err != nil {
			f.failed(op, err)
			return errs.Fetch(op, err)
		}
		return nil
	})
}

func (f *Fetcher) failed(op string, err error) {
	fetchErrors.WithLabelValues(op).Inc()
	f.log.Warn("store read failed", "op", op, "err", err)
}

func settledIn(in []ledger.Settlement, r Range) []ledger.Settlement {
	out := make([]ledger.Settlement, 0, len(in))
	for _, s := range in {
		if r.Contains(s.Date) {
			out = append(out, s)
		}
	}
	return out
}

func openDueIn(in []ledger.Title, r Range) []ledger.Title {
	out := make([]ledger.Title, 0)
	for _, t := range in {
		if t.EffectiveStatus().Open() && r.Contains(t.DueDate) {
			out = append(out, t)
		}
	}
	return out
}
