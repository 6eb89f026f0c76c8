package v1

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"
    "golang.org/x/sync/errgroup"

    "github.com/tinoosan/cashflow/internal/cashflow"
    "github.com/tinoosan/cashflow/internal/fetch"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/money"
    "github.com/tinoosan/cashflow/internal/report"
)

// periodLines unifies the realized and/or projected records of [start, end].
func (s *Server) periodLines(ctx context.Context, userID uuid.UUID, start, end time.Time, realized, projected bool) ([]cashflow.Transaction, error) {
    period := fetch.Between(start, end)
    req := fetch.Request{UserID: userID}
    if realized { req.Realized = &period }
    if projected { req.Projected = &period }
    src, err := s.fetcher.Fetch(ctx, req)
    if err != nil { return nil, err }
    txs := cashflow.Unify(src)
    cashflow.SortByDate(txs)
    return txs, nil
}

// GET /v1/reports/dre?start=&end=
func (s *Server) getDRE(w http.ResponseWriter, r *http.Request) {
    start, end, err := periodParams(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    txs, err := s.periodLines(r.Context(), userFrom(r), start, end, true, false)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, report.BuildDRE(txs))
}

func (s *Server) titlesOf(r *http.Request) ([]ledger.Title, error) {
    kind, err := kindParam(r)
    if err != nil { return nil, err }
    return s.fetcher.Titles(r.Context(), userFrom(r), kind)
}

// GET /v1/reports/aging?kind=
func (s *Server) getAging(w http.ResponseWriter, r *http.Request) {
    titles, err := s.titlesOf(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, report.AgingFor(titles, s.clock()))
}

// GET /v1/reports/forecast?kind=
func (s *Server) getForecast(w http.ResponseWriter, r *http.Request) {
    titles, err := s.titlesOf(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, items(report.Forecast(titles, s.clock())))
}

// GET /v1/reports/portfolio?kind=&status=
func (s *Server) getPortfolio(w http.ResponseWriter, r *http.Request) {
    titles, err := s.titlesOf(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    status := strings.TrimSpace(r.URL.Query().Get("status"))
    toJSON(w, http.StatusOK, items(report.Portfolio(titles, status)))
}

// GET /v1/titles?kind=
func (s *Server) listTitles(w http.ResponseWriter, r *http.Request) {
    titles, err := s.titlesOf(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, items(titles))
}

// GET /v1/reports/categories?kind=
func (s *Server) getCategoryTotals(w http.ResponseWriter, r *http.Request) {
    kind, err := kindParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    var (
        titles []ledger.Title
        chart  []ledger.ChartAccount
    )
    g, gctx := errgroup.WithContext(r.Context())
    g.Go(func() (err error) {
        titles, err = s.fetcher.Titles(gctx, userFrom(r), kind)
        return err
    })
    g.Go(func() (err error) {
        chart, err = s.fetcher.Chart(gctx, userFrom(r))
        return err
    })
    if err := g.Wait(); err != nil { writeServiceErr(w, s.log, err); return }
    byID := make(map[string]ledger.ChartAccount, len(chart))
    for _, c := range chart { byID[c.ID] = c }
    toJSON(w, http.StatusOK, items(report.ByCategory(titles, byID)))
}

// GET /v1/reports/chart-tree?start=&end=
func (s *Server) getChartTree(w http.ResponseWriter, r *http.Request) {
    start, end, err := periodParams(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    var (
        txs   []cashflow.Transaction
        chart []ledger.ChartAccount
    )
    g, gctx := errgroup.WithContext(r.Context())
    g.Go(func() (err error) {
        txs, err = s.periodLines(gctx, userFrom(r), start, end, true, false)
        return err
    })
    g.Go(func() (err error) {
        chart, err = s.fetcher.Chart(gctx, userFrom(r))
        return err
    })
    if err := g.Wait(); err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, items(report.ChartTree(chart, txs)))
}

// GET /v1/reports/monthly?start=&end=&account=&show_realized=&show_projected=&cumulative=
func (s *Server) getMonthly(w http.ResponseWriter, r *http.Request) {
    start, end, err := periodParams(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    filter, err := accountParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    realized, err := boolParam(r, "show_realized", true)
    if err != nil { writeServiceErr(w, s.log, err); return }
    projected, err := boolParam(r, "show_projected", true)
    if err != nil { writeServiceErr(w, s.log, err); return }
    cumulative, err := boolParam(r, "cumulative", false)
    if err != nil { writeServiceErr(w, s.log, err); return }

    txs, err := s.periodLines(r.Context(), userFrom(r), start, end, realized, projected)
    if err != nil { writeServiceErr(w, s.log, err); return }
    months := report.Monthly(cashflow.ApplyFilters(txs, filter, cashflow.ReconAll), filter, realized, projected)
    if cumulative { months = report.Cumulative(months) }
    toJSON(w, http.StatusOK, items(months))
}

// GET /v1/reports/daily-balance?start=&end=&account=
func (s *Server) getDailyBalance(w http.ResponseWriter, r *http.Request) {
    start, end, err := periodParams(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    filter, err := accountParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    user := userFrom(r)

    var (
        txs     []cashflow.Transaction
        opening money.Cents
    )
    g, gctx := errgroup.WithContext(r.Context())
    g.Go(func() (err error) {
        txs, err = s.periodLines(gctx, user, start, end, true, true)
        return err
    })
    g.Go(func() (err error) {
        opening, err = s.dash.OpeningBalance(gctx, user, start, filter)
        return err
    })
    if err := g.Wait(); err != nil { writeServiceErr(w, s.log, err); return }
    series := report.DailyBalance(cashflow.ApplyFilters(txs, filter, cashflow.ReconAll), opening, filter)
    toJSON(w, http.StatusOK, series)
}

// GET /v1/reports/top-categories?start=&end=&n=
func (s *Server) getTopCategories(w http.ResponseWriter, r *http.Request) {
    start, end, err := periodParams(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    n, err := intParam(r, "n", 5)
    if err != nil { writeServiceErr(w, s.log, err); return }
    txs, err := s.periodLines(r.Context(), userFrom(r), start, end, true, false)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, report.TopCategories(txs, n))
}

// GET /v1/reports/expenses?start=&end=
func (s *Server) getExpensesByCategory(w http.ResponseWriter, r *http.Request) {
    start, end, err := periodParams(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    txs, err := s.periodLines(r.Context(), userFrom(r), start, end, true, false)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, items(report.ExpensesByCategory(txs)))
}
