package v1

import (
    "net/http"
    "strings"

    "github.com/tinoosan/cashflow/internal/cashflow"
    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/service/dashboard"
)

// dashboardQuery reads the shared cash-flow filters from the query string.
func dashboardQuery(r *http.Request) (dashboard.Query, error) {
    q := dashboard.Query{UserID: userFrom(r)}
    var err error
    if q.Start, q.End, err = periodParams(r); err != nil { return q, err }
    if q.Account, err = accountParam(r); err != nil { return q, err }
    recon, ok := cashflow.ParseReconciliationFilter(strings.TrimSpace(r.URL.Query().Get("reconciliation")))
    if !ok { return q, errs.Invalid("reconciliation", "must be all, reconciled or unreconciled") }
    q.Reconciliation = recon
    if q.ShowRealized, err = boolParam(r, "show_realized", true); err != nil { return q, err }
    if q.ShowProjected, err = boolParam(r, "show_projected", true); err != nil { return q, err }
    if q.IncludeProjections, err = boolParam(r, "include_projections", true); err != nil { return q, err }
    return q, nil
}

// GET /v1/cashflow?start=&end=&account=&reconciliation=&show_realized=&show_projected=&include_projections=
func (s *Server) getCashflow(w http.ResponseWriter, r *http.Request) {
    q, err := dashboardQuery(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    res, err := s.dash.Load(r.Context(), s.sessions.Get(q.UserID), q)
    if err != nil { writeServiceErr(w, s.log, err); return }
    rows := res.Rows
    if rows == nil { rows = []cashflow.Row{} }
    toJSON(w, http.StatusOK, cashflowResponse{
        Generation: res.Generation,
        Account:    q.Account.String(),
        Opening:    res.Opening,
        KPIs:       res.KPIs,
        Rows:       rows,
        Series:     res.Series,
    })
}

// GET /v1/cashflow/opening-balance?cutoff=&account=
func (s *Server) getOpeningBalance(w http.ResponseWriter, r *http.Request) {
    cutoff, err := dayParam(r, "cutoff", true)
    if err != nil { writeServiceErr(w, s.log, err); return }
    filter, err := accountParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    bal, err := s.dash.OpeningBalance(r.Context(), userFrom(r), cutoff, filter)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, openingBalanceResponse{Cutoff: day{cutoff}, Account: filter.String(), Balance: bal})
}

// GET /v1/cashflow/compare?start=&end=
func (s *Server) getComparePeriods(w http.ResponseWriter, r *http.Request) {
    start, end, err := periodParams(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    cmp, err := s.dash.ComparePeriods(r.Context(), userFrom(r), start, end)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, cmp)
}
