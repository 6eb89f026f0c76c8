package v1

import (
    "net/http"
    "strings"

    chi "github.com/go-chi/chi/v5"

    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
)

// GET /v1/chart
func (s *Server) listChart(w http.ResponseWriter, r *http.Request) {
    chart, err := s.fetcher.Chart(r.Context(), userFrom(r))
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, items(chart))
}

// PUT /v1/chart/{id} creates or replaces one chart entry and drops the cached chart.
func (s *Server) putChartAccount(w http.ResponseWriter, r *http.Request) {
    var req putChartAccountRequest
    if !decodeJSON(w, r, &req) { return }
    c := ledger.ChartAccount{
        ID:         strings.TrimSpace(chi.URLParam(r, "id")),
        UserID:     userFrom(r),
        Code:       strings.TrimSpace(req.Code),
        ParentCode: strings.TrimSpace(req.ParentCode),
        Name:       strings.TrimSpace(req.Name),
        Activity:   req.Activity,
        Leaf:       req.Leaf,
    }
    if err := validateChartAccount(c); err != nil { writeServiceErr(w, s.log, err); return }
    saved, err := s.store.PutChartAccount(r.Context(), c)
    if err != nil { writeServiceErr(w, s.log, err); return }
    s.fetcher.InvalidateChart(r.Context(), saved.UserID)
    toJSON(w, http.StatusOK, saved)
}

func validateChartAccount(c ledger.ChartAccount) error {
    switch {
    case c.ID == "":
        return errs.Invalid("id", "required")
    case c.Code == "":
        return errs.Invalid("code", "required")
    case c.Name == "":
        return errs.Invalid("name", "required")
    case c.ParentCode == c.Code:
        return errs.Invalid("parent_code", "must differ from code")
    }
    switch c.Activity {
    case ledger.ActivityOperating, ledger.ActivityInvesting, ledger.ActivityFinancing:
        return nil
    }
    return errs.Invalid("activity", "must be operating, investing or financing")
}
