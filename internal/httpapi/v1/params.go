package v1

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "github.com/tinoosan/cashflow/internal/cashflow"
    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
)

// dayParam reads a YYYY-MM-DD query parameter. A missing optional value is the zero time.
func dayParam(r *http.Request, name string, required bool) (time.Time, error) {
    raw := strings.TrimSpace(r.URL.Query().Get(name))
    if raw == "" {
        if required { return time.Time{}, errs.Invalid(name, "required") }
        return time.Time{}, nil
    }
    d, err := ledger.ParseDay(raw)
    if err != nil { return time.Time{}, errs.Invalid(name, "must be YYYY-MM-DD") }
    return d, nil
}

// periodParams reads the required start and end days.
func periodParams(r *http.Request) (start, end time.Time, err error) {
    if start, err = dayParam(r, "start", true); err != nil { return }
    if end, err = dayParam(r, "end", true); err != nil { return }
    if end.Before(start) { err = errs.Invalid("end", "must not be before start") }
    return
}

// accountParam reads account=all|<uuid>; empty means all.
func accountParam(r *http.Request) (cashflow.AccountFilter, error) {
    raw := strings.TrimSpace(r.URL.Query().Get("account"))
    if raw == "" || raw == "all" { return cashflow.AllAccounts(), nil }
    id, err := uuid.Parse(raw)
    if err != nil { return cashflow.AccountFilter{}, errs.Invalid("account", "must be all or an account id") }
    return cashflow.Account(id), nil
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
    raw := strings.TrimSpace(r.URL.Query().Get(name))
    if raw == "" { return def, nil }
    v, err := strconv.ParseBool(raw)
    if err != nil { return false, errs.Invalid(name, "must be true or false") }
    return v, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
    raw := strings.TrimSpace(r.URL.Query().Get(name))
    if raw == "" { return def, nil }
    v, err := strconv.Atoi(raw)
    if err != nil || v < 0 { return 0, errs.Invalid(name, "must be a non-negative integer") }
    return v, nil
}

// kindParam reads kind=expense|revenue, defaulting to expense.
func kindParam(r *http.Request) (ledger.TitleKind, error) {
    switch k := ledger.TitleKind(strings.TrimSpace(r.URL.Query().Get("kind"))); k {
    case "":
        return ledger.TitleExpense, nil
    case ledger.TitleExpense, ledger.TitleRevenue:
        return k, nil
    }
    return "", errs.Invalid("kind", "must be expense or revenue")
}

func idParam(r *http.Request) (uuid.UUID, error) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil { return uuid.Nil, errs.Invalid("id", "must be a uuid") }
    return id, nil
}
