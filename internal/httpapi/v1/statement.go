package v1

import (
    "encoding/json"
    "fmt"
    "net/http"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/statement"
)

func statementPeriod(r *http.Request) (start, end time.Time, err error) {
    if start, err = dayParam(r, "start", false); err != nil { return }
    if end, err = dayParam(r, "end", false); err != nil { return }
    if !start.IsZero() && !end.IsZero() && end.Before(start) { err = errs.Invalid("end", "must not be before start") }
    return
}

// GET /v1/accounts/{id}/statement?start=&end=
func (s *Server) getStatement(w http.ResponseWriter, r *http.Request) {
    id, err := idParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    start, end, err := statementPeriod(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    user := userFrom(r)
    acc, err := s.store.GetBankAccount(r.Context(), user, id)
    if err != nil { writeServiceErr(w, s.log, err); return }
    ms, err := s.store.ListMovements(r.Context(), user, id)
    if err != nil { writeServiceErr(w, s.log, errs.Fetch("list_movements", err)); return }
    toJSON(w, http.StatusOK, statement.Build(acc, ms, start, end))
}

// GET /v1/accounts/{id}/statement/stream?start=&end=
// Server-sent events: one "statement" event now and one after every change to
// the account's movements, until the client goes away.
func (s *Server) streamStatement(w http.ResponseWriter, r *http.Request) {
    id, err := idParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    start, end, err := statementPeriod(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    fl, ok := w.(http.Flusher)
    if !ok { writeErr(w, http.StatusInternalServerError, "streaming unsupported", "internal_error"); return }

    updates := make(chan struct{}, 1)
    view := statement.NewView(s.store, userFrom(r), func(statement.Statement) {
        select {
        case updates <- struct{}{}:
        default:
        }
    }, s.log)
    defer view.Close()
    if err := view.Select(r.Context(), id, start, end); err != nil { writeServiceErr(w, s.log, err); return }

    // the stream outlives the server's write timeout
    _ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.WriteHeader(http.StatusOK)
    fl.Flush()

    for {
        select {
        case <-r.Context().Done():
            return
        case <-updates:
            st, ok := view.Latest()
            if !ok { continue }
            b, err := json.Marshal(st)
            if err != nil { s.log.Error("statement encode failed", "account_id", id, "err", err); return }
            if _, err := fmt.Fprintf(w, "event: statement\ndata: %s\n\n", b); err != nil { return }
            fl.Flush()
        }
    }
}

// POST /v1/movements/reconcile
func (s *Server) reconcileMovements(w http.ResponseWriter, r *http.Request) {
    var req reconcileMovementsRequest
    if !decodeJSON(w, r, &req) { return }
    n, err := s.reconSvc.ReconcileMovements(r.Context(), userFrom(r), req.IDs, req.Reconciled, actorFrom(r, req.Actor))
    s.writeBatch(w, len(req.IDs), n, err)
}

// POST /v1/movements/actions reports which bulk actions the selection allows.
func (s *Server) movementActions(w http.ResponseWriter, r *http.Request) {
    var req movementActionsRequest
    if !decodeJSON(w, r, &req) { return }
    selected := make([]ledger.BankMovement, 0, len(req.IDs))
    seen := make(map[uuid.UUID]bool, len(req.IDs))
    for _, id := range req.IDs {
        if seen[id] { continue }
        seen[id] = true
        m, err := s.store.GetMovement(r.Context(), userFrom(r), id)
        if err != nil { writeServiceErr(w, s.log, err); return }
        selected = append(selected, m)
    }
    toJSON(w, http.StatusOK, statement.ActionsFor(selected))
}

// POST /v1/movements/{id}/reverse?actor=
func (s *Server) reverseMovement(w http.ResponseWriter, r *http.Request) {
    id, err := idParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    res, err := s.reconSvc.Reverse(r.Context(), userFrom(r), id, actorFrom(r, r.URL.Query().Get("actor")))
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, reversalResponse{MovementID: res.MovementID, Manual: res.Manual, Reversal: res.Reversal, Title: res.Title, Transfer: res.Transfer})
}
