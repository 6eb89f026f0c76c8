package v1

import (
    "net/http"

    "github.com/tinoosan/cashflow/internal/service/reconcile"
    "github.com/tinoosan/cashflow/internal/storage"
)

// GET /v1/titles/{id}/history
func (s *Server) getTitleHistory(w http.ResponseWriter, r *http.Request) {
    id, err := idParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    hist, err := s.store.TitleHistory(r.Context(), userFrom(r), id)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, items(hist))
}

// POST /v1/titles/{id}/settlements registers a payment or receipt.
func (s *Server) postSettlement(w http.ResponseWriter, r *http.Request) {
    id, err := idParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    var req postSettlementRequest
    if !decodeJSON(w, r, &req) { return }
    res, err := s.reconSvc.Settle(r.Context(), reconcile.SettleInput{
        UserID:          userFrom(r),
        TitleID:         id,
        AccountID:       req.AccountID,
        Date:            req.Date.Time,
        Principal:       req.Principal,
        Interest:        req.Interest,
        Discount:        req.Discount,
        ResponsibleUser: actorFrom(r, req.ResponsibleUser),
    })
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusCreated, res)
}

// POST /v1/settlements/reconcile
// Records are written independently; a partial batch answers 207 with the count.
func (s *Server) reconcileSettlements(w http.ResponseWriter, r *http.Request) {
    var req reconcileSettlementsRequest
    if !decodeJSON(w, r, &req) { return }
    refs := make([]storage.SettlementRef, 0, len(req.Items))
    for _, it := range req.Items {
        refs = append(refs, storage.SettlementRef{TitleID: it.TitleID, SettlementID: it.SettlementID})
    }
    n, err := s.reconSvc.ReconcileSettlements(r.Context(), userFrom(r), refs, req.Reconciled)
    s.writeBatch(w, len(refs), n, err)
}

func (s *Server) writeBatch(w http.ResponseWriter, requested, updated int, err error) {
    if err == nil {
        toJSON(w, http.StatusOK, batchResult{Requested: requested, Updated: updated})
        return
    }
    if updated == 0 { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusMultiStatus, batchResult{Requested: requested, Updated: updated, Error: err.Error()})
}
