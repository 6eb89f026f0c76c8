package v1

import (
    "net/http"

    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/service/account"
)

// GET /v1/accounts
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
    accs, err := s.accountSvc.List(r.Context(), userFrom(r))
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, items(accs))
}

// POST /v1/accounts
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
    var req postAccountRequest
    if !decodeJSON(w, r, &req) { return }
    acc, err := s.accountSvc.Create(r.Context(), ledger.BankAccount{UserID: userFrom(r), Name: req.Name, OpeningBalance: req.OpeningBalance})
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusCreated, acc)
}

// POST /v1/accounts/batch creates all accounts or none.
func (s *Server) postAccountsBatch(w http.ResponseWriter, r *http.Request) {
    var req postAccountsBatchRequest
    if !decodeJSON(w, r, &req) { return }
    if len(req.Accounts) == 0 { badRequest(w, "accounts must not be empty"); return }
    specs := make([]ledger.BankAccount, 0, len(req.Accounts))
    for _, a := range req.Accounts {
        specs = append(specs, ledger.BankAccount{Name: a.Name, OpeningBalance: a.OpeningBalance})
    }
    created, itemErrs, err := s.accountSvc.CreateBatch(r.Context(), userFrom(r), specs)
    if err != nil { writeServiceErr(w, s.log, err); return }
    if len(itemErrs) > 0 {
        out := postAccountsBatchResponse{Accounts: []ledger.BankAccount{}}
        for _, ie := range itemErrs {
            out.Errors = append(out.Errors, batchItemError{Index: ie.Index, Code: ie.Code, Error: ie.Err.Error()})
        }
        toJSON(w, http.StatusUnprocessableEntity, out)
        return
    }
    toJSON(w, http.StatusCreated, postAccountsBatchResponse{Accounts: created})
}

// PATCH /v1/accounts/{id} renames an account. Sending a different opening
// balance is rejected.
func (s *Server) patchAccount(w http.ResponseWriter, r *http.Request) {
    id, err := idParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    var req patchAccountRequest
    if !decodeJSON(w, r, &req) { return }
    current, err := s.store.GetBankAccount(r.Context(), userFrom(r), id)
    if err != nil { writeServiceErr(w, s.log, err); return }
    next := current
    if req.Name != nil { next.Name = *req.Name }
    if req.OpeningBalance != nil { next.OpeningBalance = *req.OpeningBalance }
    acc, err := s.accountSvc.Update(r.Context(), next)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, acc)
}

// POST /v1/transfers
func (s *Server) postTransfer(w http.ResponseWriter, r *http.Request) {
    var req postTransferRequest
    if !decodeJSON(w, r, &req) { return }
    res, err := s.accountSvc.CreateTransfer(r.Context(), account.TransferInput{
        UserID:      userFrom(r),
        FromAccount: req.FromAccount,
        ToAccount:   req.ToAccount,
        Date:        req.Date.Time,
        Amount:      req.Amount,
        Description: req.Description,
    })
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusCreated, transferResponse{Transfer: res.Transfer, Outflow: res.Outflow, Inflow: res.Inflow})
}
