package v1

import (
    "bufio"
    "bytes"
    "context"
    "crypto/hmac"
    "crypto/sha256"
    "encoding/base64"
    "encoding/json"
    "io"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/cashflow/internal/fetch"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/money"
    "github.com/tinoosan/cashflow/internal/storage/memory"
)

func testLogger() *slog.Logger {
    return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var today = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type env struct {
    store    *memory.Store
    h        http.Handler
    user     uuid.UUID
    checking ledger.BankAccount
}

func setup(t *testing.T) env {
    t.Helper()
    store := memory.New()
    user := ledger.User{ID: uuid.New()}
    store.SeedUser(user)
    checking := ledger.BankAccount{ID: uuid.New(), UserID: user.ID, Name: "Checking", OpeningBalance: 10000}
    store.SeedBankAccount(checking)
    h := New(store, nil, func() time.Time { return today }, testLogger()).Handler()
    return env{store: store, h: h, user: user.ID, checking: checking}
}

// url appends the user_id parameter to path.
func (e env) url(path string) string {
    sep := "?"
    if strings.Contains(path, "?") { sep = "&" }
    return path + sep + "user_id=" + e.user.String()
}

func (e env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
    t.Helper()
    var rdr io.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { t.Fatalf("marshal: %v", err) }
        rdr = bytes.NewReader(b)
    }
    req := httptest.NewRequest(method, e.url(path), rdr)
    if body != nil { req.Header.Set("Content-Type", "application/json") }
    rr := httptest.NewRecorder()
    e.h.ServeHTTP(rr, req)
    return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
    t.Helper()
    var v T
    if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
        t.Fatalf("decode %q: %v", rr.Body.String(), err)
    }
    return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
    t.Helper()
    if rr.Code != want {
        t.Fatalf("status: want %d, got %d body=%s", want, rr.Code, rr.Body.String())
    }
}

type errResp struct {
    Error string `json:"error"`
    Code  string `json:"code"`
    Field string `json:"field"`
}

func (e env) seedRent(t *testing.T, amount int64, due time.Time) ledger.Title {
    t.Helper()
    title := ledger.Title{ID: uuid.New(), UserID: e.user, Kind: ledger.TitleExpense, Description: "Rent", Counterparty: "Landlord", DueDate: due, Original: money.Cents(amount), Status: ledger.StatusPending}
    e.store.SeedTitle(title)
    return title
}

func TestHealthDictionaryAndMetrics(t *testing.T) {
    e := setup(t)

    req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
    rr := httptest.NewRecorder()
    e.h.ServeHTTP(rr, req)
    expectStatus(t, rr, http.StatusOK)

    req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
    rr = httptest.NewRecorder()
    e.h.ServeHTTP(rr, req)
    expectStatus(t, rr, http.StatusOK)

    // dictionary needs no user
    req = httptest.NewRequest(http.MethodGet, "/v1/dictionary/notifications", nil)
    rr = httptest.NewRecorder()
    e.h.ServeHTTP(rr, req)
    expectStatus(t, rr, http.StatusOK)
    defs := decode[struct{ Items []map[string]any }](t, rr)
    if len(defs.Items) != 6 {
        t.Fatalf("want 6 notification kinds, got %d", len(defs.Items))
    }

    req = httptest.NewRequest(http.MethodGet, "/v1/dictionary/statuses?kind=expense", nil)
    rr = httptest.NewRecorder()
    e.h.ServeHTTP(rr, req)
    expectStatus(t, rr, http.StatusOK)
    st := decode[struct {
        Items []struct {
            Kind     string `json:"kind"`
            Statuses []struct{ Code, Label string }
        } `json:"items"`
    }](t, rr)
    if len(st.Items) != 1 || st.Items[0].Kind != "expense" || len(st.Items[0].Statuses) != 5 {
        t.Fatalf("unexpected statuses: %+v", st)
    }

    req = httptest.NewRequest(http.MethodGet, "/v1/dictionary/statuses?kind=asset", nil)
    rr = httptest.NewRecorder()
    e.h.ServeHTTP(rr, req)
    expectStatus(t, rr, http.StatusUnprocessableEntity)

    req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
    rr = httptest.NewRecorder()
    e.h.ServeHTTP(rr, req)
    expectStatus(t, rr, http.StatusOK)
    if !strings.Contains(rr.Body.String(), "cashflow_http_requests_total") {
        t.Fatalf("metrics output missing request counter")
    }
}

func TestRequireUser(t *testing.T) {
    e := setup(t)
    for _, path := range []string{"/v1/accounts", "/v1/accounts?user_id=nope"} {
        req := httptest.NewRequest(http.MethodGet, path, nil)
        rr := httptest.NewRecorder()
        e.h.ServeHTTP(rr, req)
        expectStatus(t, rr, http.StatusBadRequest)
    }
    // header works as well as the query parameter
    req := httptest.NewRequest(http.MethodGet, "/v1/accounts", nil)
    req.Header.Set("X-User-ID", e.user.String())
    rr := httptest.NewRecorder()
    e.h.ServeHTTP(rr, req)
    expectStatus(t, rr, http.StatusOK)
}

func TestAccounts_CreateListPatch(t *testing.T) {
    e := setup(t)

    // wrong content type
    req := httptest.NewRequest(http.MethodPost, e.url("/v1/accounts"), strings.NewReader(`{"name":"Savings"}`))
    req.Header.Set("Content-Type", "text/plain")
    rr := httptest.NewRecorder()
    e.h.ServeHTTP(rr, req)
    expectStatus(t, rr, http.StatusUnsupportedMediaType)

    rr = e.do(t, http.MethodPost, "/v1/accounts", map[string]any{"name": "Savings", "opening_balance": 2500})
    expectStatus(t, rr, http.StatusCreated)
    savings := decode[ledger.BankAccount](t, rr)
    if savings.Name != "Savings" || savings.OpeningBalance != 2500 || savings.UserID != e.user {
        t.Fatalf("unexpected account: %+v", savings)
    }

    rr = e.do(t, http.MethodPost, "/v1/accounts", map[string]any{"name": "savings"})
    expectStatus(t, rr, http.StatusConflict)

    rr = e.do(t, http.MethodPost, "/v1/accounts", map[string]any{"name": "  "})
    expectStatus(t, rr, http.StatusUnprocessableEntity)
    if er := decode[errResp](t, rr); er.Field != "name" {
        t.Fatalf("want field name, got %+v", er)
    }

    rr = e.do(t, http.MethodPatch, "/v1/accounts/"+savings.ID.String(), map[string]any{"name": "Reserve"})
    expectStatus(t, rr, http.StatusOK)
    if got := decode[ledger.BankAccount](t, rr); got.Name != "Reserve" || got.OpeningBalance != 2500 {
        t.Fatalf("unexpected patched account: %+v", got)
    }

    rr = e.do(t, http.MethodPatch, "/v1/accounts/"+savings.ID.String(), map[string]any{"opening_balance": 1})
    expectStatus(t, rr, http.StatusUnprocessableEntity)

    rr = e.do(t, http.MethodPatch, "/v1/accounts/"+uuid.NewString(), map[string]any{"name": "Ghost"})
    expectStatus(t, rr, http.StatusNotFound)

    rr = e.do(t, http.MethodGet, "/v1/accounts", nil)
    expectStatus(t, rr, http.StatusOK)
    list := decode[struct{ Items []ledger.BankAccount }](t, rr)
    if len(list.Items) != 2 {
        t.Fatalf("want 2 accounts, got %d", len(list.Items))
    }
}

func TestAccounts_BatchIsAllOrNothing(t *testing.T) {
    e := setup(t)
    rr := e.do(t, http.MethodPost, "/v1/accounts/batch", map[string]any{"accounts": []map[string]any{
        {"name": "Cash"}, {"name": "checking"},
    }})
    expectStatus(t, rr, http.StatusUnprocessableEntity)
    out := decode[struct {
        Accounts []ledger.BankAccount `json:"accounts"`
        Errors   []struct {
            Index int    `json:"index"`
            Code  string `json:"code"`
        } `json:"errors"`
    }](t, rr)
    if len(out.Errors) != 1 || out.Errors[0].Index != 1 || out.Errors[0].Code != "conflict" {
        t.Fatalf("unexpected item errors: %+v", out.Errors)
    }

    rr = e.do(t, http.MethodGet, "/v1/accounts", nil)
    if list := decode[struct{ Items []ledger.BankAccount }](t, rr); len(list.Items) != 1 {
        t.Fatalf("batch must not create anything on failure, have %d accounts", len(list.Items))
    }

    rr = e.do(t, http.MethodPost, "/v1/accounts/batch", map[string]any{"accounts": []map[string]any{{"name": "Cash"}, {"name": "Savings"}}})
    expectStatus(t, rr, http.StatusCreated)
}

type statementResp struct {
    KPIs struct {
        Opening      int64 `json:"opening"`
        Inflow       int64 `json:"inflow"`
        Outflow      int64 `json:"outflow"`
        Closing      int64 `json:"closing"`
        Unreconciled int64 `json:"unreconciled"`
    } `json:"kpis"`
    Rows []struct {
        ID           uuid.UUID `json:"id"`
        Amount       int64     `json:"amount"`
        Reconciled   bool      `json:"reconciled"`
        ReconciledBy string    `json:"reconciled_by"`
        Balance      int64     `json:"balance"`
    } `json:"rows"`
}

func TestSettleReconcileAndReverse(t *testing.T) {
    e := setup(t)
    rent := e.seedRent(t, 5000, ledger.Date(2024, time.March, 5))

    rr := e.do(t, http.MethodPost, "/v1/titles/"+rent.ID.String()+"/settlements", map[string]any{
        "account_id": e.checking.ID, "date": "2024-03-05", "principal": 5000, "responsible_user": "ana",
    })
    expectStatus(t, rr, http.StatusCreated)
    settled := decode[struct {
        Settlement ledger.Settlement   `json:"settlement"`
        Movement   ledger.BankMovement `json:"movement"`
        Title      ledger.Title        `json:"title"`
    }](t, rr)
    if settled.Title.Status != ledger.StatusSettled || settled.Movement.Amount != -5000 {
        t.Fatalf("unexpected settle result: %+v", settled)
    }

    // a settled title takes no further payments
    rr = e.do(t, http.MethodPost, "/v1/titles/"+rent.ID.String()+"/settlements", map[string]any{
        "account_id": e.checking.ID, "date": "2024-03-06", "principal": 1,
    })
    expectStatus(t, rr, http.StatusConflict)

    rr = e.do(t, http.MethodPost, "/v1/titles/"+rent.ID.String()+"/settlements", map[string]any{
        "account_id": e.checking.ID, "date": "2024-03-06", "principal": 0,
    })
    expectStatus(t, rr, http.StatusUnprocessableEntity)

    rr = e.do(t, http.MethodGet, "/v1/accounts/"+e.checking.ID.String()+"/statement?start=2024-03-01&end=2024-03-31", nil)
    expectStatus(t, rr, http.StatusOK)
    st := decode[statementResp](t, rr)
    if len(st.Rows) != 1 || st.KPIs.Opening != 10000 || st.KPIs.Closing != 5000 || st.KPIs.Unreconciled != -5000 {
        t.Fatalf("unexpected statement: %+v", st)
    }
    mvID := st.Rows[0].ID

    rr = e.do(t, http.MethodPost, "/v1/movements/reconcile", map[string]any{"ids": []uuid.UUID{mvID}, "reconciled": true, "actor": "ana"})
    expectStatus(t, rr, http.StatusOK)
    if br := decode[batchResult](t, rr); br.Updated != 1 {
        t.Fatalf("want 1 updated, got %+v", br)
    }

    rr = e.do(t, http.MethodPost, "/v1/movements/actions", map[string]any{"ids": []uuid.UUID{mvID}})
    expectStatus(t, rr, http.StatusOK)
    acts := decode[struct {
        CanReconcile bool `json:"can_reconcile"`
        CanUndo      bool `json:"can_undo"`
        CanReverse   bool `json:"can_reverse"`
    }](t, rr)
    if acts.CanReconcile || !acts.CanUndo || !acts.CanReverse {
        t.Fatalf("unexpected actions: %+v", acts)
    }

    rr = e.do(t, http.MethodPost, "/v1/settlements/reconcile", map[string]any{"items": []map[string]any{
        {"title_id": rent.ID, "settlement_id": settled.Settlement.ID},
        {"title_id": rent.ID, "settlement_id": uuid.New()},
    }, "reconciled": true})
    expectStatus(t, rr, http.StatusMultiStatus)
    if br := decode[batchResult](t, rr); br.Requested != 2 || br.Updated != 1 || br.Error == "" {
        t.Fatalf("unexpected partial batch: %+v", br)
    }

    rr = e.do(t, http.MethodPost, "/v1/movements/"+mvID.String()+"/reverse?actor=bob", nil)
    expectStatus(t, rr, http.StatusOK)
    rev := decode[reversalResponse](t, rr)
    if rev.Manual || rev.Reversal == nil || rev.Reversal.Reason != "Reversed via bank reconciliation" || rev.Reversal.ResponsibleUser != "bob" {
        t.Fatalf("unexpected reversal: %+v", rev)
    }
    // due date has passed, so the title is overdue again
    if rev.Title == nil || rev.Title.Status != ledger.StatusOverdue {
        t.Fatalf("unexpected title after reversal: %+v", rev.Title)
    }

    rr = e.do(t, http.MethodPost, "/v1/movements/"+mvID.String()+"/reverse", nil)
    expectStatus(t, rr, http.StatusNotFound)

    rr = e.do(t, http.MethodGet, "/v1/titles/"+rent.ID.String()+"/history", nil)
    expectStatus(t, rr, http.StatusOK)
    hist := decode[struct{ Items []ledger.Settlement }](t, rr)
    if len(hist.Items) != 2 || !hist.Items[0].Reversed || hist.Items[1].Kind != ledger.SettlementReversal {
        t.Fatalf("unexpected history: %+v", hist.Items)
    }
}

func TestReverse_ManualMovementIsDeleted(t *testing.T) {
    e := setup(t)
    mv := ledger.BankMovement{ID: uuid.New(), UserID: e.user, AccountID: e.checking.ID, Date: ledger.Date(2024, time.March, 2), Amount: 700, Description: "Deposit"}
    e.store.SeedMovement(mv)

    rr := e.do(t, http.MethodPost, "/v1/movements/"+mv.ID.String()+"/reverse", nil)
    expectStatus(t, rr, http.StatusOK)
    if rev := decode[reversalResponse](t, rr); !rev.Manual || rev.Reversal != nil {
        t.Fatalf("unexpected manual reversal: %+v", rev)
    }
}

func TestReverse_MissingOrigin(t *testing.T) {
    e := setup(t)
    gone := uuid.New()
    mv := ledger.BankMovement{ID: uuid.New(), UserID: e.user, AccountID: e.checking.ID, Date: ledger.Date(2024, time.March, 2), Amount: -100,
        Origin: &ledger.Origin{Type: ledger.OriginPaymentExpense, ParentID: gone, RecordID: uuid.New()}}
    e.store.SeedMovement(mv)

    rr := e.do(t, http.MethodPost, "/v1/movements/"+mv.ID.String()+"/reverse", nil)
    expectStatus(t, rr, http.StatusNotFound)
    er := decode[errResp](t, rr)
    if er.Code != "origin_not_found" || !strings.Contains(er.Error, gone.String()) {
        t.Fatalf("unexpected error: %+v", er)
    }
    // nothing was deleted
    if _, err := e.store.GetMovement(context.Background(), e.user, mv.ID); err != nil {
        t.Fatalf("movement should survive a failed reversal: %v", err)
    }
}

func TestTransfers(t *testing.T) {
    e := setup(t)
    savings := ledger.BankAccount{ID: uuid.New(), UserID: e.user, Name: "Savings"}
    e.store.SeedBankAccount(savings)

    rr := e.do(t, http.MethodPost, "/v1/transfers", map[string]any{
        "from_account": e.checking.ID, "to_account": savings.ID, "date": "2024-03-04", "amount": 3000,
    })
    expectStatus(t, rr, http.StatusCreated)
    tr := decode[transferResponse](t, rr)
    if tr.Outflow.Amount != -3000 || tr.Inflow.Amount != 3000 || tr.Transfer.Description != "Transfer from Checking to Savings" {
        t.Fatalf("unexpected transfer: %+v", tr)
    }

    rr = e.do(t, http.MethodPost, "/v1/transfers", map[string]any{
        "from_account": e.checking.ID, "to_account": e.checking.ID, "date": "2024-03-04", "amount": 1,
    })
    expectStatus(t, rr, http.StatusUnprocessableEntity)

    // all accounts: transfers net out
    rr = e.do(t, http.MethodGet, "/v1/cashflow?start=2024-03-01&end=2024-03-31", nil)
    expectStatus(t, rr, http.StatusOK)
    all := decode[cashflowResponse](t, rr)
    if all.KPIs.Inflow != 0 || all.KPIs.Outflow != 0 || len(all.Rows) != 0 {
        t.Fatalf("transfers must not count under all accounts: %+v", all.KPIs)
    }

    rr = e.do(t, http.MethodGet, "/v1/cashflow?start=2024-03-01&end=2024-03-31&account="+savings.ID.String(), nil)
    expectStatus(t, rr, http.StatusOK)
    one := decode[cashflowResponse](t, rr)
    if one.KPIs.Inflow != 3000 || one.KPIs.Closing != 3000 {
        t.Fatalf("unexpected savings KPIs: %+v", one.KPIs)
    }

    // reversing either leg takes the whole transfer away
    rr = e.do(t, http.MethodPost, "/v1/movements/"+tr.Inflow.ID.String()+"/reverse", nil)
    expectStatus(t, rr, http.StatusOK)
    rev := decode[reversalResponse](t, rr)
    if rev.Manual || rev.Transfer == nil || rev.Transfer.ID != tr.Transfer.ID {
        t.Fatalf("unexpected reversal: %+v", rev)
    }
    for _, acc := range []uuid.UUID{e.checking.ID, savings.ID} {
        ms, _ := e.store.ListMovements(context.Background(), e.user, acc)
        if len(ms) != 0 { t.Fatalf("account %s still has %d movements", acc, len(ms)) }
    }
    rr = e.do(t, http.MethodGet, "/v1/cashflow?start=2024-03-01&end=2024-03-31&account="+savings.ID.String(), nil)
    expectStatus(t, rr, http.StatusOK)
    if one := decode[cashflowResponse](t, rr); one.KPIs.Inflow != 0 || one.KPIs.Closing != 0 {
        t.Fatalf("reversed transfer still counted: %+v", one.KPIs)
    }
}

type countingChartCache struct {
    m           map[uuid.UUID][]ledger.ChartAccount
    invalidated int
}

func (c *countingChartCache) GetChart(_ context.Context, id uuid.UUID) ([]ledger.ChartAccount, bool) {
    v, ok := c.m[id]
    return v, ok
}

func (c *countingChartCache) PutChart(_ context.Context, id uuid.UUID, v []ledger.ChartAccount) { c.m[id] = v }

func (c *countingChartCache) Invalidate(_ context.Context, id uuid.UUID) {
    c.invalidated++
    delete(c.m, id)
}

func TestChart_PutInvalidatesCache(t *testing.T) {
    e := setup(t)
    cache := &countingChartCache{m: map[uuid.UUID][]ledger.ChartAccount{}}
    e.h = New(e.store, fetch.New(e.store, fetch.WithChartCache(cache)), func() time.Time { return today }, testLogger()).Handler()

    rr := e.do(t, http.MethodGet, "/v1/chart", nil)
    expectStatus(t, rr, http.StatusOK)
    if got := decode[struct{ Items []ledger.ChartAccount }](t, rr); len(got.Items) != 0 {
        t.Fatalf("want empty chart, got %+v", got.Items)
    }

    rr = e.do(t, http.MethodPut, "/v1/chart/rent", map[string]any{"code": "2.1", "parent_code": "2", "name": "Rent", "activity": "operating", "leaf": true})
    expectStatus(t, rr, http.StatusOK)
    if cache.invalidated != 1 { t.Fatalf("chart write must invalidate the cache, got %d", cache.invalidated) }

    rr = e.do(t, http.MethodGet, "/v1/chart", nil)
    got := decode[struct{ Items []ledger.ChartAccount }](t, rr)
    if len(got.Items) != 1 || got.Items[0].ID != "rent" || got.Items[0].UserID != e.user {
        t.Fatalf("stale chart after write: %+v", got.Items)
    }

    rr = e.do(t, http.MethodPut, "/v1/chart/misc", map[string]any{"code": "9", "name": "Misc", "activity": "other"})
    expectStatus(t, rr, http.StatusUnprocessableEntity)
    if er := decode[errResp](t, rr); er.Field != "activity" {
        t.Fatalf("want field activity, got %+v", er)
    }
    if cache.invalidated != 1 { t.Fatalf("rejected write must not touch the cache") }
}

func TestCashflow_RealizedAndProjected(t *testing.T) {
    e := setup(t)
    rent := e.seedRent(t, 5000, ledger.Date(2024, time.March, 5))
    e.store.SeedTitle(ledger.Title{ID: uuid.New(), UserID: e.user, Kind: ledger.TitleRevenue, Description: "Invoice", Counterparty: "Acme",
        DueDate: ledger.Date(2024, time.March, 20), Original: 2000, Status: ledger.StatusPending})

    rr := e.do(t, http.MethodPost, "/v1/titles/"+rent.ID.String()+"/settlements", map[string]any{
        "account_id": e.checking.ID, "date": "2024-03-05", "principal": 5000,
    })
    expectStatus(t, rr, http.StatusCreated)

    rr = e.do(t, http.MethodGet, "/v1/cashflow?start=2024-03-01&end=2024-03-31", nil)
    expectStatus(t, rr, http.StatusOK)
    res := decode[cashflowResponse](t, rr)
    if res.Opening != 10000 || res.KPIs.Inflow != 2000 || res.KPIs.Outflow != 5000 || res.KPIs.Closing != 7000 {
        t.Fatalf("unexpected KPIs: opening=%d %+v", res.Opening, res.KPIs)
    }
    if len(res.Rows) != 2 || res.Rows[0].Balance != 5000 || res.Rows[1].Balance != 7000 {
        t.Fatalf("unexpected rows: %+v", res.Rows)
    }

    rr = e.do(t, http.MethodGet, "/v1/cashflow?start=2024-03-01&end=2024-03-31&show_projected=false", nil)
    res = decode[cashflowResponse](t, rr)
    if res.KPIs.Inflow != 0 || res.KPIs.Closing != 5000 {
        t.Fatalf("projections should be hidden: %+v", res.KPIs)
    }

    rr = e.do(t, http.MethodGet, "/v1/cashflow/opening-balance?cutoff=2024-04-01", nil)
    expectStatus(t, rr, http.StatusOK)
    if ob := decode[struct{ Balance int64 }](t, rr); ob.Balance != 5000 {
        t.Fatalf("opening balance: want 5000, got %d", ob.Balance)
    }

    rr = e.do(t, http.MethodGet, "/v1/cashflow/compare?start=2024-03-01&end=2024-03-31", nil)
    expectStatus(t, rr, http.StatusOK)
    cmp := decode[struct {
        PreviousStart string `json:"previous_start"`
        Current       struct{ Outflow int64 }
    }](t, rr)
    if !strings.HasPrefix(cmp.PreviousStart, "2024-01-30") || cmp.Current.Outflow != 5000 {
        t.Fatalf("unexpected comparison: %+v", cmp)
    }

    for _, bad := range []string{
        "/v1/cashflow?start=2024-03-01",
        "/v1/cashflow?start=2024-03-31&end=2024-03-01",
        "/v1/cashflow?start=2024-03-01&end=2024-03-31&reconciliation=maybe",
        "/v1/cashflow?start=2024-03-01&end=2024-03-31&account=savings",
    } {
        rr = e.do(t, http.MethodGet, bad, nil)
        expectStatus(t, rr, http.StatusUnprocessableEntity)
    }
}

func TestReports(t *testing.T) {
    e := setup(t)
    e.store.SeedTitle(ledger.Title{ID: uuid.New(), UserID: e.user, Kind: ledger.TitleExpense, Description: "Tax", Counterparty: "State",
        DueDate: ledger.Date(2024, time.February, 1), Original: 1000, Status: ledger.StatusOverdue})
    e.seedRent(t, 4000, ledger.Date(2024, time.April, 5))

    rr := e.do(t, http.MethodGet, "/v1/reports/aging?kind=expense", nil)
    expectStatus(t, rr, http.StatusOK)
    aging := decode[struct {
        Total   int64
        Buckets []struct {
            Label string
            Total int64
        }
    }](t, rr)
    if aging.Total != 1000 || aging.Buckets[1].Label != "31-60" || aging.Buckets[1].Total != 1000 {
        t.Fatalf("unexpected aging: %+v", aging)
    }

    rr = e.do(t, http.MethodGet, "/v1/reports/forecast?kind=expense", nil)
    expectStatus(t, rr, http.StatusOK)
    fc := decode[struct {
        Items []struct {
            Month string
            Total int64
        }
    }](t, rr)
    if len(fc.Items) != 1 || fc.Items[0].Month != "2024-04" || fc.Items[0].Total != 4000 {
        t.Fatalf("unexpected forecast: %+v", fc)
    }

    rr = e.do(t, http.MethodGet, "/v1/reports/portfolio?kind=expense&status=overdue", nil)
    expectStatus(t, rr, http.StatusOK)
    if p := decode[struct{ Items []ledger.Title }](t, rr); len(p.Items) != 1 || p.Items[0].Description != "Tax" {
        t.Fatalf("unexpected portfolio: %+v", p)
    }

    rr = e.do(t, http.MethodGet, "/v1/reports/aging?kind=asset", nil)
    expectStatus(t, rr, http.StatusUnprocessableEntity)

    rr = e.do(t, http.MethodGet, "/v1/reports/dre?start=2024-03-01&end=2024-03-31", nil)
    expectStatus(t, rr, http.StatusOK)
    if dre := decode[struct{ Sections []map[string]any }](t, rr); len(dre.Sections) != 3 {
        t.Fatalf("DRE always lists the three activities, got %d", len(dre.Sections))
    }

    rr = e.do(t, http.MethodGet, "/v1/reports/monthly?start=2024-01-01&end=2024-04-30&cumulative=true", nil)
    expectStatus(t, rr, http.StatusOK)

    rr = e.do(t, http.MethodGet, "/v1/reports/daily-balance?start=2024-03-01&end=2024-04-30", nil)
    expectStatus(t, rr, http.StatusOK)
    daily := decode[struct {
        Points []struct{ Balance int64 }
    }](t, rr)
    if len(daily.Points) != 1 || daily.Points[0].Balance != 6000 {
        t.Fatalf("unexpected daily balance: %+v", daily)
    }

    rr = e.do(t, http.MethodGet, "/v1/reports/export", nil)
    expectStatus(t, rr, http.StatusNotImplemented)
}

func TestWhatIf_ItemsAndScenarios(t *testing.T) {
    e := setup(t)

    rr := e.do(t, http.MethodPost, "/v1/whatif/items", map[string]any{
        "kind": "expense", "description": "Laptop", "amount": 1000, "start": "2024-03-31", "mode": "installment", "installments": 3,
    })
    expectStatus(t, rr, http.StatusCreated)
    added := decode[struct{ Items []ledger.ScenarioItem }](t, rr)
    if len(added.Items) != 3 || added.Items[2].Amount != 334 || !added.Items[1].Date.Equal(ledger.Date(2024, time.April, 30)) {
        t.Fatalf("unexpected installments: %+v", added.Items)
    }

    rr = e.do(t, http.MethodPost, "/v1/whatif/items", map[string]any{"kind": "expense", "description": "", "amount": 10, "start": "2024-03-31", "mode": "single"})
    expectStatus(t, rr, http.StatusUnprocessableEntity)

    rr = e.do(t, http.MethodGet, "/v1/cashflow?start=2024-03-01&end=2024-05-31", nil)
    expectStatus(t, rr, http.StatusOK)
    if res := decode[cashflowResponse](t, rr); res.KPIs.Outflow != 1000 {
        t.Fatalf("simulated items should reach the cash flow: %+v", res.KPIs)
    }

    rr = e.do(t, http.MethodPost, "/v1/whatif/scenarios", map[string]any{"name": "Laptop plan"})
    expectStatus(t, rr, http.StatusCreated)
    sc := decode[ledger.Scenario](t, rr)

    rr = e.do(t, http.MethodDelete, "/v1/whatif/items", nil)
    expectStatus(t, rr, http.StatusNoContent)
    rr = e.do(t, http.MethodPost, "/v1/whatif/scenarios", map[string]any{"name": "Empty"})
    expectStatus(t, rr, http.StatusUnprocessableEntity)

    rr = e.do(t, http.MethodPost, "/v1/whatif/scenarios/"+sc.ID.String()+"/load", nil)
    expectStatus(t, rr, http.StatusOK)
    rr = e.do(t, http.MethodGet, "/v1/whatif/items", nil)
    if got := decode[whatIfItemsResponse](t, rr); len(got.Items) != 3 {
        t.Fatalf("load should restore 3 items, got %d", len(got.Items))
    }

    rr = e.do(t, http.MethodDelete, "/v1/whatif/items/"+added.Items[0].ID.String(), nil)
    expectStatus(t, rr, http.StatusNoContent)
    rr = e.do(t, http.MethodDelete, "/v1/whatif/items/"+uuid.NewString(), nil)
    expectStatus(t, rr, http.StatusNotFound)

    rr = e.do(t, http.MethodPut, "/v1/whatif/comparison", map[string]any{"scenario_id": sc.ID})
    expectStatus(t, rr, http.StatusOK)
    cmp := decode[whatIfItemsResponse](t, rr)
    if cmp.ComparisonID == nil || *cmp.ComparisonID != sc.ID || len(cmp.Comparison) != 3 || len(cmp.Items) != 2 {
        t.Fatalf("unexpected comparison state: %+v", cmp)
    }

    rr = e.do(t, http.MethodDelete, "/v1/whatif/scenarios/"+sc.ID.String(), nil)
    expectStatus(t, rr, http.StatusNoContent)
    rr = e.do(t, http.MethodGet, "/v1/whatif/items", nil)
    if got := decode[whatIfItemsResponse](t, rr); got.ComparisonID != nil {
        t.Fatalf("deleting the compared scenario should clear the comparison")
    }
}

func TestNotifications(t *testing.T) {
    e := setup(t)
    e.seedRent(t, 900, ledger.Day(today))

    rr := e.do(t, http.MethodPost, "/v1/notifications/scan", nil)
    expectStatus(t, rr, http.StatusOK)
    if res := decode[struct{ Created, Existing int }](t, rr); res.Created != 1 {
        t.Fatalf("first scan: %+v", res)
    }
    rr = e.do(t, http.MethodPost, "/v1/notifications/scan", nil)
    if res := decode[struct{ Created, Existing int }](t, rr); res.Created != 0 || res.Existing != 1 {
        t.Fatalf("second scan must not duplicate: %+v", res)
    }

    rr = e.do(t, http.MethodGet, "/v1/notifications?type=due_today_payable", nil)
    expectStatus(t, rr, http.StatusOK)
    list := decode[struct{ Items []ledger.Notification }](t, rr)
    if len(list.Items) != 1 || list.Items[0].Type != ledger.NotifyDueTodayPayable {
        t.Fatalf("unexpected notifications: %+v", list.Items)
    }
    id := list.Items[0].ID

    rr = e.do(t, http.MethodGet, "/v1/notifications?type=bogus", nil)
    expectStatus(t, rr, http.StatusUnprocessableEntity)

    rr = e.do(t, http.MethodGet, "/v1/notifications/unread", nil)
    if c := decode[countResponse](t, rr); c.Count != 1 {
        t.Fatalf("unread: %d", c.Count)
    }
    rr = e.do(t, http.MethodPost, "/v1/notifications/"+id+"/read", nil)
    expectStatus(t, rr, http.StatusOK)
    rr = e.do(t, http.MethodGet, "/v1/notifications/unread", nil)
    if c := decode[countResponse](t, rr); c.Count != 0 {
        t.Fatalf("unread after mark read: %d", c.Count)
    }

    rr = e.do(t, http.MethodPost, "/v1/notifications/"+id+"/pin", nil)
    expectStatus(t, rr, http.StatusOK)
    if n := decode[ledger.Notification](t, rr); !n.Pinned {
        t.Fatalf("pin toggle did not stick")
    }

    // pinned entries survive a default clear
    rr = e.do(t, http.MethodPost, "/v1/notifications/clear", nil)
    expectStatus(t, rr, http.StatusOK)
    rr = e.do(t, http.MethodGet, "/v1/notifications/sidebar", nil)
    if sb := decode[struct{ Items []ledger.Notification }](t, rr); len(sb.Items) != 1 {
        t.Fatalf("pinned notification should stay in the sidebar")
    }

    rr = e.do(t, http.MethodGet, "/v1/notifications?grouped=true", nil)
    expectStatus(t, rr, http.StatusOK)
    if g := decode[struct{ Items []struct{ Label string } }](t, rr); len(g.Items) != 1 {
        t.Fatalf("unexpected groups: %+v", g)
    }

    rr = e.do(t, http.MethodDelete, "/v1/notifications/"+id, nil)
    expectStatus(t, rr, http.StatusNoContent)
    rr = e.do(t, http.MethodDelete, "/v1/notifications/"+id, nil)
    expectStatus(t, rr, http.StatusNotFound)
}

func TestStatementStream(t *testing.T) {
    e := setup(t)
    rent := e.seedRent(t, 5000, ledger.Date(2024, time.March, 5))
    srv := httptest.NewServer(e.h)
    defer srv.Close()

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+e.url("/v1/accounts/"+e.checking.ID.String()+"/statement/stream"), nil)
    resp, err := http.DefaultClient.Do(req)
    if err != nil { t.Fatalf("stream: %v", err) }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
        t.Fatalf("unexpected stream response: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
    }

    events := make(chan statementResp, 4)
    go func() {
        sc := bufio.NewScanner(resp.Body)
        sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
        for sc.Scan() {
            line := sc.Text()
            if !strings.HasPrefix(line, "data: ") { continue }
            var st statementResp
            if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &st) == nil { events <- st }
        }
        close(events)
    }()

    next := func() statementResp {
        t.Helper()
        select {
        case st, ok := <-events:
            if !ok { t.Fatal("stream closed early") }
            return st
        case <-time.After(3 * time.Second):
            t.Fatal("no statement event")
        }
        return statementResp{}
    }
    if first := next(); len(first.Rows) != 0 || first.KPIs.Closing != 10000 {
        t.Fatalf("unexpected initial statement: %+v", first)
    }

    rr := e.do(t, http.MethodPost, "/v1/titles/"+rent.ID.String()+"/settlements", map[string]any{
        "account_id": e.checking.ID, "date": "2024-03-05", "principal": 5000,
    })
    expectStatus(t, rr, http.StatusCreated)
    if second := next(); len(second.Rows) != 1 || second.KPIs.Closing != 5000 {
        t.Fatalf("unexpected statement after settle: %+v", second)
    }

    cancel()
    deadline := time.Now().Add(3 * time.Second)
    for e.store.Subscribers() != 0 {
        if time.Now().After(deadline) { t.Fatalf("subscription leaked after disconnect: %d", e.store.Subscribers()) }
        time.Sleep(10 * time.Millisecond)
    }
}

func signHS256(t *testing.T, secret string, claims map[string]any) string {
    t.Helper()
    enc := base64.RawURLEncoding
    hdr := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
    body, err := json.Marshal(claims)
    if err != nil { t.Fatalf("claims: %v", err) }
    payload := enc.EncodeToString(body)
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(hdr + "." + payload))
    return hdr + "." + payload + "." + enc.EncodeToString(mac.Sum(nil))
}

func TestJWT_SubjectBecomesActor(t *testing.T) {
    t.Setenv("JWT_HS256_SECRET", "s3cret")
    t.Setenv("JWT_ISSUER", "")
    t.Setenv("JWT_AUDIENCE", "cashflow")
    e := setup(t)
    mv := ledger.BankMovement{ID: uuid.New(), UserID: e.user, AccountID: e.checking.ID, Date: ledger.Date(2024, time.March, 2), Amount: 700}
    e.store.SeedMovement(mv)

    rr := e.do(t, http.MethodGet, "/v1/accounts", nil)
    expectStatus(t, rr, http.StatusUnauthorized)

    req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
    rr = httptest.NewRecorder()
    e.h.ServeHTTP(rr, req)
    expectStatus(t, rr, http.StatusOK)

    bad := signHS256(t, "s3cret", map[string]any{"sub": "ana", "aud": "other"})
    req = httptest.NewRequest(http.MethodGet, e.url("/v1/accounts"), nil)
    req.Header.Set("Authorization", "Bearer "+bad)
    rr = httptest.NewRecorder()
    e.h.ServeHTTP(rr, req)
    expectStatus(t, rr, http.StatusUnauthorized)

    tok := signHS256(t, "s3cret", map[string]any{"sub": "ana", "aud": "cashflow", "exp": time.Now().Add(time.Hour).Unix()})
    body, _ := json.Marshal(map[string]any{"ids": []uuid.UUID{mv.ID}, "reconciled": true, "actor": "mallory"})
    req = httptest.NewRequest(http.MethodPost, e.url("/v1/movements/reconcile"), bytes.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("Authorization", "Bearer "+tok)
    rr = httptest.NewRecorder()
    e.h.ServeHTTP(rr, req)
    expectStatus(t, rr, http.StatusOK)

    got, err := e.store.GetMovement(context.Background(), e.user, mv.ID)
    if err != nil || !got.Reconciled || got.ReconciledBy != "ana" {
        t.Fatalf("reconciled_by should come from the token: %+v %v", got, err)
    }
}
