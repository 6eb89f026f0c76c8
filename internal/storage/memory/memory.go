package memory

// Package memory provides an in-memory implementation used for development and tests.
// It honours the same contracts as the Postgres store: atomic RunTx, batched
// writes, conditional notification inserts and live movement subscriptions.
import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/storage"
)

// Store is guarded by an RWMutex for concurrent reads/writes.
type Store struct {
    mu            sync.RWMutex
    users         map[uuid.UUID]struct{}
    accounts      map[uuid.UUID]ledger.BankAccount
    titles        map[uuid.UUID]ledger.Title
    settlements   map[uuid.UUID]ledger.Settlement
    transfers     map[uuid.UUID]ledger.Transfer
    movements     map[uuid.UUID]ledger.BankMovement
    chart         map[uuid.UUID]map[string]ledger.ChartAccount
    notifications map[uuid.UUID]map[string]ledger.Notification
    scenarios     map[uuid.UUID]ledger.Scenario

    subMu   sync.Mutex
    subs    map[int]*subscription
    nextSub int

    now func() time.Time
}

// New constructs an empty in-memory store.
func New() *Store {
    s := &Store{subs: map[int]*subscription{}, now: time.Now}
    s.Reset()
    return s
}

// Reset drops all data. Subscriptions stay registered.
func (s *Store) Reset() {
    s.mu.Lock()
    s.users = map[uuid.UUID]struct{}{}
    s.accounts = map[uuid.UUID]ledger.BankAccount{}
    s.titles = map[uuid.UUID]ledger.Title{}
    s.settlements = map[uuid.UUID]ledger.Settlement{}
    s.transfers = map[uuid.UUID]ledger.Transfer{}
    s.movements = map[uuid.UUID]ledger.BankMovement{}
    s.chart = map[uuid.UUID]map[string]ledger.ChartAccount{}
    s.notifications = map[uuid.UUID]map[string]ledger.Notification{}
    s.scenarios = map[uuid.UUID]ledger.Scenario{}
    s.mu.Unlock()
}

// Seed helpers for local dev/tests.
func (s *Store) SeedUser(u ledger.User)                { s.mu.Lock(); s.users[u.ID] = struct{}{}; s.mu.Unlock() }
func (s *Store) SeedBankAccount(a ledger.BankAccount)  { s.mu.Lock(); s.accounts[a.ID] = a; s.mu.Unlock() }
func (s *Store) SeedTitle(t ledger.Title)              { s.mu.Lock(); s.titles[t.ID] = cloneTitle(t); s.mu.Unlock() }
func (s *Store) SeedSettlement(st ledger.Settlement)   { s.mu.Lock(); s.settlements[st.ID] = st; s.mu.Unlock() }
func (s *Store) SeedTransfer(t ledger.Transfer)        { s.mu.Lock(); s.transfers[t.ID] = t; s.mu.Unlock() }
func (s *Store) SeedChartAccount(c ledger.ChartAccount) {
    s.mu.Lock()
    if s.chart[c.UserID] == nil { s.chart[c.UserID] = map[string]ledger.ChartAccount{} }
    s.chart[c.UserID][c.ID] = c
    s.mu.Unlock()
}
func (s *Store) SeedMovement(m ledger.BankMovement) {
    s.mu.Lock()
    s.movements[m.ID] = cloneMovement(m)
    s.mu.Unlock()
    s.publish(m.UserID, m.AccountID)
}

// ListUsers returns every known user id.
func (s *Store) ListUsers(_ context.Context) ([]uuid.UUID, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make([]uuid.UUID, 0, len(s.users))
    for id := range s.users { out = append(out, id) }
    sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
    return out, nil
}

// --- Bank accounts ---

func (s *Store) ListBankAccounts(_ context.Context, userID uuid.UUID) ([]ledger.BankAccount, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make([]ledger.BankAccount, 0)
    for _, a := range s.accounts {
        if a.UserID == userID { out = append(out, a) }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
    return out, nil
}

func (s *Store) GetBankAccount(_ context.Context, userID, id uuid.UUID) (ledger.BankAccount, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    a, ok := s.accounts[id]
    if !ok || a.UserID != userID { return ledger.BankAccount{}, errs.ErrNotFound }
    return a, nil
}

func (s *Store) CreateBankAccount(_ context.Context, a ledger.BankAccount) (ledger.BankAccount, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    if _, ok := s.accounts[a.ID]; ok { return ledger.BankAccount{}, errs.ErrConflict }
    if a.CreatedAt.IsZero() { a.CreatedAt = s.now().UTC() }
    s.users[a.UserID] = struct{}{}
    s.accounts[a.ID] = a
    return a, nil
}

// RenameBankAccount changes the display name; the opening balance is immutable.
func (s *Store) RenameBankAccount(_ context.Context, userID, id uuid.UUID, name string) (ledger.BankAccount, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    a, ok := s.accounts[id]
    if !ok || a.UserID != userID { return ledger.BankAccount{}, errs.ErrNotFound }
    a.Name = name
    s.accounts[id] = a
    return a, nil
}

// --- Titles and settlements ---

func (s *Store) ListTitles(_ context.Context, userID uuid.UUID, kind ledger.TitleKind) ([]ledger.Title, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make([]ledger.Title, 0)
    for _, t := range s.titles {
        if t.UserID == userID && t.Kind == kind { out = append(out, cloneTitle(t)) }
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].DueDate.Equal(out[j].DueDate) { return out[i].DueDate.Before(out[j].DueDate) }
        return out[i].ID.String() < out[j].ID.String()
    })
    return out, nil
}

func (s *Store) GetTitle(_ context.Context, userID, id uuid.UUID) (ledger.Title, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    t, ok := s.titles[id]
    if !ok || t.UserID != userID { return ledger.Title{}, errs.ErrNotFound }
    return cloneTitle(t), nil
}

func (s *Store) CreateTitle(_ context.Context, t ledger.Title) (ledger.Title, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    if _, ok := s.titles[t.ID]; ok { return ledger.Title{}, errs.ErrConflict }
    if t.Status == "" { t.Status = ledger.StatusPending }
    if t.CreatedAt.IsZero() { t.CreatedAt = s.now().UTC() }
    s.users[t.UserID] = struct{}{}
    s.titles[t.ID] = cloneTitle(t)
    return cloneTitle(t), nil
}

// ListSettlements returns every history record under titles of kind: the
// equivalent of a collection-group query, filtered by date in the caller.
func (s *Store) ListSettlements(_ context.Context, userID uuid.UUID, kind ledger.TitleKind) ([]ledger.Settlement, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make([]ledger.Settlement, 0)
    for _, st := range s.settlements {
        if st.UserID != userID { continue }
        if k, ok := s.settlementTitleKindLocked(st); !ok || k != kind { continue }
        out = append(out, st)
    }
    sortSettlements(out)
    return out, nil
}

// TitleHistory returns the settlement history of one title in date order.
func (s *Store) TitleHistory(_ context.Context, userID, titleID uuid.UUID) ([]ledger.Settlement, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    if t, ok := s.titles[titleID]; !ok || t.UserID != userID { return nil, errs.ErrNotFound }
    out := make([]ledger.Settlement, 0)
    for _, st := range s.settlements {
        if st.TitleID == titleID { out = append(out, st) }
    }
    sortSettlements(out)
    return out, nil
}

// SetSettlementsReconciled writes the flag on each referenced settlement.
// Writes are independent: missing records are skipped and reported.
func (s *Store) SetSettlementsReconciled(_ context.Context, userID uuid.UUID, refs []storage.SettlementRef, value bool) (int, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    n := 0
    var missing error
    for _, ref := range refs {
        st, ok := s.settlements[ref.SettlementID]
        if !ok || st.UserID != userID || st.TitleID != ref.TitleID {
            missing = errs.ErrNotFound
            continue
        }
        st.Reconciled = value
        s.settlements[st.ID] = st
        n++
    }
    return n, missing
}

// --- Transfers ---

func (s *Store) ListTransfers(_ context.Context, userID uuid.UUID) ([]ledger.Transfer, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make([]ledger.Transfer, 0)
    for _, t := range s.transfers {
        if t.UserID == userID { out = append(out, t) }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
    return out, nil
}

// --- Chart of accounts ---

func (s *Store) ListChart(_ context.Context, userID uuid.UUID) ([]ledger.ChartAccount, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make([]ledger.ChartAccount, 0, len(s.chart[userID]))
    for _, c := range s.chart[userID] { out = append(out, c) }
    sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
    return out, nil
}

func (s *Store) PutChartAccount(_ context.Context, c ledger.ChartAccount) (ledger.ChartAccount, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    if s.chart[c.UserID] == nil { s.chart[c.UserID] = map[string]ledger.ChartAccount{} }
    s.chart[c.UserID][c.ID] = c
    return c, nil
}

// settlementTitleKindLocked resolves which collection a settlement belongs to.
// Orphans fall back to their own kind so the unifier can drop them.
func (s *Store) settlementTitleKindLocked(st ledger.Settlement) (ledger.TitleKind, bool) {
    if t, ok := s.titles[st.TitleID]; ok { return t.Kind, true }
    switch st.Kind {
    case ledger.SettlementPayment:
        return ledger.TitleExpense, true
    case ledger.SettlementReceipt:
        return ledger.TitleRevenue, true
    }
    return "", false
}

func cloneTitle(t ledger.Title) ledger.Title {
    if t.Remaining != nil {
        r := *t.Remaining
        t.Remaining = &r
    }
    return t
}

func cloneMovement(m ledger.BankMovement) ledger.BankMovement {
    if m.Origin != nil {
        o := *m.Origin
        m.Origin = &o
    }
    if m.ReconciledAt != nil {
        at := *m.ReconciledAt
        m.ReconciledAt = &at
    }
    return m
}

func sortSettlements(in []ledger.Settlement) {
    sort.Slice(in, func(i, j int) bool {
        if !in[i].Date.Equal(in[j].Date) { return in[i].Date.Before(in[j].Date) }
        return in[i].CreatedAt.Before(in[j].CreatedAt)
    })
}
