package memory

import (
    "context"
    "sort"
    "sync"
    "sync/atomic"

    "github.com/google/uuid"
    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/storage"
)

type subscription struct {
    user, account uuid.UUID
    fn            storage.MovementListener
    active        atomic.Bool
}

// ListMovements returns every movement of an account, ordered by date then creation.
func (s *Store) ListMovements(_ context.Context, userID, accountID uuid.UUID) ([]ledger.BankMovement, error) {
    return s.movementsFor(userID, accountID), nil
}

func (s *Store) GetMovement(_ context.Context, userID, id uuid.UUID) (ledger.BankMovement, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    m, ok := s.movements[id]
    if !ok || m.UserID != userID { return ledger.BankMovement{}, errs.ErrNotFound }
    return cloneMovement(m), nil
}

// SetMovementsReconciled is a batch of independent writes. Records that do not
// exist are skipped and reported with ErrNotFound after the rest are written.
func (s *Store) SetMovementsReconciled(_ context.Context, userID uuid.UUID, ids []uuid.UUID, rec storage.Reconciliation) (int, error) {
    s.mu.Lock()
    n := 0
    var missing error
    touched := map[uuid.UUID]struct{}{}
    for _, id := range ids {
        m, ok := s.movements[id]
        if !ok || m.UserID != userID {
            missing = errs.ErrNotFound
            continue
        }
        m.Reconciled = rec.Reconciled
        m.ReconciledBy = rec.By
        m.ReconciledAt = nil
        if rec.At != nil {
            at := *rec.At
            m.ReconciledAt = &at
        }
        s.movements[id] = m
        touched[m.AccountID] = struct{}{}
        n++
    }
    s.mu.Unlock()
    for acc := range touched { s.publish(userID, acc) }
    return n, missing
}

// SubscribeMovements delivers the account's movement list now and after every
// change until the returned cancel func is called.
func (s *Store) SubscribeMovements(_ context.Context, userID, accountID uuid.UUID, fn storage.MovementListener) (func(), error) {
    sub := &subscription{user: userID, account: accountID, fn: fn}
    sub.active.Store(true)
    s.subMu.Lock()
    id := s.nextSub
    s.nextSub++
    s.subs[id] = sub
    s.subMu.Unlock()

    fn(s.movementsFor(userID, accountID))

    var once sync.Once
    return func() {
        once.Do(func() {
            sub.active.Store(false)
            s.subMu.Lock()
            delete(s.subs, id)
            s.subMu.Unlock()
        })
    }, nil
}

// Subscribers reports the number of live subscriptions.
func (s *Store) Subscribers() int {
    s.subMu.Lock(); defer s.subMu.Unlock()
    return len(s.subs)
}

func (s *Store) publish(userID, accountID uuid.UUID) {
    s.subMu.Lock()
    targets := make([]*subscription, 0)
    for _, sub := range s.subs {
        if sub.user == userID && sub.account == accountID { targets = append(targets, sub) }
    }
    s.subMu.Unlock()
    if len(targets) == 0 { return }
    snapshot := s.movementsFor(userID, accountID)
    for _, sub := range targets {
        if sub.active.Load() { sub.fn(snapshot) }
    }
}

func (s *Store) movementsFor(userID, accountID uuid.UUID) []ledger.BankMovement {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make([]ledger.BankMovement, 0)
    for _, m := range s.movements {
        if m.UserID == userID && m.AccountID == accountID { out = append(out, cloneMovement(m)) }
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].Date.Equal(out[j].Date) { return out[i].Date.Before(out[j].Date) }
        return out[i].CreatedAt.Before(out[j].CreatedAt)
    })
    return out
}
