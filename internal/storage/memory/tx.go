package memory

import (
    "context"

    "github.com/google/uuid"
    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/storage"
)

// RunTx runs fn holding the write lock. Writes are staged on the tx and only
// applied to the store when fn returns nil, so a failing step leaves every
// record untouched.
func (s *Store) RunTx(ctx context.Context, fn storage.TxFunc) error {
    s.mu.Lock()
    tx := &memTx{
        s:           s,
        titles:      map[uuid.UUID]ledger.Title{},
        settlements: map[uuid.UUID]ledger.Settlement{},
        movements:   map[uuid.UUID]*ledger.BankMovement{},
        transfers:   map[uuid.UUID]*ledger.Transfer{},
    }
    if err := fn(ctx, tx); err != nil {
        s.mu.Unlock()
        return err
    }
    touched := tx.commitLocked()
    s.mu.Unlock()
    for _, k := range touched {
        s.publish(k.user, k.account)
    }
    return nil
}

type accountKey struct{ user, account uuid.UUID }

// memTx overlays staged writes on the locked store. A nil movement or transfer
// entry marks a delete.
type memTx struct {
    s           *Store
    titles      map[uuid.UUID]ledger.Title
    settlements map[uuid.UUID]ledger.Settlement
    movements   map[uuid.UUID]*ledger.BankMovement
    transfers   map[uuid.UUID]*ledger.Transfer
}

func (tx *memTx) GetBankAccount(_ context.Context, userID, id uuid.UUID) (ledger.BankAccount, error) {
    a, ok := tx.s.accounts[id]
    if !ok || a.UserID != userID { return ledger.BankAccount{}, errs.ErrNotFound }
    return a, nil
}

func (tx *memTx) GetMovement(_ context.Context, userID, id uuid.UUID) (ledger.BankMovement, error) {
    if m, staged := tx.movements[id]; staged {
        if m == nil || m.UserID != userID { return ledger.BankMovement{}, errs.ErrNotFound }
        return cloneMovement(*m), nil
    }
    m, ok := tx.s.movements[id]
    if !ok || m.UserID != userID { return ledger.BankMovement{}, errs.ErrNotFound }
    return cloneMovement(m), nil
}

func (tx *memTx) GetTitle(_ context.Context, userID, id uuid.UUID) (ledger.Title, error) {
    t, ok := tx.titles[id]
    if !ok { t, ok = tx.s.titles[id] }
    if !ok || t.UserID != userID { return ledger.Title{}, errs.ErrNotFound }
    return cloneTitle(t), nil
}

func (tx *memTx) GetSettlement(_ context.Context, userID, titleID, id uuid.UUID) (ledger.Settlement, error) {
    st, ok := tx.settlements[id]
    if !ok { st, ok = tx.s.settlements[id] }
    if !ok || st.UserID != userID || st.TitleID != titleID { return ledger.Settlement{}, errs.ErrNotFound }
    return st, nil
}

func (tx *memTx) InsertMovement(ctx context.Context, m ledger.BankMovement) error {
    if _, err := tx.GetMovement(ctx, m.UserID, m.ID); err == nil { return errs.ErrConflict }
    if m.CreatedAt.IsZero() { m.CreatedAt = tx.s.now().UTC() }
    c := cloneMovement(m)
    tx.movements[m.ID] = &c
    return nil
}

func (tx *memTx) DeleteMovement(ctx context.Context, userID, id uuid.UUID) error {
    if _, err := tx.GetMovement(ctx, userID, id); err != nil { return err }
    tx.movements[id] = nil
    return nil
}

func (tx *memTx) InsertSettlement(_ context.Context, st ledger.Settlement) error {
    if _, ok := tx.settlements[st.ID]; ok { return errs.ErrConflict }
    if _, ok := tx.s.settlements[st.ID]; ok { return errs.ErrConflict }
    if st.CreatedAt.IsZero() { st.CreatedAt = tx.s.now().UTC() }
    tx.settlements[st.ID] = st
    return nil
}

func (tx *memTx) UpdateSettlement(ctx context.Context, st ledger.Settlement) error {
    if _, err := tx.GetSettlement(ctx, st.UserID, st.TitleID, st.ID); err != nil { return err }
    tx.settlements[st.ID] = st
    return nil
}

func (tx *memTx) UpdateTitle(ctx context.Context, t ledger.Title) error {
    if _, err := tx.GetTitle(ctx, t.UserID, t.ID); err != nil { return err }
    tx.titles[t.ID] = cloneTitle(t)
    return nil
}

func (tx *memTx) GetTransfer(_ context.Context, userID, id uuid.UUID) (ledger.Transfer, error) {
    if t, staged := tx.transfers[id]; staged {
        if t == nil || t.UserID != userID { return ledger.Transfer{}, errs.ErrNotFound }
        return *t, nil
    }
    t, ok := tx.s.transfers[id]
    if !ok || t.UserID != userID { return ledger.Transfer{}, errs.ErrNotFound }
    return t, nil
}

func (tx *memTx) InsertTransfer(_ context.Context, t ledger.Transfer) error {
    if _, ok := tx.s.transfers[t.ID]; ok { return errs.ErrConflict }
    if _, ok := tx.transfers[t.ID]; ok { return errs.ErrConflict }
    if t.CreatedAt.IsZero() { t.CreatedAt = tx.s.now().UTC() }
    tx.transfers[t.ID] = &t
    return nil
}

func (tx *memTx) DeleteTransfer(ctx context.Context, userID, id uuid.UUID) error {
    if _, err := tx.GetTransfer(ctx, userID, id); err != nil { return err }
    tx.transfers[id] = nil
    return nil
}

// commitLocked applies staged writes and returns the accounts whose movements changed.
func (tx *memTx) commitLocked() []accountKey {
    s := tx.s
    for id, t := range tx.titles { s.titles[id] = t }
    for id, st := range tx.settlements { s.settlements[id] = st }
    for id, t := range tx.transfers {
        if t == nil {
            delete(s.transfers, id)
            continue
        }
        s.transfers[id] = *t
    }
    seen := map[accountKey]struct{}{}
    touched := make([]accountKey, 0)
    mark := func(m ledger.BankMovement) {
        k := accountKey{m.UserID, m.AccountID}
        if _, ok := seen[k]; ok { return }
        seen[k] = struct{}{}
        touched = append(touched, k)
    }
    for id, m := range tx.movements {
        if m == nil {
            if old, ok := s.movements[id]; ok {
                mark(old)
                delete(s.movements, id)
            }
            continue
        }
        s.movements[id] = *m
        mark(*m)
    }
    return touched
}
