package postgres

import (
    "context"
    "errors"
    "sync"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"

    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/money"
    "github.com/tinoosan/cashflow/internal/storage"
)

// movementsChannel is fed by the bank_movements trigger with "user:account" payloads.
const movementsChannel = "bank_movements"

const movementCols = `id, user_id, account_id, date, amount, description, reconciled, reconciled_at,
    reconciled_by, reversed, origin_type, origin_parent_id, origin_record_id, created_at`

func scanMovement(row pgx.Row) (ledger.BankMovement, error) {
    var (
        m              ledger.BankMovement
        amount         int64
        originType     *string
        parent, record *uuid.UUID
    )
    if err := row.Scan(&m.ID, &m.UserID, &m.AccountID, &m.Date, &amount, &m.Description, &m.Reconciled, &m.ReconciledAt,
        &m.ReconciledBy, &m.Reversed, &originType, &parent, &record, &m.CreatedAt); err != nil {
        return ledger.BankMovement{}, err
    }
    m.Amount = money.Cents(amount)
    if originType != nil && parent != nil && record != nil {
        m.Origin = &ledger.Origin{Type: ledger.OriginType(*originType), ParentID: *parent, RecordID: *record}
    }
    return m, nil
}

func getMovement(ctx context.Context, q querier, userID, id uuid.UUID, lock bool) (ledger.BankMovement, error) {
    sql := `select ` + movementCols + ` from bank_movements where id = $1 and user_id = $2`
    if lock { sql += ` for update` }
    m, err := scanMovement(q.QueryRow(ctx, sql, id, userID))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.BankMovement{}, errs.ErrNotFound }
    return m, err
}

// ListMovements returns every movement of an account, ordered by date then creation.
func (s *Store) ListMovements(ctx context.Context, userID, accountID uuid.UUID) ([]ledger.BankMovement, error) {
    rows, err := s.pool.Query(ctx, `
        select `+movementCols+`
        from bank_movements
        where user_id = $1 and account_id = $2
        order by date, created_at
    `, userID, accountID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.BankMovement, 0)
    for rows.Next() {
        m, err := scanMovement(rows)
        if err != nil { return nil, err }
        out = append(out, m)
    }
    return out, rows.Err()
}

func (s *Store) GetMovement(ctx context.Context, userID, id uuid.UUID) (ledger.BankMovement, error) {
    return getMovement(ctx, s.pool, userID, id, false)
}

// SetMovementsReconciled writes the reconcile state of each movement as one
// batch of independent updates.
func (s *Store) SetMovementsReconciled(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, rec storage.Reconciliation) (int, error) {
    if len(ids) == 0 { return 0, nil }
    b := &pgx.Batch{}
    for _, id := range ids {
        b.Queue(`update bank_movements set reconciled = $1, reconciled_at = $2, reconciled_by = $3 where id = $4 and user_id = $5`,
            rec.Reconciled, rec.At, rec.By, id, userID)
    }
    return execBatch(s.pool.SendBatch(ctx, b), len(ids))
}

// SubscribeMovements delivers the account's movement list now and after every
// committed change until the returned cancel func is called. Each subscription
// holds one pooled connection listening on the bank_movements channel.
func (s *Store) SubscribeMovements(ctx context.Context, userID, accountID uuid.UUID, fn storage.MovementListener) (func(), error) {
    conn, err := s.pool.Acquire(ctx)
    if err != nil { return nil, err }
    if _, err := conn.Exec(ctx, `listen `+movementsChannel); err != nil {
        conn.Release()
        return nil, err
    }
    initial, err := s.ListMovements(ctx, userID, accountID)
    if err != nil {
        conn.Release()
        return nil, err
    }
    fn(initial)

    key := userID.String() + ":" + accountID.String()
    lctx, stop := context.WithCancel(context.Background())
    done := make(chan struct{})
    go func() {
        defer close(done)
        for {
            n, err := conn.Conn().WaitForNotification(lctx)
            if err != nil { return }
            if n.Payload != key { continue }
            ms, err := s.ListMovements(lctx, userID, accountID)
            if err != nil { continue }
            if lctx.Err() != nil { return }
            fn(ms)
        }
    }()

    var once sync.Once
    return func() {
        once.Do(func() {
            stop()
            <-done
            // the wait was interrupted mid-read; drop the connection instead of reusing it
            _ = conn.Conn().Close(context.Background())
            conn.Release()
        })
    }, nil
}
