package postgres

import (
    "context"
    "errors"
    "time"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"

    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/money"
    "github.com/tinoosan/cashflow/internal/storage"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
    Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
    QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// --- Titles ---

const titleCols = `id, user_id, kind, description, counterparty, due_date, category_id, original, status,
    total_settled, total_interest, total_discount, remaining, created_at`

func scanTitle(row pgx.Row) (ledger.Title, error) {
    var (
        t                                     ledger.Title
        kind, status                          string
        original, settled, interest, discount int64
        remaining                             *int64
    )
    if err := row.Scan(&t.ID, &t.UserID, &kind, &t.Description, &t.Counterparty, &t.DueDate, &t.CategoryID,
        &original, &status, &settled, &interest, &discount, &remaining, &t.CreatedAt); err != nil {
        return ledger.Title{}, err
    }
    t.Kind, t.Status = ledger.TitleKind(kind), ledger.Status(status)
    t.Original, t.TotalSettled = money.Cents(original), money.Cents(settled)
    t.TotalInterest, t.TotalDiscount = money.Cents(interest), money.Cents(discount)
    if remaining != nil {
        r := money.Cents(*remaining)
        t.Remaining = &r
    }
    return t, nil
}

func remainingArg(t ledger.Title) *int64 {
    if t.Remaining == nil { return nil }
    r := int64(*t.Remaining)
    return &r
}

// ListTitles returns a user's payables or receivables ordered by due date.
func (s *Store) ListTitles(ctx context.Context, userID uuid.UUID, kind ledger.TitleKind) ([]ledger.Title, error) {
    rows, err := s.pool.Query(ctx, `select `+titleCols+` from titles where user_id = $1 and kind = $2 order by due_date, id`, userID, string(kind))
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Title, 0)
    for rows.Next() {
        t, err := scanTitle(rows)
        if err != nil { return nil, err }
        out = append(out, t)
    }
    return out, rows.Err()
}

func (s *Store) GetTitle(ctx context.Context, userID, id uuid.UUID) (ledger.Title, error) {
    return getTitle(ctx, s.pool, userID, id, false)
}

func getTitle(ctx context.Context, q querier, userID, id uuid.UUID, lock bool) (ledger.Title, error) {
    sql := `select ` + titleCols + ` from titles where id = $1 and user_id = $2`
    if lock { sql += ` for update` }
    t, err := scanTitle(q.QueryRow(ctx, sql, id, userID))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Title{}, errs.ErrNotFound }
    return t, err
}

// CreateTitle inserts a payable or receivable. An empty status becomes pending.
func (s *Store) CreateTitle(ctx context.Context, t ledger.Title) (ledger.Title, error) {
    if t.Status == "" { t.Status = ledger.StatusPending }
    if t.CreatedAt.IsZero() { t.CreatedAt = time.Now().UTC() }
    tx, err := s.pool.Begin(ctx)
    if err != nil { return ledger.Title{}, err }
    defer func() { _ = tx.Rollback(ctx) }()
    if err := ensureUser(ctx, tx, t.UserID); err != nil { return ledger.Title{}, err }
    if _, err := tx.Exec(ctx, `
        insert into titles (`+titleCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `, t.ID, t.UserID, string(t.Kind), t.Description, t.Counterparty, ledger.Day(t.DueDate), t.CategoryID,
        int64(t.Original), string(t.Status), int64(t.TotalSettled), int64(t.TotalInterest), int64(t.TotalDiscount),
        remainingArg(t), t.CreatedAt); err != nil {
        return ledger.Title{}, mapErr(err)
    }
    if err := tx.Commit(ctx); err != nil { return ledger.Title{}, mapErr(err) }
    return t, nil
}

// --- Settlements ---

const settlementCols = `s.id, s.title_id, s.user_id, s.kind, s.date, s.principal, s.interest, s.discount,
    coalesce(s.account_id, '00000000-0000-0000-0000-000000000000'::uuid), s.reconciled, s.reversed,
    s.responsible_user, s.reason, s.created_at`

func scanSettlement(row pgx.Row) (ledger.Settlement, error) {
    var (
        st                            ledger.Settlement
        kind                          string
        principal, interest, discount int64
    )
    if err := row.Scan(&st.ID, &st.TitleID, &st.UserID, &kind, &st.Date, &principal, &interest, &discount,
        &st.AccountID, &st.Reconciled, &st.Reversed, &st.ResponsibleUser, &st.Reason, &st.CreatedAt); err != nil {
        return ledger.Settlement{}, err
    }
    st.Kind = ledger.SettlementKind(kind)
    st.Principal, st.Interest, st.Discount = money.Cents(principal), money.Cents(interest), money.Cents(discount)
    return st, nil
}

func collectSettlements(rows pgx.Rows, err error) ([]ledger.Settlement, error) {
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Settlement, 0)
    for rows.Next() {
        st, err := scanSettlement(rows)
        if err != nil { return nil, err }
        out = append(out, st)
    }
    return out, rows.Err()
}

// ListSettlements returns every history record under titles of kind. Records
// whose title is gone are classified by their own kind so callers can drop them.
func (s *Store) ListSettlements(ctx context.Context, userID uuid.UUID, kind ledger.TitleKind) ([]ledger.Settlement, error) {
    return collectSettlements(s.pool.Query(ctx, `
        select `+settlementCols+`
        from settlements s
        left join titles t on t.id = s.title_id
        where s.user_id = $1
          and coalesce(t.kind, case s.kind when 'payment' then 'expense' when 'receipt' then 'revenue' end) = $2
        order by s.date, s.created_at
    `, userID, string(kind)))
}

// TitleHistory returns the settlement history of one title in date order.
func (s *Store) TitleHistory(ctx context.Context, userID, titleID uuid.UUID) ([]ledger.Settlement, error) {
    if _, err := s.GetTitle(ctx, userID, titleID); err != nil { return nil, err }
    return collectSettlements(s.pool.Query(ctx, `
        select `+settlementCols+`
        from settlements s
        where s.user_id = $1 and s.title_id = $2
        order by s.date, s.created_at
    `, userID, titleID))
}

// SetSettlementsReconciled writes the flag on each referenced settlement as
// one batch of independent updates. Missing records are reported with
// ErrNotFound after the rest are written.
func (s *Store) SetSettlementsReconciled(ctx context.Context, userID uuid.UUID, refs []storage.SettlementRef, value bool) (int, error) {
    if len(refs) == 0 { return 0, nil }
    b := &pgx.Batch{}
    for _, ref := range refs {
        b.Queue(`update settlements set reconciled = $1 where id = $2 and title_id = $3 and user_id = $4`,
            value, ref.SettlementID, ref.TitleID, userID)
    }
    return execBatch(s.pool.SendBatch(ctx, b), len(refs))
}

// execBatch drains n queued updates and counts the rows they touched.
func execBatch(br pgx.BatchResults, n int) (int, error) {
    defer br.Close()
    updated := 0
    var missing error
    for i := 0; i < n; i++ {
        ct, err := br.Exec()
        if err != nil { return updated, mapErr(err) }
        if ct.RowsAffected() == 0 {
            missing = errs.ErrNotFound
            continue
        }
        updated++
    }
    return updated, missing
}

// --- Transfers ---

// ListTransfers returns every transfer of a user in date order.
func (s *Store) ListTransfers(ctx context.Context, userID uuid.UUID) ([]ledger.Transfer, error) {
    rows, err := s.pool.Query(ctx, `
        select id, user_id, date, amount, from_account, to_account, description, reconciled, created_at
        from transfers
        where user_id = $1
        order by date, created_at
    `, userID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Transfer, 0)
    for rows.Next() {
        var tr ledger.Transfer
        var amount int64
        if err := rows.Scan(&tr.ID, &tr.UserID, &tr.Date, &amount, &tr.FromAccount, &tr.ToAccount, &tr.Description, &tr.Reconciled, &tr.CreatedAt); err != nil { return nil, err }
        tr.Amount = money.Cents(amount)
        out = append(out, tr)
    }
    return out, rows.Err()
}
