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

// txAttempts bounds retries of a transaction that lost a serialization race.
const txAttempts = 3

// RunTx runs fn inside a serializable transaction. Reads made through the Tx
// lock their rows. A serialization failure is retried; once attempts are
// exhausted it surfaces as errs.ErrConcurrentWrite.
func (s *Store) RunTx(ctx context.Context, fn storage.TxFunc) error {
    var err error
    for i := 0; i < txAttempts; i++ {
        err = s.runTxOnce(ctx, fn)
        if !errors.Is(err, errs.ErrConcurrentWrite) { return err }
    }
    return err
}

func (s *Store) runTxOnce(ctx context.Context, fn storage.TxFunc) error {
    tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
    if err != nil { return err }
    defer func() { _ = tx.Rollback(ctx) }()
    if err := fn(ctx, &pgTx{tx: tx}); err != nil { return mapErr(err) }
    return mapErr(tx.Commit(ctx))
}

// pgTx implements storage.Tx over a pgx transaction.
type pgTx struct{ tx pgx.Tx }

func (t *pgTx) GetBankAccount(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error) {
    a, err := scanBankAccount(t.tx.QueryRow(ctx, `select `+bankAccountCols+` from bank_accounts where id = $1 and user_id = $2`, id, userID))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.BankAccount{}, errs.ErrNotFound }
    return a, err
}

func (t *pgTx) GetMovement(ctx context.Context, userID, id uuid.UUID) (ledger.BankMovement, error) {
    return getMovement(ctx, t.tx, userID, id, true)
}

func (t *pgTx) GetTitle(ctx context.Context, userID, id uuid.UUID) (ledger.Title, error) {
    return getTitle(ctx, t.tx, userID, id, true)
}

func (t *pgTx) GetSettlement(ctx context.Context, userID, titleID, id uuid.UUID) (ledger.Settlement, error) {
    st, err := scanSettlement(t.tx.QueryRow(ctx, `
        select `+settlementCols+`
        from settlements s
        where s.id = $1 and s.title_id = $2 and s.user_id = $3
        for update
    `, id, titleID, userID))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Settlement{}, errs.ErrNotFound }
    return st, err
}

func (t *pgTx) InsertMovement(ctx context.Context, m ledger.BankMovement) error {
    if m.CreatedAt.IsZero() { m.CreatedAt = time.Now().UTC() }
    var originType *string
    var parent, record *uuid.UUID
    if m.Origin != nil {
        ot := string(m.Origin.Type)
        originType, parent, record = &ot, &m.Origin.ParentID, &m.Origin.RecordID
    }
    _, err := t.tx.Exec(ctx, `
        insert into bank_movements (id, user_id, account_id, date, amount, description, reconciled,
            reconciled_at, reconciled_by, reversed, origin_type, origin_parent_id, origin_record_id, created_at)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `, m.ID, m.UserID, m.AccountID, ledger.Day(m.Date), int64(m.Amount), m.Description, m.Reconciled,
        m.ReconciledAt, m.ReconciledBy, m.Reversed, originType, parent, record, m.CreatedAt)
    return mapErr(err)
}

func (t *pgTx) DeleteMovement(ctx context.Context, userID, id uuid.UUID) error {
    ct, err := t.tx.Exec(ctx, `delete from bank_movements where id = $1 and user_id = $2`, id, userID)
    if err != nil { return mapErr(err) }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    return nil
}

func (t *pgTx) InsertSettlement(ctx context.Context, st ledger.Settlement) error {
    if st.CreatedAt.IsZero() { st.CreatedAt = time.Now().UTC() }
    var account *uuid.UUID
    if st.AccountID != uuid.Nil { account = &st.AccountID }
    _, err := t.tx.Exec(ctx, `
        insert into settlements (id, title_id, user_id, kind, date, principal, interest, discount,
            account_id, reconciled, reversed, responsible_user, reason, created_at)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `, st.ID, st.TitleID, st.UserID, string(st.Kind), ledger.Day(st.Date), int64(st.Principal), int64(st.Interest),
        int64(st.Discount), account, st.Reconciled, st.Reversed, st.ResponsibleUser, st.Reason, st.CreatedAt)
    return mapErr(err)
}

func (t *pgTx) UpdateSettlement(ctx context.Context, st ledger.Settlement) error {
    ct, err := t.tx.Exec(ctx, `
        update settlements
        set reconciled = $1, reversed = $2, responsible_user = $3, reason = $4
        where id = $5 and title_id = $6 and user_id = $7
    `, st.Reconciled, st.Reversed, st.ResponsibleUser, st.Reason, st.ID, st.TitleID, st.UserID)
    if err != nil { return mapErr(err) }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    return nil
}

func (t *pgTx) UpdateTitle(ctx context.Context, ti ledger.Title) error {
    ct, err := t.tx.Exec(ctx, `
        update titles
        set status = $1, total_settled = $2, total_interest = $3, total_discount = $4, remaining = $5
        where id = $6 and user_id = $7
    `, string(ti.Status), int64(ti.TotalSettled), int64(ti.TotalInterest), int64(ti.TotalDiscount), remainingArg(ti), ti.ID, ti.UserID)
    if err != nil { return mapErr(err) }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    return nil
}

func (t *pgTx) GetTransfer(ctx context.Context, userID, id uuid.UUID) (ledger.Transfer, error) {
    var tr ledger.Transfer
    var amount int64
    err := t.tx.QueryRow(ctx, `
        select id, user_id, date, amount, from_account, to_account, description, reconciled, created_at
        from transfers
        where id = $1 and user_id = $2
        for update
    `, id, userID).Scan(&tr.ID, &tr.UserID, &tr.Date, &amount, &tr.FromAccount, &tr.ToAccount, &tr.Description, &tr.Reconciled, &tr.CreatedAt)
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Transfer{}, errs.ErrNotFound }
    if err != nil { return ledger.Transfer{}, err }
    tr.Amount = money.Cents(amount)
    return tr, nil
}

func (t *pgTx) InsertTransfer(ctx context.Context, tr ledger.Transfer) error {
    if tr.CreatedAt.IsZero() { tr.CreatedAt = time.Now().UTC() }
    _, err := t.tx.Exec(ctx, `
        insert into transfers (id, user_id, date, amount, from_account, to_account, description, reconciled, created_at)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, tr.ID, tr.UserID, ledger.Day(tr.Date), int64(tr.Amount), tr.FromAccount, tr.ToAccount, tr.Description, tr.Reconciled, tr.CreatedAt)
    return mapErr(err)
}

func (t *pgTx) DeleteTransfer(ctx context.Context, userID, id uuid.UUID) error {
    ct, err := t.tx.Exec(ctx, `delete from transfers where id = $1 and user_id = $2`, id, userID)
    if err != nil { return mapErr(err) }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    return nil
}
