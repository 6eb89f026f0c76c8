package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the HTTP API and services.
//
// Migrations that create the expected schema live under db/migrations. This
// package maps between the domain entities and SQL rows and runs the
// statements and transactions.

import (
    "context"
    "errors"
    "time"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"
    "github.com/jackc/pgx/v5/pgxpool"

    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/money"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
    pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
    cfg, err := pgxpool.ParseConfig(dsn)
    if err != nil { return nil, err }
    pool, err := pgxpool.NewWithConfig(ctx, cfg)
    if err != nil { return nil, err }
    // Verify connection
    if err := pool.Ping(ctx); err != nil { pool.Close(); return nil, err }
    return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() { if s.pool != nil { s.pool.Close() } }

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// SeedDev inserts a user with two bank accounts, a small chart of accounts and
// one open payable for quick local testing. Fresh UUIDs make it repeatable.
func (s *Store) SeedDev(ctx context.Context) (ledger.User, []ledger.BankAccount, error) {
    tx, err := s.pool.Begin(ctx)
    if err != nil { return ledger.User{}, nil, err }
    defer func() { _ = tx.Rollback(ctx) }()
    user := ledger.User{ID: uuid.New()}
    if _, err := tx.Exec(ctx, `insert into users (id, email) values ($1, null)`, user.ID); err != nil { return ledger.User{}, nil, err }
    checking := ledger.BankAccount{ID: uuid.New(), UserID: user.ID, Name: "Checking", OpeningBalance: 100000}
    savings := ledger.BankAccount{ID: uuid.New(), UserID: user.ID, Name: "Savings", OpeningBalance: 250000}
    accs := []ledger.BankAccount{checking, savings}
    for _, a := range accs {
        if _, err := tx.Exec(ctx, `
            insert into bank_accounts (id, user_id, name, opening_balance)
            values ($1,$2,$3,$4)
        `, a.ID, a.UserID, a.Name, int64(a.OpeningBalance)); err != nil {
            return ledger.User{}, nil, err
        }
    }
    chart := []ledger.ChartAccount{
        {ID: "revenue", Code: "1", Name: "Operating revenue", Activity: ledger.ActivityOperating},
        {ID: "sales", Code: "1.1", ParentCode: "1", Name: "Sales", Activity: ledger.ActivityOperating, Leaf: true},
        {ID: "expenses", Code: "2", Name: "Operating expenses", Activity: ledger.ActivityOperating},
        {ID: "rent", Code: "2.1", ParentCode: "2", Name: "Rent", Activity: ledger.ActivityOperating, Leaf: true},
        {ID: "equipment", Code: "3", Name: "Equipment", Activity: ledger.ActivityInvesting, Leaf: true},
    }
    for _, c := range chart {
        if _, err := tx.Exec(ctx, `
            insert into chart_accounts (user_id, id, code, parent_code, name, activity, leaf)
            values ($1,$2,$3,$4,$5,$6,$7)
        `, user.ID, c.ID, c.Code, c.ParentCode, c.Name, string(c.Activity), c.Leaf); err != nil {
            return ledger.User{}, nil, err
        }
    }
    if _, err := tx.Exec(ctx, `
        insert into titles (id, user_id, kind, description, counterparty, due_date, category_id, original, status)
        values ($1,$2,'expense','Office rent','Landlord',$3,'rent',$4,'pending')
    `, uuid.New(), user.ID, ledger.Day(time.Now()).AddDate(0, 0, 2), int64(150000)); err != nil {
        return ledger.User{}, nil, err
    }
    if err := tx.Commit(ctx); err != nil { return ledger.User{}, nil, err }
    return user, accs, nil
}

// ListUsers returns every user id, used by the notification scheduler.
func (s *Store) ListUsers(ctx context.Context) ([]uuid.UUID, error) {
    rows, err := s.pool.Query(ctx, `select id from users order by id`)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]uuid.UUID, 0)
    for rows.Next() {
        var id uuid.UUID
        if err := rows.Scan(&id); err != nil { return nil, err }
        out = append(out, id)
    }
    return out, rows.Err()
}

// --- Bank accounts ---

const bankAccountCols = `id, user_id, name, opening_balance, created_at`

func scanBankAccount(row pgx.Row) (ledger.BankAccount, error) {
    var a ledger.BankAccount
    var opening int64
    if err := row.Scan(&a.ID, &a.UserID, &a.Name, &opening, &a.CreatedAt); err != nil { return ledger.BankAccount{}, err }
    a.OpeningBalance = money.Cents(opening)
    return a, nil
}

// ListBankAccounts returns all bank accounts for a user ordered by name.
func (s *Store) ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.BankAccount, error) {
    rows, err := s.pool.Query(ctx, `select `+bankAccountCols+` from bank_accounts where user_id = $1 order by name`, userID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.BankAccount, 0)
    for rows.Next() {
        a, err := scanBankAccount(rows)
        if err != nil { return nil, err }
        out = append(out, a)
    }
    return out, rows.Err()
}

// GetBankAccount fetches a single bank account by id for a user.
func (s *Store) GetBankAccount(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error) {
    a, err := scanBankAccount(s.pool.QueryRow(ctx, `select `+bankAccountCols+` from bank_accounts where id = $1 and user_id = $2`, id, userID))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.BankAccount{}, errs.ErrNotFound }
    return a, err
}

// CreateBankAccount inserts a bank account, registering its user on first use.
func (s *Store) CreateBankAccount(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error) {
    if a.CreatedAt.IsZero() { a.CreatedAt = time.Now().UTC() }
    tx, err := s.pool.Begin(ctx)
    if err != nil { return ledger.BankAccount{}, err }
    defer func() { _ = tx.Rollback(ctx) }()
    if err := ensureUser(ctx, tx, a.UserID); err != nil { return ledger.BankAccount{}, err }
    if _, err := tx.Exec(ctx, `
        insert into bank_accounts (id, user_id, name, opening_balance, created_at)
        values ($1,$2,$3,$4,$5)
    `, a.ID, a.UserID, a.Name, int64(a.OpeningBalance), a.CreatedAt); err != nil {
        return ledger.BankAccount{}, mapErr(err)
    }
    if err := tx.Commit(ctx); err != nil { return ledger.BankAccount{}, mapErr(err) }
    return a, nil
}

// RenameBankAccount changes the display name; the opening balance is never updated.
func (s *Store) RenameBankAccount(ctx context.Context, userID, id uuid.UUID, name string) (ledger.BankAccount, error) {
    a, err := scanBankAccount(s.pool.QueryRow(ctx, `
        update bank_accounts set name = $1
        where id = $2 and user_id = $3
        returning `+bankAccountCols, name, id, userID))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.BankAccount{}, errs.ErrNotFound }
    if err != nil { return ledger.BankAccount{}, mapErr(err) }
    return a, nil
}

// --- Chart of accounts ---

// ListChart returns the user's chart of accounts ordered by code.
func (s *Store) ListChart(ctx context.Context, userID uuid.UUID) ([]ledger.ChartAccount, error) {
    rows, err := s.pool.Query(ctx, `
        select id, user_id, code, parent_code, name, activity, leaf
        from chart_accounts
        where user_id = $1
        order by code
    `, userID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.ChartAccount, 0)
    for rows.Next() {
        var c ledger.ChartAccount
        var activity string
        if err := rows.Scan(&c.ID, &c.UserID, &c.Code, &c.ParentCode, &c.Name, &activity, &c.Leaf); err != nil { return nil, err }
        c.Activity = ledger.Activity(activity)
        out = append(out, c)
    }
    return out, rows.Err()
}

// PutChartAccount inserts or replaces one chart entry.
func (s *Store) PutChartAccount(ctx context.Context, c ledger.ChartAccount) (ledger.ChartAccount, error) {
    tx, err := s.pool.Begin(ctx)
    if err != nil { return ledger.ChartAccount{}, err }
    defer func() { _ = tx.Rollback(ctx) }()
    if err := ensureUser(ctx, tx, c.UserID); err != nil { return ledger.ChartAccount{}, err }
    if _, err := tx.Exec(ctx, `
        insert into chart_accounts (user_id, id, code, parent_code, name, activity, leaf)
        values ($1,$2,$3,$4,$5,$6,$7)
        on conflict (user_id, id) do update
        set code = excluded.code, parent_code = excluded.parent_code, name = excluded.name,
            activity = excluded.activity, leaf = excluded.leaf
    `, c.UserID, c.ID, c.Code, c.ParentCode, c.Name, string(c.Activity), c.Leaf); err != nil {
        return ledger.ChartAccount{}, err
    }
    if err := tx.Commit(ctx); err != nil { return ledger.ChartAccount{}, err }
    return c, nil
}

func ensureUser(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
    _, err := tx.Exec(ctx, `insert into users (id) values ($1) on conflict (id) do nothing`, id)
    return err
}

// mapErr translates Postgres error codes into domain sentinels.
func mapErr(err error) error {
    var pgErr *pgconn.PgError
    if !errors.As(err, &pgErr) { return err }
    switch pgErr.Code {
    case "23505":
        return errs.ErrConflict
    case "40001", "40P01":
        return errs.ErrConcurrentWrite
    case "23503", "23514":
        return errs.ErrInvalid
    }
    return err
}
