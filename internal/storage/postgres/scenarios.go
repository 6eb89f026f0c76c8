package postgres

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"

    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
)

func scanScenario(row pgx.Row) (ledger.Scenario, error) {
    var sc ledger.Scenario
    var items []byte
    if err := row.Scan(&sc.ID, &sc.UserID, &sc.Name, &items, &sc.CreatedAt); err != nil { return ledger.Scenario{}, err }
    if len(items) > 0 {
        if err := json.Unmarshal(items, &sc.Items); err != nil { return ledger.Scenario{}, err }
    }
    return sc, nil
}

// SaveScenario inserts or replaces a saved what-if scenario; items are stored as jsonb.
func (s *Store) SaveScenario(ctx context.Context, sc ledger.Scenario) (ledger.Scenario, error) {
    if sc.CreatedAt.IsZero() { sc.CreatedAt = time.Now().UTC() }
    items, err := json.Marshal(sc.Items)
    if err != nil { return ledger.Scenario{}, err }
    tx, err := s.pool.Begin(ctx)
    if err != nil { return ledger.Scenario{}, err }
    defer func() { _ = tx.Rollback(ctx) }()
    if err := ensureUser(ctx, tx, sc.UserID); err != nil { return ledger.Scenario{}, err }
    if _, err := tx.Exec(ctx, `
        insert into scenarios (id, user_id, name, items, created_at)
        values ($1,$2,$3,$4,$5)
        on conflict (id) do update set name = excluded.name, items = excluded.items
    `, sc.ID, sc.UserID, sc.Name, items, sc.CreatedAt); err != nil {
        return ledger.Scenario{}, err
    }
    if err := tx.Commit(ctx); err != nil { return ledger.Scenario{}, err }
    return sc, nil
}

func (s *Store) ListScenarios(ctx context.Context, userID uuid.UUID) ([]ledger.Scenario, error) {
    rows, err := s.pool.Query(ctx, `select id, user_id, name, items, created_at from scenarios where user_id = $1 order by created_at`, userID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Scenario, 0)
    for rows.Next() {
        sc, err := scanScenario(rows)
        if err != nil { return nil, err }
        out = append(out, sc)
    }
    return out, rows.Err()
}

func (s *Store) GetScenario(ctx context.Context, userID, id uuid.UUID) (ledger.Scenario, error) {
    sc, err := scanScenario(s.pool.QueryRow(ctx, `select id, user_id, name, items, created_at from scenarios where id = $1 and user_id = $2`, id, userID))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Scenario{}, errs.ErrNotFound }
    return sc, err
}

func (s *Store) DeleteScenario(ctx context.Context, userID, id uuid.UUID) error {
    ct, err := s.pool.Exec(ctx, `delete from scenarios where id = $1 and user_id = $2`, id, userID)
    if err != nil { return err }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    return nil
}
