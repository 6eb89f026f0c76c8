package postgres

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"

    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/meta"
)

// --- Notifications ---

const notificationCols = `id, user_id, related_id, type, title, message, metadata, link, read, pinned, important, cleared, created_at`

func scanNotification(row pgx.Row) (ledger.Notification, error) {
    var n ledger.Notification
    var typ string
    var mdBytes []byte
    if err := row.Scan(&n.ID, &n.UserID, &n.RelatedID, &typ, &n.Title, &n.Message, &mdBytes, &n.Link,
        &n.Read, &n.Pinned, &n.Important, &n.Cleared, &n.CreatedAt); err != nil {
        return ledger.Notification{}, err
    }
    n.Type = ledger.NotificationType(typ)
    if len(mdBytes) > 0 {
        var m meta.Metadata
        if err := m.UnmarshalJSON(mdBytes); err != nil { return ledger.Notification{}, fmt.Errorf("notification %s metadata: %w", n.ID, err) }
        n.Metadata = m
    }
    return n, nil
}

// CreateNotificationIfAbsent inserts n unless its id already exists for the
// user. The primary key makes the check and insert one atomic statement.
func (s *Store) CreateNotificationIfAbsent(ctx context.Context, n ledger.Notification) (bool, error) {
    if err := n.Metadata.Validate(); err != nil { return false, err }
    if n.CreatedAt.IsZero() { n.CreatedAt = time.Now().UTC() }
    md, err := n.Metadata.MarshalStableJSON()
    if err != nil { return false, fmt.Errorf("notification metadata: %w", err) }
    tx, err := s.pool.Begin(ctx)
    if err != nil { return false, err }
    defer func() { _ = tx.Rollback(ctx) }()
    if err := ensureUser(ctx, tx, n.UserID); err != nil { return false, err }
    ct, err := tx.Exec(ctx, `
        insert into notifications (`+notificationCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        on conflict (user_id, id) do nothing
    `, n.ID, n.UserID, n.RelatedID, string(n.Type), n.Title, n.Message, md, n.Link,
        n.Read, n.Pinned, n.Important, n.Cleared, n.CreatedAt)
    if err != nil { return false, err }
    if err := tx.Commit(ctx); err != nil { return false, err }
    return ct.RowsAffected() == 1, nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID) ([]ledger.Notification, error) {
    rows, err := s.pool.Query(ctx, `select `+notificationCols+` from notifications where user_id = $1 order by created_at desc`, userID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Notification, 0)
    for rows.Next() {
        n, err := scanNotification(rows)
        if err != nil { return nil, err }
        out = append(out, n)
    }
    return out, rows.Err()
}

func (s *Store) GetNotification(ctx context.Context, userID uuid.UUID, id string) (ledger.Notification, error) {
    n, err := scanNotification(s.pool.QueryRow(ctx, `select `+notificationCols+` from notifications where user_id = $1 and id = $2`, userID, id))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Notification{}, errs.ErrNotFound }
    return n, err
}

// UpdateNotifications writes the panel flags of each notification in one batch.
func (s *Store) UpdateNotifications(ctx context.Context, userID uuid.UUID, ns []ledger.Notification) error {
    if len(ns) == 0 { return nil }
    b := &pgx.Batch{}
    for _, n := range ns {
        b.Queue(`update notifications set read = $1, pinned = $2, important = $3, cleared = $4 where user_id = $5 and id = $6`,
            n.Read, n.Pinned, n.Important, n.Cleared, userID, n.ID)
    }
    _, err := execBatch(s.pool.SendBatch(ctx, b), len(ns))
    return err
}

func (s *Store) DeleteNotification(ctx context.Context, userID uuid.UUID, id string) error {
    ct, err := s.pool.Exec(ctx, `delete from notifications where user_id = $1 and id = $2`, userID, id)
    if err != nil { return err }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    return nil
}
