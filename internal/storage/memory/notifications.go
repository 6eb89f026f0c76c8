package memory

import (
    "context"
    "sort"

    "github.com/google/uuid"
    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
)

// CreateNotificationIfAbsent inserts n unless a notification with the same id
// exists. The check and insert happen under one lock.
func (s *Store) CreateNotificationIfAbsent(_ context.Context, n ledger.Notification) (bool, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    byID := s.notifications[n.UserID]
    if byID == nil {
        byID = map[string]ledger.Notification{}
        s.notifications[n.UserID] = byID
    }
    if _, exists := byID[n.ID]; exists { return false, nil }
    if n.CreatedAt.IsZero() { n.CreatedAt = s.now().UTC() }
    n.Metadata = n.Metadata.Clone()
    byID[n.ID] = n
    return true, nil
}

func (s *Store) ListNotifications(_ context.Context, userID uuid.UUID) ([]ledger.Notification, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make([]ledger.Notification, 0, len(s.notifications[userID]))
    for _, n := range s.notifications[userID] {
        n.Metadata = n.Metadata.Clone()
        out = append(out, n)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
    return out, nil
}

func (s *Store) GetNotification(_ context.Context, userID uuid.UUID, id string) (ledger.Notification, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    n, ok := s.notifications[userID][id]
    if !ok { return ledger.Notification{}, errs.ErrNotFound }
    n.Metadata = n.Metadata.Clone()
    return n, nil
}

// UpdateNotifications writes each notification's flags independently.
func (s *Store) UpdateNotifications(_ context.Context, userID uuid.UUID, ns []ledger.Notification) error {
    s.mu.Lock(); defer s.mu.Unlock()
    var missing error
    for _, n := range ns {
        cur, ok := s.notifications[userID][n.ID]
        if !ok { missing = errs.ErrNotFound; continue }
        cur.Read, cur.Pinned, cur.Important, cur.Cleared = n.Read, n.Pinned, n.Important, n.Cleared
        s.notifications[userID][n.ID] = cur
    }
    return missing
}

func (s *Store) DeleteNotification(_ context.Context, userID uuid.UUID, id string) error {
    s.mu.Lock(); defer s.mu.Unlock()
    if _, ok := s.notifications[userID][id]; !ok { return errs.ErrNotFound }
    delete(s.notifications[userID], id)
    return nil
}
