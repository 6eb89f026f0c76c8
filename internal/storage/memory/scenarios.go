package memory

import (
    "context"
    "sort"

    "github.com/google/uuid"
    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
)

func (s *Store) SaveScenario(_ context.Context, sc ledger.Scenario) (ledger.Scenario, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    if sc.CreatedAt.IsZero() { sc.CreatedAt = s.now().UTC() }
    sc.Items = ledger.CloneItems(sc.Items)
    s.scenarios[sc.ID] = sc
    sc.Items = ledger.CloneItems(sc.Items)
    return sc, nil
}

func (s *Store) ListScenarios(_ context.Context, userID uuid.UUID) ([]ledger.Scenario, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make([]ledger.Scenario, 0)
    for _, sc := range s.scenarios {
        if sc.UserID != userID { continue }
        sc.Items = ledger.CloneItems(sc.Items)
        out = append(out, sc)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
    return out, nil
}

func (s *Store) GetScenario(_ context.Context, userID, id uuid.UUID) (ledger.Scenario, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    sc, ok := s.scenarios[id]
    if !ok || sc.UserID != userID { return ledger.Scenario{}, errs.ErrNotFound }
    sc.Items = ledger.CloneItems(sc.Items)
    return sc, nil
}

func (s *Store) DeleteScenario(_ context.Context, userID, id uuid.UUID) error {
    s.mu.Lock(); defer s.mu.Unlock()
    sc, ok := s.scenarios[id]
    if !ok || sc.UserID != userID { return errs.ErrNotFound }
    delete(s.scenarios, id)
    return nil
}
