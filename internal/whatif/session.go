package whatif

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tinoosan/cashflow/internal/errs"
	"github.com/tinoosan/cashflow/internal/ledger"
)

// Session is the per-user working state of the dashboard: the scenario being
// edited, the scenario selected for comparison and the load generation.
type Session struct {
	mu           sync.Mutex
	items        []ledger.ScenarioItem
	comparison   []ledger.ScenarioItem
	comparisonID uuid.UUID
	gen          uint64
	cancel       context.CancelFunc
}

// Items returns a copy of the scenario being edited.
func (s *Session) Items() []ledger.ScenarioItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger.CloneItems(s.items)
}

// AddItems appends expanded items.
func (s *Session) AddItems(items ...ledger.ScenarioItem) {
	s.mu.Lock()
	s.items = append(s.items, items...)
	s.mu.Unlock()
}

// RemoveItem drops one item by id.
func (s *Session) RemoveItem(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}

// ReplaceItems swaps the edited scenario for a copy of items.
func (s *Session) ReplaceItems(items []ledger.ScenarioItem) {
	s.mu.Lock()
	s.items = ledger.CloneItems(items)
	s.mu.Unlock()
}

func (s *Session) Clear() { s.ReplaceItems(nil) }

// Comparison returns the compared scenario id and a copy of its items.
// The id is zero when nothing is selected.
func (s *Session) Comparison() (uuid.UUID, []ledger.ScenarioItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comparisonID, ledger.CloneItems(s.comparison)
}

// SetComparison selects one saved scenario for comparison, replacing any
// previous selection.
func (s *Session) SetComparison(id uuid.UUID, items []ledger.ScenarioItem) {
	s.mu.Lock()
	s.comparisonID = id
	s.comparison = ledger.CloneItems(items)
	s.mu.Unlock()
}

func (s *Session) ClearComparison() { s.SetComparison(uuid.Nil, nil) }

// Begin starts a new load. The previous in-flight load is cancelled; the
// returned context is cancelled when a newer load begins.
func (s *Session) Begin(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.gen++
	s.cancel = cancel
	return ctx, s.gen
}

// Current reports whether gen is still the latest load.
func (s *Session) Current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// Finish releases the context of load gen if it is still the latest.
func (s *Session) Finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Sessions hands out one Session per user.
type Sessions struct {
	mu sync.Mutex
	m  map[uuid.UUID]*Session
}

func NewSessions() *Sessions { return &Sessions{m: map[uuid.UUID]*Session{}} }

// Get returns the user's session, creating it on first use.
func (r *Sessions) Get(userID uuid.UUID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[userID]
	if !ok {
		s = &Session{}
		r.m[userID] = s
	}
	return s
}
