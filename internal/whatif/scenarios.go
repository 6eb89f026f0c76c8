package whatif

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/cashflow/internal/errs"
	"github.com/tinoosan/cashflow/internal/ledger"
)

// ScenarioStore persists named scenarios.
type ScenarioStore interface {
	SaveScenario(ctx context.Context, sc ledger.Scenario) (ledger.Scenario, error)
	ListScenarios(ctx context.Context, userID uuid.UUID) ([]ledger.Scenario, error)
	GetScenario(ctx context.Context, userID, id uuid.UUID) (ledger.Scenario, error)
	DeleteScenario(ctx context.Context, userID, id uuid.UUID) error
}

// Planner saves, loads and compares scenarios for a session.
type Planner struct {
	store ScenarioStore
}

func NewPlanner(store ScenarioStore) *Planner { return &Planner{store: store} }

// Save stores a copy of the session's items under name.
func (p *Planner) Save(ctx context.Context, userID uuid.UUID, sess *Session, name string) (ledger.Scenario, error) {
	name = strings.TrimSpace(name)
	if userID == uuid.Nil {
		return ledger.Scenario{}, errs.ErrInvalid
	}
	if name == "" {
		return ledger.Scenario{}, errs.Invalid("name", "required")
	}
	items := sess.Items()
	if len(items) == 0 {
		return ledger.Scenario{}, errs.Invalid("items", "scenario has no items")
	}
	return p.store.SaveScenario(ctx, ledger.Scenario{ID: uuid.New(), UserID: userID, Name: name, Items: items})
}

func (p *Planner) List(ctx context.Context, userID uuid.UUID) ([]ledger.Scenario, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return p.store.ListScenarios(ctx, userID)
}

// Load replaces the session's items with a copy of the saved scenario.
func (p *Planner) Load(ctx context.Context, userID uuid.UUID, sess *Session, id uuid.UUID) (ledger.Scenario, error) {
	sc, err := p.store.GetScenario(ctx, userID, id)
	if err != nil {
		return ledger.Scenario{}, err
	}
	sess.ReplaceItems(sc.Items)
	return sc, nil
}

// Compare selects a saved scenario for comparison. A zero id clears the selection.
func (p *Planner) Compare(ctx context.Context, userID uuid.UUID, sess *Session, id uuid.UUID) error {
	if id == uuid.Nil {
		sess.ClearComparison()
		return nil
	}
	sc, err := p.store.GetScenario(ctx, userID, id)
	if err != nil {
		return err
	}
	sess.SetComparison(sc.ID, sc.Items)
	return nil
}

// Delete removes a saved scenario and drops it from comparison if selected.
func (p *Planner) Delete(ctx context.Context, userID uuid.UUID, sess *Session, id uuid.UUID) error {
	if err := p.store.DeleteScenario(ctx, userID, id); err != nil {
		return err
	}
	if cur, _ := sess.Comparison(); cur == id {
		sess.ClearComparison()
	}
	return nil
}
