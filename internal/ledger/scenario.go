package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/tinoosan/cashflow/internal/money"
)

// ScenarioItem is one hypothetical future transaction.
type ScenarioItem struct {
	ID          uuid.UUID   `json:"id"`
	Kind        TitleKind   `json:"kind"`
	Description string      `json:"description"`
	Date        time.Time   `json:"date"`
	Amount      money.Cents `json:"amount"`
	// GroupID ties together the items expanded from one form submission.
	GroupID uuid.UUID `json:"group_id"`
}

// Scenario is a named, saved list of items.
type Scenario struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Name      string         `json:"name"`
	Items     []ScenarioItem `json:"items"`
	CreatedAt time.Time      `json:"created_at"`
}

// CloneItems returns a deep copy so callers never share backing arrays.
func CloneItems(items []ScenarioItem) []ScenarioItem {
	if items == nil {
		return nil
	}
	out := make([]ScenarioItem, len(items))
	copy(out, items)
	return out
}
