// Package whatif turns hypothetical entries into dated scenario items and
// projects them on top of the cash-flow ledger. Nothing here writes to the
// financial records; saved scenarios live in their own store.
package whatif

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/cashflow/internal/errs"
	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/money"
)

// Mode is how the entered amount is spread over time.
type Mode string

const (
	ModeSingle      Mode = "single"
	ModeInstallment Mode = "installment"
	ModeRecurring   Mode = "recurring"
)

// Frequency is the cadence of a recurring entry.
type Frequency string

const (
	Monthly    Frequency = "monthly"
	Bimonthly  Frequency = "bimonthly"
	Quarterly  Frequency = "quarterly"
	Semiannual Frequency = "semiannual"
	Annual     Frequency = "annual"
)

// Months returns the cadence in months. Unknown values fall back to monthly.
func (f Frequency) Months() int {
	switch f {
	case Bimonthly:
		return 2
	case Quarterly:
		return 3
	case Semiannual:
		return 6
	case Annual:
		return 12
	default:
		return 1
	}
}

// MaxItems bounds how many items one entry may expand into.
const MaxItems = 360

// Input is the what-if form.
type Input struct {
	Kind        ledger.TitleKind `json:"kind"`
	Description string           `json:"description"`
	Amount      money.Cents      `json:"amount"`
	Start       time.Time        `json:"start"`
	Mode        Mode             `json:"mode"`
	// Installments applies to ModeInstallment.
	Installments int `json:"installments,omitempty"`
	// Occurrences and Frequency apply to ModeRecurring.
	Occurrences int       `json:"occurrences,omitempty"`
	Frequency   Frequency `json:"frequency,omitempty"`
}

func (in Input) validate() error {
	if in.Kind != ledger.TitleExpense && in.Kind != ledger.TitleRevenue {
		return errs.Invalid("kind", "must be expense or revenue")
	}
	if strings.TrimSpace(in.Description) == "" {
		return errs.Invalid("description", "required")
	}
	if in.Amount <= 0 {
		return errs.Invalid("amount", "must be greater than zero")
	}
	if in.Start.IsZero() {
		return errs.Invalid("start", "required")
	}
	switch in.Mode {
	case ModeSingle, "":
	case ModeInstallment:
		if in.Installments <= 0 || in.Installments > MaxItems {
			return errs.Invalid("installments", fmt.Sprintf("must be between 1 and %d", MaxItems))
		}
	case ModeRecurring:
		if in.Occurrences <= 0 || in.Occurrences > MaxItems {
			return errs.Invalid("occurrences", fmt.Sprintf("must be between 1 and %d", MaxItems))
		}
	default:
		return errs.Invalid("mode", "must be single, installment or recurring")
	}
	return nil
}

// Expand produces the dated items for one form submission, in date order.
// Installments are the amount over N rounded to the cent and the last one
// takes the remainder, so the items always sum to the amount entered.
func Expand(in Input) ([]ledger.ScenarioItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	desc := strings.TrimSpace(in.Description)
	start := ledger.Day(in.Start)
	group := uuid.New()
	item := func(date time.Time, amount money.Cents, label string) ledger.ScenarioItem {
		return ledger.ScenarioItem{ID: uuid.New(), Kind: in.Kind, Description: label, Date: date, Amount: amount, GroupID: group}
	}

	switch in.Mode {
	case ModeInstallment:
		n := in.Installments
		each := installmentAmount(in.Amount, n)
		out := make([]ledger.ScenarioItem, 0, n)
		for i := 0; i < n; i++ {
			amt := each
			if i == n-1 {
				amt = in.Amount - each*money.Cents(n-1)
			}
			out = append(out, item(ledger.AddMonths(start, i), amt, fmt.Sprintf("%s (Installment %d/%d)", desc, i+1, n)))
		}
		return out, nil
	case ModeRecurring:
		n := in.Occurrences
		step := in.Frequency.Months()
		out := make([]ledger.ScenarioItem, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, item(ledger.AddMonths(start, i*step), in.Amount, fmt.Sprintf("%s (Occurrence %d/%d)", desc, i+1, n)))
		}
		return out, nil
	default:
		return []ledger.ScenarioItem{item(start, in.Amount, desc)}, nil
	}
}

// installmentAmount rounds total/n half up. When rounding up would leave the
// last installment negative it falls back to the floor.
func installmentAmount(total money.Cents, n int) money.Cents {
	each := (total + money.Cents(n/2)) / money.Cents(n)
	if each*money.Cents(n-1) > total {
		each = total / money.Cents(n)
	}
	return each
}
