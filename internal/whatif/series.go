package whatif

import (
	"sort"
	"time"

	"github.com/tinoosan/cashflow/internal/cashflow"
	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/money"
)

const (
	simulatedPrefix  = "(Simulated) "
	comparisonPrefix = "(Compared) "
)

// Overlay converts scenario items into ledger lines. Comparison lines are
// tagged separately so balances can be projected for both scenarios at once.
func Overlay(items []ledger.ScenarioItem, comparison bool) []cashflow.Transaction {
	kind, prefix, label := cashflow.KindSimulated, simulatedPrefix, "Simulation"
	if comparison {
		kind, prefix, label = cashflow.KindComparison, comparisonPrefix, "Comparison"
	}
	out := make([]cashflow.Transaction, 0, len(items))
	for _, it := range items {
		tx := cashflow.Transaction{
			ID:           it.ID,
			ParentID:     it.GroupID,
			Kind:         kind,
			Date:         ledger.Day(it.Date),
			DueDate:      ledger.Day(it.Date),
			Description:  prefix + it.Description,
			Counterparty: label,
			Category:     label,
			Activity:     ledger.ActivityOperating,
		}
		if it.Kind == ledger.TitleRevenue {
			tx.Inflow = it.Amount
		} else {
			tx.Outflow = it.Amount
		}
		out = append(out, tx)
	}
	return out
}

// Point is one day of the balance evolution.
type Point struct {
	Day        time.Time   `json:"day"`
	Realized   money.Cents `json:"realized"`
	Projected  money.Cents `json:"projected"`
	Simulated  money.Cents `json:"simulated"`
	Comparison money.Cents `json:"comparison"`
}

// Series is the parallel running balances per day.
type Series struct {
	Opening            money.Cents `json:"opening"`
	IncludeProjections bool        `json:"include_projections"`
	Points             []Point     `json:"points"`
}

// Final returns the last point, or a flat point at the opening balance.
func (s Series) Final() Point {
	if len(s.Points) == 0 {
		return Point{Realized: s.Opening, Projected: s.Opening, Simulated: s.Opening, Comparison: s.Opening}
	}
	return s.Points[len(s.Points)-1]
}

// Merge overlays the scenario and comparison items on base and builds the series.
func Merge(base []cashflow.Transaction, scenario, comparison []ledger.ScenarioItem, opening money.Cents, includeProjections bool) Series {
	all := make([]cashflow.Transaction, 0, len(base)+len(scenario)+len(comparison))
	all = append(all, base...)
	all = append(all, Overlay(scenario, false)...)
	all = append(all, Overlay(comparison, true)...)
	cashflow.SortByDate(all)
	return Build(all, opening, includeProjections, cashflow.AllAccounts())
}

// Build computes the daily series over lines already merged and sorted.
// Realized accumulates realized lines; Projected adds projections to it.
// Simulated and Comparison accumulate their own deltas on top of Projected
// when includeProjections is set, else on top of Realized.
func Build(txs []cashflow.Transaction, opening money.Cents, includeProjections bool, filter cashflow.AccountFilter) Series {
	type delta struct{ realized, projected, simulated, comparison money.Cents }
	days := make([]time.Time, 0)
	byDay := map[time.Time]*delta{}
	for _, t := range txs {
		net := t.Net(filter)
		if _, _, counted := t.Effect(filter); !counted {
			continue
		}
		d := ledger.Day(t.Date)
		cur, ok := byDay[d]
		if !ok {
			cur = &delta{}
			byDay[d] = cur
			days = append(days, d)
		}
		switch {
		case t.IsComparison():
			cur.comparison += net
		case t.IsSimulated():
			cur.simulated += net
		case t.IsProjected():
			cur.projected += net
		default:
			cur.realized += net
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	s := Series{Opening: opening, IncludeProjections: includeProjections, Points: make([]Point, 0, len(days))}
	realized, projected := opening, opening
	var sim, cmp money.Cents
	for _, d := range days {
		c := byDay[d]
		realized += c.realized
		projected += c.realized + c.projected
		sim += c.simulated
		cmp += c.comparison
		base := realized
		if includeProjections {
			base = projected
		}
		s.Points = append(s.Points, Point{Day: d, Realized: realized, Projected: projected, Simulated: base + sim, Comparison: base + cmp})
	}
	return s
}
