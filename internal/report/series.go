package report

import (
	"sort"
	"time"

	"github.com/tinoosan/cashflow/internal/cashflow"
	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/money"
)

// MonthTotals is inflow and outflow in one calendar month.
type MonthTotals struct {
	Month   string      `json:"month"`
	Inflow  money.Cents `json:"inflow"`
	Outflow money.Cents `json:"outflow"`
}

// Monthly totals txs per month under filter. Realized and projected lines are
// each included only when their flag is set.
func Monthly(txs []cashflow.Transaction, filter cashflow.AccountFilter, showRealized, showProjected bool) []MonthTotals {
	byMonth := map[string]*MonthTotals{}
	for _, t := range txs {
		if t.IsRealized() && !showRealized {
			continue
		}
		if t.IsProjected() && !showProjected {
			continue
		}
		in, out, ok := t.Effect(filter)
		if !ok {
			continue
		}
		key := ledger.MonthKey(t.Date)
		m, found := byMonth[key]
		if !found {
			m = &MonthTotals{Month: key}
			byMonth[key] = m
		}
		m.Inflow += in
		m.Outflow += out
	}
	out := make([]MonthTotals, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Cumulative turns monthly totals into running sums.
func Cumulative(months []MonthTotals) []MonthTotals {
	out := make([]MonthTotals, len(months))
	var in, outflow money.Cents
	for i, m := range months {
		in += m.Inflow
		outflow += m.Outflow
		out[i] = MonthTotals{Month: m.Month, Inflow: in, Outflow: outflow}
	}
	return out
}

// DayBalance is the closing balance of one day with activity.
type DayBalance struct {
	Day     time.Time   `json:"day"`
	Balance money.Cents `json:"balance"`
}

// BalanceSeries is the day-by-day balance. LastRealized indexes the last day
// holding at least one realized line, or -1.
type BalanceSeries struct {
	Points       []DayBalance `json:"points"`
	LastRealized int          `json:"last_realized"`
}

// DailyBalance accumulates each day's net onto opening.
func DailyBalance(txs []cashflow.Transaction, opening money.Cents, filter cashflow.AccountFilter) BalanceSeries {
	type day struct {
		net      money.Cents
		realized bool
	}
	days := map[time.Time]*day{}
	for _, t := range txs {
		in, out, ok := t.Effect(filter)
		if !ok {
			continue
		}
		k := ledger.Day(t.Date)
		d, found := days[k]
		if !found {
			d = &day{}
			days[k] = d
		}
		d.net += in - out
		if t.IsRealized() {
			d.realized = true
		}
	}
	keys := make([]time.Time, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	s := BalanceSeries{Points: make([]DayBalance, 0, len(keys)), LastRealized: -1}
	bal := opening
	for i, k := range keys {
		bal += days[k].net
		s.Points = append(s.Points, DayBalance{Day: k, Balance: bal})
		if days[k].realized {
			s.LastRealized = i
		}
	}
	return s
}

// CategoryAmount is one entry of a ranking.
type CategoryAmount struct {
	Category string      `json:"category"`
	Amount   money.Cents `json:"amount"`
}

// Top lists the n largest inflow and outflow categories.
type Top struct {
	Inflows  []CategoryAmount `json:"inflows"`
	Outflows []CategoryAmount `json:"outflows"`
}

// TopCategories ranks categories by inflow and by outflow. Transfers are not
// categories and are skipped.
func TopCategories(txs []cashflow.Transaction, n int) Top {
	ins, outs := map[string]money.Cents{}, map[string]money.Cents{}
	for _, t := range txs {
		if t.Kind == cashflow.KindTransfer {
			continue
		}
		cat := t.Category
		if cat == "" {
			cat = uncategorized
		}
		if t.Inflow > 0 {
			ins[cat] += t.Inflow
		}
		if t.Outflow > 0 {
			outs[cat] += t.Outflow
		}
	}
	return Top{Inflows: rank(ins, n), Outflows: rank(outs, n)}
}

func rank(m map[string]money.Cents, n int) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(m))
	for c, a := range m {
		out = append(out, CategoryAmount{Category: c, Amount: a})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category < out[j].Category
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// MonthlyExpenses is outflow per category per month, the stacked expense chart.
type MonthlyExpenses struct {
	Month      string                 `json:"month"`
	Categories map[string]money.Cents `json:"categories"`
}

// ExpensesByCategory splits outflows by month and category.
func ExpensesByCategory(txs []cashflow.Transaction) []MonthlyExpenses {
	byMonth := map[string]map[string]money.Cents{}
	for _, t := range txs {
		if t.Outflow <= 0 {
			continue
		}
		key := ledger.MonthKey(t.Date)
		if byMonth[key] == nil {
			byMonth[key] = map[string]money.Cents{}
		}
		cat := t.Category
		if cat == "" {
			cat = uncategorized
		}
		byMonth[key][cat] += t.Outflow
	}
	out := make([]MonthlyExpenses, 0, len(byMonth))
	for k, cats := range byMonth {
		out = append(out, MonthlyExpenses{Month: k, Categories: cats})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
