// Package report derives the read-only reports from titles and unified
// transactions: aging, receivables forecast, portfolio position, category
// analysis, the cash-flow statement (DRE), the chart-of-accounts tree and the
// chart series. Nothing here touches storage.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/money"
)

// AgingBucket groups overdue titles by days past due.
type AgingBucket struct {
	Label   string         `json:"label"`
	MinDays int            `json:"min_days"`
	MaxDays int            `json:"max_days,omitempty"`
	Total   money.Cents    `json:"total"`
	Titles  []ledger.Title `json:"titles"`
}

// Aging is the delinquency report.
type Aging struct {
	Buckets []AgingBucket `json:"buckets"`
	Total   money.Cents   `json:"total"`
}

// AgingFor buckets open titles due before today: up to 30, 31 to 60, 61 to 90
// and over 90 days past due. Totals use the outstanding amount.
func AgingFor(titles []ledger.Title, today time.Time) Aging {
	today = ledger.Day(today)
	a := Aging{Buckets: []AgingBucket{
		{Label: "0-30", MinDays: 1, MaxDays: 30},
		{Label: "31-60", MinDays: 31, MaxDays: 60},
		{Label: "61-90", MinDays: 61, MaxDays: 90},
		{Label: "91+", MinDays: 91},
	}}
	for _, t := range titles {
		if !t.EffectiveStatus().Open() {
			continue
		}
		days := ledger.DaysBetween(t.DueDate, today)
		if days <= 0 {
			continue
		}
		i := 3
		switch {
		case days <= 30:
			i = 0
		case days <= 60:
			i = 1
		case days <= 90:
			i = 2
		}
		b := &a.Buckets[i]
		b.Titles = append(b.Titles, t)
		b.Total += t.Outstanding()
		a.Total += t.Outstanding()
	}
	return a
}

// ForecastMonth is the open amount due in one calendar month.
type ForecastMonth struct {
	Month  string      `json:"month"`
	Total  money.Cents `json:"total"`
	Titles int         `json:"titles"`
}

// Forecast groups Pending and Partial titles due today or later by month.
func Forecast(titles []ledger.Title, today time.Time) []ForecastMonth {
	today = ledger.Day(today)
	byMonth := map[string]*ForecastMonth{}
	for _, t := range titles {
		if st := t.EffectiveStatus(); st != ledger.StatusPending && st != ledger.StatusPartial {
			continue
		}
		if ledger.Day(t.DueDate).Before(today) {
			continue
		}
		key := ledger.MonthKey(t.DueDate)
		m, ok := byMonth[key]
		if !ok {
			m = &ForecastMonth{Month: key}
			byMonth[key] = m
		}
		m.Total += t.Outstanding()
		m.Titles++
	}
	out := make([]ForecastMonth, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Portfolio lists titles with the given status, ordered by due date. An empty
// status or "all" keeps every title.
func Portfolio(titles []ledger.Title, status string) []ledger.Title {
	status = strings.TrimSpace(status)
	out := make([]ledger.Title, 0, len(titles))
	for _, t := range titles {
		if status == "" || status == "all" || string(t.Status) == status {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out
}

// CategoryTotals is the per-category line of the category analysis.
type CategoryTotals struct {
	Category    string      `json:"category"`
	Original    money.Cents `json:"original"`
	Settled     money.Cents `json:"settled"`
	Outstanding money.Cents `json:"outstanding"`
}

// ByCategory totals titles per chart-of-accounts name, largest original first.
// Split titles are skipped since their installments carry the amounts.
func ByCategory(titles []ledger.Title, chart map[string]ledger.ChartAccount) []CategoryTotals {
	byName := map[string]*CategoryTotals{}
	for _, t := range titles {
		if t.Status == ledger.StatusSplit {
			continue
		}
		name := uncategorized
		if c, ok := chart[t.CategoryID]; ok && c.Name != "" {
			name = c.Name
		}
		c, ok := byName[name]
		if !ok {
			c = &CategoryTotals{Category: name}
			byName[name] = c
		}
		c.Original += t.Original
		c.Settled += t.TotalSettled
		if t.Status != ledger.StatusSettled {
			c.Outstanding += t.Outstanding()
		}
	}
	out := make([]CategoryTotals, 0, len(byName))
	for _, c := range byName {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Original != out[j].Original {
			return out[i].Original > out[j].Original
		}
		return out[i].Category < out[j].Category
	})
	return out
}

const uncategorized = "Uncategorized"
