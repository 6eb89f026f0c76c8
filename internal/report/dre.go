package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tinoosan/cashflow/internal/cashflow"
	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/money"
)

// DRELine is one category inside an activity section. Share is the category's
// net as a percentage of total inflow when positive, of total outflow when
// negative; it is nil when that total is zero.
type DRELine struct {
	Category string           `json:"category"`
	Net      money.Cents      `json:"net"`
	Share    *decimal.Decimal `json:"share,omitempty"`
}

// DRESection is the cash generated by one activity.
type DRESection struct {
	Activity ledger.Activity `json:"activity"`
	Inflow   money.Cents     `json:"inflow"`
	Outflow  money.Cents     `json:"outflow"`
	Net      money.Cents     `json:"net"`
	Lines    []DRELine       `json:"lines"`
}

// DRE is the cash-flow statement by activity.
type DRE struct {
	Sections     []DRESection `json:"sections"`
	TotalInflow  money.Cents  `json:"total_inflow"`
	TotalOutflow money.Cents  `json:"total_outflow"`
	NetCash      money.Cents  `json:"net_cash"`
}

var activityOrder = []ledger.Activity{ledger.ActivityOperating, ledger.ActivityInvesting, ledger.ActivityFinancing}

// BuildDRE groups txs by activity and category. Transfers are internal and
// left out. The three standard activities are always present.
func BuildDRE(txs []cashflow.Transaction) DRE {
	type acc struct {
		in, out money.Cents
		cats    map[string]money.Cents
	}
	sections := map[ledger.Activity]*acc{}
	for _, a := range activityOrder {
		sections[a] = &acc{cats: map[string]money.Cents{}}
	}
	var d DRE
	for _, t := range txs {
		if t.Kind == cashflow.KindTransfer {
			continue
		}
		activity := t.Activity
		if activity == "" {
			activity = ledger.ActivityOperating
		}
		s, ok := sections[activity]
		if !ok {
			s = &acc{cats: map[string]money.Cents{}}
			sections[activity] = s
		}
		cat := t.Category
		if cat == "" {
			cat = uncategorized
		}
		s.cats[cat] += t.Inflow - t.Outflow
		s.in += t.Inflow
		s.out += t.Outflow
		d.TotalInflow += t.Inflow
		d.TotalOutflow += t.Outflow
	}

	order := append([]ledger.Activity(nil), activityOrder...)
	var extra []ledger.Activity
	for a := range sections {
		if !isStandard(a) {
			extra = append(extra, a)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	order = append(order, extra...)

	for _, a := range order {
		s := sections[a]
		sec := DRESection{Activity: a, Inflow: s.in, Outflow: s.out, Net: s.in - s.out, Lines: make([]DRELine, 0, len(s.cats))}
		for cat, net := range s.cats {
			base := d.TotalOutflow
			if net > 0 {
				base = d.TotalInflow
			}
			sec.Lines = append(sec.Lines, DRELine{Category: cat, Net: net, Share: share(net, base)})
		}
		sort.Slice(sec.Lines, func(i, j int) bool { return sec.Lines[i].Category < sec.Lines[j].Category })
		d.Sections = append(d.Sections, sec)
		d.NetCash += sec.Net
	}
	return d
}

func isStandard(a ledger.Activity) bool {
	for _, s := range activityOrder {
		if s == a {
			return true
		}
	}
	return false
}

// share is |part| / |whole| * 100 rounded to two places.
func share(part, whole money.Cents) *decimal.Decimal {
	if whole == 0 {
		return nil
	}
	p := decimal.NewFromInt(int64(part.Abs())).
		Div(decimal.NewFromInt(int64(whole.Abs()))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return &p
}
