package dictionary

import "github.com/tinoosan/cashflow/internal/ledger"

type LabelDef struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

var statusLabels = map[ledger.TitleKind][]LabelDef{
	ledger.TitleExpense: {
		{Code: string(ledger.StatusPending), Label: "Pending"},
		{Code: string(ledger.StatusOverdue), Label: "Overdue"},
		{Code: string(ledger.StatusPartial), Label: "Partially paid"},
		{Code: string(ledger.StatusSettled), Label: "Paid"},
		{Code: string(ledger.StatusSplit), Label: "Split"},
	},
	ledger.TitleRevenue: {
		{Code: string(ledger.StatusPending), Label: "Pending"},
		{Code: string(ledger.StatusOverdue), Label: "Overdue"},
		{Code: string(ledger.StatusPartial), Label: "Partially received"},
		{Code: string(ledger.StatusSettled), Label: "Received"},
		{Code: string(ledger.StatusSplit), Label: "Split"},
	},
}

var activityLabels = []LabelDef{
	{Code: string(ledger.ActivityOperating), Label: "Operating activities"},
	{Code: string(ledger.ActivityInvesting), Label: "Investing activities"},
	{Code: string(ledger.ActivityFinancing), Label: "Financing activities"},
}

// StatusesFor returns status labels for a title kind; nil means both kinds.
func StatusesFor(k *ledger.TitleKind) map[ledger.TitleKind][]LabelDef {
	out := map[ledger.TitleKind][]LabelDef{}
	for kind, list := range statusLabels {
		if k != nil && *k != kind {
			continue
		}
		out[kind] = list
	}
	return out
}

// StatusLabel returns the human label for a status of a title kind.
func StatusLabel(k ledger.TitleKind, s ledger.Status) string {
	for _, d := range statusLabels[k] {
		if d.Code == string(s) {
			return d.Label
		}
	}
	return string(s)
}

func Activities() []LabelDef { return activityLabels }

// ActivityLabel returns the DRE section heading for an activity.
func ActivityLabel(a ledger.Activity) string {
	for _, d := range activityLabels {
		if d.Code == string(a) {
			return d.Label
		}
	}
	return string(a)
}
