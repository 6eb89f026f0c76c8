package report

import (
	"sort"

	"github.com/tinoosan/cashflow/internal/cashflow"
	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/money"
)

// Node is one chart-of-accounts entry with its rolled-up net.
type Node struct {
	Code     string      `json:"code"`
	Name     string      `json:"name"`
	Own      money.Cents `json:"own"`
	Total    money.Cents `json:"total"`
	Children []*Node     `json:"children,omitempty"`
}

// ChartTree rolls txs up the chart of accounts. A node's total is its own net
// plus its children's totals. Roots are entries without a parent code; entries
// whose parent code does not exist are dropped with their subtree.
func ChartTree(chart []ledger.ChartAccount, txs []cashflow.Transaction) []*Node {
	byCode := make(map[string]*Node, len(chart))
	codeByID := make(map[string]string, len(chart))
	for _, c := range chart {
		if c.Code == "" {
			continue
		}
		byCode[c.Code] = &Node{Code: c.Code, Name: c.Name}
		codeByID[c.ID] = c.Code
	}
	for _, t := range txs {
		if t.Kind == cashflow.KindTransfer {
			continue
		}
		if n, ok := byCode[codeByID[t.CategoryID]]; ok {
			n.Own += t.Inflow - t.Outflow
		}
	}

	var roots []*Node
	for _, c := range chart {
		n, ok := byCode[c.Code]
		if !ok {
			continue
		}
		if c.ParentCode == "" {
			roots = append(roots, n)
			continue
		}
		if p, ok := byCode[c.ParentCode]; ok && p != n {
			p.Children = append(p.Children, n)
		}
	}
	sortNodes(roots)
	for _, r := range roots {
		rollUp(r, map[*Node]bool{})
	}
	return roots
}

func rollUp(n *Node, seen map[*Node]bool) money.Cents {
	if seen[n] {
		return 0
	}
	seen[n] = true
	n.Total = n.Own
	sortNodes(n.Children)
	for _, c := range n.Children {
		n.Total += rollUp(c, seen)
	}
	return n.Total
}

func sortNodes(ns []*Node) {
	sort.Slice(ns, func(i, j int) bool { return ns[i].Code < ns[j].Code })
}
