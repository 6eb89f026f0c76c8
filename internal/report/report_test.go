package report

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/cashflow/internal/cashflow"
	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/money"
)

var today = ledger.Date(2024, time.May, 15)

func title(status ledger.Status, due time.Time, original money.Cents) ledger.Title {
	return ledger.Title{ID: uuid.New(), Kind: ledger.TitleRevenue, DueDate: due, Original: original, Status: status}
}

func TestAgingFor(t *testing.T) {
	partial := title(ledger.StatusPartial, today.AddDate(0, 0, -31), 300)
	rem := money.Cents(50)
	partial.Remaining = &rem

	a := AgingFor([]ledger.Title{
		title(ledger.StatusPending, today.AddDate(0, 0, -1), 100),
		title(ledger.StatusOverdue, today.AddDate(0, 0, -30), 200),
		partial,
		title(ledger.StatusOverdue, today.AddDate(0, 0, -104), 400),
		title(ledger.StatusSettled, today.AddDate(0, 0, -5), 999),
		title(ledger.StatusPending, today, 999),
	}, today)

	require.Equal(t, money.Cents(300), a.Buckets[0].Total)
	require.Len(t, a.Buckets[0].Titles, 2)
	require.Equal(t, money.Cents(50), a.Buckets[1].Total)
	require.Empty(t, a.Buckets[2].Titles)
	require.Equal(t, money.Cents(400), a.Buckets[3].Total)
	require.Equal(t, money.Cents(750), a.Total)
}

func TestForecast(t *testing.T) {
	got := Forecast([]ledger.Title{
		title(ledger.StatusPending, ledger.Date(2024, time.July, 1), 100),
		title(ledger.StatusPartial, today, 200),
		title(ledger.StatusPending, ledger.Date(2024, time.May, 31), 300),
		title(ledger.StatusOverdue, ledger.Date(2024, time.June, 1), 999),
		title(ledger.StatusPending, today.AddDate(0, 0, -1), 999),
	}, today)
	require.Equal(t, []ForecastMonth{
		{Month: "2024-05", Total: 500, Titles: 2},
		{Month: "2024-07", Total: 100, Titles: 1},
	}, got)
}

func TestPortfolioAndByCategory(t *testing.T) {
	a := title(ledger.StatusSettled, today, 100)
	a.CategoryID, a.TotalSettled = "sales", 100
	b := title(ledger.StatusPending, today.AddDate(0, 0, -3), 400)
	b.CategoryID = "sales"
	c := title(ledger.StatusPending, today.AddDate(0, 0, 2), 50)
	titles := []ledger.Title{a, b, c}

	require.Len(t, Portfolio(titles, "all"), 3)
	pending := Portfolio(titles, "pending")
	require.Len(t, pending, 2)
	require.Equal(t, b.ID, pending[0].ID, "ordered by due date")

	got := ByCategory(titles, map[string]ledger.ChartAccount{"sales": {ID: "sales", Name: "Sales"}})
	require.Equal(t, []CategoryTotals{
		{Category: "Sales", Original: 500, Settled: 100, Outstanding: 400},
		{Category: uncategorized, Original: 50, Outstanding: 50},
	}, got)
}

func txs() []cashflow.Transaction {
	a, b := uuid.New(), uuid.New()
	return []cashflow.Transaction{
		{Kind: cashflow.KindReceipt, Date: ledger.Date(2024, time.January, 3), Category: "Sales", CategoryID: "sales", Activity: ledger.ActivityOperating, Inflow: 3000, AccountID: a},
		{Kind: cashflow.KindReceipt, Date: ledger.Date(2024, time.January, 9), Category: "Services", CategoryID: "services", Activity: ledger.ActivityOperating, Inflow: 1000, AccountID: a},
		{Kind: cashflow.KindPayment, Date: ledger.Date(2024, time.January, 9), Category: "Rent", CategoryID: "rent", Activity: ledger.ActivityOperating, Outflow: 1500, AccountID: a},
		{Kind: cashflow.KindPayment, Date: ledger.Date(2024, time.February, 2), Category: "Equipment", CategoryID: "equip", Activity: ledger.ActivityInvesting, Outflow: 500, AccountID: b},
		{Kind: cashflow.KindTransfer, Date: ledger.Date(2024, time.February, 3), Category: "Transfer", Transfer: &cashflow.TransferLegs{From: a, To: b, Amount: 700}},
		{Kind: cashflow.KindProjectedRevenue, Date: ledger.Date(2024, time.March, 1), Category: "Sales", CategoryID: "sales", Activity: ledger.ActivityOperating, Inflow: 2000},
	}
}

func TestBuildDRE(t *testing.T) {
	d := BuildDRE(txs()[:5])
	require.Len(t, d.Sections, 3)
	require.Equal(t, money.Cents(4000), d.TotalInflow)
	require.Equal(t, money.Cents(2000), d.TotalOutflow)
	require.Equal(t, money.Cents(2000), d.NetCash)

	op := d.Sections[0]
	require.Equal(t, ledger.ActivityOperating, op.Activity)
	require.Equal(t, money.Cents(2500), op.Net)
	require.Equal(t, "Rent", op.Lines[0].Category)
	require.True(t, decimal.NewFromInt(75).Equal(*op.Lines[0].Share))
	require.Equal(t, "Sales", op.Lines[1].Category)
	require.True(t, decimal.NewFromInt(75).Equal(*op.Lines[1].Share))
	require.Equal(t, "25", op.Lines[2].Share.String())

	require.Equal(t, money.Cents(-500), d.Sections[1].Net)
	require.Empty(t, d.Sections[2].Lines)
}

func TestBuildDRE_SharesRoundToTwoPlaces(t *testing.T) {
	d := BuildDRE([]cashflow.Transaction{
		{Kind: cashflow.KindReceipt, Category: "A", Inflow: 1},
		{Kind: cashflow.KindReceipt, Category: "B", Inflow: 2},
	})
	require.Equal(t, "33.33", d.Sections[0].Lines[0].Share.String())
	require.Nil(t, BuildDRE([]cashflow.Transaction{{Kind: cashflow.KindPayment, Category: "A"}}).Sections[0].Lines[0].Share)
}

func TestChartTree(t *testing.T) {
	chart := []ledger.ChartAccount{
		{ID: "root", Code: "1", Name: "Operating"},
		{ID: "sales", Code: "1.1", ParentCode: "1", Name: "Sales"},
		{ID: "services", Code: "1.1.1", ParentCode: "1.1", Name: "Services"},
		{ID: "rent", Code: "1.2", ParentCode: "1", Name: "Rent"},
		{ID: "equip", Code: "2", Name: "Investing"},
		{ID: "orphan", Code: "9.1", ParentCode: "9", Name: "Orphan"},
	}
	roots := ChartTree(chart, txs())
	require.Len(t, roots, 2)
	op := roots[0]
	require.Equal(t, "1", op.Code)
	require.Equal(t, money.Cents(4500), op.Total)
	require.Equal(t, money.Cents(6000), op.Children[0].Total, "sales includes services")
	require.Equal(t, money.Cents(1000), op.Children[0].Children[0].Total)
	require.Equal(t, money.Cents(-1500), op.Children[1].Total)
	require.Equal(t, money.Cents(-500), roots[1].Total)
}

func TestMonthlyAndCumulative(t *testing.T) {
	all := Monthly(txs(), cashflow.AllAccounts(), true, true)
	require.Equal(t, []MonthTotals{
		{Month: "2024-01", Inflow: 4000, Outflow: 1500},
		{Month: "2024-02", Inflow: 0, Outflow: 500},
		{Month: "2024-03", Inflow: 2000},
	}, all)

	realized := Monthly(txs(), cashflow.AllAccounts(), true, false)
	require.Len(t, realized, 2)

	cum := Cumulative(all)
	require.Equal(t, MonthTotals{Month: "2024-03", Inflow: 6000, Outflow: 2000}, cum[2])
}

func TestDailyBalance(t *testing.T) {
	s := DailyBalance(txs(), 1000, cashflow.AllAccounts())
	require.Len(t, s.Points, 4)
	require.Equal(t, money.Cents(4000), s.Points[0].Balance)
	require.Equal(t, money.Cents(3500), s.Points[1].Balance)
	require.Equal(t, money.Cents(5000), s.Points[3].Balance)
	require.Equal(t, 2, s.LastRealized)
}

func TestTopCategories(t *testing.T) {
	top := TopCategories(txs(), 1)
	require.Equal(t, []CategoryAmount{{Category: "Sales", Amount: 5000}}, top.Inflows)
	require.Equal(t, []CategoryAmount{{Category: "Rent", Amount: 1500}}, top.Outflows)

	exp := ExpensesByCategory(txs())
	require.Len(t, exp, 2)
	require.Equal(t, money.Cents(500), exp[1].Categories["Equipment"])
}
