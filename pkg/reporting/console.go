package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ConsoleReporter renders periodic performance updates as a table.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a reporter writing to out, stdout if nil.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{out: out}
}

// Report prints the performance update for the closed trades.
func (r *ConsoleReporter) Report(trades []Trade, s Summary) {
	p := Analyze(trades, s)

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("PERFORMANCE UPDATE")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Total Trades", p.Trades},
		{"Balance", fmt.Sprintf("$%.2f (%+.2f%%)", s.Balance, p.TotalReturnPct)},
		{"Win Rate", fmt.Sprintf("%.1f%%", s.WinRate)},
		{"Profit Factor", fmt.Sprintf("%.2f", s.ProfitFactor)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Sharpe Ratio", fmt.Sprintf("%.2f", p.Sharpe)},
		{"Sortino Ratio", fmt.Sprintf("%.2f", p.Sortino)},
		{"Calmar Ratio", fmt.Sprintf("%.2f", p.Calmar)},
		{"Expectancy", fmt.Sprintf("$%.2f", p.Expectancy)},
		{"Expectancy Ratio", fmt.Sprintf("%.2f", p.ExpectancyRatio)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Current Streak", fmt.Sprintf("%+d", p.CurrentStreak)},
		{"Max Win Streak", p.MaxWinStreak},
		{"Max Loss Streak", p.MaxLossStreak},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Grade", p.Grade},
		{"Risk Score", fmt.Sprintf("%d/100", p.RiskScore)},
		{"Portfolio Heat", fmt.Sprintf("%.1f%%", s.PortfolioHeat*100)},
		{"Drawdown", fmt.Sprintf("%.2f%%", s.DrawdownPct)},
		{"Open Positions", fmt.Sprintf("%d/%d", s.OpenPositions, s.MaxPositions)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, Align: text.AlignRight},
	})

	t.Render()
}
