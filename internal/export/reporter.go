// Package export renders a confirmed report for people and other tools.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trade-report/internal/metrics"
	"trade-report/internal/types"
)

// Format specifies the output format of a report.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

func (f Format) ext() string {
	if f == FormatMarkdown {
		return "md"
	}
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// Reporter renders reports and stores them on disk.
type Reporter struct {
	outputDir string
	currency  string
	// Detailed adds the per-trade table to markdown and text reports.
	Detailed bool
}

func NewReporter(outputDir, currency string) *Reporter {
	return &Reporter{outputDir: outputDir, currency: currency, Detailed: true}
}

// Generate renders report in format.
func (r *Reporter) Generate(report types.Report, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return []byte(r.markdown(report)), nil
	case FormatText:
		return []byte(r.text(report)), nil
	case FormatJSON:
		return json.MarshalIndent(report, "", "  ")
	case FormatCSV:
		return []byte(r.csv(report)), nil
	case FormatXLSX:
		return r.xlsx(report)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Save writes the rendered report under the output directory and returns
// its path.
func (r *Reporter) Save(report types.Report, format Format, at time.Time) (string, error) {
	content, err := r.Generate(report, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("trade_report_%s.%s", at.Format("2006-01-02_15-04-05"), format.ext())
	path := filepath.Join(r.outputDir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", err
	}
	return path, nil
}

type row struct {
	label, value string
}

func (r *Reporter) money(s string) string {
	if r.currency == "" {
		return s
	}
	return s + " " + r.currency
}

func signed(s string) string {
	if strings.HasPrefix(s, "-") || s == "0.00" {
		return s
	}
	return "+" + s
}

// summaryRows lists the headline figures in display order.
func (r *Reporter) summaryRows(report types.Report) []row {
	s := report.Summary
	return []row{
		{"Trades analyzed", fmt.Sprint(report.Total)},
		{"Winning trades", fmt.Sprint(report.Wins)},
		{"Losing trades", fmt.Sprint(report.Losses)},
		{"Neutral trades", fmt.Sprint(report.Neutral)},
		{"Win rate", s.WinRate + "%"},
		{"Total gains", r.money(signed(s.Gains))},
		{"Total losses", r.money(s.Losses)},
		{"Gross gains (before fees)", r.money(s.GrossGains)},
		{"Gross losses (before fees)", r.money(s.GrossLosses)},
		{"Fees paid", r.money(s.Fees)},
		{"Net result", r.money(s.Net)},
		{"Return on initial capital", s.Return + "%"},
		{"Payoff ratio", s.PayoffRatio},
		{"Profit factor", s.ProfitFactor},
		{"Max drawdown", s.MaxDrawdown + "%"},
	}
}

func (r *Reporter) markdown(report types.Report) string {
	var sb strings.Builder

	sb.WriteString("# Trade Performance Report\n\n")
	sb.WriteString(fmt.Sprintf("Initial capital: %s\n\n", r.money(metrics.Format(report.InitialCapital))))
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	for _, row := range r.summaryRows(report) {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", row.label, row.value))
	}

	if groups := metrics.Breakdown(report.Trades, report.InitialCapital, metrics.BySymbol); len(groups) > 1 {
		sb.WriteString("\n## By Symbol\n\n")
		sb.WriteString("| Symbol | Trades | Win rate | Net |\n|---|---|---|---|\n")
		for _, g := range groups {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s%% | %s |\n",
				mdEscape(g.Key), g.Report.Total, g.Report.Summary.WinRate, r.money(g.Report.Summary.Net)))
		}
	}

	if r.Detailed && len(report.Trades) > 0 {
		sb.WriteString("\n## Trade Details\n\n")
		sb.WriteString("| Symbol | Start | Quantity | Result | Fees |\n|---|---|---|---|---|\n")
		for _, t := range report.Trades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %g | %s | %s |\n",
				mdEscape(t.Symbol),
				t.EntryDate().Format("2006-01-02 15:04:05"),
				t.TotalQty,
				r.money(metrics.Format(t.Result)),
				r.money(metrics.Format(t.Fees))))
		}
	}
	return sb.String()
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func (r *Reporter) text(report types.Report) string {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 80) + "\n")
	sb.WriteString("TRADE PERFORMANCE REPORT\n")
	sb.WriteString(strings.Repeat("=", 80) + "\n")
	sb.WriteString(fmt.Sprintf("Initial capital: %s\n\n", r.money(metrics.Format(report.InitialCapital))))

	for _, row := range r.summaryRows(report) {
		sb.WriteString(fmt.Sprintf("%-28s %s\n", row.label+":", row.value))
	}

	if r.Detailed && len(report.Trades) > 0 {
		sb.WriteString("\n" + strings.Repeat("=", 80) + "\n")
		sb.WriteString("TRADE DETAILS\n")
		sb.WriteString(strings.Repeat("=", 80) + "\n")
		for i, t := range report.Trades {
			mark := " "
			if t.Result > 0 {
				mark = "+"
			} else if t.Result < 0 {
				mark = "-"
			}
			sb.WriteString(fmt.Sprintf("%3d. %s %-14s %s  qty %-12g result %12s  fees %s\n",
				i+1, mark, t.Symbol, t.EntryDate().Format("2006-01-02 15:04"), t.TotalQty,
				metrics.Format(t.Result), metrics.Format(t.Fees)))
		}
	}

	sb.WriteString("\n" + strings.Repeat("=", 80) + "\n")
	sb.WriteString("END OF REPORT\n")
	return sb.String()
}

// csv writes the summary block followed by the capital evolution.
func (r *Reporter) csv(report types.Report) string {
	var sb strings.Builder

	sb.WriteString("Metric,Value\n")
	for _, row := range r.summaryRows(report) {
		sb.WriteString(fmt.Sprintf("%s,%s\n", csvEscape(row.label), csvEscape(row.value)))
	}

	sb.WriteString("\nLabel,Capital,Peak,Drawdown\n")
	for _, p := range metrics.DrawdownSeries(report.CapitalEvolution) {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s\n",
			csvEscape(p.Label), metrics.Format(p.Capital), metrics.Format(p.Peak), metrics.Format(p.Drawdown)))
	}
	return sb.String()
}

func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
