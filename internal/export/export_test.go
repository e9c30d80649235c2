package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"trade-report/internal/metrics"
	"trade-report/internal/types"
)

func sampleReport() types.Report {
	d := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	mk := func(id, symbol string, days int, result, fees float64) types.Trade {
		at := d.AddDate(0, 0, days)
		return types.Trade{
			ID:         id,
			Symbol:     symbol,
			EntryFills: []types.Fill{{ID: id + "a", Date: at, Symbol: symbol, Side: types.SideBuy, Qty: 2}},
			ExitFills:  []types.Fill{{ID: id + "b", Date: at.Add(time.Hour), Symbol: symbol, Side: types.SideSell, Qty: 2}},
			TotalQty:   2,
			Fees:       fees,
			Result:     result,
		}
	}
	return metrics.Compute([]types.Trade{
		mk("1", "ETHUSDT", 0, 1.5, 0.1),
		mk("2", "BTC|USDT", 1, -0.234, 0.08),
		mk("3", "ETHUSDT", 2, 0, 0),
	}, 30)
}

func TestTradesCSV(t *testing.T) {
	out, err := TradesCSV(sampleReport().Trades)
	if err != nil {
		t.Fatal(err)
	}

	want := "symbol,startDate,result,fees,winLoss\n" +
		"ETHUSDT,2024-06-03,1.50,0.10,1\n" +
		"BTC|USDT,2024-06-04,-0.23,0.08,0\n" +
		"ETHUSDT,2024-06-05,0.00,0.00,0\n"
	if out != want {
		t.Errorf("Unexpected CSV\nwant:\n%s\ngot:\n%s", want, out)
	}
}

func TestTradesCSVEmpty(t *testing.T) {
	out, err := TradesCSV(nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "symbol,startDate,result,fees,winLoss\n" {
		t.Errorf("Expected header only, got %q", out)
	}
}

func TestMarkdownDetailedToggle(t *testing.T) {
	r := NewReporter(t.TempDir(), "USDT")
	report := sampleReport()

	md, err := r.Generate(report, FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	s := string(md)
	for _, want := range []string{
		"# Trade Performance Report",
		"| Win rate | 33.33% |",
		"| Total gains | +1.50 USDT |",
		"## By Symbol",
		"## Trade Details",
		`BTC\|USDT`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected markdown to contain %q\n%s", want, s)
		}
	}

	r.Detailed = false
	md, _ = r.Generate(report, FormatMarkdown)
	if strings.Contains(string(md), "## Trade Details") {
		t.Error("Expected trade details to be omitted")
	}
}

func TestTextAndCSVReports(t *testing.T) {
	r := NewReporter(t.TempDir(), "")
	report := sampleReport()

	txt, err := r.Generate(report, FormatText)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(txt), "TRADE PERFORMANCE REPORT") || !strings.Contains(string(txt), "END OF REPORT") {
		t.Errorf("Unexpected text report:\n%s", txt)
	}

	csv, err := r.Generate(report, FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	if lines[0] != "Metric,Value" {
		t.Errorf("Expected summary header, got %q", lines[0])
	}
	if !strings.Contains(string(csv), "start,30.00,30.00,0.00") {
		t.Errorf("Expected capital series in CSV, got:\n%s", csv)
	}
}

func TestJSONReportRoundTrip(t *testing.T) {
	report := sampleReport()
	b, err := NewReporter("", "").Generate(report, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var back types.Report
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.Total != report.Total || back.Summary != report.Summary {
		t.Errorf("Expected same totals after reload, got %+v", back.Summary)
	}
}

func TestXLSXReport(t *testing.T) {
	b, err := NewReporter("", "USDT").Generate(sampleReport(), FormatXLSX)
	if err != nil {
		t.Fatal(err)
	}

	fx, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("Expected a readable workbook, got %v", err)
	}
	defer fx.Close()

	sheets := fx.GetSheetList()
	if len(sheets) != 3 || sheets[0] != summarySheet {
		t.Errorf("Unexpected sheets %v", sheets)
	}
	rows, err := fx.GetRows(tradesSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || rows[1][0] != "ETHUSDT" {
		t.Errorf("Unexpected trade rows %v", rows)
	}
}

func TestSaveWritesFile(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(dir, "USDT")
	at := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

	path, err := r.Save(sampleReport(), FormatMarkdown, at)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "trade_report_2024-06-10_08-00-00.md" {
		t.Errorf("Unexpected file name %s", filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected file to exist: %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"md": FormatMarkdown, ".xlsx": FormatXLSX, "TEXT": FormatText} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q): expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("Expected error for pdf")
	}
}
