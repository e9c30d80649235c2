package export

import (
	"github.com/xuri/excelize/v2"

	"trade-report/internal/metrics"
	"trade-report/internal/types"
)

const (
	summarySheet = "Summary"
	tradesSheet  = "Trades"
	capitalSheet = "Capital"
)

type xlsxStyles struct {
	header, money, win, loss int
}

func newXLSXStyles(fx *excelize.File) (xlsxStyles, error) {
	var s xlsxStyles
	var err error
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	s.header, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    border,
	})
	if err != nil {
		return s, err
	}
	s.money, err = fx.NewStyle(&excelize.Style{NumFmt: 4, Border: border})
	if err != nil {
		return s, err
	}
	s.win, err = fx.NewStyle(&excelize.Style{NumFmt: 4, Border: border, Font: &excelize.Font{Color: "006100"}})
	if err != nil {
		return s, err
	}
	s.loss, err = fx.NewStyle(&excelize.Style{NumFmt: 4, Border: border, Font: &excelize.Font{Color: "9C0006"}})
	return s, err
}

// xlsx builds a workbook with summary, trade and capital sheets.
func (r *Reporter) xlsx(report types.Report) ([]byte, error) {
	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), summarySheet); err != nil {
		return nil, err
	}
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return nil, err
	}
	if _, err := fx.NewSheet(capitalSheet); err != nil {
		return nil, err
	}

	styles, err := newXLSXStyles(fx)
	if err != nil {
		return nil, err
	}

	if err := writeHeader(fx, summarySheet, []string{"Metric", "Value"}, styles.header); err != nil {
		return nil, err
	}
	for i, row := range r.summaryRows(report) {
		if err := setRow(fx, summarySheet, i+2, []any{row.label, row.value}); err != nil {
			return nil, err
		}
	}
	fx.SetColWidth(summarySheet, "A", "A", 30)
	fx.SetColWidth(summarySheet, "B", "B", 20)

	if err := writeHeader(fx, tradesSheet, []string{"Symbol", "Start", "End", "Quantity", "Result", "Fees"}, styles.header); err != nil {
		return nil, err
	}
	for i, t := range report.Trades {
		end := t.EntryDate()
		if n := len(t.ExitFills); n > 0 {
			end = t.ExitFills[n-1].Date
		}
		rowNum := i + 2
		if err := setRow(fx, tradesSheet, rowNum, []any{
			t.Symbol, t.EntryDate().Format("2006-01-02 15:04:05"), end.Format("2006-01-02 15:04:05"),
			t.TotalQty, t.Result, t.Fees,
		}); err != nil {
			return nil, err
		}
		style := styles.money
		if t.Result > 0 {
			style = styles.win
		} else if t.Result < 0 {
			style = styles.loss
		}
		cell, _ := excelize.CoordinatesToCellName(5, rowNum)
		fx.SetCellStyle(tradesSheet, cell, cell, style)
	}
	fx.SetColWidth(tradesSheet, "A", "A", 16)
	fx.SetColWidth(tradesSheet, "B", "C", 20)

	if err := writeHeader(fx, capitalSheet, []string{"Label", "Capital", "Peak", "Drawdown %"}, styles.header); err != nil {
		return nil, err
	}
	for i, p := range metrics.DrawdownSeries(report.CapitalEvolution) {
		if err := setRow(fx, capitalSheet, i+2, []any{p.Label, p.Capital, p.Peak, p.Drawdown}); err != nil {
			return nil, err
		}
	}

	buf, err := fx.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func setRow(fx *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return fx.SetSheetRow(sheet, cell, &values)
}
