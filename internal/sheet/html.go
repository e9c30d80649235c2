package sheet

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ReadHTML extracts the first <table> with at least two rows. Header cells
// (th) and data cells (td) are both read.
func ReadHTML(data []byte) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var rows [][]string
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		var found [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) > 0 {
				found = append(found, cells)
			}
		})
		if len(found) >= 2 {
			rows = found
			return false
		}
		return true
	})

	if rows == nil {
		return nil, errors.New("no table with data rows found")
	}
	return rows, nil
}
