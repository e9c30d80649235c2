package sheet

import (
	"bytes"
	"errors"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX returns the rows of the first worksheet as formatted cell text.
func ReadXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}
