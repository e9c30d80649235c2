package sheet

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var delimiters = []rune{',', ';', '\t'}

// ReadCSV decodes UTF-8 or BOM-marked UTF-16 text and sniffs the delimiter
// from the first line. Rows may have differing lengths.
func ReadCSV(data []byte) ([][]string, error) {
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(decoded))
	r.Comma = sniffDelimiter(decoded)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	return r.ReadAll()
}

// sniffDelimiter picks the candidate that appears most often in the first
// non-empty line outside quotes. Comma wins ties.
func sniffDelimiter(data []byte) rune {
	var line string
	for _, l := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	counts := make(map[rune]int, len(delimiters))
	inQuotes := false
	for _, c := range line {
		if c == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[c]++
		}
	}

	best := ','
	for _, d := range delimiters {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
