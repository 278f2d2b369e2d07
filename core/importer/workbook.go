package importer

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/darasa/core"
)

// ParseWorkbook feeds the first sheet of an .xlsx upload through the same
// pipeline as a delimited text file. Sheet rows map 1:1 to line numbers.
func (p *Pipeline) ParseWorkbook(r io.Reader) (ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ParseResult{}, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ParseResult{}, errors.New("workbook has no sheets")
	}
	sheetRows, err := f.GetRows(sheets[0])
	if err != nil {
		return ParseResult{}, errors.Wrapf(err, "reading sheet %q", sheets[0])
	}

	var (
		rows    []fileRow
		headers int
	)
	for i, cells := range sheetRows {
		if blankRow(cells) {
			continue
		}
		if headers == 0 {
			headers = len(cells) // header row width; excelize trims trailing empty cells
		}
		for len(cells) < headers {
			cells = append(cells, "")
		}
		rows = append(rows, fileRow{line: i + 1, fields: cells})
	}
	return p.parseRows(rows), nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if core.CleanString(c) != "" {
			return false
		}
	}
	return true
}

// IsWorkbook reports whether the uploaded file name denotes a workbook rather
// than delimited text.
func IsWorkbook(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}
