// Package importer reads cut lists from CSV and Excel spreadsheets.
// It detects the CSV delimiter, maps columns by case-insensitive header
// aliases, and falls back to a fixed column order when no header is present.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
)

// Result holds the items read from a file along with row-level problems.
// Rows with errors are skipped; warnings never drop a row.
type Result struct {
	Items    []optimizer.CutListItem `json:"items"`
	Errors   []string                `json:"errors"`
	Warnings []string                `json:"warnings"`
}

// column identifies a cut-list field.
type column int

const (
	colPart column = iota
	colQuantity
	colLength
	colWidth
	colThickness
	colMaterial
	colUnitPrice
	colNotes
	columnCount
)

var columnNames = [columnCount]string{"Part", "Quantity", "Length", "Width", "Thickness", "Material", "Unit Price", "Notes"}

// headerAliases lists the accepted lowercase header spellings per column.
var headerAliases = [columnCount][]string{
	colPart:      {"part", "part name", "partname", "name", "label", "piece", "item", "description"},
	colQuantity:  {"quantity", "qty", "count", "pcs", "pieces", "amount"},
	colLength:    {"length", "len", "l"},
	colWidth:     {"width", "w"},
	colThickness: {"thickness", "thick", "t", "depth"},
	colMaterial:  {"material", "species", "wood"},
	colUnitPrice: {"unit price", "unitprice", "price", "cost", "unit cost"},
	colNotes:     {"notes", "note", "comment", "comments"},
}

var requiredColumns = []column{colQuantity, colLength, colWidth, colThickness, colMaterial}

// Mapping holds the index of every column, or -1 when absent.
type Mapping [columnCount]int

// positional is used when the first row is not a header.
var positional = Mapping{0, 1, 2, 3, 4, 5, 6, 7}

// DetectCSVDelimiter returns the delimiter among comma, semicolon, tab and
// pipe that splits the data into the most consistent multi-column rows.
func DetectCSVDelimiter(data []byte) rune {
	best, bestScore := ',', 0
	for _, delim := range []rune{',', ';', '\t', '|'} {
		records, err := readCSV(data, delim)
		if err != nil || len(records) == 0 {
			continue
		}
		width := len(records[0])
		if width < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == width {
				score++
			}
		}
		if weighted := score*10 + width; weighted > bestScore {
			best, bestScore = delim, weighted
		}
	}
	return best
}

// DetectColumns maps a header row to column indices. It reports false and a
// positional mapping when no cell matches a known header.
func DetectColumns(row []string) (Mapping, bool) {
	var m Mapping
	for i := range m {
		m[i] = -1
	}

	found := false
	for idx, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		for col, aliases := range headerAliases {
			if m[col] != -1 {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					m[col] = idx
					found = true
					break
				}
			}
		}
	}

	if !found {
		return positional, false
	}
	return m, true
}

// ImportCSV reads a delimited cut list.
func ImportCSV(r io.Reader) Result {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("Cannot read file: %v", err)}}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Result{Errors: []string{"File is empty"}}
	}

	var warnings []string
	delim := DetectCSVDelimiter(data)
	if delim != ',' {
		name := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delim]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", name))
	}

	records, err := readCSV(data, delim)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("Cannot read CSV: %v", err)}, Warnings: warnings}
	}
	return importRows(records, "Line", warnings)
}

// ImportExcel reads a cut list from the first sheet of an .xlsx workbook.
func ImportExcel(r io.Reader) Result {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("Cannot open Excel file: %v", err)}}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{Errors: []string{"Excel file has no sheets"}}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("Cannot read Excel data: %v", err)}}
	}
	return importRows(rows, "Row", nil)
}

func readCSV(data []byte, delim rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func importRows(rows [][]string, rowPrefix string, warnings []string) Result {
	result := Result{
		Items:    []optimizer.CutListItem{},
		Errors:   []string{},
		Warnings: append([]string{}, warnings...),
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	start := 0
	if hasHeader {
		start = 1
		var missing []string
		for _, col := range requiredColumns {
			if mapping[col] == -1 {
				missing = append(missing, columnNames[col])
			}
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) > int(colQuantity) {
		if _, err := strconv.Atoi(strings.TrimSpace(rows[0][colQuantity])); err != nil {
			start = 1
			result.Warnings = append(result.Warnings, "Unrecognized header row skipped")
		}
	}

	for i := start; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		label := fmt.Sprintf("%s %d", rowPrefix, i+1)
		item, errMsg, warning := parseRow(rows[i], mapping, label, len(result.Items))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		result.Items = append(result.Items, item)
	}

	if len(result.Items) == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
	}
	return result
}

func parseRow(row []string, m Mapping, label string, count int) (optimizer.CutListItem, string, string) {
	item := optimizer.CutListItem{
		PartName:  cell(row, m[colPart]),
		Material:  cell(row, m[colMaterial]),
		Notes:     cell(row, m[colNotes]),
		UnitPrice: decimal.Zero,
	}
	if item.PartName == "" {
		item.PartName = fmt.Sprintf("Part %d", count+1)
	}

	qtyStr := cell(row, m[colQuantity])
	if qtyStr == "" {
		return item, fmt.Sprintf("%s: Missing quantity value", label), ""
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil {
		return item, fmt.Sprintf("%s: Invalid quantity '%s'", label, qtyStr), ""
	}
	item.Quantity = qty

	dims := []struct {
		col  column
		dest *float64
	}{
		{colLength, &item.Length},
		{colWidth, &item.Width},
		{colThickness, &item.Thickness},
	}
	for _, d := range dims {
		raw := cell(row, m[d.col])
		name := strings.ToLower(columnNames[d.col])
		if raw == "" {
			return item, fmt.Sprintf("%s: Missing %s value", label, name), ""
		}
		v, err := ParseInches(raw)
		if err != nil {
			return item, fmt.Sprintf("%s: Invalid %s '%s'", label, name, raw), ""
		}
		*d.dest = v
	}

	if item.Quantity <= 0 || item.Length <= 0 || item.Width <= 0 || item.Thickness <= 0 {
		return item, fmt.Sprintf("%s: Quantity and dimensions must be positive", label), ""
	}
	if item.Quantity > optimizer.MaxQuantity {
		return item, fmt.Sprintf("%s: Quantity must not exceed %d", label, optimizer.MaxQuantity), ""
	}
	if item.Material == "" {
		return item, fmt.Sprintf("%s: Missing material value", label), ""
	}

	var warning string
	if raw := cell(row, m[colUnitPrice]); raw != "" {
		price, err := decimal.NewFromString(strings.TrimPrefix(raw, "$"))
		switch {
		case err != nil:
			warning = fmt.Sprintf("%s: Invalid unit price '%s', defaulting to 0", label, raw)
		case price.IsNegative():
			return item, fmt.Sprintf("%s: Unit price cannot be negative", label), ""
		default:
			item.UnitPrice = price
		}
	}

	return item, "", warning
}

// ParseInches parses a length written as a decimal ("11.25"), a fraction
// ("3/4") or a mixed number ("11 1/4" or "1-1/2"), optionally followed by `"`
// or "in". NaN and infinities are rejected.
func ParseInches(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimSuffix(s, "in")
	s = strings.TrimSpace(s)

	v, err := parseMixedNumber(s)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

func parseMixedNumber(s string) (float64, error) {
	if !strings.Contains(s, "/") {
		return strconv.ParseFloat(s, 64)
	}

	whole, frac, mixed := strings.Cut(s, " ")
	if !mixed {
		// A leading minus is a sign, not the whole/fraction separator.
		if i := strings.Index(s[1:], "-"); i >= 0 {
			whole, frac, mixed = s[:i+1], s[i+2:], true
		}
	}
	if !mixed {
		return parseFraction(s)
	}

	w, err := strconv.ParseFloat(strings.TrimSpace(whole), 64)
	if err != nil {
		return 0, err
	}
	f, err := parseFraction(strings.TrimSpace(frac))
	if err != nil {
		return 0, err
	}
	return w + f, nil
}

func parseFraction(s string) (float64, error) {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return 0, fmt.Errorf("not a fraction: %q", s)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("zero denominator in %q", s)
	}
	return n / d, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
