// Package export renders the boards an optimization calls for, plus any
// project hardware, as a shopping list in CSV, Excel and printable PDF form.
package export

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
	"github.com/eugenenazirov/cutlist-optimizer/internal/storage"
)

// ErrEmptyShoppingList is returned when there is nothing to buy.
var ErrEmptyShoppingList = errors.New("shopping list is empty")

// LineKind separates lumber from hardware purchases.
type LineKind string

const (
	LineLumber   LineKind = "lumber"
	LineHardware LineKind = "hardware"
)

// Line is one product to buy. Hardware lines carry the hardware type in
// Material and its size in Dimensions.
type Line struct {
	Kind       LineKind        `json:"kind"`
	Name       string          `json:"name"`
	Material   string          `json:"material"`
	SKU        string          `json:"sku,omitempty"`
	URL        string          `json:"url,omitempty"`
	Dimensions string          `json:"dimensions"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Total      decimal.Decimal `json:"total"`
}

// ShoppingList is the purchase summary for a project.
type ShoppingList struct {
	Title           string                  `json:"title"`
	Lines           []Line                  `json:"lines"`
	LumberTotal     decimal.Decimal         `json:"lumberTotal"`
	HardwareTotal   decimal.Decimal         `json:"hardwareTotal"`
	Total           decimal.Decimal         `json:"total"`
	TotalBoards     int                     `json:"totalBoards"`
	WastePercentage float64                 `json:"wastePercentage"`
	Suggestions     []string                `json:"suggestions"`
	CutList         []optimizer.CutListItem `json:"cutList"`
}

// BuildShoppingList turns an optimization result into one line per board
// group. items is kept as the cut-list reference printed alongside.
func BuildShoppingList(title string, items []optimizer.CutListItem, result optimizer.Result) ShoppingList {
	list := ShoppingList{
		Title:           title,
		Lines:           make([]Line, 0, len(result.BoardUsage)),
		LumberTotal:     decimal.Zero,
		HardwareTotal:   decimal.Zero,
		Total:           decimal.Zero,
		TotalBoards:     result.TotalBoards,
		WastePercentage: result.WastePercentage,
		Suggestions:     append([]string{}, result.Suggestions...),
		CutList:         append([]optimizer.CutListItem{}, items...),
	}

	for _, usage := range result.BoardUsage {
		p := usage.Product
		total := p.Price.Mul(decimal.NewFromInt(int64(usage.BoardsNeeded)))
		list.Lines = append(list.Lines, Line{
			Kind:       LineLumber,
			Name:       p.Name,
			Material:   p.Material,
			SKU:        p.SKU,
			URL:        p.URL,
			Dimensions: FormatDimensions(p.Dimensions.Length, p.Dimensions.Width, p.Dimensions.Thickness),
			Quantity:   usage.BoardsNeeded,
			UnitPrice:  p.Price,
			Total:      total,
		})
		list.LumberTotal = list.LumberTotal.Add(total)
	}
	list.Total = list.LumberTotal

	return list
}

// AddHardware appends one line per hardware item and adds their cost to the
// list total.
func (l *ShoppingList) AddHardware(items []storage.HardwareItem) {
	for _, item := range items {
		total := item.Total()
		l.Lines = append(l.Lines, Line{
			Kind:       LineHardware,
			Name:       item.Name,
			Material:   item.Type,
			URL:        item.URL,
			Dimensions: item.Size,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Total:      total,
		})
		l.HardwareTotal = l.HardwareTotal.Add(total)
	}
	l.Total = l.LumberTotal.Add(l.HardwareTotal)
}

func (l *ShoppingList) linesOf(kind LineKind) []Line {
	var out []Line
	for _, line := range l.Lines {
		if line.Kind == kind {
			out = append(out, line)
		}
	}
	return out
}

// FormatDimensions renders a length x width x thickness size in inches.
func FormatDimensions(length, width, thickness float64) string {
	return fmt.Sprintf(`%s" x %s" x %s"`, inches(length), inches(width), inches(thickness))
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// FileName derives a download file name from the list title.
func FileName(title, ext string) string {
	base := unsafeFileChars.ReplaceAllString(strings.TrimSpace(title), "_")
	if base == "" {
		base = "project"
	}
	return base + "_shopping_list." + ext
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func inches(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
