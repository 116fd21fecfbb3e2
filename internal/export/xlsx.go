package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	shoppingSheet = "Shopping List"
	cutListSheet  = "Cut List"
)

// WriteXLSX writes the shopping list to an Excel workbook with a second
// sheet holding the cut-list reference.
func WriteXLSX(w io.Writer, list ShoppingList) error {
	if len(list.Lines) == 0 {
		return ErrEmptyShoppingList
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", shoppingSheet)
	if _, err := f.NewSheet(cutListSheet); err != nil {
		return fmt.Errorf("add cut list sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}

	header := make([]any, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = h
	}
	rows := [][]any{header}
	for _, line := range list.Lines {
		rows = append(rows, []any{
			line.Name,
			line.Material,
			line.Dimensions,
			line.Quantity,
			line.UnitPrice.InexactFloat64(),
			line.Total.InexactFloat64(),
			line.SKU,
			line.URL,
		})
	}
	rows = append(rows, []any{"Estimated Total", nil, nil, list.TotalBoards, nil, list.Total.InexactFloat64()})

	if err := writeRows(f, shoppingSheet, rows); err != nil {
		return err
	}

	last := len(rows)
	if err := f.SetCellStyle(shoppingSheet, "A1", "H1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetCellStyle(shoppingSheet, "E2", fmt.Sprintf("F%d", last), moneyStyle); err != nil {
		return fmt.Errorf("style prices: %w", err)
	}
	if err := f.SetCellStyle(shoppingSheet, fmt.Sprintf("A%d", last), fmt.Sprintf("A%d", last), bold); err != nil {
		return fmt.Errorf("style total: %w", err)
	}
	if err := f.SetColWidth(shoppingSheet, "A", "A", 32); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}
	if err := f.SetColWidth(shoppingSheet, "C", "C", 24); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}

	cutRows := [][]any{{"Part", "Quantity", "Length", "Width", "Thickness", "Material", "Notes"}}
	for _, item := range list.CutList {
		cutRows = append(cutRows, []any{item.PartName, item.Quantity, item.Length, item.Width, item.Thickness, item.Material, item.Notes})
	}
	if err := writeRows(f, cutListSheet, cutRows); err != nil {
		return err
	}
	if err := f.SetCellStyle(cutListSheet, "A1", "G1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
