package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"Item", "Material", "Dimensions", "Quantity", "Unit Price", "Total", "SKU", "URL"}

// WriteCSV writes the shopping list as comma-separated rows with a header.
func WriteCSV(w io.Writer, list ShoppingList) error {
	if len(list.Lines) == 0 {
		return ErrEmptyShoppingList
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, line := range list.Lines {
		record := []string{
			line.Name,
			line.Material,
			line.Dimensions,
			strconv.Itoa(line.Quantity),
			money(line.UnitPrice),
			money(line.Total),
			line.SKU,
			line.URL,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
