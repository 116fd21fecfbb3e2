package optimizer

import (
	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/cutlist-optimizer/internal/catalog"
)

// Summary totals a cut list before any boards are chosen.
type Summary struct {
	TotalPieces  int             `json:"totalPieces"`
	BoardFeet    float64         `json:"boardFeet"`
	MaterialCost decimal.Decimal `json:"materialCost"`
}

// BoardFeet returns the board feet of quantity pieces of the given size.
func BoardFeet(length, width, thickness float64, quantity int) float64 {
	return catalog.BoardFeet(length, width, thickness) * float64(quantity)
}

// Summarize totals pieces, board feet, and unit-price cost across items.
func Summarize(items []CutListItem) Summary {
	s := Summary{MaterialCost: decimal.Zero}
	for _, item := range items {
		s.TotalPieces += item.Quantity
		s.BoardFeet += BoardFeet(item.Length, item.Width, item.Thickness, item.Quantity)
		s.MaterialCost = s.MaterialCost.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return s
}
