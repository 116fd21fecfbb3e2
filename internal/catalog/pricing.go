package catalog

import (
	"math"

	"github.com/shopspring/decimal"
)

// BoardFeet converts a volume in cubic inches to board feet.
func BoardFeet(length, width, thickness float64) float64 {
	return length * width * thickness / 144
}

// EstimatePricePerPiece estimates what one piece of the given size costs when
// bought as product.
//
// Board-foot and linear-foot products are charged by volume and length. Piece
// products are charged for every whole board the piece spans.
func EstimatePricePerPiece(product Product, length, width, thickness float64) decimal.Decimal {
	switch product.PriceUnit {
	case PricePerBoardFoot:
		return decimal.NewFromFloat(BoardFeet(length, width, thickness)).Mul(product.Price)
	case PricePerLinearFoot:
		return decimal.NewFromFloat(length / 12).Mul(product.Price)
	}

	boards := math.Ceil(length/product.Dimensions.Length) * math.Ceil(width/product.Dimensions.Width)
	return product.Price.Mul(decimal.NewFromFloat(boards))
}
