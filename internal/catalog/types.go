package catalog

import "github.com/shopspring/decimal"

// PriceUnit describes what a product's price is quoted against.
type PriceUnit string

const (
	PricePerPiece      PriceUnit = "piece"
	PricePerLinearFoot PriceUnit = "linear_foot"
	PricePerBoardFoot  PriceUnit = "board_foot"
)

// Valid reports whether u is one of the known price units.
func (u PriceUnit) Valid() bool {
	switch u {
	case PricePerPiece, PricePerLinearFoot, PricePerBoardFoot:
		return true
	default:
		return false
	}
}

// Dimensions is an as-sold board size in inches.
type Dimensions struct {
	Length    float64 `json:"length" yaml:"length"`
	Width     float64 `json:"width" yaml:"width"`
	Thickness float64 `json:"thickness" yaml:"thickness"`
}

// Covers reports whether a board of these dimensions is at least as large as
// the requested size on all three axes.
func (d Dimensions) Covers(length, width, thickness float64) bool {
	return d.Length >= length && d.Width >= width && d.Thickness >= thickness
}

// Product is a single purchasable catalog entry.
type Product struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Category    string          `json:"category,omitempty" yaml:"-"`
	Material    string          `json:"material" yaml:"material"`
	Dimensions  Dimensions      `json:"dimensions" yaml:"dimensions"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	PriceUnit   PriceUnit       `json:"priceUnit" yaml:"price_unit"`
	SKU         string          `json:"sku,omitempty" yaml:"sku"`
	URL         string          `json:"url,omitempty" yaml:"url"`
	Description string          `json:"description,omitempty" yaml:"description"`
	InStock     bool            `json:"inStock" yaml:"in_stock"`
}

// catalogFile mirrors the YAML layout of catalog data files.
type catalogFile struct {
	Categories []categoryFile `yaml:"categories"`
}

type categoryFile struct {
	Name     string    `yaml:"name"`
	Products []Product `yaml:"products"`
}
