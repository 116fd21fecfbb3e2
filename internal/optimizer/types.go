package optimizer

import (
	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/cutlist-optimizer/internal/catalog"
)

// Kerf is the blade width in inches charged against the board for every cut.
const Kerf = 0.125

const (
	// MaxQuantity is the largest quantity a single cut-list item may ask for.
	MaxQuantity = 10000
	// MaxGroupPieces caps the unit pieces packed for one material and
	// thickness group.
	MaxGroupPieces = 50000
)

// CutListItem is one line of a project's cut list as supplied by the caller.
type CutListItem struct {
	ID        string          `json:"id,omitempty"`
	PartName  string          `json:"partName"`
	Quantity  int             `json:"quantity"`
	Length    float64         `json:"length"`
	Width     float64         `json:"width"`
	Thickness float64         `json:"thickness"`
	Material  string          `json:"material"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Notes     string          `json:"notes,omitempty"`
}

// CutPiece is a required piece stripped down to what packing needs.
type CutPiece struct {
	PartName  string  `json:"partName"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Thickness float64 `json:"thickness"`
	Quantity  int     `json:"quantity"`
}

// Fit records how well the board chosen for a group suits its pieces.
type Fit string

const (
	// FitExact means the board is thick enough and contains the largest piece.
	FitExact Fit = "exact"
	// FitUndersized means no board of sufficient thickness contains the
	// largest piece, so the cheapest thick-enough board was used.
	FitUndersized Fit = "undersized"
	// FitThicknessFallback means no board of the material is thick enough,
	// so the first board of the material was used.
	FitThicknessFallback Fit = "thickness_fallback"
)

// Selection is the outcome of choosing a board for a group.
type Selection struct {
	Product catalog.Product
	Fit     Fit
}

// BoardUsage describes the boards bought for one material and thickness group.
type BoardUsage struct {
	Product         catalog.Product `json:"product"`
	Material        string          `json:"material"`
	Thickness       float64         `json:"thickness"`
	Fit             Fit             `json:"fit"`
	Pieces          []CutPiece      `json:"pieces"`
	Boards          [][]CutPiece    `json:"boards"`
	BoardsNeeded    int             `json:"boardsNeeded"`
	UsedLength      float64         `json:"usedLength"`
	WastePercentage float64         `json:"wastePercentage"`
}

// Result is the aggregate outcome of optimizing a cut list.
type Result struct {
	BoardUsage      []BoardUsage    `json:"boardUsage"`
	TotalWaste      float64         `json:"totalWaste"`
	WastePercentage float64         `json:"wastePercentage"`
	TotalBoards     int             `json:"totalBoards"`
	EstimatedCost   decimal.Decimal `json:"estimatedCost"`
	Suggestions     []string        `json:"suggestions"`
}

// Catalog is the product lookup the optimizer depends on.
type Catalog interface {
	ProductsByMaterial(material string) []catalog.Product
}

// Optimizer turns a cut list into a board purchase plan.
type Optimizer interface {
	Optimize(items []CutListItem) Result
}

// groupKey identifies a material and thickness group. Thickness is compared
// numerically so 0.75 and 0.750 land in the same group.
type groupKey struct {
	material  string
	thickness float64
}
