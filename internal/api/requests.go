package api

import (
	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
	"github.com/eugenenazirov/cutlist-optimizer/internal/storage"
)

type cutListItemRequest struct {
	ID        string          `json:"id,omitempty"`
	PartName  string          `json:"partName" validate:"required,max=200"`
	Quantity  int             `json:"quantity" validate:"gte=1,lte=10000"`
	Length    float64         `json:"length" validate:"gt=0"`
	Width     float64         `json:"width" validate:"gt=0"`
	Thickness float64         `json:"thickness" validate:"gt=0"`
	Material  string          `json:"material" validate:"required,max=100"`
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	Notes     string          `json:"notes,omitempty" validate:"max=1000"`
}

type hardwareItemRequest struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name" validate:"required,max=200"`
	Type      string          `json:"type" validate:"omitempty,hardware_type"`
	Size      string          `json:"size,omitempty" validate:"max=100"`
	Quantity  int             `json:"quantity" validate:"gte=1,lte=10000"`
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	Notes     string          `json:"notes,omitempty" validate:"max=1000"`
	URL       string          `json:"url,omitempty" validate:"omitempty,url"`
}

type optimizeRequest struct {
	CutList []cutListItemRequest `json:"cutList" validate:"dive"`
}

type createProjectRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description" validate:"max=2000"`
	ImageURL    string                `json:"imageUrl" validate:"omitempty,url"`
	CutList     []cutListItemRequest  `json:"cutList" validate:"dive"`
	Hardware    []hardwareItemRequest `json:"hardware" validate:"dive"`
}

// updateProjectRequest is a partial update; absent fields stay unchanged.
type updateProjectRequest struct {
	Title       *string                `json:"title" validate:"omitnil,min=1,max=200"`
	Description *string                `json:"description" validate:"omitnil,max=2000"`
	ImageURL    *string                `json:"imageUrl" validate:"omitempty,url"`
	CutList     *[]cutListItemRequest  `json:"cutList"`
	Hardware    *[]hardwareItemRequest `json:"hardware"`
}

// cutListRequest validates a replacement cut list on its own.
type cutListRequest struct {
	CutList []cutListItemRequest `json:"cutList" validate:"dive"`
}

// hardwareRequest validates a replacement hardware list on its own.
type hardwareRequest struct {
	Hardware []hardwareItemRequest `json:"hardware" validate:"dive"`
}

type titleRequest struct {
	Title string `json:"title" validate:"max=200"`
}

type shoppingListRequest struct {
	Title    string                `json:"title" validate:"max=200"`
	CutList  []cutListItemRequest  `json:"cutList" validate:"dive"`
	Hardware []hardwareItemRequest `json:"hardware" validate:"dive"`
}

type noteRequest struct {
	Content  string `json:"content" validate:"required,max=5000"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
}

type createInventoryRequest struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Material  string  `json:"material" validate:"max=100"`
	Length    float64 `json:"length" validate:"gte=0"`
	Width     float64 `json:"width" validate:"gte=0"`
	Thickness float64 `json:"thickness" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"gte=0,lte=10000"`
	Location  string  `json:"location" validate:"max=200"`
	Notes     string  `json:"notes" validate:"max=1000"`
}

// updateInventoryRequest is a partial update; absent fields stay unchanged.
type updateInventoryRequest struct {
	Name      *string  `json:"name" validate:"omitnil,min=1,max=200"`
	Material  *string  `json:"material" validate:"omitnil,max=100"`
	Length    *float64 `json:"length" validate:"omitnil,gte=0"`
	Width     *float64 `json:"width" validate:"omitnil,gte=0"`
	Thickness *float64 `json:"thickness" validate:"omitnil,gte=0"`
	Quantity  *int     `json:"quantity" validate:"omitnil,gte=0,lte=10000"`
	Location  *string  `json:"location" validate:"omitnil,max=200"`
	Notes     *string  `json:"notes" validate:"omitnil,max=1000"`
}

type optimizeResponse struct {
	optimizer.Result
	WasteBoardFeet    float64           `json:"wasteBoardFeet"`
	Summary           optimizer.Summary `json:"summary"`
	CalculationTimeMs int64             `json:"calculationTimeMs"`
}

func toCutList(reqs []cutListItemRequest) []optimizer.CutListItem {
	items := make([]optimizer.CutListItem, len(reqs))
	for i, r := range reqs {
		items[i] = optimizer.CutListItem{
			ID:        r.ID,
			PartName:  r.PartName,
			Quantity:  r.Quantity,
			Length:    r.Length,
			Width:     r.Width,
			Thickness: r.Thickness,
			Material:  r.Material,
			UnitPrice: r.UnitPrice,
			Notes:     r.Notes,
		}
	}
	return items
}

func toHardware(reqs []hardwareItemRequest) []storage.HardwareItem {
	items := make([]storage.HardwareItem, len(reqs))
	for i, r := range reqs {
		items[i] = storage.HardwareItem{
			ID:        r.ID,
			Name:      r.Name,
			Type:      r.Type,
			Size:      r.Size,
			Quantity:  r.Quantity,
			UnitPrice: r.UnitPrice,
			Notes:     r.Notes,
			URL:       r.URL,
		}
	}
	return items
}
