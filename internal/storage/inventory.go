package storage

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
)

var (
	// ErrInventoryNotFound indicates no inventory item exists with the requested id.
	ErrInventoryNotFound = errors.New("inventory item not found")
	// ErrInvalidInventoryItem indicates an inventory item fails validation.
	ErrInvalidInventoryItem = errors.New("invalid inventory item")
)

// InventoryItem is stock already on hand in the shop, such as offcuts.
// Zero dimensions mean the size was not recorded.
type InventoryItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Material  string    `json:"material,omitempty"`
	Length    float64   `json:"length"`
	Width     float64   `json:"width"`
	Thickness float64   `json:"thickness"`
	Quantity  int       `json:"quantity"`
	Location  string    `json:"location,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewInventoryItem holds the fields supplied when recording stock. A zero
// Quantity is stored as 1.
type NewInventoryItem struct {
	Name      string
	Material  string
	Length    float64
	Width     float64
	Thickness float64
	Quantity  int
	Location  string
	Notes     string
}

// InventoryPatch is a partial update; nil fields are left unchanged.
type InventoryPatch struct {
	Name      *string
	Material  *string
	Length    *float64
	Width     *float64
	Thickness *float64
	Quantity  *int
	Location  *string
	Notes     *string
}

func (in NewInventoryItem) item(id string, now time.Time) InventoryItem {
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	return InventoryItem{
		ID:        id,
		Name:      in.Name,
		Material:  in.Material,
		Length:    in.Length,
		Width:     in.Width,
		Thickness: in.Thickness,
		Quantity:  qty,
		Location:  in.Location,
		Notes:     in.Notes,
		CreatedAt: now,
	}
}

func (patch InventoryPatch) apply(item *InventoryItem) {
	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Material != nil {
		item.Material = *patch.Material
	}
	if patch.Length != nil {
		item.Length = *patch.Length
	}
	if patch.Width != nil {
		item.Width = *patch.Width
	}
	if patch.Thickness != nil {
		item.Thickness = *patch.Thickness
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.Location != nil {
		item.Location = *patch.Location
	}
	if patch.Notes != nil {
		item.Notes = *patch.Notes
	}
}

func validateInventoryItem(item InventoryItem) error {
	switch {
	case strings.TrimSpace(item.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInventoryItem)
	case !nonNegativeFinite(item.Length) || !nonNegativeFinite(item.Width) || !nonNegativeFinite(item.Thickness):
		return fmt.Errorf("%w: dimensions cannot be negative", ErrInvalidInventoryItem)
	case item.Quantity < 0 || item.Quantity > optimizer.MaxQuantity:
		return fmt.Errorf("%w: quantity must be between 0 and %d", ErrInvalidInventoryItem, optimizer.MaxQuantity)
	}
	return nil
}

func nonNegativeFinite(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}
