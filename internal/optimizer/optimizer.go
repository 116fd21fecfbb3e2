package optimizer

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	// highWasteThreshold is the per-group waste percentage above which a
	// combining suggestion is emitted.
	highWasteThreshold = 30
	// manyBoardsThreshold is the board count above which a longer board is
	// suggested when the catalog carries one.
	manyBoardsThreshold = 3
)

const (
	suggestionEmptyCutList  = "Add items to your cut list to see optimization results."
	suggestionWellOptimized = "Your cut list is well optimized! Waste is within acceptable limits."
)

type cutListOptimizer struct {
	catalog Catalog
}

// New creates an Optimizer that selects boards from cat.
func New(cat Catalog) Optimizer {
	return &cutListOptimizer{catalog: cat}
}

type group struct {
	key    groupKey
	pieces []CutPiece
}

func (o *cutListOptimizer) Optimize(items []CutListItem) Result {
	if len(items) == 0 {
		return Result{
			BoardUsage:    []BoardUsage{},
			EstimatedCost: decimal.Zero,
			Suggestions:   []string{suggestionEmptyCutList},
		}
	}

	result := Result{
		BoardUsage:    []BoardUsage{},
		EstimatedCost: decimal.Zero,
		Suggestions:   []string{},
	}

	groups, skipped := groupItems(items)
	result.Suggestions = append(result.Suggestions, skipped...)

	var usedArea, availableArea float64
	for _, g := range groups {
		usage, notes, ok := o.optimizeGroup(g)
		result.Suggestions = append(result.Suggestions, notes...)
		if !ok {
			continue
		}

		boardLength := usage.Product.Dimensions.Length
		boardWidth := usage.Product.Dimensions.Width

		result.BoardUsage = append(result.BoardUsage, usage)
		result.TotalBoards += usage.BoardsNeeded
		result.EstimatedCost = result.EstimatedCost.Add(usage.Product.Price.Mul(decimal.NewFromInt(int64(usage.BoardsNeeded))))
		usedArea += usage.UsedLength * boardWidth
		availableArea += boardLength * boardWidth * float64(usage.BoardsNeeded)

		result.Suggestions = append(result.Suggestions, o.groupSuggestions(usage)...)
	}

	result.TotalWaste = availableArea - usedArea
	if availableArea > 0 {
		result.WastePercentage = clampPercentage(result.TotalWaste / availableArea * 100)
	}

	if len(result.Suggestions) == 0 && result.TotalBoards > 0 {
		result.Suggestions = append(result.Suggestions, suggestionWellOptimized)
	}

	return result
}

// optimizeGroup selects a board for g and packs its pieces. The returned
// notes are suggestions raised while doing so; ok is false when the group
// produced no boards.
func (o *cutListOptimizer) optimizeGroup(g group) (BoardUsage, []string, bool) {
	material, thickness := g.key.material, g.key.thickness

	sel, found := SelectBoard(o.catalog, g.pieces, material, thickness)
	if !found {
		return BoardUsage{}, []string{fmt.Sprintf("No standard %s boards found for %s\" thickness. Consider custom lumber.", material, inches(thickness))}, false
	}

	boardLength := sel.Product.Dimensions.Length
	longest := o.longestBoard(material)

	var notes []string
	packable := make([]CutPiece, 0, len(g.pieces))
	for _, p := range g.pieces {
		switch {
		case p.Length > longest:
			notes = append(notes, fmt.Sprintf("%q (%s\") exceeds the longest %s board (%s\"); cut it from a custom blank.",
				p.PartName, inches(p.Length), material, inches(longest)))
			continue
		case p.Length > boardLength:
			notes = append(notes, fmt.Sprintf("%q (%s\") is longer than the selected %s board (%s\"); buy a %s\" %s board for it separately.",
				p.PartName, inches(p.Length), material, inches(boardLength), inches(longest), material))
			continue
		}
		packable = append(packable, p)
	}
	if len(packable) == 0 {
		return BoardUsage{}, notes, false
	}

	packed, err := Pack(packable, boardLength)
	if errors.Is(err, ErrTooManyPieces) {
		notes = append(notes, fmt.Sprintf("The %s %s\" group needs more than %d pieces; split it into smaller cut lists.",
			material, inches(thickness), MaxGroupPieces))
		return BoardUsage{}, notes, false
	}
	if err != nil || len(packed.Bins) == 0 {
		return BoardUsage{}, notes, false
	}

	boards := len(packed.Bins)
	available := boardLength * float64(boards)

	return BoardUsage{
		Product:         sel.Product,
		Material:        material,
		Thickness:       thickness,
		Fit:             sel.Fit,
		Pieces:          packable,
		Boards:          packed.Bins,
		BoardsNeeded:    boards,
		UsedLength:      available - packed.TotalWaste,
		WastePercentage: clampPercentage(packed.TotalWaste / available * 100),
	}, notes, true
}

func (o *cutListOptimizer) groupSuggestions(usage BoardUsage) []string {
	var out []string

	if usage.WastePercentage > highWasteThreshold {
		out = append(out, fmt.Sprintf("Consider combining smaller %s pieces to reduce %.0f%% waste.", usage.Material, usage.WastePercentage))
	}

	if usage.BoardsNeeded > manyBoardsThreshold {
		current := usage.Product.Dimensions
		for _, p := range o.catalog.ProductsByMaterial(usage.Material) {
			if p.Dimensions.Length > current.Length && p.Dimensions.Width >= current.Width {
				out = append(out, fmt.Sprintf("Using longer %s boards (%s\") might be more efficient.", usage.Material, inches(p.Dimensions.Length)))
				break
			}
		}
	}

	return out
}

// longestBoard reports the longest catalog board of material.
func (o *cutListOptimizer) longestBoard(material string) float64 {
	var longest float64
	for _, p := range o.catalog.ProductsByMaterial(material) {
		longest = max(longest, p.Dimensions.Length)
	}
	return longest
}

// groupItems buckets items by material and thickness in first-seen order.
// Items without a positive quantity carry nothing to cut and are dropped
// silently. Items with a quantity above MaxQuantity or dimensions that are
// not positive finite numbers are dropped with a note.
func groupItems(items []CutListItem) ([]group, []string) {
	index := make(map[groupKey]int)
	var (
		groups []group
		notes  []string
	)

	for _, item := range items {
		switch {
		case item.Quantity <= 0:
			continue
		case item.Quantity > MaxQuantity:
			notes = append(notes, fmt.Sprintf("%q asks for %d pieces; quantities above %d were skipped.",
				item.PartName, item.Quantity, MaxQuantity))
			continue
		case !positiveFinite(item.Length) || !positiveFinite(item.Width) || !positiveFinite(item.Thickness):
			notes = append(notes, fmt.Sprintf("%q was skipped because its dimensions are not positive numbers.", item.PartName))
			continue
		}

		key := groupKey{material: item.Material, thickness: item.Thickness}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, group{key: key})
		}
		groups[i].pieces = append(groups[i].pieces, CutPiece{
			PartName:  item.PartName,
			Length:    item.Length,
			Width:     item.Width,
			Thickness: item.Thickness,
			Quantity:  item.Quantity,
		})
	}

	return groups, notes
}

func clampPercentage(v float64) float64 {
	return min(max(v, 0), 100)
}

func inches(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
