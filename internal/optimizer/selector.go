package optimizer

import "github.com/eugenenazirov/cutlist-optimizer/internal/catalog"

// SelectBoard picks one catalog product to cut every piece of a material and
// thickness group from. It reports false only when the material has no
// catalog products at all.
//
// Selection degrades rather than fails: without a thick-enough board the first
// board of the material is used, and without a board that contains the
// largest piece the cheapest thick-enough board is used. The Fit on the
// returned Selection says which tier applied.
func SelectBoard(cat Catalog, pieces []CutPiece, material string, thickness float64) (Selection, bool) {
	products := cat.ProductsByMaterial(material)
	if len(products) == 0 {
		return Selection{}, false
	}

	thickEnough := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if p.Dimensions.Thickness >= thickness {
			thickEnough = append(thickEnough, p)
		}
	}
	if len(thickEnough) == 0 {
		return Selection{Product: products[0], Fit: FitThicknessFallback}, true
	}

	var maxLength, maxWidth float64
	for _, p := range pieces {
		maxLength = max(maxLength, p.Length)
		maxWidth = max(maxWidth, p.Width)
	}

	fitting := make([]catalog.Product, 0, len(thickEnough))
	for _, p := range thickEnough {
		if p.Dimensions.Length >= maxLength && p.Dimensions.Width >= maxWidth {
			fitting = append(fitting, p)
		}
	}
	if len(fitting) == 0 {
		return Selection{Product: cheapest(thickEnough), Fit: FitUndersized}, true
	}

	return Selection{Product: cheapest(fitting), Fit: FitExact}, true
}

// cheapest returns the lowest-priced product, keeping the earliest on ties.
// products must not be empty.
func cheapest(products []catalog.Product) catalog.Product {
	best := products[0]
	for _, p := range products[1:] {
		if p.Price.LessThan(best.Price) {
			best = p
		}
	}
	return best
}
