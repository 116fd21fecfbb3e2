package optimizer

import (
	"fmt"
	"math"
	"sort"
)

// PackResult holds the boards a group was packed onto.
type PackResult struct {
	// Bins lists the unit pieces cut from each board, in board-opening order.
	Bins [][]CutPiece
	// TotalWaste is the unused length summed across all boards. Kerf charged
	// against placed pieces counts as used.
	TotalWaste float64
}

// Pack assigns pieces to boards of boardLength using first-fit decreasing.
//
// Every piece is charged Kerf on top of its length. A piece that fills a fresh
// board exactly loses its final kerf off the board end, so a board's remaining
// length never drops below zero. Pieces longer than boardLength are rejected
// with ErrPieceTooLong and oversized quantities with ErrTooManyPieces, both
// before any packing happens.
func Pack(pieces []CutPiece, boardLength float64) (PackResult, error) {
	if !positiveFinite(boardLength) {
		return PackResult{}, ErrInvalidBoardLength
	}

	total, err := countPieces(pieces)
	if err != nil {
		return PackResult{}, err
	}

	for _, p := range pieces {
		if !positiveFinite(p.Length) {
			return PackResult{}, fmt.Errorf("%w: %q is %v", ErrInvalidPieceLength, p.PartName, p.Length)
		}
		if p.Length > boardLength {
			return PackResult{}, fmt.Errorf("%w: %q is %.3f\" against a %.3f\" board", ErrPieceTooLong, p.PartName, p.Length, boardLength)
		}
	}

	expanded := expandPieces(pieces, total)
	sort.SliceStable(expanded, func(i, j int) bool {
		return expanded[i].Length > expanded[j].Length
	})

	var (
		bins      [][]CutPiece
		remaining []float64
	)
	for _, piece := range expanded {
		need := piece.Length + Kerf

		placed := false
		for i := range bins {
			if remaining[i] >= need {
				bins[i] = append(bins[i], piece)
				remaining[i] -= need
				placed = true
				break
			}
		}
		if placed {
			continue
		}

		bins = append(bins, []CutPiece{piece})
		remaining = append(remaining, max(boardLength-need, 0))
	}

	var waste float64
	for _, r := range remaining {
		waste += r
	}

	return PackResult{Bins: bins, TotalWaste: waste}, nil
}

// countPieces sums quantities, refusing any that would expand past the
// packing limits.
func countPieces(pieces []CutPiece) (int, error) {
	total := 0
	for _, p := range pieces {
		if p.Quantity > MaxQuantity {
			return 0, fmt.Errorf("%w: %q asks for %d pieces, the limit is %d", ErrTooManyPieces, p.PartName, p.Quantity, MaxQuantity)
		}
		total += max(p.Quantity, 0)
		if total > MaxGroupPieces {
			return 0, fmt.Errorf("%w: more than %d pieces in one board group", ErrTooManyPieces, MaxGroupPieces)
		}
	}
	return total, nil
}

// expandPieces turns each piece into Quantity unit pieces, keeping input order.
func expandPieces(pieces []CutPiece, total int) []CutPiece {
	out := make([]CutPiece, 0, total)
	for _, p := range pieces {
		unit := p
		unit.Quantity = 1
		for i := 0; i < p.Quantity; i++ {
			out = append(out, unit)
		}
	}
	return out
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
