package optimizer

import "errors"

var (
	// ErrPieceTooLong is returned when a piece cannot be cut from a single board.
	ErrPieceTooLong = errors.New("piece is longer than the board")
	// ErrInvalidBoardLength is returned when packing against a non-positive board length.
	ErrInvalidBoardLength = errors.New("board length must be a positive finite number")
	// ErrInvalidPieceLength is returned for a piece whose length is not a
	// positive finite number.
	ErrInvalidPieceLength = errors.New("piece length must be a positive finite number")
	// ErrTooManyPieces is returned when a piece quantity exceeds MaxQuantity
	// or the expanded pieces exceed MaxGroupPieces.
	ErrTooManyPieces = errors.New("too many pieces to pack")
)
