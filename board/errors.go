package board

import "errors"

var (
	// ErrMalformedEncoding covers structurally invalid position strings:
	// wrong field count, unknown piece letters, ranks that do not span
	// exactly eight files, unparsable clocks.
	ErrMalformedEncoding = errors.New("malformed position encoding")

	// ErrMissingKing is returned when a loaded position leaves either side
	// without a king.
	ErrMissingKing = errors.New("missing king")

	// ErrIllegalMove is returned by the defensive boundary when a caller
	// requests a move that is not in the acting piece's legal-move list,
	// or tries to mutate a finished game.
	ErrIllegalMove = errors.New("illegal move")
)
