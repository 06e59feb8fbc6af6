package board

import "fmt"

type Colour uint8

const (
	White Colour = iota
	Black
)

func (colour Colour) Opposite() Colour {
	if colour == White {
		return Black
	}
	return White
}

func (colour Colour) String() string {
	if colour == White {
		return "white"
	}
	return "black"
}

type PieceKind uint8

const (
	Pawn PieceKind = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindNames = [...]string{"pawn", "knight", "bishop", "rook", "queen", "king"}

func (kind PieceKind) String() string {
	return kindNames[kind]
}

// KindFromLetter maps a piece letter (either case) to its kind.
func KindFromLetter(letter byte) (PieceKind, error) {
	switch letter {
	case 'p', 'P':
		return Pawn, nil
	case 'n', 'N':
		return Knight, nil
	case 'b', 'B':
		return Bishop, nil
	case 'r', 'R':
		return Rook, nil
	case 'q', 'Q':
		return Queen, nil
	case 'k', 'K':
		return King, nil
	default:
		return 0, fmt.Errorf("unknown piece letter: %q", string(letter))
	}
}

var fenLetters = [...]byte{'p', 'n', 'b', 'r', 'q', 'k'}

// Piece is a single unit on the board. Colour and Kind are fixed for the
// piece's lifetime; Square tracks wherever the board last put it.
type Piece struct {
	Colour Colour
	Kind   PieceKind
	Square Square

	// moves caches the legal destinations from the last GenerateMoves call.
	// It is derived state, stale as soon as the position changes.
	moves []Square
}

// CachedMoves returns the destinations from the piece's last GenerateMoves
// call without recomputing them.
func (piece *Piece) CachedMoves() []Square {
	return piece.moves
}

func (piece *Piece) FenByte() byte {
	letter := fenLetters[piece.Kind]
	if piece.Colour == White {
		letter -= 'a' - 'A'
	}
	return letter
}

var pieceRunes = [2][6]rune{
	{'♙', '♘', '♗', '♖', '♕', '♔'},
	{'♟', '♞', '♝', '♜', '♛', '♚'},
}

func (piece *Piece) Rune() rune {
	return pieceRunes[piece.Colour][piece.Kind]
}

func (piece *Piece) String() string {
	return fmt.Sprintf("%s %s", piece.Colour, piece.Kind)
}
