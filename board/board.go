package board

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// StartFen is the standard initial position.
const StartFen = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type Outcome uint8

const (
	NoOutcome Outcome = iota
	WhiteWin
	BlackWin
	Stalemate
	MoveRuleDraw
)

func (outcome Outcome) String() string {
	switch outcome {
	case WhiteWin:
		return "white win"
	case BlackWin:
		return "black win"
	case Stalemate:
		return "stalemate"
	case MoveRuleDraw:
		return "fifty move rule draw"
	}
	return "no outcome"
}

// Board is the sole owner of position state. It is not safe for concurrent
// use; callers exposing it behind concurrent access must serialize every
// call per game, since Move/UndoMove pairs are not atomic with respect to
// interleaved reads.
type Board struct {
	grid [8][8]*Piece

	ActiveColour   Colour
	CastlingRights string // parsed from the encoding, never consulted
	EnPassant      string // parsed from the encoding, never consulted
	HalfmoveClock  int
	FullmoveNumber int

	WhiteKing *Piece
	BlackKing *Piece

	GameActive bool
	Outcome    Outcome

	// clockReset is set by Move when the relocation was a pawn move or a
	// capture; AdvanceTurn consumes it.
	clockReset bool
}

// NewBoard loads the standard starting position.
func NewBoard() *Board {
	board, err := ParseFen(StartFen)
	if err != nil {
		panic(err)
	}
	return board
}

// ParseFen builds a Board from a six-field FEN string. Structural problems
// wrap ErrMalformedEncoding; a side without a king wraps ErrMissingKing.
func ParseFen(fen string) (*Board, error) {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		return nil, fmt.Errorf("%w: expected 6 fields, found %d", ErrMalformedEncoding, len(fields))
	}

	board := &Board{GameActive: true}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("%w: expected 8 ranks, found %d", ErrMalformedEncoding, len(ranks))
	}

	for i, rankStr := range ranks {
		rank := int8(7 - i)
		file := int8(0)
		for _, char := range rankStr {
			if char >= '1' && char <= '8' {
				file += int8(char - '0')
				continue
			}
			if file >= 8 {
				return nil, fmt.Errorf("%w: rank %d spans more than 8 files", ErrMalformedEncoding, rank+1)
			}
			if err := board.placePiece(char, Square{file, rank}); err != nil {
				return nil, err
			}
			file += 1
		}
		if file != 8 {
			return nil, fmt.Errorf("%w: rank %d spans %d files", ErrMalformedEncoding, rank+1, file)
		}
	}

	if board.WhiteKing == nil {
		return nil, fmt.Errorf("%w: no white king", ErrMissingKing)
	}
	if board.BlackKing == nil {
		return nil, fmt.Errorf("%w: no black king", ErrMissingKing)
	}

	switch fields[1] {
	case "w":
		board.ActiveColour = White
	case "b":
		board.ActiveColour = Black
	default:
		return nil, fmt.Errorf("%w: active colour must be w or b, found %q", ErrMalformedEncoding, fields[1])
	}

	board.CastlingRights = fields[2]
	board.EnPassant = fields[3]

	halfmove, err := strconv.Atoi(fields[4])
	if err != nil || halfmove < 0 {
		return nil, fmt.Errorf("%w: bad halfmove clock %q", ErrMalformedEncoding, fields[4])
	}
	board.HalfmoveClock = halfmove

	fullmove, err := strconv.Atoi(fields[5])
	if err != nil || fullmove < 1 {
		return nil, fmt.Errorf("%w: bad fullmove number %q", ErrMalformedEncoding, fields[5])
	}
	board.FullmoveNumber = fullmove

	return board, nil
}

func (board *Board) placePiece(char rune, sq Square) error {
	if char > 0xff {
		return fmt.Errorf("%w: unexpected character %q", ErrMalformedEncoding, string(char))
	}
	kind, err := KindFromLetter(byte(char))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}

	colour := Black
	if char >= 'A' && char <= 'Z' {
		colour = White
	}

	piece := &Piece{Colour: colour, Kind: kind, Square: sq}
	board.Set(sq, piece)

	if kind == King {
		if colour == White {
			if board.WhiteKing != nil {
				return fmt.Errorf("%w: multiple white kings", ErrMalformedEncoding)
			}
			board.WhiteKing = piece
		} else {
			if board.BlackKing != nil {
				return fmt.Errorf("%w: multiple black kings", ErrMalformedEncoding)
			}
			board.BlackKing = piece
		}
	}

	return nil
}

// Get and Set are raw accessors with no legality checking. The legality
// filter and the move executor are responsible for using them correctly.
func (board *Board) Get(sq Square) *Piece {
	return board.grid[sq.Rank][sq.File]
}

func (board *Board) Set(sq Square, piece *Piece) {
	board.grid[sq.Rank][sq.File] = piece
}

func (board *Board) King(colour Colour) *Piece {
	if colour == White {
		return board.WhiteKing
	}
	return board.BlackKing
}

// Move relocates piece to the destination square and returns whatever
// previously occupied it, leaving the origin empty. It does not validate
// legality; that is the caller's job via the piece's move generation.
func (board *Board) Move(piece *Piece, to Square) *Piece {
	captured := board.Get(to)
	board.Set(to, piece)
	board.Set(piece.Square, nil)
	piece.Square = to

	board.clockReset = piece.Kind == Pawn || captured != nil

	return captured
}

// UndoMove is the exact inverse of Move: piece goes back to from, and
// captured (possibly nil) goes back to the square piece currently occupies.
// It exists for legality-testing simulation, not as a user-facing undo.
func (board *Board) UndoMove(piece *Piece, from Square, captured *Piece) {
	board.Set(piece.Square, captured)
	board.Set(from, piece)
	piece.Square = from
}

// Promote replaces pawn with a fresh piece of the chosen kind on the square
// the pawn stands on. The engine checks only that the pawn is on its last
// rank; the caller picks the kind. Pawn and King are rejected since neither
// is a valid promotion target.
func (board *Board) Promote(pawn *Piece, kind PieceKind) (*Piece, error) {
	if pawn.Kind != Pawn {
		return nil, fmt.Errorf("%w: %s is not a pawn", ErrIllegalMove, pawn)
	}
	if pawn.Square.Rank != 0 && pawn.Square.Rank != 7 {
		return nil, fmt.Errorf("%w: pawn at %s is not on its last rank", ErrIllegalMove, pawn.Square.Coords())
	}
	if kind == Pawn || kind == King {
		return nil, fmt.Errorf("%w: cannot promote to %s", ErrIllegalMove, kind)
	}

	piece := &Piece{Colour: pawn.Colour, Kind: kind, Square: pawn.Square}
	board.Set(pawn.Square, piece)
	return piece, nil
}

// AdvanceTurn completes a player move: it flips the active colour, updates
// the clocks, and evaluates terminal conditions. It must be called exactly
// once after each Move/Promote pair applied as a real move.
func (board *Board) AdvanceTurn() {
	if !board.GameActive {
		return
	}

	board.ActiveColour = board.ActiveColour.Opposite()
	if board.ActiveColour == White {
		board.FullmoveNumber += 1
	}

	if board.clockReset {
		board.HalfmoveClock = 0
	} else {
		board.HalfmoveClock += 1
	}
	board.clockReset = false

	// one legal-move scan decides every terminal outcome; the scan runs the
	// full simulate-and-revert filter over each piece, so it is done once
	king := board.King(board.ActiveColour)
	hasMove := board.hasLegalMove(board.ActiveColour)

	if !hasMove && board.IsAttacked(king.Square, board.ActiveColour) {
		board.GameActive = false
		if board.ActiveColour == White {
			board.Outcome = BlackWin
		} else {
			board.Outcome = WhiteWin
		}
		return
	}

	if board.HalfmoveClock >= 100 {
		board.GameActive = false
		board.Outcome = MoveRuleDraw
		return
	}

	if !hasMove {
		board.GameActive = false
		board.Outcome = Stalemate
	}
}

// IsCheckmate reports whether the king's side has no legal move at all.
// It does not test whether the king is attacked; callers must confirm check
// separately to distinguish checkmate from stalemate.
func (board *Board) IsCheckmate(king *Piece) bool {
	return !board.hasLegalMove(king.Colour)
}

// IsStalemate reports whether the active colour has no legal move,
// regardless of whether its king is attacked.
func (board *Board) IsStalemate() bool {
	return !board.hasLegalMove(board.ActiveColour)
}

// CheckForDraw ends the game if the halfmove clock has reached 100 plies
// (the fifty move rule) or the active side is stalemated. Insufficient
// material is not detected.
func (board *Board) CheckForDraw() {
	if board.HalfmoveClock >= 100 {
		board.GameActive = false
		board.Outcome = MoveRuleDraw
		return
	}
	if board.IsStalemate() {
		board.GameActive = false
		board.Outcome = Stalemate
	}
}

func (board *Board) hasLegalMove(colour Colour) bool {
	for rank := int8(0); rank < 8; rank += 1 {
		for file := int8(0); file < 8; file += 1 {
			piece := board.grid[rank][file]
			if piece == nil || piece.Colour != colour {
				continue
			}
			if len(piece.GenerateMoves(board)) > 0 {
				return true
			}
		}
	}
	return false
}

// LegalMoves collects every legal move for the given colour.
func (board *Board) LegalMoves(colour Colour) []Move {
	moves := make([]Move, 0)
	for rank := int8(0); rank < 8; rank += 1 {
		for file := int8(0); file < 8; file += 1 {
			piece := board.grid[rank][file]
			if piece == nil || piece.Colour != colour {
				continue
			}
			for _, to := range piece.GenerateMoves(board) {
				moves = append(moves, Move{From: piece.Square, To: to})
			}
		}
	}
	return moves
}

// MakeMove is the defensive boundary for callers driving whole moves: it
// rejects anything not in the acting piece's freshly generated legal-move
// list, applies the move (promoting to a queen when a pawn reaches its last
// rank), and advances the turn.
func (board *Board) MakeMove(move Move) error {
	return board.MakeMovePromote(move, Queen)
}

// MakeMovePromote is MakeMove with a caller-chosen promotion kind, consulted
// only when the move actually promotes.
func (board *Board) MakeMovePromote(move Move, promotion PieceKind) error {
	if !board.GameActive {
		return fmt.Errorf("%w: game is over (%s)", ErrIllegalMove, board.Outcome)
	}

	piece := board.Get(move.From)
	if piece == nil {
		return fmt.Errorf("%w: no piece at %s", ErrIllegalMove, move.From.Coords())
	}
	if piece.Colour != board.ActiveColour {
		return fmt.Errorf("%w: it is not %s's turn", ErrIllegalMove, piece.Colour)
	}
	if !slices.Contains(piece.GenerateMoves(board), move.To) {
		return fmt.Errorf("%w: %s cannot move %s", ErrIllegalMove, piece, move.String())
	}

	promoting := piece.Kind == Pawn && (move.To.Rank == 0 || move.To.Rank == 7)
	if promoting && (promotion == Pawn || promotion == King) {
		return fmt.Errorf("%w: cannot promote to %s", ErrIllegalMove, promotion)
	}

	board.Move(piece, move.To)

	if promoting {
		if _, err := board.Promote(piece, promotion); err != nil {
			return err
		}
	}

	board.AdvanceTurn()
	return nil
}

// Fen re-encodes the current position.
func (board *Board) Fen() string {
	var builder strings.Builder

	for rank := int8(7); rank >= 0; rank -= 1 {
		empty := 0
		for file := int8(0); file < 8; file += 1 {
			piece := board.grid[rank][file]
			if piece == nil {
				empty += 1
				continue
			}
			if empty != 0 {
				builder.WriteByte(byte('0' + empty))
				empty = 0
			}
			builder.WriteByte(piece.FenByte())
		}
		if empty != 0 {
			builder.WriteByte(byte('0' + empty))
		}
		if rank != 0 {
			builder.WriteByte('/')
		}
	}

	colour := "w"
	if board.ActiveColour == Black {
		colour = "b"
	}

	return fmt.Sprintf("%s %s %s %s %d %d",
		builder.String(), colour, board.CastlingRights, board.EnPassant,
		board.HalfmoveClock, board.FullmoveNumber)
}

func (board *Board) String() string {
	var builder strings.Builder
	builder.WriteString(" A B C D E F G H\n")
	for rank := int8(7); rank >= 0; rank -= 1 {
		builder.WriteByte(' ')
		for file := int8(0); file < 8; file += 1 {
			piece := board.grid[rank][file]
			if piece == nil {
				builder.WriteRune('.')
			} else {
				builder.WriteRune(piece.Rune())
			}
			builder.WriteByte(' ')
		}
		builder.WriteString(fmt.Sprintf(" %d\n", rank+1))
	}
	return builder.String()
}
