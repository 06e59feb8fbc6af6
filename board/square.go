package board

import (
	"fmt"
)

// Square is a board coordinate. File runs left to right from White's
// perspective, rank runs from White's back rank (0) towards Black's (7).
type Square struct {
	File int8
	Rank int8
}

type Vector = Square

func (sq Square) String() string {
	return fmt.Sprintf("Square{file: %d, rank: %d}", sq.File, sq.Rank)
}

// Coords renders the square in algebraic style, e.g. "E2".
func (sq Square) Coords() string {
	return string([]byte{byte('A' + sq.File), byte('1' + sq.Rank)})
}

func StringToSquare(str string) (Square, error) {
	if len(str) != 2 {
		return Square{}, fmt.Errorf("square string must be two characters: %q", str)
	}

	file := str[0]
	if file >= 'a' && file <= 'h' {
		file -= 'a' - 'A'
	}
	if file < 'A' || file > 'H' {
		return Square{}, fmt.Errorf("file out of range: %q", str)
	}

	rank := str[1]
	if rank < '1' || rank > '8' {
		return Square{}, fmt.Errorf("rank out of range: %q", str)
	}

	return Square{File: int8(file - 'A'), Rank: int8(rank - '1')}, nil
}

func (sq Square) Add(other Vector) Square {
	return Square{sq.File + other.File, sq.Rank + other.Rank}
}

func (sq Square) Diff(other Square) Vector {
	return Vector{sq.File - other.File, sq.Rank - other.Rank}
}

func (sq Square) AddInBounds(other Vector) (Square, bool) {
	newFile := sq.File + other.File
	newRank := sq.Rank + other.Rank

	if newFile < 0 || newFile >= 8 || newRank < 0 || newRank >= 8 {
		return Square{}, false
	}

	return Square{newFile, newRank}, true
}

var diagonalVecs = [4]Vector{
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

var straightVecs = [4]Vector{
	{0, 1}, {0, -1}, {1, 0}, {-1, 0},
}

var knightVecs = [8]Vector{
	{1, 2}, {2, 1}, {2, -1}, {1, -2},
	{-1, -2}, {-2, -1}, {-2, 1}, {-1, 2},
}

var kingVecs = [8]Vector{
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
	{0, 1}, {0, -1}, {1, 0}, {-1, 0},
}
