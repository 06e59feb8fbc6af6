package board

import (
	"fmt"
	"strings"
)

// Move is an origin/destination pair on the wire boundary. Promotion choice
// travels separately: see MakeMovePromote.
type Move struct {
	From Square
	To   Square
}

func (move *Move) String() string {
	return fmt.Sprintf("(%s -> %s)", move.From.Coords(), move.To.Coords())
}

func MoveListToString(moveList []Move) string {
	parts := make([]string, len(moveList))
	for i, move := range moveList {
		parts[i] = move.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (move *Move) Serialise() string {
	return fmt.Sprintf("%s:%s", move.From.Coords(), move.To.Coords())
}

func DeserialiseMove(str string) (Move, error) {
	parts := strings.Split(str, ":")
	if len(parts) != 2 {
		return Move{}, fmt.Errorf("failed deserialising move: %q", str)
	}

	from, err := StringToSquare(parts[0])
	if err != nil {
		return Move{}, err
	}
	to, err := StringToSquare(parts[1])
	if err != nil {
		return Move{}, err
	}

	return Move{From: from, To: to}, nil
}

func SerialiseMoveList(moveList []Move) []string {
	ret := make([]string, len(moveList))
	for i, move := range moveList {
		ret[i] = move.Serialise()
	}
	return ret
}
