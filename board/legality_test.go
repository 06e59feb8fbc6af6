package board_test

import (
	"testing"

	"chess/board"
	"chess/utility"
)

func attackedHelper(test *testing.T, fen, coords string, colour board.Colour, expected bool) {
	test.Helper()

	boardState, err := board.ParseFen(fen)
	assertSuccess(test, err)

	received := boardState.IsAttacked(mustSquare(test, coords), colour)
	if received != expected {
		test.Fatalf("board: %s\nexpected IsAttacked(%s, %s) to be %t",
			fen, coords, colour, expected)
	}
}

func Test_is_attacked(test *testing.T) {
	test.Run("diagonal attackers", func(test *testing.T) {
		attackedHelper(test, "b3k3/8/8/8/8/8/8/4K3 w - - 0 1", "E4", board.White, true)
		attackedHelper(test, "q3k3/8/8/8/8/8/8/4K3 w - - 0 1", "E4", board.White, true)

		// a blocker cuts the ray
		attackedHelper(test, "b3k3/8/2P5/8/8/8/8/4K3 w - - 0 1", "E4", board.White, false)
		attackedHelper(test, "b3k3/8/2P5/8/8/8/8/4K3 w - - 0 1", "C6", board.White, true)

		// rooks do not attack diagonally
		attackedHelper(test, "r3k3/8/8/8/8/8/8/4K3 w - - 0 1", "E4", board.White, false)
	})

	test.Run("straight attackers", func(test *testing.T) {
		attackedHelper(test, "4k3/8/8/8/r7/8/8/4K3 w - - 0 1", "E4", board.White, true)
		attackedHelper(test, "4k3/8/8/8/q7/8/8/4K3 w - - 0 1", "E4", board.White, true)
		attackedHelper(test, "4k3/8/8/8/r2P4/8/8/4K3 w - - 0 1", "E4", board.White, false)
		attackedHelper(test, "4k3/8/8/8/r2P4/8/8/4K3 w - - 0 1", "D4", board.White, true)
	})

	test.Run("knights", func(test *testing.T) {
		attackedHelper(test, "4k3/8/8/8/8/3n4/8/4K3 w - - 0 1", "E1", board.White, true)
		attackedHelper(test, "4k3/8/8/8/8/4n3/8/4K3 w - - 0 1", "E1", board.White, false)
	})

	test.Run("pawns attack towards their opponent only", func(test *testing.T) {
		attackedHelper(test, "4k3/8/8/8/8/8/3p4/4K3 w - - 0 1", "E1", board.White, true)
		attackedHelper(test, "4k3/8/8/8/8/8/5p2/4K3 w - - 0 1", "E1", board.White, true)
		attackedHelper(test, "4k3/8/8/8/8/3p4/8/4K3 w - - 0 1", "E1", board.White, false)

		// a white pawn attacks up the board
		attackedHelper(test, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", "D3", board.Black, true)
		attackedHelper(test, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", "F3", board.Black, true)
		attackedHelper(test, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", "D1", board.Black, false)
	})
}

func Test_legality_filters(test *testing.T) {
	test.Run("a pinned knight has no moves", func(test *testing.T) {
		generatedMovesHelper(test,
			"4k3/8/4n3/8/8/8/8/4R1K1 b - - 0 1",
			"E6", []string{})
	})

	test.Run("every generated move escapes an existing check", func(test *testing.T) {
		fen := "4k3/8/8/8/8/8/4r3/4K3 w - - 0 1"
		boardState, err := board.ParseFen(fen)
		assertSuccess(test, err)

		king := boardState.WhiteKing
		assertBoolEq(test, true, boardState.IsAttacked(king.Square, board.White))

		generatedMovesHelper(test, fen, "E1", []string{"D1", "F1", "E2"})

		for _, move := range boardState.LegalMoves(board.White) {
			piece := boardState.Get(move.From)
			from := piece.Square
			captured := boardState.Move(piece, move.To)
			if boardState.IsAttacked(king.Square, board.White) {
				test.Errorf("move %s does not resolve the check", move.Serialise())
			}
			boardState.UndoMove(piece, from, captured)
		}
	})

	test.Run("queen moves resolve checks too", func(test *testing.T) {
		// the queen cannot reach the checking rook, so blocking on E2 or E3
		// are its only legal moves
		generatedMovesHelper(test,
			"4r2k/8/8/8/8/8/3Q4/4K3 w - - 0 1",
			"D2", []string{"E2", "E3"})
	})

	test.Run("generation leaves the position untouched", func(test *testing.T) {
		fen := "r1bqkbnr/pppp1ppp/2n5/1B2p3/4P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 3"
		boardState, err := board.ParseFen(fen)
		assertSuccess(test, err)

		_ = boardState.LegalMoves(board.White)
		_ = boardState.LegalMoves(board.Black)
		assertStrEquality(test, fen, boardState.Fen())

		// every piece's square back-reference agrees with the grid
		for rank := int8(0); rank < 8; rank += 1 {
			for file := int8(0); file < 8; file += 1 {
				sq := board.Square{File: file, Rank: rank}
				piece := boardState.Get(sq)
				if piece != nil && piece.Square != sq {
					test.Fatalf("piece %s thinks it is on %s but sits on %s",
						piece, piece.Square.Coords(), sq.Coords())
				}
			}
		}
	})

	test.Run("cached moves match the last generation", func(test *testing.T) {
		boardState := board.NewBoard()
		knight := boardState.Get(mustSquare(test, "G1"))

		generated := knight.GenerateMoves(boardState)
		cached := knight.CachedMoves()

		generatedSet := utility.NewSet[board.Square]()
		for _, move := range generated {
			generatedSet.Add(move)
		}
		for _, move := range cached {
			if !generatedSet.Has(move) {
				test.Fatalf("cached move %s was not generated", move.Coords())
			}
		}
		assertNumEq(test, len(generated), len(cached))
	})
}
