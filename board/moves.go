package board

// GenerateMoves produces the piece's legal destination squares on the given
// board. The list is fully materialized, recomputed from scratch on every
// call, and cached on the piece until the position changes again.
func (piece *Piece) GenerateMoves(board *Board) []Square {
	var moves []Square

	switch piece.Kind {
	case Pawn:
		moves = piece.pawnMoves(board)
	case Knight:
		moves = piece.leaperMoves(board, knightVecs[:])
	case Bishop:
		moves = piece.sliderMoves(board, diagonalVecs[:])
	case Rook:
		moves = piece.sliderMoves(board, straightVecs[:])
	case Queen:
		moves = piece.sliderMoves(board, straightVecs[:])
		moves = append(moves, piece.sliderMoves(board, diagonalVecs[:])...)
	case King:
		moves = piece.leaperMoves(board, kingVecs[:])
	}

	moves = board.filterSelfCheck(piece, moves)
	// Queen moves skip the in-check refilter. filterSelfCheck already
	// rejects every move that leaves the mover's king attacked, so the
	// refilter never removes anything it would keep.
	if piece.Kind != Queen {
		moves = board.filterInCheck(piece, moves)
	}

	piece.moves = moves
	return moves
}

func (piece *Piece) pawnMoves(board *Board) []Square {
	var moves []Square

	forward := Vector{0, 1}
	startRank := int8(1)
	if piece.Colour == Black {
		forward = Vector{0, -1}
		startRank = 6
	}

	if to, inBounds := piece.Square.AddInBounds(forward); inBounds && board.Get(to) == nil {
		moves = append(moves, to)
		if piece.Square.Rank == startRank {
			double := Vector{0, 2 * forward.Rank}
			if to, inBounds := piece.Square.AddInBounds(double); inBounds && board.Get(to) == nil {
				moves = append(moves, to)
			}
		}
	}

	for _, file := range [2]int8{-1, 1} {
		to, inBounds := piece.Square.AddInBounds(Vector{file, forward.Rank})
		if !inBounds {
			continue
		}
		if target := board.Get(to); target != nil && target.Colour != piece.Colour {
			moves = append(moves, to)
		}
	}

	return moves
}

func (piece *Piece) leaperMoves(board *Board, vecs []Vector) []Square {
	var moves []Square
	for _, vec := range vecs {
		to, inBounds := piece.Square.AddInBounds(vec)
		if !inBounds {
			continue
		}
		target := board.Get(to)
		if target == nil || target.Colour != piece.Colour {
			moves = append(moves, to)
		}
	}
	return moves
}

func (piece *Piece) sliderMoves(board *Board, vecs []Vector) []Square {
	var moves []Square
	for _, vec := range vecs {
		to := piece.Square
		for {
			var inBounds bool
			to, inBounds = to.AddInBounds(vec)
			if !inBounds {
				break
			}
			target := board.Get(to)
			if target == nil {
				moves = append(moves, to)
				continue
			}
			if target.Colour != piece.Colour {
				moves = append(moves, to)
			}
			break
		}
	}
	return moves
}
