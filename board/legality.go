package board

// IsAttacked reports whether any piece opposing colour attacks the given
// square: diagonal rays for bishops and queens, straight rays for rooks and
// queens, the knight offsets, and the two pawn-attack offsets for colour's
// facing direction.
func (board *Board) IsAttacked(sq Square, colour Colour) bool {
	enemy := colour.Opposite()

	for _, vec := range diagonalVecs {
		piece := board.findInDirection(sq, vec)
		if piece != nil && piece.Colour == enemy && (piece.Kind == Bishop || piece.Kind == Queen) {
			return true
		}
	}

	for _, vec := range straightVecs {
		piece := board.findInDirection(sq, vec)
		if piece != nil && piece.Colour == enemy && (piece.Kind == Rook || piece.Kind == Queen) {
			return true
		}
	}

	for _, vec := range knightVecs {
		to, inBounds := sq.AddInBounds(vec)
		if !inBounds {
			continue
		}
		if piece := board.Get(to); piece != nil && piece.Colour == enemy && piece.Kind == Knight {
			return true
		}
	}

	forward := int8(1)
	if colour == Black {
		forward = -1
	}
	for _, file := range [2]int8{-1, 1} {
		to, inBounds := sq.AddInBounds(Vector{file, forward})
		if !inBounds {
			continue
		}
		if piece := board.Get(to); piece != nil && piece.Colour == enemy && piece.Kind == Pawn {
			return true
		}
	}

	return false
}

// findInDirection returns the first occupant along the ray from sq, or nil
// when the ray leaves the board first.
func (board *Board) findInDirection(sq Square, vec Vector) *Piece {
	to := sq
	for {
		var inBounds bool
		to, inBounds = to.AddInBounds(vec)
		if !inBounds {
			return nil
		}
		if piece := board.Get(to); piece != nil {
			return piece
		}
	}
}

// withMove applies a hypothetical move, runs fn, and reverts. The revert is
// deferred so the position is restored on every exit path of fn. Move's
// clock bookkeeping is part of the restored state: a real move followed by
// generation must still advance the halfmove clock correctly.
func (board *Board) withMove(piece *Piece, to Square, fn func() bool) bool {
	from := piece.Square
	clockReset := board.clockReset
	captured := board.Move(piece, to)
	defer func() {
		board.UndoMove(piece, from, captured)
		board.clockReset = clockReset
	}()
	return fn()
}

// kingSafeAfter simulates moving piece to the destination and reports
// whether the mover's king is left unattacked.
func (board *Board) kingSafeAfter(piece *Piece, to Square) bool {
	king := board.King(piece.Colour)
	return board.withMove(piece, to, func() bool {
		return !board.IsAttacked(king.Square, piece.Colour)
	})
}

// filterSelfCheck keeps only the candidate moves that do not leave or put
// the mover's own king in check.
func (board *Board) filterSelfCheck(piece *Piece, moves []Square) []Square {
	legal := make([]Square, 0, len(moves))
	for _, to := range moves {
		if board.kingSafeAfter(piece, to) {
			legal = append(legal, to)
		}
	}
	return legal
}

// filterInCheck is a no-op while the mover's king is not attacked; once it
// is, only moves that resolve the check survive.
func (board *Board) filterInCheck(piece *Piece, moves []Square) []Square {
	king := board.King(piece.Colour)
	if !board.IsAttacked(king.Square, piece.Colour) {
		return moves
	}

	legal := make([]Square, 0, len(moves))
	for _, to := range moves {
		if board.kingSafeAfter(piece, to) {
			legal = append(legal, to)
		}
	}
	return legal
}
