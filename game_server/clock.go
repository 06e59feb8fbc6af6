package game_server

import (
	"time"

	"chess/board"
)

// updateClock settles the mover's clock after a completed move: their
// elapsed thinking time comes off, the increment goes on, and the clock
// starts running against the opponent.
func (session *Session) updateClock(mover board.Colour) {
	session.clockLock.Lock()
	defer session.clockLock.Unlock()

	elapsed := time.Since(session.updatedAt)
	if mover == board.White {
		session.whiteTime += session.increment - elapsed
	} else {
		session.blackTime += session.increment - elapsed
	}
	session.clockTurn = mover.Opposite()
	session.updatedAt = time.Now()
}

// getClockState reports both clocks with the running side's elapsed time
// already deducted.
func (session *Session) getClockState() (whiteTime, blackTime time.Duration) {
	session.clockLock.Lock()
	defer session.clockLock.Unlock()

	whiteTime, blackTime = session.whiteTime, session.blackTime
	elapsed := time.Since(session.updatedAt)
	if session.clockTurn == board.White {
		whiteTime -= elapsed
	} else {
		blackTime -= elapsed
	}
	return whiteTime, blackTime
}

func (session *Session) clockStateMs() (whiteMs, blackMs int64) {
	whiteTime, blackTime := session.getClockState()
	return whiteTime.Milliseconds(), blackTime.Milliseconds()
}

const clockPollInterval = 100 * time.Millisecond

// monitorClock watches for flag fall. When the running side's clock hits
// zero the opponent wins and the session is torn down.
func (session *Session) monitorClock() {
	ticker := time.NewTicker(clockPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-session.monitorDone:
			return
		case <-ticker.C:
			whiteTime, blackTime := session.getClockState()
			if whiteTime <= 0 {
				session.endGame(board.Black, "timeout")
				return
			}
			if blackTime <= 0 {
				session.endGame(board.White, "timeout")
				return
			}
		}
	}
}
