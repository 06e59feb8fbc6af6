package game_server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"chess/auth"
	"chess/board"
)

type stubAuthenticator struct{}

func (stubAuthenticator) Authenticate(_ context.Context, _ *http.Request) (*auth.UserSession, error) {
	return &auth.UserSession{UserId: uuid.New()}, nil
}

func getSession(test *testing.T, server *GameServer, id uuid.UUID) *Session {
	test.Helper()
	server.sessionsLock.Lock()
	defer server.sessionsLock.Unlock()
	session, found := server.sessions[id]
	if !found {
		test.Fatalf("session %s not found", id)
	}
	return session
}

func sessionGone(server *GameServer, id uuid.UUID) bool {
	server.sessionsLock.Lock()
	defer server.sessionsLock.Unlock()
	_, found := server.sessions[id]
	return !found
}

func mustMove(test *testing.T, str string) board.Move {
	test.Helper()
	move, err := board.DeserialiseMove(str)
	if err != nil {
		test.Fatalf("bad move %q: %v", str, err)
	}
	return move
}

func nextEvent(test *testing.T, sub *subscriber) Event {
	test.Helper()
	select {
	case event := <-sub.events:
		return event
	case <-time.After(time.Second):
		test.Fatal("timed out waiting for event")
		return Event{}
	}
}

func Test_scripted_game(test *testing.T) {
	server := NewGameServer(stubAuthenticator{})
	white, black := uuid.New(), uuid.New()
	id := server.NewSession(white, black, 0, time.Minute)
	session := getSession(test, server, id)
	defer session.cleanup()

	whiteSub, blackSub := session.players[0], session.players[1]

	session.handleMove(blackSub, mustMove(test, "E7:E5"), "")
	event := nextEvent(test, blackSub)
	if event.Type != errorEvent {
		test.Fatalf("expected error event for move out of turn, got %q", event.Type)
	}

	// fool's mate
	session.handleMove(whiteSub, mustMove(test, "F2:F3"), "")
	session.handleMove(blackSub, mustMove(test, "E7:E5"), "")
	session.handleMove(whiteSub, mustMove(test, "G2:G4"), "")

	event = nextEvent(test, whiteSub)
	if event.Type != moveEvent || event.Move != "E7:E5" {
		test.Fatalf("expected black's move event, got %+v", event)
	}

	session.handleMove(blackSub, mustMove(test, "D8:H4"), "")

	event = nextEvent(test, whiteSub)
	if event.Type != moveEvent || event.Move != "D8:H4" {
		test.Fatalf("expected mating move event, got %+v", event)
	}
	if event.CheckSquare != "E1" {
		test.Fatalf("expected check on E1, got %q", event.CheckSquare)
	}

	event = nextEvent(test, whiteSub)
	if event.Type != endEvent || event.Outcome != "win" || event.Victor != "b" {
		test.Fatalf("expected black win, got %+v", event)
	}

	if !sessionGone(server, id) {
		test.Fatal("finished session should have been removed")
	}
}

func Test_move_events_carry_game_state(test *testing.T) {
	server := NewGameServer(stubAuthenticator{})
	white, black := uuid.New(), uuid.New()
	id := server.NewSession(white, black, 0, time.Minute)
	session := getSession(test, server, id)
	defer func() {
		session.cleanup()
		server.RemoveSession(id)
	}()

	whiteSub, blackSub := session.players[0], session.players[1]

	session.handleMove(whiteSub, mustMove(test, "E2:E4"), "")

	event := nextEvent(test, blackSub)
	if event.Type != moveEvent {
		test.Fatalf("expected move event, got %q", event.Type)
	}
	if event.Fen != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1" {
		test.Fatalf("unexpected fen %q", event.Fen)
	}
	if len(event.LegalMoves) != 20 {
		test.Fatalf("expected 20 replies for black, got %d", len(event.LegalMoves))
	}
	if event.CheckSquare != "" {
		test.Fatalf("no check expected, got %q", event.CheckSquare)
	}
	if len(session.moveHistory) != 1 || session.moveHistory[0].Serialise() != "E2:E4" {
		test.Fatalf("unexpected move history %v", session.moveHistory)
	}
}

func Test_game_clock(test *testing.T) {
	server := NewGameServer(stubAuthenticator{})
	id := server.NewSession(uuid.New(), uuid.New(), time.Second, time.Minute)
	session := getSession(test, server, id)
	defer func() {
		session.cleanup()
		server.RemoveSession(id)
	}()

	time.Sleep(50 * time.Millisecond)

	whiteTime, blackTime := session.getClockState()
	if whiteTime >= time.Minute {
		test.Fatalf("white clock should be running, got %v", whiteTime)
	}
	if blackTime != time.Minute {
		test.Fatalf("black clock should be untouched, got %v", blackTime)
	}

	session.handleMove(session.players[0], mustMove(test, "E2:E4"), "")

	whiteTime, blackTime = session.getClockState()
	if whiteTime <= time.Minute-50*time.Millisecond {
		test.Fatalf("white clock should have gained the increment, got %v", whiteTime)
	}
	if blackTime > time.Minute {
		test.Fatalf("black clock should now be running, got %v", blackTime)
	}
}

func Test_flag_fall(test *testing.T) {
	server := NewGameServer(stubAuthenticator{})
	white, black := uuid.New(), uuid.New()
	id := server.NewSession(white, black, 0, 150*time.Millisecond)
	session := getSession(test, server, id)
	whiteSub := session.players[0]

	deadline := time.After(2 * time.Second)
	for !sessionGone(server, id) {
		select {
		case <-deadline:
			test.Fatal("timed out session was never removed")
		case <-time.After(20 * time.Millisecond):
		}
	}

	end := nextEvent(test, whiteSub)
	if end.Type != endEvent || end.Outcome != "timeout" || end.Victor != "b" {
		test.Fatalf("expected black win on timeout, got %+v", end)
	}
	if end.DurationMs < 150 {
		test.Fatalf("game lasted at least the clock length, reported %dms", end.DurationMs)
	}
}
