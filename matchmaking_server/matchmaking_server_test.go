package matchmaking_server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"chess/auth"
	"chess/game_server"
)

type stubAuthenticator map[string]uuid.UUID

func (stub stubAuthenticator) Authenticate(_ context.Context, req *http.Request) (*auth.UserSession, error) {
	id, found := stub[req.Header.Get("X-Test-User")]
	if !found {
		return nil, auth.ErrNoSession
	}
	return &auth.UserSession{UserId: id}, nil
}

func join(test *testing.T, server *MatchmakingServer, user string) (int, QueueResponse) {
	test.Helper()
	req := httptest.NewRequest("POST", "/unranked", nil)
	req.Header.Set("X-Test-User", user)
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	var resp QueueResponse
	if recorder.Code == http.StatusOK {
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			test.Fatalf("decoding response: %v", err)
		}
	}
	return recorder.Code, resp
}

func Test_unranked_queue(test *testing.T) {
	stub := stubAuthenticator{"alice": uuid.New(), "bob": uuid.New()}
	gameServer := game_server.NewGameServer(stub)
	server := NewMatchmakingServer(stub, gameServer)

	code, _ := join(test, server, "nobody")
	if code != http.StatusUnauthorized {
		test.Fatalf("expected 401 for unauthenticated join, got %d", code)
	}

	code, resp := join(test, server, "alice")
	if code != http.StatusOK || resp.Status != "waiting" {
		test.Fatalf("expected alice to wait, got %d %+v", code, resp)
	}

	// joining again must not match a player with themselves
	code, resp = join(test, server, "alice")
	if code != http.StatusOK || resp.Status != "waiting" {
		test.Fatalf("expected alice to still be waiting, got %d %+v", code, resp)
	}

	waiting := server.waiting

	code, resp = join(test, server, "bob")
	if code != http.StatusOK || resp.Status != "matched" {
		test.Fatalf("expected bob to be matched, got %d %+v", code, resp)
	}
	gameId, err := uuid.Parse(resp.GameId)
	if err != nil {
		test.Fatalf("bad game id %q: %v", resp.GameId, err)
	}

	select {
	case notified := <-waiting.matched:
		if notified != gameId {
			test.Fatalf("waiting player notified of %s, expected %s", notified, gameId)
		}
	default:
		test.Fatal("waiting player was never notified")
	}

	if server.waiting != nil {
		test.Fatal("queue should be empty after a match")
	}
}

func Test_leave_queue(test *testing.T) {
	stub := stubAuthenticator{"alice": uuid.New()}
	server := NewMatchmakingServer(stub, game_server.NewGameServer(stub))

	join(test, server, "alice")

	req := httptest.NewRequest("DELETE", "/unranked", nil)
	req.Header.Set("X-Test-User", "alice")
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		test.Fatalf("expected 204, got %d", recorder.Code)
	}
	if server.waiting != nil {
		test.Fatal("queue should be empty after leaving")
	}
}
