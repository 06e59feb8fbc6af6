package matchmaking_server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"chess/auth"
	"chess/game_server"
)

const (
	unrankedGameLength = 5 * time.Minute
	unrankedIncrement  = 3 * time.Second
)

type waitingPlayer struct {
	userId  uuid.UUID
	matched chan uuid.UUID
}

// MatchmakingServer pairs players into unranked games. The queue holds one
// player; a second arrival makes a match.
type MatchmakingServer struct {
	ServeMux      *http.ServeMux
	authenticator auth.Authenticator
	gameServer    *game_server.GameServer

	queueLock sync.Mutex
	waiting   *waitingPlayer
}

func NewMatchmakingServer(authenticator auth.Authenticator, gameServer *game_server.GameServer) *MatchmakingServer {
	server := &MatchmakingServer{
		ServeMux:      http.NewServeMux(),
		authenticator: authenticator,
		gameServer:    gameServer,
	}

	server.ServeMux.HandleFunc("POST /unranked", server.JoinHandler)
	server.ServeMux.HandleFunc("DELETE /unranked", server.LeaveHandler)
	server.ServeMux.HandleFunc("/unranked/subscribe", server.SubscribeHandler)

	return server
}

func (server *MatchmakingServer) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	server.ServeMux.ServeHTTP(writer, req)
}

type QueueResponse struct {
	Status string `json:"status"`
	GameId string `json:"gameId,omitempty"`
}

func writeJson(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(value); err != nil {
		slog.Error("encoding response", slog.Any("error", err))
	}
}

// JoinHandler puts the caller in the queue, or pairs them with whoever is
// already waiting.
func (server *MatchmakingServer) JoinHandler(writer http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	session, err := server.authenticator.Authenticate(ctx, req)
	if err != nil {
		writer.WriteHeader(http.StatusUnauthorized)
		return
	}

	server.queueLock.Lock()
	opponent := server.waiting
	switch {
	case opponent != nil && opponent.userId == session.UserId:
		// already queued, keep the existing entry
		opponent = nil
	case opponent != nil:
		server.waiting = nil
	default:
		server.waiting = &waitingPlayer{
			userId:  session.UserId,
			matched: make(chan uuid.UUID, 1),
		}
	}
	server.queueLock.Unlock()

	if opponent == nil {
		slog.InfoContext(ctx, "user queued for unranked game",
			slog.String("id", session.UserId.String()))
		writeJson(writer, QueueResponse{Status: "waiting"})
		return
	}

	white, black := opponent.userId, session.UserId
	if rand.IntN(2) == 0 {
		white, black = black, white
	}
	gameId := server.gameServer.NewSession(white, black, unrankedIncrement, unrankedGameLength)
	opponent.matched <- gameId

	slog.InfoContext(ctx, "matched unranked game",
		slog.String("gameId", gameId.String()),
		slog.String("white", white.String()),
		slog.String("black", black.String()))

	writeJson(writer, QueueResponse{Status: "matched", GameId: gameId.String()})
}

func (server *MatchmakingServer) LeaveHandler(writer http.ResponseWriter, req *http.Request) {
	session, err := server.authenticator.Authenticate(req.Context(), req)
	if err != nil {
		writer.WriteHeader(http.StatusUnauthorized)
		return
	}

	server.queueLock.Lock()
	if server.waiting != nil && server.waiting.userId == session.UserId {
		server.waiting = nil
	}
	server.queueLock.Unlock()

	writer.WriteHeader(http.StatusNoContent)
}

// SubscribeHandler holds a WebSocket open for a queued player and delivers
// the game id when a match is made.
func (server *MatchmakingServer) SubscribeHandler(writer http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	err := server.subscribe(ctx, writer, req)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	slog.ErrorContext(ctx, "matchmaking subscribe", slog.Any("error", err))
}

func (server *MatchmakingServer) subscribe(ctx context.Context, writer http.ResponseWriter, req *http.Request) error {
	session, err := server.authenticator.Authenticate(ctx, req)
	if err != nil {
		writer.WriteHeader(http.StatusUnauthorized)
		return err
	}

	server.queueLock.Lock()
	player := server.waiting
	server.queueLock.Unlock()
	if player == nil || player.userId != session.UserId {
		writer.WriteHeader(http.StatusNotFound)
		return errors.New("subscriber is not in the queue")
	}

	conn, err := websocket.Accept(writer, req, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	select {
	case gameId := <-player.matched:
		resp, err := json.Marshal(QueueResponse{Status: "matched", GameId: gameId.String()})
		if err != nil {
			return err
		}
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := conn.Write(writeCtx, websocket.MessageText, resp); err != nil {
			return err
		}
		return conn.Close(websocket.StatusNormalClosure, "matched")
	case <-ctx.Done():
		// client gave up waiting, free the slot
		server.queueLock.Lock()
		if server.waiting == player {
			server.waiting = nil
		}
		server.queueLock.Unlock()
		return ctx.Err()
	}
}
