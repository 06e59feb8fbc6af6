package game_server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"chess/auth"
	"chess/board"
	"chess/utility"
)

type SessionMap = map[uuid.UUID]*Session

type GameServer struct {
	ServeMux      *http.ServeMux
	authenticator auth.Authenticator

	sessionsLock sync.Mutex
	sessions     SessionMap
}

func NewGameServer(authenticator auth.Authenticator) *GameServer {
	server := &GameServer{
		ServeMux:      http.NewServeMux(),
		authenticator: authenticator,
		sessions:      make(SessionMap),
	}

	server.ServeMux.HandleFunc("/subscribe/", server.SubscribeHandler)

	return server
}

func (server *GameServer) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	server.ServeMux.ServeHTTP(writer, req)
}

func (server *GameServer) OnShutdown() {
	server.sessionsLock.Lock()
	sessions := make([]*Session, 0, len(server.sessions))
	for _, session := range server.sessions {
		sessions = append(sessions, session)
	}
	server.sessionsLock.Unlock()

	for _, session := range sessions {
		session.cleanup()
	}
}

func (server *GameServer) RemoveSession(id uuid.UUID) {
	server.sessionsLock.Lock()
	delete(server.sessions, id)
	server.sessionsLock.Unlock()
}

// Session owns one game. Every engine call goes through gameLock: the board
// is single threaded and a simulate-and-revert window must never observe a
// concurrent mutation.
type Session struct {
	id     uuid.UUID
	server *GameServer

	gameLock    sync.Mutex
	game        *board.Board
	moveHistory []board.Move

	subscriberLock sync.Mutex
	players        [2]*subscriber
	viewers        utility.Set[*subscriber]

	clockLock   sync.Mutex
	whiteTime   time.Duration
	blackTime   time.Duration
	increment   time.Duration
	clockTurn   board.Colour
	updatedAt   time.Time
	monitorDone chan struct{}

	cleanupOnce sync.Once
	createdAt   time.Time
}

type subscriber struct {
	userId      uuid.UUID
	colour      board.Colour
	isPlayer    bool
	events      chan Event
	doneChannel chan struct{}
	Conn        *websocket.Conn
	session     *Session
}

func newSubscriber(userId uuid.UUID, session *Session) *subscriber {
	return &subscriber{
		userId:      userId,
		events:      make(chan Event, 16),
		doneChannel: make(chan struct{}, 1),
		session:     session,
	}
}

func newSession(
	server *GameServer,
	white uuid.UUID,
	black uuid.UUID,
	increment time.Duration,
	gameLength time.Duration,
) *Session {
	session := &Session{
		id:     uuid.New(),
		server: server,
		game:   board.NewBoard(),

		viewers: utility.NewSet[*subscriber](),

		whiteTime:   gameLength,
		blackTime:   gameLength,
		increment:   increment,
		clockTurn:   board.White,
		updatedAt:   time.Now(),
		monitorDone: make(chan struct{}),

		createdAt: time.Now(),
	}

	session.players[0] = newSubscriber(white, session)
	session.players[0].colour = board.White
	session.players[0].isPlayer = true
	session.players[1] = newSubscriber(black, session)
	session.players[1].colour = board.Black
	session.players[1].isPlayer = true

	go session.monitorClock()

	return session
}

func (server *GameServer) NewSession(
	white uuid.UUID,
	black uuid.UUID,
	increment time.Duration,
	gameLength time.Duration,
) uuid.UUID {
	session := newSession(server, white, black, increment, gameLength)

	server.sessionsLock.Lock()
	server.sessions[session.id] = session
	server.sessionsLock.Unlock()

	return session.id
}

func logError(ctx context.Context, err error) {
	slog.ErrorContext(ctx, "error", slog.Any("error", err))
}

// SubscribeHandler accepts the WebSocket connection and subscribes it to the
// game's events.
func (server *GameServer) SubscribeHandler(writer http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	err := server.Subscribe(ctx, writer, req)
	if err == nil {
		return
	}
	logError(ctx, err)
	if errors.Is(err, context.Canceled) {
		return
	}
	closeStatus := websocket.CloseStatus(err)
	if closeStatus == websocket.StatusNormalClosure ||
		closeStatus == websocket.StatusGoingAway {
		return
	}
}

type eventType = string

const (
	connect       eventType = "connect"
	connectViewer eventType = "connectViewer"
	moveEvent     eventType = "move"
	endEvent      eventType = "end"
	errorEvent    eventType = "error"
	sendMove      eventType = "sendMove"
)

type Event struct {
	Type        eventType `json:"type"`
	Fen         string    `json:"fen,omitempty"`
	MoveHistory []string  `json:"moveHistory,omitempty"`
	Colour      string    `json:"colour,omitempty"`
	Move        string    `json:"move,omitempty"`
	Promotion   string    `json:"promotion,omitempty"`
	LegalMoves  []string  `json:"legalMoves,omitempty"`
	CheckSquare string    `json:"checkSquare,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Victor      string    `json:"victor,omitempty"`
	DurationMs  int64     `json:"durationMs,omitempty"`
	WhiteMs     int64     `json:"whiteMs,omitempty"`
	BlackMs     int64     `json:"blackMs,omitempty"`
	Text        string    `json:"text,omitempty"`
}

func serialiseColour(colour board.Colour, isPlayer bool) string {
	if !isPlayer {
		return "v"
	}
	if colour == board.White {
		return "w"
	}
	return "b"
}

func (server *GameServer) Subscribe(ctx context.Context, writer http.ResponseWriter, req *http.Request) error {
	gameId, err := getId(writer, req)
	if err != nil {
		return err
	}

	authSession, err := server.authenticator.Authenticate(ctx, req)
	if err != nil {
		writer.WriteHeader(http.StatusUnauthorized)
		return err
	}

	slog.InfoContext(ctx, "subscribing user",
		slog.String("email", authSession.UserEmail),
		slog.String("gameId", gameId.String()))

	server.sessionsLock.Lock()
	session, found := server.sessions[gameId]
	server.sessionsLock.Unlock()

	if !found {
		writer.WriteHeader(http.StatusNotFound)
		return errors.New("game session not found")
	}

	conn, err := websocket.Accept(writer, req, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return err
	}

	session.subscriberLock.Lock()
	sub := session.getSubscriber(ctx, authSession.UserId)
	sub.Conn = conn
	session.subscriberLock.Unlock()

	ctx = context.WithoutCancel(ctx)

	if err := sub.write(ctx, session.connectEvent(sub)); err != nil {
		sub.closeNow(ctx, err)
		return err
	}

	if sub.isPlayer {
		go sub.initRead(ctx)
	}
	go sub.initWrite(ctx)

	return nil
}

// getSubscriber matches the user to one of the two player seats; anyone
// else joins as a viewer. Callers must hold subscriberLock.
func (session *Session) getSubscriber(ctx context.Context, userId uuid.UUID) *subscriber {
	for _, player := range session.players {
		if player.userId == userId {
			slog.InfoContext(ctx, "added client to session as player",
				slog.String("id", userId.String()),
				slog.String("colour", player.colour.String()))
			return player
		}
	}

	slog.InfoContext(ctx, "added client to session as viewer",
		slog.String("id", userId.String()))
	sub := newSubscriber(userId, session)
	session.viewers.Add(sub)
	return sub
}

func (session *Session) connectEvent(sub *subscriber) Event {
	session.gameLock.Lock()
	fen := session.game.Fen()
	legalMoves := board.SerialiseMoveList(session.game.LegalMoves(session.game.ActiveColour))
	history := board.SerialiseMoveList(session.moveHistory)
	session.gameLock.Unlock()

	whiteMs, blackMs := session.clockStateMs()

	event := Event{
		Type:        connectViewer,
		Fen:         fen,
		MoveHistory: history,
		WhiteMs:     whiteMs,
		BlackMs:     blackMs,
	}
	if sub.isPlayer {
		event.Type = connect
		event.Colour = serialiseColour(sub.colour, true)
		event.LegalMoves = legalMoves
	}
	return event
}

func (session *Session) deleteSubscriber(sub *subscriber) {
	if sub.isPlayer {
		// a player leaving forfeits the game
		session.endGame(sub.colour.Opposite(), "abandonment")
		return
	}

	session.subscriberLock.Lock()
	session.viewers.Remove(sub)
	session.subscriberLock.Unlock()
}

func (session *Session) endGame(winner board.Colour, reason string) {
	duration := time.Since(session.createdAt)
	slog.Info("game over",
		slog.String("id", session.id.String()),
		slog.String("reason", reason),
		slog.Duration("duration", duration))

	session.publish(nil, Event{
		Type:       endEvent,
		Outcome:    reason,
		Victor:     serialiseColour(winner, true),
		DurationMs: duration.Milliseconds(),
	})
	session.cleanup()
	session.server.RemoveSession(session.id)
}

func (session *Session) publishImpl(event Event, sub *subscriber) {
	if sub == nil || sub.events == nil {
		return
	}
	// if the buffer is full the subscriber cannot keep up
	select {
	case sub.events <- event:
	default:
		sub.closeSlow()
	}
}

func (session *Session) publish(exclude *subscriber, event Event) {
	session.subscriberLock.Lock()
	subs := make([]*subscriber, 0, 2+session.viewers.Len())
	for _, player := range session.players {
		if player != exclude {
			subs = append(subs, player)
		}
	}
	for viewer := range session.viewers.Iter() {
		if viewer != exclude {
			subs = append(subs, viewer)
		}
	}
	session.subscriberLock.Unlock()

	for _, sub := range subs {
		session.publishImpl(event, sub)
	}
}

func outcomeEvent(outcome board.Outcome) Event {
	switch outcome {
	case board.WhiteWin:
		return Event{Type: endEvent, Outcome: "win", Victor: "w"}
	case board.BlackWin:
		return Event{Type: endEvent, Outcome: "win", Victor: "b"}
	case board.Stalemate:
		return Event{Type: endEvent, Outcome: "stalemate"}
	case board.MoveRuleDraw:
		return Event{Type: endEvent, Outcome: "fiftyMoveDraw"}
	}
	return Event{Type: endEvent}
}

func (session *Session) handleMove(sub *subscriber, move board.Move, promotion string) {
	session.gameLock.Lock()

	if sub.colour != session.game.ActiveColour {
		session.gameLock.Unlock()
		session.publishImpl(Event{Type: errorEvent, Text: "not your turn"}, sub)
		return
	}

	promotionKind := board.Queen
	if promotion != "" {
		kind, err := board.KindFromLetter(promotion[0])
		if err != nil {
			session.gameLock.Unlock()
			session.publishImpl(Event{Type: errorEvent, Text: err.Error()}, sub)
			return
		}
		promotionKind = kind
	}

	if err := session.game.MakeMovePromote(move, promotionKind); err != nil {
		session.gameLock.Unlock()
		session.publishImpl(Event{Type: errorEvent, Text: err.Error()}, sub)
		return
	}

	session.moveHistory = append(session.moveHistory, move)

	fen := session.game.Fen()
	active := session.game.ActiveColour
	legalMoves := board.SerialiseMoveList(session.game.LegalMoves(active))
	checkSquare := ""
	if king := session.game.King(active); session.game.IsAttacked(king.Square, active) {
		checkSquare = king.Square.Coords()
	}
	gameOver := !session.game.GameActive
	outcome := session.game.Outcome
	session.gameLock.Unlock()

	session.updateClock(sub.colour)
	whiteMs, blackMs := session.clockStateMs()

	session.publish(sub, Event{
		Type:        moveEvent,
		Move:        move.Serialise(),
		Promotion:   promotion,
		Fen:         fen,
		LegalMoves:  legalMoves,
		CheckSquare: checkSquare,
		WhiteMs:     whiteMs,
		BlackMs:     blackMs,
	})

	if gameOver {
		end := outcomeEvent(outcome)
		end.DurationMs = time.Since(session.createdAt).Milliseconds()
		session.publish(nil, end)
		session.cleanup()
		session.server.RemoveSession(session.id)
	}
}

func (session *Session) cleanup() {
	session.cleanupOnce.Do(func() {
		close(session.monitorDone)

		session.subscriberLock.Lock()
		subs := make([]*subscriber, 0, 2+session.viewers.Len())
		subs = append(subs, session.players[0], session.players[1])
		for viewer := range session.viewers.Iter() {
			subs = append(subs, viewer)
		}
		session.subscriberLock.Unlock()

		for _, sub := range subs {
			sub.signalDone()
			if sub.Conn != nil {
				sub.Conn.CloseNow()
			}
		}
	})
}

func writeTimeout(ctx context.Context, timeout time.Duration, wsConn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return wsConn.Write(ctx, websocket.MessageText, msg)
}

func (sub *subscriber) signalDone() {
	select {
	case sub.doneChannel <- struct{}{}:
	default:
	}
}

func (sub *subscriber) closeNow(ctx context.Context, err error) {
	sub.signalDone()

	if err != nil {
		logError(ctx, err)
	}
	if sub.Conn != nil {
		sub.Conn.CloseNow()
	}
	sub.session.deleteSubscriber(sub)
}

func (sub *subscriber) closeSlow() {
	sub.signalDone()

	if sub.Conn != nil {
		sub.Conn.Close(websocket.StatusPolicyViolation,
			"connection too slow to keep up with messages")
	}
	sub.session.deleteSubscriber(sub)
}

func (sub *subscriber) initRead(ctx context.Context) {
	buffer := make([]byte, 1024)
	for {
		msgType, reader, err := sub.Conn.Reader(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			slog.InfoContext(ctx, "close", slog.Int("code", int(closeStatus)))

			sub.closeNow(ctx, err)
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		n, err := reader.Read(buffer)
		if err != nil {
			sub.closeNow(ctx, err)
			return
		}

		var event Event
		if err := json.Unmarshal(buffer[:n], &event); err != nil {
			sub.closeNow(ctx, err)
			return
		}
		if event.Type != sendMove {
			sub.closeNow(ctx, errors.New("event sent is not \"sendMove\""))
			return
		}

		move, err := board.DeserialiseMove(event.Move)
		if err != nil {
			sub.closeNow(ctx, err)
			return
		}

		sub.session.handleMove(sub, move, event.Promotion)
	}
}

const (
	pongWait     = 5 * time.Second
	pingInterval = (pongWait * 9) / 10
)

func (sub *subscriber) write(ctx context.Context, event Event) error {
	resp, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return writeTimeout(ctx, time.Second*5, sub.Conn, resp)
}

func (sub *subscriber) initWrite(ctx context.Context) {
	pinger := time.NewTicker(pingInterval)
	defer pinger.Stop()

	for {
		select {
		case <-sub.doneChannel:
			return
		case event := <-sub.events:
			if err := sub.write(ctx, event); err != nil {
				sub.closeNow(ctx, err)
				return
			}
		case <-pinger.C:
			pingCtx, cancel := context.WithTimeout(ctx, pongWait)
			err := sub.Conn.Ping(pingCtx)
			cancel()
			if err != nil {
				sub.closeNow(ctx, err)
				return
			}
		case <-ctx.Done():
			sub.closeNow(ctx, nil)
			return
		}
	}
}

func getId(writer http.ResponseWriter, req *http.Request) (uuid.UUID, error) {
	id := strings.TrimPrefix(req.URL.Path, "/subscribe/")
	if id == "" {
		http.Error(writer, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return uuid.UUID{}, errors.New("no game id in request")
	}

	return uuid.Parse(id)
}
