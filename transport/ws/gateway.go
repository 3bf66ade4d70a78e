// Package ws is the WebSocket gateway (spec.md §6): it upgrades client
// connections, decodes the JSON envelope protocol, routes GameCommand
// frames to the partition that owns their game, and fans each
// partition's replicated events back out to subscribed connections. Its
// read/write pump shape is the teacher's network handling generalized
// from a binary per-tick broadcast to per-event JSON push.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"snaketron.dev/engine"
	"snaketron.dev/metrics"
	"snaketron.dev/partition"
	"snaketron.dev/protocol"
)

const (
	readLimitBytes  = 4096
	pongWaitSeconds = 60
	pingPeriod      = 30 * time.Second
	writeWait       = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// CommandRouter accepts a decoded command for a game this process owns
// the partition for; the gateway never steps the simulation itself.
type CommandRouter interface {
	EnqueueCommand(gameID uint64, cmd engine.CommandMessage)
}

// StateQuery answers a late-joiner's need for the current GameState so it
// can bootstrap via a synthetic Snapshot before live events start
// arriving.
type StateQuery interface {
	State(gameID uint64) (engine.GameState, bool)
}

// GameCreator performs the Stopped->Started transition and first Snapshot
// for a brand new game (spec.md §3's lifecycle rule); the gateway builds
// the arena and seats the creating player, but the transition itself is
// the owning partition's job.
type GameCreator interface {
	CreateGame(ctx context.Context, state engine.GameState, serverID string) error
}

// Gateway owns one CommandRouter + GameCreator + StateQuery + event
// subscription per partition. PartitionCount must match the value the
// partition executors were started with, since routing uses the same
// partition.Of formula. ServerID identifies this node in the Started
// status of games it creates.
type Gateway struct {
	PartitionCount int
	ServerID       string
	Routers        map[int]CommandRouter
	Creators       map[int]GameCreator
	Readers        map[int]*partition.Reader

	mu    sync.Mutex
	conns map[*conn]struct{}

	nextGameID uint64
	gameIDMu   sync.Mutex
}

func NewGateway(partitionCount int, serverID string) *Gateway {
	return &Gateway{
		PartitionCount: partitionCount,
		ServerID:       serverID,
		Routers:        make(map[int]CommandRouter),
		Creators:       make(map[int]GameCreator),
		Readers:        make(map[int]*partition.Reader),
		conns:          make(map[*conn]struct{}),
	}
}

// allocateGameID hands out a small process-local, monotonically increasing
// game_id. A multi-node deployment would instead draw from a shared
// sequence (e.g. a NATS KV counter); this is the single-process
// equivalent, sufficient for the one deployment mode wired end to end
// here.
func (gw *Gateway) allocateGameID() uint64 {
	gw.gameIDMu.Lock()
	defer gw.gameIDMu.Unlock()
	gw.nextGameID++
	return gw.nextGameID
}

// conn is one connected client: a read goroutine, a write goroutine, and
// the one game it is subscribed to for event push. sessionID
// identifies the connection itself at the transport boundary — distinct
// from the spec-defined integer game/command identifiers, which are
// never synthesized here.
type conn struct {
	gw        *Gateway
	ws        *websocket.Conn
	sessionID uuid.UUID
	userID    uint64
	sendCh    chan protocol.ServerMessage
	done      chan struct{}

	subMu sync.Mutex
	subs  map[uint64]context.CancelFunc
}

// HandleWS upgrades r and runs the connection's read/write pumps until
// disconnect.
func (gw *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &conn{
		gw:        gw,
		ws:        wsConn,
		sessionID: uuid.New(),
		sendCh:    make(chan protocol.ServerMessage, 32),
		done:      make(chan struct{}),
		subs:      make(map[uint64]context.CancelFunc),
	}
	gw.mu.Lock()
	gw.conns[c] = struct{}{}
	gw.mu.Unlock()
	metrics.WebSocketConnections.Inc()
	log.Info("connection established", "remote", r.RemoteAddr, "session_id", c.sessionID)

	go c.writePump()
	c.readPump()

	close(c.done)
	c.subMu.Lock()
	for _, cancel := range c.subs {
		cancel()
	}
	c.subMu.Unlock()
	gw.mu.Lock()
	delete(gw.conns, c)
	gw.mu.Unlock()
	metrics.WebSocketConnections.Dec()
	wsConn.Close()
	log.Info("connection closed", "remote", r.RemoteAddr, "session_id", c.sessionID)
}

func (c *conn) readPump() {
	c.ws.SetReadLimit(readLimitBytes)
	c.ws.SetReadDeadline(time.Now().Add(pongWaitSeconds * time.Second))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWaitSeconds * time.Second))
		return nil
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		msg, err := protocol.DecodeClientMessage(data)
		if err != nil {
			log.Warn("dropping malformed client frame", "error", err)
			continue
		}
		c.handle(msg)
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.sendCh:
			if !ok {
				return
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *conn) handle(msg protocol.ClientMessage) {
	switch msg.Kind {
	case protocol.ClientPing:
		c.send(protocol.PongMessage())

	case protocol.ClientClockSyncReq:
		serverNow := time.Now().UnixMilli()
		c.send(protocol.ClockSyncResponseMessage(msg.ClientTimeMs, serverNow))

	case protocol.ClientGameCommand:
		c.routeCommand(*msg.Command)

	case protocol.ClientToken:
		// Authentication is an external collaborator; the gateway only
		// needs to remember which user_id the token resolved to, which
		// happens out of band here in the teacher's auth layer.

	case protocol.ClientLifecycleOther:
		switch msg.LifecycleKind {
		case "join_game", "spectate_game":
			// join_game/spectate_game payloads carry a game_id the core
			// does need, to know which partition's events this
			// connection wants pushed; everything else about lifecycle
			// stays opaque.
			var payload struct {
				GameID uint64 `json:"game_id"`
			}
			if err := json.Unmarshal(msg.Raw, &payload); err != nil || payload.GameID == 0 {
				log.Warn("dropping join/spectate with no game_id", "lifecycle_kind", msg.LifecycleKind)
				return
			}
			if err := c.Subscribe(payload.GameID); err != nil {
				log.Warn("subscribe failed", "game_id", payload.GameID, "error", err)
			}

		case "create_solo_game":
			c.createSoloGame(msg.Raw)
		}
	}
}

// createSoloGame builds a fresh single-player arena and hands it to the
// owning partition's GameCreator, which performs the Stopped->Started
// transition and first Snapshot (spec.md §3). Arena sizing and player
// seating are the gateway's concern, as an external caller of the core;
// the lifecycle transition itself is not.
func (c *conn) createSoloGame(raw json.RawMessage) {
	var payload struct {
		UserID uint64 `json:"user_id"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.UserID == 0 {
		log.Warn("dropping create_solo_game with no user_id")
		return
	}
	if payload.Width <= 0 {
		payload.Width = 40
	}
	if payload.Height <= 0 {
		payload.Height = 40
	}

	gameID := c.gw.allocateGameID()
	arena := engine.NewArena(payload.Width, payload.Height)
	engine.PlaceSnakes(&arena, 1, 3)
	props := engine.Properties{AvailableFoodTarget: 10, TickDurationMs: 100, GrowthPerFood: 3}
	state := engine.NewGameState(gameID, arena, engine.SoloGameType(), props, time.Now().UnixMilli())
	snakeID := 0
	state.Players = []engine.Player{{UserID: payload.UserID, SnakeID: &snakeID}}
	c.userID = payload.UserID

	p := partition.Of(gameID, c.gw.PartitionCount)
	creator, ok := c.gw.Creators[p]
	if !ok {
		log.Warn("no creator registered for partition", "partition", p, "game_id", gameID)
		return
	}
	if err := creator.CreateGame(context.Background(), state, c.gw.ServerID); err != nil {
		log.Error("create_solo_game failed", "game_id", gameID, "error", err)
		return
	}
	if err := c.Subscribe(gameID); err != nil {
		log.Warn("subscribe after create failed", "game_id", gameID, "error", err)
	}
}

func (c *conn) routeCommand(wire protocol.CommandMessage) {
	cmd := wire.ToEngine()
	// The wire CommandMessage carries no explicit game_id field (spec.md
	// §6 scopes it per-connection via the subscribed game), so the
	// gateway routes using whichever game this connection has subscribed
	// to for commands.
	c.subMu.Lock()
	var target uint64
	for gid := range c.subs {
		target = gid
		break
	}
	c.subMu.Unlock()
	if target == 0 {
		log.Warn("dropping game_command from a connection with no subscribed game")
		return
	}

	p := partition.Of(target, c.gw.PartitionCount)
	router, ok := c.gw.Routers[p]
	if !ok {
		log.Warn("no router registered for partition", "partition", p, "game_id", target)
		return
	}
	router.EnqueueCommand(target, cmd)
}

// Subscribe attaches this connection to a game's event stream, replacing
// any earlier subscription, and sends a synthetic Snapshot first if the
// reader already knows the game's state so the client need not wait for
// the next periodic snapshot to render anything.
func (c *conn) Subscribe(gameID uint64) error {
	p := partition.Of(gameID, c.gw.PartitionCount)
	reader, ok := c.gw.Readers[p]
	if !ok {
		return fmt.Errorf("ws: no reader registered for partition %d", p)
	}

	if state, ok := reader.State(gameID); ok {
		c.send(protocol.GameEventMessage(protocol.ToEventMessage(engine.SnapshotEvent(state))))
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.subMu.Lock()
	for gid, existing := range c.subs {
		existing()
		delete(c.subs, gid)
	}
	c.subs[gameID] = cancel
	c.subMu.Unlock()

	entries := reader.Subscribe()
	go func() {
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if entry.GameID != gameID {
					continue
				}
				c.send(protocol.GameEventMessage(protocol.ToEventMessage(entry.Event)))
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}()
	return nil
}

func (c *conn) send(msg protocol.ServerMessage) {
	select {
	case c.sendCh <- msg:
	default:
		log.Warn("dropping outbound frame, send buffer full")
		metrics.FramesDropped.WithLabelValues("outbound").Inc()
	}
}
