package gamesock

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"chessline/internal/protocol"
)

type eventCallbackEntry struct {
	id       int
	callback EventCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

var _ Channel = (*WebSocket)(nil)

// WebSocket is the nhooyr-backed Channel implementation. Reconnection
// retries forever with capped exponential backoff until Close; the token
// is re-presented after every successful dial.
type WebSocket struct {
	wsURL  string
	token  TokenProvider
	logger *zap.Logger

	conn   *websocket.Conn
	state  State
	stateM sync.RWMutex

	evCbs    []eventCallbackEntry
	stateCbs []stateCallbackEntry
	cbM      sync.RWMutex

	backoffBase time.Duration
	backoffCap  time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewWebSocket(wsURL string, token TokenProvider, base, cap time.Duration, logger *zap.Logger) *WebSocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if cap <= 0 {
		cap = DefaultBackoffCap
	}
	return &WebSocket{
		wsURL:       wsURL,
		token:       token,
		logger:      logger,
		state:       StateDisconnected,
		backoffBase: base,
		backoffCap:  cap,
		stopCh:      make(chan struct{}),
		evCbs:       make([]eventCallbackEntry, 0),
		stateCbs:    make([]stateCallbackEntry, 0),
	}
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	ws.stateM.Lock()
	if ws.state != StateDisconnected {
		ws.stateM.Unlock()
		return nil
	}
	ws.stateM.Unlock()

	ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
	ws.setState(StateConnecting)

	if err := ws.dial(ctx); err != nil {
		ws.scheduleReconnect()
		return err
	}
	return nil
}

// dial establishes one physical connection, authenticates on it, and
// starts the read loop.
func (ws *WebSocket) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return err
	}

	if ws.token != nil {
		if tok := ws.token(); tok != "" {
			authCtx, authCancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(authCtx, conn, protocol.Auth(tok))
			authCancel()
			if err != nil {
				_ = conn.Close(websocket.StatusGoingAway, "auth failed")
				return err
			}
		}
	}

	ws.stateM.Lock()
	ws.conn = conn
	ws.stateM.Unlock()
	ws.setState(StateConnected)

	ws.wg.Add(1)
	go ws.listen()
	return nil
}

func (ws *WebSocket) listen() {
	defer ws.wg.Done()
	for {
		select {
		case <-ws.stopCh:
			return
		default:
		}

		// Snapshot under the lock; Resync nils the field concurrently.
		ws.stateM.RLock()
		conn := ws.conn
		ws.stateM.RUnlock()
		if conn == nil {
			return
		}
		var env protocol.Envelope
		if err := wsjson.Read(ws.rootCtx, conn, &env); err != nil {
			if ws.isStopping() {
				return
			}
			ws.setState(StateDisconnected)
			_ = ws.closeConn(websocket.StatusGoingAway, "reconnect")
			ws.scheduleReconnect()
			return
		}

		ev, err := protocol.DecodeEnvelope(env)
		if err != nil {
			ws.logger.Warn("dropping undecodable frame", zap.String("type", string(env.Type)), zap.Error(err))
			continue
		}

		ws.cbM.RLock()
		callbacks := make([]eventCallbackEntry, len(ws.evCbs))
		copy(callbacks, ws.evCbs)
		ws.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(ev)
			}
		}
	}
}

func (ws *WebSocket) scheduleReconnect() {
	ws.setState(StateReconnecting)

	go func() {
		for attempt := 1; ; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(Delay(attempt, ws.backoffBase, ws.backoffCap)):
			}

			if err := ws.dial(ws.rootCtx); err != nil {
				ws.logger.Warn("reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			return
		}
	}()
}

// Send writes one outbound frame on the current connection.
func (ws *WebSocket) Send(ctx context.Context, env protocol.Envelope) error {
	ws.stateM.RLock()
	conn, state := ws.conn, ws.state
	ws.stateM.RUnlock()
	if conn == nil || state != StateConnected {
		return errors.New("channel not connected")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	return wsjson.Write(ctx, conn, env)
}

// Resync drops the transport on purpose; the reconnect loop takes over
// and the server re-syncs game state on the fresh connection.
func (ws *WebSocket) Resync() {
	ws.stateM.RLock()
	state := ws.state
	ws.stateM.RUnlock()
	if state != StateConnected {
		return
	}
	ws.logger.Info("forcing transport resync")
	_ = ws.closeConn(websocket.StatusGoingAway, "resync")
}

func (ws *WebSocket) OnEvent(cb EventCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	id := len(ws.evCbs) + 1
	ws.evCbs = append(ws.evCbs, eventCallbackEntry{id: id, callback: cb})
	return id
}

func (ws *WebSocket) RemoveEventCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.evCbs {
		if cb.id == id {
			ws.evCbs = append(ws.evCbs[:i], ws.evCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	id := len(ws.stateCbs) + 1
	ws.stateCbs = append(ws.stateCbs, stateCallbackEntry{id: id, callback: cb})
	return id
}

func (ws *WebSocket) RemoveStateCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) setState(state State) {
	ws.stateM.Lock()
	ws.state = state
	ws.stateM.Unlock()

	ws.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(ws.stateCbs))
	copy(callbacks, ws.stateCbs)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	_ = ws.closeConn(websocket.StatusNormalClosure, "close")

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if ws.rootCancel != nil {
			ws.rootCancel()
		}
		return nil
	}
}

func (ws *WebSocket) closeConn(code websocket.StatusCode, reason string) error {
	ws.stateM.Lock()
	conn := ws.conn
	ws.conn = nil
	ws.stateM.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(code, reason)
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}
