// Package session implements the client-side game session state machine.
// A session owns one game at a time and funnels every inbound server
// event and local command through a single mutual-exclusion boundary, so
// no two position mutations ever interleave.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chessline/internal/board"
	"chessline/internal/journal"
	"chessline/internal/protocol"
)

// Status is the lifecycle phase of a session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSearching Status = "searching"
	StatusActive    Status = "active"
	StatusOver      Status = "over"
)

// Result is the game outcome from this client's perspective.
type Result string

const (
	ResultNone Result = ""
	ResultWin  Result = "win"
	ResultLose Result = "lose"
	ResultDraw Result = "draw"
)

var (
	ErrSessionClosed = errors.New("session torn down")
	ErrNotIdle       = errors.New("session already in a game or searching")
	ErrNotActive     = errors.New("no active game")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrGameDecided   = errors.New("game already decided")
)

// Sender is the slice of the channel the session needs: ordered outbound
// frames plus the ability to force a transport resync after a
// consistency fault.
type Sender interface {
	Send(ctx context.Context, env protocol.Envelope) error
	Resync()
}

// Session is the state machine. All exported methods serialize on one
// mutex; handlers run to completion before the next event is admitted.
type Session struct {
	id      string
	channel Sender
	journal journal.Journal
	logger  *zap.Logger

	mu            sync.Mutex
	closed        bool
	status        Status
	gameID        string
	side          board.Side
	store         *board.Store
	result        Result
	desynced      bool
	localTerminal bool
	moves         []string
}

// Snapshot is an immutable view of the session for display projection.
type Snapshot struct {
	ID            string
	Status        Status
	GameID        string
	Side          board.Side
	FEN           string
	Turn          board.Side
	Result        Result
	Desynced      bool
	LocalTerminal bool
	Moves         []string
}

func New(channel Sender, jr journal.Journal, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if jr == nil {
		jr = journal.NewMemory()
	}
	id := uuid.NewString()
	return &Session{
		id:      id,
		channel: channel,
		journal: jr,
		logger:  logger.With(zap.String("session", id)),
		status:  StatusIdle,
		store:   board.NewStore(),
	}
}

// FindMatch asks the server for an opponent. Valid only from Idle; a
// finished session is discarded and replaced, never restarted.
func (s *Session) FindMatch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.status != StatusIdle {
		return ErrNotIdle
	}
	if err := s.channel.Send(ctx, protocol.FindMatch()); err != nil {
		return err
	}
	s.status = StatusSearching
	s.logger.Info("searching for opponent")
	return nil
}

// HandleEvent consumes one inbound server event. Events arriving after
// Teardown, or that violate the current state's guards, are dropped.
func (s *Session) HandleEvent(ctx context.Context, ev protocol.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	switch ev.Kind {
	case protocol.KindInitGame:
		s.onGameStarted(ctx, ev)
	case protocol.KindReconnect:
		s.onReconnected(ctx, ev)
	case protocol.KindMove:
		s.onRemoteMove(ctx, ev)
	case protocol.KindGameOver:
		s.onGameEnded(ev)
	case protocol.KindPlayerLeft:
		s.onOpponentLeft()
	default:
		s.logger.Debug("ignoring event", zap.String("kind", string(ev.Kind)))
	}
}

func (s *Session) onGameStarted(ctx context.Context, ev protocol.Event) {
	if s.status != StatusSearching {
		s.logger.Warn("game start outside matchmaking", zap.String("status", string(s.status)))
		return
	}
	side, err := board.ParseSide(ev.Side)
	if err != nil {
		s.logger.Error("game start with bad side", zap.Error(err))
		return
	}

	s.gameID = ev.GameID
	s.side = side
	s.store.Reset()
	s.result = ResultNone
	s.desynced = false
	s.localTerminal = false
	s.moves = nil
	if err := s.journal.Clear(ctx, s.gameID); err != nil {
		s.logger.Warn("journal clear failed", zap.Error(err))
	}
	s.status = StatusActive
	s.logger.Info("game started",
		zap.String("game_id", s.gameID),
		zap.String("side", string(s.side)))

	if err := s.channel.Send(ctx, protocol.JoinGameRoom(s.gameID)); err != nil {
		s.logger.Warn("join game room failed", zap.Error(err))
	}
}

// onReconnected applies the server's authoritative snapshot after the
// channel re-established. Guarded on a prior game id: a reconnect frame
// without one is not recovery and is dropped.
func (s *Session) onReconnected(ctx context.Context, ev protocol.Event) {
	if s.gameID == "" {
		s.logger.Warn("reconnect without a prior game, dropping")
		return
	}
	if s.status == StatusOver {
		return
	}
	side, err := board.ParseSide(ev.Side)
	if err != nil {
		s.logger.Error("reconnect with bad side", zap.Error(err))
		return
	}
	if err := s.store.LoadAuthoritative(ev.Position); err != nil {
		s.logger.Error("reconnect with bad position", zap.Error(err))
		return
	}
	s.side = side
	s.status = StatusActive
	s.desynced = false
	s.localTerminal = false
	s.logger.Info("resynced from server", zap.String("game_id", s.gameID))

	s.verifyJournal(ctx, ev.Position)
}

// verifyJournal replays the confirmed plies from the start position and
// compares against the authoritative snapshot. On mismatch the journal
// is stale and gets discarded; the authoritative position always wins.
func (s *Session) verifyJournal(ctx context.Context, authoritative string) {
	recorded, err := s.journal.Moves(ctx, s.gameID)
	if err != nil {
		s.logger.Warn("journal read failed", zap.Error(err))
		return
	}
	replayed := board.Start()
	for _, token := range recorded {
		mv, err := board.MoveFromUCI(token)
		if err != nil {
			break
		}
		next, _, err := replayed.Apply(mv)
		if err != nil {
			break
		}
		replayed = next
	}
	if replayed.FEN() == strings.TrimSpace(authoritative) {
		s.moves = recorded
		return
	}
	s.logger.Warn("journal replay disagrees with server snapshot",
		zap.String("game_id", s.gameID),
		zap.Int("recorded_plies", len(recorded)))
	s.moves = nil
	if err := s.journal.Clear(ctx, s.gameID); err != nil {
		s.logger.Warn("journal clear failed", zap.Error(err))
	}
}

// onRemoteMove replays the opponent's confirmed move. A replay the local
// oracle rejects means client and server disagree about the position; the
// move is discarded, the session marks itself desynced, and the channel
// is asked to drop the transport so the server re-syncs us.
func (s *Session) onRemoteMove(ctx context.Context, ev protocol.Event) {
	if s.status != StatusActive {
		return
	}
	mv := board.Move{From: ev.Move.From, To: ev.Move.To, Promotion: ev.Move.Promotion}
	out, err := s.store.Apply(mv)
	if err != nil {
		s.desynced = true
		s.logger.Warn("remote move rejected by local rules, forcing resync",
			zap.String("game_id", s.gameID),
			zap.String("move", mv.UCI()),
			zap.Error(err))
		s.channel.Resync()
		return
	}
	s.recordPly(ctx, mv)
	if out.Terminal() {
		s.localTerminal = true
	}
}

// onGameEnded maps the server's absolute result onto this client's
// perspective. Duplicate verdicts after Over are ignored.
func (s *Session) onGameEnded(ev protocol.Event) {
	if s.status == StatusOver {
		return
	}
	if s.status != StatusActive {
		s.logger.Warn("game end outside an active game", zap.String("status", string(s.status)))
		return
	}
	s.result = mapResult(ev.Result, s.side)
	s.status = StatusOver
	s.logger.Info("game over",
		zap.String("game_id", s.gameID),
		zap.String("server_result", ev.Result),
		zap.String("result", string(s.result)))
}

// onOpponentLeft is a forfeit in our favor. The Active guard makes a
// duplicate after Over a no-op, so the recorded Result never flips.
func (s *Session) onOpponentLeft() {
	if s.status != StatusActive {
		return
	}
	s.result = ResultWin
	s.status = StatusOver
	s.logger.Info("opponent left, win by forfeit", zap.String("game_id", s.gameID))
}

// TryMove attempts a local move. Attempts out of turn or outside an
// active game change nothing and send nothing; callers may surface the
// returned error or ignore it.
func (s *Session) TryMove(ctx context.Context, mv board.Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.status != StatusActive {
		return ErrNotActive
	}
	if s.localTerminal {
		return ErrGameDecided
	}
	if s.store.Turn() != s.side {
		return ErrNotYourTurn
	}
	if s.store.Position().NeedsPromotion(mv) && mv.Promotion == "" {
		return board.ErrPromotionRequired
	}

	out, err := s.store.Apply(mv)
	if err != nil {
		return err
	}
	s.recordPly(ctx, mv)

	if err := s.channel.Send(ctx, protocol.MoveMade(protocol.MoveBody{
		From:      mv.From,
		To:        mv.To,
		Promotion: mv.Promotion,
	})); err != nil {
		// The move is applied locally but the server never saw it; the
		// transport resync restores the authoritative position.
		s.desynced = true
		s.logger.Warn("move send failed, forcing resync", zap.Error(err))
		s.channel.Resync()
		return err
	}

	if out.Terminal() {
		// Local detection only freezes input; the verdict that sets
		// Result comes from the server.
		s.localTerminal = true
		s.logger.Info("terminal position reached, awaiting server verdict",
			zap.String("game_id", s.gameID))
	}
	return nil
}

func (s *Session) recordPly(ctx context.Context, mv board.Move) {
	s.moves = append(s.moves, mv.UCI())
	if err := s.journal.Append(ctx, s.gameID, mv.UCI()); err != nil {
		s.logger.Warn("journal append failed", zap.Error(err))
	}
}

// Snapshot returns an immutable view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:            s.id,
		Status:        s.status,
		GameID:        s.gameID,
		Side:          s.side,
		FEN:           s.store.Position().FEN(),
		Turn:          s.store.Turn(),
		Result:        s.result,
		Desynced:      s.desynced,
		LocalTerminal: s.localTerminal,
		Moves:         append([]string(nil), s.moves...),
	}
}

// Teardown marks the session dead. Late asynchronous events and commands
// arriving afterwards are dropped instead of mutating a dead session.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.logger.Info("session torn down")
}

func mapResult(raw string, mySide board.Side) Result {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(mySide):
		return ResultWin
	case "draw":
		return ResultDraw
	default:
		return ResultLose
	}
}
