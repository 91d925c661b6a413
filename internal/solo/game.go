// Package solo runs a single-player game against the engine oracle.
// There is no server, so terminal positions are detected and scored
// locally.
package solo

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chessline/internal/board"
	"chessline/internal/oracle"
)

// Result is the outcome from the player's perspective.
type Result string

const (
	ResultNone Result = ""
	ResultWin  Result = "win"
	ResultLose Result = "lose"
	ResultDraw Result = "draw"
)

var (
	ErrGameOver      = errors.New("game is over")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrEngineBusy    = errors.New("engine request already in flight")
	ErrEngineNotDue  = errors.New("engine is not to move")
	ErrAlreadyActive = errors.New("game already started")
)

// Oracle is the slice of the engine client the game needs.
type Oracle interface {
	BestMove(ctx context.Context, fen string, depth int) (board.Move, error)
}

// Game is one local game. One oracle request may be in flight at a time;
// a failed request leaves the position unchanged and can be retried with
// EngineReply.
type Game struct {
	id         string
	oracle     Oracle
	difficulty oracle.Difficulty
	logger     *zap.Logger

	mu       sync.Mutex
	started  bool
	side     board.Side
	pos      board.Position
	over     bool
	result   Result
	inFlight bool
	moves    []string
}

// View is an immutable snapshot of the game for display projection.
type View struct {
	ID         string
	Side       board.Side
	Difficulty oracle.Difficulty
	FEN        string
	Turn       board.Side
	Over       bool
	Result     Result
	Thinking   bool
	Moves      []string
}

func NewGame(eng Oracle, difficulty oracle.Difficulty, logger *zap.Logger) *Game {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Game{
		id:         id,
		oracle:     eng,
		difficulty: difficulty,
		logger:     logger.With(zap.String("solo_game", id)),
		pos:        board.Start(),
	}
}

// Start assigns the player a random side and, when the engine has the
// opening move, requests it. An oracle failure on the opening move still
// starts the game; EngineReply retries it.
func (g *Game) Start(ctx context.Context) (board.Side, error) {
	side := board.White
	if rand.IntN(2) == 1 {
		side = board.Black
	}
	return side, g.StartAs(ctx, side)
}

// StartAs starts the game with the player on the given side.
func (g *Game) StartAs(ctx context.Context, side board.Side) error {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return ErrAlreadyActive
	}
	g.started = true
	g.side = side
	g.pos = board.Start()
	g.logger.Info("solo game started",
		zap.String("side", string(side)),
		zap.String("difficulty", string(g.difficulty)))
	g.mu.Unlock()

	if side == board.Black {
		return g.EngineReply(ctx)
	}
	return nil
}

// PlayerMove applies the player's ply and then blocks on the engine's
// reply. The player's ply stands even when the reply fails.
func (g *Game) PlayerMove(ctx context.Context, mv board.Move) error {
	g.mu.Lock()
	if g.over {
		g.mu.Unlock()
		return ErrGameOver
	}
	if g.inFlight {
		g.mu.Unlock()
		return ErrEngineBusy
	}
	if g.pos.Turn() != g.side {
		g.mu.Unlock()
		return ErrNotYourTurn
	}
	if g.pos.NeedsPromotion(mv) && mv.Promotion == "" {
		g.mu.Unlock()
		return board.ErrPromotionRequired
	}
	next, out, err := g.pos.Apply(mv)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	g.pos = next
	g.moves = append(g.moves, mv.UCI())
	if g.settleTerminal(out, g.side) {
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	return g.EngineReply(ctx)
}

// EngineReply requests and applies the engine's move. Exactly one
// request may be in flight; a failure leaves the position unchanged and
// the call can simply be repeated.
func (g *Game) EngineReply(ctx context.Context) error {
	g.mu.Lock()
	if g.over {
		g.mu.Unlock()
		return ErrGameOver
	}
	if g.inFlight {
		g.mu.Unlock()
		return ErrEngineBusy
	}
	if g.pos.Turn() == g.side {
		g.mu.Unlock()
		return ErrEngineNotDue
	}
	g.inFlight = true
	fen := g.pos.FEN()
	engineSide := g.side.Opponent()
	g.mu.Unlock()

	mv, err := g.oracle.BestMove(ctx, fen, g.difficulty.Depth())

	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = false
	if err != nil {
		g.logger.Warn("engine move failed", zap.Error(err))
		return err
	}
	// The position may only have changed if the game was torn down
	// between unlock and relock; a stale reply must not apply then.
	if g.over || g.pos.FEN() != fen {
		return nil
	}
	next, out, err := g.pos.Apply(mv)
	if err != nil {
		g.logger.Error("engine produced an illegal move",
			zap.String("move", mv.UCI()), zap.Error(err))
		return err
	}
	g.pos = next
	g.moves = append(g.moves, mv.UCI())
	g.settleTerminal(out, engineSide)
	return nil
}

// settleTerminal scores a terminal outcome locally. Checkmate is a win
// for whoever delivered it; every other terminal outcome is a draw.
// Caller holds the mutex.
func (g *Game) settleTerminal(out board.Outcome, mover board.Side) bool {
	if !out.Terminal() {
		return false
	}
	g.over = true
	switch {
	case out.Checkmate && mover == g.side:
		g.result = ResultWin
	case out.Checkmate:
		g.result = ResultLose
	default:
		g.result = ResultDraw
	}
	g.logger.Info("solo game over", zap.String("result", string(g.result)))
	return true
}

func (g *Game) Snapshot() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return View{
		ID:         g.id,
		Side:       g.side,
		Difficulty: g.difficulty,
		FEN:        g.pos.FEN(),
		Turn:       g.pos.Turn(),
		Over:       g.over,
		Result:     g.result,
		Thinking:   g.inFlight,
		Moves:      append([]string(nil), g.moves...),
	}
}
