// Command chessline is an interactive terminal chess client: online
// matchmaking over the game server's websocket, or single-player against
// the engine oracle.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chessline/internal/account"
	"chessline/internal/board"
	appcfg "chessline/internal/config"
	"chessline/internal/gamesock"
	"chessline/internal/journal"
	"chessline/internal/msgcat"
	"chessline/internal/obslog"
	"chessline/internal/oracle"
	"chessline/internal/projection"
	"chessline/internal/protocol"
	"chessline/internal/session"
	"chessline/internal/solo"
)

type app struct {
	cfg     *appcfg.AppConfig
	logger  *zap.Logger
	cat     *msgcat.Catalog
	channel *gamesock.WebSocket
	sess    *session.Session
	engine  *oracle.Client

	// Shared between the command loop and the channel's callback
	// goroutines; render reads both concurrently with writes.
	chState  atomic.Value // gamesock.State
	soloGame atomic.Pointer[solo.Game]
}

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cat, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		logger.Fatal("message catalog init failed", zap.Error(err))
	}

	loginCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	auth, err := account.NewClient(cfg.ServerBaseURL).Login(loginCtx, cfg.Username, cfg.Password)
	cancel()
	if err != nil {
		logger.Fatal("login failed", zap.Error(err))
	}
	logger.Info("logged in", zap.String("username", auth.Username))

	jr, closeJournal, err := buildJournal(cfg, logger)
	if err != nil {
		logger.Fatal("journal init failed", zap.Error(err))
	}
	defer closeJournal()

	ws := gamesock.NewWebSocket(cfg.ServerWSURL,
		func() string { return auth.Token },
		cfg.BackoffBase, cfg.BackoffCap, logger)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		cat:     cat,
		channel: ws,
		sess:    session.New(ws, jr, logger),
		engine:  oracle.NewClient(cfg.EngineAPIURL),
	}
	a.chState.Store(gamesock.StateDisconnected)

	ws.OnEvent(func(ev protocol.Event) {
		a.sess.HandleEvent(context.Background(), ev)
		a.render()
	})
	ws.OnStateChange(func(st gamesock.State) {
		a.chState.Store(st)
		a.render()
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		logger.Warn("initial connect failed, retrying in background", zap.Error(err))
	}
	ccancel()

	lines := make(chan string)
	go readLines(lines)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	a.render()
	for {
		select {
		case <-sigCh:
			a.shutdown()
			return
		case line, ok := <-lines:
			if !ok {
				a.shutdown()
				return
			}
			if !a.handle(line) {
				a.shutdown()
				return
			}
		}
	}
}

func buildJournal(cfg *appcfg.AppConfig, logger *zap.Logger) (journal.Journal, func(), error) {
	if cfg.RedisURL == "" {
		return journal.NewMemory(), func() {}, nil
	}
	r, err := journal.NewRedis(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("journal backed by redis")
	return r, func() { _ = r.Close() }, nil
}

func readLines(out chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	close(out)
}

// handle executes one console command; returns false to quit.
func (a *app) handle(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		a.render()
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "quit", "exit":
		return false
	case "help":
		a.printHelp()
	case "find":
		a.soloGame.Store(nil)
		if err := a.sess.FindMatch(context.Background()); err != nil {
			a.printError(err)
		}
		a.render()
	case "solo":
		a.startSolo(args)
	case "engine":
		a.engineReply()
	case "board", "state":
		a.render()
	case "move":
		if len(args) != 1 {
			fmt.Println("usage: move <from><to>[promotion], e.g. move e2e4")
			return true
		}
		a.playMove(args[0])
	default:
		// A bare move token is the common case.
		a.playMove(cmd)
	}
	return true
}

func (a *app) playMove(token string) {
	mv, err := board.MoveFromUCI(token)
	if err != nil {
		a.printError(err)
		return
	}
	if g := a.soloGame.Load(); g != nil {
		if err := g.PlayerMove(context.Background(), mv); err != nil {
			a.printError(err)
		}
		a.render()
		return
	}
	if err := a.sess.TryMove(context.Background(), mv); err != nil {
		a.printError(err)
	}
	a.render()
}

func (a *app) startSolo(args []string) {
	raw := ""
	if len(args) > 0 {
		raw = args[0]
	} else {
		raw = a.cfg.Difficulty
	}
	diff, err := oracle.ParseDifficulty(raw)
	if err != nil {
		a.printError(err)
		return
	}
	game := solo.NewGame(a.engine, diff, a.logger)
	side, err := game.Start(context.Background())
	if err != nil {
		// The game is live even when the opening engine move failed;
		// 'engine' retries it.
		a.printError(err)
	}
	a.soloGame.Store(game)
	fmt.Printf("solo game started, you play %s (%s)\n", side, diff)
	a.render()
}

func (a *app) engineReply() {
	g := a.soloGame.Load()
	if g == nil {
		fmt.Println("no solo game in progress")
		return
	}
	if err := g.EngineReply(context.Background()); err != nil {
		a.printError(err)
	}
	a.render()
}

func (a *app) render() {
	var view projection.BoardView
	var side board.Side
	if g := a.soloGame.Load(); g != nil {
		snap := g.Snapshot()
		side = snap.Side
		view = projection.Solo(snap)
	} else {
		snap := a.sess.Snapshot()
		side = snap.Side
		view = projection.Online(snap, a.chState.Load().(gamesock.State))
	}

	fmt.Printf("\n[%s]\n", view.FEN)
	fmt.Println(a.message(view.StatusKey, map[string]any{"Side": string(side)}))
	if view.ResultKey != "" {
		result := a.message(view.ResultKey, nil)
		fmt.Println(a.message("dialog.game_over", map[string]any{"Result": result}))
	}
}

// message resolves a catalog key, falling back to the key itself so a
// missing template never hides game state.
func (a *app) message(key string, data map[string]any) string {
	if key == "" {
		return ""
	}
	text, err := a.cat.Render(key, data)
	if err != nil {
		a.logger.Warn("message render failed", zap.String("key", key), zap.Error(err))
		return key
	}
	return text
}

func (a *app) printError(err error) {
	switch {
	case errors.Is(err, session.ErrNotYourTurn), errors.Is(err, solo.ErrNotYourTurn):
		fmt.Println(a.message("error.not_your_turn", nil))
	case errors.Is(err, board.ErrPromotionRequired):
		fmt.Println(a.message("error.promotion_required", nil))
	case errors.Is(err, board.ErrIllegalMove), errors.Is(err, board.ErrMalformedMove), errors.Is(err, board.ErrMalformedSquare):
		fmt.Println(a.message("error.illegal_move", nil))
	case errors.Is(err, oracle.ErrOracleUnavailable):
		fmt.Println(a.message("error.engine_unavailable", nil))
	case errors.Is(err, session.ErrNotActive):
		fmt.Println(a.message("error.no_active_game", nil))
	default:
		fmt.Printf("error: %v\n", err)
	}
}

func (a *app) printHelp() {
	fmt.Println(strings.Join([]string{
		"commands:",
		"  find                search for an online opponent",
		"  move e2e4           play a move (promotion: e7e8q); bare tokens work too",
		"  solo [difficulty]   play the engine (beginner|intermediate|advanced)",
		"  engine              retry the engine's reply after a failure",
		"  board               reprint the current position",
		"  quit                leave",
	}, "\n"))
}

func (a *app) shutdown() {
	a.sess.Teardown()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.channel.Close(ctx); err != nil {
		a.logger.Warn("channel close", zap.Error(err))
	}
	a.logger.Info("goodbye")
}
