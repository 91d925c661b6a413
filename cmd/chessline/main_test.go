package main

import (
	"context"
	"os"
	"sync"
	"testing"

	"go.uber.org/zap"

	"chessline/internal/board"
	"chessline/internal/gamesock"
	"chessline/internal/msgcat"
	"chessline/internal/oracle"
	"chessline/internal/protocol"
	"chessline/internal/session"
	"chessline/internal/solo"
)

type nullSender struct{}

func (nullSender) Send(context.Context, protocol.Envelope) error { return nil }
func (nullSender) Resync()                                       {}

type unavailableOracle struct{}

func (unavailableOracle) BestMove(context.Context, string, int) (board.Move, error) {
	return board.Move{}, oracle.ErrOracleUnavailable
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	a := &app{
		logger: zap.NewNop(),
		cat:    cat,
		sess:   session.New(nullSender{}, nil, nil),
	}
	a.chState.Store(gamesock.StateDisconnected)
	return a
}

// Rendering runs on the channel's callback goroutines while the command
// loop switches the solo game in and out.
func TestRenderConcurrentWithSoloSwitch(t *testing.T) {
	a := newTestApp(t)

	// The frames rendered here are noise, not assertions.
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open devnull: %v", err)
	}
	defer devnull.Close()
	stdout := os.Stdout
	os.Stdout = devnull
	defer func() { os.Stdout = stdout }()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				a.render()
			}
		}
	}()

	for i := 0; i < 200; i++ {
		a.soloGame.Store(solo.NewGame(unavailableOracle{}, oracle.Beginner, nil))
		a.render()
		a.soloGame.Store(nil)
	}

	close(stop)
	wg.Wait()
}
