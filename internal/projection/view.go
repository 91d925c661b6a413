// Package projection turns session and solo snapshots into display
// models. Pure functions only; message keys are resolved by the UI layer
// through the message catalog.
package projection

import (
	"chessline/internal/board"
	"chessline/internal/gamesock"
	"chessline/internal/session"
	"chessline/internal/solo"
)

// BoardView is everything a display sink needs to render one frame.
type BoardView struct {
	FEN         string
	Orientation board.Side
	CanMove     bool
	StatusKey   string
	ResultKey   string
}

// Online projects an online session snapshot plus the transport state.
// Input is accepted only when the game is active, connected, in sync,
// undecided locally and it is the player's turn.
func Online(snap session.Snapshot, st gamesock.State) BoardView {
	view := BoardView{
		FEN:         snap.FEN,
		Orientation: orientation(snap.Side),
	}

	switch snap.Status {
	case session.StatusIdle:
		view.StatusKey = "status.idle"
	case session.StatusSearching:
		view.StatusKey = "status.searching"
	case session.StatusOver:
		view.StatusKey = "status.over"
		view.ResultKey = resultKey(string(snap.Result))
	case session.StatusActive:
		switch {
		case st == gamesock.StateReconnecting:
			view.StatusKey = "status.reconnecting"
		case st != gamesock.StateConnected:
			view.StatusKey = "status.connecting"
		case snap.Desynced:
			view.StatusKey = "status.desynced"
		case snap.LocalTerminal:
			view.StatusKey = "status.awaiting_verdict"
		case snap.Turn == snap.Side:
			view.StatusKey = "status.your_turn"
			view.CanMove = true
		default:
			view.StatusKey = "status.opponent_turn"
		}
	}
	return view
}

// Solo projects a single-player game snapshot.
func Solo(view solo.View) BoardView {
	out := BoardView{
		FEN:         view.FEN,
		Orientation: orientation(view.Side),
	}
	switch {
	case view.Over:
		out.StatusKey = "status.over"
		out.ResultKey = resultKey(string(view.Result))
	case view.Thinking:
		out.StatusKey = "status.engine_thinking"
	case view.Turn == view.Side:
		out.StatusKey = "status.your_turn"
		out.CanMove = true
	default:
		out.StatusKey = "status.engine_turn"
	}
	return out
}

func orientation(side board.Side) board.Side {
	if side == board.Black {
		return board.Black
	}
	return board.White
}

func resultKey(result string) string {
	if result == "" {
		return ""
	}
	return "result." + result
}
