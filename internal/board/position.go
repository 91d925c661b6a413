package board

import (
	"errors"
	"fmt"
	"strings"

	chess "github.com/corentings/chess/v2"
)

// Side identifies a chess color the way the server names it on the wire.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// ParseSide normalizes a wire color string.
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return "", fmt.Errorf("unknown side %q", raw)
	}
}

var (
	ErrIllegalMove       = errors.New("illegal move")
	ErrMalformedSquare   = errors.New("malformed square")
	ErrMalformedMove     = errors.New("malformed move token")
	ErrPromotionRequired = errors.New("promotion piece required")
	ErrBadPosition       = errors.New("invalid position notation")
)

// Move is a single ply in from/to square notation with an optional
// lowercase promotion letter (n, b, r, q).
type Move struct {
	From      string
	To        string
	Promotion string
}

// UCI returns the compact token form, e.g. "e2e4" or "e7e8q".
func (m Move) UCI() string {
	return m.From + m.To + m.Promotion
}

// MoveFromUCI parses a four-or-five-character move token.
func MoveFromUCI(token string) (Move, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if len(token) != 4 && len(token) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, token)
	}
	mv := Move{From: token[:2], To: token[2:4]}
	if !validSquare(mv.From) || !validSquare(mv.To) {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedSquare, token)
	}
	if len(token) == 5 {
		mv.Promotion = token[4:]
		if !validPromotion(mv.Promotion) {
			return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, token)
		}
	}
	return mv, nil
}

func validSquare(sq string) bool {
	return len(sq) == 2 && sq[0] >= 'a' && sq[0] <= 'h' && sq[1] >= '1' && sq[1] <= '8'
}

func validPromotion(p string) bool {
	switch p {
	case "n", "b", "r", "q":
		return true
	}
	return false
}

// Outcome reports the facts derived from one applied ply.
type Outcome struct {
	Check     bool
	Checkmate bool
	Stalemate bool
	Draw      bool
}

// Terminal reports whether the game cannot continue after this ply.
func (o Outcome) Terminal() bool {
	return o.Checkmate || o.Stalemate || o.Draw
}

// Position is an immutable board state. Every successful Apply produces a
// new value; a rejected move leaves the receiver untouched by construction.
type Position struct {
	fen string
}

// Start returns the standard initial position.
func Start() Position {
	return Position{fen: chess.NewGame().FEN()}
}

// FromFEN builds a Position from a server-provided snapshot. Used only for
// authoritative reconnection sync, where the server is trusted verbatim.
func FromFEN(fen string) (Position, error) {
	fen = strings.TrimSpace(fen)
	if _, err := chess.FEN(fen); err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrBadPosition, err)
	}
	return Position{fen: fen}, nil
}

func (p Position) FEN() string { return p.fen }

// Turn returns whichever side is to move.
func (p Position) Turn() Side {
	g := p.game()
	if g.Position().Turn() == chess.Black {
		return Black
	}
	return White
}

// NeedsPromotion reports whether the move is a pawn push onto the last
// rank and therefore requires a promotion piece to be complete.
func (p Position) NeedsPromotion(mv Move) bool {
	if !validSquare(mv.From) || !validSquare(mv.To) {
		return false
	}
	g := p.game()
	piece := g.Position().Board().Piece(squareOf(mv.From))
	if piece == chess.NoPiece || piece.Type() != chess.Pawn {
		return false
	}
	return mv.To[1] == '8' || mv.To[1] == '1'
}

// Apply replays the move through the legality oracle. On success the
// position advances by exactly one ply; on any error it is unchanged.
func (p Position) Apply(mv Move) (Position, Outcome, error) {
	if !validSquare(mv.From) || !validSquare(mv.To) {
		return p, Outcome{}, fmt.Errorf("%w: %s -> %s", ErrMalformedSquare, mv.From, mv.To)
	}
	if mv.Promotion != "" && !validPromotion(mv.Promotion) {
		return p, Outcome{}, fmt.Errorf("%w: promotion %q", ErrMalformedMove, mv.Promotion)
	}
	if p.NeedsPromotion(mv) && mv.Promotion == "" {
		return p, Outcome{}, ErrPromotionRequired
	}

	g := p.game()
	pos := g.Position()
	decoded, err := chess.UCINotation{}.Decode(pos, mv.UCI())
	if err != nil {
		return p, Outcome{}, fmt.Errorf("%w: %s", ErrIllegalMove, mv.UCI())
	}
	san := chess.AlgebraicNotation{}.Encode(pos, decoded)
	if err := g.Move(decoded, nil); err != nil {
		return p, Outcome{}, fmt.Errorf("%w: %s", ErrIllegalMove, mv.UCI())
	}

	out := Outcome{
		Check:     strings.HasSuffix(san, "+") || strings.HasSuffix(san, "#"),
		Checkmate: g.Method() == chess.Checkmate,
		Stalemate: g.Method() == chess.Stalemate,
		Draw:      g.Outcome() == chess.Draw,
	}
	return Position{fen: g.FEN()}, out, nil
}

func (p Position) game() *chess.Game {
	if p.fen == "" {
		return chess.NewGame()
	}
	opt, err := chess.FEN(p.fen)
	if err != nil {
		// fen was validated on construction; fall back to the start position
		return chess.NewGame()
	}
	return chess.NewGame(opt)
}

func squareOf(sq string) chess.Square {
	file := chess.File(sq[0] - 'a')
	rank := chess.Rank(sq[1] - '1')
	return chess.NewSquare(file, rank)
}
