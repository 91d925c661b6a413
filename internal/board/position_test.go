package board

import (
	"errors"
	"testing"
)

func mustApply(t *testing.T, p Position, token string) (Position, Outcome) {
	t.Helper()
	mv, err := MoveFromUCI(token)
	if err != nil {
		t.Fatalf("MoveFromUCI(%q): %v", token, err)
	}
	next, out, err := p.Apply(mv)
	if err != nil {
		t.Fatalf("Apply(%q): %v", token, err)
	}
	return next, out
}

func TestApplyAlternatesTurns(t *testing.T) {
	p := Start()
	if p.Turn() != White {
		t.Fatalf("start turn = %s, want white", p.Turn())
	}
	p, _ = mustApply(t, p, "e2e4")
	if p.Turn() != Black {
		t.Fatalf("after e2e4 turn = %s, want black", p.Turn())
	}
	p, _ = mustApply(t, p, "e7e5")
	if p.Turn() != White {
		t.Fatalf("after e7e5 turn = %s, want white", p.Turn())
	}
}

func TestApplyRejectionLeavesPositionUnchanged(t *testing.T) {
	p := Start()
	before := p.FEN()

	for _, token := range []string{"e2e5", "e7e5", "a1a3", "e1e2"} {
		mv, err := MoveFromUCI(token)
		if err != nil {
			t.Fatalf("MoveFromUCI(%q): %v", token, err)
		}
		next, _, err := p.Apply(mv)
		if !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("Apply(%q) err = %v, want ErrIllegalMove", token, err)
		}
		if next.FEN() != before {
			t.Fatalf("Apply(%q) mutated position: %s", token, next.FEN())
		}
	}
	if p.FEN() != before {
		t.Fatalf("receiver mutated: %s", p.FEN())
	}
}

func TestApplyDetectsCheck(t *testing.T) {
	p := Start()
	p, _ = mustApply(t, p, "e2e4")
	p, _ = mustApply(t, p, "e7e5")
	p, _ = mustApply(t, p, "d1h5")
	p, _ = mustApply(t, p, "b8c6")
	_, out := mustApply(t, p, "h5f7")
	if !out.Check {
		t.Fatalf("Qxf7+ not reported as check: %+v", out)
	}
	if out.Terminal() {
		t.Fatalf("Qxf7+ reported terminal: %+v", out)
	}
}

func TestApplyDetectsCheckmate(t *testing.T) {
	p := Start()
	for _, token := range []string{"f2f3", "e7e5", "g2g4"} {
		p, _ = mustApply(t, p, token)
	}
	_, out := mustApply(t, p, "d8h4")
	if !out.Checkmate || !out.Check {
		t.Fatalf("Qh4# outcome = %+v, want checkmate", out)
	}
	if !out.Terminal() {
		t.Fatalf("checkmate not terminal")
	}
}

func TestPromotionRequired(t *testing.T) {
	p, err := FromFEN("8/P7/8/8/8/8/8/K6k w - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	if !p.NeedsPromotion(Move{From: "a7", To: "a8"}) {
		t.Fatalf("a7a8 should need a promotion piece")
	}
	if _, _, err := p.Apply(Move{From: "a7", To: "a8"}); !errors.Is(err, ErrPromotionRequired) {
		t.Fatalf("bare promotion push err = %v, want ErrPromotionRequired", err)
	}
	next, out, err := p.Apply(Move{From: "a7", To: "a8", Promotion: "q"})
	if err != nil {
		t.Fatalf("a7a8q: %v", err)
	}
	if !out.Check {
		t.Fatalf("a8=Q+ not reported as check")
	}
	if next.Turn() != Black {
		t.Fatalf("turn after promotion = %s, want black", next.Turn())
	}
}

func TestMoveFromUCI(t *testing.T) {
	mv, err := MoveFromUCI("e2e4")
	if err != nil {
		t.Fatalf("e2e4: %v", err)
	}
	if mv.From != "e2" || mv.To != "e4" || mv.Promotion != "" {
		t.Fatalf("e2e4 parsed as %+v", mv)
	}

	mv, err = MoveFromUCI("e7e8q")
	if err != nil {
		t.Fatalf("e7e8q: %v", err)
	}
	if mv.Promotion != "q" || mv.UCI() != "e7e8q" {
		t.Fatalf("e7e8q parsed as %+v", mv)
	}

	for _, token := range []string{"", "e2", "e9e4", "e2e4x", "e2e4qq", "11e4"} {
		if _, err := MoveFromUCI(token); err == nil {
			t.Fatalf("MoveFromUCI(%q) accepted", token)
		}
	}
}

func TestFromFENRejectsGarbage(t *testing.T) {
	if _, err := FromFEN("not a position"); !errors.Is(err, ErrBadPosition) {
		t.Fatalf("err = %v, want ErrBadPosition", err)
	}
}

func TestParseSide(t *testing.T) {
	for raw, want := range map[string]Side{"white": White, "W": White, " black ": Black, "b": Black} {
		got, err := ParseSide(raw)
		if err != nil || got != want {
			t.Fatalf("ParseSide(%q) = %s, %v", raw, got, err)
		}
	}
	if _, err := ParseSide("green"); err == nil {
		t.Fatalf("ParseSide accepted green")
	}
}

func TestStoreAdvancesOnlyOnSuccess(t *testing.T) {
	s := NewStore()
	start := s.Position().FEN()

	if _, err := s.Apply(Move{From: "e2", To: "e5"}); err == nil {
		t.Fatalf("illegal move accepted")
	}
	if s.Position().FEN() != start {
		t.Fatalf("store mutated by rejected move")
	}

	if _, err := s.Apply(Move{From: "e2", To: "e4"}); err != nil {
		t.Fatalf("e2e4: %v", err)
	}
	if s.Turn() != Black {
		t.Fatalf("turn = %s, want black", s.Turn())
	}

	s.Reset()
	if s.Position().FEN() != start {
		t.Fatalf("reset did not restore the start position")
	}
}

func TestStoreLoadAuthoritative(t *testing.T) {
	s := NewStore()
	fen := "8/P7/8/8/8/8/8/K6k w - - 0 1"
	if err := s.LoadAuthoritative(fen); err != nil {
		t.Fatalf("LoadAuthoritative: %v", err)
	}
	if s.Position().FEN() != fen {
		t.Fatalf("position = %s, want %s", s.Position().FEN(), fen)
	}
	if err := s.LoadAuthoritative("garbage"); err == nil {
		t.Fatalf("garbage snapshot accepted")
	}
}
