package journal

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	r, err := NewRedis(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func exerciseJournal(t *testing.T, j Journal) {
	t.Helper()
	ctx := context.Background()

	moves, err := j.Moves(ctx, "g1")
	if err != nil || len(moves) != 0 {
		t.Fatalf("fresh journal: %v, %v", moves, err)
	}

	for _, uci := range []string{"e2e4", "e7e5", "g1f3"} {
		if err := j.Append(ctx, "g1", uci); err != nil {
			t.Fatalf("Append(%s): %v", uci, err)
		}
	}
	if err := j.Append(ctx, "g2", "d2d4"); err != nil {
		t.Fatalf("Append other game: %v", err)
	}

	moves, err = j.Moves(ctx, "g1")
	if err != nil {
		t.Fatalf("Moves: %v", err)
	}
	if len(moves) != 3 || moves[0] != "e2e4" || moves[2] != "g1f3" {
		t.Fatalf("recorded plies out of order: %v", moves)
	}

	if err := j.Clear(ctx, "g1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	moves, err = j.Moves(ctx, "g1")
	if err != nil || len(moves) != 0 {
		t.Fatalf("after clear: %v, %v", moves, err)
	}

	// Other games are untouched.
	moves, err = j.Moves(ctx, "g2")
	if err != nil || len(moves) != 1 {
		t.Fatalf("g2 affected by clear: %v, %v", moves, err)
	}
}

func TestMemoryJournal(t *testing.T) {
	exerciseJournal(t, NewMemory())
}

func TestRedisJournal(t *testing.T) {
	exerciseJournal(t, newTestRedis(t))
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	if _, err := NewRedis(""); err == nil {
		t.Fatalf("empty url accepted")
	}
	if _, err := NewRedis("http://localhost:6379"); err == nil {
		t.Fatalf("http scheme accepted")
	}
}
