package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text, err := c.Render("status.searching", nil)
	if err != nil || strings.TrimSpace(text) == "" {
		t.Fatalf("status.searching: %q, %v", text, err)
	}

	text, err = c.Render("status.your_turn", map[string]any{"Side": "white"})
	if err != nil || !strings.Contains(text, "white") {
		t.Fatalf("status.your_turn: %q, %v", text, err)
	}

	text, err = c.Render("dialog.game_over", map[string]any{"Result": "You won!"})
	if err != nil || !strings.Contains(text, "You won!") {
		t.Fatalf("dialog.game_over: %q, %v", text, err)
	}

	for _, key := range []string{"result.win", "result.lose", "result.draw", "dialog.opponent_left"} {
		if _, err := c.Render(key, nil); err != nil {
			t.Fatalf("missing default %s: %v", key, err)
		}
	}

	if _, err := c.Render("status.nonexistent", nil); err == nil {
		t.Fatalf("missing key rendered")
	}
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	override := "status:\n  searching: \"Looking for a rival...\"\n"
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	text, err := c.Render("status.searching", nil)
	if err != nil || text != "Looking for a rival..." {
		t.Fatalf("override not applied: %q, %v", text, err)
	}

	// Untouched keys keep their defaults.
	if _, err := c.Render("result.win", nil); err != nil {
		t.Fatalf("default lost: %v", err)
	}
}

func TestDuplicateOverrideKeysRejected(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("status:\n  idle: \"x\"\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("duplicate override keys accepted")
	}
}
