// Command bestmove queries the engine oracle once and prints the move.
// Useful as a connectivity check for the configured engine endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"chessline/internal/board"
	"chessline/internal/oracle"
)

func main() {
	fen := flag.String("fen", "", "position in FEN notation (defaults to the start position)")
	depth := flag.Int("depth", 0, "search depth (overrides -difficulty)")
	difficulty := flag.String("difficulty", "intermediate", "beginner, intermediate or advanced")
	timeout := flag.Duration("timeout", 20*time.Second, "request timeout")
	flag.Parse()

	baseURL := strings.TrimSpace(os.Getenv("ENGINE_API_URL"))
	if baseURL == "" {
		baseURL = "https://stockfish.online/api/s/v2.php"
	}

	position := strings.TrimSpace(*fen)
	if position == "" {
		position = board.Start().FEN()
	} else {
		if _, err := board.FromFEN(position); err != nil {
			log.Fatalf("bad fen: %v", err)
		}
	}

	d := *depth
	if d <= 0 {
		diff, err := oracle.ParseDifficulty(*difficulty)
		if err != nil {
			log.Fatalf("%v", err)
		}
		d = diff.Depth()
	}

	client := oracle.NewClient(baseURL, oracle.WithTimeout(*timeout))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	mv, err := client.BestMove(ctx, position, d)
	if err != nil {
		log.Fatalf("engine query failed: %v", err)
	}
	fmt.Printf("position: %s\ndepth: %d\nbestmove: %s\n", position, d, mv.UCI())
}
