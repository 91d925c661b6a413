// Package oracle queries an external move-search service for the best
// move in a given position. Used by single-player mode only.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"chessline/internal/board"
)

var ErrOracleUnavailable = errors.New("engine oracle unavailable")

// Difficulty selects how deep the engine searches.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Depth maps a difficulty to a fixed search depth.
func (d Difficulty) Depth() int {
	switch d {
	case Beginner:
		return 1
	case Advanced:
		return 6
	default:
		return 3
	}
}

func ParseDifficulty(raw string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "beginner", "easy":
		return Beginner, nil
	case "intermediate", "medium", "":
		return Intermediate, nil
	case "advanced", "hard":
		return Advanced, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", raw)
	}
}

type bestMoveResponse struct {
	Success  bool   `json:"success"`
	BestMove string `json:"bestmove"`
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second, MaxConnsPerHost: 8},
		defaultTimeout: 15 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BestMove asks the service for the strongest move in the position at
// the given depth. Any unsuccessful or malformed response maps to
// ErrOracleUnavailable; the caller's position is untouched and the call
// is safe to retry.
func (c *Client) BestMove(ctx context.Context, fen string, depth int) (board.Move, error) {
	query := url.Values{}
	query.Set("fen", fen)
	query.Set("depth", strconv.Itoa(depth))

	var resp bestMoveResponse
	if err := c.getJSON(ctx, "?"+query.Encode(), &resp); err != nil {
		return board.Move{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if !resp.Success {
		return board.Move{}, fmt.Errorf("%w: service reported failure", ErrOracleUnavailable)
	}
	return parseBestMove(resp.BestMove)
}

// parseBestMove extracts the move token from an engine reply of the form
// "bestmove e2e4 ponder e7e5"; the token is the second whitespace field.
func parseBestMove(raw string) (board.Move, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return board.Move{}, fmt.Errorf("%w: malformed reply %q", ErrOracleUnavailable, raw)
	}
	mv, err := board.MoveFromUCI(fields[1])
	if err != nil {
		return board.Move{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	return mv, nil
}

func (c *Client) getJSON(ctx context.Context, pathAndQuery string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + pathAndQuery)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := fmt.Errorf("engine api error: status=%d", status)
			if attempt == attempts || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 200 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
