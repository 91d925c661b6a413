package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

type AppConfig struct {
	ServerBaseURL string
	ServerWSURL   string

	Username string
	Password string

	EngineAPIURL string
	Difficulty   string

	RedisURL string

	BackoffBase time.Duration
	BackoffCap  time.Duration

	MsgTemplateDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		EngineAPIURL: "https://stockfish.online/api/s/v2.php",
		Difficulty:   "intermediate",
		BackoffBase:  time.Second,
		BackoffCap:   30 * time.Second,
	}

	cfg.ServerBaseURL = strings.TrimSpace(os.Getenv("CHESS_API_URL"))
	cfg.ServerWSURL = strings.TrimSpace(os.Getenv("CHESS_WS_URL"))
	cfg.Username = strings.TrimSpace(os.Getenv("CHESS_USERNAME"))
	cfg.Password = os.Getenv("CHESS_PASSWORD")
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.MsgTemplateDir = strings.TrimSpace(os.Getenv("MSG_TEMPLATE_DIR"))

	if v := strings.TrimSpace(os.Getenv("ENGINE_API_URL")); v != "" {
		cfg.EngineAPIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DIFFICULTY")); v != "" {
		cfg.Difficulty = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_BACKOFF_BASE")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.BackoffBase = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_BACKOFF_CAP")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.BackoffCap = d
		}
	}

	if cfg.ServerBaseURL == "" {
		return nil, errors.New("CHESS_API_URL is required")
	}
	if cfg.ServerWSURL == "" {
		return nil, errors.New("CHESS_WS_URL is required")
	}
	if cfg.Username == "" {
		return nil, errors.New("CHESS_USERNAME is required")
	}
	if cfg.Password == "" {
		return nil, errors.New("CHESS_PASSWORD is required")
	}

	return cfg, nil
}
