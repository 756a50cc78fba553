package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds process-level configuration resolved from the environment.
// Session parameters (keyword, thresholds, interval) come from the monitor
// command instead; see MonitorConfig.
type Config struct {
	AnthropicAPIKey string
	Model           string
	TelegramToken   string
	TelegramChatID  string
	DBPath          string
	SeenPath        string
	FeedPath        string
}

// loadConfig reads .env (when present) and the environment. dataDir
// overrides where state files live; empty means next to the executable.
func loadConfig(dataDir string) Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg := Config{
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:           os.Getenv("HOTDEAL_MODEL"),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:  os.Getenv("CHAT_ID"),
		DBPath:          os.Getenv("HOTDEAL_DB"),
		SeenPath:        os.Getenv("HOTDEAL_SEEN"),
		FeedPath:        os.Getenv("HOTDEAL_FEED"),
	}

	if dataDir != "" {
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(dataDir, "hotdeal.db")
		}
		if cfg.SeenPath == "" {
			cfg.SeenPath = filepath.Join(dataDir, "seen.json")
		}
		if cfg.FeedPath == "" {
			cfg.FeedPath = filepath.Join(dataDir, "alerts.xml")
		}
	}
	if cfg.SeenPath == "" {
		cfg.SeenPath = defaultStatePath("seen.json")
	}

	return cfg
}

// defaultStatePath places a state file next to the executable, falling back
// to the working directory.
func defaultStatePath(name string) string {
	exePath, err := os.Executable()
	if err != nil {
		return name
	}
	return filepath.Join(filepath.Dir(exePath), name)
}
