package main

import (
	"flag"
	"log/slog"
	"os"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	dataDir := flag.String("datadir", "", "directory for the site registry, seen set and alert feed (default: next to the executable)")
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := loadConfig(*dataDir)

	db := initDB(cfg.DBPath)
	defer func() { _ = db.Close() }()

	repl := newREPL(db, cfg)
	if err := repl.Run(); err != nil {
		slog.Error("Console failed", "error", err)
		os.Exit(1)
	}
}
