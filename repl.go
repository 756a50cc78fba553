package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

// REPL is the interactive command console wrapped around the monitor core.
type REPL struct {
	db       *sql.DB
	cfg      Config
	rl       *readline.Instance
	commands map[string]commandHandler
}

type commandHandler func(args []string) error

// newREPL creates the console and registers its commands.
func newREPL(db *sql.DB, cfg Config) *REPL {
	r := &REPL{db: db, cfg: cfg, commands: make(map[string]commandHandler)}
	r.commands["help"] = r.cmdHelp
	r.commands["site"] = r.cmdSite
	r.commands["monitor"] = r.cmdMonitor
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
	r.commands["q"] = r.cmdExit
	return r
}

// Run starts the console loop. It returns when the user exits.
func (r *REPL) Run() error {
	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("hotdeal> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	fmt.Println("Hot deal monitor. Type 'help' for commands.")

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Println("Bye.")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.dispatch(line); err != nil {
			if err == io.EOF {
				fmt.Println("Bye.")
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

func (r *REPL) dispatch(line string) error {
	args := splitArgs(line)
	if len(args) == 0 {
		return nil
	}

	handler, ok := r.commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q, try 'help'", args[0])
	}
	return handler(args[1:])
}

func (r *REPL) cmdHelp([]string) error {
	fmt.Println(`Commands:
  monitor <keyword|all> <minComments> <intervalSeconds>
      Start a monitor session. Ctrl+C stops it and returns here.
  site add <name> <boardURL> <titleSel> [linkSel] [commentSel] [dateSel] [contentSel]
      Register a board. Quote selectors that contain spaces.
  site list
  site remove <name>
  exit`)
	return nil
}

func (r *REPL) cmdExit([]string) error {
	return io.EOF
}

func (r *REPL) cmdSite(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: site add|list|remove")
	}

	switch args[0] {
	case "add":
		if len(args) < 4 {
			return fmt.Errorf("usage: site add <name> <boardURL> <titleSel> [linkSel] [commentSel] [dateSel] [contentSel]")
		}
		site := SiteConfig{Name: args[1], BoardURL: args[2], TitleSelector: args[3]}
		optional := []*string{&site.LinkSelector, &site.CommentSelector, &site.DateSelector, &site.ContentSelector}
		for i, arg := range args[4:] {
			if i >= len(optional) {
				break
			}
			*optional[i] = arg
		}
		return addSite(r.db, site)

	case "list":
		sites, err := listSites(r.db)
		if err != nil {
			return err
		}
		if len(sites) == 0 {
			fmt.Println("No sites registered.")
			return nil
		}
		for _, s := range sites {
			fmt.Printf("  %s  %s  (title: %q)\n", s.Name, s.BoardURL, s.TitleSelector)
		}
		return nil

	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("usage: site remove <name>")
		}
		return removeSite(r.db, args[1])

	default:
		return fmt.Errorf("unknown site subcommand %q", args[0])
	}
}

// cmdMonitor parses the session parameters, wires the pipeline and runs it
// until the user interrupts or the session hits a configuration error.
func (r *REPL) cmdMonitor(args []string) error {
	cfg, err := parseMonitorArgs(args)
	if err != nil {
		return err
	}

	classifier, err := NewDealClassifier(r.cfg.AnthropicAPIKey, r.cfg.Model)
	if err != nil {
		return err
	}

	seen := loadSeenStore(r.cfg.SeenPath, maxSeenEntries)
	scraper := NewBoardScraper(r.db)
	notifier := NewTelegramNotifier(r.cfg.TelegramToken, r.cfg.TelegramChatID)

	var feed *AlertFeed
	if r.cfg.FeedPath != "" {
		feed = NewAlertFeed(r.cfg.FeedPath)
	}

	monitor := NewMonitor(scraper, classifier, notifier, seen, feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nStopping monitor...")
			cancel()
		case <-ctx.Done():
		}
	}()

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Printf("%s keyword=%s minComments=%d interval=%s (Ctrl+C to stop)\n",
		yellow("Monitoring:"), cfg.Keyword, cfg.MinComments, cfg.PollInterval)

	if err := monitor.Run(ctx, cfg); err != nil {
		return err
	}
	fmt.Println("Monitor stopped.")
	return nil
}

// parseMonitorArgs validates `monitor <keyword|all> <minComments>
// <intervalSeconds>`. A malformed command is a configuration error reported
// to the user, never a crash.
func parseMonitorArgs(args []string) (MonitorConfig, error) {
	usage := fmt.Errorf("usage: monitor <keyword|all> <minComments> <intervalSeconds>")
	if len(args) != 3 {
		return MonitorConfig{}, usage
	}

	keyword := args[0]
	if keyword == "" {
		return MonitorConfig{}, usage
	}

	minComments, err := strconv.Atoi(args[1])
	if err != nil || minComments < 0 {
		return MonitorConfig{}, fmt.Errorf("minComments must be a non-negative integer")
	}

	intervalSec, err := strconv.Atoi(args[2])
	if err != nil || intervalSec <= 0 {
		return MonitorConfig{}, fmt.Errorf("intervalSeconds must be a positive integer")
	}

	return MonitorConfig{
		Keyword:      keyword,
		MinComments:  minComments,
		PollInterval: time.Duration(intervalSec) * time.Second,
	}, nil
}

// splitArgs splits a command line on whitespace, honoring double quotes so
// CSS selectors with spaces survive.
func splitArgs(line string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case !inQuotes && (r == ' ' || r == '\t'):
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}
