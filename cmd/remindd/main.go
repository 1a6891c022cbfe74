package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	_ "github.com/mattn/go-sqlite3"

	"remindd/internal/commands"
	"remindd/internal/config"
	"remindd/internal/lifecycle"
	"remindd/internal/notify"
	"remindd/internal/scheduler"
	"remindd/internal/storage"
	"remindd/internal/update"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigFileName, "path to the TOML config file")
	daemon := flag.Bool("daemon", false, "run headless: only the reminder poller, no TUI")
	oneShot := flag.String("c", "", "run a single command (add/done/show/reschedule) and exit")
	flag.Parse()

	if err := run(*configPath, *daemon, *oneShot); err != nil {
		fmt.Fprintf(os.Stderr, "remindd failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, daemon bool, oneShot string) error {
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = config.FromEnv(cfg)

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := storage.MigrateUp(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}

	lc := lifecycle.NewService(repo)
	svc := commands.NewService(repo, lc, cfg.OwnerID)

	if oneShot != "" {
		res, err := svc.Run(context.Background(), oneShot)
		if err != nil {
			return err
		}
		fmt.Println(res.Message)
		return nil
	}

	dispatchTimeout := time.Duration(cfg.Scheduler.DispatchTimeoutSeconds) * time.Second
	dispatcher, err := buildDispatcher(cfg.Notifier, dispatchTimeout)
	if err != nil {
		return fmt.Errorf("init notifier: %w", err)
	}
	destination := cfg.Notifier.ResolveDestination()
	resolve := func(ownerID string) (string, bool) {
		if ownerID != cfg.OwnerID || destination == "" {
			return "", false
		}
		return destination, true
	}
	if cfg.Notifier.Channel == "log" {
		// The log channel needs no destination.
		resolve = func(string) (string, bool) { return "stdout", true }
	}

	poller := scheduler.New(repo, dispatcher, resolve, scheduler.Options{
		Interval:        time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute,
		Lookahead:       time.Duration(cfg.Scheduler.LookaheadMinutes) * time.Minute,
		DispatchTimeout: dispatchTimeout,
	})
	if err := poller.Start(); err != nil {
		return fmt.Errorf("start poller: %w", err)
	}
	defer poller.Stop()

	if daemon {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		log.Printf("remindd daemon running, db=%s channel=%s", cfg.DBPath, cfg.Notifier.Channel)
		<-ctx.Done()
		return nil
	}

	program := tea.NewProgram(update.New(svc, repo))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func buildDispatcher(cfg config.Notifier, timeout time.Duration) (notify.Dispatcher, error) {
	switch cfg.Channel {
	case "", "log":
		return notify.NewLogDispatcher(nil), nil
	case "smtp":
		if cfg.SMTP.Host == "" {
			return nil, fmt.Errorf("smtp channel needs notifier.smtp.host")
		}
		return notify.NewSMTPDispatcher(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From), nil
	case "telegram":
		if cfg.Telegram.Token == "" {
			return nil, fmt.Errorf("telegram channel needs notifier.telegram.token")
		}
		return notify.NewTelegramDispatcher(cfg.Telegram.Token, timeout)
	default:
		return nil, fmt.Errorf("unknown notifier channel %q", cfg.Channel)
	}
}
