// Package scheduler runs the due-date reminder poller: on a fixed interval
// it queries the store for due-soon tasks whose reminder has not gone out,
// dispatches a notification, and conditionally marks the task as sent. The
// conditional mark is what keeps delivery single-shot when several poller
// instances overlap; every write here is safe to execute redundantly.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remindd/internal/notify"
	"remindd/internal/storage"
)

const (
	DefaultInterval        = 10 * time.Minute
	DefaultLookahead       = 30 * time.Minute
	DefaultDispatchTimeout = 30 * time.Second
)

// dueFormat matches the rendering the email channel has always used.
const dueFormat = "January 2, 2006 at 3:04 PM"

// DestinationResolver maps a task owner to a dispatch destination. A false
// return skips the task for this cycle.
type DestinationResolver func(ownerID string) (string, bool)

type Options struct {
	Interval        time.Duration
	Lookahead       time.Duration
	DispatchTimeout time.Duration
	Logger          *log.Logger
	Now             func() time.Time
}

// CycleStats summarises one poll cycle.
type CycleStats struct {
	Matched int // tasks returned by the due-soon query
	Sent    int // dispatched and marked by this instance
	Failed  int // dispatch or store errors; retried next cycle
	Skipped int // no destination, or another writer marked first
}

type Poller struct {
	repo       storage.Repository
	dispatcher notify.Dispatcher
	resolve    DestinationResolver

	interval        time.Duration
	lookahead       time.Duration
	dispatchTimeout time.Duration
	now             func() time.Time
	logger          *log.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

func New(repo storage.Repository, dispatcher notify.Dispatcher, resolve DestinationResolver, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = DefaultLookahead
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = DefaultDispatchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Poller{
		repo:            repo,
		dispatcher:      dispatcher,
		resolve:         resolve,
		interval:        opts.Interval,
		lookahead:       opts.Lookahead,
		dispatchTimeout: opts.DispatchTimeout,
		now:             opts.Now,
		logger:          opts.Logger,
	}
}

// Start launches the periodic loop. It is an error to start twice without
// an intervening Stop.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return errors.New("scheduler: already started")
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", p.interval), p.runCycle); err != nil {
		return fmt.Errorf("schedule reminder cycle: %w", err)
	}
	c.Start()
	p.cron = c
	p.started = true
	p.logger.Printf("reminder poller started: interval=%s lookahead=%s", p.interval, p.lookahead)
	return nil
}

// Stop halts the loop and waits for an in-flight cycle to finish its
// dispatches before returning.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	c := p.cron
	p.cron = nil
	p.started = false
	p.mu.Unlock()

	<-c.Stop().Done()
	p.logger.Printf("reminder poller stopped")
}

func (p *Poller) runCycle() {
	stats, err := p.CheckOnce(context.Background())
	if err != nil {
		p.logger.Printf("reminder cycle failed: %v", err)
		return
	}
	if stats.Matched > 0 {
		p.logger.Printf("reminder cycle: matched=%d sent=%d failed=%d skipped=%d",
			stats.Matched, stats.Sent, stats.Failed, stats.Skipped)
	}
}

// CheckOnce runs a single poll cycle. Dispatch failures leave the task
// unmarked so the next cycle retries it; a failed conditional mark means
// another writer already handled the task and is not an error.
func (p *Poller) CheckOnce(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	now := p.now().UTC()

	tasks, err := p.repo.ListDueSoon(ctx, now, now.Add(p.lookahead))
	if err != nil {
		return stats, fmt.Errorf("query due-soon tasks: %w", err)
	}
	stats.Matched = len(tasks)

	for _, task := range tasks {
		if task.DueAt == nil {
			continue
		}
		destination, ok := p.resolve(task.OwnerID)
		if !ok {
			stats.Skipped++
			p.logger.Printf("no destination for owner %s, skipping task %s", task.OwnerID, task.ID)
			continue
		}

		message := RenderMessage(task.Title, *task.DueAt)
		dispatchCtx, cancel := context.WithTimeout(ctx, p.dispatchTimeout)
		err := p.dispatcher.Send(dispatchCtx, destination, message)
		cancel()
		if err != nil {
			stats.Failed++
			p.logger.Printf("dispatch failed for task %s: %v", task.ID, err)
			continue
		}

		won, err := p.repo.MarkReminderSent(ctx, task.ID, *task.DueAt)
		if err != nil {
			stats.Failed++
			p.logger.Printf("mark reminder sent failed for task %s: %v", task.ID, err)
			continue
		}
		if won {
			stats.Sent++
		} else {
			stats.Skipped++
		}
	}
	return stats, nil
}

// RenderMessage builds the notification payload for a due task.
func RenderMessage(title string, due time.Time) string {
	return fmt.Sprintf("Task %q is due %s", title, due.UTC().Format(dueFormat))
}
