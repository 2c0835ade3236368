package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"nvc-coach/internal/auditlog"
)

// SendFunc delivers a report message to the admin chat.
type SendFunc func(ctx context.Context, text string) error

// Scheduler emits a daily usage summary built from the audit log.
type Scheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	recorder auditlog.Recorder
	send     SendFunc
}

func New(recorder auditlog.Recorder, send SendFunc) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		ctx:      ctx,
		cancel:   cancel,
		recorder: recorder,
		send:     send,
	}
}

// Start schedules the daily report at 21:00 UTC.
func (s *Scheduler) Start() error {
	if s.recorder == nil || s.send == nil {
		log.Println("scheduler: recorder or sender not set, daily reports disabled")
		return nil
	}

	_, err := s.cron.AddFunc("0 21 * * *", func() {
		if err := s.report(s.ctx); err != nil {
			log.Printf("scheduler: daily report failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Println("scheduler: started, daily reports at 21:00 UTC")
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("scheduler: stopped")
}

func (s *Scheduler) report(ctx context.Context) error {
	events, err := s.recorder.Load()
	if err != nil {
		return fmt.Errorf("load audit log: %w", err)
	}
	return s.send(ctx, Summarize(events, time.Now().UTC()))
}

// Summarize renders a usage report covering the 24 hours before now.
func Summarize(events []auditlog.Event, now time.Time) string {
	since := now.Add(-24 * time.Hour)
	turns := 0
	tokens := 0
	users := make(map[int64]bool)
	for _, ev := range events {
		if ev.Timestamp.Before(since) {
			continue
		}
		turns++
		tokens += ev.Tokens
		if ev.UserID != 0 {
			users[ev.UserID] = true
		}
	}
	return fmt.Sprintf("Daily report: %d turns, %d users, %d tokens", turns, len(users), tokens)
}
