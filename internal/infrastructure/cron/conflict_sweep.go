// Package cron runs the hourly resolved-conflict sweep (spec.md §9:
// "resolved conflict bookkeeping rows may be reaped after a retention
// window"), grounded in the cron.New/AddFunc idiom the pack uses for
// scheduled jobs.
package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/exp/slog"

	"daylog/internal/domain/sync"
)

const sweepSchedule = "@hourly"

type ConflictSweeper struct {
	repo  sync.Repository
	ttl   time.Duration
	log   *slog.Logger
	sched *cron.Cron
}

func NewConflictSweeper(repo sync.Repository, ttl time.Duration, log *slog.Logger) *ConflictSweeper {
	return &ConflictSweeper{repo: repo, ttl: ttl, log: log.With("component", "conflict_sweeper")}
}

// Start schedules the hourly sweep; callers must Stop it on shutdown.
func (s *ConflictSweeper) Start(ctx context.Context) {
	c := cron.New()
	_, err := c.AddFunc(sweepSchedule, func() {
		s.sweep(ctx)
	})
	if err != nil {
		s.log.Error("invalid sweep schedule", "expr", sweepSchedule, "error", err)
		return
	}
	c.Start()
	s.sched = c
}

func (s *ConflictSweeper) Stop() {
	if s.sched != nil {
		s.sched.Stop()
		s.sched = nil
	}
}

func (s *ConflictSweeper) sweep(ctx context.Context) {
	before := time.Now().Add(-s.ttl)
	n, err := s.repo.DeleteResolvedConflictsOlderThan(ctx, before)
	if err != nil {
		s.log.Error("conflict sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("swept resolved conflicts", "count", n, "before", before)
	}
}
