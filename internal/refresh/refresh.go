// Package refresh reloads the live chart on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Reloader refreshes whatever is currently selected.
// session.Controller implements it.
type Reloader interface {
	Reload(ctx context.Context)
}

// Scheduler manages the refresh cron task.
type Scheduler struct {
	Cron   *cron.Cron
	Target Reloader
	Ctx    context.Context
	// Open reports whether a reload is worth doing at t.
	Open func(t time.Time) bool
	Now  func() time.Time
}

// NewScheduler builds a seconds-enabled scheduler gated to regular US
// equity hours in loc.
func NewScheduler(ctx context.Context, target Reloader, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Target: target,
		Ctx:    ctx,
		Open:   RegularHours(loc),
		Now:    time.Now,
	}
}

// Register adds the reload task for spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.Tick); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("refresh scheduler started")
}

// Stop stops the scheduler and waits for a running reload to return.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("refresh scheduler stopped")
}

// Tick runs one reload if the market is open.
func (s *Scheduler) Tick() {
	if s.Ctx.Err() != nil {
		return
	}
	if s.Open != nil && !s.Open(s.Now()) {
		return
	}
	s.Target.Reload(s.Ctx)
}

// RegularHours reports Monday to Friday, 09:30 to 16:00 in loc.
// Exchange holidays are not modeled.
func RegularHours(loc *time.Location) func(time.Time) bool {
	return func(t time.Time) bool {
		t = t.In(loc)
		switch t.Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
		mins := t.Hour()*60 + t.Minute()
		return mins >= 9*60+30 && mins < 16*60
	}
}
