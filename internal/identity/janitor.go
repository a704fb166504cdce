package identity

import (
	"fmt"
	"log/slog"
	"time"

	cron "github.com/netresearch/go-cron"
)

// Janitor sweeps expired sessions on a cron schedule.
type Janitor struct {
	svc      *Service
	ttl      time.Duration
	schedule cron.Schedule
	done     chan struct{}
}

// NewJanitor parses a standard 5-field cron expression and prepares a sweep
// loop. A zero ttl yields a no-op janitor.
func NewJanitor(svc *Service, spec string, ttl time.Duration) (*Janitor, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse janitor cron %q: %w", spec, err)
	}
	return &Janitor{
		svc:      svc,
		ttl:      ttl,
		schedule: schedule,
		done:     make(chan struct{}),
	}, nil
}

// Start runs the sweep loop in a goroutine until Stop is called.
func (j *Janitor) Start() {
	if j.ttl <= 0 {
		return
	}
	go j.run()
}

// Stop terminates the sweep loop.
func (j *Janitor) Stop() {
	close(j.done)
}

func (j *Janitor) run() {
	for {
		next := j.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			if n := j.svc.SweepExpired(j.ttl); n > 0 {
				slog.Info("swept expired sessions", "count", n)
			}
		case <-j.done:
			timer.Stop()
			return
		}
	}
}
