package watch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Resync periodically requests a full rebuild, for filesystems that drop
// watch events (network mounts, some container volumes).
type Resync struct {
	scheduler gocron.Scheduler
}

// StartResync schedules Everything() on s every interval.
func StartResync(s *Session, interval time.Duration) (*Resync, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			slog.Debug("watch: periodic resync")
			s.Request(Everything())
		}),
		gocron.WithName("resync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to create resync job: %w", err)
	}
	sched.Start()
	slog.Info("Periodic resync enabled", slog.Duration("interval", interval))
	return &Resync{scheduler: sched}, nil
}

// Stop shuts the scheduler down.
func (r *Resync) Stop() error {
	return r.scheduler.Shutdown()
}
