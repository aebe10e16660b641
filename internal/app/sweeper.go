package app

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// StartSweeper runs the lifecycle sweep on a fixed interval. The feed is
// at-least-once: a dropped leave can strand an empty room, and the sweep
// is what eventually reclaims it.
func StartSweeper(ctx context.Context, l *Lifecycle, interval time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			l.Sweep(ctx)
		}),
	)
	if err != nil {
		return nil, err
	}
	s.Start()
	log.Info().Str("module", "app.sweeper").Dur("interval", interval).Msg("sweeper started")
	return s, nil
}
