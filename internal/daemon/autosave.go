package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SaveFunc persists the current theme.
type SaveFunc func(ctx context.Context) error

// Autosave saves the theme on a cron schedule.
type Autosave struct {
	cron    *cron.Cron
	save    SaveFunc
	timeout time.Duration
	logger  zerolog.Logger
}

// NewAutosave schedules save according to the standard cron spec.
func NewAutosave(spec string, save SaveFunc, logger zerolog.Logger) (*Autosave, error) {
	if save == nil {
		return nil, fmt.Errorf("save callback is required")
	}

	a := &Autosave{
		cron:    cron.New(),
		save:    save,
		timeout: 10 * time.Second,
		logger:  logger.With().Str("component", "autosave").Logger(),
	}
	if _, err := a.cron.AddFunc(spec, a.run); err != nil {
		return nil, fmt.Errorf("invalid autosave schedule %q: %w", spec, err)
	}
	return a, nil
}

// Start starts the scheduler
func (a *Autosave) Start() {
	a.cron.Start()
	a.logger.Debug().Msg("Autosave scheduled")
}

// Stop stops the scheduler and waits for a running save to finish.
func (a *Autosave) Stop() {
	<-a.cron.Stop().Done()
}

func (a *Autosave) run() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.save(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Autosave failed")
		return
	}
	a.logger.Debug().Msg("Theme autosaved")
}
