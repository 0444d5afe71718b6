package scheduler

import (
	"context"
	"sync"
	"time"

	"league-tracker/internal/config"
	"league-tracker/internal/service"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type updater interface {
	Incremental(ctx context.Context) (service.UpdateResult, error)
}

type refresher interface {
	Refresh(ctx context.Context) (service.MMRRefreshResult, error)
}

// Poller runs an incremental update followed by an MMR refresh on every tick.
type Poller struct {
	updates  updater
	mmr      refresher
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewPoller(updates *service.UpdateService, mmr *service.MMRService, cfg *config.Config, logger zerolog.Logger) *Poller {
	return newPoller(updates, mmr, cfg.PollInterval, logger)
}

func newPoller(updates updater, mmr refresher, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		updates:  updates,
		mmr:      mmr,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Register ties the poller to the application lifecycle.
func Register(lc fx.Lifecycle, p *Poller) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			p.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return p.Stop(ctx)
		},
	})
}

func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, p.done)
	p.logger.Info().Dur("interval", p.interval).Msg("poller started")
}

// Stop cancels an in-flight run and waits for the loop to exit or ctx to end.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.cancel()
	done := p.done
	p.mu.Unlock()

	select {
	case <-done:
		p.logger.Info().Msg("poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loop runs once right away, then on every tick.
func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if res, err := p.updates.Incremental(ctx); err != nil {
		p.report("incremental update", err)
	} else {
		p.logger.Info().Int("new_matches", res.NewMatches).Int("filled", res.Filled).Int("errors", res.Errors).Msg("scheduled update complete")
	}

	if res, err := p.mmr.Refresh(ctx); err != nil {
		p.report("mmr refresh", err)
	} else {
		p.logger.Info().Int("snapshots", res.Snapshots).Int("errors", res.Errors).Msg("scheduled mmr refresh complete")
	}
}

func (p *Poller) report(job string, err error) {
	switch {
	case errors.Is(err, service.ErrUpdateInProgress):
		p.logger.Info().Str("job", job).Msg("skipped, another update is running")
	case errors.Is(err, context.Canceled):
		p.logger.Debug().Str("job", job).Msg("cancelled")
	default:
		p.logger.Error().Err(err).Str("job", job).Msg("scheduled job failed")
	}
}
