package fx

import (
	"league-tracker/internal/api"
	"league-tracker/internal/config"
	"league-tracker/internal/database"
	"league-tracker/internal/grief"
	"league-tracker/internal/logger"
	"league-tracker/internal/repository"
	"league-tracker/internal/scheduler"
	"league-tracker/internal/server"
	"league-tracker/internal/service"
	"league-tracker/internal/window"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideWindows(cfg *config.Config) *window.Calculator {
	return window.NewCalculator(cfg.Location, cfg.SeasonStart)
}

// ProvideEvaluator applies the optional grief parameter override file.
func ProvideEvaluator(cfg *config.Config, log zerolog.Logger) (*grief.Evaluator, error) {
	params, err := grief.LoadParams(cfg.GriefParamsPath)
	if err != nil {
		return nil, err
	}
	if cfg.GriefParamsPath != "" {
		log.Info().Str("path", cfg.GriefParamsPath).Msg("grief params loaded")
	}
	return grief.NewEvaluator(params), nil
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewMMRHistoryRepository),
	fx.Provide(repository.NewAppStateRepository),
	// api client
	fx.Provide(fx.Annotate(api.NewRiotClient, fx.As(new(service.RiotClient)))),
	// core
	fx.Provide(ProvideWindows),
	fx.Provide(ProvideEvaluator),
	// svc
	fx.Provide(service.NewUpdateLock),
	fx.Provide(service.NewPlayerService),
	fx.Provide(service.NewUpdateService),
	fx.Provide(service.NewMMRService),
	fx.Provide(service.NewRecordsService),
	fx.Provide(service.NewAnalyticsService),
	fx.Provide(service.NewLiveService),
	// server
	fx.Provide(server.NewHandler),
	fx.Provide(scheduler.NewPoller),
)
