package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"league-tracker/internal/config"
	"league-tracker/internal/constants"
	fxmodules "league-tracker/internal/fx"
	"league-tracker/internal/middleware"
	"league-tracker/internal/scheduler"
	"league-tracker/internal/server"

	"github.com/jmoiron/sqlx"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Provide(newHTTPServer),
		fx.Invoke(registerServer),
		// hooks stop in reverse order: the poller halts before the database closes
		fx.Invoke(scheduler.Register),
	).Run()
}

func newHTTPServer(cfg *config.Config, handler *server.Handler, logger zerolog.Logger) *http.Server {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:              net.JoinHostPort("", cfg.ServerPort),
		Handler:           middleware.RequestID(logger)(c.Handler(server.Routes(handler))),
		ReadHeaderTimeout: constants.RequestTimeout,
	}
}

func registerServer(lc fx.Lifecycle, srv *http.Server, db *sqlx.DB, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info().Str("addr", srv.Addr).Msg("http server listening")
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal().Err(err).Msg("http server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer cancel()

			err := srv.Shutdown(shutdownCtx)
			if err != nil {
				logger.Error().Err(err).Msg("http server shutdown failed")
			}
			if cerr := db.Close(); cerr != nil {
				logger.Warn().Err(cerr).Msg("failed to close database")
			}
			logger.Info().Msg("shutdown complete")
			return err
		},
	})
}
