package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/feishubridge/internal/channel/adapters/feishu"
	"github.com/memohai/feishubridge/internal/config"
	"github.com/memohai/feishubridge/internal/handlers"
	"github.com/memohai/feishubridge/internal/healthcheck"
	"github.com/memohai/feishubridge/internal/metrics"
	"github.com/memohai/feishubridge/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.Provide(
					provideConfig,
					provideLogger,
					metrics.New,
					provideScratch,
					provideFeishuAdapter,
					provideChannelRegistry,
					provideReplySequencer,
					provideHealthChecker,
					provideServerHandler(handlers.NewPingHandler),
					provideServerHandler(handlers.NewRepliesHandler),
					provideServerHandler(provideMediaHandler),
					provideServerHandler(handlers.NewChannelHandler),
					provideServerHandler(handlers.NewMetricsHandler),
					provideServer,
				),
				fx.Invoke(startServer),
				fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
					return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
				}),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideHealthChecker(cfg config.Config) healthcheck.Checker {
	return healthcheck.NewAccountChecker(cfg.Accounts)
}

func provideMediaHandler(log *slog.Logger, adapter *feishu.FeishuAdapter, cfg config.Config) *handlers.MediaHandler {
	return handlers.NewMediaHandler(log, adapter, cfg.Media.MaxBytes)
}

type serverParams struct {
	fx.In

	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Handlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
