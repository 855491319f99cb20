package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-configadmin/internal/auth"
	"github.com/goliatone/go-configadmin/internal/metrics"
	"github.com/goliatone/go-configadmin/internal/notify"
	"github.com/goliatone/go-configadmin/internal/server"
	"github.com/goliatone/go-configadmin/internal/submission"
	"github.com/goliatone/go-configadmin/pkg/renderers/vanilla"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	m := metrics.New()
	a.observer = m

	manager, err := auth.New(ctx, cfg.Auth,
		auth.WithLogger(a.logger.Named("auth")),
		auth.WithSecureCookies(strings.HasPrefix(cfg.Server.PublicURL, "https://")),
	)
	if err != nil {
		return err
	}
	client := a.apiClient(manager.TokenSource())

	var store submission.Store = submission.NewMemoryStore(cfg.Submission.TTL)
	if cfg.Redis.Addr != "" {
		rdb := submission.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.logger.Warn("redis unreachable, submissions will fail until it is back", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		store = submission.NewRedisStore(rdb, cfg.Redis.Prefix, cfg.Submission.TTL)
	}

	var publisher notify.Publisher = notify.Nop{}
	if cfg.NATS.URL != "" {
		nc, err := notify.Connect(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return err
		}
		publisher = nc
	}
	defer publisher.Close()

	runner := submission.NewRunner(store, client,
		submission.WithResultDelay(cfg.Submission.ResultDelay),
		submission.WithTimeout(cfg.Submission.Timeout),
		submission.WithPublisher(publisher),
		submission.WithCounter(m),
		submission.WithLogger(a.logger.Named("submission")),
		submission.WithProfile(cfg.API.Profile),
	)

	pageOptions := []vanilla.Option{
		vanilla.WithAssetsPrefix(cfg.Theme.Prefix),
		vanilla.WithTheme(vanilla.ThemeConfig(cfg.Theme.Manifest(vanilla.ThemeStylesheetKey), cfg.Theme.Variant)),
	}
	if cfg.Server.TemplatesDir != "" {
		pageOptions = append(pageOptions, vanilla.WithTemplatesDir(cfg.Server.TemplatesDir))
	}
	pages, err := vanilla.New(pageOptions...)
	if err != nil {
		return err
	}
	forms, err := a.forms(pages)
	if err != nil {
		return err
	}
	if _, err := forms.Form(ctx); err != nil {
		return err
	}

	srv, err := server.New(server.Dependencies{
		API:         client,
		Submissions: runner,
		Forms:       forms,
		Pages:       pages,
	},
		server.WithAuth(manager),
		server.WithMetrics(m),
		server.WithLogger(a.logger.Named("http")),
		server.WithAssetsPrefix(cfg.Theme.Prefix),
	)
	if err != nil {
		return err
	}
	if err := srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout); err != nil {
		return err
	}
	runner.Wait()
	return nil
}
