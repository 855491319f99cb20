package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-configadmin/internal/auth"
	"github.com/goliatone/go-configadmin/internal/config"
	"github.com/goliatone/go-configadmin/internal/logging"
	"github.com/goliatone/go-configadmin/pkg/configapi"
	"github.com/goliatone/go-configadmin/pkg/openapi"
	"github.com/goliatone/go-configadmin/pkg/orchestrator"
	"github.com/goliatone/go-configadmin/pkg/render"
	"github.com/goliatone/go-configadmin/pkg/renderers/tui"
)

// app carries what every command shares once the root has loaded the
// settings.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	verbose    bool
	devLog     bool

	cfg    config.Config
	logger *zap.Logger

	// prompts replaces the terminal for edit.
	prompts tui.PromptDriver
	// observer receives configapi calls; serve installs the metrics.
	observer configapi.Observer
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut, logger: zap.NewNop()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "configadmin",
		Short: "Administer the functional configuration",
		Long: `configadmin serves the web console of the functional configuration API
and offers the same operations from the terminal.

Settings come from the --config YAML file, a .env file and CONFIGADMIN_*
environment variables, the environment winning.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger, err := logging.New(logging.Options{Verbose: a.verbose, Development: a.devLog})
			if err != nil {
				return err
			}
			a.logger = logger
			a.logger.Debug("settings loaded", zap.String("profile", cfg.API.Profile), zap.String("api", cfg.API.BaseURL))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML settings file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")
	root.PersistentFlags().BoolVar(&a.devLog, "dev-log", false, "Human readable console logs")

	root.AddCommand(
		newServeCmd(a),
		newShowCmd(a),
		newHistoryCmd(a),
		newEditCmd(a),
		newValidateCmd(a),
		newApplyCmd(a),
	)
	return root
}

// forms builds the orchestrator over the configured API description.
func (a *app) forms(renderers ...render.Renderer) (*orchestrator.Orchestrator, error) {
	registry, err := render.NewRegistry(append([]render.Renderer{render.TextRenderer{}}, renderers...)...)
	if err != nil {
		return nil, err
	}
	options := []orchestrator.Option{
		orchestrator.WithRegistry(registry),
		orchestrator.WithLabels(a.cfg.Form.Labels),
		orchestrator.WithLoader(openapi.NewLoader(openapi.WithHTTPFallback(a.cfg.API.Timeout))),
	}
	if a.cfg.Form.OpenAPISource != "" {
		src, err := openapi.ParseSource(a.cfg.Form.OpenAPISource)
		if err != nil {
			return nil, err
		}
		options = append(options, orchestrator.WithSource(src))
	}
	if len(renderers) > 0 {
		options = append(options, orchestrator.WithDefaultRenderer(renderers[0].Name()))
	} else {
		options = append(options, orchestrator.WithDefaultRenderer(render.TextRenderer{}.Name()))
	}
	return orchestrator.New(options...), nil
}

// client returns the API client for terminal commands. OIDC consoles have no
// operator login in the terminal, so they need auth.token.
func (a *app) client(ctx context.Context) (*configapi.Client, error) {
	var tokens oauth2.TokenSource
	switch a.cfg.Auth.Mode {
	case config.AuthOIDC:
		if a.cfg.Auth.Token == "" {
			return nil, errors.New("auth mode oidc needs auth.token (CONFIGADMIN_AUTH_TOKEN) for terminal commands")
		}
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.cfg.Auth.Token, TokenType: "Bearer"})
	default:
		manager, err := auth.New(ctx, a.cfg.Auth, auth.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		tokens = manager.TokenSource()
	}
	return a.apiClient(tokens), nil
}

func (a *app) apiClient(tokens oauth2.TokenSource) *configapi.Client {
	return configapi.New(
		configapi.WithBaseURL(a.cfg.API.BaseURL),
		configapi.WithProfile(a.cfg.API.Profile),
		configapi.WithPaths(a.cfg.API.ConfigurationPath, a.cfg.API.HistoryPath),
		configapi.WithHTTPClient(&http.Client{Timeout: a.cfg.API.Timeout}),
		configapi.WithTokenSource(tokens),
		configapi.WithObserver(a.observer),
	)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
