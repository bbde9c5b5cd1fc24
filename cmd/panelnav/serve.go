package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/panelnav/panelnav/internal/config"
	"github.com/panelnav/panelnav/internal/errors"
	"github.com/panelnav/panelnav/pkg/client"
	"github.com/panelnav/panelnav/pkg/metrics"
	"github.com/panelnav/panelnav/pkg/web"
)

func serveCmd() *cobra.Command {
	var (
		flags  configFlags
		listen string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve route resolutions over HTTP",
		Long: `Serve route resolutions as JSON view descriptors.

Examples:
  panelnav serve
  panelnav serve --listen=127.0.0.1:9000
  PANELNAV_API_KEY=ptlc_... panelnav serve --panel-url=https://panel.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (overrides configuration)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := cfg.Logger(os.Stderr)

	panelClient, err := client.New(cfg.PanelURL, cfg.APIKey,
		client.WithTimeout(cfg.HTTPTimeout()),
		client.WithUserAgent("panelnav/"+version),
	)
	if err != nil {
		return errors.New("P003").Wrap(err)
	}

	var m *metrics.Metrics
	if !cfg.Metrics.Disabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(metrics.WithRegistry(reg), metrics.WithNamespace(cfg.Metrics.Namespace))
	}

	webCfg := web.Config{
		Loader:       panelClient,
		Viewer:       viewerSource(cfg.Viewer),
		LoadWait:     cfg.LoadWait(),
		SessionIdle:  cfg.SessionIdle(),
		SecureCookie: cfg.HTTP.SecureCookie,
		Logger:       logger,
		Metrics:      m,
	}
	if cfg.Daemon.Enabled {
		webCfg.Credentials = panelClient
		webCfg.Origin = cfg.Daemon.Origin
	}
	srv := web.New(webCfg)

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go srv.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		logger.Info("panelnav listening", "addr", cfg.Listen, "panel", cfg.PanelURL, "daemon", cfg.Daemon.Enabled)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("P060").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.New("P060").Wrap(err)
	}
	return nil
}
