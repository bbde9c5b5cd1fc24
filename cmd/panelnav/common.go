package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/panelnav/panelnav/internal/config"
	"github.com/panelnav/panelnav/pkg/capability"
	"github.com/panelnav/panelnav/pkg/panel"
	"github.com/panelnav/panelnav/pkg/web"
)

// configFlags are shared by commands that talk to the panel.
type configFlags struct {
	path     string
	panelURL string
	apiKey   string
}

func (f *configFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.path, "config", "c", "", "Path to panelnav.json (default: ./panelnav.json if present)")
	cmd.Flags().StringVar(&f.panelURL, "panel-url", "", "Panel base URL (overrides configuration)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Client API key (overrides configuration)")
}

// load reads the configuration and applies flag overrides. It does not
// validate.
func (f *configFlags) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.path != "" {
		cfg, err = config.LoadFile(f.path)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}
	previous := cfg.PanelURL
	cfg.ApplyEnv(func(key string) (string, bool) {
		switch key {
		case config.EnvPanelURL:
			return f.panelURL, f.panelURL != ""
		case config.EnvAPIKey:
			return f.apiKey, f.apiKey != ""
		}
		return "", false
	})
	cfg.PanelURL = strings.TrimRight(cfg.PanelURL, "/")
	if cfg.Daemon.Origin == previous {
		cfg.Daemon.Origin = cfg.PanelURL
	}
	return cfg, nil
}

// configuredViewer is the viewer described by the viewer section.
func configuredViewer(v config.ViewerConfig) panel.Viewer {
	return panel.Viewer{
		RootAdmin:    v.RootAdmin,
		Capabilities: capability.NewSet(v.Permissions...),
	}
}

// viewerSource picks how serve derives the viewer of a request. A viewer
// put on the request context by embedding code always wins.
func viewerSource(v config.ViewerConfig) web.ViewerFunc {
	if v.FromHeaders {
		return web.ContextViewer(web.HeaderViewer(web.DefaultRootAdminHeader, web.DefaultPermissionsHeader))
	}
	return web.ContextViewer(web.StaticViewer(configuredViewer(v)))
}
