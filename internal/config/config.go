package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/panelnav/panelnav/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "panelnav.json"

	DefaultListen      = ":8080"
	DefaultLoadWait    = "2s"
	DefaultSessionIdle = "30m"
	DefaultHTTPTimeout = "15s"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultNamespace   = "panelnav"
)

// Environment variables that override the file.
const (
	EnvPanelURL = "PANELNAV_PANEL_URL"
	EnvAPIKey   = "PANELNAV_API_KEY"
	EnvListen   = "PANELNAV_LISTEN"
)

// Config is the complete panelnav.json configuration.
type Config struct {
	// PanelURL is the base URL of the panel the client API is served from.
	PanelURL string `json:"panelUrl,omitempty"`

	// APIKey is a client API key sent as a bearer token.
	APIKey string `json:"apiKey,omitempty"`

	// Listen is the HTTP listen address.
	Listen string `json:"listen,omitempty"`

	Session SessionConfig `json:"session,omitempty"`
	HTTP    HTTPConfig    `json:"http,omitempty"`
	Daemon  DaemonConfig  `json:"daemon,omitempty"`
	Log     LogConfig     `json:"log,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Viewer is the viewer used by the resolve command and, when no other
	// source is wired, by the HTTP surface.
	Viewer ViewerConfig `json:"viewer,omitempty"`

	configPath string
}

// SessionConfig configures navigation sessions.
type SessionConfig struct {
	// LoadWait bounds how long a request waits for a server load.
	LoadWait string `json:"loadWait,omitempty"`

	// Idle evicts navigation sessions unused for this long. "0" disables
	// eviction.
	Idle string `json:"idle,omitempty"`
}

// HTTPConfig configures the panel client and the HTTP surface.
type HTTPConfig struct {
	// Timeout bounds each panel API request.
	Timeout string `json:"timeout,omitempty"`

	// SecureCookie marks the navigation cookie Secure.
	SecureCookie bool `json:"secureCookie,omitempty"`
}

// DaemonConfig configures the daemon event listener.
type DaemonConfig struct {
	Enabled bool `json:"enabled,omitempty"`

	// Origin is sent as the websocket Origin. Default: the panel URL.
	Origin string `json:"origin,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Disabled  bool   `json:"disabled,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// ViewerConfig describes a fixed viewer.
type ViewerConfig struct {
	RootAdmin   bool     `json:"rootAdmin,omitempty"`
	Permissions []string `json:"permissions,omitempty"`

	// FromHeaders makes serve read the viewer of each request from
	// headers set by a trusted reverse proxy instead.
	FromHeaders bool `json:"fromHeaders,omitempty"`
}

// New returns a configuration with defaults applied.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads panelnav.json from dir if it exists, applies environment
// overrides and fills in defaults. A missing file is not an error.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if !Exists(dir) {
		c := &Config{}
		c.ApplyEnv(os.LookupEnv)
		c.applyDefaults()
		return c, nil
	}
	return LoadFile(path)
}

// LoadFile reads configuration from path, applies environment overrides
// and fills in defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("P001").
			WithDetail("Failed to read " + path).
			Wrap(err)
	}

	c := &Config{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.New("P002").
			WithDetail("Failed to parse " + path + ": " + err.Error())
	}

	c.configPath = path
	c.ApplyEnv(os.LookupEnv)
	c.applyDefaults()
	return c, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPanelURL); ok && v != "" {
		c.PanelURL = v
	}
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		c.APIKey = v
	}
	if v, ok := lookup(EnvListen); ok && v != "" {
		c.Listen = v
	}
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("P007").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.New("P007").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the configuration was loaded from, if any.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Session.LoadWait == "" {
		c.Session.LoadWait = DefaultLoadWait
	}
	if c.Session.Idle == "" {
		c.Session.Idle = DefaultSessionIdle
	}
	if c.HTTP.Timeout == "" {
		c.HTTP.Timeout = DefaultHTTPTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	c.PanelURL = strings.TrimRight(c.PanelURL, "/")
	if c.Daemon.Origin == "" {
		c.Daemon.Origin = c.PanelURL
	}
}

// Validate checks every field a running server depends on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.PanelURL)
	if c.PanelURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("P003").
			WithDetailf("panelUrl %q must be an absolute http or https URL", c.PanelURL)
	}
	if c.APIKey == "" {
		return errors.New("P004")
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errors.New("P006").
			WithDetailf("listen %q is not host:port", c.Listen).
			Wrap(err)
	}
	for name, value := range map[string]string{
		"session.loadWait": c.Session.LoadWait,
		"session.idle":     c.Session.Idle,
		"http.timeout":     c.HTTP.Timeout,
	} {
		if _, err := parseDuration(value); err != nil {
			return errors.New("P005").
				WithDetailf("%s %q: durations use Go syntax such as \"2s\" and must not be negative", name, value).
				Wrap(err)
		}
	}
	if _, ok := levels[strings.ToLower(c.Log.Level)]; !ok {
		return errors.Newf(errors.CategoryConfig, "unknown log level %q", c.Log.Level).
			WithSuggestion("Use debug, info, warn or error.")
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		return errors.Newf(errors.CategoryConfig, "unknown log format %q", f).
			WithSuggestion("Use text or json.")
	}
	return nil
}

// LoadWait returns session.loadWait, or the default when it is invalid.
func (c *Config) LoadWait() time.Duration {
	return durationOr(c.Session.LoadWait, DefaultLoadWait)
}

// SessionIdle returns session.idle, or the default when it is invalid.
func (c *Config) SessionIdle() time.Duration {
	return durationOr(c.Session.Idle, DefaultSessionIdle)
}

// HTTPTimeout returns http.timeout, or the default when it is invalid.
func (c *Config) HTTPTimeout() time.Duration {
	return durationOr(c.HTTP.Timeout, DefaultHTTPTimeout)
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Logger builds the slog logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, ok := levels[strings.ToLower(c.Log.Level)]
	if !ok {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists reports whether dir contains a configuration file.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.Newf(errors.CategoryConfig, "negative duration %s", s)
	}
	return d, nil
}

func durationOr(s, fallback string) time.Duration {
	if d, err := parseDuration(s); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}
