package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/server"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vroute.json"

	// DefaultAddress is the default listen address.
	DefaultAddress = ":8080"

	// DefaultManifest is the default route manifest file.
	DefaultManifest = "routes.json"

	// DefaultRoutesDir is the default routes directory for check/routes/match.
	DefaultRoutesDir = "routes"

	// DefaultMetricsPath is the default Prometheus endpoint.
	DefaultMetricsPath = "/metrics"
)

// Duration is a time.Duration encoded as a Go duration string.
type Duration struct {
	time.Duration
}

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string such as "30s".
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config represents the complete vroute.json configuration.
type Config struct {
	// Name is the service name, used in logs and traces.
	Name string `json:"name,omitempty"`

	Server  ServerConfig  `json:"server"`
	Routes  RoutesConfig  `json:"routes"`
	Metrics MetricsConfig `json:"metrics"`
	Tracing TracingConfig `json:"tracing"`
	Log     LogConfig     `json:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig configures the HTTP listener and WebSocket transport.
type ServerConfig struct {
	Address           string   `json:"address,omitempty"`
	ReadHeaderTimeout Duration `json:"readHeaderTimeout,omitempty"`
	IdleTimeout       Duration `json:"idleTimeout,omitempty"`
	ShutdownTimeout   Duration `json:"shutdownTimeout,omitempty"`

	ReadBufferSize  int      `json:"readBufferSize,omitempty"`
	WriteBufferSize int      `json:"writeBufferSize,omitempty"`
	MaxMessageSize  int64    `json:"maxMessageSize,omitempty"`
	ReadTimeout     Duration `json:"readTimeout,omitempty"`
	WriteTimeout    Duration `json:"writeTimeout,omitempty"`
	PingInterval    Duration `json:"pingInterval,omitempty"`
	Compression     bool     `json:"compression,omitempty"`

	// AllowedOrigins lists extra origins accepted for WebSocket upgrades.
	// Same-origin requests are always accepted; "*" accepts all.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// RoutesConfig locates route declarations.
type RoutesConfig struct {
	// Dir is the routes directory scanned by check, routes and match.
	Dir string `json:"dir,omitempty"`

	// Extensions lists route file extensions. Default: [".go"].
	Extensions []string `json:"extensions,omitempty"`

	// Manifest is the JSON manifest served by the serve command.
	Manifest string `json:"manifest,omitempty"`

	// S3 reads the manifest from S3 instead of Manifest.
	S3 *S3Config `json:"s3,omitempty"`

	// ReloadInterval is how often the manifest is polled. Zero disables
	// hot reload.
	ReloadInterval Duration `json:"reloadInterval,omitempty"`
}

// S3Config locates a manifest object in S3.
type S3Config struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Region string `json:"region,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace,omitempty"`
	Path      string `json:"path,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled       bool   `json:"enabled"`
	TracerName    string `json:"tracerName,omitempty"`
	IncludeParams bool   `json:"includeParams,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory.
// It looks for vroute.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R301").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path))
		}
		return nil, errors.New("R302").Wrap(err)
	}

	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("R302").
			WithFile(path).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("R302").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("R302").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields. Transport
// defaults come from server.DefaultConfig.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "vroute"
	}

	sd := server.DefaultConfig()
	s := &c.Server
	if s.Address == "" {
		s.Address = DefaultAddress
	}
	fillDuration(&s.ReadHeaderTimeout, sd.ReadHeaderTimeout)
	fillDuration(&s.IdleTimeout, sd.IdleTimeout)
	fillDuration(&s.ShutdownTimeout, sd.ShutdownTimeout)
	fillDuration(&s.ReadTimeout, sd.ReadTimeout)
	fillDuration(&s.WriteTimeout, sd.WriteTimeout)
	fillDuration(&s.PingInterval, sd.PingInterval)
	if s.ReadBufferSize == 0 {
		s.ReadBufferSize = sd.ReadBufferSize
	}
	if s.WriteBufferSize == 0 {
		s.WriteBufferSize = sd.WriteBufferSize
	}
	if s.MaxMessageSize == 0 {
		s.MaxMessageSize = sd.MaxMessageSize
	}

	if c.Routes.Dir == "" {
		c.Routes.Dir = DefaultRoutesDir
	}
	if len(c.Routes.Extensions) == 0 {
		c.Routes.Extensions = []string{".go"}
	}
	if c.Routes.Manifest == "" && c.Routes.S3 == nil {
		c.Routes.Manifest = DefaultManifest
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "vroute"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = c.Name
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func fillDuration(d *Duration, def time.Duration) {
	if d.Duration == 0 {
		d.Duration = def
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	invalid := func(detail string) error {
		return errors.New("R303").WithDetail(detail)
	}

	s := c.Server
	if s.PingInterval.Duration >= s.ReadTimeout.Duration {
		return invalid("server.pingInterval must be shorter than server.readTimeout")
	}
	for name, d := range map[string]Duration{
		"readHeaderTimeout": s.ReadHeaderTimeout,
		"idleTimeout":       s.IdleTimeout,
		"shutdownTimeout":   s.ShutdownTimeout,
		"writeTimeout":      s.WriteTimeout,
	} {
		if d.Duration < 0 {
			return invalid("server." + name + " must not be negative")
		}
	}
	if s.ReadBufferSize < 0 || s.WriteBufferSize < 0 || s.MaxMessageSize < 0 {
		return invalid("server buffer and message sizes must not be negative")
	}
	if c.Routes.ReloadInterval.Duration < 0 {
		return invalid("routes.reloadInterval must not be negative")
	}
	if s3 := c.Routes.S3; s3 != nil && (s3.Bucket == "" || s3.Key == "") {
		return invalid("routes.s3 needs both bucket and key")
	}
	for _, ext := range c.Routes.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return invalid(fmt.Sprintf("routes.extensions: %q must start with a dot", ext))
		}
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid("metrics.path must start with /")
	}
	if _, err := c.LogLevel(); err != nil {
		return invalid(err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid(fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	return nil
}

// ServerConfig returns the transport configuration for pkg/server.
func (c *Config) ServerConfig() *server.Config {
	s := c.Server
	sc := &server.Config{
		ReadHeaderTimeout: s.ReadHeaderTimeout.Duration,
		IdleTimeout:       s.IdleTimeout.Duration,
		ShutdownTimeout:   s.ShutdownTimeout.Duration,
		ReadBufferSize:    s.ReadBufferSize,
		WriteBufferSize:   s.WriteBufferSize,
		MaxMessageSize:    s.MaxMessageSize,
		ReadTimeout:       s.ReadTimeout.Duration,
		WriteTimeout:      s.WriteTimeout.Duration,
		PingInterval:      s.PingInterval.Duration,
		EnableCompression: s.Compression,
	}
	if len(s.AllowedOrigins) > 0 {
		sc.CheckOrigin = server.AllowOrigins(s.AllowedOrigins...)
	}
	return sc
}

// RoutesPath returns the absolute path to the routes directory.
func (c *Config) RoutesPath() string {
	return c.resolve(c.Routes.Dir)
}

// ManifestPath returns the absolute path to the manifest file, or "" when
// the manifest is read from S3.
func (c *Config) ManifestPath() string {
	if c.Routes.S3 != nil {
		return ""
	}
	return c.resolve(c.Routes.Manifest)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	return level, nil
}

// NewLogger builds the process logger described by Log.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the directory containing
// vroute.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("R301").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or its nearest parent that has one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	return Load(root)
}
