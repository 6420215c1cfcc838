package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vroute/internal/config"
	errs "github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/dispatch"
	"github.com/vango-dev/vroute/pkg/manifest"
	"github.com/vango-dev/vroute/pkg/middleware"
	"github.com/vango-dev/vroute/pkg/router"
	"github.com/vango-dev/vroute/pkg/server"
)

type serveOptions struct {
	configDir string
	addr      string
	manifest  string
	reload    time.Duration
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve routes declared in a manifest",
		Long: `Serve the routes declared in a JSON manifest with the built-in demo
handlers (static, echo, params, and the chat WebSocket room).

The manifest is read from routes.manifest in vroute.json, or from S3 when
routes.s3 is set, and polled every routes.reloadInterval. A changed
manifest replaces the route table without dropping requests; a broken one
is logged and the previous table keeps serving.

Prometheus metrics are exposed on metrics.path and a health report on
/healthz.

Examples:
  vroute serve
  vroute serve --addr :9000 --manifest routes.json --reload 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				for _, e := range errs.ForManifest(err, cfg.ManifestPath()) {
					fmt.Fprint(cmd.ErrOrStderr(), e.Format())
				}
				return errReported
			}
			return a.run(ctx)
		},
	}

	cmd.Flags().StringVarP(&opts.configDir, "config", "c", "", "Directory containing vroute.json (default: nearest parent of the working directory)")
	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "Listen address (default from vroute.json, or :8080)")
	cmd.Flags().StringVarP(&opts.manifest, "manifest", "m", "", "Manifest file (default from vroute.json, or routes.json)")
	cmd.Flags().DurationVar(&opts.reload, "reload", 0, "Manifest poll interval; 0 keeps the configured value")

	return cmd
}

// loadServeConfig loads vroute.json and applies flag overrides. Without a
// config file the defaults are used, relative to the working directory.
func loadServeConfig(opts serveOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configDir != "" {
		cfg, err = config.Load(opts.configDir)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		var ce *errs.Error
		if errors.As(err, &ce) && ce.Code == "R301" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if opts.addr != "" {
		cfg.Server.Address = opts.addr
	}
	if opts.manifest != "" {
		cfg.Routes.Manifest = opts.manifest
		cfg.Routes.S3 = nil
	}
	if opts.reload > 0 {
		cfg.Routes.ReloadInterval = config.Duration{Duration: opts.reload}
	}
	return cfg, nil
}

// app is a configured server: the router, the manifest watcher feeding
// it and the HTTP handler in front of it.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	router  *router.Router
	watcher *manifest.Watcher
	engine  *server.Handler
	handler http.Handler
}

// newApp wires the server and loads the manifest once. A manifest that
// cannot be loaded fails startup.
func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	logger := cfg.NewLogger(logOut).With("service", cfg.Name)

	reg := manifest.NewRegistry()
	registerDemo(reg, logger)

	var (
		routerOpts   = []router.Option{router.WithLogger(logger.With("component", "router"))}
		dispatchOpts = []dispatch.Option{dispatch.WithLogger(logger.With("component", "dispatch"))}
		promReg      *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		promReg = prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := middleware.NewMetrics(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(promReg),
		)
		routerOpts = append(routerOpts, router.WithSwapHook(m.ObserveSwap))
		dispatchOpts = append(dispatchOpts,
			dispatch.WithMiddleware(m.Middleware()),
			dispatch.WithConnObserver(m),
		)
	}
	if cfg.Tracing.Enabled {
		dispatchOpts = append(dispatchOpts, dispatch.WithMiddleware(middleware.OpenTelemetry(
			middleware.WithTracerName(cfg.Tracing.TracerName),
			middleware.WithIncludeParams(cfg.Tracing.IncludeParams),
		)))
	}
	dispatchOpts = append(dispatchOpts, dispatch.WithMiddleware(middleware.Logging(logger.With("component", "access"))))

	r := router.New(routerOpts...)

	src, err := manifestSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	w := manifest.NewWatcher(src, reg, r,
		manifest.WithLogger(logger.With("component", "manifest")),
		manifest.WithInterval(cfg.Routes.ReloadInterval.Duration),
	)
	if _, err := w.Reload(ctx); err != nil {
		return nil, err
	}

	engine := server.New(r, dispatch.New(dispatchOpts...), cfg.ServerConfig())
	engine.SetLogger(logger.With("component", "server"))

	a := &app{cfg: cfg, logger: logger, router: r, watcher: w, engine: engine}
	a.handler = a.routes(promReg)
	return a, nil
}

// manifestSource returns the configured manifest source.
func manifestSource(ctx context.Context, cfg *config.Config) (manifest.Source, error) {
	if s3 := cfg.Routes.S3; s3 != nil {
		return manifest.NewS3SourceFromEnv(ctx, s3.Bucket, s3.Key, s3.Region)
	}
	return manifest.FileSource{Path: cfg.ManifestPath()}, nil
}

// routes mounts the route engine behind chi, next to the metrics and
// health endpoints.
func (a *app) routes(promReg *prometheus.Registry) http.Handler {
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)

	if promReg != nil {
		mux.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{Registry: promReg}))
	}
	mux.Get("/healthz", a.health)
	mux.Mount("/", a.engine)
	return mux
}

type healthReport struct {
	Status string               `json:"status"`
	Routes int                  `json:"routes"`
	Source string               `json:"source"`
	Stats  server.StatsSnapshot `json:"stats"`
}

func (a *app) health(w http.ResponseWriter, r *http.Request) {
	report := healthReport{
		Status: "ok",
		Routes: a.router.Snapshot().Len(),
		Source: a.watcher.Source().String(),
		Stats:  a.engine.Stats().Snapshot(),
	}
	status := http.StatusOK
	if report.Routes == 0 {
		report.Status = "empty"
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(report)
}

// run serves until ctx is done, polling the manifest when a reload
// interval is configured.
func (a *app) run(ctx context.Context) error {
	if a.cfg.Routes.ReloadInterval.Duration > 0 {
		go a.watcher.Run(ctx)
	}
	srv := a.cfg.ServerConfig().HTTPServer(a.cfg.Server.Address, a.handler)
	a.logger.Info("serving",
		"address", a.cfg.Server.Address,
		"routes", a.router.Snapshot().Len(),
		"source", a.watcher.Source().String(),
	)
	return server.Run(ctx, srv, a.cfg.Server.ShutdownTimeout.Duration, a.logger.With("component", "server"))
}
