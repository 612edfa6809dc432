package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/f1viz-service-go/log"
	"github.com/mpapenbr/f1viz-service-go/pkg/api"
	"github.com/mpapenbr/f1viz-service-go/pkg/bundle"
	cmdutil "github.com/mpapenbr/f1viz-service-go/pkg/cmd/util"
	"github.com/mpapenbr/f1viz-service-go/pkg/config"
	"github.com/mpapenbr/f1viz-service-go/pkg/utils"
)

//nolint:funlen // by design
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "starts the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.ServerAddr,
		"addr",
		"a",
		"localhost:8080",
		"http server listen address")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().StringVar(&config.TraceExporter,
		"trace-exporter",
		"otlp",
		"exporter for traces (otlp, stdout, none)")
	cmd.Flags().StringVar(&config.MetricExporter,
		"metric-exporter",
		"otlp",
		"exporter for metrics (otlp, stdout, prometheus, none)")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	return cmd
}

//nolint:funlen // by design
func startServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cmdutil.SetupLogger()
	cfg := config.FromFlags()

	log.Debug("Config:",
		log.String("addr", config.ServerAddr),
		log.String("python", cfg.Python),
		log.String("scriptDir", cfg.ScriptDir),
		log.Duration("scriptTimeout", cfg.ScriptTimeout),
		log.Int("maxOutputBytes", cfg.MaxOutputBytes),
		log.String("bundle", cfg.BundleSource),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	var telemetry *config.Telemetry
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(ctx); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	waitForRequiredServices(ctx, &cfg)

	bundleCache := bundle.Init(bundle.WithSource(bundle.ParseSource(cfg.BundleSource)))
	apiServer := api.NewServer(
		api.WithResolver(cmdutil.NewPipeline(&cfg)),
		api.WithBundle(bundleCache),
		api.WithFeaturedRaces(cmdutil.FeaturedRaces(&cfg)),
	)

	mux := http.NewServeMux()
	mux.Handle("/", otelhttp.NewHandler(apiServer.Handler(), "f1viz"))
	if telemetry != nil && telemetry.MetricsHandler() != nil {
		mux.Handle("GET /metrics", telemetry.MetricsHandler())
	}

	server := &http.Server{
		Addr:              config.ServerAddr,
		Handler:           h2c.NewHandler(newCORS().Handler(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting http server", log.String("addr", config.ServerAddr))
		errChan <- server.ListenAndServe()
	}()
	setupGoRoutinesDump()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server could not be started", log.ErrorField(err))
			return err
		}
	case <-sigCtx.Done():
		log.Debug("Got signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", log.ErrorField(err))
	}
	if telemetry != nil {
		telemetry.Shutdown()
	}
	_ = log.Sync()
	log.Info("Server terminated")
	return nil
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

// waitForRequiredServices blocks until a remote bundle source is reachable
func waitForRequiredServices(ctx context.Context, cfg *config.Config) {
	if !bundle.IsURL(cfg.BundleSource) {
		return
	}
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	addr := utils.ExtractFromHTTPURL(cfg.BundleSource)
	if addr == "" {
		return
	}
	log.Debug("Waiting for bundle source", log.String("addr", addr))
	if err = utils.WaitForTCP(ctx, addr, timeout); err == nil {
		err = utils.WaitForHTTPResponse(ctx, cfg.BundleSource, timeout)
	}
	if err != nil {
		// cached mode degrades to placeholders, the server is still useful
		log.Warn("bundle source not reachable", log.ErrorField(err))
		return
	}
	log.Debug("Required services are available")
}

func newCORS() *cors.Cors {
	// The dashboard is served from another origin, so allow everything.
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodOptions,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			"X-Request-ID",
			"X-Data-Source",
		},
		MaxAge: int(2 * time.Hour / time.Second),
	})
}
