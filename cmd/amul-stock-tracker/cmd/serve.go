package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/donaldgifford/amul-stock-tracker/internal/api/handlers"
	mw "github.com/donaldgifford/amul-stock-tracker/internal/api/middleware"
	"github.com/donaldgifford/amul-stock-tracker/internal/config"
	"github.com/donaldgifford/amul-stock-tracker/internal/engine"
	"github.com/donaldgifford/amul-stock-tracker/internal/store"
	"github.com/donaldgifford/amul-stock-tracker/web"
)

const shutdownTimeout = 10 * time.Second

// runner is what the HTTP surface needs from the engine.
type runner interface {
	handlers.Checker
	handlers.RunReporter
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and scheduler",
		Long: "Serve the target picker at /, the raw status map at /status.json,\n" +
			"the status and manual trigger API under /api/v1, health probes and\n" +
			"Prometheus metrics. With schedule.enabled a check also runs every\n" +
			"schedule.interval.",
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := newLogger(cfg)
	ctx := cmd.Context()

	flush, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer flush()

	eng, st, err := newEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	e := newServer(cfg, eng, st, log)

	var sched *engine.Scheduler
	if cfg.Schedule.Enabled {
		sched, err = engine.NewScheduler(eng, cfg.Schedule.Interval, log)
		if err != nil {
			return fmt.Errorf("creating scheduler: %w", err)
		}
		sched.Start()
		if cfg.Schedule.RunOnStart {
			go sched.RunNow()
		}
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	log.Info("starting server",
		"addr", addr,
		"pincode", cfg.Monitor.Pincode,
		"state_backend", cfg.State.Backend,
		"schedule", cfg.Schedule.Enabled,
	)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sched != nil {
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
			log.Warn("scheduled check still running at shutdown")
		}
	}

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// newServer builds the Echo instance with every route registered.
func newServer(cfg *config.Config, r runner, st store.Store, log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	// RequestLog sets the request ID that Recovery reports.
	e.Use(mw.RequestLog(log))
	e.Use(mw.Recovery(log))
	e.Use(mw.Metrics())

	health := handlers.NewHealthHandler(st)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	picker := handlers.NewPickerHandler(st, web.Picker())
	e.GET("/", picker.Index)
	e.GET("/status.json", picker.StatusJSON)

	api := humaecho.New(e, huma.DefaultConfig("amul-stock-tracker", Version))
	handlers.RegisterStatusRoutes(api, handlers.NewStatusHandler(st, r))

	limiter := rate.NewLimiter(rate.Every(cfg.Server.TriggerRate), cfg.Server.TriggerBurst)
	handlers.RegisterCheckRoutes(api, handlers.NewCheckHandler(r, limiter))

	return e
}
