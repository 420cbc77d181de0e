package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/config"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/employees"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/logging"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/parking"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/recognition"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/server"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/store/memory"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/store/postgres"
)

var (
	mode = flag.String("mode", "cli", "Mode to run: cli, server, or both")
	port = flag.String("port", "", "Port for HTTP server (defaults to APP_PORT)")
)

type app struct {
	slots      *parking.InstrumentedManager
	autoPark   *parking.InstrumentedAutoParker
	employees  parking.EmployeeDirectory
	recognizer recognition.Recognizer
	limiters   *server.ClientLimiters
	closers    []func()
}

func main() {
	flag.Parse()
	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryProvider, err := parking.NewTelemetryProvider(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	logging.Init(cfg.OTelServiceName, cfg.Environment)

	a, err := newApp(ctx, cfg, telemetryProvider)
	if err != nil {
		logging.Error(ctx, "startup failed", "error", err)
		shutdownTelemetry(telemetryProvider)
		os.Exit(1)
	}
	defer a.close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch *mode {
	case "cli":
		runCLI(ctx, cancel, a, telemetryProvider, sigChan)
	case "server":
		runServer(ctx, cancel, cfg, a, telemetryProvider, sigChan)
	case "both":
		runBoth(ctx, cancel, cfg, a, telemetryProvider, sigChan)
	default:
		log.Fatalf("Invalid mode: %s. Must be cli, server, or both", *mode)
	}
}

func newApp(ctx context.Context, cfg *config.Config, tp *parking.TelemetryProvider) (*app, error) {
	a := &app{}

	store, err := a.openSlotStore(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	manager := parking.NewManager(store, parking.WithDefaultRate(cfg.DefaultRatePerHour))
	a.slots, err = parking.NewInstrumentedManager(manager, tp.Tracer(), tp.Meter())
	if err != nil {
		a.close()
		return nil, err
	}
	a.autoPark = a.slots.InstrumentAutoParker(parking.NewAutoParker(store, a.slots))

	if _, err := a.slots.InitPool(ctx, cfg.PoolSize); err != nil {
		a.close()
		return nil, err
	}

	if a.employees, err = a.openEmployees(ctx, cfg); err != nil {
		a.close()
		return nil, err
	}

	if cfg.RecognitionURL != "" {
		a.recognizer = recognition.NewHTTPClient(cfg.RecognitionURL, cfg.RecognitionTimeout)
	} else {
		logging.Warn(ctx, "RECOGNITION_URL not set, /api/recognize is disabled")
	}

	a.limiters = server.NewClientLimiters(cfg.RecognitionRPS, cfg.RecognitionBurst)
	a.limiters.StartJanitor(ctx, 2*time.Minute)
	return a, nil
}

func (a *app) openSlotStore(ctx context.Context, cfg *config.Config) (parking.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logging.Info(ctx, "using in-memory slot store")
		return memory.New(), nil
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			return nil, err
		}
		logging.Info(ctx, "using postgres slot store")
		return postgres.New(pool), nil
	default:
		return nil, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
	}
}

func (a *app) openEmployees(ctx context.Context, cfg *config.Config) (parking.EmployeeDirectory, error) {
	if cfg.RedisAddr == "" {
		return employees.NewMemoryStore(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}
	logging.Info(ctx, "using redis employee allowlist", "addr", cfg.RedisAddr)
	return employees.NewRedisStore(rdb, employees.WithSetKey(cfg.EmployeeSetKey)), nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) deps(cfg *config.Config) server.Deps {
	return server.Deps{
		Slots:       a.slots,
		AutoPark:    a.autoPark,
		Employees:   a.employees,
		Recognizer:  a.recognizer,
		Limiters:    a.limiters,
		PoolSize:    cfg.PoolSize,
		ServiceName: cfg.OTelServiceName,
	}
}

func (a *app) shell(tp *parking.TelemetryProvider) *parking.Shell {
	return parking.NewShell(a.slots, a.autoPark, a.employees, os.Stdin, os.Stdout,
		parking.WithShellTracer(tp.Tracer()))
}

func runCLI(ctx context.Context, cancel context.CancelFunc, a *app, tp *parking.TelemetryProvider, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		logging.Info(ctx, "shutting down")
		cancel()
	}()

	a.shell(tp).Run(ctx)

	shutdownTelemetry(tp)
}

func runServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, a *app, tp *parking.TelemetryProvider, sigChan chan os.Signal) {
	srv := server.NewServer(cfg.Port, a.deps(cfg))

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error(ctx, "server shutdown error", "error", err)
		}

		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error(ctx, "server error", "error", err)
	}

	shutdownTelemetry(tp)
}

func runBoth(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, a *app, tp *parking.TelemetryProvider, sigChan chan os.Signal) {
	srv := server.NewServer(cfg.Port, a.deps(cfg))

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan struct{})
	go func() {
		a.shell(tp).Run(ctx)
		close(cliDone)
	}()

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		cancel()
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx, "server error", "error", err)
		}
	case <-cliDone:
		logging.Info(ctx, "CLI exited")
	case <-ctx.Done():
		logging.Info(ctx, "context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "server shutdown error", "error", err)
	}

	shutdownTelemetry(tp)
}

func shutdownTelemetry(tp *parking.TelemetryProvider) {
	log.Println("Shutting down telemetry...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down telemetry: %v", err)
	}
}
