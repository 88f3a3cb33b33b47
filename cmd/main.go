package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cafe-pos/internal/config"
	"cafe-pos/internal/database"
	"cafe-pos/internal/display"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/messaging"
	"cafe-pos/internal/services/console"
	"cafe-pos/internal/services/menu"
	"cafe-pos/internal/services/order"
	"cafe-pos/internal/services/receipt"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		mode       = flag.String("mode", "", "Service mode (pos-service, console, receipt-printer)")
		port       = flag.Int("port", 3000, "HTTP port")
		configPath = flag.String("config", "config.yaml", "Path to the YAML config file")
		prefetch   = flag.Int("prefetch", 1, "RabbitMQ prefetch count")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The console owns stdout
	log := logger.New(*mode)
	if *mode == "console" {
		log = logger.NewWithWriter(*mode, os.Stderr, slog.LevelInfo)
	}
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode":     *mode,
		"terminal": cfg.App.Terminal,
		"ledger":   cfg.Database.Enabled,
		"bill_bus": cfg.RabbitMQ.Enabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "pos-service":
		err = runPOSService(ctx, cfg, log, *port)
	case "console":
		err = runConsole(ctx, cfg, log)
	case "receipt-printer":
		err = runReceiptPrinter(ctx, cfg, log, *prefetch)
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

const recorderQueueSize = 256

// newOrderService builds the catalog from config and puts the enabled bill
// recorders behind a RecorderQueue. The caller runs the queue; cleanup
// closes the recorder connections once the queue has drained.
func newOrderService(ctx context.Context, cfg *config.Config, log *logger.Logger) (*order.Service, *order.RecorderQueue, func(), error) {
	requestID := logger.GenerateRequestID()

	catalog, err := menu.New(cfg.MenuItems())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build menu: %w", err)
	}

	var (
		recorders []order.BillRecorder
		closers   []func()
		ledger    *database.Ledger
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg, log)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		closers = append(closers, db.Close)
		log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

		if err := db.RunMigrations(ctx, database.Migrations()); err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		ledger = database.NewLedger(db, cfg.App.Terminal)
		recorders = append(recorders, ledger)
	}

	if cfg.RabbitMQ.Enabled {
		conn, err := messaging.New(ctx, cfg, log)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("failed to initialize messaging: %w", err)
		}
		publisher := messaging.NewPublisher(conn, log, cfg.App.Terminal, cfg.App.CurrencySymbol)
		closers = append(closers, func() { publisher.Close() })
		log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

		recorders = append(recorders, publisher)
	}

	queue := order.NewRecorderQueue(log, recorderQueueSize, recorders...)
	service := order.NewService(catalog, log, queue)

	if ledger != nil {
		if err := service.ResumeNumbering(logger.WithRequestID(ctx, requestID), ledger); err != nil {
			cleanup()
			return nil, nil, nil, err
		}
	}

	return service, queue, cleanup, nil
}

// runPOSService serves the ordering API until ctx is cancelled
func runPOSService(ctx context.Context, cfg *config.Config, log *logger.Logger, port int) error {
	requestID := logger.GenerateRequestID()

	service, queue, cleanup, err := newOrderService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	handler := order.NewHandler(service, display.NewFormatter(cfg.App.CurrencySymbol), log, cfg.App.Name)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler.SetupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return queue.Run(gctx)
	})

	g.Go(func() error {
		log.Info("service_started", fmt.Sprintf("POS service started on port %d", port), requestID, map[string]interface{}{
			"port": port,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("graceful_shutdown", "Shutting down HTTP server", requestID, nil)

		// No bill can be finalized once the server has stopped
		defer queue.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runConsole runs an interactive session on stdin/stdout
func runConsole(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	service, queue, cleanup, err := newOrderService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	// Unblock the pending read on shutdown
	go func() {
		<-ctx.Done()
		os.Stdin.Close()
	}()

	var g errgroup.Group
	g.Go(func() error {
		return queue.Run(ctx)
	})

	c := console.New(service, display.NewFormatter(cfg.App.CurrencySymbol), log, os.Stdin, os.Stdout)
	runErr := c.Run(ctx)

	queue.Close()
	if err := g.Wait(); err != nil {
		return err
	}
	return runErr
}

// runReceiptPrinter prints every bill published on the bill bus
func runReceiptPrinter(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	conn, err := messaging.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	consumer := messaging.NewConsumer(conn, log, messaging.ReceiptsQueue, "receipt-printer", prefetch)
	sub := receipt.NewSubscriber(consumer, log, os.Stdout, cfg.App.CurrencySymbol)
	return sub.Start(ctx)
}
