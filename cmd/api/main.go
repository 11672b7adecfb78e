package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/infrastructure/kafka"
	"github.com/jhoicas/vendhub-inventory/internal/infrastructure/memory"
	"github.com/jhoicas/vendhub-inventory/internal/infrastructure/metrics"
	"github.com/jhoicas/vendhub-inventory/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/vendhub-inventory/internal/interfaces/http"
	"github.com/jhoicas/vendhub-inventory/pkg/config"
	"github.com/jhoicas/vendhub-inventory/pkg/logger"
	"github.com/jhoicas/vendhub-inventory/pkg/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Inventory.StoreDriver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.App.Name, cfg.Telemetry)
	if err != nil {
		log.Error().Err(err).Msg("trazas deshabilitadas")
	}

	// Almacén: PostgreSQL en producción, memoria para demos y pruebas locales.
	var (
		tx    inventory.TxRunner
		repos inventory.Repositories
	)
	switch cfg.Inventory.StoreDriver {
	case "memory":
		store := memory.New()
		tx, repos = store, store.Repositories()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("migración del esquema")
			}
		}
		tx, repos = postgres.NewTxRunner(pool), postgres.NewRepositories(pool)
	}

	opts := inventory.Options{Logger: log.Component("inventory")}

	var inventoryMetrics *metrics.InventoryMetrics
	if cfg.Metrics.Enabled {
		inventoryMetrics = metrics.New("vendhub_inventory")
		opts.Metrics = inventoryMetrics
	}

	var publisher *kafka.MovementPublisher
	if cfg.Kafka.Enabled() {
		publisher = kafka.NewMovementPublisher(cfg.Kafka.Brokers, cfg.Kafka.MovementTopic)
		opts.Publisher = publisher
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.MovementTopic).Msg("publicación de movimientos activa")
	}

	stockUC := inventory.NewStockUseCase(tx, repos.Stock, opts)
	transferUC := inventory.NewTransferUseCase(tx, opts)
	movementUC := inventory.NewMovementUseCase(tx, repos.Movements, cfg.Inventory.MovementQueryLimit, opts)
	reservationUC := inventory.NewReservationUseCase(tx, repos.Reservations, inventory.ReservationSettings{
		DefaultTTL:  cfg.Inventory.ReservationTTL,
		ExpireBatch: cfg.Inventory.SweepBatchSize,
	}, opts)
	countUC := inventory.NewCountUseCase(tx, repos.Counts, repos.Thresholds, opts)
	replenishmentUC := inventory.NewReplenishmentUseCase(repos.Stock, repos.Movements, opts)

	sweeper := inventory.NewExpirySweeper(reservationUC, cfg.Inventory.SweepInterval, log)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx)
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.SwaggerFile,
			Path:     "docs",
			Title:    "VendHub Inventory API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Inventory.StoreDriver})
	})
	if inventoryMetrics != nil {
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(inventoryMetrics.Handler()))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Transfers:     transferUC,
		Stock:         stockUC,
		Movements:     movementUC,
		Reservations:  reservationUC,
		Counts:        countUC,
		Replenishment: replenishmentUC,
		JWTSecret:     cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	<-sweepDone
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("cierre del publicador kafka")
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cierre de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
