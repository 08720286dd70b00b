package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/retail-pos/internal/adapter/event"
	"github.com/rl1809/retail-pos/internal/adapter/handler"
	"github.com/rl1809/retail-pos/internal/adapter/storage"
	"github.com/rl1809/retail-pos/internal/config"
	"github.com/rl1809/retail-pos/internal/core/service"
	"github.com/rl1809/retail-pos/internal/port"
	"github.com/rl1809/retail-pos/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		catalog port.Catalog
		ledger  port.InventoryLedger
		sales   port.SaleRepository
	)

	switch cfg.LedgerBackend {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal("failed to open mysql", zap.Error(err))
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping mysql", zap.Error(err))
		}
		defer db.Close()
		log.Info("connected to mysql")

		adapter := storage.NewMySQLAdapter(db)
		catalog, ledger, sales = adapter, adapter, adapter

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pool.Close()
		log.Info("connected to postgres")

		// Postgres serves the ledger only; catalog and sales stay on the
		// in-memory store in this configuration.
		mem := storage.NewMemoryStore()
		catalog, sales = mem, mem
		ledger = storage.NewPostgresLedger(pool)

	case "memory":
		mem := storage.NewMemoryStore()
		catalog, ledger, sales = mem, mem, mem
		log.Info("using in-memory store")

	default:
		log.Fatal("unknown ledger backend", zap.String("backend", cfg.LedgerBackend))
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		log.Info("connected to redis, stock cache enabled")

		ledger = storage.NewCachedLedger(storage.NewRedisStockCache(rdb), ledger, log)
	}

	var events port.EventPublisher = event.NewNopPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicSales, cfg.KafkaClientID, log)
		if err != nil {
			log.Fatal("failed to create kafka publisher", zap.Error(err))
		}
		events = publisher
		log.Info("kafka sale events enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}
	defer events.Close()

	saleService := service.NewSaleService(catalog, ledger, sales,
		service.NewUUIDReceiptGenerator(), events, log)
	inventoryService := service.NewInventoryService(ledger, log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))
	handler.NewHTTPHandler(saleService, inventoryService, log).Register(router)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info("HTTP server stopped")
}
