package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/internal/cache"
	"github.com/fjod/go_cart/internal/catalog"
	"github.com/fjod/go_cart/internal/config"
	"github.com/fjod/go_cart/internal/database"
	"github.com/fjod/go_cart/internal/domain"
	h "github.com/fjod/go_cart/internal/http"
	"github.com/fjod/go_cart/internal/inventory"
	"github.com/fjod/go_cart/internal/journal"
	"github.com/fjod/go_cart/internal/ledger"
	"github.com/fjod/go_cart/internal/metrics"
	"github.com/fjod/go_cart/internal/notify"
	"github.com/fjod/go_cart/internal/repository"
	"github.com/fjod/go_cart/internal/service"
	"github.com/fjod/go_cart/internal/store"
	"github.com/fjod/go_cart/pkg/circuitbreaker"
	"github.com/fjod/go_cart/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// catalogStore serves live product reads, stock decrements and seller edits.
type catalogStore interface {
	service.CatalogReader
	service.StockLedger
	h.Catalog
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("cart-service", logger.ParseLevel(cfg.LogLevel), os.Stdout)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("cart service stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	// Carts: MongoDB behind a Redis cache
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer mongoDB.Client().Disconnect(context.Background())

	repo := repository.NewMongoRepository(mongoDB)
	if err := repo.CreateIndexes(ctx); err != nil {
		return err
	}
	log.Info("connected to MongoDB", slog.String("database", cfg.MongoDatabase))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}
	log.Info("redis ping succeeded", slog.String("addr", cfg.RedisAddr))

	carts := store.NewCachedCartStore(repo, cache.NewRedisCache(redisClient, cfg.CartCacheTTL), log)

	products, closeCatalog, err := openCatalog(cfg, log)
	if err != nil {
		return err
	}
	defer closeCatalog()

	// Balances and the checkout journal share one PostgreSQL database
	db, err := database.OpenPostgres(&database.Credentials{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		DBName:   cfg.PostgresDB,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	balances, checkouts, err := openLedgers(db, cfg)
	if err != nil {
		return err
	}

	notifier, closeNotifier := openNotifier(cfg, log)
	defer closeNotifier()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cartService := service.NewCartService(products, carts, metrics.NewCart(reg), log)
	checkoutService := service.NewCheckoutService(cartService, carts, balances, products, notifier, checkouts,
		metrics.NewCheckout(reg), log, cfg.CheckoutStepTimeout)

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go journal.NewMonitor(checkouts, cfg.IncidentPollInterval, reg, log).Run(monitorCtx)

	router := h.NewRouter(h.RouterConfig{
		Carts:              h.NewCartHandler(cartService, cfg.RequestTimeout, log),
		Checkout:           h.NewCheckoutHandler(checkoutService, cfg.RequestTimeout, log),
		Catalog:            h.NewCatalogHandler(products, cfg.RequestTimeout, log),
		Customers:          h.NewCustomerHandler(balances, cfg.RequestTimeout, log),
		Metrics:            metrics.NewServer(reg),
		Gatherer:           reg,
		Log:                log,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("cart service starting", slog.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("server exited")
	return nil
}

func openCatalog(cfg *config.Config, log *slog.Logger) (catalogStore, func(), error) {
	if cfg.CatalogBackend == config.CatalogMemory {
		log.Warn("using in-memory catalog, stock is lost on restart")
		return inventory.NewMemoryStore(demoProducts()...), func() {}, nil
	}

	repo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	log.Info("catalog ready", slog.String("path", cfg.CatalogDBPath))
	return repo, func() { _ = repo.Close() }, nil
}

func openLedgers(db *sql.DB, cfg *config.Config) (*ledger.Repository, *journal.Repository, error) {
	balances := ledger.NewRepository(db)
	if err := balances.RunMigrations(cfg.LedgerMigrationsPath); err != nil {
		return nil, nil, err
	}
	checkouts := journal.NewRepository(db)
	if err := checkouts.RunMigrations(cfg.JournalMigrationsPath); err != nil {
		return nil, nil, err
	}
	return balances, checkouts, nil
}

func openNotifier(cfg *config.Config, log *slog.Logger) (service.Notifier, func()) {
	breaker := circuitbreaker.Config{
		Name:             "notifier",
		FailureThreshold: cfg.BreakerFailureThreshold,
		Timeout:          cfg.BreakerOpenTimeout,
	}

	if len(cfg.KafkaBrokers) == 0 {
		log.Warn("no kafka brokers configured, order confirmations go to the log")
		return notify.NewBreakerNotifier(notify.NewLogNotifier(log), breaker, log), func() {}
	}

	kafka := notify.NewKafkaNotifier(cfg.NotifyTopic, cfg.KafkaBrokers...)
	log.Info("publishing order confirmations",
		slog.String("topic", cfg.NotifyTopic), slog.Any("brokers", cfg.KafkaBrokers))
	return notify.NewBreakerNotifier(kafka, breaker, log), func() {
		if err := kafka.Close(); err != nil {
			log.Error("failed to close kafka writer", slog.String("error", err.Error()))
		}
	}
}

// demoProducts mirrors the seeded SQLite catalog so both backends serve the
// same products.
func demoProducts() []domain.CatalogProduct {
	item := func(id, productID int64, name string, price int64, count int) domain.CatalogItem {
		return domain.CatalogItem{ID: id, ProductID: productID, Name: name, Price: price, Count: count}
	}
	return []domain.CatalogProduct{
		{ID: 1, Name: "Classic T-Shirt", Items: []domain.CatalogItem{
			item(101, 1, "Small", 1999, 50), item(102, 1, "Medium", 1999, 80), item(103, 1, "Large", 2199, 40),
		}},
		{ID: 2, Name: "Denim Jacket", Items: []domain.CatalogItem{
			item(201, 2, "Blue", 8999, 15), item(202, 2, "Black", 9499, 10),
		}},
		{ID: 3, Name: "Running Shoes", Items: []domain.CatalogItem{
			item(301, 3, "EU 42", 12999, 12), item(302, 3, "EU 44", 12999, 8),
		}},
		{ID: 4, Name: "Leather Wallet", Items: []domain.CatalogItem{
			item(401, 4, "Brown", 4599, 25),
		}},
		{ID: 5, Name: "Wool Beanie", Items: []domain.CatalogItem{
			item(501, 5, "Grey", 2499, 30), item(502, 5, "Navy", 2499, 30),
		}},
	}
}
