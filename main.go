package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mythmanga/internal/cache"
	"mythmanga/internal/config"
	"mythmanga/internal/gateway"
	"mythmanga/internal/handlers"
	"mythmanga/internal/httpclient"
	"mythmanga/internal/logger"
	"mythmanga/internal/middleware"
	"mythmanga/internal/models"
	"mythmanga/internal/notifications"
	"mythmanga/internal/repositories"
	"mythmanga/internal/server"
	"mythmanga/internal/services"
	"mythmanga/internal/telemetry"
	"mythmanga/pkg/rabbitmq"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	serviceName    = "mythmanga"
	serviceVersion = "0.1.0"
	// checkoutBasePath is where CheckoutHandler is mounted; dialog callbacks point under it.
	checkoutBasePath = "/api/v1/checkout"
)

// infrastructure holds the connections buildApp wires services onto.
type infrastructure struct {
	DB    *gorm.DB
	Cache cache.Cache
	// Broker is nil when RABBITMQ_URL is empty.
	Broker *rabbitmq.Client
	// Server carries the optional /metrics handler.
	Server server.Options
}

type application struct {
	server   *server.Server
	consumer *notifications.OrderEventHandler
	broker   *rabbitmq.Client
}

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Get().Fatal("Service stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	defer shutdownTracer(context.Background())

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		return fmt.Errorf("failed to initialise metrics: %w", err)
	}
	defer shutdownMeter(context.Background())

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}

	redisCache, err := cache.NewRedisAdapter(cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer redisCache.Close()

	var broker *rabbitmq.Client
	if cfg.RabbitMQ.URL != "" {
		broker, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL})
		if err != nil {
			return fmt.Errorf("failed to initialise RabbitMQ client: %w", err)
		}
		defer broker.Close()
	} else {
		logger.Get().Warn("RABBITMQ_URL not set, order events are disabled")
	}

	app, err := buildApp(ctx, cfg, infrastructure{
		DB:     db,
		Cache:  redisCache,
		Broker: broker,
		Server: server.Options{Metrics: metricsHandler},
	})
	if err != nil {
		return err
	}

	if app.broker != nil {
		go func() {
			if err := app.broker.Consume(ctx, app.consumer.Handle); err != nil && !errors.Is(err, context.Canceled) {
				logger.Get().Error("Order event consumer stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Get().Info("Shutting down server")
	if err := app.server.App.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Get().Error("Error during Fiber shutdown", zap.Error(err))
	}
	logger.Get().Info("Server gracefully stopped")
	return nil
}

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}
	return db, nil
}

// buildApp migrates the schema, seeds the catalog and wires every service and
// route onto a new server.
func buildApp(ctx context.Context, cfg *config.AppConfig, infra infrastructure) (*application, error) {
	if err := infra.DB.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.Coupon{},
		&models.SiteSettings{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	validate := validator.New()

	// Repositories
	userRepo := repositories.NewGORMUserRepository(infra.DB)
	productRepo := repositories.NewGORMProductRepository(infra.DB)
	orderRepo := repositories.NewGORMOrderRepository(infra.DB)
	couponRepo := repositories.NewGORMCouponRepository(infra.DB)
	settingsRepo := repositories.NewGORMSettingsRepository(infra.DB)
	cartStore := repositories.NewRedisCartStore(infra.Cache)
	attemptStore := repositories.NewRedisAttemptStore(infra.Cache)
	localOrders := repositories.NewRedisLocalOrderStore(infra.Cache, cfg.Checkout.LocalOrderTTL())

	if err := seedCatalog(ctx, productRepo, couponRepo); err != nil {
		return nil, err
	}

	// Outbound HTTP
	gatewayHTTP := httpclient.NewClient(httpclient.UpstreamPaymentGateway, cfg.Gateway.Timeout())
	gatewayClient := gateway.NewClient(cfg.Gateway, gatewayHTTP)
	upstream := gateway.NewUpstream(cfg.Gateway, gatewayHTTP)
	emailClient := notifications.NewEmailClient(cfg.Email, httpclient.NewClient(httpclient.UpstreamMail, cfg.Gateway.Timeout()))

	var publisher notifications.Publisher
	if infra.Broker != nil {
		publisher = infra.Broker
	}

	// Services
	authService := services.NewAuthService(userRepo, cfg.JWTSecret)
	productService := services.NewProductService(productRepo)
	cartService := services.NewCartService(cartStore, productRepo)
	couponService := services.NewCouponService(couponRepo)
	settingsService := services.NewSettingsService(settingsRepo)
	orderService := services.NewOrderService(orderRepo, localOrders)
	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:            cartStore,
		Attempts:         attemptStore,
		Orders:           orderService,
		Coupons:          couponService,
		Gateway:          gatewayClient,
		Notifier:         notifications.NewNotifier(publisher),
		GatewayConfig:    cfg.Gateway,
		AttemptTTL:       cfg.Checkout.AttemptTTL(),
		CallbackBasePath: checkoutBasePath,
		Validate:         validate,
	})
	if err != nil {
		return nil, err
	}

	opts := infra.Server
	opts.Checks = map[string]server.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := infra.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": infra.Cache.Ping,
	}
	srv := server.New(cfg, opts)

	// --- API Routes ---
	apiV1 := srv.App.Group("/api/v1")
	authHandler := handlers.NewAuthHandler(authService, validate)
	authHandler.RegisterRoutes(apiV1)
	authHandler.RegisterAccountRoutes(apiV1.Group("/account", middleware.AuthRequired(authService)))
	handlers.NewProductHandler(productService).RegisterRoutes(apiV1)

	// Everything below is scoped to a browser and optionally to a user.
	shop := apiV1.Group("", middleware.ClientIdentity(), middleware.AuthOptional(authService))
	handlers.NewCartHandler(cartService, validate).RegisterRoutes(shop)
	handlers.NewCouponHandler(couponService, cartService, settingsService).RegisterRoutes(shop)
	handlers.NewCheckoutHandler(checkoutService, settingsService).RegisterRoutes(shop)
	handlers.NewOrderHandler(orderService).RegisterRoutes(shop)

	handlers.NewFunctionsHandler(upstream, cfg.Gateway.FunctionsKey, validate).
		RegisterRoutes(srv.App.Group("/functions/v1"))

	return &application{
		server:   srv,
		consumer: notifications.NewOrderEventHandler(emailClient),
		broker:   infra.Broker,
	}, nil
}

// seedCatalog upserts the starter catalog and the welcome coupon.
func seedCatalog(ctx context.Context, products repositories.ProductRepository, coupons repositories.CouponRepository) error {
	catalog := []models.Product{
		{ID: "3b7c6f0e-8f0a-4d59-9f2e-1a6c2b9d4e01", Name: "Monkey D. Luffy Figure", Category: "figures", Description: "Gear 5 PVC figure, 18cm", Price: decimal.RequireFromString("2499.00"), Stock: 25},
		{ID: "3b7c6f0e-8f0a-4d59-9f2e-1a6c2b9d4e02", Name: "Attack on Titan Hoodie", Category: "apparel", Description: "Survey Corps emblem, unisex fit", Price: decimal.RequireFromString("1499.00"), Stock: 40},
		{ID: "3b7c6f0e-8f0a-4d59-9f2e-1a6c2b9d4e03", Name: "Demon Slayer Manga Vol. 1", Category: "manga", Description: "English edition paperback", Price: decimal.RequireFromString("399.00"), Stock: 120},
		{ID: "3b7c6f0e-8f0a-4d59-9f2e-1a6c2b9d4e04", Name: "Totoro Plush", Category: "plush", Description: "Soft plush, 30cm", Price: decimal.RequireFromString("899.00"), Stock: 60},
		{ID: "3b7c6f0e-8f0a-4d59-9f2e-1a6c2b9d4e05", Name: "Naruto Headband", Category: "accessories", Description: "Hidden Leaf metal plate", Price: decimal.RequireFromString("349.00"), Stock: 200},
	}
	if err := services.NewProductService(products).Seed(ctx, catalog); err != nil {
		return err
	}

	if err := coupons.Upsert(ctx, &models.Coupon{
		Code:        "ANIME10",
		Kind:        models.CouponKindPercent,
		Value:       decimal.NewFromInt(10),
		MinSubtotal: decimal.NewFromInt(500),
		MaxDiscount: decimal.NewFromInt(500),
		Active:      true,
	}); err != nil {
		return fmt.Errorf("failed to seed coupon: %w", err)
	}

	logger.Get().Info("Catalog seeded", zap.Int("products", len(catalog)))
	return nil
}
