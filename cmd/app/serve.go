package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/freshcart/storefront/internal/address"
	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/backend"
	"github.com/freshcart/storefront/internal/cart"
	"github.com/freshcart/storefront/internal/category"
	"github.com/freshcart/storefront/internal/checkout"
	"github.com/freshcart/storefront/internal/httpx"
	"github.com/freshcart/storefront/internal/infrastructure/cache"
	"github.com/freshcart/storefront/internal/infrastructure/config"
	"github.com/freshcart/storefront/internal/infrastructure/database"
	"github.com/freshcart/storefront/internal/infrastructure/logger"
	"github.com/freshcart/storefront/internal/infrastructure/metrics"
	"github.com/freshcart/storefront/internal/mockdata"
	"github.com/freshcart/storefront/internal/order"
	"github.com/freshcart/storefront/internal/payment"
	"github.com/freshcart/storefront/internal/product"
	"github.com/freshcart/storefront/internal/user"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			return serve(cmd.Context(), cfg, log)
		},
	}
}

// fallbacks are the mock stores handed to services; all nil when mock mode is off.
type fallbacks struct {
	categories category.Repository
	products   product.Repository
	users      user.Repository
	orders     order.Repository
	addresses  address.Repository
	payments   *payment.MockGateway
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx = logger.WithContext(ctx, log)

	var db *sql.DB
	if cfg.Database.URL != "" {
		var err error
		if db, err = openDB(ctx, cfg); err != nil {
			return err
		}
		defer db.Close()

		m, err := database.NewMigrator(db, log)
		if err != nil {
			return err
		}
		if err := m.Up(); err != nil {
			return err
		}
	} else {
		log.Info("database.url not set, carts kept in memory")
	}

	var store cache.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rs, err := cache.NewRedisIdempotencyStore(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rs.Close()
		store = rs
	} else {
		ms := cache.NewInMemoryIdempotencyStore(time.Minute)
		defer ms.Close()
		store = ms
	}

	repos := mockdata.NewRepositories()
	var snapshots mockdata.Store = mockdata.NopStore{}
	if db != nil && cfg.Mock.Persist {
		snapshots = mockdata.NewPostgresStore(db, "")
	}
	mockOpts := mockdata.Options{Seed: cfg.Mock.Seed, Products: cfg.Mock.Products}

	var fb fallbacks
	if cfg.Mock.Enabled {
		d, err := mockdata.Load(ctx, snapshots, mockOpts, log)
		if err != nil {
			return err
		}
		repos.Install(d)
		fb = fallbacks{
			categories: repos.Categories,
			products:   repos.Products,
			users:      repos.Users,
			orders:     repos.Orders,
			addresses:  repos.Addresses,
			payments:   payment.NewMockGateway(),
		}
	}

	client, err := backend.New(backend.Config{
		BaseURL:    cfg.Backend.BaseURL,
		APIPrefix:  cfg.Backend.APIPrefix,
		Timeout:    cfg.Backend.Timeout,
		MaxRetries: cfg.Backend.MaxRetries,
		RetryDelay: cfg.Backend.RetryDelay,
		MaxDelay:   cfg.Backend.MaxDelay,
		RateLimit:  cfg.Backend.RateLimit,
		RateBurst:  cfg.Backend.RateBurst,
	}, log)
	if err != nil {
		return err
	}

	pricing, err := cart.ParsePricing(cfg.Checkout.ShippingFee, cfg.Checkout.FreeShippingThreshold,
		cfg.Checkout.TaxRate, cfg.Checkout.DiscountCodes)
	if err != nil {
		return err
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	userService := user.NewService(user.NewRemoteRepository(client), fb.users, issuer)
	categoryService := category.NewService(category.NewRemoteRepository(client), fb.categories)
	productService := product.NewService(product.NewRemoteRepository(client), fb.products)
	addressService := address.NewService(address.NewRemoteRepository(client), fb.addresses)
	orderService := order.NewService(order.NewRemoteRepository(client), fb.orders)

	var cartRepo cart.Repository = cart.NewInMemoryRepository()
	if db != nil {
		cartRepo = cart.NewPostgresRepository(db)
	}
	cartService := cart.NewService(cartRepo, productService, pricing)
	productService.OnRemove(cartService)

	checkoutService := checkout.NewService(cartService, addressService, orderService,
		newGateway(cfg, client, fb.payments), store, checkout.Config{
			Currency:       cfg.Stripe.Currency,
			StepAttempts:   cfg.Checkout.StepAttempts,
			StepRetryDelay: cfg.Checkout.StepRetryDelay,
			IdempotencyTTL: cfg.Checkout.IdempotencyTTL,
		})

	userHandler := user.NewHandler(userService)
	categoryHandler := category.NewHandler(categoryService)
	productHandler := product.NewHandler(productService)
	cartHandler := cart.NewHandler(cartService)
	addressHandler := address.NewHandler(addressService)
	orderHandler := order.NewHandler(orderService)
	checkoutHandler := checkout.NewHandler(checkoutService, checkout.ClientConfig{
		PublishableKey: cfg.Stripe.PublishableKey,
		Currency:       cfg.Stripe.Currency,
		Provider:       cfg.Payment.Provider,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httpx.ErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(logger.Middleware(log))
	setupCORS(app, cfg.App.CORSOrigins)

	if cfg.Metrics.Enabled {
		m := metrics.New()
		backend.ObserveFallbacks(m.FallbackUsed)
		checkoutService.OnOutcome(m.CheckoutFinished)
		app.Use(m.Middleware())
		app.Get(metrics.Path, m.Handler())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "mock": cfg.Mock.Enabled})
	})

	userHandler.RegisterPublicRoutes(app)
	categoryHandler.RegisterPublicRoutes(app)
	productHandler.RegisterPublicRoutes(app)
	checkoutHandler.RegisterPublicRoutes(app)
	mockdata.NewHandler(repos, snapshots, mockOpts, cfg.Mock.AllowReset && cfg.Mock.Enabled).RegisterDevRoutes(app)

	app.Use(auth.Middleware(cfg.Auth.JWTSecret))

	userHandler.RegisterProtectedRoutes(app)
	cartHandler.RegisterProtectedRoutes(app)
	addressHandler.RegisterProtectedRoutes(app)
	orderHandler.RegisterProtectedRoutes(app)
	checkoutHandler.RegisterProtectedRoutes(app)

	admin := app.Group("/api/v1/admin", auth.RequireAdmin())
	userHandler.RegisterAdminRoutes(admin)
	categoryHandler.RegisterAdminRoutes(admin)
	productHandler.RegisterAdminRoutes(admin)
	orderHandler.RegisterAdminRoutes(admin)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.App.Addr),
			zap.String("backend", cfg.Backend.BaseURL), zap.String("payment", cfg.Payment.Provider))
		errCh <- app.Listen(cfg.App.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down server")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}

	if cfg.Mock.Enabled {
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := snapshots.Save(saveCtx, repos.Snapshot()); err != nil {
			log.Warn("mock snapshot not saved", zap.Error(err))
		}
	}
	return nil
}

// newGateway picks the payment provider. The backend provider confirms through
// Stripe when a secret key is configured and through the mock gateway otherwise.
func newGateway(cfg *config.Config, client *backend.Client, mock *payment.MockGateway) payment.Gateway {
	switch cfg.Payment.Provider {
	case config.ProviderMock:
		return payment.NewMockGateway()
	case config.ProviderStripe:
		return payment.NewStripeGateway(cfg.Stripe.SecretKey, nil)
	}
	var confirmer payment.Gateway
	if cfg.Stripe.SecretKey != "" {
		confirmer = payment.NewStripeGateway(cfg.Stripe.SecretKey, nil)
	}
	return payment.NewBackendGateway(client, confirmer, mock)
}

func setupCORS(app *fiber.App, origins string) {
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + checkout.IdempotencyHeader + ", " + logger.RequestIDHeader,
		ExposeHeaders: checkout.IdempotencyHeader + ", " + logger.RequestIDHeader,
	}))
}
