package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/boostgram/boostgram/internal/catalog"
	"github.com/boostgram/boostgram/internal/config"
	"github.com/boostgram/boostgram/internal/gateway"
	"github.com/boostgram/boostgram/internal/identity"
	"github.com/boostgram/boostgram/internal/ledger"
	"github.com/boostgram/boostgram/internal/middleware"
	"github.com/boostgram/boostgram/internal/notification"
	"github.com/boostgram/boostgram/internal/orders"
	"github.com/boostgram/boostgram/internal/settlement"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a database
// or Redis the in-memory fallbacks apply, which is only permitted in dev.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	// Stores and repositories
	var (
		store        ledger.Store
		ordersRepo   orders.Repository
		catalogRepo  catalog.Repository
		identityRepo identity.Repository
	)
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
		ordersRepo = orders.NewPostgresRepository(d.DB)
		catalogRepo = catalog.NewPostgresRepository(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		ordersMem := orders.NewMemoryRepository()
		store = ledger.NewInMemory(ordersMem)
		ordersRepo = ordersMem
		catalogRepo = catalog.NewMemoryRepository()
		identityRepo = identity.NewMemoryRepository()
	}

	var index settlement.Index = settlement.NoopIndex{}
	if d.Cache != nil {
		index = settlement.NewRedisIndex(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	engine := settlement.NewEngine(store, index, notifier, d.Logger)
	identitySvc := identity.NewService(identityRepo, store)

	settlementHandler := settlement.NewHandler(engine, gateway.StaticGateway{}, catalogRepo, d.Cfg.MinTopUp, d.Logger)
	identityHandler := identity.NewHandler(identitySvc)
	catalogHandler := catalog.NewHandler(catalogRepo)
	ordersHandler := orders.NewHandler(ordersRepo)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterIdentityRoutes(api, identityHandler, middleware.RateLimit(d.Cache, "login", 5))
	RegisterCatalogRoutes(api, catalogHandler)
	RegisterWalletRoutes(api, settlementHandler, middleware.RateLimit(d.Cache, "topup", 10))
	RegisterOrderRoutes(api, settlementHandler, ordersHandler)

	return nil
}
