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

	"github.com/fast-pay/fastpay/internal/account"
	"github.com/fast-pay/fastpay/internal/audit"
	"github.com/fast-pay/fastpay/internal/auth"
	"github.com/fast-pay/fastpay/internal/config"
	"github.com/fast-pay/fastpay/internal/identity"
	"github.com/fast-pay/fastpay/internal/ledger"
	"github.com/fast-pay/fastpay/internal/middleware"
	"github.com/fast-pay/fastpay/internal/transfer"
	"github.com/fast-pay/fastpay/internal/twofactor"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg        config.Config
	DB         *pgxpool.Pool
	Cache      *redis.Client
	Logger     *slog.Logger
	Dispatcher transfer.Dispatcher
}

// Runtime exposes the components the server keeps running in the background.
type Runtime struct {
	Auditor *audit.Auditor
}

// Setup configures middlewares and all application routes. Without a database or Redis it
// falls back to in-memory stores, which is only allowed in development.
func Setup(app *fiber.App, d Deps) (Runtime, error) {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return Runtime{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return Runtime{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var (
		accountRepo  account.Repository
		identityRepo identity.Repository
		ledgerStore  ledger.Ledger
	)
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		ledgerStore = ledger.NewPostgresLedger(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
		identityRepo = identity.NewMemoryRepository()
		ledgerStore = ledger.NewInMemory()
	}

	accounts := account.NewStore(accountRepo, account.NewIdentifierGenerator(d.Cfg.AccountDomain), d.Cfg.IdentifierAttempts)
	gate := twofactor.NewTOTPGate(identityRepo)
	identitySvc := identity.NewService(identityRepo, accounts, gate, twofactor.NewEnroller(d.Cfg.TwoFactorIssuer), d.Cfg.SignupBalance())
	tokens := auth.NewService(d.Cfg, accounts)
	engine := transfer.NewEngine(accounts, ledgerStore, gate, d.Dispatcher, d.Logger, d.Cfg.TransferAttempts)
	auditor := audit.NewAuditor(accounts, engine, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDKey).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterSignupRoute(api, identity.NewHandler(identitySvc))
	RegisterAuthRoutes(api, auth.NewHandler(identitySvc, tokens), middleware.LoginRateLimit(d.Cache, d.Cfg.LoginAttemptsPerMinute, d.Logger))

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(tokens))
	RegisterAccountRoutes(protected, account.NewHandler(accounts), identity.NewHandler(identitySvc))
	var transferGuards []fiber.Handler
	if d.Cache != nil {
		transferGuards = append(transferGuards, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterTransferRoutes(protected, transfer.NewHandler(engine), transferGuards...)
	RegisterAuditRoutes(protected, audit.NewHandler(auditor), middleware.RequireOperator(d.Cfg.Operators()))

	return Runtime{Auditor: auditor}, nil
}
