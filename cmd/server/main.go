package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"kobapay/internal/authz"
	"kobapay/internal/config"
	"kobapay/internal/crypto"
	"kobapay/internal/handlers"
	"kobapay/internal/middleware"
	"kobapay/internal/models"
	"kobapay/internal/notification"
	"kobapay/internal/pipeline"
	"kobapay/internal/providers/paystack"
	"kobapay/internal/providers/prembly"
	"kobapay/internal/queue"
	"kobapay/internal/repositories"
	"kobapay/internal/routes"
	"kobapay/internal/services/auth"
	"kobapay/internal/services/kyc"
	"kobapay/internal/services/location"
	"kobapay/internal/services/media"
	"kobapay/internal/services/payment"
	"kobapay/internal/services/role"
	"kobapay/internal/services/user"
)

const workerCount = 4

func main() {
	config.LoadEnv()
	cfg := config.Load()

	db, err := repositories.Connect(cfg)
	if err != nil {
		logrus.Fatalf("database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cache := repositories.NewCache(repositories.NewRedisStore(redisClient), cfg.RedisPrefix, cfg.DefaultCacheTTL)

	registry := queue.NewRegistry()
	jobs := queue.NewRedisQueue(redisClient, registry, cfg.RedisPrefix)

	var cipher *crypto.AESCipher
	if cfg.EncryptionEnabled {
		cipher, err = crypto.NewAESCipher(cfg.EncryptionKey, cfg.EncryptionVector)
		if err != nil {
			logrus.Fatalf("cipher: %v", err)
		}
	}

	users := repositories.NewUserRepository(db)
	rolesRepo := repositories.NewRoleRepository(db)
	txns := repositories.NewTransactionRepository(db)
	locations := repositories.NewLocationRepository(db)
	mediaRepo := repositories.NewMediaRepository(db)
	audits := repositories.NewAuditRepository(db)

	engine := authz.NewEngine(rolesRepo, users)
	gateway := paystack.New(cfg.PaystackSecretKey)
	kycProviders := map[string]kyc.Verifier{
		models.ProviderPrembly: prembly.New(cfg.PremblyAPIKey, cfg.PremblyAppID),
	}

	authService := auth.NewService(cfg, users, rolesRepo, engine, cache, jobs)
	kycService := kyc.NewService(users, jobs, kycProviders)
	paymentService := payment.NewService(cfg, db, txns, users, cache, jobs, gateway)
	userService := user.NewService(cfg, users, rolesRepo, engine, cache, jobs)
	roleService := role.NewService(cfg, rolesRepo, cache, jobs)
	locationService := location.NewService(cfg, locations, cache)
	mediaService := media.NewService(mediaRepo, &media.LocalStorage{Root: "uploads", BaseURL: "/uploads"})

	pipeline.RegisterAuditHandlers(registry, audits)
	notification.RegisterHandlers(registry, notification.NewSMTPSender(cfg))
	kycService.RegisterHandlers(registry)
	paymentService.RegisterHandlers(registry)
	jobs.StartWorkers(context.Background(), workerCount)

	pipe := pipeline.New(cfg, cipher, jobs)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(limiter.New(limiter.Config{Max: 120}))
	app.Use(middleware.Authenticate(authService, users))
	app.Static("/uploads", "uploads")

	routes.Setup(app, routes.Handlers{
		Auth:     handlers.NewAuthHandler(pipe, authService),
		Profile:  handlers.NewProfileHandler(pipe, userService, authService, kycService),
		Users:    handlers.NewUserHandler(cfg, pipe, userService),
		Roles:    handlers.NewRoleHandler(pipe, roleService),
		Payments: handlers.NewPaymentHandler(cfg, pipe, paymentService),
		Media:    handlers.NewMediaHandler(pipe, mediaService),
		Location: handlers.NewLocationHandler(pipe, locationService),
	})

	logrus.Infof("listening on :%s", cfg.Port)
	if err := app.Listen(fmt.Sprintf(":%s", cfg.Port)); err != nil {
		logrus.Fatalf("server: %v", err)
	}
}
