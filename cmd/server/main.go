package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/ashwinm7/postdeck/configs"
	"github.com/ashwinm7/postdeck/internal/api/handlers"
	"github.com/ashwinm7/postdeck/internal/api/middleware"
	job "github.com/ashwinm7/postdeck/internal/jobs"
	"github.com/ashwinm7/postdeck/internal/publish"
	"github.com/ashwinm7/postdeck/internal/queue"
	"github.com/ashwinm7/postdeck/internal/repository"
	"github.com/ashwinm7/postdeck/internal/service"
	"github.com/ashwinm7/postdeck/pkg/crypto"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	socialAccountPageRepo := repository.NewSocialAccountPageRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	brandRepo := repository.NewBrandRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)

	cryptor := crypto.NewAESCryptor([]byte(cfg.SecretKey))

	linkedinService := service.NewLinkedinService(*cfg, socialAccountRepo, socialAccountPageRepo, cryptor)
	redditService := service.NewRedditService(*cfg, socialAccountRepo, socialAccountPageRepo, cryptor)
	registry := publish.NewRegistry(linkedinService, redditService)

	recorder := publish.NewRecorder(db, postRepo, notificationRepo)
	resolver := publish.NewResolver(socialAccountRepo, socialAccountPageRepo, recorder)
	tokenStore := publish.NewTokenStore(socialAccountRepo, socialAccountPageRepo, cryptor)
	pipeline := publish.NewPipeline(registry, resolver, tokenStore, recorder, postRepo, postMediaRepo, mediaAssetRepo)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	r2Service := service.NewR2Service(*cfg)
	postService := service.NewPostService(db, postRepo, brandRepo, mediaAssetRepo, postMediaRepo, r2Service, registry)
	platformService := service.NewPlatformService(*cfg, socialAccountRepo, socialAccountPageRepo, cryptor, redditService)
	brandService := service.NewBrandService(db, brandRepo)
	notificationService := service.NewNotificationService(notificationRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	connectors := map[string]handlers.Connector{
		linkedinService.Platform(): {AuthURL: linkedinService.AuthURL, Callback: linkedinService.LinkedinCallback},
		redditService.Platform():   {AuthURL: redditService.AuthURL, Callback: redditService.RedditCallback},
	}

	platform := handlers.NewPlatformHandler(platformService, connectors, *cfg)
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/auth/:platform", platform.AddSocialAccount)

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Post("/user/remove", user.RemoveUser)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)

	brand := handlers.NewBrandHandler(brandService)
	api.Post("/brands/create", brand.CreateBrand)
	api.Get("/brands", brand.ListBrands)
	api.Post("/brands/members/add", brand.AddMember)

	notification := handlers.NewNotificationHandler(notificationService)
	api.Get("/notifications", notification.ListNotifications)
	api.Get("/notifications/unread", notification.CountUnread)
	api.Post("/notifications/read", notification.MarkRead)

	// social accounts api routes
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Get("/accounts/pages", platform.ListAccountPages)
	api.Post("/accounts/remove", platform.DeleteSocialAccount)

	//queue
	queueW := queue.NewQueue(postRepo, pipeline)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, socialAccountPageRepo, tokenStore, registry)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 00h05m00s", func() {
		if err := queueW.PublishDue(); err != nil {
			log.Printf("Error publishing due posts: %v", err)
		}
	})
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
