package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/bot"
	"github.com/mrlokans/librarian/internal/circulation"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/covers"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/admins"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/extraction"
	http_controllers "github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/metadata"
	"github.com/mrlokans/librarian/internal/scheduler"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop the bot and scheduler)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Librarian v%s", version)

	if cfg.Auth.JWTSecret == "" {
		log.Fatalf("AUTH_JWT_SECRET is not set. Refusing to start without a token signing secret.")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	booksRepo := books.NewRepository(db.DB)
	usersRepo := users.NewRepository(db.DB)
	adminsRepo := admins.NewRepository(db.DB, cfg.Auth.BcryptCost)
	engine := circulation.NewEngine(db.DB)

	// Initialize the cover extraction pipeline if a key is configured
	var extractor *extraction.Extractor
	extractor, err = extraction.New(extraction.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	})
	if err != nil {
		log.Printf("WARNING: cover extraction disabled: %v. Set 'GEMINI_API_KEY' to enable.", err)
		extractor = nil
	}

	// Cover images live next to the database file
	coversDir := filepath.Join(filepath.Dir(cfg.Database.Path), "covers")
	coverStore, err := covers.NewStore(coversDir)
	if err != nil {
		log.Printf("WARNING: cover storage disabled: %v", err)
		coverStore = nil
	}

	openLibrary := metadata.NewOpenLibraryClient()

	if count, err := adminsRepo.Count(); err == nil && count == 0 {
		log.Printf("No admins found. POST /api/auth/setup-admin to create the first account.")
	}

	// Start the Telegram bot if a token is configured
	botCtx, botCancel := context.WithCancel(context.Background())
	defer botCancel()

	var telegramBot *bot.Bot
	if cfg.Telegram.Token != "" {
		responder := bot.NewResponder(booksRepo, usersRepo, engine)
		telegramBot, err = bot.New(cfg.Telegram.Token, responder)
		if err != nil {
			log.Fatalf("Failed to initialize telegram bot: %v", err)
		}
		go telegramBot.Start(botCtx)
	} else {
		log.Printf("WARNING: Telegram bot token is not set. Bot and reminders will be disabled. Set 'TELEGRAM_BOT_TOKEN' to enable.")
	}

	// Reminders need the bot as delivery channel
	var reminders *scheduler.ReminderScheduler
	if cfg.Reminders.Enabled && telegramBot != nil {
		reminders = scheduler.NewReminderScheduler(engine, telegramBot, cfg.Reminders.Schedule)
		if err := reminders.Start(botCtx); err != nil {
			log.Fatalf("Failed to start reminder scheduler: %v", err)
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:    db,
		Books:       booksRepo,
		Users:       usersRepo,
		Admins:      adminsRepo,
		Engine:      engine,
		Extractor:   extractor,
		Metadata:    openLibrary,
		Covers:      coverStore,
		JWTSecret:   cfg.Auth.JWTSecret,
		TokenExpiry: cfg.Auth.TokenExpiry,
		Version:     version,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if reminders != nil {
			reminders.Stop()
		}
		botCancel()
	}

	Serve(router, cfg, onShutdown)
}
