package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"assogest/internal/config"
	"assogest/internal/handlers"
	"assogest/internal/middleware"
	"assogest/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	// Initialize Database
	db, err := services.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis cache (optional)
	var cache *services.Cache
	if cfg.RedisURL != "" {
		cache, err = services.NewCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, continuing without cache: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// Wire services
	refs := services.NewReferenceGenerator(db, nil)
	ledger := services.NewDuesLedger(db, refs, nil)
	validator := services.NewReminderValidator(cfg)
	matrix := services.NewTemplateMatrix(db, validator, cfg)
	directory := services.NewGormMemberDirectory(db)
	gateway := services.NewChannelRouter(cfg)
	reminders := services.NewReminderService(db, matrix, validator, directory, gateway, cfg, nil)
	rateCards := services.NewRateCardService(db, ledger, nil)

	// Wire handlers
	duesHandler := handlers.NewDuesHandler(ledger, cache)
	txnHandler := handlers.NewTransactionHandler(ledger)
	reminderHandler := handlers.NewReminderHandler(reminders, matrix)
	rateCardHandler := handlers.NewRateCardHandler(rateCards)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.HTTPErrorHandler = middleware.CustomErrorHandler

	api := e.Group("/api")

	// Dues records
	api.POST("/dues", duesHandler.StoreDues)
	api.GET("/dues/overdue", duesHandler.ListOverdue)
	api.GET("/dues/due-soon", duesHandler.ListDueSoon)
	api.GET("/dues/:reference", duesHandler.ShowDues)
	api.GET("/dues/:reference/history", duesHandler.ShowHistory)
	api.POST("/dues/:reference/recompute", duesHandler.RecomputeDues)

	// Ledger entries
	api.POST("/dues/:reference/transactions", txnHandler.StoreTransaction)
	api.GET("/dues/:reference/transactions", txnHandler.ListTransactions)
	api.DELETE("/transactions/:id", txnHandler.RemoveTransaction)

	// Reminders and templates
	api.POST("/reminders", reminderHandler.StoreReminder)
	api.GET("/reminders", reminderHandler.ListReminders)
	api.POST("/reminders/:public_id/read", reminderHandler.MarkReminderRead)
	api.GET("/templates", reminderHandler.ListTemplates)
	api.PUT("/templates", reminderHandler.SaveTemplate)

	// Rate cards
	api.POST("/rate-cards", rateCardHandler.StoreRateCard)
	api.GET("/rate-cards", rateCardHandler.ListRateCards)
	api.POST("/rate-cards/:id/issue", rateCardHandler.IssueDues)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
