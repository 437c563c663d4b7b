package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"libris-backend/internal/config"
	"libris-backend/internal/database"
	"libris-backend/internal/handlers"
	"libris-backend/internal/middleware"
	"libris-backend/internal/repository"
	"libris-backend/internal/services"
)

func main() {
	// Load .env file if it exists (must happen before reading GIN_MODE)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading: %v", err)
	} else {
		log.Println("Loaded .env file")
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if !cfg.DatabaseExists() {
		log.Println("New database detected")
	}

	// Migrations run to completion before the server takes traffic; a failed
	// script aborts startup.
	db, err := database.Initialize(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	bookRepo := repository.NewBookRepository(db)
	historyRepo := repository.NewCheckoutHistoryRepository(db)
	checkoutService := services.NewCheckoutService(db, bookRepo, historyRepo)

	handler := handlers.NewHandler(bookRepo, checkoutService)

	r := gin.Default()

	r.Use(middleware.RecoveryMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	r.Use(cors.New(corsConfig))

	r.Use(middleware.APIRateLimit(cfg.RateLimit, cfg.RateWindow))

	r.GET("/health", handler.HealthCheck)

	api := r.Group("/api")
	{
		api.POST("/books", handler.CreateBook)
		api.GET("/books", handler.GetBooks)
		api.GET("/books/:id", handler.GetBook)
		api.PUT("/books/:id", handler.UpdateBook)
		api.POST("/books/:id/checkout", handler.CheckoutBook)
		api.POST("/books/:id/return", handler.ReturnBook)
		api.GET("/books/:id/history", handler.GetBookHistory)
	}

	log.Printf("Server starting on :%s", cfg.ServerPort)
	log.Printf("Database path: %s", cfg.DatabasePath)
	log.Printf("Allowed origin: %s", cfg.FrontendURL)

	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
