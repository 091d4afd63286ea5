package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/krungthon/corebank/docs"
	"github.com/krungthon/corebank/internal/audit"
	"github.com/krungthon/corebank/internal/config"
	"github.com/krungthon/corebank/internal/database"
	"github.com/krungthon/corebank/internal/handlers"
	mW "github.com/krungthon/corebank/internal/middleware"
	"github.com/krungthon/corebank/internal/registry"
	"github.com/krungthon/corebank/internal/services"
)

// @title Core Bank Ledger API
// @version 1.0
// @description Retail core ledger: users, accounts, cards and the ATM, counter and EDC channels
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")
	viper.BindEnv("bootstrap.admin_password", "BOOTSTRAP_ADMIN_PASSWORD")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	bankCfg := config.LoadBankConfig()

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Core Bank Ledger API"
	docs.SwaggerInfo.Description = "Retail core ledger: users, accounts, cards and channels"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize infrastructure
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	defer redisClient.Close()

	// Domain state
	bank := registry.New()

	// Services
	auditLog := audit.NewLogger()
	sessions := services.NewSessionStore(redisClient, bankCfg.SessionTTL)
	receipts := services.NewReceiptService(redisClient, bankCfg.ReceiptTTL)
	archive := services.NewArchiveService(db)
	statements := services.NewStatementService(bankCfg.StatementBIC, bankCfg.StatementCurrency)
	authService := services.NewAuthService(db, redisClient)
	if err := authService.EnsureStaff(); err != nil {
		log.Fatalf("Failed to prepare staff table: %v", err)
	}

	// Handlers
	defaultFloat, err := decimal.NewFromString(bankCfg.ATMInitialFloat)
	if err != nil {
		log.Fatalf("Invalid BANK_ATM_INITIAL_FLOAT: %v", err)
	}
	registryHandler := handlers.NewRegistryHandler(bank, defaultFloat)
	atmHandler := handlers.NewATMHandler(bank, sessions, receipts, archive, auditLog)
	edcHandler := handlers.NewEDCHandler(bank, sessions, receipts, archive, auditLog)
	tellerHandler := handlers.NewTellerHandler(bank, archive, receipts, statements, auditLog)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Staff authentication
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Card-present channels; the card and PIN are the credential
		r.Post("/atm/{atmID}/insert-card", atmHandler.InsertCard)
		r.Post("/atm/{atmID}/deposit", atmHandler.Deposit)
		r.Post("/atm/{atmID}/withdraw", atmHandler.Withdraw)
		r.Post("/atm/{atmID}/transfer", atmHandler.Transfer)
		r.Post("/atm/{atmID}/eject", atmHandler.EjectCard)

		r.Post("/edc/{edcID}/swipe", edcHandler.SwipeCard)
		r.Post("/edc/{edcID}/pay", edcHandler.Pay)

		// Staff endpoints
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Post("/registry/users", registryHandler.CreateUser)
			r.Get("/registry/users", registryHandler.ListUsers)
			r.Post("/registry/accounts", registryHandler.CreateAccount)
			r.Post("/registry/cards", registryHandler.IssueCard)
			r.Post("/registry/atms", registryHandler.CreateATM)
			r.Post("/registry/edcs", registryHandler.CreateEDC)
			r.Get("/registry/channels", registryHandler.ListChannels)

			r.Post("/teller/counter/{branch}/deposit", tellerHandler.Deposit)
			r.Post("/teller/counter/{branch}/withdraw", tellerHandler.Withdraw)
			r.Post("/teller/counter/{branch}/transfer", tellerHandler.Transfer)
			r.Get("/teller/accounts/{number}/statement", tellerHandler.AccountStatement)
			r.Get("/teller/accounts/{number}/journal", tellerHandler.JournalHistory)
			r.Get("/teller/receipts/{reference}", tellerHandler.GetReceipt)

			// Batch jobs are admin only
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole("admin"))

				r.Post("/admin/batch/savings-interest", tellerHandler.ApplySavingsInterest)
				r.Post("/admin/batch/fixed-maturity", tellerHandler.ApplyFixedMaturity)
				r.Post("/admin/batch/annual-fees", tellerHandler.ChargeAnnualFees)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
