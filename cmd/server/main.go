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
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/yapcx/backoffice/docs"
	"github.com/yapcx/backoffice/internal/database"
	"github.com/yapcx/backoffice/internal/handlers"
	mW "github.com/yapcx/backoffice/internal/middleware"
	"github.com/yapcx/backoffice/internal/services"
)

// @title Currency Exchange Back-Office API
// @version 1.0
// @description API for currency exchange back-office operations
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	// Set environment variable prefix
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

	viper.BindEnv("rates.source_url", "RATES_SOURCE_URL")
	viper.BindEnv("rates.buy_margin", "RATES_BUY_MARGIN")
	viper.BindEnv("rates.sell_margin", "RATES_SELL_MARGIN")
	viper.BindEnv("tills.session_ttl", "TILL_SESSION_TTL")
	viper.BindEnv("users.invitation_expiry_days", "INVITATION_EXPIRY_DAYS")
	viper.BindEnv("aml.disclosure_threshold", "AML_DISCLOSURE_THRESHOLD")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Currency Exchange Back-Office API"
	docs.SwaggerInfo.Description = "API for currency exchange back-office operations"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	currencyService := services.NewCurrencyService(db, redisClient)
	customerService := services.NewCustomerService(db)
	tillService := services.NewTillService(db, redisClient)
	transactionService := services.NewTransactionService(db, tillService)
	complianceService := services.NewComplianceService(db)
	userService := services.NewUserService(db, redisClient)
	settlementService := services.NewSettlementService(db)
	receiptService := services.NewReceiptService(db, redisClient)
	receiptHandler := handlers.NewReceiptHandler(receiptService)

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

	// Static file server for currency flags
	r.Handle("/static/currency-flags/*", http.StripPrefix("/static/currency-flags/",
		mW.StaticFileServer("./static/currency-flags")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", userService.Register)
		r.Post("/auth/login", userService.Login)
		r.Post("/auth/logout", userService.Logout)
		r.Post("/auth/invitations/accept", userService.AcceptInvitation)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/account", userService.GetUserAccount)

			// Currency endpoints
			r.Get("/currencies", currencyService.ListCurrencies)
			r.Post("/currencies", currencyService.CreateCurrency)
			r.Get("/currencies/{code}", currencyService.GetCurrency)
			r.Put("/currencies/{code}", currencyService.UpdateCurrency)
			r.Delete("/currencies/{code}", currencyService.DeleteCurrency)
			r.Post("/currencies/refresh-rates", currencyService.RefreshRates)
			r.Get("/currencies/{code}/denominations", currencyService.ListDenominations)
			r.Post("/currencies/{code}/denominations", currencyService.AddDenomination)
			r.Delete("/currencies/{code}/denominations/{denominationId}", currencyService.DeleteDenomination)

			// Customer endpoints
			r.Get("/customers", customerService.ListCustomers)
			r.Post("/customers", customerService.CreateCustomer)
			r.Get("/customers/{customerId}", customerService.GetCustomer)
			r.Put("/customers/{customerId}", customerService.UpdateCustomer)

			// Till endpoints
			r.Get("/tills", tillService.ListTills)
			r.Post("/tills", tillService.CreateTill)
			r.Get("/tills/{tillId}/balances", tillService.GetTillBalances)
			r.Get("/tills/{tillId}/movements", tillService.ListTillTransactions)
			r.Post("/tills/{tillId}/movements", tillService.RecordCashMovement)
			r.Post("/tills/transfer", tillService.Transfer)
			r.Post("/tills/{tillId}/sessions", tillService.OpenSession)
			r.Post("/tills/sessions/close", tillService.CloseSession)

			// Transaction endpoints
			r.Get("/transactions", transactionService.ListTransactions)
			r.Post("/transactions", transactionService.CreateTransaction)
			r.Get("/transactions/{transactionId}", transactionService.GetTransaction)
			r.Put("/transactions/{transactionId}", transactionService.UpdateTransaction)
			r.Put("/transactions/{transactionId}/status", transactionService.UpdateTransactionStatus)
			r.Post("/transactions/{transactionId}/complete", transactionService.CompleteTransaction)
			r.Delete("/transactions/{transactionId}", transactionService.DeleteTransaction)

			// Compliance endpoints
			r.Get("/compliance/alerts", complianceService.ListAlerts)
			r.Post("/compliance/alerts", complianceService.CreateAlert)
			r.Get("/compliance/alerts/{alertId}", complianceService.GetAlert)
			r.Put("/compliance/alerts/{alertId}/status", complianceService.UpdateAlertStatus)
			r.Get("/compliance/settings", complianceService.GetAMLSettings)
			r.Put("/compliance/settings", complianceService.UpdateAMLSettings)
			r.Post("/compliance/customers/{customerId}/rescreen", complianceService.RescreenCustomer)
			r.Post("/compliance/customers/{customerId}/false-positive", complianceService.MarkFalsePositive)

			// User management endpoints
			r.Get("/users", userService.ListUsers)
			r.Post("/users/invitations", userService.InviteUser)
			r.Put("/users/{userId}/permissions", userService.UpdateUserPermissions)

			// Settlement endpoints
			r.Post("/settlement/transactions/{transactionId}/convert", settlementService.ConvertTransaction)
			r.Post("/settlement/transactions/{transactionId}/settle", settlementService.ProcessSettlement)
			r.Get("/settlement/export", settlementService.ExportDaily)

			// Receipt endpoints
			r.Post("/receipts/generate", receiptHandler.GenerateReceipt)
			r.Post("/receipts/verify", receiptHandler.VerifyReceipt)
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

	// Wait for interrupt signal
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
