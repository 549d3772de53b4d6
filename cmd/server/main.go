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

	"github.com/doubtsolve/backend/docs"
	"github.com/doubtsolve/backend/internal/config"
	"github.com/doubtsolve/backend/internal/database"
	"github.com/doubtsolve/backend/internal/gateway"
	"github.com/doubtsolve/backend/internal/handlers"
	mW "github.com/doubtsolve/backend/internal/middleware"
	"github.com/doubtsolve/backend/internal/services"
	"github.com/doubtsolve/backend/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title DoubtSolve Backend API
// @version 1.0
// @description Doubt marketplace with escrowed tutor payments
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	config.Init()

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "DoubtSolve Backend API"
	docs.SwaggerInfo.Description = "Doubt marketplace with escrowed tutor payments"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	shutdownTelemetry, err := telemetry.Init(context.Background(), config.LoadTelemetryConfig())
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	gatewayCfg := config.LoadGatewayConfig()
	if gatewayCfg.KeyID == "" || gatewayCfg.KeySecret == "" {
		log.Println("Warning: payment gateway credentials are not set, order creation will fail")
	}
	razorpay := gateway.NewRazorpayClient(gatewayCfg)
	verifier := gateway.NewSignatureVerifier(gatewayCfg.KeySecret)

	events := services.NewEventPublisher(redisClient)
	notices := services.NewNotificationService(db)
	escrowService := services.NewEscrowService(db, razorpay, verifier, events, notices, gatewayCfg.Currency)
	qrService := services.NewQRService(escrowService, redisClient, gatewayCfg.CheckoutURL, razorpay.KeyID())
	authService := services.NewAuthService(db, redisClient)
	doubtService := services.NewDoubtService(db, events, notices)
	messageService := services.NewMessageService(db, events, notices)
	answerService := services.NewAnswerService(db, events, notices)
	walletService := services.NewWalletService(db)
	callService := services.NewCallService(db, config.LoadCallConfig())

	paymentHandler := handlers.NewPaymentHandler(escrowService, qrService)
	doubtHandler := handlers.NewDoubtHandler(doubtService)
	sessionHandler := handlers.NewSessionHandler(walletService, messageService, callService)
	inboxHandler := handlers.NewInboxHandler(answerService, notices)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/me", authService.Me)
			r.Put("/auth/me", authService.UpdateMe)

			// Escrow
			r.Post("/payments/create-order", paymentHandler.CreateOrder)
			r.Post("/payments/verify", paymentHandler.Verify)
			r.Post("/payments/release", paymentHandler.Release)
			r.Get("/payments/{orderId}/qr", paymentHandler.CheckoutQR)

			r.Get("/wallet", sessionHandler.GetWallet)

			// Marketplace
			r.Post("/doubts", doubtHandler.CreateDoubt)
			r.Get("/doubts", doubtHandler.ListDoubts)
			r.Get("/doubts/{doubtId}", doubtHandler.GetDoubt)
			r.Post("/doubts/{doubtId}/applications", doubtHandler.Apply)
			r.Post("/doubts/{doubtId}/applications/{applicationId}/accept", doubtHandler.Accept)
			r.Get("/applications", doubtHandler.MyApplications)

			// Session
			r.Post("/doubts/{doubtId}/messages", sessionHandler.PostMessage)
			r.Get("/doubts/{doubtId}/messages", sessionHandler.ListMessages)
			r.Get("/calls/token", sessionHandler.RoomToken)
			r.Post("/doubts/{doubtId}/answers", inboxHandler.SubmitAnswer)
			r.Get("/doubts/{doubtId}/answers", inboxHandler.ListAnswers)

			// Notifications
			r.Get("/notifications", inboxHandler.ListNotifications)
			r.Post("/notifications/read-all", inboxHandler.MarkAllRead)
			r.Post("/notifications/{notificationId}/read", inboxHandler.MarkRead)
		})
	})

	port := viper.GetString("server.port")

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
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
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := shutdownTelemetry(ctx); err != nil {
		log.Printf("Telemetry shutdown failed: %v", err)
	}

	log.Println("Server stopped")
}
