package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reqbridge/internal/api"
	"reqbridge/internal/config"
	"reqbridge/internal/data"
	"reqbridge/internal/logger"
	"reqbridge/internal/service"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the reqbridge server",
		Run: func(cmd *cobra.Command, args []string) {
			startServer()
		},
	})
}

func startServer() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\nCheck .env file or REQBRIDGE_KEY environment variable.\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	if err := logger.Init(cfg.LogDir); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info.Println("Starting reqbridge...")

	// 3. Initialize DB
	db, err := data.Open(cfg.StorageDriver, cfg.StorageDSN)
	if err != nil {
		logger.Error.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	// 4. Initialize Services
	cryptoSvc, err := service.NewEncryptionService(cfg.Key)
	if err != nil {
		logger.Error.Fatalf("Failed to init crypto service: %v", err)
	}

	userRepo := data.NewUserRepo(db)
	requestRepo := data.NewRequestRepo(db, cryptoSvc)
	envRepo := data.NewEnvironmentRepo(db)

	authSvc := service.NewAuthService(userRepo, cfg.Key, cfg.TokenTTL)
	forwarder := service.NewForwarder(cfg.ProxyTimeout)

	// 5. Start Server
	handler := api.NewHandler(authSvc, forwarder, requestRepo, envRepo)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler.Routes(),
	}

	// Graceful shutdown channel
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info.Printf("Server listening on port %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error.Fatalf("Server startup failed: %v", err)
		}
	}()

	<-stop
	logger.Info.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error.Printf("Server shutdown error: %v", err)
	}
	logger.Info.Println("Server stopped")
}
