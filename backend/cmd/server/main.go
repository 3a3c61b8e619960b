package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/api"
	"github.com/Tchaikovic/NeuroGym/backend/internal/services"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/config"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting tutor API server...", zap.String("env", cfg.Env))

	sm, err := services.NewServiceManager(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to start services", zap.Error(err))
	}
	defer sm.StopAll()

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(sm, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

func newRouter(sm *services.ServiceManager, log *zap.Logger) *gin.Engine {
	handler := api.NewHandler(api.Deps{
		Turns:         sm.Orchestrator,
		Conversations: sm.Documents,
		Quizzes:       sm.Documents,
		Topics:        sm.Topics,
		Stats:         sm.Stats,
	})
	return api.NewRouter(handler, log)
}
