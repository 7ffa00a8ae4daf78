package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/config"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/api"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/broker"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/redisclient"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/server"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/service"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/store"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/util"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting shopping server")

	if cfg.Observ.JaegerEndpoint != "" {
		tp, err := util.InitTracer("shop-server", cfg.Observ.JaegerEndpoint)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	if err := db.SeedDemoData(ctx); err != nil {
		log.Fatalf("Failed to seed demo data: %v", err)
	}
	log.Println("Database ready")

	var cache service.CatalogCache
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		cache = redisClient
		log.Println("Redis connected")
	}

	var publisher service.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	registry := server.NewRegistry()
	shopService := service.NewShopService(db, cache)
	coordinator := service.NewCheckoutCoordinator(db, registry, cache, publisher)
	handler := server.NewHandler(shopService, coordinator, registry, cfg.Server.IdleTimeout)

	srv := server.New(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port), handler, registry)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	opsHandler := api.NewHandler(shopService, registry)
	opsHandler.SetupRoutes(router)

	opsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.OpsPort),
		Handler: router,
	}
	go func() {
		log.Printf("Starting ops HTTP server on port %s", cfg.Server.OpsPort)
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start ops server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ops server forced to shutdown: %v", err)
	}
	srv.Stop()

	log.Println("Server exited")
}
