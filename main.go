package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"logodouman/internal/api"
	"logodouman/internal/cache"
	"logodouman/internal/config"
	"logodouman/internal/database"
	"logodouman/internal/images"
	"logodouman/internal/migrations"
	"logodouman/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)
	seed.EnsureAdmin(db, cfg.AdminEmail, cfg.AdminPassword)
	seed.LoadCatalog(db, cfg.CatalogCSV)

	handler := api.New(db, cfg.Secret, cfg.CORSOrigins)

	if cfg.RedisAddr != "" {
		c, err := cache.New(cfg.RedisAddr, "logodouman:", time.Minute)
		if err != nil {
			log.Fatalf("redis error: %v", err)
		}
		defer c.Close()
		handler.WithCache(c)
	}

	if cfg.CloudinaryURL != "" {
		uploader, err := images.NewCloudinary(cfg.CloudinaryURL, "logodouman/products")
		if err != nil {
			log.Fatalf("cloudinary error: %v", err)
		}
		handler.WithUploader(uploader)
	}

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handler.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("LogoDouman API server starting on :%s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
