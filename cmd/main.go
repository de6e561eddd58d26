package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hms/internal/api"
	"hms/internal/config"
	"hms/internal/db"
	"hms/internal/identity"
	"hms/internal/models"
	"hms/internal/rbac"
	"hms/internal/routes"
	"hms/internal/services"
	"hms/internal/tasks"
	"hms/internal/utils"
	"hms/internal/utils/logger"
)

func main() {
	console := logger.New("hms")

	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		console.Info("No .env file found, skipping environment variable loading")
	} else {
		console.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mainDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(mainDB); err != nil {
			console.Warn("Failed to close database connection: %v", err)
		}
	}()

	if err := models.SeedRoles(mainDB); err != nil {
		log.Fatalf("Failed to seed roles: %v", err)
	}
	if err := models.CreateSuperAdminFromEnv(mainDB, cfg); err != nil {
		console.Warn("Super admin not provisioned: %v", err)
	}

	registry := db.NewRegistry(cfg.Database)
	catalog := rbac.NewGormCatalog(mainDB)
	resolver := rbac.NewResolver(catalog)
	idResolver := identity.NewResolver(mainDB, registry, catalog)
	issuer := utils.NewTokenIssuer(cfg.JWT)
	mailer := services.NewSMTPMailer(cfg.SMTP, cfg.Server)

	taskClient := tasks.NewTaskClient(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
	defer taskClient.Close()
	if err := taskClient.Ping(context.Background()); err != nil {
		console.Warn("Redis unreachable, background mail will retry: %v", err)
	}

	taskHandler := tasks.NewTaskHandler(mainDB, mailer)
	taskServer := tasks.NewServer(
		cfg.Redis.Addr,
		cfg.Redis.Username,
		cfg.Redis.Password,
		cfg.Redis.DB,
		taskHandler,
		console,
	)
	go func() {
		if err := taskServer.Start(); err != nil {
			console.Error("Task server error", err)
		}
	}()

	taskScheduler := tasks.NewScheduler(
		cfg.Redis.Addr,
		cfg.Redis.Username,
		cfg.Redis.Password,
		cfg.Redis.DB,
		console,
	)
	go func() {
		if err := taskScheduler.Start(); err != nil {
			console.Error("Task scheduler error", err)
		}
	}()

	apiServer := api.NewServer(cfg, mainDB, routes.Deps{
		MainDB:   mainDB,
		Registry: registry,
		Catalog:  catalog,
		Resolver: resolver,
		Identity: idResolver,
		Issuer:   issuer,
		Mailer:   mailer,
		Tasks:    taskClient,
	})
	go func() {
		console.Success("API server started")
		if err := apiServer.Start(); err != nil {
			console.Error("API server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	taskScheduler.Stop()
	taskServer.Shutdown()

	if err := apiServer.Shutdown(ctx); err != nil {
		console.Error("Failed to shutdown API server", err)
	}

	console.Info("Servers shutdown gracefully")
}
