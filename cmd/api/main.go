package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"expstat/internal"
	"expstat/internal/api"
	"expstat/internal/config"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := internal.NewDefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	gin.SetMode(cfg.Server.GinMode)
	router := gin.Default()

	api.NewStatisticsHandler(cfg.Stats.ConfidenceLevel).Register(router)
	api.NewExperimentHandler(cfg.Stats.ConfidenceLevel, cfg.Analysis.Concurrency).Register(router)

	logger.Info("starting API server on :%s (confidence level %.2f)", cfg.Server.Port, cfg.Stats.ConfidenceLevel)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
