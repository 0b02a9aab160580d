package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/cli"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/config"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from the environment")
	}

	cfg := config.Load()
	if err := logger.Init(cfg.LogPath); err != nil {
		log.Printf("Could not open log file %s, logging to stderr: %v", cfg.LogPath, err)
	}

	cli.Execute()
}
