package main

import (
	"context"
	"log"
	"time"
	"tmpl-backend/cmd"
	"tmpl-backend/internal/config"
)

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	server, err := cmd.CreateServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("error creating server: %v", err)
	}

	if err := cmd.RunServer(server, cfg.InferenceTimeout+30*time.Second); err != nil {
		log.Fatalf("%v", err)
	}
}
