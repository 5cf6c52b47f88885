// Package main DevOpsGpt API Server
//
//	@title			DevOpsGpt API
//	@version		1.0
//	@description	Conversational DevOps assistant backed by an OpenAI-compatible LLM
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host		localhost:8080
//	@BasePath	/
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"devops-gpt/config"
	"devops-gpt/docs" // This imports the docs package to initialize swagger
	"devops-gpt/internal/server"
)

func main() {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	docs.SwaggerInfo.Host = cfg.SwaggerHost

	logger.Println("Starting DevOpsGpt Server...")
	srv := server.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatalf("Failed to start server: %v", err)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server shutdown failed: %v", err)
	}
}
