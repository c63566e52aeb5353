package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/inboundmailflow/internal/models"
	"github.com/Lllllllleong/inboundmailflow/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/joho/godotenv"
)

var (
	processorInstance *services.InboundProcessor
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleInbound" receives the mail provider webhook directly.
	functions.HTTP("HandleInbound", handleInbound)
	// "HandleInboundEvent" receives the same payload relayed through Pub/Sub.
	functions.CloudEvent("HandleInboundEvent", handleInboundEvent)
}

// main serves the registered functions locally; set FUNCTION_TARGET to pick one.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Could not load .env file", "error", err)
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("Starting functions framework.", "port", port)
	if err := funcframework.Start(port); err != nil {
		slog.Error("Functions framework stopped", "error", err)
		os.Exit(1)
	}
}

func initProcessor() error {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		processorInstance, initErr = services.NewInboundProcessor(context.Background())
	})
	return initErr
}

// handleInbound is the HTTP webhook entry point.
func handleInbound(w http.ResponseWriter, r *http.Request) {
	if err := initProcessor(); err != nil {
		slog.Error("Critical: inbound processor initialization failed", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	processorInstance.ServeHTTP(w, r)
}

// handleInboundEvent is the Pub/Sub entry point. Undecodable messages are
// dropped after logging so they are not redelivered.
func handleInboundEvent(ctx context.Context, e cloudevents.Event) error {
	if err := initProcessor(); err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		return err
	}

	var msg models.MessagePublishedData
	if err := json.Unmarshal(e.Data(), &msg); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "eventId", e.ID())
		return nil
	}

	if err := processorInstance.ProcessRaw(ctx, msg.Message.Data); err != nil {
		slog.Error("Dropping undecodable inbound message", "error", fmt.Errorf("message %s: %w", msg.Message.MessageID, err))
	}
	return nil
}
