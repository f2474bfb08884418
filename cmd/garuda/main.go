package main

import (
	"log"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/layer-3/garuda/adapters/events"
	"github.com/layer-3/garuda/adapters/store"
	"github.com/layer-3/garuda/adapters/trust"
	"github.com/layer-3/garuda/service"
	"github.com/layer-3/garuda/transport/http"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Get Redis URL from environment
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	// The URL relying parties are redirected back through for the
	// interactive approval round-trip
	providerURL := os.Getenv("PROVIDER_URL")
	if providerURL == "" {
		providerURL = "http://localhost:9000/openid"
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":9000"
	}

	// Parse Redis URL and create client
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}

	redisClient := redis.NewClient(opts)

	// Initialize Watermill Redis publisher
	logger := watermill.NewStdLogger(false, false)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	// Two independent association stores: the internal one backs
	// dumb-mode relying parties, the external one holds secrets from the
	// associate handshake
	internalStore := store.NewRedisStore(redisClient, "internal")
	externalStore := store.NewRedisStore(redisClient, "external")

	eventPub := events.NewWatermillPublisher(publisher)

	provider := service.NewProvider(
		providerURL,
		internalStore,
		externalStore,
		trust.NewValidator(),
		eventPub,
	)

	// Setup Gin router. DenyAll sends every checkid request through the
	// approval round-trip; deployments plug in their own session check.
	router := http.SetupRouter(provider, http.DenyAll)

	// Start server
	if err := router.Run(listenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
