package main

import (
	"log"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"github.com/emberhq/streamline/internal/config"
	"github.com/emberhq/streamline/internal/domain"
	"github.com/emberhq/streamline/internal/health"
	"github.com/emberhq/streamline/internal/http"
	"github.com/emberhq/streamline/internal/http/middleware"
	"github.com/emberhq/streamline/internal/observability"
	"github.com/emberhq/streamline/internal/run"
	"github.com/emberhq/streamline/internal/transport/echo"
	"github.com/emberhq/streamline/internal/transport/openai"
)

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server) {
		if err := server.Start(); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(func() domain.EventPublisher {
		return observability.NewEventBus(slog.Default())
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Completion transport. Falls back to the in-memory echo transport when
	// no API key is configured, so local development works out of the box.
	if err := container.Provide(func(cfg *openai.Config) (domain.CompletionTransport, error) {
		if cfg.APIKey == "" {
			log.Println("OPENAI_API_KEY not set, using echo transport")
			return echo.NewTransport(), nil
		}
		return openai.NewTransport(*cfg)
	}); err != nil {
		log.Fatalf("Failed to provide transport: %v", err)
	}

	// Stream consumer
	if err := container.Provide(domain.NewConsumer); err != nil {
		log.Fatalf("Failed to provide consumer: %v", err)
	}

	// Run registry
	if err := container.Provide(run.NewRegistry); err != nil {
		log.Fatalf("Failed to provide run registry: %v", err)
	}

	// Model health store (optional: disabled without a Redis address)
	if err := container.Provide(func(cfg *config.RedisConfig) health.Store {
		if cfg.Addr == "" {
			return nil
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		return health.NewRedisStore(client, time.Duration(cfg.StatusTTL)*time.Second)
	}); err != nil {
		log.Fatalf("Failed to provide health store: %v", err)
	}

	// Model health service
	if err := container.Provide(func(
		consumer *domain.Consumer,
		store health.Store,
		cfg *config.ProbeConfig,
	) *health.Service {
		return health.NewService(consumer, store, time.Duration(cfg.Timeout)*time.Second)
	}); err != nil {
		log.Fatalf("Failed to provide health service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}
