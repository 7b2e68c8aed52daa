package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ovenworks/bakehouse/internal/catalog"
	catalogmongo "github.com/ovenworks/bakehouse/internal/catalog/mongo"
	"github.com/ovenworks/bakehouse/internal/config"
	"github.com/ovenworks/bakehouse/internal/coordinator/sagalog"
	sagalogsqlite "github.com/ovenworks/bakehouse/internal/coordinator/sagalog/sqlite"
	"github.com/ovenworks/bakehouse/internal/httpx"
	"github.com/ovenworks/bakehouse/internal/notify"
	notifyrabbit "github.com/ovenworks/bakehouse/internal/notify/rabbitmq"
	"github.com/ovenworks/bakehouse/internal/order"
	ordermongo "github.com/ovenworks/bakehouse/internal/order/mongo"
	"github.com/ovenworks/bakehouse/internal/pkg/cache"
	"github.com/ovenworks/bakehouse/internal/pkg/metrics"
	"github.com/ovenworks/bakehouse/internal/pkg/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.InitLogger(cfg.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.Environment)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	db := mustConnectMongo(ctx, cfg)

	productRepo := catalogmongo.NewRepository(db)
	orderRepo := ordermongo.NewRepository(db)
	if err := productRepo.EnsureIndexes(ctx); err != nil {
		fatal("create product indexes", err)
	}
	if err := orderRepo.EnsureIndexes(ctx); err != nil {
		fatal("create order indexes", err)
	}

	orderMetrics := metrics.NewOrderMetrics()
	serverMetrics := metrics.NewServerMetrics("api")

	statsCache := cache.NewRedisCache(cfg.RedisAddr, cfg.ServiceName)

	var sagaLog sagalog.Repository
	if cfg.SagaLogPath != "" {
		repo, err := sagalogsqlite.Open(cfg.SagaLogPath)
		if err != nil {
			slog.Warn("saga log disabled", "path", cfg.SagaLogPath, "error", err)
		} else {
			defer repo.Close()
			sagaLog = repo
		}
	}

	events := connectPublisher(cfg)

	catalogService := catalog.NewService(productRepo, orderMetrics)
	orderService := order.NewService(
		orderRepo,
		catalogService,
		order.Pricing{TaxRate: cfg.TaxRate, DeliveryFee: cfg.DeliveryFee},
		events,
		sagaLog,
		statsCache,
		orderMetrics,
	)

	router := httpx.NewRouter(
		httpx.NewOrderHandler(orderService),
		httpx.NewCatalogHandler(catalogService),
		serverMetrics,
	)

	slog.Info("server listening", "addr", cfg.HTTPAddr, "env", cfg.Environment)
	if err := http.ListenAndServe(cfg.HTTPAddr, router); err != nil {
		fatal("http server failed", err)
	}
}

func mustConnectMongo(ctx context.Context, cfg *config.Config) *mongo.Database {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		fatal("connect to mongodb", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		fatal("ping mongodb", err)
	}
	slog.Info("connected to mongodb", "database", cfg.MongoDatabase)
	return client.Database(cfg.MongoDatabase)
}

// connectPublisher wires the RabbitMQ event publisher when AMQP_URL is set,
// falling back to the nop publisher otherwise. Events are an optional side
// channel; the service runs fine without a broker.
func connectPublisher(cfg *config.Config) notify.Publisher {
	if cfg.AMQPURL == "" {
		return notify.NopPublisher{}
	}
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		slog.Warn("event publishing disabled", "error", err)
		return notify.NopPublisher{}
	}
	ch, err := conn.Channel()
	if err != nil {
		slog.Warn("event publishing disabled", "error", err)
		return notify.NopPublisher{}
	}
	pub, err := notifyrabbit.NewPublisher(ch)
	if err != nil {
		slog.Warn("event publishing disabled", "error", err)
		return notify.NopPublisher{}
	}
	slog.Info("order events enabled", "exchange", notifyrabbit.ExchangeName)
	return pub
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
