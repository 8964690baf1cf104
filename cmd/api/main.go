package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/rmaksimov/seat-sync/internal/adapters/memory"
	mongoadapter "github.com/rmaksimov/seat-sync/internal/adapters/mongo"
	"github.com/rmaksimov/seat-sync/internal/adapters/postgres"
	"github.com/rmaksimov/seat-sync/internal/adapters/rabbit"
	redisadapter "github.com/rmaksimov/seat-sync/internal/adapters/redis"
	"github.com/rmaksimov/seat-sync/internal/booking"
	"github.com/rmaksimov/seat-sync/internal/broadcast"
	"github.com/rmaksimov/seat-sync/internal/config"
	"github.com/rmaksimov/seat-sync/internal/domain"
	httphandler "github.com/rmaksimov/seat-sync/internal/http"
	"github.com/rmaksimov/seat-sync/internal/observability"
	"github.com/rmaksimov/seat-sync/internal/ratelimit"
	"github.com/rmaksimov/seat-sync/internal/validation"
)

// seatCreator is implemented by both seat stores; used only for the
// startup catalog bootstrap.
type seatCreator interface {
	Create(ctx context.Context, seatNos ...string) error
}

// multiPublisher delivers each event to every configured publisher: the
// in-process broadcaster for live viewers, plus the rabbit bridge when a
// broker is configured.
type multiPublisher []booking.Publisher

func (m multiPublisher) Publish(event domain.SeatEvent) {
	for _, p := range m {
		p.Publish(event)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := observability.SetupOTel(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	var store booking.SeatStore
	var creator seatCreator
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		pgStore := postgres.NewSeatStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("failed to ensure schema: %v", err)
		}
		store, creator = pgStore, pgStore
	} else {
		logger.Warn("POSTGRES_DSN not set, using in-memory seat store")
		memStore := memory.NewSeatStore()
		store, creator = memStore, memStore
	}
	if len(cfg.SeatNos) > 0 {
		if err := creator.Create(ctx, cfg.SeatNos...); err != nil {
			log.Fatalf("failed to create seats: %v", err)
		}
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditStore(mongoClient.Database("seatsync"), logger)
	if err := audit.EnsureIndexes(ctx); err != nil {
		log.Fatalf("failed to ensure audit indexes: %v", err)
	}

	var cache booking.SnapshotCache
	var rl *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		redisCache := redisadapter.NewCache(redisClient, 30*time.Second, logger)
		cache = redisCache
		rl = ratelimit.NewLimiter(redisCache)
	}

	broadcaster := broadcast.NewBroadcaster(0, logger)
	publishers := []booking.Publisher{broadcaster}
	if cfg.RabbitURL != "" {
		rabbitConn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer rabbitConn.Close()
		rabbitPub, err := rabbit.NewPublisher(rabbitConn, logger)
		if err != nil {
			log.Fatalf("failed to create publisher: %v", err)
		}
		publishers = append(publishers, rabbitPub)
	}

	ledger := validation.NewLedger(store, audit, cfg.CredentialTTL, logger)
	coordinator := booking.NewCoordinator(store, multiPublisher(publishers), ledger, cache, logger)

	handlers := httphandler.NewHandlers(coordinator, ledger, broadcaster, logger)
	router := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", cfg.HTTPAddr).Info("starting api server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		broadcaster.Close()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	logger.Info("server exiting")
}
