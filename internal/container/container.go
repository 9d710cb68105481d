package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/speedsearch/internal/analytics"
	analyticsstore "github.com/serroba/speedsearch/internal/analytics/store"
	"github.com/serroba/speedsearch/internal/handlers"
	"github.com/serroba/speedsearch/internal/health"
	"github.com/serroba/speedsearch/internal/messaging"
	"github.com/serroba/speedsearch/internal/middleware"
	"github.com/serroba/speedsearch/internal/ratelimit"
	"github.com/serroba/speedsearch/internal/search"
	"github.com/serroba/speedsearch/internal/store"
	"go.uber.org/zap"
)

const (
	requestIDLength = 21
	analyticsGroup  = "analytics"
	startupDeadline = 5 * time.Second
)

// Redis owns the client so the injector closes it on shutdown. It does not
// embed the client: redis.Cmdable already has a Shutdown method.
type Redis struct {
	Client *redis.Client
}

func (r *Redis) Shutdown() error {
	return r.Client.Close()
}

// Postgres wraps the pool so the injector closes it on shutdown.
type Postgres struct {
	Pool *pgxpool.Pool
}

func (p *Postgres) Shutdown() error {
	p.Pool.Close()

	return nil
}

// LoggerPackage provides the service logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == LogFormatJSON {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides the Redis client shared by the term index, the rate
// limit store and the event streams.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Redis, error) {
		opts := do.MustInvoke[*Options](i)

		return &Redis{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})

	do.Provide(i, func(i *do.Injector) (redis.UniversalClient, error) {
		return do.MustInvoke[*Redis](i).Client, nil
	})
}

// PostgresPackage provides the PostgreSQL pool. Connections are opened lazily.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Postgres, error) {
		opts := do.MustInvoke[*Options](i)

		pool, err := pgxpool.New(context.Background(), opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}

		return &Postgres{Pool: pool}, nil
	})
}

// TermIndexPackage provides both term indexes and the engine map routing to them.
func TermIndexPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*store.RedisTermIndex, error) {
		return store.NewRedisTermIndex(do.MustInvoke[redis.UniversalClient](i)), nil
	})

	do.Provide(i, func(i *do.Injector) (*store.PostgresTermIndex, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		index := store.NewPostgresTermIndex(do.MustInvoke[*Postgres](i).Pool)

		ctx, cancel := context.WithTimeout(context.Background(), startupDeadline)
		defer cancel()

		// The service starts degraded rather than refusing to start.
		if err := index.Migrate(ctx); err != nil {
			logger.Warn("postgres term index not migrated", zap.Error(err))
		}

		return index, nil
	})

	do.Provide(i, func(i *do.Injector) (map[search.Engine]search.Index, error) {
		return map[search.Engine]search.Index{
			search.EngineRedis:    do.MustInvoke[*store.RedisTermIndex](i),
			search.EnginePostgres: do.MustInvoke[*store.PostgresTermIndex](i),
		}, nil
	})
}

// RateLimitPackage provides the sliding-window limiter over the Redis counter store.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (ratelimit.Limiter, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return ratelimit.NewSlidingWindowLimiter(
			store.NewRateLimitRedisStore(do.MustInvoke[redis.UniversalClient](i)),
			int64(opts.RateLimit),
			opts.RateWindow(),
			ratelimit.WithFailOpen(opts.RateFailOpen),
			ratelimit.WithLogger(logger),
		), nil
	})
}

// DispatcherPackage provides the search dispatcher.
func DispatcherPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*search.Dispatcher, error) {
		opts := do.MustInvoke[*Options](i)

		engine, err := search.ParseEngine(opts.DefaultEngine)
		if err != nil {
			return nil, err
		}

		return search.NewDispatcher(
			do.MustInvoke[ratelimit.Limiter](i),
			do.MustInvoke[map[search.Engine]search.Index](i),
			engine,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// PublisherGroupPackage provides the Redis stream publisher and the typed
// search event publish function. With analytics disabled events are dropped.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client:     do.MustInvoke[redis.UniversalClient](i),
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i)))
		if err != nil {
			return nil, fmt.Errorf("create stream publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[analytics.SearchPerformedEvent], error) {
		if !do.MustInvoke[*Options](i).Analytics {
			return messaging.NoopPublish[analytics.SearchPerformedEvent](), nil
		}

		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return analytics.NewSearchPublisher(group.Publisher(), handlers.RequestIDMetadata), nil
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)

		newID, err := nanoid.Standard(requestIDLength)
		if err != nil {
			return nil, fmt.Errorf("create request id generator: %w", err)
		}

		api := humachi.New(router, huma.DefaultConfig("Speed Search", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(newID))

		searchHandler := handlers.NewSearchHandler(
			do.MustInvoke[*search.Dispatcher](i),
			do.MustInvoke[messaging.Publish[analytics.SearchPerformedEvent]](i),
			logger,
		)
		handlers.RegisterRoutes(api, searchHandler)

		health.RegisterRoutes(api, health.NewHandler(
			health.NewRedisChecker(do.MustInvoke[redis.UniversalClient](i)),
			do.MustInvoke[*store.PostgresTermIndex](i),
		))

		return api, nil
	})
}

// ConsumerGroupPackage provides the analytics consumer group reading the
// search event stream.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (analytics.Store, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.AnalyticsStore != AnalyticsStorePostgres {
			return analyticsstore.NewNoop(logger), nil
		}

		s := analyticsstore.NewPostgres(do.MustInvoke[*Postgres](i).Pool)

		ctx, cancel := context.WithTimeout(context.Background(), startupDeadline)
		defer cancel()

		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}

		return s, nil
	})

	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        do.MustInvoke[redis.UniversalClient](i),
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: analyticsGroup,
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create stream subscriber: %w", err)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(analytics.NewSearchConsumer(subscriber, do.MustInvoke[analytics.Store](i), logger))

		return group, nil
	})
}
