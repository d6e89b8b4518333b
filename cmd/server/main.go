package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"namespaces/internal/admin"
	claimservice "namespaces/internal/claim/service"
	claimrequestservice "namespaces/internal/claimrequest/service"
	"namespaces/internal/custody/sandbox"
	entryservice "namespaces/internal/entry/service"
	jwttoken "namespaces/internal/jwt_token"
	namespaceservice "namespaces/internal/namespace/service"
	"namespaces/internal/platform/config"
	"namespaces/internal/platform/database"
	"namespaces/internal/platform/httpserver"
	"namespaces/internal/platform/logger"
	"namespaces/internal/platform/metrics"
	"namespaces/internal/platform/redis"
	"namespaces/internal/platform/seed"
	"namespaces/internal/registry/store"
	"namespaces/internal/registry/store/memory"
	registrypg "namespaces/internal/registry/store/postgres"
	"namespaces/internal/resolver"
	reverseservice "namespaces/internal/reverse/service"
	httptransport "namespaces/internal/transport/http"
	"namespaces/pkg/platform/audit"
	"namespaces/pkg/platform/audit/publisher"
	auditmemory "namespaces/pkg/platform/audit/store/memory"
	auditpg "namespaces/pkg/platform/audit/store/postgres"
	"namespaces/pkg/platform/audit/worker"
	adminmw "namespaces/pkg/platform/middleware/admin"
	authmw "namespaces/pkg/platform/middleware/auth"
)

const shutdownTimeout = 10 * time.Second

// main wires the registry services, serves HTTP and, when Postgres and Kafka
// are configured, relays the audit outbox. Business logic lives in the
// internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

type infra struct {
	ledger   store.Ledger
	audit    audit.Store
	outbox   *auditpg.Store
	db       *sql.DB
	redis    *redis.Client
	producer *kgo.Client
}

func (i *infra) close() {
	if i.producer != nil {
		i.producer.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func buildInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{}
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory ledger")
		in.ledger = memory.New()
		in.audit = auditmemory.NewInMemoryStore()
	} else {
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		in.db = db
		in.ledger = registrypg.New(db, registrypg.WithTimeout(cfg.TxTimeout))
		in.outbox = auditpg.New(db)
		in.audit = in.outbox
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.close()
		return nil, err
	}
	in.redis = client

	if len(cfg.Kafka.Brokers) > 0 && in.outbox != nil {
		producer, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.Topic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
		)
		if err != nil {
			in.close()
			return nil, fmt.Errorf("create kafka client: %w", err)
		}
		in.producer = producer
	}
	return in, nil
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	in, err := buildInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.close()

	m := metrics.New()
	custody := sandbox.New()
	auditPublisher := publisher.NewPublisher(in.audit, publisher.WithLogger(log))
	defer auditPublisher.Close()

	var resolverOpts []resolver.Option
	if in.redis != nil {
		resolverOpts = append(resolverOpts, resolver.WithCache(resolver.NewRedisCache(in.redis.Client, cfg.Redis.CacheTTL)))
	}
	resolverOpts = append(resolverOpts, resolver.WithLogger(log), resolver.WithMetrics(m))

	// The resolver reads through its own service instance so the writing
	// instance can evict from the resolver's cache.
	names := resolver.New(reverseservice.New(in.ledger, custody, custody, custody), resolverOpts...)
	reverse := reverseservice.New(in.ledger, custody, custody, custody,
		reverseservice.WithLogger(log),
		reverseservice.WithAuditPublisher(auditPublisher),
		reverseservice.WithMetrics(m),
		reverseservice.WithReverseCache(names),
	)

	namespaces := namespaceservice.New(in.ledger,
		namespaceservice.WithLogger(log),
		namespaceservice.WithAuditPublisher(auditPublisher),
		namespaceservice.WithMetrics(m),
	)
	requests := claimrequestservice.New(in.ledger, custody,
		claimrequestservice.WithLogger(log),
		claimrequestservice.WithAuditPublisher(auditPublisher),
		claimrequestservice.WithMetrics(m),
	)
	entries := entryservice.New(in.ledger, custody, custody,
		entryservice.WithLogger(log),
		entryservice.WithAuditPublisher(auditPublisher),
		entryservice.WithMetrics(m),
		entryservice.WithReverseCache(names),
		entryservice.WithAuthorityMigration(cfg.Registry.AllowAuthorityMigration),
	)
	claims := claimservice.New(in.ledger, custody, custody, custody,
		claimservice.WithLogger(log),
		claimservice.WithAuditPublisher(auditPublisher),
		claimservice.WithMetrics(m),
		claimservice.WithMetadataBaseURL(cfg.Registry.MetadataBaseURL),
		claimservice.WithPaymentManager(cfg.Registry.PaymentManager),
	)
	operator := admin.New(custody, log, auditPublisher)

	if cfg.Registry.SeedFile != "" {
		declared, err := seed.Load(cfg.Registry.SeedFile)
		if err != nil {
			return err
		}
		created, err := seed.Apply(ctx, namespaces, declared, log)
		if err != nil {
			return err
		}
		log.Info("namespaces seeded", "declared", len(declared), "created", created)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	auth := authmw.RequireAuth(jwttoken.NewVerifier(jwtService), log)
	if cfg.AdminAPIToken == "" {
		log.Warn("ADMIN_API_TOKEN is empty, admin routes are disabled")
	}

	routerOpts := []httptransport.RouterOption{httptransport.WithMetricsHandler(promhttp.Handler())}
	if in.db != nil {
		routerOpts = append(routerOpts, httptransport.WithHealthCheck("postgres", in.db.PingContext))
	}
	if in.redis != nil {
		routerOpts = append(routerOpts, httptransport.WithHealthCheck("redis", in.redis.Health))
	}
	router := httptransport.NewRouter(log, []httptransport.Registrar{
		httptransport.NewNamespaceHandler(namespaces, requests, auth, log),
		httptransport.NewEntryHandler(entries, claims, auth, log),
		httptransport.NewReverseHandler(reverse, names, auth, log),
		httptransport.NewAdminHandler(operator, adminmw.RequireAdminToken(cfg.AdminAPIToken, log), log),
	}, routerOpts...)

	srv := httpserver.New(cfg.Addr, router, httpserver.WithTimeouts(cfg.ReadTimeout, cfg.WriteTimeout))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting namespaces registry", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if in.producer != nil {
		relay := worker.NewRelay(in.outbox, in.producer, cfg.Kafka.Topic,
			worker.WithLogger(log),
			worker.WithBatchSize(cfg.Kafka.BatchSize),
			worker.WithPollInterval(cfg.Kafka.PollInterval),
			worker.WithRelayedHook(m.AddOutboxRelayed),
		)
		g.Go(func() error {
			log.Info("starting outbox relay", "topic", cfg.Kafka.Topic)
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
