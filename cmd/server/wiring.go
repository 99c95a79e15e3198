package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dochandler "suiverify/internal/document/handler"
	"suiverify/internal/document/ocr"
	"suiverify/internal/document/ocr/tesseract"
	docservice "suiverify/internal/document/service"
	"suiverify/internal/evidence/publisher"
	"suiverify/internal/kyc/face"
	kychandler "suiverify/internal/kyc/handler"
	"suiverify/internal/kyc/results"
	kycservice "suiverify/internal/kyc/service"
	kycstore "suiverify/internal/kyc/store"
	"suiverify/internal/platform/config"
	"suiverify/internal/platform/database"
	"suiverify/internal/platform/health"
	"suiverify/internal/platform/kafka"
	"suiverify/internal/platform/kafka/consumer"
	"suiverify/internal/platform/kafka/producer"
	"suiverify/internal/platform/metrics"
	redisclient "suiverify/internal/platform/redis"
	"suiverify/internal/platform/tracer"
	"suiverify/migrations"
	"suiverify/pkg/platform/circuit"
	request "suiverify/pkg/platform/middleware/request"
	"suiverify/pkg/platform/outbox"
	outboxmetrics "suiverify/pkg/platform/outbox/metrics"
	"suiverify/pkg/platform/outbox/sink/logsink"
	"suiverify/pkg/platform/outbox/sink/redisstream"
	"suiverify/pkg/platform/outbox/store/memory"
	"suiverify/pkg/platform/outbox/store/postgres"
	"suiverify/pkg/platform/outbox/worker"
)

const (
	maxRequestBytes      = 4 * dochandler.MaxUploadBytes
	requestTimeout       = 60 * time.Second
	outboxRetention      = 24 * time.Hour
	outboxMaintainPeriod = 30 * time.Second
	poolStatsPeriod      = 15 * time.Second
)

// app holds everything main starts and stops.
type app struct {
	log    *slog.Logger
	router http.Handler

	redis    *redisclient.Client
	db       *database.Pool
	producer *producer.Producer
	engine   *tesseract.Engine
	outbox   outbox.Store
	worker   *worker.Worker
	consumer *consumer.Consumer
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*app, error) {
	a := &app{log: log}
	m := metrics.New(prometheus.DefaultRegisterer)
	trc := tracer.NewOTel()
	healthHandler := health.New(cfg.Environment)

	var err error
	if a.redis, err = redisclient.New(cfg.Redis); err != nil {
		return nil, err
	}
	if a.db, err = database.New(cfg.Database); err != nil {
		return nil, err
	}

	// Session store and publish guard.
	var (
		sessions kycstore.Store
		guard    publisher.Guard
	)
	if a.redis != nil {
		sessions = kycstore.NewRedis(a.redis.Client)
		guard = publisher.NewRedisGuard(a.redis.Client, cfg.KYC.PublishGuardTTL)
		healthHandler.RegisterCheck("redis", a.redis.Health)
	} else {
		log.Warn("REDIS_URL not set, sessions are kept in memory")
		sessions = kycstore.NewInMemory()
		guard = publisher.NewMemoryGuard(cfg.KYC.PublishGuardTTL)
	}

	// Outbox.
	if a.db != nil {
		if err := database.Migrate(ctx, a.db.DB(), migrations.FS); err != nil {
			return nil, fmt.Errorf("migrate outbox: %w", err)
		}
		a.outbox = postgres.New(a.db.DB())
		healthHandler.RegisterCheck("postgres", a.db.Health)
	} else {
		log.Warn("DATABASE_URL not set, outbox is kept in memory")
		a.outbox = memory.New()
	}

	sink, err := a.buildSink(cfg, healthHandler)
	if err != nil {
		return nil, err
	}
	a.worker = worker.New(a.outbox, sink,
		worker.WithTopic(cfg.Kafka.RequestTopic),
		worker.WithMetrics(outboxmetrics.New(prometheus.DefaultRegisterer)),
		worker.WithLogger(log),
	)

	// Extraction pipeline.
	a.engine = tesseract.New(cfg.OCR.Concurrency, cfg.OCR.TessdataPrefix)
	runner := ocr.NewRunner(a.engine,
		ocr.WithProfiles(profilesFor(cfg.OCR.Languages)),
		ocr.WithConcurrency(cfg.OCR.Concurrency),
		ocr.WithCallTimeout(cfg.OCR.CallTimeout),
		ocr.WithLogger(log),
		ocr.WithMetrics(m),
		ocr.WithTracer(trc),
	)
	documents := docservice.New(runner,
		docservice.WithLogger(log),
		docservice.WithMetrics(m),
		docservice.WithTracer(trc),
	)

	if cfg.Face.URL == "" {
		log.Warn("FACE_SERVICE_URL not set, face comparison will report unavailable")
	}
	faces := face.NewHTTPClient(cfg.Face.URL, cfg.Face.Timeout,
		face.WithBreaker(circuit.New("face_service")),
		face.WithLogger(log),
	)

	pub := publisher.New(a.outbox, guard,
		publisher.WithLogger(log),
		publisher.WithMetrics(m),
		publisher.WithTracer(trc),
	)
	kyc := kycservice.New(sessions, documents, faces, pub, kycservice.ConfigFrom(cfg.KYC),
		kycservice.WithLogger(log),
		kycservice.WithMetrics(m),
		kycservice.WithTracer(trc),
	)

	if cfg.Kafka.Brokers != "" {
		a.consumer, err = consumer.New(kafka.ConsumerConfigFrom(cfg.Kafka), results.NewHandler(kyc, log), log)
		if err != nil {
			return nil, err
		}
		healthHandler.RegisterCheck("kafka_consumer", a.consumer.Health)
	} else {
		log.Warn("KAFKA_BROKERS not set, verification results are not consumed")
	}

	a.router = newRouter(log, healthHandler,
		dochandler.New(documents, log),
		kychandler.New(kyc, log),
	)
	return a, nil
}

func (a *app) buildSink(cfg config.Server, h *health.Handler) (worker.Sink, error) {
	switch cfg.PublishSink {
	case config.SinkKafka:
		if cfg.Kafka.Brokers == "" {
			a.log.Warn("KAFKA_BROKERS not set, verification requests are logged only")
			return logsink.New(a.log), nil
		}
		p, err := producer.New(kafka.ProducerConfigFrom(cfg.Kafka), a.log)
		if err != nil {
			return nil, err
		}
		a.producer = p
		h.RegisterCheck("kafka", kafka.NewHealthChecker(kafka.SplitBrokers(cfg.Kafka.Brokers)).Check)
		return p, nil
	case config.SinkRedisStream:
		if a.redis == nil {
			return nil, fmt.Errorf("publish sink %q requires REDIS_URL", cfg.PublishSink)
		}
		return redisstream.New(a.redis.Client, cfg.Stream.Name, cfg.Stream.MaxLen), nil
	case config.SinkLog:
		return logsink.New(a.log), nil
	default:
		return nil, fmt.Errorf("unknown publish sink %q", cfg.PublishSink)
	}
}

func newRouter(log *slog.Logger, healthHandler *health.Handler, documents *dochandler.Handler, kyc *kychandler.Handler) http.Handler {
	latency := request.NewMetrics()

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.Metadata)
	r.Use(request.Logger(log))
	r.Use(request.LatencyMiddleware(latency))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(request.BodyLimit(maxRequestBytes))
		r.Use(request.Timeout(requestTimeout))
		documents.Register(r)
		kyc.Register(r)
	})
	return r
}

// profilesFor applies the configured Tesseract languages ("eng+hin") to the
// default profiles.
func profilesFor(languages string) []ocr.Profile {
	profiles := ocr.DefaultProfiles()
	var langs []string
	for _, l := range strings.Split(languages, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		return profiles
	}
	for i := range profiles {
		profiles[i].Languages = langs
	}
	return profiles
}

func (a *app) start(ctx context.Context) {
	a.worker.Start()
	if a.consumer != nil {
		a.consumer.Start(ctx)
	}
	if a.redis != nil {
		go a.redis.RunPoolStats(ctx, poolStatsPeriod)
	}
	go a.maintainOutbox(ctx)
}

// maintainOutbox refreshes the pending gauge and prunes delivered entries.
func (a *app) maintainOutbox(ctx context.Context) {
	ticker := time.NewTicker(outboxMaintainPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.worker.UpdateMetrics(ctx); err != nil {
				a.log.WarnContext(ctx, "outbox metrics refresh failed", "error", err)
			}
			n, err := a.outbox.DeleteProcessedBefore(ctx, time.Now().Add(-outboxRetention))
			if err != nil {
				a.log.WarnContext(ctx, "outbox cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				a.log.InfoContext(ctx, "outbox cleanup", "deleted", n)
			}
		}
	}
}

func (a *app) close(ctx context.Context) {
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Error("result consumer stop failed", "error", err)
		}
	}
	if err := a.worker.Stop(ctx); err != nil {
		a.log.Error("outbox worker stop failed", "error", err)
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Error("kafka producer close failed", "error", err)
		}
	}
	if err := a.engine.Close(); err != nil {
		a.log.Error("ocr engine close failed", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.log.Error("database close failed", "error", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("redis close failed", "error", err)
		}
	}
}
