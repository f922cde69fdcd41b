package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/medibook-health/medibook/libs/config"
	"github.com/medibook-health/medibook/libs/db"
	"github.com/medibook-health/medibook/libs/httpx"
	"github.com/medibook-health/medibook/libs/kafkax"
	otelx "github.com/medibook-health/medibook/libs/otel"
	"github.com/medibook-health/medibook/libs/runtime"
	"github.com/medibook-health/medibook/services/booking-service/internal/booking"
	"github.com/medibook-health/medibook/services/booking-service/internal/handlers"
	"github.com/medibook-health/medibook/services/booking-service/internal/outbox"
	"github.com/medibook-health/medibook/services/booking-service/internal/storage"
	"github.com/medibook-health/medibook/services/booking-service/internal/template"
	"github.com/medibook-health/medibook/services/booking-service/migrations"
)

func main() {
	config.LoadDotenv()
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.DefaultOptions())
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.FS, "."); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	appointmentRepo := storage.NewAppointmentRepository(pool)
	templateRepo := storage.NewTemplateRepository(pool)
	directoryRepo := storage.NewDirectoryRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	resolver := template.NewResolver(directoryRepo)
	emitter := booking.NewEmitter(outboxRepo, logger)
	svc := booking.NewService(appointmentRepo, templateRepo, resolver, directoryRepo, emitter, logger)

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	bookingHandler := handlers.NewBookingHandler(svc, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)

	// Public discovery and booking endpoints sit behind a per-client rate
	// limit; the authenticated lifecycle endpoints do not. Redis backs the
	// limiter when configured so the window is shared across replicas,
	// otherwise a per-process in-memory window applies.
	publicRate := config.Int("PUBLIC_RATE_LIMIT", 120)
	var limitMW httpx.Middleware
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			panic(err)
		}
		limiter := httpx.NewRedisRateLimiter(
			redis.NewClient(redisOpts),
			publicRate,
			time.Minute,
			"booking:rl",
		)
		limitMW = limiter.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	} else {
		limitMW = httpx.NewRateLimiter(publicRate, time.Minute).Middleware()
	}
	publicLimit := func(h http.HandlerFunc) http.Handler { return limitMW(h) }

	mux.Handle("/api/v1/public/slots", publicLimit(bookingHandler.Slots))
	mux.Handle("/api/v1/public/availability", publicLimit(bookingHandler.Availability))
	mux.Handle("/api/v1/public/book", publicLimit(bookingHandler.Book))
	mux.HandleFunc("/api/v1/appointments", bookingHandler.List)
	mux.HandleFunc("/api/v1/appointments/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/appointments/reschedule", bookingHandler.Reschedule)
	mux.HandleFunc("/api/v1/appointments/complete", bookingHandler.Complete)
	mux.HandleFunc("/api/v1/providers/templates", bookingHandler.Templates)

	cors := httpx.CORSPolicy{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-Id"},
		MaxAge:         time.Hour,
	}
	if origins := config.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cors.AllowedOrigins = strings.Split(origins, ",")
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecovery(logger),
		httpx.WithCORS(cors),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(30*time.Second),
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
