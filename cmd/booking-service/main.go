package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"cancha-booking/internal/auth"
	"cancha-booking/internal/booking"
	bookingapi "cancha-booking/internal/booking/api"
	"cancha-booking/internal/booking/coupon"
	bookingdb "cancha-booking/internal/booking/db"
	"cancha-booking/internal/booking/history"
	"cancha-booking/internal/booking/pass"
	redisholds "cancha-booking/internal/booking/redis"
	"cancha-booking/internal/config"
	"cancha-booking/internal/database/migrations"
	"cancha-booking/internal/games"
	"cancha-booking/internal/kafka"
	"cancha-booking/internal/logger"
	"cancha-booking/internal/payment"
	paymentapi "cancha-booking/internal/payment/api"
	"cancha-booking/internal/payment/wompi"
	"cancha-booking/internal/stats"
	"cancha-booking/internal/team"
	teamapi "cancha-booking/internal/team/api"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.LogDatabase("CONNECT", "postgresql", fmt.Sprintf("Connecting to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN())
		if err == nil {
			err = sqldb.Ping()
			if err == nil {
				break
			}
		}
		log.Error("DATABASE", fmt.Sprintf("PostgreSQL connection failed: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("PostgreSQL unreachable after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	log.LogDatabase("SUCCESS", "postgresql", "PostgreSQL connection established")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting booking service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	runner := migrations.NewRunner(bunDB, migrations.Options{
		MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		SeedData:      getEnv("SEED_DATA", "") == "true",
	})
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	log.Info("DATABASE", "Schema migrations applied")

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, kafka.Topics{
			BookingConfirmed: cfg.Kafka.Topics.BookingConfirmed,
			PaymentUpdated:   cfg.Kafka.Topics.PaymentUpdated,
			TeamUpdated:      cfg.Kafka.Topics.TeamUpdated,
		})
		defer producer.Close()

		topics := []string{
			cfg.Kafka.Topics.BookingConfirmed,
			cfg.Kafka.Topics.PaymentUpdated,
			cfg.Kafka.Topics.TeamUpdated,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured")
		}
	} else {
		log.Warn("KAFKA", "Kafka disabled, events will be dropped")
	}

	dbLayer := &bookingdb.DB{Bun: bunDB}
	holds := redisholds.NewHolds(redisClient, cfg.Wompi.HoldTTL)

	recorder := history.NewRecorder(dbLayer, log,
		cfg.Booking.HistoryQueueSize,
		cfg.Booking.HistoryMaxAttempts,
		cfg.Booking.HistoryRetryBackoff)
	recorder.Start(ctx)

	bookingService := booking.NewService(dbLayer, recorder, holds, producer, log, cfg.Booking.MaxTxAttempts)
	couponService := coupon.NewService(dbLayer, log)

	gatewayClient := wompi.NewClient(&http.Client{Timeout: 10 * time.Second}, cfg.Wompi.BaseURL, log)
	paymentService := payment.NewService(dbLayer, gatewayClient, bookingService, holds, couponService, producer, log, payment.Options{
		Currency:     cfg.Wompi.Currency,
		MinAmount:    cfg.Wompi.MinAmountInCents,
		EventsSecret: cfg.Wompi.EventsSecret,
		PollDelay:    cfg.Wompi.PollDelay,
	})

	teamService := team.NewService(dbLayer, producer, log)
	gamesService := games.NewService(dbLayer)
	statsService := stats.NewService(dbLayer)
	passGenerator := pass.NewGenerator(cfg.Auth.PassSecret)

	bookingHandler := &bookingapi.Handler{
		Booking: bookingService,
		Coupons: couponService,
		Games:   gamesService,
		Stats:   statsService,
		Pass:    passGenerator,
		Logger:  log,
	}
	paymentHandler := &paymentapi.Handler{
		Payments: paymentService,
		Logger:   log,
	}
	teamHandler := &teamapi.Handler{
		Teams:  teamService,
		Logger: log,
	}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/webhooks/wompi", paymentHandler.WompiWebhook)

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/markets", func(r chi.Router) {
				r.Get("/{marketId}", bookingHandler.GetMarket)
				r.Post("/{marketId}/reserve", bookingHandler.ReserveSlot)
				r.Get("/{marketId}/stats", bookingHandler.MarketStats)
			})

			r.Post("/coupons/apply", bookingHandler.ApplyCoupon)

			r.Route("/payments", func(r chi.Router) {
				r.Post("/checkout", paymentHandler.StartCheckout)
				r.Get("/{reference}", paymentHandler.PollStatus)
			})

			r.Route("/games", func(r chi.Router) {
				r.Get("/", bookingHandler.ListGames)
				r.Get("/{gameId}/pass", bookingHandler.GamePass)
			})

			r.Route("/teams", func(r chi.Router) {
				r.Post("/", teamHandler.CreateTeam)
				r.Get("/", teamHandler.ListTeams)
				r.Get("/{teamId}", teamHandler.GetTeam)
				r.Post("/{teamId}/players", teamHandler.AddPlayer)
			})
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	}

	// Flush queued booked-game writes before the DB handle closes.
	recorder.Drain(ctxShutdown)
	cancel()

	log.Info("APP", "Booking service exited gracefully")
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
		})
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
