package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/artista-service/config"
	"github.com/fekuna/artista-service/migrations"
	"github.com/fekuna/artista-service/pkg/broker"
	"github.com/fekuna/artista-service/pkg/cache"
	"github.com/fekuna/artista-service/pkg/database/postgres"
	"github.com/fekuna/artista-service/pkg/i18n"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/fekuna/artista-service/pkg/middleware"
	"github.com/fekuna/artista-service/pkg/search"

	"github.com/fekuna/artista-service/internal/assist"
	assistH "github.com/fekuna/artista-service/internal/assist/handler"
	"github.com/fekuna/artista-service/internal/identity"
	idH "github.com/fekuna/artista-service/internal/identity/handler"
	idRepoPkg "github.com/fekuna/artista-service/internal/identity/repository"
	idUCPkg "github.com/fekuna/artista-service/internal/identity/usecase"
	"github.com/fekuna/artista-service/internal/product"
	prodH "github.com/fekuna/artista-service/internal/product/handler"
	prodListenerPkg "github.com/fekuna/artista-service/internal/product/listener"
	prodRepoPkg "github.com/fekuna/artista-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/artista-service/internal/product/usecase"
	profRepoPkg "github.com/fekuna/artista-service/internal/profile/repository"
	profUCPkg "github.com/fekuna/artista-service/internal/profile/usecase"
	"github.com/fekuna/artista-service/internal/scratch"
	"github.com/fekuna/artista-service/internal/session"
	sessionH "github.com/fekuna/artista-service/internal/session/handler"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 1.5 Initialize i18n
	if err := i18n.Init(); err != nil {
		log.Fatalf("failed to load locales: %v", err)
	}
	for _, path := range cfg.I18n.ExtraFiles {
		if err := i18n.Load(path); err != nil {
			log.Printf("Failed to load locale file %s: %v", path, err)
		}
	}

	// 2. Initialize Logger
	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     cfg.IsDevelopment(),
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer appLogger.Sync()

	instanceID := uuid.New().String()
	appLogger = appLogger.With(zap.String("instance", instanceID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Repositories
	prodRepo := prodRepoPkg.NewPGRepository(db)
	profRepo := profRepoPkg.NewPGRepository(db)
	idRepo := idRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5.2 Migrate, one instance at a time
	if cfg.Postgres.AutoMigrate {
		if err := migrateLocked(ctx, db, redisClient, instanceID, appLogger); err != nil {
			appLogger.Fatal("Could not migrate database", zap.Error(err))
		}
	}

	// 5.5 Initialize Kafka
	var (
		events        product.EventPublisher
		kafkaConsumer *broker.KafkaConsumer
	)
	if cfg.Kafka.Enabled {
		brokerCfg := &broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}
		producer := broker.NewProducer(brokerCfg)
		defer producer.Close()
		events = producer

		kafkaConsumer = broker.NewConsumer(brokerCfg)
		defer kafkaConsumer.Close()
		appLogger.Info("Connected to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// 5.8 Initialize Elasticsearch
	var searchIndex product.SearchIndex
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch, search falls back to Postgres", zap.Error(err))
	} else {
		searchIndex = esClient
		appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
	}

	// 5.9 Initialize scratch space
	var kv scratch.KV
	switch cfg.Scratch.Backend {
	case "sqlite":
		sq, err := scratch.NewSQLiteKV(ctx, cfg.Scratch.SQLitePath)
		if err != nil {
			appLogger.Fatal("Could not open scratch database", zap.String("path", cfg.Scratch.SQLitePath), zap.Error(err))
		}
		defer sq.Close()
		kv = sq
	default:
		kv = scratch.NewRedisKV(redisClient.Client)
	}
	appLogger.Info("Scratch space ready", zap.String("backend", cfg.Scratch.Backend))

	assistGateway, err := assist.NewGateway(ctx, assist.Config{
		APIKey:     cfg.GenAI.APIKey,
		TextModel:  cfg.GenAI.TextModel,
		ImageModel: cfg.GenAI.ImageModel,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Could not create assist gateway", zap.Error(err))
	}

	// 6. Initialize UseCases
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, redisClient, searchIndex, events, instanceID, appLogger)
	profUC := profUCPkg.NewProfileUseCase(profRepo, redisClient, appLogger)

	hub := identity.NewHub()
	idUC := idUCPkg.NewIdentityUseCase(idRepo, profUC, redisClient, hub, idUCPkg.Config{
		SecretKey: cfg.JWT.SecretKey,
		TokenTTL:  cfg.JWT.TokenTTL,
	}, appLogger)

	sessions := session.NewManager(
		session.NewCatalogGateway(prodUC, profUC),
		scratch.NewStore(kv, appLogger),
		assistGateway,
		session.Config{
			WindowSize:      cfg.Catalog.WindowSize,
			SuggestDebounce: cfg.Catalog.SuggestDebounce,
			DefaultLanguage: cfg.I18n.DefaultLanguage,
		},
		appLogger,
	)
	defer sessions.Close()
	unsubscribe := hub.OnIdentityChange(sessions.OnIdentityChange)
	defer unsubscribe()

	// 6.5 Initialize Listeners
	if kafkaConsumer != nil {
		catalogListener := prodListenerPkg.NewCatalogListener(kafkaConsumer, prodUC, sessions, instanceID, appLogger)
		go catalogListener.Start(ctx)
	}

	// 7. Initialize Handlers
	idHandler := idH.NewIdentityHandler(idUC, appLogger)
	prodHandler := prodH.NewProductHandler(prodUC, appLogger)
	sessHandler := sessionH.NewSessionHandler(sessions, appLogger)
	assistHandler := assistH.NewAssistHandler(assistGateway, appLogger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(appLogger))
	r.Use(middleware.Language(languages(cfg.I18n.DefaultLanguage, i18n.Languages())))

	idHandler.RegisterRoutes(r)
	prodHandler.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(idH.Authenticator(idUC), appLogger))
		sessHandler.RegisterRoutes(r)
		assistHandler.RegisterRoutes(r)
	})

	httpServer := &http.Server{
		Addr:              normalizePort(cfg.Server.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 8. Start gRPC health server
	lis, err := net.Listen("tcp", normalizePort(cfg.Server.GRPCPort))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(middleware.UnaryLogger(appLogger)),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	// Register Reflection
	reflection.Register(grpcServer)

	appLogger.Info("Starting servers", zap.String("http", httpServer.Addr), zap.String("grpc", lis.Addr().String()))

	// Graceful Shutdown
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve gRPC", zap.Error(err))
		}
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve HTTP", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown incomplete", zap.Error(err))
	}
	grpcServer.GracefulStop()
	cancel()
	appLogger.Info("Server stopped")
}

const (
	migrateLockKey = "artista:migrate"
	migrateLockTTL = 2 * time.Minute
)

// migrateLocked runs the migrations while holding a Redis lock so that instances
// starting together do not race on schema_migrations.
func migrateLocked(ctx context.Context, db *sqlx.DB, rc *cache.RedisClient, owner string, log logger.ZapLogger) error {
	waitCtx, cancel := context.WithTimeout(ctx, migrateLockTTL)
	defer cancel()

	for {
		ok, err := rc.AcquireLock(waitCtx, migrateLockKey, owner, migrateLockTTL)
		if err != nil {
			return err
		}
		if ok {
			break
		}
		log.Info("Waiting for another instance to finish migrating")
		select {
		case <-waitCtx.Done():
			return waitCtx.Err()
		case <-time.After(time.Second):
		}
	}
	defer func() {
		if err := rc.ReleaseLock(context.WithoutCancel(ctx), migrateLockKey, owner); err != nil {
			log.Warn("Failed to release migration lock", zap.Error(err))
		}
	}()

	return postgres.Migrate(ctx, db, migrations.FS, log)
}

func normalizePort(port string) string {
	if !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

// languages puts def first so it is the fallback match.
func languages(def string, available []string) []string {
	out := []string{def}
	for _, l := range available {
		if l != def {
			out = append(out, l)
		}
	}
	return out
}
