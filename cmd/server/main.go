// Command server starts the VideoTube API HTTP service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"videotube/internal/api"
	"videotube/internal/assets"
	"videotube/internal/auth"
	"videotube/internal/media"
	"videotube/internal/observability/logging"
	"videotube/internal/server"
	"videotube/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	postgresOpTimeout := flag.Duration("postgres-op-timeout", 0, "deadline applied to each Postgres statement")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	redisUsername := flag.String("rate-redis-username", "", "Redis username for distributed login throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	corsOrigins := flag.String("cors-origins", "", "comma separated origins allowed to call the API")
	objectEndpoint := flag.String("object-endpoint", "", "object storage endpoint (e.g. http://127.0.0.1:9000)")
	objectRegion := flag.String("object-region", "", "object storage region")
	objectAccessKey := flag.String("object-access-key", "", "object storage access key")
	objectSecretKey := flag.String("object-secret-key", "", "object storage secret key")
	objectBucket := flag.String("object-bucket", "", "object storage bucket name")
	objectUseSSL := flag.Bool("object-use-ssl", false, "enable TLS for object storage requests")
	objectPrefix := flag.String("object-prefix", "", "object storage key prefix")
	objectPublicEndpoint := flag.String("object-public-endpoint", "", "public endpoint used for playback URLs")
	mediaTimeout := flag.Duration("media-timeout", 0, "deadline applied to each remote asset transfer")
	stagingDir := flag.String("staging-dir", "", "directory for spooling uploads before transfer")
	sessionTTL := flag.Duration("session-ttl", 0, "absolute session lifetime (default 24h)")
	sessionIdle := flag.Duration("session-idle-timeout", 0, "idle session timeout (0 disables idle expiry)")
	sessionPurgeInterval := flag.Duration("session-purge-interval", 0, "interval between expired session sweeps (default 15m)")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("VIDEOTUBE_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("VIDEOTUBE_LOG_FORMAT")),
	})

	listenAddr := firstNonEmpty(*addr, os.Getenv("VIDEOTUBE_ADDR"), ":8080")

	driver := strings.ToLower(firstNonEmpty(*storageDriver, os.Getenv("VIDEOTUBE_STORAGE_DRIVER"), "json"))
	var (
		store storage.Repository
		err   error
	)
	switch driver {
	case "json":
		dataFile := firstNonEmpty(*dataPath, os.Getenv("VIDEOTUBE_DATA"), "videotube.json")
		store, err = storage.NewStorage(dataFile)
	case "postgres":
		dsn := firstNonEmpty(*postgresDSN, os.Getenv("VIDEOTUBE_POSTGRES_DSN"))
		if dsn == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		store, err = storage.NewPostgresRepository(storage.PostgresConfig{
			DSN:                 dsn,
			MaxConnections:      int32(resolveInt(*postgresMaxConns, "VIDEOTUBE_POSTGRES_MAX_CONNS")),
			MinConnections:      int32(resolveInt(*postgresMinConns, "VIDEOTUBE_POSTGRES_MIN_CONNS")),
			MaxConnLifetime:     resolveDuration(*postgresMaxConnLifetime, "VIDEOTUBE_POSTGRES_MAX_CONN_LIFETIME", 0),
			MaxConnIdleTime:     resolveDuration(*postgresMaxConnIdle, "VIDEOTUBE_POSTGRES_MAX_CONN_IDLE", 0),
			HealthCheckInterval: resolveDuration(*postgresHealthInterval, "VIDEOTUBE_POSTGRES_HEALTH_INTERVAL", 0),
			AcquireTimeout:      resolveDuration(*postgresAcquireTimeout, "VIDEOTUBE_POSTGRES_ACQUIRE_TIMEOUT", 0),
			ApplicationName:     firstNonEmpty(*postgresAppName, os.Getenv("VIDEOTUBE_POSTGRES_APP_NAME")),
			OperationTimeout:    resolveDuration(*postgresOpTimeout, "VIDEOTUBE_POSTGRES_OP_TIMEOUT", 0),
		})
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	assetStore := assets.NewStore(assets.Config{
		Endpoint:       firstNonEmpty(*objectEndpoint, os.Getenv("VIDEOTUBE_OBJECT_ENDPOINT")),
		Region:         firstNonEmpty(*objectRegion, os.Getenv("VIDEOTUBE_OBJECT_REGION")),
		AccessKey:      firstNonEmpty(*objectAccessKey, os.Getenv("VIDEOTUBE_OBJECT_ACCESS_KEY")),
		SecretKey:      firstNonEmpty(*objectSecretKey, os.Getenv("VIDEOTUBE_OBJECT_SECRET_KEY")),
		Bucket:         firstNonEmpty(*objectBucket, os.Getenv("VIDEOTUBE_OBJECT_BUCKET")),
		UseSSL:         resolveBool(*objectUseSSL, "VIDEOTUBE_OBJECT_USE_SSL"),
		Prefix:         strings.TrimSpace(firstNonEmpty(*objectPrefix, os.Getenv("VIDEOTUBE_OBJECT_PREFIX"))),
		PublicEndpoint: firstNonEmpty(*objectPublicEndpoint, os.Getenv("VIDEOTUBE_OBJECT_PUBLIC_ENDPOINT")),
	})
	if !assetStore.Enabled() {
		logger.Warn("object storage not configured, asset transfers are no-ops")
	}
	manager := media.NewManager(assetStore, logging.WithComponent(logger, "media"),
		resolveDuration(*mediaTimeout, "VIDEOTUBE_MEDIA_TIMEOUT", 0))

	sessionOptions := []auth.SessionOption{}
	if idle := resolveDuration(*sessionIdle, "VIDEOTUBE_SESSION_IDLE_TIMEOUT", 0); idle > 0 {
		sessionOptions = append(sessionOptions, auth.WithIdleTimeout(idle))
	}
	sessions := auth.NewSessionManager(resolveDuration(*sessionTTL, "VIDEOTUBE_SESSION_TTL", 24*time.Hour), sessionOptions...)

	handler := api.NewHandler(store, sessions, manager)
	handler.StagingDir = firstNonEmpty(*stagingDir, os.Getenv("VIDEOTUBE_STAGING_DIR"))
	handler.Logger = logging.WithComponent(logger, "api")

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("VIDEOTUBE_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("VIDEOTUBE_TLS_KEY")),
		},
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     resolveFloat(*globalRPS, "VIDEOTUBE_RATE_GLOBAL_RPS"),
			GlobalBurst:   resolveInt(*globalBurst, "VIDEOTUBE_RATE_GLOBAL_BURST"),
			LoginLimit:    resolveInt(*loginLimit, "VIDEOTUBE_RATE_LOGIN_LIMIT"),
			LoginWindow:   resolveDuration(*loginWindow, "VIDEOTUBE_RATE_LOGIN_WINDOW", time.Minute),
			RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("VIDEOTUBE_RATE_REDIS_ADDR")),
			RedisUsername: firstNonEmpty(*redisUsername, os.Getenv("VIDEOTUBE_RATE_REDIS_USERNAME")),
			RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("VIDEOTUBE_RATE_REDIS_PASSWORD")),
			RedisTimeout:  resolveDuration(*redisTimeout, "VIDEOTUBE_RATE_REDIS_TIMEOUT", 2*time.Second),
		},
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("VIDEOTUBE_CORS_ORIGINS"))),
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	purgeStop := startSessionPurgeWorker(ctx, logging.WithComponent(logger, "session-purger"), sessions,
		resolveDuration(*sessionPurgeInterval, "VIDEOTUBE_SESSION_PURGE_INTERVAL", 15*time.Minute))
	defer purgeStop()

	logger.Info("VideoTube API listening", "addr", listenAddr, "storage", driver)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
	}

	purgeStop()

	// Let detached orphan cleanups finish before the process exits.
	manager.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(shutdownCtx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}

	logger.Info("server stopped")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue != 0 {
		return flagValue
	}
	if raw := strings.TrimSpace(os.Getenv(envKey)); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			return value
		}
	}
	return flagValue
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue != 0 {
		return flagValue
	}
	if raw := strings.TrimSpace(os.Getenv(envKey)); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil {
			return value
		}
	}
	return flagValue
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue != 0 {
		return flagValue
	}
	if raw := strings.TrimSpace(os.Getenv(envKey)); raw != "" {
		if value, err := time.ParseDuration(raw); err == nil {
			return value
		}
	}
	return fallback
}

func resolveBool(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}
	if raw := strings.TrimSpace(os.Getenv(envKey)); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			return value
		}
	}
	return flagValue
}
