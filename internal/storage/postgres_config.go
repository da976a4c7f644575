package storage

import "time"

const defaultPostgresOperationTimeout = 5 * time.Second

// PostgresConfig describes how the repository initialises its Postgres
// connection pool.
type PostgresConfig struct {
	DSN                 string
	MaxConnections      int32
	MinConnections      int32
	MaxConnLifetime     time.Duration
	MaxConnIdleTime     time.Duration
	HealthCheckInterval time.Duration
	AcquireTimeout      time.Duration
	ApplicationName     string
	// OperationTimeout bounds each repository call. Operations run on a
	// background context so a cancelled request does not abandon a
	// statement mid-flight.
	OperationTimeout time.Duration
}

func (cfg PostgresConfig) operationTimeout() time.Duration {
	if cfg.OperationTimeout > 0 {
		return cfg.OperationTimeout
	}
	return defaultPostgresOperationTimeout
}
