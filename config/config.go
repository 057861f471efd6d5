package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"beacon-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"beacon"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis (alert send throttling)
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Kafka Consumer (listings service output - run triggers)
	KafkaBrokers             []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaPropertyEventsTopic string   `env:"KAFKA_PROPERTY_EVENTS_TOPIC" env-default:"property-events"`
	KafkaConsumerGroup       string   `env:"KAFKA_CONSUMER_GROUP" env-default:"beacon-consumer"`
	KafkaConsumerEnabled     bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka Producer settings
	KafkaAuditTopic     string `env:"KAFKA_AUDIT_TOPIC" env-default:"alert-audit"`
	KafkaEmailJobsTopic string `env:"KAFKA_EMAIL_JOBS_TOPIC" env-default:"email-jobs"`
	KafkaBatchSize      int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout   int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks   int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression    string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Alert runs
	RunWorkerCount           int           `env:"RUN_WORKER_COUNT" env-default:"8"`
	RunBuyerTimeout          time.Duration `env:"RUN_BUYER_TIMEOUT" env-default:"5s"`
	MatchThreshold           float64       `env:"MATCH_THRESHOLD" env-default:"0.6"`
	CompoundMatchThreshold   float64       `env:"COMPOUND_MATCH_THRESHOLD" env-default:"0.4"`
	CompoundMatchMinCriteria int           `env:"COMPOUND_MATCH_MIN_CRITERIA" env-default:"2"`

	// Alert dispatch
	AlertRateLimit       int           `env:"ALERT_RATE_LIMIT" env-default:"20"`
	AlertRateLimitWindow time.Duration `env:"ALERT_RATE_LIMIT_WINDOW" env-default:"1h"`

	// Tracing
	OTLPEnabled  bool   `env:"OTLP_ENABLED" env-default:"false"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTLPProtocol string `env:"OTLP_PROTOCOL" env-default:"grpc"`
}
