package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	LogLevel              string
	StoreBackend          string
	DatabaseURL           string
	SQLitePath            string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RedisLock             bool
	KVNamespace           string
	SeedProducts          bool
	BackupSink            string
	BackupDir             string
	S3Bucket              string
	S3Region              string
	S3Endpoint            string
	GCSBucket             string
	BackupPrefix          string
	AuthSecret            string
	AccessTokenTTLMinutes int
	AdminPassword         string
	CashierPassword       string
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

const (
	SinkNone = "none"
	SinkFile = "file"
	SinkS3   = "s3"
	SinkGCS  = "gcs"
)

// Load reads configuration from the environment. Values from a .env file in
// the working directory fill in variables that are not already set.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	sqlitePath := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	defaultBackend := BackendMemory
	if sqlitePath != "" {
		defaultBackend = BackendSQLite
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		StoreBackend:          strings.ToLower(getEnv("STORE_BACKEND", defaultBackend)),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		SQLitePath:            sqlitePath,
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		RedisLock:             getBool("REDIS_LOCK", false),
		KVNamespace:           getEnv("KV_NAMESPACE", "quicksale"),
		SeedProducts:          getBool("SEED_PRODUCTS", true),
		BackupSink:            strings.ToLower(getEnv("BACKUP_SINK", SinkNone)),
		BackupDir:             getEnv("BACKUP_DIR", "backups"),
		S3Bucket:              os.Getenv("S3_BUCKET"),
		S3Region:              getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:            os.Getenv("S3_ENDPOINT"),
		GCSBucket:             os.Getenv("GCS_BUCKET"),
		BackupPrefix:          getEnv("BACKUP_PREFIX", "quicksale/"),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		AdminPassword:         strings.TrimSpace(os.Getenv("ADMIN_PASSWORD")),
		CashierPassword:       strings.TrimSpace(os.Getenv("CASHIER_PASSWORD")),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Validate checks that the selected backend and sink have what they need.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("STORE_BACKEND=redis requires REDIS_ADDR")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("STORE_BACKEND=sqlite requires SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.BackupSink {
	case SinkNone, SinkFile:
	case SinkS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("BACKUP_SINK=s3 requires S3_BUCKET")
		}
	case SinkGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("BACKUP_SINK=gcs requires GCS_BUCKET")
		}
	default:
		return fmt.Errorf("unknown BACKUP_SINK %q", c.BackupSink)
	}
	return nil
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getBool(key string, fallback bool) bool {
	val, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return val
}
