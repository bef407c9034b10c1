package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Supported durable media for the attendance document.
const (
	BackendBolt     = "bolt"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// App holds the runtime configuration loaded from the environment (and an optional .env file).
type App struct {
	Env      string
	HTTPPort string

	// Durable medium
	StoreBackend string
	BoltPath     string
	RedisAddr    string
	RedisPrefix  string
	DatabaseURL  string
	SQLitePath   string

	// Backup export
	BackupIdentifier string

	// Device pairing / auth
	AuthEnabled   bool
	PairingCode   string
	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Roster parser (generative AI)
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	GeminiTimeout time.Duration

	// Spreadsheet webhook sync
	SyncTimeout   time.Duration
	SyncIdleDelay time.Duration

	// Off-site backups (optional)
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	B2KeyID             string
	B2AppKey            string
	B2Bucket            string

	RateLimitPerMin int
}

// Load returns application config populated from environment variables with sensible defaults.
// A .env file (or the file named by ENV_FILE) is read first when it exists.
func Load() (App, error) {
	if err := loadDotEnv(); err != nil {
		return App{}, err
	}
	return FromViper(newViper())
}

// FromViper builds the config from an already prepared viper instance.
func FromViper(v *viper.Viper) (App, error) {
	cfg := App{
		Env:                 v.GetString("APP_ENV"),
		HTTPPort:            v.GetString("HTTP_PORT"),
		StoreBackend:        strings.ToLower(v.GetString("STORE_BACKEND")),
		BoltPath:            v.GetString("BOLT_PATH"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPrefix:         v.GetString("REDIS_PREFIX"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		SQLitePath:          v.GetString("SQLITE_PATH"),
		BackupIdentifier:    v.GetString("BACKUP_IDENTIFIER"),
		AuthEnabled:         v.GetBool("AUTH_ENABLED"),
		PairingCode:         v.GetString("PAIRING_CODE"),
		JWTIssuer:           v.GetString("JWT_ISSUER"),
		JWTSigningKey:       v.GetString("JWT_SIGNING_KEY"),
		AccessTTL:           v.GetDuration("ACCESS_TTL"),
		RefreshTTL:          v.GetDuration("REFRESH_TTL"),
		GeminiAPIKey:        v.GetString("GEMINI_API_KEY"),
		GeminiModel:         v.GetString("GEMINI_MODEL"),
		GeminiBaseURL:       v.GetString("GEMINI_BASE_URL"),
		GeminiTimeout:       v.GetDuration("GEMINI_TIMEOUT"),
		SyncTimeout:         v.GetDuration("SYNC_TIMEOUT"),
		SyncIdleDelay:       v.GetDuration("SYNC_IDLE_DELAY"),
		CloudinaryCloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    v.GetString("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: v.GetString("CLOUDINARY_API_SECRET"),
		CloudinaryFolder:    v.GetString("CLOUDINARY_FOLDER"),
		B2KeyID:             v.GetString("B2_KEY_ID"),
		B2AppKey:            v.GetString("B2_APP_KEY"),
		B2Bucket:            v.GetString("B2_BUCKET"),
		RateLimitPerMin:     v.GetInt("RATE_LIMIT_PER_MIN"),
	}
	return cfg, cfg.validate()
}

// IsProduction reports whether the service runs with production settings.
func (a App) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

func (a App) validate() error {
	var problems []string

	switch a.StoreBackend {
	case BackendBolt, BackendRedis, BackendPostgres, BackendSQLite:
	default:
		problems = append(problems, "STORE_BACKEND must be one of bolt, redis, postgres, sqlite")
	}
	if a.StoreBackend == BackendPostgres && a.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required for the postgres backend")
	}
	if a.AuthEnabled && a.PairingCode == "" {
		problems = append(problems, "PAIRING_CODE is required when AUTH_ENABLED is set")
	}
	if a.AuthEnabled && a.IsProduction() && a.JWTSigningKey == defaultSigningKey {
		problems = append(problems, "JWT_SIGNING_KEY must be changed in production")
	}

	if len(problems) > 0 {
		return errors.Errorf("config validation failed: %s", strings.Join(problems, ", "))
	}
	return nil
}

const defaultSigningKey = "dev-signing-secret-change"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_PORT", "8081")
	v.SetDefault("STORE_BACKEND", BackendBolt)
	v.SetDefault("BOLT_PATH", "./data/asistencia.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PREFIX", "asistencia:")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "./data/asistencia.sqlite")
	v.SetDefault("BACKUP_IDENTIFIER", "JULIA")
	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("PAIRING_CODE", "")
	v.SetDefault("JWT_ISSUER", "asistencia")
	v.SetDefault("JWT_SIGNING_KEY", defaultSigningKey)
	v.SetDefault("ACCESS_TTL", 12*time.Hour)
	v.SetDefault("REFRESH_TTL", 30*24*time.Hour)
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-3-flash-preview")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("GEMINI_TIMEOUT", 60*time.Second)
	v.SetDefault("SYNC_TIMEOUT", 30*time.Second)
	v.SetDefault("SYNC_IDLE_DELAY", 2*time.Second)
	v.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	v.SetDefault("CLOUDINARY_API_KEY", "")
	v.SetDefault("CLOUDINARY_API_SECRET", "")
	v.SetDefault("CLOUDINARY_FOLDER", "asistencia/backups")
	v.SetDefault("B2_KEY_ID", "")
	v.SetDefault("B2_APP_KEY", "")
	v.SetDefault("B2_BUCKET", "")
	v.SetDefault("RATE_LIMIT_PER_MIN", 240)

	v.AutomaticEnv()
	return v
}

func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "config.stat(%s)", path)
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "config.godotenv(%s)", path)
	}
	return nil
}
