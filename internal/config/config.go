package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Cookie    CookieConfig
	CORS      CORSConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	MinIO     MinIOConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig drives the sign-up/sign-in flow.
type AuthConfig struct {
	// InstitutionDomain is matched as an "@domain" suffix of the email.
	InstitutionDomain string
	// AllowedEmails bypass the domain restriction (exact, case-insensitive match).
	AllowedEmails     []string
	MinPasswordLength int
	HomePath          string
	PublicURL         string
	VerifyTokenTTL    time.Duration
	SessionTTL        time.Duration
	StoreIdle         time.Duration
	// MaxStores caps live per-client session states; the least recently
	// used one is dropped when a new client arrives at the cap.
	MaxStores int
}

type CookieConfig struct {
	Name   string
	Secure bool
	Domain string
	// Secret signs the client cookie. Defaults to JWT_SECRET.
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type KeycloakConfig struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
	// IPRPS and IPBurst bound each client address regardless of cookie.
	IPRPS   float64
	IPBurst int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("AUTH_INSTITUTION_DOMAIN", "dtu.ac.in")
	viper.SetDefault("AUTH_ALLOWED_EMAILS", "")
	viper.SetDefault("AUTH_MIN_PASSWORD_LENGTH", 6)
	viper.SetDefault("AUTH_HOME_PATH", "/")
	viper.SetDefault("AUTH_PUBLIC_URL", "http://localhost:5001")
	viper.SetDefault("AUTH_VERIFY_TOKEN_TTL", 1440)
	viper.SetDefault("SESSION_TTL", 10080)
	viper.SetDefault("SESSION_STORE_IDLE", 30)
	viper.SetDefault("SESSION_STORE_MAX", 10000)
	viper.SetDefault("COOKIE_NAME", "mm_client")
	viper.SetDefault("COOKIE_SECURE", false)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:8080")
	viper.SetDefault("MONGODB_DATABASE", "multimart")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("MINIO_BUCKET", "multimart-avatars")
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("RATE_LIMIT_IP_RPS", 20)
	viper.SetDefault("RATE_LIMIT_IP_BURST", 40)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			InstitutionDomain: strings.TrimPrefix(strings.TrimSpace(viper.GetString("AUTH_INSTITUTION_DOMAIN")), "@"),
			AllowedEmails:     splitList(viper.GetString("AUTH_ALLOWED_EMAILS")),
			MinPasswordLength: viper.GetInt("AUTH_MIN_PASSWORD_LENGTH"),
			HomePath:          viper.GetString("AUTH_HOME_PATH"),
			PublicURL:         strings.TrimRight(viper.GetString("AUTH_PUBLIC_URL"), "/"),
			VerifyTokenTTL:    time.Duration(viper.GetInt("AUTH_VERIFY_TOKEN_TTL")) * time.Minute,
			SessionTTL:        time.Duration(viper.GetInt("SESSION_TTL")) * time.Minute,
			StoreIdle:         time.Duration(viper.GetInt("SESSION_STORE_IDLE")) * time.Minute,
			MaxStores:         viper.GetInt("SESSION_STORE_MAX"),
		},
		Cookie: CookieConfig{
			Name:   viper.GetString("COOKIE_NAME"),
			Secure: viper.GetBool("COOKIE_SECURE"),
			Domain: viper.GetString("COOKIE_DOMAIN"),
			Secret: os.Getenv("COOKIE_SECRET"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Postgres: PostgresConfig{
			DSN: viper.GetString("POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Keycloak: KeycloakConfig{
			URL:          viper.GetString("KEYCLOAK_URL"),
			Realm:        viper.GetString("KEYCLOAK_REALM"),
			ClientID:     viper.GetString("KEYCLOAK_CLIENT_ID"),
			ClientSecret: viper.GetString("KEYCLOAK_CLIENT_SECRET"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		MinIO: MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			IPRPS:         viper.GetFloat64("RATE_LIMIT_IP_RPS"),
			IPBurst:       viper.GetInt("RATE_LIMIT_IP_BURST"),
		},
	}

	// Basic validation
	if cfg.JWT.Secret == "" {
		log.Println("WARNING: JWT_SECRET is not set; verification links and admin tokens will be rejected")
	}
	if cfg.Cookie.Secret == "" {
		cfg.Cookie.Secret = cfg.JWT.Secret
	}
	if cfg.Auth.MinPasswordLength <= 0 {
		cfg.Auth.MinPasswordLength = 6
	}

	return cfg, nil
}

// splitList parses a comma separated env value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
