package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/marcwilliam910/scm/internal/hub"
	"github.com/marcwilliam910/scm/internal/mail"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/internal/storage"
	pkgconfig "github.com/marcwilliam910/scm/pkg/config"
	"github.com/marcwilliam910/scm/pkg/log"
)

type Config struct {
	Server    ServerConfig
	App       AppConfig
	Mongo     repository.MongoConfig
	Redis     repository.RedisConfig
	Auth      AuthConfig
	Mail      mail.Config
	Storage   StorageConfig
	WebSocket hub.Options
	CORS      CORSConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

// AppConfig holds application-level settings. BaseURL prefixes the links
// embedded in outgoing mail.
type AppConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	VerifyTokenTTL time.Duration `mapstructure:"verify_token_ttl"`
	ResetTokenTTL  time.Duration `mapstructure:"reset_token_ttl"`
}

// StorageConfig selects the file storage backend: "s3" or "local".
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	S3      storage.S3Config
	Local   storage.LocalConfig
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("app.base_url", "http://localhost:8000")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "marketplace")
	v.SetDefault("mongo.max_pool_size", 100)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.issuer", "marketplace")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.verify_token_ttl", "24h")
	v.SetDefault("auth.reset_token_ttl", "1h")
	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "no-reply@localhost")
	v.SetDefault("mail.from_name", "Marketplace")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.base_path", "./uploads")
	v.SetDefault("storage.local.base_url", "http://localhost:8000/uploads")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("app.base_url", "BASE_URL")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.database", "MONGO_DATABASE")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("mail.host", "MAIL_HOST")
	v.BindEnv("mail.port", "MAIL_PORT")
	v.BindEnv("mail.username", "MAIL_USERNAME")
	v.BindEnv("mail.password", "MAIL_PASSWORD")
	v.BindEnv("mail.from", "MAIL_FROM")
	v.BindEnv("storage.backend", "STORAGE_BACKEND")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("storage.s3.public_url", "S3_PUBLIC_URL")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Auth.AccessTokenTTL = parseDuration(v, "auth.access_token_ttl", 15*time.Minute)
	cfg.Auth.VerifyTokenTTL = parseDuration(v, "auth.verify_token_ttl", 24*time.Hour)
	cfg.Auth.ResetTokenTTL = parseDuration(v, "auth.reset_token_ttl", time.Hour)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
