package config

import (
	"time"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/avatar"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/upload"
	pkgconfig "github.com/weiawesome/wes-io-live/avatar-service/pkg/config"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/pubsub"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/storage"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Avatar    AvatarConfig    `mapstructure:"avatar"`
	Events    pubsub.Config   `mapstructure:"events"`
	Log       LogConfig       `mapstructure:"log"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	TimeZone        string `mapstructure:"timezone"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig selects the avatar URL cache: "redis", "memory" or "none".
type CacheConfig struct {
	Driver     string        `mapstructure:"driver"`
	Prefix     string        `mapstructure:"prefix"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessDuration time.Duration `mapstructure:"access_duration"`
}

type StorageConfig struct {
	Type  string              `mapstructure:"type"`
	S3    storage.S3Config    `mapstructure:"s3"`
	Local storage.LocalConfig `mapstructure:"local"`
}

type AvatarConfig struct {
	PublicURL            string `mapstructure:"public_url"`
	GravatarBase         string `mapstructure:"gravatar_base"`
	Salt                 string `mapstructure:"salt"`
	MaxFileUploadSizeMiB int    `mapstructure:"max_file_upload_size_mib"`
	Size                 int    `mapstructure:"size"`
	MediumSize           int    `mapstructure:"medium_size"`
}

// ResolverConfig returns the URL resolver settings.
func (c AvatarConfig) ResolverConfig() avatar.Config {
	return avatar.Config{
		PublicURL:    c.PublicURL,
		GravatarBase: c.GravatarBase,
		Salt:         c.Salt,
		MediumSize:   c.MediumSize,
	}
}

// UploadConfig returns the uploader settings.
func (c AvatarConfig) UploadConfig() upload.Config {
	return upload.Config{
		MaxSizeMiB: c.MaxFileUploadSizeMiB,
		Size:       c.Size,
		MediumSize: c.MediumSize,
	}
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// BootstrapConfig seeds a realm and its owner at startup when Realm is set.
type BootstrapConfig struct {
	Realm      string `mapstructure:"realm"`
	AdminEmail string `mapstructure:"admin_email"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "avatar_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.file_path", "./data/avatar.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.driver", "redis")
	v.SetDefault("cache.prefix", "avatar")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("auth.issuer", "wes-io-live")
	v.SetDefault("auth.access_duration", "15m")
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.bucket", "avatars")
	v.SetDefault("storage.s3.use_path_style", true)
	v.SetDefault("storage.local.base_path", "./data/user_avatars")
	v.SetDefault("avatar.public_url", avatar.DefaultPublicURL)
	v.SetDefault("avatar.gravatar_base", avatar.DefaultGravatarBase)
	v.SetDefault("avatar.salt", "")
	v.SetDefault("avatar.max_file_upload_size_mib", upload.DefaultMaxSizeMiB)
	v.SetDefault("avatar.size", upload.DefaultAvatarSize)
	v.SetDefault("avatar.medium_size", upload.DefaultMediumSize)
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.redis.address", "localhost:6379")
	v.SetDefault("events.kafka.brokers", "localhost:9092")
	v.SetDefault("events.kafka.partitions", 3)
	v.SetDefault("log.level", "info")

	// Bind environment variables
	err = pkgconfig.BindEnvs(v, map[string]string{
		"server.port":                     "PORT",
		"database.driver":                 "DB_DRIVER",
		"database.host":                   "DB_HOST",
		"database.port":                   "DB_PORT",
		"database.user":                   "DB_USER",
		"database.password":               "DB_PASSWORD",
		"database.dbname":                 "DB_NAME",
		"database.sslmode":                "DB_SSLMODE",
		"database.file_path":              "DB_FILE_PATH",
		"redis.address":                   "REDIS_ADDRESS",
		"redis.password":                  "REDIS_PASSWORD",
		"cache.driver":                    "CACHE_DRIVER",
		"auth.jwt_secret":                 "JWT_SECRET",
		"auth.issuer":                     "JWT_ISSUER",
		"storage.type":                    "STORAGE_TYPE",
		"storage.s3.endpoint":             "S3_ENDPOINT",
		"storage.s3.region":               "S3_REGION",
		"storage.s3.bucket":               "S3_BUCKET",
		"storage.s3.access_key_id":        "S3_ACCESS_KEY_ID",
		"storage.s3.secret_access_key":    "S3_SECRET_ACCESS_KEY",
		"storage.local.base_path":         "STORAGE_LOCAL_PATH",
		"avatar.public_url":               "AVATAR_PUBLIC_URL",
		"avatar.salt":                     "AVATAR_SALT",
		"avatar.max_file_upload_size_mib": "AVATAR_MAX_UPLOAD_MIB",
		"events.driver":                   "EVENTS_DRIVER",
		"events.redis.address":            "EVENTS_REDIS_ADDRESS",
		"events.kafka.brokers":            "KAFKA_BROKERS",
		"log.level":                       "LOG_LEVEL",
		"bootstrap.realm":                 "BOOTSTRAP_REALM",
		"bootstrap.admin_email":           "BOOTSTRAP_ADMIN_EMAIL",
	})
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
