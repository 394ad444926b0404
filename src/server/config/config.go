// Package config loads server settings from defaults, an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/quiz-master/server/src/server/cache"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Mail      MailConfig      `mapstructure:"mail"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	SeedFile  string          `mapstructure:"seed_file" validate:"omitempty,file"`
}

type ServerConfig struct {
	Port        string   `mapstructure:"port" validate:"required,numeric"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

type StoreConfig struct {
	Backend     string      `mapstructure:"backend" validate:"oneof=memory sqlite postgres mysql"`
	SQLitePath  string      `mapstructure:"sqlite_path" validate:"required_if=Backend sqlite"`
	DatabaseURL string      `mapstructure:"database_url" validate:"required_if=Backend postgres"`
	MySQL       MySQLConfig `mapstructure:"mysql"`
}

type MySQLConfig struct {
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port" validate:"min=1,max=65535"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration     `mapstructure:"conn_max_lifetime"`
}

type CacheConfig struct {
	Backend       string     `mapstructure:"backend" validate:"oneof=memory redis"`
	RedisAddr     string     `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string     `mapstructure:"redis_password"`
	RedisDB       int        `mapstructure:"redis_db" validate:"min=0"`
	KeyPrefix     string     `mapstructure:"key_prefix" validate:"required"`
	TTL           cache.TTLs `mapstructure:"ttl"`
}

type QueueConfig struct {
	Backend       string        `mapstructure:"backend" validate:"oneof=memory redis"`
	RedisAddr     string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"min=0"`
	KeyPrefix     string        `mapstructure:"key_prefix" validate:"required"`
	ResultTTL     time.Duration `mapstructure:"result_ttl" validate:"gt=0"`
	Workers       int           `mapstructure:"workers" validate:"min=1"`
}

type StorageConfig struct {
	Backend  string   `mapstructure:"backend" validate:"oneof=local s3"`
	LocalDir string   `mapstructure:"local_dir" validate:"required_if=Backend local"`
	S3       S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"min=0,max=65535"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	TLS      bool   `mapstructure:"tls"`
	Sender   string `mapstructure:"sender" validate:"required"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	Issuer    string        `mapstructure:"issuer" validate:"required"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

type AdminConfig struct {
	Email    string `mapstructure:"email" validate:"required,email"`
	Password string `mapstructure:"password" validate:"required"`
	FullName string `mapstructure:"full_name" validate:"required"`
}

type RemindersConfig struct {
	UseEmail          bool   `mapstructure:"use_email"`
	UseGoogleChat     bool   `mapstructure:"use_google_chat"`
	GoogleChatWebhook string `mapstructure:"google_chat_webhook" validate:"required_if=UseGoogleChat true"`
	InactiveDays      int    `mapstructure:"inactive_days" validate:"min=1"`
}

// envBindings maps keys to the conventional variable names of a deployment,
// in addition to the automatic SECTION_KEY names.
var envBindings = map[string]string{
	"server.port":                   "PORT",
	"store.database_url":            "DATABASE_URL",
	"auth.jwt_secret":               "JWT_SECRET",
	"cache.redis_addr":              "REDIS_URL",
	"queue.redis_addr":              "REDIS_URL",
	"reminders.google_chat_webhook": "GOOGLE_CHAT_WEBHOOK_URL",
}

type Loader struct {
	configFile string
	envFile    string
}

// NewLoader returns a loader reading configFile (YAML) when it is non-empty,
// and ./config.yaml otherwise if present.
func NewLoader(configFile string) *Loader {
	return &Loader{configFile: configFile, envFile: ".env"}
}

// WithEnvFile overrides the .env file path.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

func (l *Loader) Load() (*Config, error) {
	if l.envFile != "" {
		// Variables already set in the environment take precedence.
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", l.envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("configuration file found but could not be read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}
	cfg.Server.CORSOrigins = normalizeOrigins(cfg.Server.CORSOrigins)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("store.backend", "memory")
	v.SetDefault("seed_file", "")

	v.SetDefault("store.sqlite_path", "quiz_master.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.mysql.host", "localhost")
	v.SetDefault("store.mysql.port", 3306)
	v.SetDefault("store.mysql.database", "quiz_master")
	v.SetDefault("store.mysql.username", "root")
	v.SetDefault("store.mysql.password", "")
	v.SetDefault("store.mysql.tls", false)
	v.SetDefault("store.mysql.max_open_conns", 25)
	v.SetDefault("store.mysql.max_idle_conns", 5)
	v.SetDefault("store.mysql.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 1)
	v.SetDefault("cache.key_prefix", "quiz_master")
	v.SetDefault("cache.ttl.default", 300*time.Second)
	v.SetDefault("cache.ttl.subjects", 600*time.Second)
	v.SetDefault("cache.ttl.chapters", 600*time.Second)
	v.SetDefault("cache.ttl.quizzes", 300*time.Second)
	v.SetDefault("cache.ttl.questions", 180*time.Second)
	v.SetDefault("cache.ttl.charts", 120*time.Second)
	v.SetDefault("cache.ttl.user_data", 60*time.Second)
	v.SetDefault("cache.ttl.search", 30*time.Second)

	v.SetDefault("queue.backend", "memory")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_password", "")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.key_prefix", "quiz_master")
	v.SetDefault("queue.result_ttl", 24*time.Hour)
	v.SetDefault("queue.workers", 2)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "exports")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.use_ssl", true)

	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 1025)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.tls", false)
	v.SetDefault("mail.sender", "admin@123.com")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "quiz-master")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("admin.email", "admin@123.com")
	v.SetDefault("admin.password", "admin123")
	v.SetDefault("admin.full_name", "Quiz Master")

	v.SetDefault("reminders.use_email", true)
	v.SetDefault("reminders.use_google_chat", false)
	v.SetDefault("reminders.google_chat_webhook", "")
	v.SetDefault("reminders.inactive_days", 1)
}

func (c *Config) validate() error {
	validate, trans, err := newValidator()
	if err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating configuration: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Translate(trans))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	if c.Storage.Backend == "s3" && (c.Storage.S3.Endpoint == "" || c.Storage.S3.Bucket == "") {
		return errors.New("invalid configuration: storage.s3.endpoint and storage.s3.bucket are required for the s3 backend")
	}
	return nil
}

// normalizeOrigins accepts both a YAML list and a comma separated variable.
func normalizeOrigins(in []string) []string {
	var origins []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if t := strings.TrimSpace(p); t != "" {
				origins = append(origins, t)
			}
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
