package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	Storage    string `yaml:"storage" env:"STORAGE" env-default:"postgres"`
	Tokens     `yaml:"tokens"`
	RateLimit  `yaml:"rate_limit"`
	Session    `yaml:"session"`
	RabbitMQ   `yaml:"rabbitmq"`
	Postgres   `yaml:"postgres"`
	HTTPServer `yaml:"http_server"`
	Email      `yaml:"email"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	PublicURL   string        `yaml:"public_url" env:"HTTP_PUBLIC_URL" env-default:"http://localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// TrustProxy takes the client address from X-Real-IP/X-Forwarded-For.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool `yaml:"trust_proxy" env:"HTTP_TRUST_PROXY" env-default:"false"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Tokens struct {
	Secret                  string        `yaml:"secret" env:"TOKEN_SECRET" env-required:"true"`
	TTL                     time.Duration `yaml:"ttl" env-default:"168h"`
	VerificationTokenTTL    time.Duration `yaml:"verification_token_ttl" env-default:"24h"`
	VerificationTokenSecret string        `yaml:"verification_token_secret" env:"VERIFICATION_TOKEN_SECRET" env-required:"true"`
}

type RateLimit struct {
	MaxAttempts int           `yaml:"max_attempts" env-default:"5"`
	Window      time.Duration `yaml:"window" env-default:"15m"`
	IPLimit     int           `yaml:"ip_limit" env-default:"60"`
	IPWindow    time.Duration `yaml:"ip_window" env-default:"1m"`
}

type Session struct {
	Timeout         time.Duration `yaml:"timeout" env-default:"1h"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env-default:"5m"`
	CookieName      string        `yaml:"cookie_name" env-default:"webmail_session"`
	SecureCookie    bool          `yaml:"secure_cookie" env-default:"true"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env-default:"mail"`
}

type Email struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

// MustLoad reads the config file named by -config, CONFIG_PATH or
// ./config/config.yaml, in that order, and panics if it is invalid.
func MustLoad() *Config {
	return MustLoadPath(fetchConfigPath())
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	if cfg.Session.CleanupInterval <= 0 {
		panic("session.cleanup_interval must be positive")
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	if res == "" {
		res = "./config/config.yaml"
	}

	return res
}
