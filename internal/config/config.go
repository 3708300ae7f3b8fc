package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv         string `env:"APP_ENV" envDefault:"development"`
	Port           string `env:"PORT" envDefault:"8080"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"postgres://tt:tt@localhost:5432/tt_training?sslmode=disable"`
	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"*"`
	Timezone       string `env:"TIMEZONE" envDefault:"UTC"`

	TournamentFee      string        `env:"TOURNAMENT_FEE" envDefault:"30"`
	CancelLeadHours    int           `env:"CANCEL_LEAD_HOURS" envDefault:"24"`
	CancelMonthlyQuota int           `env:"CANCEL_MONTHLY_QUOTA" envDefault:"3"`
	CancelRequestTTL   time.Duration `env:"CANCEL_REQUEST_TTL" envDefault:"72h"`

	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"1m"`
	ReminderLead     time.Duration `env:"REMINDER_LEAD" envDefault:"60m"`

	LicenseEnforce bool          `env:"LICENSE_ENFORCE" envDefault:"false"`
	LicenseRefresh time.Duration `env:"LICENSE_REFRESH" envDefault:"5m"`

	RabbitMQURL   string `env:"RABBITMQ_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// Load reads an optional .env file and then parses the process environment.
// Values already present in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.TournamentFeeAmount(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c Config) TournamentFeeAmount() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(c.TournamentFee)
	if err != nil {
		return decimal.Zero, err
	}
	if fee.IsNegative() {
		return decimal.Zero, errors.New("TOURNAMENT_FEE must not be negative")
	}
	return fee, nil
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c Config) CancelLead() time.Duration {
	return time.Duration(c.CancelLeadHours) * time.Hour
}
