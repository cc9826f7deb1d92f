package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type MongoConfig struct {
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	CookieName   string        `yaml:"cookie_name"`
	CookieDomain string        `yaml:"cookie_domain"`
	SecureCookie bool          `yaml:"secure_cookie"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

type RazorpayConfig struct {
	KeyID         string `yaml:"key_id"`
	KeySecret     string `yaml:"key_secret"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
}

type PaymentConfig struct {
	Razorpay RazorpayConfig `yaml:"razorpay"`
}

type BillingConfig struct {
	ProPrice         int64         `yaml:"pro_price"`  // minor units
	MinCharge        int64         `yaml:"min_charge"` // minor units, gateway floor
	Currency         string        `yaml:"currency"`
	ExpiryAlertDays  int           `yaml:"expiry_alert_days"`
	CouponRateLimit  int           `yaml:"coupon_rate_limit"` // validations per minute per user
	CompanyName      string        `yaml:"company_name"`
	CompanyAddress   string        `yaml:"company_address"`
	SupportEmail     string        `yaml:"support_email"`
	FrontendURL      string        `yaml:"frontend_url"`
	PublicCouponsTTL time.Duration `yaml:"public_coupons_ttl"`
}

type BrevoConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type MailConfig struct {
	Provider    string      `yaml:"provider"` // brevo | smtp | noop
	SenderName  string      `yaml:"sender_name"`
	SenderEmail string      `yaml:"sender_email"`
	Brevo       BrevoConfig `yaml:"brevo"`
	SMTP        SMTPConfig  `yaml:"smtp"`
}

type SchedulerConfig struct {
	ExpiryCheckCron string        `yaml:"expiry_check_cron"`
	AlertCron       string        `yaml:"alert_cron"`
	LockTTL         time.Duration `yaml:"lock_ttl"`
	Timezone        string        `yaml:"timezone"`
}

type BroadcastConfig struct {
	Workers    int           `yaml:"workers"`
	BatchSize  int           `yaml:"batch_size"`
	BatchPause time.Duration `yaml:"batch_pause"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Payment   PaymentConfig   `yaml:"payment"`
	Billing   BillingConfig   `yaml:"billing"`
	Mail      MailConfig      `yaml:"mail"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Broadcast BroadcastConfig `yaml:"broadcast"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, expands ${VAR} references from the
// environment (a .env file next to the binary is loaded first when present),
// applies defaults and validates the required keys.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the filesystem; used by tests and tools.
func Parse(raw []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "linkbio"
	}
	if cfg.Mongo.Timeout <= 0 {
		cfg.Mongo.Timeout = 10 * time.Second
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "lb_session"
	}
	if cfg.Auth.SessionTTL <= 0 {
		cfg.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.Payment.Razorpay.BaseURL == "" {
		cfg.Payment.Razorpay.BaseURL = "https://api.razorpay.com/v1"
	}

	if cfg.Billing.ProPrice <= 0 {
		cfg.Billing.ProPrice = 14900
	}
	if cfg.Billing.MinCharge <= 0 {
		cfg.Billing.MinCharge = 100
	}
	if cfg.Billing.Currency == "" {
		cfg.Billing.Currency = "INR"
	}
	if cfg.Billing.ExpiryAlertDays <= 0 {
		cfg.Billing.ExpiryAlertDays = 3
	}
	if cfg.Billing.CouponRateLimit <= 0 {
		cfg.Billing.CouponRateLimit = 10
	}
	if cfg.Billing.CompanyName == "" {
		cfg.Billing.CompanyName = "LinkBio"
	}
	if cfg.Billing.PublicCouponsTTL <= 0 {
		cfg.Billing.PublicCouponsTTL = 5 * time.Minute
	}

	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = "noop"
	}
	if cfg.Mail.Brevo.BaseURL == "" {
		cfg.Mail.Brevo.BaseURL = "https://api.brevo.com/v3"
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = 587
	}

	if cfg.Scheduler.ExpiryCheckCron == "" {
		cfg.Scheduler.ExpiryCheckCron = "0 3 * * *"
	}
	if cfg.Scheduler.AlertCron == "" {
		cfg.Scheduler.AlertCron = "30 3 * * *"
	}
	if cfg.Scheduler.LockTTL <= 0 {
		cfg.Scheduler.LockTTL = 30 * time.Minute
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "UTC"
	}

	if cfg.Broadcast.Workers <= 0 {
		cfg.Broadcast.Workers = 2
	}
	if cfg.Broadcast.BatchSize <= 0 {
		cfg.Broadcast.BatchSize = 50
	}
	if cfg.Broadcast.BatchPause <= 0 {
		cfg.Broadcast.BatchPause = 2 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Mongo.URI == "" {
		return errors.New("mongo.uri is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Auth.JWTSecret == "" && !c.Runtime.Dev {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Payment.Razorpay.KeySecret == "" && !c.Runtime.Dev {
		return errors.New("payment.razorpay.key_secret is required")
	}
	switch strings.ToLower(c.Mail.Provider) {
	case "brevo":
		if c.Mail.Brevo.APIKey == "" {
			return errors.New("mail.brevo.api_key is required for provider brevo")
		}
	case "smtp":
		if c.Mail.SMTP.Host == "" {
			return errors.New("mail.smtp.host is required for provider smtp")
		}
	case "noop":
	default:
		return fmt.Errorf("mail.provider %q not supported", c.Mail.Provider)
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
