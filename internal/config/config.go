package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"

	MailProviderResend = "resend"
	MailProviderSMTP   = "smtp"
	MailProviderFake   = "fake"

	DeliveryDirect = "direct"
	DeliveryQueue  = "queue"

	DefaultFromEmail = "onboarding@resend.dev"
)

type Config struct {
	// App
	Env        string // dev / prod
	AppBaseURL string

	// HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// TrustedProxies may set X-Forwarded-For; empty means nobody can.
	TrustedProxies []netip.Prefix

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration

	// Password reset
	PasswordResetBaseURL  string // APP_BASE_URL + "/reset-password?token="
	PasswordResetTokenTTL time.Duration
	ResetDispatchTimeout  time.Duration
	ResetDelivery         string // direct / queue

	// Mail
	MailProvider  string
	FromEmail     string
	ResendAPIKey  string
	ResendBaseURL string
	SMTP          SMTPConfig
	FakeFailMode  string // provider=fake: "fail" makes every dispatch fail

	// Infrastructure
	DBAddr         string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RabbitURL      string
	RabbitExchange string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Insecure bool
}

// IsDev reports whether the process runs in development mode.
func (c *Config) IsDev() bool { return c.Env == EnvDev }

func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("missing required env var: SESSION_SECRET")
	}
	if err := cfg.validateMail(); err != nil {
		return nil, err
	}

	switch cfg.ResetDelivery {
	case DeliveryDirect:
	case DeliveryQueue:
		if cfg.RabbitURL == "" {
			return nil, fmt.Errorf("missing required env var: RABBIT_URL")
		}
	default:
		return nil, fmt.Errorf("invalid RESET_DELIVERY: %q", cfg.ResetDelivery)
	}

	// prod has no in-memory fallback for users
	if cfg.Env == EnvProd && cfg.DBAddr == "" {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}

	return cfg, nil
}

// LoadMail reads the same environment as Load but only requires what the
// mail adapters need. resetctl uses it to check credentials without a
// full server configuration.
func LoadMail() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateMail(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:        strings.ToLower(getEnvFirst([]string{"APP_ENV", "ENV"}, EnvProd)),
		HTTPAddr:   getEnv("HTTP_ADDR", ":8080"),
		AppBaseURL: strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),

		SessionSecret: os.Getenv("SESSION_SECRET"),

		MailProvider:  strings.ToLower(getEnv("MAIL_PROVIDER", MailProviderResend)),
		FromEmail:     getEnv("RESEND_FROM_EMAIL", DefaultFromEmail),
		ResendAPIKey:  os.Getenv("RESEND_API_KEY"),
		ResendBaseURL: os.Getenv("RESEND_BASE_URL"),
		FakeFailMode:  os.Getenv("FAKE_FAIL_MODE"),
		ResetDelivery: strings.ToLower(getEnv("RESET_DELIVERY", DeliveryDirect)),

		DBAddr:         os.Getenv("DB_ADDR"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getInt("REDIS_DB", 0),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "auth.events"),

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			Insecure: getBool("SMTP_INSECURE", false),
		},
	}
	if cfg.Env != EnvDev && cfg.Env != EnvProd {
		return nil, fmt.Errorf("invalid APP_ENV: %q (want dev or prod)", cfg.Env)
	}
	cfg.PasswordResetBaseURL = cfg.AppBaseURL + "/reset-password?token="

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PasswordResetTokenTTL, err = getDuration("PASSWORD_RESET_TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.ResetDispatchTimeout, err = getDuration("RESET_DISPATCH_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}
	if cfg.TrustedProxies, err = getPrefixes("TRUSTED_PROXIES"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateMail() error {
	switch c.MailProvider {
	case MailProviderResend:
		if c.ResendAPIKey == "" {
			return fmt.Errorf("missing required env var: RESEND_API_KEY")
		}
	case MailProviderSMTP:
		if c.SMTP.Host == "" {
			return fmt.Errorf("missing required env var: SMTP_HOST")
		}
	case MailProviderFake:
		if c.Env == EnvProd {
			return fmt.Errorf("MAIL_PROVIDER=fake is not allowed in prod")
		}
	default:
		return fmt.Errorf("invalid MAIL_PROVIDER: %q", c.MailProvider)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFirst(keys []string, def string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return def
}

// getPrefixes reads a comma-separated list of CIDRs or bare addresses.
func getPrefixes(key string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			p, err := netip.ParsePrefix(part)
			if err != nil {
				return nil, fmt.Errorf("invalid %s entry %q: %w", key, part, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, part, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid duration for %s: %q: must be positive", key, v)
	}
	return d, nil
}
