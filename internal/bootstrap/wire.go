package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/forgot-password/internal/application/auth"
	"github.com/baechuer/forgot-password/internal/application/reset"
	"github.com/baechuer/forgot-password/internal/config"
	"github.com/baechuer/forgot-password/internal/infrastructure/db/postgres"
	"github.com/baechuer/forgot-password/internal/infrastructure/email"
	"github.com/baechuer/forgot-password/internal/infrastructure/memory"
	"github.com/baechuer/forgot-password/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/forgot-password/internal/infrastructure/redis"
	"github.com/baechuer/forgot-password/internal/infrastructure/security"
	"github.com/baechuer/forgot-password/internal/logger"
	"github.com/baechuer/forgot-password/internal/templates"
	http_handlers "github.com/baechuer/forgot-password/internal/transport/http/handlers"
	"github.com/baechuer/forgot-password/internal/transport/http/middleware"
	"github.com/baechuer/forgot-password/internal/transport/http/router"
)

const sessionIssuer = "forgot-password"

/*
========================
 Public entry (prod)
========================
*/

// App is everything the api process runs. Consumer is nil unless reset
// emails are delivered through the queue.
type App struct {
	Server   *http.Server
	Consumer Runner
	cleanup  func()
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	if a.cleanup != nil {
		a.cleanup()
	}
}

func NewApp() (*App, error) {
	return newApp(defaultDeps())
}

// NewAppWithDeps allows injecting dependencies for testing
func NewAppWithDeps(deps Deps) (*App, error) {
	return newApp(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(dsn string) (*sql.DB, error)

	NewRedis func(addr, password string, db int) *redis.Client

	NewMailer func(cfg *config.Config, lg zerolog.Logger) (reset.Mailer, error)

	NewPublisher func(url, exchange string, lg zerolog.Logger) (Publisher, error)

	NewConsumer func(cfg rabbitmq.ConsumerConfig, h rabbitmq.ResetHandler, lg zerolog.Logger) Runner

	NewRouter func(router.Deps) (http.Handler, error)
}

type Publisher interface {
	auth.ResetPasswordHandler
	Close() error
}

type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

/*
========================
 Core bootstrap logic
========================
*/

func newApp(deps Deps) (*App, error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, err
	}
	lg := logger.Logger

	var cleanupFns []func()
	fail := func(err error) (*App, error) {
		runCleanup(cleanupFns)
		return nil, err
	}

	// 1) users: postgres, or memory in dev
	var users auth.UserRepo
	var sqlDB *sql.DB
	if cfg.DBAddr != "" {
		db, err := deps.NewDB(cfg.DBAddr)
		if err != nil {
			return fail(fmt.Errorf("bootstrap: db: %w", err))
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = postgres.EnsureSchema(ctx, db)
		cancel()
		if err != nil {
			return fail(fmt.Errorf("bootstrap: schema: %w", err))
		}
		sqlDB = db
		users = postgres.NewUserRepo(db)
	} else {
		lg.Warn().Msg("DB_ADDR not set; users are kept in memory")
		users = memory.NewUserRepo()
	}

	// 2) redis (best-effort)
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Ping(context.Background()); err != nil {
			lg.Warn().Err(err).Msg("redis unavailable; using in-memory sessions and tokens")
			_ = c.Close()
		} else {
			lg.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	var (
		sessions auth.SessionStore
		ott      auth.OneTimeTokenStore
	)
	if redisCli != nil {
		sessions = redis.NewSessionStore(redisCli)
		ott = redis.NewOneTimeTokenStore(redisCli)
	} else {
		sessions = memory.NewSessionStore()
		ott = memory.NewOneTimeTokenStore()
	}

	// 3) reset controller
	mailer, err := deps.NewMailer(cfg, lg)
	if err != nil {
		return fail(err)
	}
	controller := NewResetController(cfg, mailer, lg)

	// 4) reset delivery: call the controller in-request, or go through the queue
	var (
		resetHandler auth.ResetPasswordHandler = controller
		consumer     Runner
	)
	if cfg.ResetDelivery == config.DeliveryQueue {
		pub, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange, lg)
		if err != nil {
			return fail(fmt.Errorf("bootstrap: rabbitmq publisher: %w", err))
		}
		cleanupFns = append(cleanupFns, func() { _ = pub.Close() })
		resetHandler = pub

		consumer = deps.NewConsumer(rabbitmq.ConsumerConfig{
			URL:      cfg.RabbitURL,
			Exchange: cfg.RabbitExchange,
		}, controller, lg)
	}

	// 5) auth service
	authSvc := auth.NewService(
		users,
		security.NewBcryptHasher(0),
		sessions,
		ott,
		resetHandler,
		auth.Config{
			SessionTTL:            cfg.SessionTTL,
			PasswordResetBaseURL:  cfg.PasswordResetBaseURL,
			PasswordResetTokenTTL: cfg.PasswordResetTokenTTL,
		},
	)

	// 6) handlers + middleware
	secureCookies := !cfg.IsDev()
	signer := security.NewSessionSigner(cfg.SessionSecret, sessionIssuer)

	authH := http_handlers.NewAuthHandler(authSvc, signer, secureCookies)
	pagesH, err := http_handlers.NewPageHandler(authSvc, secureCookies)
	if err != nil {
		return fail(err)
	}

	readiness := map[string]http_handlers.Pinger{}
	if sqlDB != nil {
		readiness["db"] = sqlDB
	}
	if redisCli != nil {
		readiness["redis"] = redisCli
	}
	healthH := http_handlers.NewHealthHandler(readiness)

	// rate limit: shared fixed window in redis (fail-open), per-process by IP otherwise
	var limiter middleware.RateLimiter
	if redisCli != nil {
		limiter = redis.NewFixedWindowLimiter(redisCli)
	}
	rl := func(key string, limit int, window time.Duration) func(http.Handler) http.Handler {
		return middleware.RateLimitFixedWindow(limiter, middleware.FixedWindowConfig{
			RouteKey:       key,
			Limit:          limit,
			Window:         window,
			TrustedProxies: cfg.TrustedProxies,
		}, lg)
	}

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health: healthH,
		Auth:   authH,
		Pages:  pagesH,

		RequestIDMW: middleware.RequestID,
		MetricsMW:   middleware.Metrics,
		SessionMW:   middleware.LoadSession(signer, authSvc),

		RLSignUp:         rl("auth.sign_up", 3, time.Minute),
		RLSignIn:         rl("auth.sign_in", 5, time.Minute),
		RLForgetPassword: rl("auth.forget_password", 3, 10*time.Minute),
		RLResetPassword:  rl("auth.reset_password", 5, time.Minute),
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	lg.Info().
		Str("env", cfg.Env).
		Str("mail_provider", cfg.MailProvider).
		Str("reset_delivery", cfg.ResetDelivery).
		Bool("redis", redisCli != nil).
		Bool("postgres", sqlDB != nil).
		Msg("app wired")

	return &App{
		Server:   srv,
		Consumer: consumer,
		cleanup:  func() { runCleanup(cleanupFns) },
	}, nil
}

// NewMailer picks the mail adapter named by MAIL_PROVIDER.
func NewMailer(cfg *config.Config, lg zerolog.Logger) (reset.Mailer, error) {
	switch cfg.MailProvider {
	case config.MailProviderResend:
		s, err := email.NewResendSender(email.ResendConfig{
			APIKey:  cfg.ResendAPIKey,
			BaseURL: cfg.ResendBaseURL,
		}, lg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.MailProviderSMTP:
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			Insecure: cfg.SMTP.Insecure,
			Timeout:  cfg.ResetDispatchTimeout,
		}, lg), nil
	case config.MailProviderFake:
		return email.NewFakeSender(cfg.FakeFailMode, lg), nil
	default:
		return nil, fmt.Errorf("invalid MAIL_PROVIDER: %q", cfg.MailProvider)
	}
}

func NewResetController(cfg *config.Config, mailer reset.Mailer, lg zerolog.Logger) *reset.Controller {
	return reset.NewController(mailer, templates.RenderResetPassword, reset.Config{
		From:        cfg.FromEmail,
		Development: cfg.IsDev(),
		Timeout:     cfg.ResetDispatchTimeout,
	}, lg)
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		NewRedis:   redis.New,
		NewMailer:  NewMailer,
		NewPublisher: func(url, exchange string, lg zerolog.Logger) (Publisher, error) {
			return rabbitmq.NewPublisher(url, exchange, lg)
		},
		NewConsumer: func(cfg rabbitmq.ConsumerConfig, h rabbitmq.ResetHandler, lg zerolog.Logger) Runner {
			return rabbitmq.NewConsumer(cfg, h, lg)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
