package authgate

import (
	"errors"
	"time"

	"github.com/MrEthical07/authgate/internal/limiters"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/kv"
	"github.com/MrEthical07/authgate/password"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder defines a public type used by authgate APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	accounts AccountStore
	tokens   TokenStore
	kvStore  kv.Store
	mailer   Mailer
	secret   SecretProvider
	sink     EventSink
	clock    func() time.Time
	log      *zerolog.Logger

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAccountStore describes the withaccountstore operation and its observable behavior.
//
// WithAccountStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithTokenStore describes the withtokenstore operation and its observable behavior.
//
// WithTokenStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithTokenStore(store TokenStore) *Builder {
	b.tokens = store
	return b
}

// WithKeyValueStore describes the withkeyvaluestore operation and its observable behavior.
//
// WithKeyValueStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithKeyValueStore(store kv.Store) *Builder {
	b.kvStore = store
	return b
}

// WithRedis is a convenience wrapper that backs the throttle with a Redis
// client via [kv.NewRedisStore].
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.kvStore = kv.NewRedisStore(client, "")
	return b
}

// WithMailer describes the withmailer operation and its observable behavior.
//
// WithMailer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithSecretProvider describes the withsecretprovider operation and its observable behavior.
//
// WithSecretProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithSecretProvider(p SecretProvider) *Builder {
	b.secret = p
	return b
}

// WithEventSink describes the witheventsink operation and its observable behavior.
//
// WithEventSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	return b
}

// WithClock injects the time source used for token timestamps and throttle
// arithmetic. nil means time.Now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.log = &logger
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if b.tokens == nil {
		return nil, errors.New("token store required")
	}
	if b.kvStore == nil {
		return nil, errors.New("key-value store required")
	}

	secret := b.secret
	if secret == nil {
		if cfg.AppKey == "" {
			return nil, errors.New("secret provider or Config.AppKey required")
		}
		secret = StaticSecret(cfg.AppKey)
	}
	if _, err := secret.ApplicationKey(); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		Secret:    cfg.JWT.Secret,
		AccessTTL: cfg.JWT.AccessTTL,
		Issuer:    cfg.JWT.Issuer,
	}, clock)
	if err != nil {
		return nil, err
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = discardMailer{}
	}

	logger := zerolog.Nop()
	if b.log != nil {
		logger = *b.log
	}

	engine := &Engine{
		config:     cfg,
		accounts:   b.accounts,
		tokens:     b.tokens,
		hasher:     hasher,
		jwtManager: jwtManager,
		mailer:     mailer,
		secret:     secret,
		clock:      clock,
		log:        logger,
		validate:   validator.New(),
		metrics:    NewMetrics(cfg.Metrics),
		events:     newEventDispatcher(cfg.Events, b.sink),
		throttle: limiters.NewLoginThrottle(b.kvStore, clock, limiters.LoginThrottleConfig{
			MaxAttempts: cfg.Login.MaxAttempts,
			DecayWindow: cfg.Login.DecayWindow,
		}),
	}

	b.built = true

	return engine, nil
}

// discardMailer drops notifications. Used when no mailer is wired, e.g. in
// deployments that deliver reset links through a different channel.
type discardMailer struct{}

func (discardMailer) Queue(ResetNotification) error { return nil }
