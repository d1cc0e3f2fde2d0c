package authgate

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config defines a public type used by authgate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AppKey        string
	PasswordReset PasswordResetConfig
	Login         LoginConfig
	Password      PasswordConfig
	JWT           JWTConfig
	Events        EventConfig
	Metrics       MetricsConfig
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig defines a public type used by authgate APIs.
//
// PasswordResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordResetConfig struct {
	// ThrottleWindow is the minimum interval between token issuances per
	// email. <= 0 disables re-issue throttling.
	ThrottleWindow time.Duration
	// ResetBaseURL is the callback URL prefix placed in the notification;
	// the plaintext token is appended as a query parameter.
	ResetBaseURL string
	// MinPasswordBytes is enforced on ConfirmPasswordReset.
	MinPasswordBytes int
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig defines a public type used by authgate APIs.
//
// LoginConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginConfig struct {
	MaxAttempts int
	DecayWindow time.Duration
}

// PasswordConfig defines a public type used by authgate APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// JWTConfig defines a public type used by authgate APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	Secret    []byte
	AccessTTL time.Duration
	Issuer    string
}

func defaultConfig() Config {
	return Config{
		PasswordReset: PasswordResetConfig{
			ThrottleWindow:   60 * time.Second,
			MinPasswordBytes: 8,
		},
		Login: LoginConfig{
			MaxAttempts: 5,
			DecayWindow: time.Minute,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		JWT: JWTConfig{
			AccessTTL: 15 * time.Minute,
			Issuer:    "authgate",
		},
		Events: EventConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if c.Login.MaxAttempts <= 0 {
		return errors.New("Login.MaxAttempts must be > 0")
	}
	if c.Login.DecayWindow <= 0 {
		return errors.New("Login.DecayWindow must be > 0")
	}
	if c.PasswordReset.MinPasswordBytes < 8 {
		return errors.New("PasswordReset.MinPasswordBytes must be >= 8")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT.AccessTTL must be > 0")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = append([]byte(nil), cfg.JWT.Secret...)
	return out
}

type envConfig struct {
	AppKey                    string        `env:"APP_KEY"`
	ResetTokenThrottleSeconds int           `env:"RESET_TOKEN_THROTTLE_SECONDS" envDefault:"60"`
	ResetBaseURL              string        `env:"RESET_BASE_URL"`
	LoginMaxAttempts          int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginDecayMinutes         int           `env:"LOGIN_DECAY_MINUTES" envDefault:"1"`
	JWTSecret                 string        `env:"JWT_SECRET"`
	JWTAccessTTL              time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
}

// FromEnv builds a Config from environment variables, starting from the
// package defaults. Unset variables keep their defaults; APP_KEY and
// JWT_SECRET stay empty here and are validated at Build time.
func FromEnv() (Config, error) {
	parsed, err := env.ParseAs[envConfig]()
	if err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.AppKey = parsed.AppKey
	cfg.PasswordReset.ThrottleWindow = time.Duration(parsed.ResetTokenThrottleSeconds) * time.Second
	cfg.PasswordReset.ResetBaseURL = parsed.ResetBaseURL
	cfg.Login.MaxAttempts = parsed.LoginMaxAttempts
	cfg.Login.DecayWindow = time.Duration(parsed.LoginDecayMinutes) * time.Minute
	cfg.JWT.Secret = []byte(parsed.JWTSecret)
	cfg.JWT.AccessTTL = parsed.JWTAccessTTL

	return cfg, nil
}
