package mailer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"

	"github.com/MrEthical07/authgate"
)

// ErrQueueClosed is an exported constant or variable used by the mail delivery worker.
var ErrQueueClosed = errors.New("mailer queue closed")

// ErrQueueFull is an exported constant or variable used by the mail delivery worker.
var ErrQueueFull = errors.New("mailer queue full")

// Config defines a public type used by mailer APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// From is the sender address placed on every notification.
	From string
	// Subject overrides the default subject line when non-empty.
	Subject string
	// QueueSize bounds the delivery backlog. <= 0 means 64.
	QueueSize int
}

const defaultSubject = "Reset your password"

type envConfig struct {
	Host      string `env:"SMTP_HOST"`
	Port      int    `env:"SMTP_PORT" envDefault:"587"`
	Username  string `env:"SMTP_USERNAME"`
	Password  string `env:"SMTP_PASSWORD"`
	From      string `env:"MAIL_FROM"`
	Subject   string `env:"MAIL_SUBJECT"`
	QueueSize int    `env:"MAIL_QUEUE_SIZE" envDefault:"64"`
}

// FromEnv builds a Config from SMTP_* and MAIL_* environment variables.
//
// FromEnv may return an error when input validation, dependency calls, or security checks fail.
// FromEnv does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func FromEnv() (Config, error) {
	parsed, err := env.ParseAs[envConfig]()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Host:      parsed.Host,
		Port:      parsed.Port,
		Username:  parsed.Username,
		Password:  parsed.Password,
		From:      parsed.From,
		Subject:   parsed.Subject,
		QueueSize: parsed.QueueSize,
	}, nil
}

// sendFunc is swapped out in tests; production wiring uses gomail's dialer.
type sendFunc func(*gomail.Message) error

// SMTP is an asynchronous authgate.Mailer backed by an SMTP server.
//
// SMTP instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SMTP struct {
	config Config
	send   sendFunc
	log    zerolog.Logger

	queue  chan authgate.ResetNotification
	done   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
	once   sync.Once

	failed atomic.Uint64
}

// NewSMTP starts the delivery worker and returns the mailer. Callers must
// Close it to flush the backlog on shutdown.
//
// NewSMTP may return an error when input validation, dependency calls, or security checks fail.
// NewSMTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewSMTP(cfg Config, log zerolog.Logger) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, errors.New("mailer: host and port required")
	}
	if cfg.From == "" {
		return nil, errors.New("mailer: sender address required")
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return newSMTP(cfg, func(msg *gomail.Message) error {
		return dialer.DialAndSend(msg)
	}, log), nil
}

func newSMTP(cfg Config, send sendFunc, log zerolog.Logger) *SMTP {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Subject == "" {
		cfg.Subject = defaultSubject
	}

	m := &SMTP{
		config: cfg,
		send:   send,
		log:    log,
		queue:  make(chan authgate.ResetNotification, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// Queue accepts a notification for background delivery. It never blocks: a
// full backlog reports ErrQueueFull and the caller decides whether the miss
// matters.
//
// Queue may return an error when input validation, dependency calls, or security checks fail.
// Queue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *SMTP) Queue(notification authgate.ResetNotification) error {
	if m.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case m.queue <- notification:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting notifications, drains the backlog, and waits for the
// worker to exit.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *SMTP) Close() {
	m.once.Do(func() {
		m.closed.Store(true)
		close(m.done)
		m.wg.Wait()
	})
}

// FailedDeliveries reports how many notifications could not be sent since the
// mailer started.
//
// FailedDeliveries does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *SMTP) FailedDeliveries() uint64 {
	return m.failed.Load()
}

func (m *SMTP) run() {
	defer m.wg.Done()
	for {
		select {
		case n := <-m.queue:
			m.deliver(n)
		case <-m.done:
			// Drain what was accepted before Close.
			for {
				select {
				case n := <-m.queue:
					m.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (m *SMTP) deliver(n authgate.ResetNotification) {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", n.Email)
	msg.SetHeader("Subject", m.config.Subject)
	msg.SetBody("text/plain", body(n))

	if err := m.send(msg); err != nil {
		m.failed.Add(1)
		m.log.Error().Err(err).Str("email", n.Email).Msg("reset notification delivery failed")
	}
}

func body(n authgate.ResetNotification) string {
	if n.ResetURL != "" {
		return fmt.Sprintf(
			"A password reset was requested for this address.\n\n"+
				"Reset link: %s\n\n"+
				"If you did not request this, no action is needed.\n", n.ResetURL)
	}
	return fmt.Sprintf(
		"A password reset was requested for this address.\n\n"+
			"Reset code: %s\n\n"+
			"If you did not request this, no action is needed.\n", n.Token)
}
