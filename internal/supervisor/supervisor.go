// Package supervisor owns one server's IMAP connection lifecycle: connect,
// verify the mailbox structure, poll each configured mailbox on the
// runtime's query interval, and reconnect on failure after a fixed delay.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/inboxforge/mailgate/internal/config"
	"github.com/inboxforge/mailgate/internal/connector"
	"github.com/inboxforge/mailgate/internal/mailbox"
	"github.com/inboxforge/mailgate/internal/metrics"
)

const defaultReconnectDelay = 10 * time.Second

// Dialer opens a new IMAP session, narrowed from connector.Dial so tests
// can substitute a fake session without a real server.
type Dialer func(ctx context.Context, cfg config.ServerConfig) (Session, error)

// Session is the subset of *connector.Session the supervisor and the
// mailbox processors it builds need.
type Session interface {
	mailbox.Session
	mailbox.Lister
	Close() error
}

// Supervisor drives one server's connection state machine.
type Supervisor struct {
	cfg            config.ServerConfig
	dial           Dialer
	pipeline       mailbox.Pipeline
	runtimeConfig  func() config.RuntimeConfig
	dbQueryURI     func() string
	reconnectDelay time.Duration
	logger         *log.Logger
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithReconnectDelay overrides the fixed delay between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.reconnectDelay = d
		}
	}
}

// WithLogger overrides the diagnostic logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDialer overrides how new sessions are opened, for tests.
func WithDialer(d Dialer) Option {
	return func(s *Supervisor) { s.dial = d }
}

// New builds a Supervisor for one server. runtimeConfig and dbQueryURI are
// called on every poll tick so a hot-reloaded config takes effect without a
// reconnect.
func New(cfg config.ServerConfig, pipeline mailbox.Pipeline, runtimeConfig func() config.RuntimeConfig, dbQueryURI func() string, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:            cfg,
		pipeline:       pipeline,
		runtimeConfig:  runtimeConfig,
		dbQueryURI:     dbQueryURI,
		reconnectDelay: defaultReconnectDelay,
		logger:         log.Default(),
	}
	s.dial = func(ctx context.Context, cfg config.ServerConfig) (Session, error) {
		sess, err := connector.Dial(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run connects, verifies structure, and polls every configured mailbox
// until ctx is canceled, transparently reconnecting on failure.
func (s *Supervisor) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		session, err := s.connect(ctx)
		if err != nil {
			metrics.Reconnects.WithLabelValues(s.cfg.Name, "failure").Inc()
			s.logger.Printf("supervisor[%s]: connect failed: %v", s.cfg.Name, err)
			if !s.sleep(ctx, s.reconnectDelay) {
				return nil
			}
			continue
		}

		metrics.ActiveConnections.Inc()
		err = s.pollUntilError(ctx, session)
		closeErr := session.Close()
		metrics.ActiveConnections.Dec()

		if ctx.Err() != nil {
			if closeErr != nil {
				return fmt.Errorf("supervisor[%s]: closing session during shutdown: %w", s.cfg.Name, closeErr)
			}
			return nil
		}
		if closeErr != nil {
			s.logger.Printf("supervisor[%s]: closing session failed: %v", s.cfg.Name, closeErr)
		}
		metrics.Reconnects.WithLabelValues(s.cfg.Name, "retry").Inc()
		s.logger.Printf("supervisor[%s]: connection lost, reconnecting in %s: %v", s.cfg.Name, s.reconnectDelay, err)
		if !s.sleep(ctx, s.reconnectDelay) {
			return nil
		}
	}
	return nil
}

// connect only dials; the mailbox structure check happens per poll cycle so
// that a missing mailbox disqualifies just its own route, not the whole
// server connection.
func (s *Supervisor) connect(ctx context.Context) (Session, error) {
	return s.dial(ctx, s.cfg)
}

// pollUntilError runs the poll loop for every configured mailbox, in config
// order, sleeping between cycles for the shorter of the runtime query
// interval and the remaining cycle time; a poll that takes longer than the
// interval runs the next cycle immediately rather than firing overlapping
// ticks. Mailboxes whose structure check fails are skipped for that cycle
// rather than failing the whole connection; if none pass, the cycle is a
// no-op and the connection is left open for the next tick.
func (s *Supervisor) pollUntilError(ctx context.Context, session Session) error {
	for {
		cycleStart := time.Now()

		passed, failed, err := mailbox.CheckStructure(ctx, session, s.cfg)
		if err != nil {
			return err
		}
		for _, route := range failed {
			s.logger.Printf("supervisor[%s]: skipping mailbox %s this cycle, structure check failed", s.cfg.Name, route.Name)
		}

		for _, route := range passed {
			if ctx.Err() != nil {
				return nil
			}
			proc := &mailbox.Processor{
				ServerName: s.cfg.Name,
				Route:      route,
				Session:    session,
				Pipeline:   s.pipeline,
				DBQueryURI: s.dbQueryURI(),
				Logger:     s.logger,
			}
			if _, err := proc.PollOnce(ctx, s.runtimeConfig()); err != nil {
				return err
			}
		}

		interval := s.runtimeConfig().QueryInterval
		remaining := interval - time.Since(cycleStart)
		if remaining < 0 {
			remaining = 0
		}
		if !s.sleep(ctx, remaining) {
			return nil
		}
	}
}

func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
