// Package spam implements the spam gate: a short-circuit chain of
// author-allowlist, header, and prior-occurrence-count checks run before an
// issue or comment is created for a known person.
package spam

import (
	"context"
	"log"
	"strings"

	"github.com/inboxforge/mailgate/internal/config"
)

// OccurrenceLookup resolves how many issues a person has triggered within
// the configured time span; satisfied by *restapi.Client in production.
type OccurrenceLookup interface {
	SpamOccurrences(ctx context.Context, dbQueryURI, personID string, timeSpanMinutes int) (int, error)
}

// Gate decides whether an inbound sender should be rejected as spam.
type Gate struct {
	lookup OccurrenceLookup
	logger *log.Logger
}

// New builds a Gate backed by lookup.
func New(lookup OccurrenceLookup) *Gate {
	return &Gate{lookup: lookup, logger: log.Default()}
}

// WithLogger overrides the diagnostic logger.
func (g *Gate) WithLogger(logger *log.Logger) *Gate {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Check reports whether personID should be rejected under cfg, given the
// message's headers. Checks run in the four short-circuit steps the spam
// gate's contract fixes: dontCheckAuthors bypass, auto-reply header reject,
// prior-occurrence-count reject, fail-open on lookup error.
func (g *Gate) Check(ctx context.Context, cfg config.SpamConfig, dbQueryURI, personID string, headers map[string][]string) (reject bool) {
	if !cfg.Enabled {
		return false
	}
	for _, allowed := range cfg.DontCheckAuthors {
		if allowed == personID {
			return false
		}
	}
	for _, name := range cfg.Headers {
		if headerPresent(headers, name) {
			return true
		}
	}

	count, err := g.lookup.SpamOccurrences(ctx, dbQueryURI, personID, cfg.TimeSpanMinutes)
	if err != nil {
		g.logger.Printf("spam: occurrence lookup failed for %s, failing open: %v", personID, err)
		return false
	}
	return count > cfg.MaxOccurrences
}

func headerPresent(headers map[string][]string, name string) bool {
	for key := range headers {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}
