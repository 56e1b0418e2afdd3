package spam

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inboxforge/mailgate/internal/config"
)

type fakeLookup struct {
	count   int
	err     error
	queried bool
}

func (f *fakeLookup) SpamOccurrences(context.Context, string, string, int) (int, error) {
	f.queried = true
	return f.count, f.err
}

func TestCheck_DisabledAlwaysPasses(t *testing.T) {
	g := New(&fakeLookup{count: 999})
	assert.False(t, g.Check(context.Background(), config.SpamConfig{Enabled: false}, "/q", "PRS1", nil))
}

func TestCheck_DontCheckAuthorsBypassesWithoutQuery(t *testing.T) {
	lookup := &fakeLookup{count: 999}
	g := New(lookup)
	cfg := config.SpamConfig{Enabled: true, MaxOccurrences: 1, DontCheckAuthors: []string{"PRS1"}}
	assert.False(t, g.Check(context.Background(), cfg, "/q", "PRS1", nil))
	assert.False(t, lookup.queried)
}

func TestCheck_RejectsOnConfiguredHeaderWithoutQuery(t *testing.T) {
	lookup := &fakeLookup{count: 0}
	g := New(lookup)
	cfg := config.SpamConfig{Enabled: true, MaxOccurrences: 5, Headers: []string{"Auto-Submitted"}}
	headers := map[string][]string{"Auto-Submitted": {"auto-generated"}}
	assert.True(t, g.Check(context.Background(), cfg, "/q", "PRS1", headers))
	assert.False(t, lookup.queried)
}

func TestCheck_RejectsAboveThreshold(t *testing.T) {
	g := New(&fakeLookup{count: 6})
	cfg := config.SpamConfig{Enabled: true, MaxOccurrences: 5}
	assert.True(t, g.Check(context.Background(), cfg, "/q", "PRS1", nil))
}

func TestCheck_PassesAtThreshold(t *testing.T) {
	g := New(&fakeLookup{count: 5})
	cfg := config.SpamConfig{Enabled: true, MaxOccurrences: 5}
	assert.False(t, g.Check(context.Background(), cfg, "/q", "PRS1", nil))
}

func TestCheck_PassesBelowThreshold(t *testing.T) {
	g := New(&fakeLookup{count: 2})
	cfg := config.SpamConfig{Enabled: true, MaxOccurrences: 5}
	assert.False(t, g.Check(context.Background(), cfg, "/q", "PRS1", nil))
}

func TestCheck_FailsOpenOnLookupError(t *testing.T) {
	g := New(&fakeLookup{err: errors.New("db down")})
	cfg := config.SpamConfig{Enabled: true, MaxOccurrences: 1}
	assert.False(t, g.Check(context.Background(), cfg, "/q", "PRS1", nil))
}
