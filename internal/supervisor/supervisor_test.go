package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxforge/mailgate/internal/config"
	"github.com/inboxforge/mailgate/internal/connector"
	"github.com/inboxforge/mailgate/internal/dispatch"
	"github.com/inboxforge/mailgate/internal/mailmsg"
)

type fakeSession struct {
	listErr   error
	closed    bool
	selectErr error
	closeErr  error
	selected  []string
}

func (f *fakeSession) ListMailboxes(context.Context) ([]connector.MailboxInfo, error) {
	return []connector.MailboxInfo{{Name: "INBOX"}, {Name: "Processed"}, {Name: "Failed"}}, f.listErr
}
func (f *fakeSession) Select(name string) (uint32, error) {
	f.selected = append(f.selected, name)
	return 0, f.selectErr
}
func (f *fakeSession) SearchUnseen(int) ([]imap.UID, error)              { return nil, nil }
func (f *fakeSession) FetchRaw([]imap.UID) ([]connector.Message, error) { return nil, nil }
func (f *fakeSession) Move(imap.UID, string) error                      { return nil }
func (f *fakeSession) Close() error                                     { f.closed = true; return f.closeErr }

type fakePipeline struct{}

func (fakePipeline) Dispatch(context.Context, string, string, *mailmsg.Message, config.RuntimeConfig, string) dispatch.Outcome {
	return dispatch.Outcome{Kind: dispatch.Ok}
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Name: "primary",
		Mailboxes: []config.MailboxRoute{
			{Name: "INBOX", Success: "Processed", Failure: "Failed"},
		},
	}
}

func TestRun_StopsCleanlyOnContextCancel(t *testing.T) {
	session := &fakeSession{}
	s := New(testServerConfig(), fakePipeline{},
		func() config.RuntimeConfig { return config.RuntimeConfig{MaxQueryMessages: 10, QueryInterval: time.Hour} },
		func() string { return "/dbquery" },
		WithDialer(func(context.Context, config.ServerConfig) (Session, error) { return session, nil }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
	assert.True(t, session.closed)
}

func TestRun_ReturnsCloseErrorOnContextCancel(t *testing.T) {
	session := &fakeSession{closeErr: errors.New("tcp: connection reset")}
	s := New(testServerConfig(), fakePipeline{},
		func() config.RuntimeConfig { return config.RuntimeConfig{MaxQueryMessages: 10, QueryInterval: time.Hour} },
		func() string { return "/dbquery" },
		WithDialer(func(context.Context, config.ServerConfig) (Session, error) { return session, nil }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, session.closeErr)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
}

func TestRun_RetriesOnDialFailure(t *testing.T) {
	attempts := 0
	s := New(testServerConfig(), fakePipeline{},
		func() config.RuntimeConfig { return config.RuntimeConfig{MaxQueryMessages: 10, QueryInterval: time.Hour} },
		func() string { return "/dbquery" },
		WithReconnectDelay(5*time.Millisecond),
		WithDialer(func(context.Context, config.ServerConfig) (Session, error) {
			attempts++
			return nil, errors.New("connection refused")
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(40 * time.Millisecond)
	cancel()
	<-done

	assert.Greater(t, attempts, 1)
}

// TestRun_PollsPassedMailboxesWhenOneRouteIsMissing mirrors a server where
// one configured mailbox (Drafts) and its destinations do not exist but
// INBOX's route is intact: INBOX must still be polled and Drafts skipped.
func TestRun_PollsPassedMailboxesWhenOneRouteIsMissing(t *testing.T) {
	session := &fakeSession{}
	cfg := config.ServerConfig{
		Name: "primary",
		Mailboxes: []config.MailboxRoute{
			{Name: "INBOX", Success: "Processed", Failure: "Failed"},
			{Name: "Drafts", Success: "DraftsProcessed", Failure: "DraftsFailed"},
		},
	}
	s := New(cfg, fakePipeline{},
		func() config.RuntimeConfig { return config.RuntimeConfig{MaxQueryMessages: 10, QueryInterval: time.Hour} },
		func() string { return "/dbquery" },
		WithDialer(func(context.Context, config.ServerConfig) (Session, error) { return session, nil }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
	assert.True(t, session.closed)
	assert.Contains(t, session.selected, "INBOX")
	assert.NotContains(t, session.selected, "Drafts")
}
