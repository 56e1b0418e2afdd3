package mailbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxforge/mailgate/internal/config"
	"github.com/inboxforge/mailgate/internal/connector"
)

type fakeLister struct {
	infos []connector.MailboxInfo
	err   error
}

func (f fakeLister) ListMailboxes(context.Context) ([]connector.MailboxInfo, error) {
	return f.infos, f.err
}

func TestCheckStructure_PassesWhenAllMailboxesExist(t *testing.T) {
	lister := fakeLister{infos: []connector.MailboxInfo{
		{Name: "INBOX"}, {Name: "Processed"}, {Name: "Failed"},
	}}
	cfg := config.ServerConfig{
		Name:      "primary",
		Mailboxes: []config.MailboxRoute{{Name: "INBOX", Success: "Processed", Failure: "Failed"}},
	}
	passed, failed, err := CheckStructure(context.Background(), lister, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Mailboxes, passed)
	assert.Empty(t, failed)
}

func TestCheckStructure_FailsRouteWithMissingDestination(t *testing.T) {
	lister := fakeLister{infos: []connector.MailboxInfo{{Name: "INBOX"}}}
	cfg := config.ServerConfig{
		Name:      "primary",
		Mailboxes: []config.MailboxRoute{{Name: "INBOX", Success: "Processed", Failure: "Failed"}},
	}
	passed, failed, err := CheckStructure(context.Background(), lister, cfg)
	require.NoError(t, err)
	assert.Empty(t, passed)
	assert.Equal(t, cfg.Mailboxes, failed)
}

// TestCheckStructure_PartitionsPassedAndFailed mirrors the scenario where one
// configured mailbox (Drafts) and its destinations are missing but another
// (INBOX) is fully intact: INBOX must still be pollable even though Drafts is not.
func TestCheckStructure_PartitionsPassedAndFailed(t *testing.T) {
	lister := fakeLister{infos: []connector.MailboxInfo{
		{Name: "INBOX"}, {Name: "Processed"}, {Name: "Failed"},
	}}
	cfg := config.ServerConfig{
		Name: "primary",
		Mailboxes: []config.MailboxRoute{
			{Name: "INBOX", Success: "Processed", Failure: "Failed"},
			{Name: "Drafts", Success: "DraftsProcessed", Failure: "DraftsFailed"},
		},
	}
	passed, failed, err := CheckStructure(context.Background(), lister, cfg)
	require.NoError(t, err)
	assert.Equal(t, []config.MailboxRoute{cfg.Mailboxes[0]}, passed)
	assert.Equal(t, []config.MailboxRoute{cfg.Mailboxes[1]}, failed)
}

func TestCheckStructure_ListErrorIsFatal(t *testing.T) {
	lister := fakeLister{err: assert.AnError}
	cfg := config.ServerConfig{Name: "primary"}
	_, _, err := CheckStructure(context.Background(), lister, cfg)
	assert.Error(t, err)
}
