// Package mailbox implements the mailbox structure check and the per-box
// poll cycle that searches, fetches, dispatches, and moves messages.
package mailbox

import (
	"context"
	"fmt"

	"github.com/inboxforge/mailgate/internal/config"
	"github.com/inboxforge/mailgate/internal/connector"
)

// Lister is the subset of *connector.Session the structure check needs.
type Lister interface {
	ListMailboxes(ctx context.Context) ([]connector.MailboxInfo, error)
}

// CheckStructure verifies every mailbox route named in cfg against the
// server's actual hierarchy, partitioning routes into passed (source and
// both destinations exist) and failed (something is missing). A missing
// mailbox only disqualifies its own route; it must not stop the server from
// polling the routes that are intact. err is non-nil only when listing the
// hierarchy itself fails.
func CheckStructure(ctx context.Context, lister Lister, cfg config.ServerConfig) (passed, failed []config.MailboxRoute, err error) {
	entries, err := lister.ListMailboxes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("mailbox: listing hierarchy for %s: %w", cfg.Name, err)
	}
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name] = true
	}

	for _, route := range cfg.Mailboxes {
		if present[route.Name] && present[route.Success] && present[route.Failure] {
			passed = append(passed, route)
		} else {
			failed = append(failed, route)
		}
	}
	return passed, failed, nil
}
