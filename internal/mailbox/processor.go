package mailbox

import (
	"context"
	"log"

	"github.com/emersion/go-imap/v2"

	"github.com/inboxforge/mailgate/internal/config"
	"github.com/inboxforge/mailgate/internal/connector"
	"github.com/inboxforge/mailgate/internal/dispatch"
	"github.com/inboxforge/mailgate/internal/mailmsg"
	"github.com/inboxforge/mailgate/internal/metrics"
)

// Session is the subset of *connector.Session the processor drives.
type Session interface {
	Select(mailbox string) (uint32, error)
	SearchUnseen(max int) ([]imap.UID, error)
	FetchRaw(uids []imap.UID) ([]connector.Message, error)
	Move(uid imap.UID, dest string) error
}

// Pipeline is the subset of *dispatch.Pipeline the processor drives.
type Pipeline interface {
	Dispatch(ctx context.Context, serverName, mailbox string, msg *mailmsg.Message, rc config.RuntimeConfig, dbQueryURI string) dispatch.Outcome
}

// Processor polls one configured source mailbox on one server.
type Processor struct {
	ServerName string
	Route      config.MailboxRoute
	Session    Session
	Pipeline   Pipeline
	DBQueryURI string
	Logger     *log.Logger
}

// PollOnce runs a single search-fetch-dispatch-move cycle against the
// mailbox. It returns the number of messages it attempted.
func (p *Processor) PollOnce(ctx context.Context, rc config.RuntimeConfig) (int, error) {
	if _, err := p.Session.Select(p.Route.Name); err != nil {
		return 0, err
	}

	uids, err := p.Session.SearchUnseen(rc.MaxQueryMessages)
	if err != nil {
		return 0, err
	}
	metrics.PollTicks.WithLabelValues(p.ServerName, p.Route.Name).Inc()
	if len(uids) == 0 {
		return 0, nil
	}

	fetched, err := p.Session.FetchRaw(uids)
	if err != nil {
		return 0, err
	}

	for _, item := range fetched {
		p.processOne(ctx, item, rc)
	}
	return len(fetched), nil
}

func (p *Processor) processOne(ctx context.Context, item connector.Message, rc config.RuntimeConfig) {
	msg, err := mailmsg.Parse(uint32(item.UID), item.Raw)
	if err != nil {
		p.logf("mailbox: parsing uid %d in %s failed, moving to failure route: %v", item.UID, p.Route.Name, err)
		p.move(item.UID, p.Route.Failure)
		return
	}

	outcome := p.Pipeline.Dispatch(ctx, p.ServerName, p.Route.Name, msg, rc, p.DBQueryURI)
	switch outcome.Kind {
	case dispatch.Ok:
		p.move(item.UID, p.Route.Success)
	case dispatch.Rejected:
		p.move(item.UID, p.Route.Failure)
	case dispatch.Skipped:
		// Left in the source mailbox, already \Seen, for manual triage.
	}
}

func (p *Processor) move(uid imap.UID, dest string) {
	if err := p.Session.Move(uid, dest); err != nil {
		p.logf("mailbox: moving uid %d to %s failed: %v", uid, dest, err)
	}
}

func (p *Processor) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}
