package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/inboxforge/mailgate/internal/bodyproc"
	"github.com/inboxforge/mailgate/internal/config"
	"github.com/inboxforge/mailgate/internal/mailmsg"
	"github.com/inboxforge/mailgate/internal/metrics"
	"github.com/inboxforge/mailgate/internal/restapi"
)

var issueNumberPattern = regexp.MustCompile(`SRQ\d{12}`)

// SpamChecker is the subset of *spam.Gate the pipeline calls.
type SpamChecker interface {
	Check(ctx context.Context, cfg config.SpamConfig, dbQueryURI, personID string, headers map[string][]string) bool
}

// Ticketing is the subset of *restapi.Client the pipeline calls, narrowed
// to an interface so the pipeline can be tested without an HTTP server.
type Ticketing interface {
	FindPersonByEmail(ctx context.Context, email string) (*restapi.Person, error)
	FindIssueByNumber(ctx context.Context, number string) (*restapi.Issue, error)
	CreateIssue(ctx context.Context, in restapi.IssueInput) (*restapi.Issue, error)
	UploadIssueAttachment(ctx context.Context, issueID, filename, mimeType string, data []byte) error
	CreateComment(ctx context.Context, in restapi.CommentInput) (*restapi.Comment, error)
	UploadCommentAttachment(ctx context.Context, commentID, filename, mimeType string, data []byte) error
	Timezone(ctx context.Context, dbQueryURI, personID string) (string, error)
}

// Pipeline runs every fetched message through the issue/comment decision
// diagram.
type Pipeline struct {
	tickets Ticketing
	spam    SpamChecker
	logger  *log.Logger
}

// New builds a Pipeline.
func New(tickets Ticketing, spam SpamChecker) *Pipeline {
	return &Pipeline{tickets: tickets, spam: spam, logger: log.Default()}
}

// WithLogger overrides the diagnostic logger.
func (p *Pipeline) WithLogger(logger *log.Logger) *Pipeline {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Dispatch runs one message through the pipeline and returns its terminal
// Outcome. serverName and mailbox are used only for logging and metrics
// labels.
func (p *Pipeline) Dispatch(ctx context.Context, serverName, mailbox string, msg *mailmsg.Message, rc config.RuntimeConfig, dbQueryURI string) Outcome {
	start := time.Now()
	outcome := p.dispatch(ctx, serverName, mailbox, msg, rc, dbQueryURI)
	metrics.DispatchDuration.WithLabelValues(serverName, outcome.Kind.String()).Observe(time.Since(start).Seconds())
	metrics.MessagesDispatched.WithLabelValues(serverName, mailbox, outcome.Kind.String()).Inc()
	p.logger.Printf("dispatch: server=%s mailbox=%s uid=%d outcome=%s reason=%q", serverName, mailbox, msg.UID, outcome.Kind, outcome.Reason)
	return outcome
}

func (p *Pipeline) dispatch(ctx context.Context, serverName, mailbox string, msg *mailmsg.Message, rc config.RuntimeConfig, dbQueryURI string) Outcome {
	if msg.Subject == "" && msg.PrimaryBody() == "" {
		return skipped("message has neither subject nor body")
	}

	body := bodyproc.Process(msg.PrimaryBody(), msg.IsHTML(), rc)
	msg.ParsedFields = body.ParsedFields

	if number := issueNumberPattern.FindString(msg.Subject); number != "" {
		return p.commentFlow(ctx, serverName, number, msg, rc, dbQueryURI, body.Body)
	}
	return p.issueFlow(ctx, serverName, msg, rc, dbQueryURI, body.Body)
}

func (p *Pipeline) commentFlow(ctx context.Context, serverName, number string, msg *mailmsg.Message, rc config.RuntimeConfig, dbQueryURI, body string) Outcome {
	if _, err := p.tickets.FindIssueByNumber(ctx, number); err != nil {
		// Any lookup failure, not just a confirmed not-found, falls through
		// to the new-issue flow rather than rejecting the message.
		return p.issueFlow(ctx, serverName, msg, rc, dbQueryURI, body)
	}

	in := restapi.CommentInput{ForeignKey: number, Body: body}

	person, err := p.tickets.FindPersonByEmail(ctx, msg.From)
	switch {
	case err == nil:
		if p.spam != nil && p.spam.Check(ctx, rc.Spam, dbQueryURI, person.ID, msg.Header) {
			metrics.SpamRejections.WithLabelValues(serverName).Inc()
			return rejected("sender flagged by spam gate", nil)
		}
		in.PersonID = person.ID
	case errors.Is(err, restapi.ErrPersonNotFound):
		// Unknown sender on a follow-up: post anonymously rather than
		// rejecting or running the spam gate against an address with no
		// history to check.
		in.Anonymous = true
	default:
		return rejected("resolving comment sender", err)
	}

	comment, err := p.tickets.CreateComment(ctx, in)
	if err != nil {
		return rejected("creating comment on "+number, err)
	}

	if rc.JoinAttachments {
		p.uploadAttachments(ctx, msg, func(filename, mime string, data []byte) error {
			return p.tickets.UploadCommentAttachment(ctx, comment.ID, filename, mime, data)
		})
	}

	return ok("comment added to " + number)
}

func (p *Pipeline) issueFlow(ctx context.Context, serverName string, msg *mailmsg.Message, rc config.RuntimeConfig, dbQueryURI string, body string) Outcome {
	person, err := p.tickets.FindPersonByEmail(ctx, msg.From)
	if err != nil {
		if !errors.Is(err, restapi.ErrPersonNotFound) {
			return rejected("resolving issue sender", err)
		}
		return p.issueFlowPersonNotFound(ctx, msg, rc, body)
	}

	if p.spam != nil && p.spam.Check(ctx, rc.Spam, dbQueryURI, person.ID, msg.Header) {
		metrics.SpamRejections.WithLabelValues(serverName).Inc()
		return rejected("sender flagged by spam gate", nil)
	}

	attrs := p.issueAttrs(rc, msg)
	p.applyTimezone(ctx, dbQueryURI, person.ID, attrs)

	in := restapi.IssueInput{
		PersonID:   person.ID,
		Subject:    msg.Subject,
		Body:       body,
		ReceivedAt: time.Now().UTC(),
		Attrs:      attrs,
	}
	issue, err := p.tickets.CreateIssue(ctx, in)
	if err != nil {
		return rejected("creating issue", err)
	}

	if rc.JoinAttachments {
		p.uploadAttachments(ctx, msg, func(filename, mime string, data []byte) error {
			return p.tickets.UploadIssueAttachment(ctx, issue.ID, filename, mime, data)
		})
	}
	if rc.JoinOriginalAsEml {
		emlName := fmt.Sprintf("%d-message.eml", msg.UID)
		if err := p.tickets.UploadIssueAttachment(ctx, issue.ID, emlName, "message/rfc822", msg.Raw); err != nil {
			p.logger.Printf("dispatch: uploading %s for issue %s failed: %v", emlName, issue.ID, err)
		}
	}

	return ok("issue " + issue.Number + " created")
}

// issueFlowPersonNotFound handles a new-issue sender that has no person
// record, branching on the two mutually exclusive onPersonNotFound modes. No
// spam check runs on this path — there is no person-id to check it against.
func (p *Pipeline) issueFlowPersonNotFound(ctx context.Context, msg *mailmsg.Message, rc config.RuntimeConfig, body string) Outcome {
	if rc.OnPersonNotFound != config.OnPersonNotFoundCreateSystemIssue {
		return rejected("sender unknown, moving to failure folder", restapi.ErrPersonNotFound)
	}

	attrs := p.issueAttrs(rc, msg)
	in := restapi.IssueInput{
		PersonID:   rc.DefaultIssueAttrs["authorId"],
		Subject:    msg.Subject,
		Body:       body,
		ReceivedAt: time.Now().UTC(),
		Attrs:      attrs,
	}
	issue, err := p.tickets.CreateIssue(ctx, in)
	if err != nil {
		return rejected("creating system issue for unknown sender", err)
	}

	if rc.JoinAttachments {
		p.uploadAttachments(ctx, msg, func(filename, mime string, data []byte) error {
			return p.tickets.UploadIssueAttachment(ctx, issue.ID, filename, mime, data)
		})
	}
	if rc.JoinOriginalAsEml {
		emlName := fmt.Sprintf("%d-message.eml", msg.UID)
		if err := p.tickets.UploadIssueAttachment(ctx, issue.ID, emlName, "message/rfc822", msg.Raw); err != nil {
			p.logger.Printf("dispatch: uploading %s for issue %s failed: %v", emlName, issue.ID, err)
		}
	}

	return ok("system issue " + issue.Number + " created for unknown sender")
}

func (p *Pipeline) issueAttrs(rc config.RuntimeConfig, msg *mailmsg.Message) map[string]string {
	attrs := map[string]string{}
	for k, v := range rc.DefaultIssueAttrs {
		attrs[k] = v
	}
	for k, v := range msg.ParsedFields {
		attrs[k] = v
	}
	return attrs
}

// applyTimezone appends the person's UTC offset to every date-typed field in
// attrs, falling back to +00:00 if the lookup fails. Non-date fields (and
// values that don't parse as a date already emitted by the body processor)
// are left untouched.
func (p *Pipeline) applyTimezone(ctx context.Context, dbQueryURI, personID string, attrs map[string]string) {
	offset, err := p.tickets.Timezone(ctx, dbQueryURI, personID)
	if err != nil {
		offset = "+00:00"
	}
	for k, v := range attrs {
		if _, perr := time.Parse("2006-01-02T15:04:05", v); perr == nil {
			attrs[k] = v + offset
		}
	}
}

func (p *Pipeline) uploadAttachments(ctx context.Context, msg *mailmsg.Message, upload func(filename, mime string, data []byte) error) {
	for _, att := range msg.Attachments {
		if err := upload(att.Filename, att.ContentType, att.Data); err != nil {
			p.logger.Printf("dispatch: uploading attachment %s failed: %v", att.Filename, err)
		}
	}
}
