package config

import (
	"fmt"
	"regexp"
)

// AttributeType names the grammar a permitted body attribute's value must
// satisfy before it is accepted into ParsedFields.
type AttributeType string

const (
	AttributeTypeDate   AttributeType = "date"
	AttributeTypeID     AttributeType = "id"
	AttributeTypeString AttributeType = "string"
)

func (t AttributeType) valid() bool {
	switch t {
	case AttributeTypeDate, AttributeTypeID, AttributeTypeString:
		return true
	default:
		return false
	}
}

// OnPersonNotFoundMode controls how the dispatch pipeline reacts when an
// inbound sender address on a new issue does not resolve to a known person.
// The two values are mutually exclusive.
type OnPersonNotFoundMode string

const (
	// OnPersonNotFoundCreateSystemIssue builds a system-authored issue
	// (authored by defaultIssueAttrs.authorId) instead of the sender.
	OnPersonNotFoundCreateSystemIssue OnPersonNotFoundMode = "createSystemIssue"
	// OnPersonNotFoundMoveToFailureFolder drops the message into the failure
	// mailbox without attempting to create an issue.
	OnPersonNotFoundMoveToFailureFolder OnPersonNotFoundMode = "moveMsgToFailureFolder"
)

func (m OnPersonNotFoundMode) valid() bool {
	switch m {
	case OnPersonNotFoundCreateSystemIssue, OnPersonNotFoundMoveToFailureFolder:
		return true
	default:
		return false
	}
}

// MailboxRoute names one source mailbox and the success/failure destination
// mailboxes its processed messages are moved into. Mailboxes are configured
// as an ordered list, not a map, so config order (the polling order per
// spec's ordering guarantee) survives YAML decode.
type MailboxRoute struct {
	Name    string `mapstructure:"name"`
	Success string `mapstructure:"success"`
	Failure string `mapstructure:"failure"`
}

// TLSConfig is the per-server transport security setting. Insecure defaults
// to false and is set per server; the MAILGATE_TLS_INSECURE=true environment
// override turns it on for every server at once.
type TLSConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Insecure bool `mapstructure:"insecure"`
}

// Delimiter is either a literal substring or a regular expression used to
// find the point at which a comment body is truncated. Exactly one of
// Literal or Pattern must be set.
type Delimiter struct {
	Literal string `mapstructure:"literal"`
	Pattern string `mapstructure:"pattern"`

	compiled *regexp.Regexp
}

// Compile validates the delimiter and, for pattern delimiters, compiles the
// regular expression once so matching never re-parses it.
func (d *Delimiter) Compile() error {
	if d.Literal != "" && d.Pattern != "" {
		return fmt.Errorf("delimiter has both literal %q and pattern %q set", d.Literal, d.Pattern)
	}
	if d.Literal == "" && d.Pattern == "" {
		return fmt.Errorf("delimiter has neither literal nor pattern set")
	}
	if d.Pattern != "" {
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return fmt.Errorf("compiling delimiter pattern %q: %w", d.Pattern, err)
		}
		d.compiled = re
	}
	return nil
}

// FindIndex returns the byte offset of the delimiter's first match in body,
// or -1 if it does not occur.
func (d *Delimiter) FindIndex(body string) int {
	if d.compiled != nil {
		loc := d.compiled.FindStringIndex(body)
		if loc == nil {
			return -1
		}
		return loc[0]
	}
	idx := indexOf(body, d.Literal)
	return idx
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

// SpamConfig configures the spam gate (component 4.8).
type SpamConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	MaxOccurrences   int      `mapstructure:"max_num_of_issues"`
	TimeSpanMinutes  int      `mapstructure:"time_span"`
	Headers          []string `mapstructure:"headers"`
	DontCheckAuthors []string `mapstructure:"dont_check_authors"`
}
