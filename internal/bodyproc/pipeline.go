package bodyproc

import "github.com/inboxforge/mailgate/internal/config"

// Result is the body processor's output for one message: the body text
// ready to attach to an issue/comment, and the attribute values extracted
// from it before truncation removed anything quoted below a delimiter.
type Result struct {
	Body         string
	ParsedFields map[string]string
}

// Process runs attribute extraction against the untruncated body (so a
// date/id/string attribute quoted below a reply delimiter is still found),
// then truncates and, for HTML bodies, sanitizes. For an HTML body, attribute
// extraction runs against the parsed <body>'s textual content rather than
// the raw markup, so a key/value pair split across adjacent tags (e.g.
// "<div>Due</div><div>: 05-03-2026</div>") is still found.
func Process(body string, isHTML bool, rc config.RuntimeConfig) Result {
	attrSource := body
	if isHTML {
		attrSource = TextContent(body)
	}
	fields := ExtractAttributes(attrSource, rc.PermittedBodyAttributes)

	out := body
	if rc.TruncateCommentsAfterDelimiter {
		if isHTML {
			out = TruncateHTML(out, rc.CommentDelimiters)
		} else {
			out = TruncateText(out, rc.CommentDelimiters)
		}
	}
	if isHTML {
		out = Sanitize(out)
	}

	return Result{Body: out, ParsedFields: fields}
}
