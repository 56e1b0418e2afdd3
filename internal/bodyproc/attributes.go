// Package bodyproc implements the permitted-attribute extraction and
// delimiter-based truncation rules a message body is run through before it
// is attached to an issue or comment.
package bodyproc

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/inboxforge/mailgate/internal/config"
)

var (
	dateValuePattern   = `\d{1,2}[-/]\d{1,2}[-/]\d{4}(?:[ T]\d{1,2}:\d{2})?`
	idValuePattern     = `[A-Z]{3}\d{12}`
	stringValuePattern = `\S+`
)

func valuePattern(t config.AttributeType) string {
	switch t {
	case config.AttributeTypeDate:
		return dateValuePattern
	case config.AttributeTypeID:
		return idValuePattern
	default:
		return stringValuePattern
	}
}

// ExtractAttributes scans body for "Name: value" lines naming one of the
// permitted attributes and returns the normalized values keyed by name.
// Date values are rewritten to ISO 8601; values that do not match their
// attribute's grammar are skipped rather than included malformed.
func ExtractAttributes(body string, permitted map[string]config.AttributeType) map[string]string {
	out := map[string]string{}
	for name, attrType := range permitted {
		re, err := regexp.Compile(fmt.Sprintf(`(?im)^[ \t]*%s[ \t]*[-;:]?[ \t]*(%s)`, regexp.QuoteMeta(name), valuePattern(attrType)))
		if err != nil {
			continue
		}
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		if attrType == config.AttributeTypeDate {
			iso, ok := normalizeDate(value)
			if !ok {
				continue
			}
			value = iso
		}
		out[name] = value
	}
	return out
}

var dateLayouts = []string{
	"02-01-2006 15:04",
	"02/01/2006 15:04",
	"02-01-2006",
	"02/01/2006",
}

// normalizeDate parses DD[-/]MM[-/]YYYY[ HH:MM] and returns an ISO 8601
// timestamp. A missing time component defaults to 23:59:59, matching the
// "end of day" convention for date-only deadlines.
func normalizeDate(value string) (string, bool) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "15:04") {
			t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
		}
		return t.Format("2006-01-02T15:04:05"), true
	}
	return "", false
}
