package bodyproc

import (
	"regexp"

	"github.com/inboxforge/mailgate/internal/config"
)

var newlinePattern = regexp.MustCompile(`\r?\n`)

// TruncateText cuts body at the earliest point any configured delimiter
// matches (body unchanged if none match), then replaces every line break
// with <br> so the stored result is HTML-safe regardless of whether a
// delimiter was found.
func TruncateText(body string, delimiters []config.Delimiter) string {
	cut := -1
	for i := range delimiters {
		idx := delimiters[i].FindIndex(body)
		if idx < 0 {
			continue
		}
		if cut < 0 || idx < cut {
			cut = idx
		}
	}
	if cut >= 0 {
		body = body[:cut]
	}
	return newlinePattern.ReplaceAllString(body, "<br>")
}
