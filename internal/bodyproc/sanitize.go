package bodyproc

import "github.com/microcosm-cc/bluemonday"

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowStandardAttributes()
	p.AllowElements("p", "br", "div", "span", "ul", "ol", "li", "blockquote", "pre", "code")
	p.AllowElements("b", "strong", "i", "em", "u", "h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.RequireNoFollowOnLinks(true)
	return p
}

// Sanitize strips scripting and styling vectors from an HTML body, leaving
// common formatting markup intact. Run this after delimiter truncation so
// sanitization never has to look past content that is being discarded.
func Sanitize(bodyHTML string) string {
	return policy.Sanitize(bodyHTML)
}
