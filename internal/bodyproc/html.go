package bodyproc

import (
	"strings"

	"github.com/inboxforge/mailgate/internal/config"
	"golang.org/x/net/html"
)

// TruncateHTML finds the deepest element whose text contains a configured
// delimiter, cuts that text node at the match, and removes every sibling to
// its right, walking up the ancestor chain to <body> and removing the
// right-hand siblings at each level too. This keeps quoted-reply content
// that HTML mail clients nest as later siblings (not later text within the
// same node) out of the stored body.
func TruncateHTML(bodyHTML string, delimiters []config.Delimiter) string {
	if len(delimiters) == 0 {
		return bodyHTML
	}
	doc, err := html.Parse(strings.NewReader(bodyHTML))
	if err != nil {
		return bodyHTML
	}
	body := findBody(doc)
	if body == nil {
		return bodyHTML
	}

	if matched := truncateAtFirstMatch(body, delimiters); matched {
		return renderChildren(body)
	}
	return bodyHTML
}

// TextContent parses bodyHTML and returns the concatenated text content of
// its <body> element, for permitted-attribute extraction against an HTML
// message whose key/value pair may be split across adjacent tags (e.g.
// "<div>Due</div><div>: 05-03-2026</div>"). Returns bodyHTML unchanged if it
// cannot be parsed or has no <body>.
func TextContent(bodyHTML string) string {
	doc, err := html.Parse(strings.NewReader(bodyHTML))
	if err != nil {
		return bodyHTML
	}
	body := findBody(doc)
	if body == nil {
		return bodyHTML
	}
	var sb strings.Builder
	var runs []textRun
	collectText(body, &runs, &sb)
	return sb.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// textRun records where one leaf text node's contents begin within the
// document-order text built by collectText, so a match found in that merged
// text can be mapped back to the specific node (and offset within it) that
// contains the match's start.
type textRun struct {
	node  *html.Node
	start int
}

// truncateAtFirstMatch locates the earliest delimiter match against the
// element's full text content — not each text node in isolation — so a
// delimiter split across inline markup (e.g. "Best <b>regards</b>") is still
// found. This implements "deepest element whose own text contains the
// match", because cutting at the exact leaf text node containing the
// match's start and pruning everything to its right is equivalent to
// cutting at that deepest element; when no single leaf's text matches but a
// leaf's parent's aggregated text does, the match necessarily starts inside
// one of that parent's leaves, and cutting there produces the same result.
func truncateAtFirstMatch(n *html.Node, delimiters []config.Delimiter) bool {
	var runs []textRun
	var merged strings.Builder
	collectText(n, &runs, &merged)

	idx := earliestMatch(merged.String(), delimiters)
	if idx < 0 {
		return false
	}
	for _, run := range runs {
		end := run.start + len(run.node.Data)
		if idx < end {
			run.node.Data = run.node.Data[:idx-run.start]
			pruneRightSiblingsUpToBody(run.node)
			return true
		}
	}
	return false
}

// collectText appends every leaf text node under n, in document order, to
// merged, recording each one's starting offset in runs.
func collectText(n *html.Node, runs *[]textRun, merged *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			*runs = append(*runs, textRun{node: c, start: merged.Len()})
			merged.WriteString(c.Data)
			continue
		}
		collectText(c, runs, merged)
	}
}

func earliestMatch(text string, delimiters []config.Delimiter) int {
	cut := -1
	for i := range delimiters {
		idx := delimiters[i].FindIndex(text)
		if idx < 0 {
			continue
		}
		if cut < 0 || idx < cut {
			cut = idx
		}
	}
	return cut
}

func pruneRightSiblingsUpToBody(n *html.Node) {
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		removeFollowingSiblings(cur)
		if cur.Parent.Type == html.ElementNode && cur.Parent.Data == "body" {
			break
		}
	}
}

func removeFollowingSiblings(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for sib := n.NextSibling; sib != nil; {
		next := sib.NextSibling
		parent.RemoveChild(sib)
		sib = next
	}
}

func renderChildren(body *html.Node) string {
	var sb strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&sb, c)
	}
	return sb.String()
}
