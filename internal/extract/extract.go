// Package extract converts server-delivered markup into normalized plain
// text. It never executes scripts or renders layout; pages whose readable
// content only appears after client-side rendering yield nothing here.
package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// MinChars is the minimum length of extracted text below which a page is
// considered to have no usable content.
const MinChars = 50

// Result carries the readable text of a page plus its <title>, used as a
// fallback when the search provider supplied no title for the candidate.
type Result struct {
	Title string
	Text  string
}

// elements skipped in the precision pass. These are boilerplate containers
// around the article body.
var precisionSkip = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"nav": true, "footer": true, "header": true, "aside": true,
	"iframe": true, "form": true, "button": true, "select": true,
}

// elements skipped even in the recall pass; their text is never prose.
var recallSkip = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"iframe": true,
}

// FromHTML extracts readable text in two passes: a precision-favoring pass
// rooted at <main>/<article> that skips boilerplate, then, if that yields
// under MinChars characters, a recall-favoring pass over the whole <body>.
// All whitespace runs are collapsed to single spaces. An empty Text means
// the page had no usable content.
func FromHTML(markup []byte) Result {
	node, err := html.Parse(bytes.NewReader(markup))
	if err != nil || node == nil {
		return Result{}
	}
	title := strings.TrimSpace(collapseSpaces(findTitle(node)))

	text := passText(contentRoot(node), precisionSkip)
	if len(text) < MinChars {
		if body := findFirst(node, "body"); body != nil {
			text = passText(body, recallSkip)
		}
	}
	if len(text) < MinChars {
		return Result{Title: title}
	}
	return Result{Title: title, Text: text}
}

// contentRoot prefers <main>, then <article>, then <body>.
func contentRoot(node *html.Node) *html.Node {
	for _, tag := range []string{"main", "article", "body"} {
		if n := findFirst(node, tag); n != nil {
			return n
		}
	}
	return node
}

func passText(root *html.Node, skip map[string]bool) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	collectText(&b, root, skip)
	return strings.TrimSpace(collapseSpaces(b.String()))
}

func findTitle(n *html.Node) string {
	t := findFirst(n, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return t.FirstChild.Data
}

func findFirst(n *html.Node, tag string) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
			res = cur
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
			if res != nil {
				return
			}
		}
	}
	dfs(n)
	return res
}

func collectText(b *strings.Builder, n *html.Node, skip map[string]bool) {
	if n.Type == html.ElementNode && skip[strings.ToLower(n.Data)] {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		// Separator so adjacent text nodes never fuse into one word.
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, skip)
	}
}

// collapseSpaces reduces every whitespace run to a single space.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v' {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
