package corpus

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var multiSpace = regexp.MustCompile(`\s+`)

// ExtractText reduces an HTML document to its visible text. Script, style
// and navigation chrome are dropped; text nodes are joined with spaces so
// adjacent blocks never fuse into one word.
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, nav, footer, header, aside, iframe, template").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range root.Nodes {
		walk(n)
	}
	return CleanText(sb.String()), nil
}

// CleanText collapses whitespace and trims.
func CleanText(text string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(text, " "))
}
