package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// HTML extracts the visible text of an HTML fragment or document.
type HTML struct{}

// Extract joins every text node with a single space and collapses runs of
// whitespace. Script, style and template contents are dropped.
func (h *HTML) Extract(raw string) (string, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.CommentNode, html.DoctypeNode:
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "template", "noscript":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collapseSpace(strings.Join(parts, " ")), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
