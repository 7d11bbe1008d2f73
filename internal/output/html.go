// internal/output/html.go
package output

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// strippedTags are removed wholesale before converting markup to text
var strippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"template": true,
}

// CleanHTML strips scripts, styles and comments from a fragment and
// returns the remaining markup. Invalid input comes back unchanged.
func CleanHTML(fragment string) string {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return fragment
	}

	var b strings.Builder
	for _, n := range nodes {
		cleanNode(n)
		if err := html.Render(&b, n); err != nil {
			return fragment
		}
	}
	return b.String()
}

func cleanNode(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.CommentNode || (c.Type == html.ElementNode && strippedTags[c.Data]) {
			n.RemoveChild(c)
			continue
		}
		cleanNode(c)
	}
}
