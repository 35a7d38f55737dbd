package services

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlToText flattens a rendered email into its plain-text alternative.
// Block elements end a line and table cells in a row are joined with ": ".
func htmlToText(body string) (string, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", err
	}

	var lines []string
	var line strings.Builder
	flush := func() {
		if text := strings.Join(strings.Fields(line.String()), " "); text != "" {
			lines = append(lines, text)
		}
		line.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			line.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "head", "style", "script":
				return
			case "br":
				flush()
				return
			case "td", "th":
				if strings.TrimSpace(line.String()) != "" {
					line.WriteString(": ")
				}
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "table":
				flush()
			}
		}
	}
	walk(doc)
	flush()

	return strings.Join(lines, "\n"), nil
}
