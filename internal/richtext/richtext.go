// Package richtext extracts plain text from the rich-text (HTML) fields of
// work items. Story descriptions and acceptance criteria arrive as HTML from
// the tracker; generators and prompts want plain text with images reduced to
// placeholders.
package richtext

import (
	"strings"

	"golang.org/x/net/html"
)

// blockElements force a line break when flattening HTML to text.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"table": true, "tr": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "blockquote": true, "pre": true,
}

// Text flattens HTML content to plain text. Images become "[Image: alt]"
// placeholders and block elements become line breaks. Content that is not
// parseable HTML is returned trimmed as-is.
func Text(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return strings.TrimSpace(content)
	}

	var sb strings.Builder
	flatten(root, &sb)
	return collapse(sb.String())
}

func flatten(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
	case html.ElementNode:
		switch n.Data {
		case "img":
			sb.WriteString("[Image: " + imgAlt(n) + "]")
			return
		case "script", "style":
			return
		}
		if blockElements[n.Data] {
			sb.WriteString("\n")
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		flatten(child, sb)
	}

	if n.Type == html.ElementNode && blockElements[n.Data] {
		sb.WriteString("\n")
	}
}

func imgAlt(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key == "alt" && strings.TrimSpace(attr.Val) != "" {
			return strings.TrimSpace(attr.Val)
		}
	}
	return "image"
}

// collapse trims each line and drops runs of blank lines.
func collapse(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
