package secapi

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\f\v\r]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// looksLikeHTML reports whether an extractor payload needs flattening
func looksLikeHTML(contentType, body string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<") &&
		(strings.Contains(head, "<html") || strings.Contains(head, "<div") ||
			strings.Contains(head, "<p") || strings.Contains(head, "<table") ||
			strings.Contains(head, "<span"))
}

// htmlToText flattens filing HTML into plain paragraphs
func htmlToText(content string) (string, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "tr", "li", "h1", "h2", "h3", "h4", "h5", "h6", "table":
				buf.WriteString("\n")
			case "td", "th":
				buf.WriteString(" ")
			}
		}
	}
	walk(doc)

	return normalizeWhitespace(buf.String()), nil
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = spaceRun.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
