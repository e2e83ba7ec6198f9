package source

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlBlocks extracts visible text from HTML, one block per paragraph-level
// element, skipping script/style/nav chrome.
func htmlBlocks(htmlContent string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	var blocks []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "footer":
				return
			case "p", "li", "h1", "h2", "h3", "blockquote":
				text := strings.TrimSpace(collectText(n))
				if text != "" {
					blocks = append(blocks, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	// Documents without paragraph markup become a single block.
	if len(blocks) == 0 {
		if text := strings.TrimSpace(collectText(doc)); text != "" {
			blocks = append(blocks, text)
		}
	}
	return blocks, nil
}

// collectText gathers text nodes beneath n, normalizing whitespace.
func collectText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(buf.String()), " ")
}

// FirstSentence returns the first sentence of a paragraph, used to derive
// micro-claims. Falls back to the whole text when no terminator is found.
func FirstSentence(text string) string {
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(text) || text[i+1] == ' ' {
				return strings.TrimSpace(text[:i+1])
			}
		}
	}
	return strings.TrimSpace(text)
}
