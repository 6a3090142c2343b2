package wiktionary

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var referenceMarker = regexp.MustCompile(`\[\d+\]`)

// skipped in definition text: nested senses, examples, quotations
var nestedBlocks = map[string]bool{
	"ol":     true,
	"ul":     true,
	"dl":     true,
	"style":  true,
	"script": true,
}

// StripTags removes markup from an HTML fragment and normalises whitespace
func StripTags(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapseSpace(fragment)
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return collapseSpace(fragment)
	}

	var buf strings.Builder
	collectText(&buf, doc, map[string]bool{"style": true, "script": true})
	return collapseSpace(buf.String())
}

// ExtractDefinition returns the first definition in the section whose
// level-2 heading id is section. It stops at the next level-2 heading with
// another id (headings without an id do not end it); without a match it takes the first item of the first
// ordered list in the page.
func ExtractDefinition(page string, section string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	if heading := findSectionHeading(doc, section); heading != nil {
		for sib := heading.NextSibling; sib != nil; sib = sib.NextSibling {
			if isLevel2Heading(sib) {
				if id := headingID(sib); id != "" && id != section {
					break
				}
			}
			if isElement(sib, "ol") {
				if text := firstItemText(sib); text != "" {
					return text, nil
				}
			}
		}
	}

	lists := findAll(doc, func(n *html.Node) bool { return isElement(n, "ol") })
	for _, ol := range lists {
		if text := firstItemText(ol); text != "" {
			return text, nil
		}
	}

	return "", ErrNotFound
}

// findSectionHeading finds the heading for section. Current MediaWiki
// output wraps the h2 in div.mw-heading; the wrapper is returned then,
// since the section body is its siblings.
func findSectionHeading(doc *html.Node, section string) *html.Node {
	h2 := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "h2") && headingID(n) == section
	})
	if h2 == nil {
		return nil
	}
	if p := h2.Parent; p != nil && isElement(p, "div") && hasClass(p, "mw-heading") {
		return p
	}
	return h2
}

func isLevel2Heading(n *html.Node) bool {
	if isElement(n, "h2") {
		return true
	}
	return isElement(n, "div") && hasClass(n, "mw-heading2")
}

// headingID reads the id from an h2, its inner span, or the h2 inside a
// div.mw-heading wrapper
func headingID(n *html.Node) string {
	if isElement(n, "div") {
		h2 := findFirst(n, func(c *html.Node) bool { return isElement(c, "h2") })
		if h2 == nil {
			return ""
		}
		n = h2
	}
	if id := getAttribute(n, "id"); id != "" {
		return id
	}
	span := findFirst(n, func(c *html.Node) bool {
		return isElement(c, "span") && getAttribute(c, "id") != ""
	})
	if span != nil {
		return getAttribute(span, "id")
	}
	return ""
}

// firstItemText returns the text of the first non-empty direct li
func firstItemText(ol *html.Node) string {
	for c := ol.FirstChild; c != nil; c = c.NextSibling {
		if !isElement(c, "li") {
			continue
		}
		var buf strings.Builder
		collectText(&buf, c, nestedBlocks)
		text := referenceMarker.ReplaceAllString(buf.String(), "")
		if text = collapseSpace(text); text != "" {
			return text
		}
	}
	return ""
}

func collectText(buf *strings.Builder, n *html.Node, skip map[string]bool) {
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && skip[c.Data] {
			continue
		}
		collectText(buf, c, skip)
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func hasClass(n *html.Node, className string) bool {
	for _, class := range strings.Fields(getAttribute(n, "class")) {
		if class == className {
			return true
		}
	}
	return false
}

func getAttribute(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	if predicate(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, predicate); found != nil {
			return found
		}
	}
	return nil
}
