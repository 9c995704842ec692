package provider

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockElements start a new line in the visible text.
var blockElements = map[string]struct{}{
	"address": {}, "article": {}, "aside": {}, "br": {}, "dd": {}, "div": {},
	"dl": {}, "dt": {}, "footer": {}, "form": {}, "h1": {}, "h2": {},
	"h3": {}, "h4": {}, "h5": {}, "h6": {}, "header": {}, "hr": {},
	"li": {}, "main": {}, "nav": {}, "ol": {}, "p": {}, "section": {},
	"table": {}, "td": {}, "th": {}, "tr": {}, "ul": {},
}

const hiddenElements = "script, style, noscript, template, svg"

// visibleText renders the body as text with one block element per line and
// blank lines dropped. It removes non-content elements from doc.
func visibleText(doc *goquery.Document) string {
	body := doc.Find("body")
	body.Find(hiddenElements).Remove()

	var b strings.Builder
	writeText(&b, body)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = collapse(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		if name == "#text" {
			b.WriteString(s.Text())
			return
		}

		_, block := blockElements[name]
		if block {
			b.WriteByte('\n')
		}
		writeText(b, s)
		if block {
			b.WriteByte('\n')
		}
	})
}
