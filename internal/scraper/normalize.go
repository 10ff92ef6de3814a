package scraper

import (
	"strings"

	"golang.org/x/net/html"
)

var markupReplacer = strings.NewReplacer(
	"<b>", "",
	"</b>", "",
	"<br>", "",
	"<br/>", "",
	"<br />", "",
	"\n", "",
	"\r", "",
)

// Normalize cleans a text fragment taken from bulletin markup: entities are decoded,
// bold and line-break tags and raw line breaks are removed, and surrounding
// whitespace is trimmed. Any other markup passes through unchanged.
//
// The cleanup is repeated until the text stops changing, so Normalize(Normalize(s))
// always equals Normalize(s) even for doubly-escaped input.
func Normalize(raw string) string {
	s := raw
	for {
		next := strings.TrimSpace(markupReplacer.Replace(html.UnescapeString(s)))
		if next == s {
			return s
		}
		s = next
	}
}
