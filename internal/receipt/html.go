package receipt

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// whitespaceRegex also covers the unicode space separators that entity
// decoding produces, such as the no-break spaces Grab templates put
// between labels and amounts.
var whitespaceRegex = regexp.MustCompile(`[\s\p{Z}]+`)

// rawTextSkip lists elements whose text content is not receipt text.
var rawTextSkip = map[string]bool{"style": true, "script": true}

// StripMarkup flattens an HTML body into the plain text the field rules
// match against. Every tag acts as a separator, so values in adjacent
// table cells stay apart; style and script content is dropped, entities
// are decoded, and whitespace runs collapse to single spaces. A body
// without markup passes through with the same normalization.
func StripMarkup(body string) string {
	z := html.NewTokenizer(strings.NewReader(body))
	var text strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// The tokenizer stops at EOF or unparseable input; either
			// way the collected text is all there is.
			return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text.String(), " "))
		case html.StartTagToken:
			name, _ := z.TagName()
			if rawTextSkip[string(name)] {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if rawTextSkip[string(name)] && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				text.Write(z.Text())
				text.WriteByte(' ')
			}
		}
	}
}
