package mail

import (
	"encoding/base64"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	gmail "google.golang.org/api/gmail/v1"
)

// minPlainBodyLen: plain bodies shorter than this are treated as placeholders
// ("view this message in a browser") and the HTML part is used instead
const minPlainBodyLen = 20

var whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)

// Body returns the text the oracle should read for m
func (m Message) Body() string {
	if len(strings.TrimSpace(m.PlainBody)) >= minPlainBodyLen || m.HTMLBody == "" {
		return m.PlainBody
	}
	return HTMLToText(m.HTMLBody)
}

// HTMLToText flattens markup into a single line of visible text. Script and
// style content is dropped; every tag becomes a word break.
func HTMLToText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))

	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(whitespace.ReplaceAllString(b.String(), " "))
		case html.StartTagToken:
			if isInvisible(z) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			if isInvisible(z) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isInvisible(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style", "head", "title":
		return true
	}
	return false
}

// extractBodies walks a MIME tree and returns the first text/plain and
// text/html bodies found, depth first
func extractBodies(part *gmail.MessagePart) (plain, htmlBody string) {
	if part == nil {
		return "", ""
	}

	var walk func(p *gmail.MessagePart)
	walk = func(p *gmail.MessagePart) {
		if p == nil {
			return
		}
		mime := strings.ToLower(p.MimeType)
		isAttachment := p.Filename != ""

		if !isAttachment && p.Body != nil && p.Body.Data != "" {
			switch {
			case strings.HasPrefix(mime, "text/plain") && plain == "":
				plain = decodeBody(p.Body.Data)
			case strings.HasPrefix(mime, "text/html") && htmlBody == "":
				htmlBody = decodeBody(p.Body.Data)
			}
		}
		for _, child := range p.Parts {
			walk(child)
		}
	}
	walk(part)
	return plain, htmlBody
}

// decodeBody decodes Gmail's URL-safe base64, with or without padding
func decodeBody(data string) string {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "=")); err == nil {
		return string(b)
	}
	return ""
}

func header(part *gmail.MessagePart, name string) string {
	if part == nil {
		return ""
	}
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
