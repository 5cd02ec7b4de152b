// Package textfragment parses text fragment directives (the "#:~:text="
// syntax browsers use to deep-link into a passage) and locates the text each
// directive designates inside a page's plaintext body.
//
// A directive has the shape
//
//	text=[prefix-,]textStart[,textEnd][,-suffix]
//
// and several directives may be joined with '&' after the ":~:" marker of a
// URL fragment. Parsing and locating are pure functions and safe for
// concurrent use.
package textfragment

import (
	"net/url"
	"strings"
)

// Directive is one parsed text= instruction. All fields hold percent-decoded
// text. An empty string means the part is absent; the format cannot tell
// "no suffix" from "empty suffix".
type Directive struct {
	// Prefix must immediately precede the match but is not part of it
	Prefix string `json:"prefix" yaml:"prefix"`

	// TextStart is the first (or only) anchor phrase. Never empty.
	TextStart string `json:"text_start" yaml:"text_start"`

	// TextEnd is the closing anchor; the match spans TextStart..TextEnd
	TextEnd string `json:"text_end" yaml:"text_end"`

	// Suffix must immediately follow the match but is not part of it
	Suffix string `json:"suffix" yaml:"suffix"`
}

// HasRange reports whether the directive spans from TextStart to TextEnd.
func (d Directive) HasRange() bool {
	return d.TextEnd != ""
}

// NeedsBody reports whether resolving the directive requires a search over
// page text. A lone TextStart resolves to itself.
func (d Directive) NeedsBody() bool {
	return d.HasRange()
}

// String re-encodes the directive in text= form. Parsing the result yields
// the same directive.
func (d Directive) String() string {
	var b strings.Builder
	b.WriteString("text=")
	if d.Prefix != "" {
		b.WriteString(encodePart(d.Prefix))
		b.WriteString("-,")
	}
	b.WriteString(encodePart(d.TextStart))
	if d.TextEnd != "" {
		b.WriteString(",")
		b.WriteString(encodePart(d.TextEnd))
	}
	if d.Suffix != "" {
		b.WriteString(",-")
		b.WriteString(encodePart(d.Suffix))
	}
	return b.String()
}

// encodePart percent-encodes s so that it survives as a single directive
// group. Separators and '-' are always escaped.
func encodePart(s string) string {
	escaped := url.PathEscape(s)
	r := strings.NewReplacer(
		"-", "%2D",
		",", "%2C",
		"&", "%26",
	)
	return r.Replace(escaped)
}
