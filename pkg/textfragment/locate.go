package textfragment

import (
	"fmt"
	"regexp"
	"strings"
)

// space matches ASCII whitespace and Unicode space separators such as the
// no-break space that &nbsp; renders to.
const space = `[\s\p{Zs}]*`

// Pattern builds the expression that finds the directive in a body:
// prefix, optional whitespace, the captured match, optional whitespace,
// suffix. Every part is matched literally and case-insensitively, and the
// match may span lines.
func (d Directive) Pattern() (*regexp.Regexp, error) {
	inner := regexp.QuoteMeta(d.TextStart)
	if d.TextEnd != "" {
		inner += `.*?` + regexp.QuoteMeta(d.TextEnd)
	}

	expr := `(?is)` + regexp.QuoteMeta(d.Prefix) + space + `(` + inner + `)` + space + regexp.QuoteMeta(d.Suffix)
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern for %s: %w", d, err)
	}
	return re, nil
}

// Locate returns the text the directive designates in body, trimmed of
// surrounding whitespace. Only the first occurrence in document order is
// used. ok is false when the body holds no match.
func (d Directive) Locate(body string) (text string, ok bool, err error) {
	re, err := d.Pattern()
	if err != nil {
		return "", false, err
	}

	m := re.FindStringSubmatch(body)
	if m == nil {
		return "", false, nil
	}
	return strings.TrimSpace(m[1]), true, nil
}

// Locate is shorthand for d.Locate(body) that treats a pattern error as no
// match. Patterns built from quoted literals always compile.
func Locate(d Directive, body string) (string, bool) {
	text, ok, err := d.Locate(body)
	if err != nil {
		return "", false
	}
	return text, ok
}
