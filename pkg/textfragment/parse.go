package textfragment

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Marker separates the ordinary fragment from the fragment directive.
const Marker = ":~:"

// textContent is every character legal in a URL fragment except the
// directive separators '&' and ','.
const textContent = `A-Za-z0-9%!#$'()*+/:;=?@\[\]_.~-`

// clauseRegex finds one text= clause; group 1 holds its comma-separated
// parts.
var clauseRegex = regexp.MustCompile(`(?i)&?text=([,` + textContent + `]*)`)

// Parse tokenizes a fragment-directive string (the part of a URL fragment
// after ":~:") into directives, in the order their clauses appear.
//
// A single malformed clause rejects the whole string.
func Parse(directives string) ([]Directive, error) {
	matches := clauseRegex.FindAllStringSubmatch(directives, -1)
	result := make([]Directive, 0, len(matches))

	for i, m := range matches {
		d, err := parseClause(m[1])
		if err != nil {
			return nil, fmt.Errorf("clause %d (%q): %w", i+1, m[0], err)
		}
		result = append(result, d)
	}

	return result, nil
}

// FromURL extracts the directives carried by a URL's fragment. A URL without
// the ":~:" marker, or with it more than once, carries no directives.
func FromURL(rawURL string) ([]Directive, error) {
	directive, ok, err := SplitURL(rawURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Directive{}, nil
	}
	return Parse(directive)
}

// SplitURL returns the fragment-directive string of rawURL. ok is false when
// the fragment has no usable ":~:" marker.
func SplitURL(rawURL string) (directive string, ok bool, err error) {
	// The fragment is kept raw so each directive part is decoded exactly
	// once, by Parse.
	base, fragment, _ := strings.Cut(rawURL, "#")
	if _, parseErr := url.Parse(base); parseErr != nil {
		return "", false, fmt.Errorf("%w: %w", ErrInvalidURL, parseErr)
	}

	pieces := strings.Split(fragment, Marker)
	if len(pieces) != 2 {
		return "", false, nil
	}
	return pieces[1], true, nil
}

// parseClause classifies and decodes the comma-separated parts of one
// clause. Parts are read in order as [prefix-,]textStart[,textEnd][,-suffix];
// anything after the last recognized part is ignored.
func parseClause(raw string) (Directive, error) {
	parts := strings.Split(raw, ",")

	var prefix, start, end, suffix string
	if len(parts) > 1 && strings.HasSuffix(parts[0], "-") {
		prefix = parts[0]
		parts = parts[1:]
	}
	start, parts = parts[0], parts[1:]
	if len(parts) > 0 && !strings.HasPrefix(parts[0], "-") {
		end, parts = parts[0], parts[1:]
	}
	if len(parts) > 0 && strings.HasPrefix(parts[0], "-") {
		suffix = parts[0]
	}

	var d Directive
	var err error

	if d.TextStart, err = decode(start); err != nil {
		return Directive{}, err
	}
	if d.TextStart == "" {
		return Directive{}, fmt.Errorf("%w: missing textStart", ErrMalformedDirective)
	}

	if d.TextEnd, err = decode(end); err != nil {
		return Directive{}, err
	}

	if prefix != "" {
		decoded, decErr := decode(prefix)
		if decErr != nil {
			return Directive{}, decErr
		}
		d.Prefix = strings.TrimSuffix(decoded, "-")
	}

	if suffix != "" {
		decoded, decErr := decode(suffix)
		if decErr != nil {
			return Directive{}, decErr
		}
		d.Suffix = strings.TrimPrefix(decoded, "-")
	}

	return d, nil
}

func decode(part string) (string, error) {
	s, err := url.PathUnescape(part)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecoding, err)
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: %q is not valid UTF-8", ErrDecoding, part)
	}
	return s, nil
}
