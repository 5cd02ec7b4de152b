package pagetext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TextContent returns the concatenated text of the document body, the way a
// browser reports document.body.textContent: script, style and noscript text
// inside the body is included, comments and template contents are not.
func TextContent(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	body := findBody(doc)
	if body == nil {
		// html.Parse always synthesizes a body; keep going with the whole tree
		body = doc
	}

	var b strings.Builder
	collectText(body, &b)
	return b.String(), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		// Template children live in a separate document fragment
		if n.DataAtom == atom.Template {
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// ErrNoSnapshot is returned when a FileProvider has no file for a URL.
var ErrNoSnapshot = errors.New("no HTML snapshot for url")

// FileProvider serves the body text of saved HTML files, so directives can be
// resolved against pages captured earlier. Files maps a page URL to its
// snapshot; the fragment is not part of the key. Path, when set, serves every
// URL that Files does not name.
type FileProvider struct {
	Path  string
	Files map[string]string
}

// Add maps url, minus any fragment, to the snapshot at path.
func (p *FileProvider) Add(url, path string) {
	if p.Files == nil {
		p.Files = make(map[string]string)
	}
	p.Files[stripFragment(url)] = path
}

// File returns the snapshot path serving url.
func (p *FileProvider) File(url string) (string, error) {
	if path, ok := p.Files[stripFragment(url)]; ok {
		return path, nil
	}
	if p.Path != "" {
		return p.Path, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoSnapshot, url)
}

// PageText parses the snapshot for url and returns its body text. The wait
// policy has no effect on a static file.
func (p *FileProvider) PageText(ctx context.Context, url string, _ WaitPolicy) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := p.File(url)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open HTML snapshot for %s: %w", url, err)
	}
	defer f.Close()

	return TextContent(f)
}

func stripFragment(url string) string {
	base, _, _ := strings.Cut(url, "#")
	return base
}

// StaticProvider returns the same text for every URL.
type StaticProvider struct {
	Text string
}

// PageText returns p.Text.
func (p *StaticProvider) PageText(ctx context.Context, _ string, _ WaitPolicy) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.Text, nil
}
