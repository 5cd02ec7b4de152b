// Package output renders scrape results as styled text, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/entrhq/textfrag/pkg/config"
	"github.com/entrhq/textfrag/pkg/scraper"
	"github.com/entrhq/textfrag/pkg/textfragment"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"
)

// Entry is the serialized form of one scraped URL.
type Entry struct {
	URL     string   `json:"url" yaml:"url"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty"`
	Results []Record `json:"results" yaml:"results"`
}

// Record is the serialized form of one directive result.
type Record struct {
	Directive string  `json:"directive" yaml:"directive"`
	Text      *string `json:"text" yaml:"text"`
}

// Entries converts batches to their serialized form. A directive that was
// not found has a nil Text.
func Entries(batches []scraper.Batch) []Entry {
	entries := make([]Entry, len(batches))
	for i, b := range batches {
		e := Entry{URL: b.URL, Results: make([]Record, len(b.Results))}
		if b.Err != nil {
			e.Error = b.Err.Error()
		}
		for j, r := range b.Results {
			rec := Record{Directive: r.Directive.String()}
			if r.Found {
				text := r.Text
				rec.Text = &text
			}
			e.Results[j] = rec
		}
		entries[i] = e
	}
	return entries
}

// Writer renders batches in one format.
type Writer struct {
	w      io.Writer
	format config.OutputFormat
	styles styles
}

type styles struct {
	url      lipgloss.Style
	index    lipgloss.Style
	notFound lipgloss.Style
	err      lipgloss.Style
}

// NewWriter creates a Writer for w. color is "auto", "always" or "never";
// "auto" styles only when w is a terminal.
func NewWriter(w io.Writer, format config.OutputFormat, color string) *Writer {
	renderer := lipgloss.NewRenderer(w)
	switch color {
	case "always":
		renderer.SetColorProfile(termenv.ANSI256)
	case "never":
		renderer.SetColorProfile(termenv.Ascii)
	}

	return &Writer{
		w:      w,
		format: format,
		styles: styles{
			url:      renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
			index:    renderer.NewStyle().Faint(true),
			notFound: renderer.NewStyle().Italic(true).Foreground(lipgloss.Color("11")),
			err:      renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		},
	}
}

// Write renders batches.
func (w *Writer) Write(batches []scraper.Batch) error {
	switch w.format {
	case config.FormatJSON:
		enc := json.NewEncoder(w.w)
		enc.SetIndent("", "  ")
		return enc.Encode(Entries(batches))
	case config.FormatYAML:
		enc := yaml.NewEncoder(w.w)
		enc.SetIndent(2)
		if err := enc.Encode(Entries(batches)); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatText, "":
		return w.writeText(batches)
	default:
		return fmt.Errorf("unsupported output format: %s", w.format)
	}
}

// WriteDirectives renders parsed directives without resolving them.
func (w *Writer) WriteDirectives(url string, directives []textfragment.Directive) error {
	switch w.format {
	case config.FormatJSON:
		enc := json.NewEncoder(w.w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"url": url, "directives": directives})
	case config.FormatYAML:
		enc := yaml.NewEncoder(w.w)
		if err := enc.Encode(map[string]interface{}{"url": url, "directives": directives}); err != nil {
			return err
		}
		return enc.Close()
	}

	var b strings.Builder
	b.WriteString(w.styles.url.Render(url) + "\n")
	for i, d := range directives {
		fmt.Fprintf(&b, "%s prefix=%q start=%q end=%q suffix=%q\n",
			w.styles.index.Render(fmt.Sprintf("[%d]", i+1)), d.Prefix, d.TextStart, d.TextEnd, d.Suffix)
	}
	_, err := io.WriteString(w.w, b.String())
	return err
}

func (w *Writer) writeText(batches []scraper.Batch) error {
	var b strings.Builder
	for i, batch := range batches {
		if len(batches) > 1 {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(w.styles.url.Render(batch.URL) + "\n")
		}

		if batch.Err != nil {
			b.WriteString(w.styles.err.Render("error: "+batch.Err.Error()) + "\n")
			continue
		}

		for j, r := range batch.Results {
			if len(batch.Results) > 1 {
				b.WriteString(w.styles.index.Render(fmt.Sprintf("[%d]", j+1)) + " ")
			}
			if r.Found {
				b.WriteString(r.Text + "\n")
			} else {
				b.WriteString(w.styles.notFound.Render("not found: "+r.Directive.String()) + "\n")
			}
		}
	}

	_, err := io.WriteString(w.w, b.String())
	return err
}

// Texts joins the found texts of all batches, one per paragraph.
func Texts(batches []scraper.Batch) string {
	var parts []string
	for _, b := range batches {
		for _, r := range b.Results {
			if r.Found {
				parts = append(parts, r.Text)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}
