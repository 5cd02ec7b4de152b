// Package scraper resolves the text fragment directives of a URL to the text
// they designate, fetching the page text at most once per URL.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/textfrag/pkg/logging"
	"github.com/entrhq/textfrag/pkg/pagetext"
	"github.com/entrhq/textfrag/pkg/textfragment"
)

// ErrProvider wraps any failure of the page text provider. The provider's
// own error stays reachable through errors.Is and errors.As.
var ErrProvider = errors.New("page text provider failed")

// Result is the outcome of one directive. Found is false when the page holds
// no match; that is recorded per directive and is not an error.
type Result struct {
	Directive textfragment.Directive `json:"directive" yaml:"directive"`
	Text      string                 `json:"text" yaml:"text"`
	Found     bool                   `json:"found" yaml:"found"`
}

// Scraper resolves directives against page text from a Provider. It holds no
// per-call state and is safe for concurrent use.
type Scraper struct {
	provider pagetext.Provider
	logger   *logging.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithLogger sets the logger used for scrape diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Scraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scraper reading page text from provider.
func New(provider pagetext.Provider, opts ...Option) *Scraper {
	s := &Scraper{
		provider: provider,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape returns one Result per directive in rawURL, in directive order.
//
// A URL without directives yields an empty result. When no directive has a
// textEnd, each result is its textStart and the provider is not called.
// Otherwise the provider is called once and every directive is located in
// that single snapshot. Provider errors are returned wrapped in ErrProvider,
// without retry.
func (s *Scraper) Scrape(ctx context.Context, rawURL string, wait pagetext.WaitPolicy) ([]Result, error) {
	directives, err := textfragment.FromURL(rawURL)
	if err != nil {
		return nil, err
	}
	if len(directives) == 0 {
		s.logger.Debugf("no text fragment directives in %s", rawURL)
		return []Result{}, nil
	}

	if !needsBody(directives) {
		s.logger.Debugf("%d directive(s) in %s resolved without fetching", len(directives), rawURL)
		return startsOnly(directives), nil
	}

	s.logger.Infof("fetching %s (%d directive(s), wait %s)", rawURL, len(directives), wait)
	body, err := s.provider.PageText(ctx, rawURL, wait)
	if err != nil {
		s.logger.Errorf("fetching %s: %v", rawURL, err)
		return nil, fmt.Errorf("%w: %s: %w", ErrProvider, rawURL, err)
	}

	return Resolve(directives, body), nil
}

// Resolve locates every directive in body.
func Resolve(directives []textfragment.Directive, body string) []Result {
	results := make([]Result, len(directives))
	for i, d := range directives {
		text, ok := textfragment.Locate(d, body)
		results[i] = Result{Directive: d, Text: text, Found: ok}
	}
	return results
}

func needsBody(directives []textfragment.Directive) bool {
	for _, d := range directives {
		if d.NeedsBody() {
			return true
		}
	}
	return false
}

func startsOnly(directives []textfragment.Directive) []Result {
	results := make([]Result, len(directives))
	for i, d := range directives {
		results[i] = Result{Directive: d, Text: strings.TrimSpace(d.TextStart), Found: true}
	}
	return results
}
