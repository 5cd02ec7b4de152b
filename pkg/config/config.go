// Package config loads textfrag's YAML configuration: browser settings, the
// default render wait policy, per-site wait overrides and output options.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/entrhq/textfrag/pkg/browser"
	"github.com/entrhq/textfrag/pkg/pagetext"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Config is the complete textfrag configuration.
type Config struct {
	// Browser configures the Playwright sessions used to render pages
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Wait is the render wait policy for sites without a rule
	Wait WaitConfig `yaml:"wait" json:"wait"`

	// Sites override the wait policy for matching hosts; first match wins
	Sites []SiteRule `yaml:"sites" json:"sites"`

	// Output controls how results are printed
	Output OutputConfig `yaml:"output" json:"output"`

	// Concurrency is the number of URLs scraped at once
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// Timeout bounds each URL's scrape, including rendering
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// compiled host patterns, index-aligned with Sites
	matchers []glob.Glob
}

// BrowserConfig mirrors browser.Options for YAML.
type BrowserConfig struct {
	Headless    bool             `yaml:"headless" json:"headless"`
	Timeout     time.Duration    `yaml:"timeout" json:"timeout"`
	Viewport    browser.Viewport `yaml:"viewport" json:"viewport"`
	WaitUntil   string           `yaml:"wait_until" json:"wait_until"`
	MaxSessions int              `yaml:"max_sessions" json:"max_sessions"`
	SkipInstall bool             `yaml:"skip_install" json:"skip_install"`
}

// WaitConfig is the YAML form of pagetext.WaitPolicy.
type WaitConfig struct {
	Policy           string        `yaml:"policy" json:"policy"`
	Delay            time.Duration `yaml:"delay" json:"delay"`
	Interval         time.Duration `yaml:"interval" json:"interval"`
	MinStableSamples int           `yaml:"min_stable_samples" json:"min_stable_samples"`
	MaxWait          time.Duration `yaml:"max_wait" json:"max_wait"`
}

// SiteRule applies a wait policy to hosts matching a glob, e.g.
// "*.chromium.org" or "{docs,blog}.example.com".
type SiteRule struct {
	Match string     `yaml:"match" json:"match"`
	Wait  WaitConfig `yaml:"wait" json:"wait"`
}

// OutputFormat selects the result rendering.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// OutputConfig defines output settings
type OutputConfig struct {
	Format OutputFormat `yaml:"format" json:"format"`

	// Color is "auto", "always" or "never"
	Color string `yaml:"color" json:"color"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless: true,
			Timeout:  browser.DefaultTimeout,
			Viewport: browser.Viewport{
				Width:  browser.DefaultViewportWidth,
				Height: browser.DefaultViewportHeight,
			},
			WaitUntil:   browser.DefaultWaitUntil,
			MaxSessions: browser.DefaultMaxSessions,
		},
		Wait: WaitConfig{
			Policy: string(pagetext.WaitNone),
		},
		Output: OutputConfig{
			Format: FormatText,
			Color:  "auto",
		},
		Concurrency: 4,
		Timeout:     2 * time.Minute,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration and compiles site patterns.
func (c *Config) Validate() error {
	if err := c.BrowserOptions().Validate(); err != nil {
		return err
	}
	if c.Browser.MaxSessions < 0 {
		return fmt.Errorf("browser max_sessions must not be negative")
	}

	if err := c.Wait.WaitPolicy().Validate(); err != nil {
		return fmt.Errorf("wait: %w", err)
	}

	matchers := make([]glob.Glob, 0, len(c.Sites))
	for i, site := range c.Sites {
		if site.Match == "" {
			return fmt.Errorf("sites[%d]: match pattern is required", i)
		}
		g, err := glob.Compile(site.Match, '.')
		if err != nil {
			return fmt.Errorf("sites[%d]: invalid match pattern '%s': %w", i, site.Match, err)
		}
		if err := site.Wait.WaitPolicy().Validate(); err != nil {
			return fmt.Errorf("sites[%d] (%s): %w", i, site.Match, err)
		}
		matchers = append(matchers, g)
	}
	c.matchers = matchers

	switch c.Output.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("invalid output format: %s (must be 'text', 'json' or 'yaml')", c.Output.Format)
	}

	switch c.Output.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("invalid output color: %s (must be 'auto', 'always' or 'never')", c.Output.Color)
	}

	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	return nil
}

// WaitPolicy converts the YAML form to a normalized wait policy.
func (w WaitConfig) WaitPolicy() pagetext.WaitPolicy {
	return pagetext.WaitPolicy{
		Kind:             pagetext.WaitKind(w.Policy),
		Delay:            w.Delay,
		Interval:         w.Interval,
		MinStableSamples: w.MinStableSamples,
		MaxWait:          w.MaxWait,
	}.Normalize()
}

// SetPolicy stores p in the YAML form.
func (w *WaitConfig) SetPolicy(p pagetext.WaitPolicy) {
	*w = WaitConfig{
		Policy:           string(p.Kind),
		Delay:            p.Delay,
		Interval:         p.Interval,
		MinStableSamples: p.MinStableSamples,
		MaxWait:          p.MaxWait,
	}
}

// PolicyFor returns the wait policy for rawURL: the first site rule whose
// pattern matches the URL's host, else the default. Validate must have been
// called.
func (c *Config) PolicyFor(rawURL string) pagetext.WaitPolicy {
	u, err := url.Parse(rawURL)
	if err != nil {
		return c.Wait.WaitPolicy()
	}

	host := u.Hostname()
	for i, m := range c.matchers {
		if m.Match(host) {
			return c.Sites[i].Wait.WaitPolicy()
		}
	}
	return c.Wait.WaitPolicy()
}

// BrowserOptions converts the browser section to browser.Options.
func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:  c.Browser.Headless,
		Viewport:  c.Browser.Viewport,
		Timeout:   c.Browser.Timeout,
		WaitUntil: c.Browser.WaitUntil,
	}
}

// ManagerOptions returns the browser.Manager options implied by the
// configuration.
func (c *Config) ManagerOptions() []browser.ManagerOption {
	opts := []browser.ManagerOption{browser.WithMaxSessions(c.Browser.MaxSessions)}
	if c.Browser.SkipInstall {
		opts = append(opts, browser.WithoutInstall())
	}
	return opts
}
