package browser

import (
	"fmt"
	"time"
)

// Options configures the browser sessions a Provider opens.
type Options struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool `yaml:"headless" json:"headless"`

	// Viewport sets the initial viewport size
	Viewport Viewport `yaml:"viewport" json:"viewport"`

	// Timeout bounds navigation and each page operation
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle", "commit"
	WaitUntil string `yaml:"wait_until" json:"wait_until"`
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Default values for sessions
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultWaitUntil      = "load"
	DefaultMaxSessions    = 5
)

// DefaultOptions returns headless options with the default viewport.
func DefaultOptions() Options {
	return Options{
		Headless: true,
		Viewport: Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
		Timeout:   DefaultTimeout,
		WaitUntil: DefaultWaitUntil,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = d.Viewport
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.WaitUntil == "" {
		o.WaitUntil = d.WaitUntil
	}
	return o
}

// validWaitUntil lists accepted navigation states.
var validWaitUntil = map[string]bool{
	"load":             true,
	"domcontentloaded": true,
	"networkidle":      true,
	"commit":           true,
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Validate checks option values.
func (o Options) Validate() error {
	if o.Timeout < 0 {
		return fmt.Errorf("browser timeout must not be negative, got %s", o.Timeout)
	}
	if o.Viewport.Width < 0 || o.Viewport.Height < 0 {
		return fmt.Errorf("viewport dimensions must not be negative")
	}
	if o.WaitUntil != "" && !validWaitUntil[o.WaitUntil] {
		return fmt.Errorf("invalid wait_until: %s (must be 'load', 'domcontentloaded', 'networkidle' or 'commit')", o.WaitUntil)
	}
	return nil
}
