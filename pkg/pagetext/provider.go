// Package pagetext defines the page text provider contract: given a URL and a
// rendering wait policy, return the page's final plaintext body.
package pagetext

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Provider returns the rendered plaintext body of a page.
//
// Implementations own any rendering session they open and release it before
// returning, on success and on failure. Callers enforce timeouts through ctx.
type Provider interface {
	PageText(ctx context.Context, url string, wait WaitPolicy) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, url string, wait WaitPolicy) (string, error)

// PageText calls f.
func (f ProviderFunc) PageText(ctx context.Context, url string, wait WaitPolicy) (string, error) {
	return f(ctx, url, wait)
}

// WaitKind selects how long a provider lets a page render before reading it.
type WaitKind string

const (
	// WaitNone reads the page as soon as navigation completes
	WaitNone WaitKind = "none"

	// WaitDelay sleeps for a fixed duration after navigation
	WaitDelay WaitKind = "delay"

	// WaitStable polls the page markup until its size stops changing
	WaitStable WaitKind = "stable"
)

// Defaults for WaitStable.
const (
	DefaultStableInterval   = time.Second
	DefaultMinStableSamples = 2
	DefaultStableMaxWait    = 30 * time.Second
)

// WaitPolicy describes how long to let a page render.
type WaitPolicy struct {
	Kind WaitKind `yaml:"policy" json:"policy"`

	// Delay is used by WaitDelay
	Delay time.Duration `yaml:"delay" json:"delay"`

	// Interval, MinStableSamples and MaxWait are used by WaitStable
	Interval         time.Duration `yaml:"interval" json:"interval"`
	MinStableSamples int           `yaml:"min_stable_samples" json:"min_stable_samples"`
	MaxWait          time.Duration `yaml:"max_wait" json:"max_wait"`
}

// NoWait returns a policy that reads the page immediately.
func NoWait() WaitPolicy {
	return WaitPolicy{Kind: WaitNone}
}

// FixedDelay returns a policy that waits d after navigation.
func FixedDelay(d time.Duration) WaitPolicy {
	return WaitPolicy{Kind: WaitDelay, Delay: d}
}

// UntilStable returns a DOM stability policy with default sampling.
func UntilStable() WaitPolicy {
	return WaitPolicy{
		Kind:             WaitStable,
		Interval:         DefaultStableInterval,
		MinStableSamples: DefaultMinStableSamples,
		MaxWait:          DefaultStableMaxWait,
	}
}

// Normalize fills unset fields with defaults. An empty Kind means WaitNone.
func (p WaitPolicy) Normalize() WaitPolicy {
	if p.Kind == "" {
		p.Kind = WaitNone
	}
	if p.Kind == WaitStable {
		if p.Interval <= 0 {
			p.Interval = DefaultStableInterval
		}
		if p.MinStableSamples <= 0 {
			p.MinStableSamples = DefaultMinStableSamples
		}
		if p.MaxWait <= 0 {
			p.MaxWait = DefaultStableMaxWait
		}
	}
	return p
}

// Validate checks that the policy is usable.
func (p WaitPolicy) Validate() error {
	switch p.Kind {
	case "", WaitNone:
		return nil
	case WaitDelay:
		if p.Delay < 0 {
			return fmt.Errorf("delay must not be negative, got %s", p.Delay)
		}
		return nil
	case WaitStable:
		if p.Interval < 0 || p.MaxWait < 0 || p.MinStableSamples < 0 {
			return fmt.Errorf("stable wait settings must not be negative")
		}
		return nil
	default:
		return fmt.Errorf("unknown wait policy %q (must be 'none', 'delay' or 'stable')", p.Kind)
	}
}

// String renders the policy in the form accepted by ParseWaitPolicy.
func (p WaitPolicy) String() string {
	switch p.Kind {
	case WaitDelay:
		return "delay:" + p.Delay.String()
	case WaitStable:
		return "stable:" + p.Normalize().MaxWait.String()
	default:
		return string(WaitNone)
	}
}

// ParseWaitPolicy parses "none", "delay:<duration>", "stable" or
// "stable:<max wait>". A bare number after "delay:" is milliseconds.
func ParseWaitPolicy(s string) (WaitPolicy, error) {
	kind, arg, hasArg := strings.Cut(strings.TrimSpace(s), ":")

	switch WaitKind(strings.ToLower(kind)) {
	case "", WaitNone:
		if hasArg {
			return WaitPolicy{}, fmt.Errorf("wait policy 'none' takes no argument")
		}
		return NoWait(), nil

	case WaitDelay:
		if !hasArg {
			return WaitPolicy{}, fmt.Errorf("wait policy 'delay' requires a duration, e.g. delay:2s")
		}
		d, err := parseDuration(arg)
		if err != nil {
			return WaitPolicy{}, fmt.Errorf("invalid delay %q: %w", arg, err)
		}
		p := FixedDelay(d)
		return p, p.Validate()

	case WaitStable:
		p := UntilStable()
		if hasArg {
			d, err := parseDuration(arg)
			if err != nil {
				return WaitPolicy{}, fmt.Errorf("invalid max wait %q: %w", arg, err)
			}
			p.MaxWait = d
		}
		return p, p.Validate()

	default:
		return WaitPolicy{}, fmt.Errorf("unknown wait policy %q (must be 'none', 'delay:<duration>' or 'stable[:<max>]')", kind)
	}
}

func parseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}
