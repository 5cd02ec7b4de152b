package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/textfrag/pkg/pagetext"
	"github.com/playwright-community/playwright-go"
)

// Session is one browser, context and page, used for a single page read.
type Session struct {
	// Name is the unique identifier for this session
	Name string

	Browser playwright.Browser
	Context playwright.BrowserContext
	Page    playwright.Page

	Headless  bool
	CreatedAt time.Time

	// CurrentURL is the URL of the page after navigation and redirects
	CurrentURL string

	opts      Options
	release   func()
	closeOnce sync.Once
	closeErr  error
}

// String returns the session name.
func (s *Session) String() string {
	return s.Name
}

// Navigate loads url and waits for the configured navigation state.
func (s *Session) Navigate(url string) error {
	waitUntil := playwright.WaitUntilState(s.opts.WaitUntil)
	_, err := s.Page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   playwright.Float(milliseconds(s.opts.Timeout)),
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	s.CurrentURL = s.Page.URL()
	return nil
}

// Wait lets the page render according to policy.
func (s *Session) Wait(ctx context.Context, policy pagetext.WaitPolicy) error {
	policy = policy.Normalize()

	switch policy.Kind {
	case pagetext.WaitNone:
		return nil
	case pagetext.WaitDelay:
		return sleep(ctx, policy.Delay)
	case pagetext.WaitStable:
		_, err := waitStable(ctx, s.contentSize, policy)
		return err
	default:
		return fmt.Errorf("unsupported wait policy: %s", policy.Kind)
	}
}

// contentSize samples the size of the page's serialized markup.
func (s *Session) contentSize() (int, error) {
	html, err := s.Page.Content()
	if err != nil {
		return 0, fmt.Errorf("failed to read page content: %w", err)
	}
	return len(html), nil
}

// BodyText returns document.body.textContent.
func (s *Session) BodyText() (string, error) {
	value, err := s.Page.Evaluate(`() => document.body ? document.body.textContent : ""`)
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}

	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("text extraction returned %T, want string", value)
	}
	return text, nil
}

// Close releases the page, context and browser. Safe to call multiple
// times and from multiple goroutines.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		// Ignore errors, continue cleanup
		_ = s.Page.Close()
		_ = s.Context.Close()
		if err := s.Browser.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
		if s.release != nil {
			s.release()
		}
	})
	return s.closeErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
