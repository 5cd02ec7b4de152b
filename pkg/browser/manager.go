package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// Manager owns the Playwright driver and tracks open sessions. It is safe for
// concurrent use; at most maxSessions sessions are open at once and further
// Open calls wait for a free slot.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	playwright  *playwright.Playwright
	slots       chan struct{}
	install     bool
	initialized bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMaxSessions limits the number of concurrently open sessions.
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.slots = make(chan struct{}, n)
		}
	}
}

// WithoutInstall skips downloading the driver and browsers on Initialize.
func WithoutInstall() ManagerOption {
	return func(m *Manager) {
		m.install = false
	}
}

// NewManager creates a new session manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		slots:    make(chan struct{}, DefaultMaxSessions),
		install:  true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize installs (unless disabled) and starts the Playwright driver.
// Calling it again is a no-op.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Keep driver output off stdout, which carries results
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if m.install {
		if err := playwright.Install(runOpts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// Open launches a browser and returns a session with a single blank page.
// It blocks while the session limit is reached, until ctx is done.
func (m *Manager) Open(ctx context.Context, opts Options) (*Session, error) {
	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	session, err := m.launch(opts.withDefaults())
	if err != nil {
		<-m.slots
		return nil, err
	}
	return session, nil
}

func (m *Manager) launch(opts Options) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("session manager not initialized")
	}

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(milliseconds(opts.Timeout))
	page.SetDefaultNavigationTimeout(milliseconds(opts.Timeout))

	session := &Session{
		Name:      uuid.NewString(),
		Browser:   browser,
		Context:   bctx,
		Page:      page,
		Headless:  opts.Headless,
		CreatedAt: time.Now(),
		opts:      opts,
	}
	session.release = func() { m.release(session.Name) }

	m.sessions[session.Name] = session
	return session, nil
}

// release forgets a closed session and frees its slot.
func (m *Manager) release(name string) {
	m.mu.Lock()
	_, ok := m.sessions[name]
	delete(m.sessions, name)
	m.mu.Unlock()

	if ok {
		<-m.slots
	}
}

// ActiveSessions returns the number of open sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes any open sessions and stops Playwright.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range open {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		m.initialized = false
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
