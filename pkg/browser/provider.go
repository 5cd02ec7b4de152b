package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/textfrag/pkg/logging"
	"github.com/entrhq/textfrag/pkg/pagetext"
)

// pageSession is the part of a Session that Provider drives.
type pageSession interface {
	Navigate(url string) error
	Wait(ctx context.Context, policy pagetext.WaitPolicy) error
	BodyText() (string, error)
	Close() error
	String() string
}

// Provider implements pagetext.Provider with a fresh browser session per
// call.
type Provider struct {
	manager *Manager
	opts    Options
	logger  *logging.Logger

	open func(ctx context.Context) (pageSession, error)
}

var _ pagetext.Provider = (*Provider)(nil)

// NewProvider creates a provider that opens sessions from manager.
func NewProvider(manager *Manager, opts Options, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Discard()
	}
	p := &Provider{
		manager: manager,
		opts:    opts.withDefaults(),
		logger:  logger,
	}
	p.open = p.openSession
	return p
}

func (p *Provider) openSession(ctx context.Context) (pageSession, error) {
	if err := p.manager.Initialize(); err != nil {
		return nil, err
	}

	session, err := p.manager.Open(ctx, p.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	return session, nil
}

// PageText navigates to url, waits per policy and returns the body text.
// The session is closed before returning, and closed early if ctx is done
// so that in-flight browser calls fail fast.
func (p *Provider) PageText(ctx context.Context, url string, wait pagetext.WaitPolicy) (string, error) {
	session, err := p.open(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			p.logger.Warnf("session %s: %v", session, closeErr)
		}
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = session.Close()
	})
	defer stop()

	start := time.Now()
	p.logger.Debugf("session %s: navigating to %s", session, url)

	if err := session.Navigate(url); err != nil {
		return "", contextErr(ctx, err)
	}

	if err := session.Wait(ctx, wait); err != nil {
		return "", contextErr(ctx, fmt.Errorf("waiting for render (%s): %w", wait, err))
	}

	text, err := session.BodyText()
	if err != nil {
		return "", contextErr(ctx, err)
	}

	p.logger.Debugf("session %s: read %d bytes from %s in %s", session, len(text), url, time.Since(start).Round(time.Millisecond))
	return text, nil
}

// contextErr prefers the context's error when ctx ended the operation.
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w (%v)", ctxErr, err)
	}
	return err
}
