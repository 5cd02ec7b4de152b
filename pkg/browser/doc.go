// Package browser renders pages with a headless Chromium driven through
// Playwright and reads back their body text.
//
// # Architecture
//
// A Manager owns the Playwright driver and hands out short-lived Sessions.
// Each Session is one browser, one context and one page; it lives for a
// single PageText call and is closed on every exit path, including context
// cancellation.
//
// Provider adapts a Manager to the pagetext.Provider contract:
//
//	manager := browser.NewManager()
//	defer manager.Shutdown()
//
//	provider := browser.NewProvider(manager, browser.DefaultOptions())
//	text, err := provider.PageText(ctx, url, pagetext.UntilStable())
//
// # Waiting
//
// After navigation the session applies the caller's pagetext.WaitPolicy: a
// fixed delay, or polling the page markup until its size is unchanged for a
// number of consecutive samples (bounded by a maximum wait).
package browser
