package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsWithDefaults(t *testing.T) {
	got := Options{Headless: true}.withDefaults()
	assert.Equal(t, DefaultOptions(), got)

	custom := Options{Timeout: time.Second, WaitUntil: "networkidle", Viewport: Viewport{Width: 800, Height: 600}}.withDefaults()
	assert.Equal(t, time.Second, custom.Timeout)
	assert.Equal(t, "networkidle", custom.WaitUntil)
	assert.Equal(t, 800, custom.Viewport.Width)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.NoError(t, Options{}.Validate())
	assert.Error(t, Options{WaitUntil: "whenever"}.Validate())
	assert.Error(t, Options{Timeout: -time.Second}.Validate())
	assert.Error(t, Options{Viewport: Viewport{Width: -1}}.Validate())
}

func TestManagerOpen_NotInitialized(t *testing.T) {
	m := NewManager(WithMaxSessions(1), WithoutInstall())

	_, err := m.Open(context.Background(), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")

	// The slot taken by the failed launch is returned
	_, err = m.Open(context.Background(), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
	assert.Equal(t, 0, m.ActiveSessions())
}

func TestManagerOpen_WaitsForSlot(t *testing.T) {
	m := NewManager(WithMaxSessions(1), WithoutInstall())
	m.slots <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Open(ctx, DefaultOptions())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManagerShutdown_NotInitialized(t *testing.T) {
	assert.NoError(t, NewManager().Shutdown())
}

func TestMilliseconds(t *testing.T) {
	assert.Equal(t, 1500.0, milliseconds(1500*time.Millisecond))
}
