package scraper

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/entrhq/textfrag/pkg/logging"
	"github.com/entrhq/textfrag/pkg/pagetext"
	"github.com/entrhq/textfrag/pkg/textfragment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockProvider is a testify mock of pagetext.Provider
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) PageText(ctx context.Context, url string, wait pagetext.WaitPolicy) (string, error) {
	args := m.Called(ctx, url, wait)
	return args.String(0), args.Error(1)
}

const (
	olebURL     = "https://oleb.net/2020/text-fragments/#:~:text=Text%20fragments%20are%20a%20way,(released%20in%20February%202020)."
	chromiumURL = "https://blog.chromium.org/2019/12/chrome-80-content-indexing-es-modules.html#HTML1:~:text=Give-,us,Product,-Forums."
	startsURL   = "https://blog.chromium.org/2019/12/chrome-80-content-indexing-es-modules.html#:~:text=Text%20URL%20Fragments&text=text,-parameter"
)

const olebBody = `Text fragments

Text fragments are a way for web links to specify a word or phrase a browser should highlight on the destination page. Google Chrome added support for them in version 80 (released in February 2020). Safari followed.`

const chromiumBody = `Chrome 80 Beta
We'd love to hear what you think. Give us feedback in our Product Forums. Thanks!
Text URL Fragments`

func texts(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}

func TestScrape_RangeSearchesBody(t *testing.T) {
	provider := new(mockProvider)
	provider.On("PageText", mock.Anything, olebURL, pagetext.UntilStable()).Return(olebBody, nil).Once()

	results, err := New(provider).Scrape(context.Background(), olebURL, pagetext.UntilStable())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Text fragments are a way for web links to specify a word or phrase a browser should highlight on the destination page. Google Chrome added support for them in version 80 (released in February 2020).",
	}, texts(results))
	assert.True(t, results[0].Found)
	provider.AssertExpectations(t)
}

func TestScrape_PrefixAndSuffix(t *testing.T) {
	provider := new(mockProvider)
	provider.On("PageText", mock.Anything, chromiumURL, pagetext.NoWait()).Return(chromiumBody, nil).Once()

	results, err := New(provider).Scrape(context.Background(), chromiumURL, pagetext.NoWait())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "us feedback in our Product", results[0].Text)
	assert.Equal(t, textfragment.Directive{Prefix: "Give", TextStart: "us", TextEnd: "Product", Suffix: "Forums."}, results[0].Directive)
}

func TestScrape_StartsOnlySkipsProvider(t *testing.T) {
	provider := new(mockProvider)

	results, err := New(provider).Scrape(context.Background(), startsURL, pagetext.UntilStable())
	require.NoError(t, err)

	assert.Equal(t, []string{"Text URL Fragments", "text"}, texts(results))
	for _, r := range results {
		assert.True(t, r.Found)
	}
	provider.AssertNotCalled(t, "PageText", mock.Anything, mock.Anything, mock.Anything)
}

func TestScrape_NoDirectives(t *testing.T) {
	provider := new(mockProvider)

	for _, url := range []string{
		"https://example.com/",
		"https://example.com/#section",
		"https://example.com/#:~:text=a:~:text=b",
	} {
		results, err := New(provider).Scrape(context.Background(), url, pagetext.NoWait())
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
	provider.AssertNotCalled(t, "PageText", mock.Anything, mock.Anything, mock.Anything)
}

func TestScrape_NotFoundDoesNotAbortOthers(t *testing.T) {
	url := "https://blog.chromium.org/#:~:text=missing,phrase&text=Give-,us,Product,-Forums.&text=Thanks"
	provider := new(mockProvider)
	provider.On("PageText", mock.Anything, url, pagetext.NoWait()).Return(chromiumBody, nil).Once()

	results, err := New(provider).Scrape(context.Background(), url, pagetext.NoWait())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].Found)
	assert.Empty(t, results[0].Text)
	assert.True(t, results[1].Found)
	assert.Equal(t, "us feedback in our Product", results[1].Text)
	assert.True(t, results[2].Found)
	assert.Equal(t, "Thanks", results[2].Text)

	// One snapshot for all three directives
	provider.AssertNumberOfCalls(t, "PageText", 1)
}

func TestScrape_ProviderError(t *testing.T) {
	navErr := errors.New("net::ERR_NAME_NOT_RESOLVED")
	provider := new(mockProvider)
	provider.On("PageText", mock.Anything, olebURL, pagetext.NoWait()).Return("", navErr).Once()

	results, err := New(provider).Scrape(context.Background(), olebURL, pagetext.NoWait())
	require.Error(t, err)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, navErr)
	provider.AssertNumberOfCalls(t, "PageText", 1)
}

func TestScrape_MalformedDirective(t *testing.T) {
	provider := new(mockProvider)

	_, err := New(provider).Scrape(context.Background(), "https://example.com/#:~:text=ok,end&text=", pagetext.NoWait())
	require.Error(t, err)
	assert.ErrorIs(t, err, textfragment.ErrMalformedDirective)
	provider.AssertNotCalled(t, "PageText", mock.Anything, mock.Anything, mock.Anything)
}

func TestScrape_DecodingError(t *testing.T) {
	_, err := New(new(mockProvider)).Scrape(context.Background(), "https://example.com/#:~:text=%E2%28,x", pagetext.NoWait())
	assert.ErrorIs(t, err, textfragment.ErrDecoding)
}

func TestScrape_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	provider := pagetext.ProviderFunc(func(got context.Context, _ string, _ pagetext.WaitPolicy) (string, error) {
		assert.Equal(t, "v", got.Value(key{}))
		return olebBody, nil
	})

	_, err := New(provider).Scrape(ctx, olebURL, pagetext.NoWait())
	require.NoError(t, err)
}

func TestScrape_Logs(t *testing.T) {
	var buf bytes.Buffer
	provider := &pagetext.StaticProvider{Text: olebBody}

	_, err := New(provider, WithLogger(logging.NewWriterLogger("scraper", &buf, true))).Scrape(context.Background(), olebURL, pagetext.NoWait())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[scraper] [INFO] fetching https://oleb.net/")
}

func TestResolve_Idempotent(t *testing.T) {
	directives := []textfragment.Directive{
		{TextStart: "Give", TextEnd: "Forums"},
		{TextStart: "absent"},
	}

	first := Resolve(directives, chromiumBody)
	second := Resolve(directives, chromiumBody)
	assert.Equal(t, first, second)
	assert.Equal(t, "Give us feedback in our Product Forums", first[0].Text)
	assert.False(t, first[1].Found)
}
