package pageinsight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>  Acme Bakery | Fresh bread </title>
  <meta name="description" content="Sourdough baked daily.">
  <meta property="og:image" content="/img/og.png">
  <link rel="shortcut icon" href="/favicon.ico">
  <style>body { color: red }</style>
  <script>var tracking = "ignore me";</script>
</head>
<body>
  <h1>Acme <em>Bakery</em></h1>
  <p>We bake sourdough every morning.</p>
  <h2>Opening hours</h2>
  <div>Mon to Sat, 7am to 3pm</div>
  <noscript>Enable JavaScript</noscript>
</body>
</html>`

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestParse(t *testing.T) {
	page, err := Parse(strings.NewReader(samplePage), mustURL(t, "https://acme.test/about"))
	require.NoError(t, err)

	assert.Equal(t, "https://acme.test/about", page.URL)
	assert.Equal(t, "Acme Bakery | Fresh bread", page.Title)
	assert.Equal(t, "Sourdough baked daily.", page.Description)
	assert.Equal(t, "en", page.Lang)
	assert.Equal(t, []audit.Heading{
		{Level: 1, Text: "Acme Bakery"},
		{Level: 2, Text: "Opening hours"},
	}, page.Headings)
	assert.Equal(t, "https://acme.test/img/og.png", page.LogoURL)

	assert.Contains(t, page.Text, "We bake sourdough every morning.")
	assert.Contains(t, page.Text, "Mon to Sat, 7am to 3pm")
	assert.NotContains(t, page.Text, "ignore me")
	assert.NotContains(t, page.Text, "color: red")
	assert.NotContains(t, page.Text, "Enable JavaScript")
	assert.Equal(t, len(strings.Fields(page.Text)), page.WordCount)
}

func TestParse_FallbacksAndEmptyDocument(t *testing.T) {
	doc := `<html><head>
	<meta property="og:description" content="From OG">
	<link rel="icon" href="icon.png">
	</head><body></body></html>`
	page, err := Parse(strings.NewReader(doc), mustURL(t, "https://acme.test/shop/"))
	require.NoError(t, err)

	assert.Equal(t, "From OG", page.Description)
	assert.Equal(t, "https://acme.test/shop/icon.png", page.LogoURL)
	assert.Empty(t, page.Headings)
	assert.Zero(t, page.WordCount)
}

func TestReader_Read(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	r := NewReaderWithClient(srv.Client())

	page, err := r.Read(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "Acme Bakery | Fresh bread", page.Title)
	assert.Equal(t, srv.URL+"/img/og.png", page.LogoURL)

	_, err = r.Read(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrUpstreamStatus)
}

func TestNewReader_BlocksLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	_, err := NewReader().Read(context.Background(), srv.URL)
	assert.ErrorIs(t, err, errBlockedAddress)
}
