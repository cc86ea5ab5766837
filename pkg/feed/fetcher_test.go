package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Feed</title>
  <link>https://example.com</link>
  <description>test</description>
  <item>
    <title>First Article</title>
    <link>https://example.com/1</link>
    <guid>guid-1</guid>
    <description>Summary one</description>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  </item>
  <item>
    <title>Second Article</title>
    <link>https://example.com/2</link>
    <description>Summary two</description>
  </item>
</channel>
</rss>`

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "radar-test/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testRSS))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(5*time.Second, "radar-test/1.0")
	entries, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "First Article", entries[0].Title)
	assert.Equal(t, "guid-1", entries[0].GUID)
	assert.Equal(t, "https://example.com/1", entries[0].Link)
	assert.Equal(t, "Summary one", entries[0].Summary)
	assert.NotEmpty(t, entries[0].Published)

	// second item has no guid and no pubDate
	assert.Empty(t, entries[1].GUID)
	assert.Empty(t, entries[1].Published)
}

func TestHTTPFetcher_Fetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(5*time.Second, "radar-test/1.0")
	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code")
}

func TestHTTPFetcher_Fetch_BadXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not a feed"))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(5*time.Second, "radar-test/1.0")
	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestHTTPFetcher_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		_, _ = w.Write([]byte(testRSS))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(100*time.Millisecond, "radar-test/1.0")
	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}
