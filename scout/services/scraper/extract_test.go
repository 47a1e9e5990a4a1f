package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scout/scout/utils/types"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>Go Memory Model</title>
	<meta name="description" content="The Go memory model explained.">
	<style>body { color: red; }</style>
</head>
<body>
	<script>console.log("ignore me");</script>
	<h1>Go Memory Model</h1>
	<p>Programs that modify data   simultaneously
	must serialize access.</p>
	<noscript>enable javascript</noscript>
</body>
</html>`

func TestExtractReadableText(t *testing.T) {
	text := ExtractReadableText(samplePage)

	assert.Contains(t, text, "Go Memory Model")
	assert.Contains(t, text, "Programs that modify data simultaneously must serialize access.")
	assert.NotContains(t, text, "ignore me", "script content must be stripped")
	assert.NotContains(t, text, "color: red", "style content must be stripped")
	assert.NotContains(t, text, "enable javascript", "noscript content must be stripped")
	assert.NotContains(t, text, "  ", "whitespace must be collapsed")
}

func TestExtractReadableTextMalformed(t *testing.T) {
	// html.Parse is lenient; even broken markup should give us something.
	text := ExtractReadableText("<p>unclosed <b>bold")
	assert.Contains(t, text, "unclosed bold")
}

func TestPageMeta(t *testing.T) {
	title, desc := PageMeta(samplePage)
	assert.Equal(t, "Go Memory Model", title)
	assert.Equal(t, "The Go memory model explained.", desc)

	title, desc = PageMeta("<html><body>no head</body></html>")
	assert.Empty(t, title)
	assert.Empty(t, desc)
}

func TestHTTPFetcherHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	outcome := f.Fetch(context.Background(), srv.URL)
	require.True(t, outcome.Success, "error: %s", outcome.Error)
	assert.Equal(t, types.SourceTypeHTML, outcome.SourceType)
	assert.Equal(t, "Go Memory Model", outcome.Title)
	assert.Contains(t, outcome.Data, "Go Memory Model")
	assert.NotContains(t, outcome.Data, "<h1>")
}

func TestHTTPFetcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	outcome := f.Fetch(context.Background(), srv.URL)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "410")
}
