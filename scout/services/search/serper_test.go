package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchKeepsProviderOrder(t *testing.T) {
	var gotKey string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"organic":[
			{"title":"B","link":"https://b.example","snippet":"second ranked first"},
			{"title":"A","link":"https://a.example","snippet":"alphabetically first","date":"Jan 2, 2026"}
		]}`))
	}))
	defer srv.Close()

	c := NewClientWithEndpoint("test-key", srv.URL)
	results, err := c.Search(context.Background(), "go concurrency", 5)
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "go concurrency", gotBody["q"])

	require.Len(t, results, 2)
	assert.Equal(t, "B", results[0].Title, "results must stay in provider order")
	assert.Equal(t, "A", results[1].Title)
	assert.Equal(t, "Jan 2, 2026", results[1].Date)
}

func TestSearchTruncatesToCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic":[
			{"title":"1","link":"https://1.example","snippet":"s"},
			{"title":"2","link":"https://2.example","snippet":"s"},
			{"title":"3","link":"https://3.example","snippet":"s"}
		]}`))
	}))
	defer srv.Close()

	c := NewClientWithEndpoint("k", srv.URL)
	results, err := c.Search(context.Background(), "anything", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchEmptyQuery(t *testing.T) {
	c := NewClient("k")
	_, err := c.Search(context.Background(), "", 5)
	assert.Error(t, err)
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClientWithEndpoint("bad-key", srv.URL)
	_, err := c.Search(context.Background(), "q", 3)
	assert.Error(t, err)
}
