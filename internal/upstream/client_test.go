package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfgate/shelfgate/internal/gateway"
)

func newTestClient(baseURL string) *Client {
	return New(Config{
		BaseURL:         baseURL,
		APIKey:          "test-key",
		Timeout:         2 * time.Second,
		MaxRetries:      3,
		RetryDelay:      5 * time.Millisecond,
		BreakerFailures: 5,
		BreakerCooldown: 50 * time.Millisecond,
	})
}

func TestClient_GetItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/items/item-1", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("expanded"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		// Unknown fields must be ignored, absent optional fields tolerated.
		fmt.Fprint(w, `{
			"id": "item-1",
			"title": "Dune",
			"authors": ["Frank Herbert"],
			"series": {"id": "s1", "name": "Dune Saga"},
			"tracks": [{"ino": "42", "title": "dune.epub", "path": "/books/dune.epub", "size": 1024}],
			"someFutureField": {"nested": true}
		}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	item, err := client.GetItem(context.Background(), "item-1")

	require.NoError(t, err)
	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, "Dune", *item.Title)
	assert.Equal(t, []string{"Frank Herbert"}, item.Authors)
	require.NotNil(t, item.Series)
	assert.Equal(t, "Dune Saga", item.Series.Name)
	require.Len(t, item.Tracks, 1)
	assert.Equal(t, int64(1024), *item.Tracks[0].Size)
	assert.Nil(t, item.Description)
}

func TestClient_GetItem_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetItem(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, gateway.KindNotFound, gateway.KindOf(err))
}

func TestClient_GetItem_MissingIDIsInternal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title": "no id here"}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetItem(context.Background(), "item-1")

	require.Error(t, err)
	assert.Equal(t, gateway.KindInternal, gateway.KindOf(err))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"app": "mediaserver", "serverVersion": "2.3.4"}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	status, err := client.Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "mediaserver", status.App)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ExhaustedRetriesAreUpstream(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Status(context.Background())

	require.Error(t, err)
	assert.Equal(t, gateway.KindUpstream, gateway.KindOf(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Status(context.Background())

	require.Error(t, err)
	assert.Equal(t, gateway.KindUpstream, gateway.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	healthy := atomic.Bool{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if healthy.Load() {
			fmt.Fprint(w, `{"app": "mediaserver"}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(Config{
		BaseURL:         server.URL,
		Timeout:         time.Second,
		MaxRetries:      1, // isolate breaker behavior from retries
		RetryDelay:      time.Millisecond,
		BreakerFailures: 5,
		BreakerCooldown: 50 * time.Millisecond,
	})

	for i := 0; i < 5; i++ {
		_, err := client.Status(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, "open", client.BreakerState())

	// While open, calls fail fast without network I/O.
	_, err := client.Status(context.Background())
	require.Error(t, err)
	assert.Equal(t, gateway.KindUpstream, gateway.KindOf(err))
	assert.Equal(t, int32(5), calls.Load())

	// After the cool-down a single trial call is let through.
	healthy.Store(true)
	time.Sleep(60 * time.Millisecond)

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mediaserver", status.App)
	assert.Equal(t, int32(6), calls.Load())
	assert.Equal(t, "closed", client.BreakerState())
}

func TestClient_CoverURL(t *testing.T) {
	client := New(Config{BaseURL: "http://media.local/library/"})

	url := client.CoverURL("abc123", CoverOptions{Width: 600, Height: 800, Format: "jpeg"})

	assert.Equal(t, "http://media.local/library/api/items/abc123/cover?format=jpeg&height=800&width=600", url)
}

func TestClient_CoverURL_NoOptions(t *testing.T) {
	client := New(Config{BaseURL: "http://media.local"})

	assert.Equal(t, "http://media.local/api/items/abc123/cover", client.CoverURL("abc123", CoverOptions{}))
}

func TestClient_OpenFile_ForwardsRange(t *testing.T) {
	payload := make([]byte, 1000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/items/item-1/file/42", r.URL.Path)
		http.ServeContent(w, r, "book.epub", time.Now(), bytes.NewReader(payload))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	fs, err := client.OpenFile(context.Background(), "item-1", "42", "bytes=100-199")
	require.NoError(t, err)
	defer fs.Body.Close()

	assert.Equal(t, http.StatusPartialContent, fs.StatusCode)
	assert.Equal(t, "bytes 100-199/1000", fs.ContentRange)
	assert.Equal(t, int64(100), fs.ContentLength)

	body := make([]byte, 200)
	n, _ := io.ReadFull(fs.Body, body)
	assert.Equal(t, 100, n)
	assert.Equal(t, payload[100:200], body[:n])
}

func TestClient_OpenFile_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.OpenFile(context.Background(), "item-1", "42", "")

	require.Error(t, err)
	assert.Equal(t, gateway.KindNotFound, gateway.KindOf(err))
}

func TestClient_ListItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/libraries/lib-1/items", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"results": [{"id": "a"}, {"id": "b"}], "total": 52, "limit": 25, "page": 2}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	page, err := client.ListItems(context.Background(), "lib-1", 2, 25)

	require.NoError(t, err)
	assert.Equal(t, int64(52), page.Total)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "a", page.Results[0].ID)
}
