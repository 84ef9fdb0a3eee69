package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfgate/shelfgate/internal/cache"
	"github.com/shelfgate/shelfgate/internal/upstream"
)

const itemPayload = `{
	"id": "item-1",
	"title": "Snow Crash",
	"authors": ["Neal Stephenson"],
	"series": {"id": "ser-9", "name": "Standalone"},
	"tracks": [
		{"ino": "11", "title": "snowcrash.epub", "mimeType": "application/epub+zip"},
		{"ino": "12", "title": "snowcrash.azw3"}
	]
}`

func newItemsTestRouter(t *testing.T, calls *atomic.Int64) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api/items/item-1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(itemPayload))
	}))
	t.Cleanup(server.Close)

	client := upstream.New(upstream.Config{BaseURL: server.URL, Timeout: 2 * time.Second, MaxRetries: 1})
	controller := NewItemsController(client, cache.New(time.Minute, 16), server.URL)

	router := gin.New()
	router.GET("/v1/items/:id", controller.GetItem)
	return router, server.URL
}

func TestItemsController_GetItem(t *testing.T) {
	var calls atomic.Int64
	router, upstreamURL := newItemsTestRouter(t, &calls)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/items/item-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var book struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		CoverURL string `json:"cover_url"`
		Series   *struct {
			Name string `json:"name"`
		} `json:"series"`
		Formats []struct {
			Kind struct {
				Known string `json:"kind"`
				Raw   string `json:"raw"`
			} `json:"format"`
			URL string `json:"url"`
		} `json:"formats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))

	assert.Equal(t, "Snow Crash", book.Title)
	assert.Equal(t, upstreamURL+"/api/items/item-1/cover", book.CoverURL)
	require.NotNil(t, book.Series)
	assert.Equal(t, "Standalone", book.Series.Name)
	require.Len(t, book.Formats, 2)
	assert.Equal(t, "epub", book.Formats[0].Kind.Known)
	assert.Equal(t, "unknown", book.Formats[1].Kind.Known)
	assert.Equal(t, "azw3", book.Formats[1].Kind.Raw, "unrecognized formats are preserved")
}

func TestItemsController_GetItem_CachesMappedBook(t *testing.T) {
	var calls atomic.Int64
	router, _ := newItemsTestRouter(t, &calls)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/v1/items/item-1", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, int64(1), calls.Load())
}

func TestItemsController_GetItem_UnknownItemIs404(t *testing.T) {
	var calls atomic.Int64
	router, _ := newItemsTestRouter(t, &calls)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/items/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}
