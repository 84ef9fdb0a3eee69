// Package proxy streams cover images and book files from upstream to the
// device in bounded chunks, translating Range semantics on the way through.
// Payloads are never buffered whole in memory.
package proxy

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/shelfgate/shelfgate/internal/upstream"
)

// streamChunkSize bounds how much unread upstream data can sit in memory
// per in-flight transfer.
const streamChunkSize = 32 * 1024

// Streamer forwards file and cover requests to the upstream client.
type Streamer struct {
	client         *upstream.Client
	redirectCovers bool
}

// NewStreamer creates a streaming proxy. With redirectCovers set, cover
// requests answer with a redirect to the upstream cover URL instead of
// proxying bytes; file requests always proxy, since device network access
// to upstream may be restricted.
func NewStreamer(client *upstream.Client, redirectCovers bool) *Streamer {
	return &Streamer{client: client, redirectCovers: redirectCovers}
}

// StreamFile proxies one upstream file to the device, forwarding the
// client's Range header. It returns an error only for failures that occur
// before response headers are written; a mid-stream failure terminates the
// connection instead of corrupting the partial body with an error document.
func (s *Streamer) StreamFile(w http.ResponseWriter, r *http.Request, itemID, ino string) error {
	// The request context ties the upstream transfer to the device
	// connection: a disconnecting client cancels the upstream read.
	fs, err := s.client.OpenFile(r.Context(), itemID, ino, r.Header.Get("Range"))
	if err != nil {
		return err
	}
	defer fs.Body.Close()

	s.relay(w, fs)
	return nil
}

// ServeCover serves an item's cover, either by redirect or by proxying.
func (s *Streamer) ServeCover(w http.ResponseWriter, r *http.Request, itemID string, opts upstream.CoverOptions) error {
	if s.redirectCovers {
		http.Redirect(w, r, s.client.CoverURL(itemID, opts), http.StatusFound)
		return nil
	}

	fs, err := s.client.OpenCover(r.Context(), itemID, opts)
	if err != nil {
		return err
	}
	defer fs.Body.Close()

	s.relay(w, fs)
	return nil
}

// relay writes response headers matching the upstream reply and copies the
// body through in bounded chunks.
func (s *Streamer) relay(w http.ResponseWriter, fs *upstream.FileStream) {
	h := w.Header()
	if fs.ContentType != "" {
		h.Set("Content-Type", fs.ContentType)
	}
	h.Set("Accept-Ranges", "bytes")
	if fs.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(fs.ContentLength, 10))
	}

	if fs.StatusCode == http.StatusPartialContent {
		if fs.ContentRange != "" {
			h.Set("Content-Range", fs.ContentRange)
		}
		w.WriteHeader(http.StatusPartialContent)
	} else {
		// Upstream ignored or does not support ranges: fall back to the
		// full body, still reporting the total length when known.
		w.WriteHeader(http.StatusOK)
	}

	buf := make([]byte, streamChunkSize)
	if _, err := io.CopyBuffer(w, fs.Body, buf); err != nil {
		// Headers are already on the wire. Closing the connection is the
		// only honest signal left.
		log.Printf("proxy: stream aborted: %v", err)
		abort(w)
	}
}

// abort hard-closes the client connection after a mid-stream failure.
func abort(w http.ResponseWriter) {
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		return
	}
	conn, _, err := hijacker.Hijack()
	if err != nil {
		return
	}
	conn.Close()
}
