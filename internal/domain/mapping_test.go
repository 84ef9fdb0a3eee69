package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfgate/shelfgate/internal/gateway"
	"github.com/shelfgate/shelfgate/internal/upstream"
)

func strptr(s string) *string { return &s }

func int64ptr(v int64) *int64 { return &v }

func TestFromUpstreamItem_FullPayload(t *testing.T) {
	item := &upstream.Item{
		ID:          "item-1",
		Title:       strptr("Dune"),
		Authors:     []string{"Frank Herbert"},
		Series:      &upstream.SeriesInfo{ID: "s1", Name: "Dune Saga"},
		Description: strptr("Desert planet epic."),
		Tracks: []upstream.Track{
			{Ino: "42", Title: "dune.epub", Size: int64ptr(1024), MimeType: "application/epub+zip"},
		},
	}

	book, err := FromUpstreamItem("http://media.local/", item)

	require.NoError(t, err)
	assert.Equal(t, "item-1", book.ID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, []string{"Frank Herbert"}, book.Authors)
	require.NotNil(t, book.Series)
	assert.Equal(t, "Dune Saga", book.Series.Name)
	assert.Equal(t, "http://media.local/api/items/item-1/cover", book.CoverURL)
	assert.Equal(t, "Desert planet epic.", book.Description)
	require.Len(t, book.Formats, 1)
	assert.Equal(t, Epub(), book.Formats[0].Kind)
	assert.Equal(t, "/v1/items/item-1/file/42", book.Formats[0].URL)
	assert.Equal(t, int64(1024), *book.Formats[0].Size)
	assert.Equal(t, "application/epub+zip", book.Formats[0].MIME)
}

func TestFromUpstreamItem_MissingOptionalFields(t *testing.T) {
	book, err := FromUpstreamItem("http://media.local", &upstream.Item{ID: "bare"})

	require.NoError(t, err)
	assert.Equal(t, "bare", book.ID)
	assert.Equal(t, "Untitled", book.Title)
	assert.Empty(t, book.Authors)
	assert.Nil(t, book.Series)
	assert.Empty(t, book.Description)
	assert.Empty(t, book.Formats)
}

func TestFromUpstreamItem_MissingIDFails(t *testing.T) {
	_, err := FromUpstreamItem("http://media.local", &upstream.Item{Title: strptr("orphan")})

	require.Error(t, err)
	assert.Equal(t, gateway.KindInternal, gateway.KindOf(err))
}

func TestFromUpstreamItem_Deterministic(t *testing.T) {
	payload := []byte(`{
		"id": "item-1",
		"title": "Dune",
		"authors": ["Frank Herbert", "Brian Herbert"],
		"series": {"id": "s1", "name": "Dune Saga"},
		"tracks": [{"ino": "42", "title": "dune.epub"}, {"ino": "43", "title": "dune.azw3"}]
	}`)

	var first, second upstream.Item
	require.NoError(t, json.Unmarshal(payload, &first))
	require.NoError(t, json.Unmarshal(payload, &second))

	bookA, err := FromUpstreamItem("http://media.local", &first)
	require.NoError(t, err)
	bookB, err := FromUpstreamItem("http://media.local", &second)
	require.NoError(t, err)

	assert.Equal(t, bookA, bookB)
}

func TestFromUpstreamItem_SkipsTracksWithoutIno(t *testing.T) {
	item := &upstream.Item{
		ID: "item-1",
		Tracks: []upstream.Track{
			{Title: "ghost.epub"},
			{Ino: "7", Title: "real.pdf"},
		},
	}

	book, err := FromUpstreamItem("http://media.local", item)

	require.NoError(t, err)
	require.Len(t, book.Formats, 1)
	assert.Equal(t, Pdf(), book.Formats[0].Kind)
}

func TestInferFileKind(t *testing.T) {
	tests := []struct {
		name string
		want FileKind
	}{
		{"book.epub", Epub()},
		{"Manual.PDF", Pdf()},
		{"audio.m4b", M4b()},
		{"track01.mp3", Mp3()},
		{"book.azw3", Unknown("azw3")},
		{"archive.cbz", Unknown("cbz")},
		{"noextension", Unknown("noextension")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferFileKind(tt.name))
		})
	}
}

func TestFromUpstreamSeries(t *testing.T) {
	ref := FromUpstreamSeries(upstream.Series{ID: "s1", Name: "Discworld"})

	assert.Equal(t, SeriesRef{ID: "s1", Name: "Discworld"}, ref)
}
