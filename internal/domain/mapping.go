package domain

import (
	"strings"

	"github.com/shelfgate/shelfgate/internal/gateway"
	"github.com/shelfgate/shelfgate/internal/upstream"
)

// FromUpstreamItem maps an upstream item to a Book. Missing optional fields
// degrade to unset values; a missing item identifier is the one structural
// failure. The mapping is deterministic: identical payloads yield identical
// Books.
func FromUpstreamItem(baseURL string, item *upstream.Item) (Book, error) {
	const op = "domain.FromUpstreamItem"

	if item == nil || item.ID == "" {
		return Book{}, gateway.Errorf(gateway.KindInternal, op, "item missing identifier")
	}

	title := "Untitled"
	if item.Title != nil && *item.Title != "" {
		title = *item.Title
	}

	var series *SeriesRef
	if item.Series != nil && item.Series.ID != "" {
		series = &SeriesRef{ID: item.Series.ID, Name: item.Series.Name}
	}

	var description string
	if item.Description != nil {
		description = *item.Description
	}

	formats := make([]FileRef, 0, len(item.Tracks))
	for _, track := range item.Tracks {
		if track.Ino == "" {
			continue
		}
		name := track.Title
		if name == "" {
			name = track.Path
		}
		formats = append(formats, FileRef{
			Kind: InferFileKind(name),
			URL:  "/v1/items/" + item.ID + "/file/" + track.Ino,
			Size: track.Size,
			MIME: track.MimeType,
		})
	}

	return Book{
		ID:          item.ID,
		Title:       title,
		Authors:     append([]string(nil), item.Authors...),
		Series:      series,
		CoverURL:    strings.TrimRight(baseURL, "/") + "/api/items/" + item.ID + "/cover",
		Formats:     formats,
		Description: description,
	}, nil
}

// FromUpstreamSeries maps an upstream series row to a SeriesRef.
func FromUpstreamSeries(s upstream.Series) SeriesRef {
	return SeriesRef{ID: s.ID, Name: s.Name}
}

// InferFileKind derives the format kind from a file name. Unrecognized
// extensions are preserved, not defaulted away.
func InferFileKind(name string) FileKind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".epub"):
		return Epub()
	case strings.HasSuffix(lower, ".pdf"):
		return Pdf()
	case strings.HasSuffix(lower, ".m4b"):
		return M4b()
	case strings.HasSuffix(lower, ".mp3"):
		return Mp3()
	}

	ext := lower
	if idx := strings.LastIndex(lower, "."); idx >= 0 {
		ext = lower[idx+1:]
	}
	return Unknown(ext)
}
