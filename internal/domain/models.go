// Package domain holds the device-agnostic entities the gateway serves and
// the pure mapping functions that build them from upstream payloads. Nothing
// in this package performs I/O.
package domain

import "time"

// FileKind classifies a downloadable format. Unrecognized upstream types are
// preserved verbatim in Raw instead of being dropped.
type FileKind struct {
	Known KnownKind `json:"kind"`
	Raw   string    `json:"raw,omitempty"`
}

// KnownKind enumerates the formats the gateway understands natively.
type KnownKind string

const (
	KindEpub    KnownKind = "epub"
	KindPdf     KnownKind = "pdf"
	KindM4b     KnownKind = "m4b"
	KindMp3     KnownKind = "mp3"
	KindUnknown KnownKind = "unknown"
)

// Epub, Pdf, M4b and Mp3 are the recognized kinds; Unknown carries the
// original type string for forward compatibility.
func Epub() FileKind            { return FileKind{Known: KindEpub} }
func Pdf() FileKind             { return FileKind{Known: KindPdf} }
func M4b() FileKind             { return FileKind{Known: KindM4b} }
func Mp3() FileKind             { return FileKind{Known: KindMp3} }
func Unknown(raw string) FileKind {
	return FileKind{Known: KindUnknown, Raw: raw}
}

// SeriesRef is a weak reference to a series; it owns no books.
type SeriesRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FileRef points at one downloadable format of a book.
type FileRef struct {
	Kind FileKind `json:"format"`
	URL  string   `json:"url"`
	Size *int64   `json:"size,omitempty"`
	MIME string   `json:"mime,omitempty"`
}

// Book is the stable device-facing item shape. ID equals the upstream item
// identifier and is never regenerated.
type Book struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Authors     []string   `json:"authors"`
	Series      *SeriesRef `json:"series,omitempty"`
	CoverURL    string     `json:"cover_url,omitempty"`
	Formats     []FileRef  `json:"formats"`
	Description string     `json:"description,omitempty"`
}

// Progress is a per-device reading position for one book. Position is a
// completion fraction in [0, 1] throughout the system.
type Progress struct {
	BookID    string    `json:"book_id"`
	DeviceID  uint      `json:"device_id"`
	Position  float64   `json:"position"`
	UpdatedAt time.Time `json:"updated_at"`
}
