package upstream

// Response shapes for the media-library server API. Decoding is deliberately
// lenient: unknown fields are ignored and expected-but-absent fields stay at
// their zero value, so upstream schema additions degrade gracefully instead
// of breaking the gateway.

// StatusResponse is the unauthenticated server status document.
type StatusResponse struct {
	App           string `json:"app"`
	ServerVersion string `json:"serverVersion"`
	IsInit        bool   `json:"isInit"`
}

// LibrariesResponse wraps the library collection.
type LibrariesResponse struct {
	Libraries []Library `json:"libraries"`
}

// Library describes one upstream library.
type Library struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MediaType    string `json:"mediaType"`
	Provider     string `json:"provider"`
	Icon         string `json:"icon"`
	DisplayOrder int64  `json:"displayOrder"`
}

// SeriesPage is a paged series listing.
type SeriesPage struct {
	Results []Series `json:"results"`
	Total   int64    `json:"total"`
	Limit   int64    `json:"limit"`
	Page    int64    `json:"page"`
}

// Series is an upstream series row.
type Series struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItemsPage is a paged item listing.
type ItemsPage struct {
	Results []Item `json:"results"`
	Total   int64  `json:"total"`
	Limit   int64  `json:"limit"`
	Page    int64  `json:"page"`
}

// Item is an upstream library item. Only ID is structurally required;
// everything else is optional by contract.
type Item struct {
	ID          string      `json:"id"`
	Title       *string     `json:"title"`
	Authors     []string    `json:"authors"`
	Series      *SeriesInfo `json:"series"`
	Description *string     `json:"description"`
	Tracks      []Track     `json:"tracks"`
}

// SeriesInfo is the series reference embedded in an item.
type SeriesInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is one downloadable file belonging to an item.
type Track struct {
	Ino      string `json:"ino"`
	Title    string `json:"title"`
	Path     string `json:"path"`
	Size     *int64 `json:"size"`
	MimeType string `json:"mimeType"`
}
