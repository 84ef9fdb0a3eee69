package http

import (
	"github.com/shelfgate/shelfgate/internal/auth"
	"github.com/shelfgate/shelfgate/internal/cache"
	"github.com/shelfgate/shelfgate/internal/config"
	"github.com/shelfgate/shelfgate/internal/database"
	"github.com/shelfgate/shelfgate/internal/proxy"
	"github.com/shelfgate/shelfgate/internal/upstream"
)

// RouterConfig carries all router dependencies, keeping NewRouter's
// signature stable as the surface grows.
type RouterConfig struct {
	Version string

	Database *database.Database
	Client   *upstream.Client
	Cache    *cache.Cache
	Streamer *proxy.Streamer

	ProgressStore ProgressStore
	DeviceStore   auth.DeviceStore

	AuthConfig      config.Auth
	LibraryID       string
	UpstreamBaseURL string
}
