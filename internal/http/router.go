package http

import (
	"github.com/gin-gonic/gin"

	"github.com/shelfgate/shelfgate/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Progress endpoints always run behind device authentication; catalog and
// streaming endpoints join them when ProtectReads is set. Health stays
// public so probes work with no credentials.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	deviceAuth := auth.NewMiddleware(cfg.DeviceStore, cfg.AuthConfig).Handler()

	health := NewHealthController(cfg.Database, cfg.Client, cfg.Version)
	libraryController := NewLibraryController(cfg.Client, cfg.Cache, cfg.LibraryID, cfg.UpstreamBaseURL)
	itemsController := NewItemsController(cfg.Client, cfg.Cache, cfg.UpstreamBaseURL)
	filesController := NewFilesController(cfg.Streamer, cfg.Client)
	progressController := NewProgressController(cfg.ProgressStore, cfg.Cache)

	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	reads := router.Group("/v1")
	if cfg.AuthConfig.ProtectReads {
		reads.Use(deviceAuth)
	}
	reads.GET("/library", libraryController.ListBooks)
	reads.GET("/library/series", libraryController.ListSeries)
	reads.GET("/items/:id", itemsController.GetItem)
	reads.GET("/items/:id/cover", filesController.GetCover)
	reads.GET("/items/:id/file", filesController.StreamFile)
	reads.GET("/items/:id/file/:ino", filesController.StreamFile)

	progress := router.Group("/v1/progress")
	progress.Use(deviceAuth)
	progress.GET("/:id", progressController.GetProgress)
	progress.PUT("/:id", progressController.UpdateProgress)

	return router
}
