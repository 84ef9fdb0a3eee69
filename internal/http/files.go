package http

import (
	"github.com/gin-gonic/gin"

	"github.com/shelfgate/shelfgate/internal/gateway"
	"github.com/shelfgate/shelfgate/internal/proxy"
	"github.com/shelfgate/shelfgate/internal/upstream"
)

// FilesController streams book files and covers through the proxy.
type FilesController struct {
	streamer *proxy.Streamer
	client   *upstream.Client
}

func NewFilesController(streamer *proxy.Streamer, client *upstream.Client) *FilesController {
	return &FilesController{streamer: streamer, client: client}
}

// StreamFile handles GET /v1/items/:id/file and /v1/items/:id/file/:ino.
// Without an ino the item's primary file is served.
func (controller *FilesController) StreamFile(c *gin.Context) {
	id, ok := requireItemID(c)
	if !ok {
		return
	}

	ino := c.Param("ino")
	if ino == "" {
		resolved, err := controller.primaryFileIno(c, id)
		if err != nil {
			respondDomainError(c, err, "resolve primary file")
			return
		}
		ino = resolved
	}

	if err := controller.streamer.StreamFile(c.Writer, c.Request, id, ino); err != nil {
		respondDomainError(c, err, "stream file")
	}
}

// GetCover handles GET /v1/items/:id/cover.
func (controller *FilesController) GetCover(c *gin.Context) {
	id, ok := requireItemID(c)
	if !ok {
		return
	}

	width, ok := parseQueryInt(c, "width", 0)
	if !ok {
		return
	}
	height, ok := parseQueryInt(c, "height", 0)
	if !ok {
		return
	}
	opts := upstream.CoverOptions{
		Width:  width,
		Height: height,
		Format: c.Query("format"),
	}

	if err := controller.streamer.ServeCover(c.Writer, c.Request, id, opts); err != nil {
		respondDomainError(c, err, "serve cover")
	}
}

// primaryFileIno resolves an item's first downloadable file.
func (controller *FilesController) primaryFileIno(c *gin.Context, itemID string) (string, error) {
	const op = "http.primaryFileIno"

	item, err := controller.client.GetItem(c.Request.Context(), itemID)
	if err != nil {
		return "", err
	}
	for _, track := range item.Tracks {
		if track.Ino != "" {
			return track.Ino, nil
		}
	}
	return "", gateway.Errorf(gateway.KindNotFound, op, "item %s has no files", itemID)
}
