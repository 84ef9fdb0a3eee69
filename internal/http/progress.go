package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shelfgate/shelfgate/internal/auth"
	"github.com/shelfgate/shelfgate/internal/cache"
	"github.com/shelfgate/shelfgate/internal/domain"
	"github.com/shelfgate/shelfgate/internal/entities"
)

// progressUpdateRequest is the PUT body. UpdatedAt defaults to the server
// clock when the device omits it.
type progressUpdateRequest struct {
	Position  *float64   `json:"position"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// ProgressController serves per-device reading positions. Progress is never
// cached: reads hit the store directly, writes go through timestamp merge.
type ProgressController struct {
	store ProgressStore
	cache *cache.Cache
}

func NewProgressController(store ProgressStore, c *cache.Cache) *ProgressController {
	return &ProgressController{store: store, cache: c}
}

// GetProgress handles GET /v1/progress/:id. A book with no stored position
// yields an empty object, not a 404: absence of progress is a normal state.
func (controller *ProgressController) GetProgress(c *gin.Context) {
	bookID, ok := requireItemID(c)
	if !ok {
		return
	}
	deviceID := auth.GetDeviceID(c)

	stored, err := controller.store.Get(bookID, deviceID)
	if err != nil {
		respondDomainError(c, err, "get progress")
		return
	}
	if stored == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	c.JSON(http.StatusOK, toProgress(stored))
}

// UpdateProgress handles PUT /v1/progress/:id. The response carries the
// post-merge authoritative position, which is the stored newer value when
// the incoming write was stale.
func (controller *ProgressController) UpdateProgress(c *gin.Context) {
	bookID, ok := requireItemID(c)
	if !ok {
		return
	}
	deviceID := auth.GetDeviceID(c)

	var req progressUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Position == nil {
		respondBadRequest(c, "position is required")
		return
	}
	if *req.Position < 0 || *req.Position > 1 {
		respondBadRequest(c, "position must be a fraction between 0 and 1")
		return
	}

	updatedAt := time.Now().UTC()
	if req.UpdatedAt != nil {
		updatedAt = req.UpdatedAt.UTC()
	}

	stored, err := controller.store.Set(&entities.Progress{
		BookID:    bookID,
		DeviceID:  deviceID,
		Position:  *req.Position,
		UpdatedAt: updatedAt,
	})
	if err != nil {
		respondDomainError(c, err, "update progress")
		return
	}

	// Stale writes change nothing, so cached listings stay valid.
	if stored.UpdatedAt.Equal(updatedAt) {
		controller.cache.InvalidatePrefix(cachePrefixLibrary)
	}

	c.JSON(http.StatusOK, toProgress(stored))
}

func toProgress(p *entities.Progress) domain.Progress {
	return domain.Progress{
		BookID:    p.BookID,
		DeviceID:  p.DeviceID,
		Position:  p.Position,
		UpdatedAt: p.UpdatedAt,
	}
}
