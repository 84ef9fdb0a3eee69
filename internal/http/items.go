package http

import (
	"context"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/shelfgate/shelfgate/internal/cache"
	"github.com/shelfgate/shelfgate/internal/domain"
	"github.com/shelfgate/shelfgate/internal/upstream"
)

const cacheEndpointItem = cachePrefixLibrary + "item"

// ItemsController serves single-item metadata through the cache.
type ItemsController struct {
	client          *upstream.Client
	cache           *cache.Cache
	upstreamBaseURL string
}

func NewItemsController(client *upstream.Client, c *cache.Cache, upstreamBaseURL string) *ItemsController {
	return &ItemsController{client: client, cache: c, upstreamBaseURL: upstreamBaseURL}
}

// GetItem handles GET /v1/items/:id.
func (controller *ItemsController) GetItem(c *gin.Context) {
	id, ok := requireItemID(c)
	if !ok {
		return
	}

	params := url.Values{}
	params.Set("id", id)
	key := cache.Key(cacheEndpointItem, params)

	v, err := controller.cache.GetOrLoad(c.Request.Context(), key, func(ctx context.Context) (any, error) {
		item, err := controller.client.GetItem(ctx, id)
		if err != nil {
			return nil, err
		}
		return domain.FromUpstreamItem(controller.upstreamBaseURL, item)
	})
	if err != nil {
		respondDomainError(c, err, "get item")
		return
	}

	c.JSON(200, v.(domain.Book))
}
