package http

import (
	"context"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shelfgate/shelfgate/internal/cache"
	"github.com/shelfgate/shelfgate/internal/domain"
	"github.com/shelfgate/shelfgate/internal/gateway"
	"github.com/shelfgate/shelfgate/internal/upstream"
)

// Cache key prefixes. Progress writes invalidate the library prefix.
const (
	cachePrefixLibrary  = "library."
	cacheKeyLibraryID   = "libraries.default"
	cacheEndpointItems  = cachePrefixLibrary + "items"
	cacheEndpointSeries = cachePrefixLibrary + "series"
)

// bookPage is the cached value shape for one items page.
type bookPage struct {
	Books []domain.Book
	Total int64
}

// seriesPage is the cached value shape for one series page.
type seriesPage struct {
	Series []domain.SeriesRef
	Total  int64
}

// LibraryController serves the paged catalog endpoints through the cache.
type LibraryController struct {
	client          *upstream.Client
	cache           *cache.Cache
	libraryID       string
	upstreamBaseURL string
}

func NewLibraryController(client *upstream.Client, c *cache.Cache, libraryID, upstreamBaseURL string) *LibraryController {
	return &LibraryController{
		client:          client,
		cache:           c,
		libraryID:       libraryID,
		upstreamBaseURL: upstreamBaseURL,
	}
}

// ListBooks handles GET /v1/library.
func (controller *LibraryController) ListBooks(c *gin.Context) {
	page, limit, ok := parsePaging(c)
	if !ok {
		return
	}

	libraryID, err := controller.resolveLibraryID(c.Request.Context())
	if err != nil {
		respondDomainError(c, err, "resolve library")
		return
	}

	key := cache.Key(cacheEndpointItems, pagingParams(libraryID, page, limit))
	v, err := controller.cache.GetOrLoad(c.Request.Context(), key, func(ctx context.Context) (any, error) {
		items, err := controller.client.ListItems(ctx, libraryID, page, limit)
		if err != nil {
			return nil, err
		}
		books := make([]domain.Book, 0, len(items.Results))
		for i := range items.Results {
			book, err := domain.FromUpstreamItem(controller.upstreamBaseURL, &items.Results[i])
			if err != nil {
				return nil, err
			}
			books = append(books, book)
		}
		return bookPage{Books: books, Total: items.Total}, nil
	})
	if err != nil {
		respondDomainError(c, err, "list books")
		return
	}

	result := v.(bookPage)
	c.JSON(200, PaginatedResponse{Data: result.Books, Total: result.Total, Page: page, Limit: limit})
}

// ListSeries handles GET /v1/library/series.
func (controller *LibraryController) ListSeries(c *gin.Context) {
	page, limit, ok := parsePaging(c)
	if !ok {
		return
	}

	libraryID, err := controller.resolveLibraryID(c.Request.Context())
	if err != nil {
		respondDomainError(c, err, "resolve library")
		return
	}

	key := cache.Key(cacheEndpointSeries, pagingParams(libraryID, page, limit))
	v, err := controller.cache.GetOrLoad(c.Request.Context(), key, func(ctx context.Context) (any, error) {
		series, err := controller.client.ListSeries(ctx, libraryID, page, limit)
		if err != nil {
			return nil, err
		}
		refs := make([]domain.SeriesRef, 0, len(series.Results))
		for _, s := range series.Results {
			refs = append(refs, domain.FromUpstreamSeries(s))
		}
		return seriesPage{Series: refs, Total: series.Total}, nil
	})
	if err != nil {
		respondDomainError(c, err, "list series")
		return
	}

	result := v.(seriesPage)
	c.JSON(200, PaginatedResponse{Data: result.Series, Total: result.Total, Page: page, Limit: limit})
}

// resolveLibraryID returns the configured upstream library, or discovers and
// caches the first one upstream reports.
func (controller *LibraryController) resolveLibraryID(ctx context.Context) (string, error) {
	const op = "http.resolveLibraryID"

	if controller.libraryID != "" {
		return controller.libraryID, nil
	}

	v, err := controller.cache.GetOrLoad(ctx, cacheKeyLibraryID, func(ctx context.Context) (any, error) {
		libraries, err := controller.client.ListLibraries(ctx)
		if err != nil {
			return nil, err
		}
		if len(libraries) == 0 {
			return nil, gateway.Errorf(gateway.KindUpstream, op, "upstream reports no libraries")
		}
		return libraries[0].ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func pagingParams(libraryID string, page, limit int) url.Values {
	params := url.Values{}
	params.Set("library", libraryID)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))
	return params
}
