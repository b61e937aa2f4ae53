package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/cache"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// Catalog answers movie searches from the cache, falling back to the store.
// The Scheduler invalidates the search namespace whenever a film is added.
type Catalog struct {
	movies MovieStore
	cache  cache.Cache
}

func NewCatalog(movies MovieStore, c cache.Cache) *Catalog {
	return &Catalog{movies: movies, cache: c}
}

// Search matches q case-insensitively against the start of any word in a
// movie's title or description.  Results are ordered by title.
func (c *Catalog) Search(ctx context.Context, q string) ([]model.Movie, error) {
	q = strings.ToLower(strings.TrimSpace(q))

	// The generation is read before the store so a film added while the
	// query runs leaves our result in a retired generation.
	gen, err := c.cache.Generation(ctx, cache.NSSearch)
	if err != nil {
		logger.Warn("search cache unavailable", zap.String("q", q), zap.Error(err))
		return c.movies.Search(ctx, q)
	}

	var hit []model.Movie
	ok, err := cache.GetJSON(ctx, c.cache, cache.NSSearch, gen, q, &hit)
	if err != nil {
		logger.Warn("search cache read failed", zap.String("q", q), zap.Error(err))
	}
	if ok {
		return hit, nil
	}

	movies, err := c.movies.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, c.cache, cache.NSSearch, gen, q, movies); err != nil {
		logger.Warn("search cache write failed", zap.String("q", q), zap.Error(err))
	}
	return movies, nil
}
