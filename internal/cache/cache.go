// Package cache stores derived read models (movie search results, rendered
// seat maps) under named namespaces.  Writers never update entries in
// place: they drop a whole namespace with Invalidate and let the next
// reader repopulate it.
//
// Every namespace carries a generation that Invalidate advances.  A reader
// takes the generation before it reads the store and hands it back to Set;
// a value computed against an older generation is never served, so a slow
// reader cannot resurrect data that an invalidation has already dropped.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
)

// Cache is implemented by Redis and Memory.  A miss is reported as
// ok == false with a nil error.
type Cache interface {
	Generation(ctx context.Context, ns string) (uint64, error)
	Get(ctx context.Context, ns string, gen uint64, field string) (val []byte, ok bool, err error)
	Set(ctx context.Context, ns string, gen uint64, field string, val []byte) error
	Invalidate(ctx context.Context, ns string) error
}

// Namespaces used by the services.
const (
	NSSearch = "search"
)

// SeatMapNS is the namespace holding every cached seat map of a hall.
func SeatMapNS(hallID uint64) string {
	return "seatmap:hall:" + strconv.FormatUint(hallID, 10)
}

// GetJSON decodes the cached value into dst.  A value that no longer
// decodes is treated as a miss.
func GetJSON(ctx context.Context, c Cache, ns string, gen uint64, field string, dst any) (bool, error) {
	raw, ok, err := c.Get(ctx, ns, gen, field)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v and stores it.
func SetJSON(ctx context.Context, c Cache, ns string, gen uint64, field string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, ns, gen, field, raw)
}

// Nop never stores anything.  It stands in when caching is disabled.
type Nop struct{}

func (Nop) Generation(context.Context, string) (uint64, error)               { return 0, nil }
func (Nop) Get(context.Context, string, uint64, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, uint64, string, []byte) error        { return nil }
func (Nop) Invalidate(context.Context, string) error                         { return nil }
