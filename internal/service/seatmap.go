package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/cache"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// SeatCell is one position of a seat grid.  Absent marks padding cells in
// a short last row that have no seat behind them.
type SeatCell struct {
	Seat     int  `json:"seat"`
	Reserved bool `json:"reserved"`
	Absent   bool `json:"absent,omitempty"`
}

// SeatMap lays seats 1..rows*cols out row-major: seat n sits at row
// (n-1)/cols, column (n-1)%cols.  A cell is reserved iff its number is in
// reserved.
func SeatMap(reserved []int, rows, cols int) [][]SeatCell {
	if rows <= 0 || cols <= 0 {
		return [][]SeatCell{}
	}
	taken := make(map[int]struct{}, len(reserved))
	for _, n := range reserved {
		taken[n] = struct{}{}
	}
	grid := make([][]SeatCell, rows)
	for r := range grid {
		grid[r] = make([]SeatCell, cols)
		for c := range grid[r] {
			n := r*cols + c + 1
			_, res := taken[n]
			grid[r][c] = SeatCell{Seat: n, Reserved: res}
		}
	}
	return grid
}

// SeatMapView is the rendered grid of a hall for one reservation state.
type SeatMapView struct {
	HallID   uint64       `json:"hall_id"`
	Rows     int          `json:"rows"`
	Columns  int          `json:"columns"`
	Capacity int          `json:"capacity"`
	Cells    [][]SeatCell `json:"cells"`
}

// SeatMapRenderer renders and caches seat maps.  Entries live in the hall's
// namespace keyed by the sorted reserved set, so every booking state of a
// hall gets its own entry and a book or cancel drops them all.
type SeatMapRenderer struct {
	halls   HallStore
	cache   cache.Cache
	metrics *metrics.Metrics
}

func NewSeatMapRenderer(halls HallStore, c cache.Cache, m *metrics.Metrics) *SeatMapRenderer {
	if m == nil {
		m = metrics.Nop()
	}
	return &SeatMapRenderer{halls: halls, cache: c, metrics: m}
}

// ReservedKey is the canonical cache field for a reserved set.
func ReservedKey(reserved []int) string {
	cp := append([]int(nil), reserved...)
	sort.Ints(cp)
	var b strings.Builder
	for i, n := range cp {
		if i > 0 && cp[i-1] == n {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// Render returns the seat map of hallID with reserved marked.
func (r *SeatMapRenderer) Render(ctx context.Context, hallID uint64, reserved []int) (*SeatMapView, error) {
	ns, field := cache.SeatMapNS(hallID), ReservedKey(reserved)

	var (
		view SeatMapView
		ok   bool
	)
	gen, err := r.cache.Generation(ctx, ns)
	cacheable := err == nil
	if cacheable {
		ok, err = cache.GetJSON(ctx, r.cache, ns, gen, field, &view)
	}
	if err != nil {
		logger.Warn("seat map cache read failed", zap.Uint64("hall_id", hallID), zap.Error(err))
	}
	if ok {
		r.metrics.SeatMapCacheTotal.WithLabelValues("hit").Inc()
		return &view, nil
	}
	r.metrics.SeatMapCacheTotal.WithLabelValues("miss").Inc()

	hall, err := r.halls.GetByID(ctx, hallID)
	if err != nil {
		if errors.Is(err, repository.ErrHallNotFound) {
			return nil, &NotFoundError{Entity: "hall", ID: hallID}
		}
		return nil, err
	}

	rows, cols := hall.Rows(), hall.SeatsPerRow
	cells := SeatMap(reserved, rows, cols)
	for ri := range cells {
		for ci := range cells[ri] {
			if cells[ri][ci].Seat > hall.SeatCapacity {
				cells[ri][ci] = SeatCell{Seat: cells[ri][ci].Seat, Absent: true}
			}
		}
	}
	view = SeatMapView{HallID: hall.ID, Rows: rows, Columns: cols, Capacity: hall.SeatCapacity, Cells: cells}

	if !cacheable {
		return &view, nil
	}
	if err := cache.SetJSON(ctx, r.cache, ns, gen, field, view); err != nil {
		logger.Warn("seat map cache write failed", zap.Uint64("hall_id", hallID), zap.Error(err))
	}
	return &view, nil
}
