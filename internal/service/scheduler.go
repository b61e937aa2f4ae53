package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/iliyamo/cinema-booking/internal/cache"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/schedule"
)

// MaxDurationMinutes caps a film's running time at one day.  It keeps the
// minutes-to-Duration conversion far from overflow.
const MaxDurationMinutes = 24 * 60

// AddFilmInput is one staff request to schedule a film.  RawTimes is the
// comma separated DD/MM/YY HH:MM list typed by the staff member.
type AddFilmInput struct {
	Title           string
	Description     string
	DurationMinutes int
	HallID          uint64
	RawTimes        string
	StaffID         uint64
}

// Scheduler admits a film's batch of showings into a hall, all or nothing.
type Scheduler struct {
	txm       database.TxManager
	halls     HallStore
	movies    MovieStore
	showings  ShowingStore
	cache     cache.Cache
	publisher EventPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewScheduler(txm database.TxManager, halls HallStore, movies MovieStore, showings ShowingStore,
	c cache.Cache, pub EventPublisher, m *metrics.Metrics) *Scheduler {
	if txm == nil || halls == nil || movies == nil || showings == nil || c == nil {
		panic("nil dependency passed to NewScheduler")
	}
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Scheduler{txm: txm, halls: halls, movies: movies, showings: showings,
		cache: c, publisher: pub, metrics: m, now: time.Now}
}

// NormalizeTitle trims a title and title-cases every word, so
// "the  matrix" and "The Matrix" name the same movie.
func NormalizeTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	return cases.Title(language.English).String(title)
}

// AddFilm validates and schedules in.  Errors, in the order they are
// checked: NotFoundError for the hall, ValidationError for the duration or
// title, ParseError for the showtimes, CollisionError when any showtime
// overlaps an existing showing in the hall.  On any error nothing is
// written.
func (s *Scheduler) AddFilm(ctx context.Context, in AddFilmInput) ([]model.Showing, error) {
	if _, err := s.halls.GetByID(ctx, in.HallID); err != nil {
		if errors.Is(err, repository.ErrHallNotFound) {
			return nil, &NotFoundError{Entity: "hall", ID: in.HallID}
		}
		return nil, err
	}
	if in.DurationMinutes <= 0 || in.DurationMinutes > MaxDurationMinutes {
		return nil, &ValidationError{Field: "duration", Reason: fmt.Sprintf("must be between 1 and %d minutes", MaxDurationMinutes)}
	}
	title := NormalizeTitle(in.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	windows, err := schedule.ParseShowtimes(in.RawTimes, time.Duration(in.DurationMinutes)*time.Minute)
	if err != nil {
		return nil, err
	}

	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer rollback(tx, &committed)

	// Holding the hall row serializes add-film requests for this hall, so
	// the collision check below cannot race another batch's inserts.
	hall, err := s.halls.LockTx(ctx, tx, in.HallID)
	if err != nil {
		if errors.Is(err, repository.ErrHallNotFound) {
			return nil, &NotFoundError{Entity: "hall", ID: in.HallID}
		}
		return nil, err
	}

	var conflicts []Collision
	for _, w := range windows {
		found, err := s.showings.FindOverlappingTx(ctx, tx, hall.ID, w)
		if err != nil {
			return nil, err
		}
		if hits := overlapping(found, w); len(hits) > 0 {
			conflicts = append(conflicts, Collision{Window: w, Existing: hits})
		}
	}
	if len(conflicts) > 0 {
		s.metrics.ScheduleCollisionsTotal.Inc()
		logger.Warn("add film rejected: collision",
			zap.Uint64("hall_id", hall.ID), zap.String("title", title), zap.Int("conflicts", len(conflicts)))
		return nil, &CollisionError{HallID: hall.ID, Conflicts: conflicts}
	}

	movie, err := s.movies.GetByTitleTx(ctx, tx, title)
	switch {
	case errors.Is(err, repository.ErrMovieNotFound):
		movie = &model.Movie{
			Title:           title,
			Description:     strings.TrimSpace(in.Description),
			DurationMinutes: in.DurationMinutes,
		}
		if err := s.movies.CreateTx(ctx, tx, movie); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}
	if err := s.movies.LinkStaffTx(ctx, tx, movie.ID, in.StaffID); err != nil {
		return nil, err
	}

	created := make([]model.Showing, 0, len(windows))
	for _, w := range windows {
		sh := model.NewShowing(movie.ID, *hall, w)
		if err := s.showings.CreateTx(ctx, tx, &sh); err != nil {
			return nil, err
		}
		created = append(created, sh)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	s.metrics.ShowingsCreatedTotal.Add(float64(len(created)))
	s.invalidate(ctx, cache.NSSearch, cache.SeatMapNS(hall.ID))
	s.publish(ctx, movie, hall.ID, in.StaffID, created)
	logger.Debug("film scheduled",
		zap.Uint64("movie_id", movie.ID), zap.Uint64("hall_id", hall.ID), zap.Int("showings", len(created)))
	return created, nil
}

func (s *Scheduler) invalidate(ctx context.Context, namespaces ...string) {
	for _, ns := range namespaces {
		if err := s.cache.Invalidate(ctx, ns); err != nil {
			logger.Warn("cache invalidate failed", zap.String("namespace", ns), zap.Error(err))
		}
	}
}

func (s *Scheduler) publish(ctx context.Context, movie *model.Movie, hallID, staffID uint64, created []model.Showing) {
	ev := queue.ShowingsScheduledEvent{
		EventID:    uuid.NewString(),
		MovieID:    movie.ID,
		MovieTitle: movie.Title,
		HallID:     hallID,
		StaffID:    staffID,
		OccurredAt: s.now().UTC(),
	}
	for _, sh := range created {
		ev.Showings = append(ev.Showings, queue.ShowingAt{ShowingID: sh.ID, StartsAt: sh.StartsAt, EndsAt: sh.EndsAt})
	}
	_ = s.publisher.Publish(ctx, queue.QueueShowingsScheduled, ev)
}
