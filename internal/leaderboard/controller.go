package leaderboard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"runcomp/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// View statuses
const (
	StatusLoading = "loading"
	StatusReady   = "ready"
	StatusEmpty   = "empty"
	StatusError   = "error"
)

// DefaultStartDate is the day the competition's data begins
var DefaultStartDate = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// Aggregator is the remote procedure that computes a period's standings
type Aggregator interface {
	GetLeaderboardPeriod(ctx context.Context, period Period, offset int) ([]models.LeaderboardEntry, error)
}

// Scheduler runs best-effort background work. Schedule may refuse a task
// (for example when a queue is full); refused tasks are simply skipped.
type Scheduler interface {
	Schedule(name string, task func(ctx context.Context) error) error
}

// groupScheduler runs each task on its own goroutine
type groupScheduler struct {
	ctx   context.Context
	group errgroup.Group
}

func (s *groupScheduler) Schedule(_ string, task func(ctx context.Context) error) error {
	s.group.Go(func() error {
		return task(s.ctx)
	})
	return nil
}

// Controller owns one viewer's leaderboard selection: the active period and
// offset, a keyed cache of fetched standings and the prefetch policy that
// keeps neighbouring keys warm.
type Controller struct {
	aggregator Aggregator
	cache      *Cache
	scheduler  Scheduler
	logger     *zap.Logger
	now        func() time.Time
	start      time.Time
	baseCtx    context.Context
	flight     singleflight.Group

	mu      sync.Mutex
	period  Period
	offset  int
	entries []models.LeaderboardEntry
	err     error
	loading bool
	settled bool

	background sync.WaitGroup
	inflight   atomic.Int32
}

// Option configures a Controller
type Option func(*Controller)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithStartDate sets the competition start used for navigation bounds
func WithStartDate(start time.Time) Option {
	return func(c *Controller) { c.start = start }
}

// WithFreshness sets the cache freshness window
func WithFreshness(d time.Duration) Option {
	return func(c *Controller) { c.cache = NewCache(d) }
}

// WithScheduler runs prefetches on s instead of plain goroutines
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.scheduler = s }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithBaseContext sets the context background loads run under
func WithBaseContext(ctx context.Context) Option {
	return func(c *Controller) { c.baseCtx = ctx }
}

// NewController creates a controller showing the all-time leaderboard
func NewController(aggregator Aggregator, opts ...Option) *Controller {
	c := &Controller{
		aggregator: aggregator,
		now:        time.Now,
		start:      DefaultStartDate,
		baseCtx:    context.Background(),
		period:     PeriodAll,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewCache(DefaultFreshness)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.scheduler == nil {
		c.scheduler = &groupScheduler{ctx: c.baseCtx}
	}
	return c
}

// Activate warms every period and settles the current selection
func (c *Controller) Activate(ctx context.Context) models.LeaderboardView {
	c.PrefetchAll()

	c.mu.Lock()
	p, offset := c.period, c.offset
	c.mu.Unlock()

	c.settle(ctx, p, offset)
	return c.View()
}

// SelectPeriod switches timeframe and returns to its most recent instance
func (c *Controller) SelectPeriod(ctx context.Context, p Period) (models.LeaderboardView, error) {
	if !p.Valid() {
		return c.View(), fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
	}

	c.mu.Lock()
	c.period = p
	c.offset = 0
	c.mu.Unlock()

	c.settle(ctx, p, 0)
	return c.View(), nil
}

// Navigate moves one period older or newer. Moves past either bound, and
// any move on the all-time board, are rejected without loading anything.
func (c *Controller) Navigate(ctx context.Context, d Direction) (models.LeaderboardView, error) {
	c.mu.Lock()
	p, offset := c.period, c.offset
	maxOffset := c.MaxOffset(p)

	next := offset
	switch d {
	case Older:
		next++
	case Newer:
		next--
	default:
		c.mu.Unlock()
		return c.View(), fmt.Errorf("%w: %q", ErrInvalidDirection, d)
	}

	if p == PeriodAll || next < 0 || next > maxOffset {
		c.mu.Unlock()
		return c.View(), fmt.Errorf("%w: %s %s from offset %d (max %d)", ErrNavigationDisabled, d, p, offset, maxOffset)
	}

	c.offset = next
	c.mu.Unlock()

	c.settle(ctx, p, next)
	return c.View(), nil
}

// Load returns the ranked leaderboard for (p, offset), from cache when the
// cached copy is fresh. A failed fetch leaves any cached copy in place.
func (c *Controller) Load(ctx context.Context, p Period, offset int) ([]models.LeaderboardEntry, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
	}
	if maxOffset := c.MaxOffset(p); offset < 0 || offset > maxOffset {
		return nil, fmt.Errorf("%w: %s offset %d not in [0, %d]", ErrOffsetOutOfRange, p, offset, maxOffset)
	}

	if entries, ok := c.cache.Fresh(p, offset, c.now()); ok {
		return entries, nil
	}

	v, err, _ := c.flight.Do(cacheKey(p, offset), func() (interface{}, error) {
		if entries, ok := c.cache.Fresh(p, offset, c.now()); ok {
			return entries, nil
		}

		raw, err := c.aggregator.GetLeaderboardPeriod(ctx, p, offset)
		if err != nil {
			return nil, fmt.Errorf("get leaderboard %s/%d: %w", p, offset, err)
		}

		entries := rank(raw)
		c.cache.Store(p, offset, entries, c.now())
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.LeaderboardEntry), nil
}

// PrefetchAll warms offset 0 of every period in the background
func (c *Controller) PrefetchAll() {
	for _, p := range Periods {
		c.prefetch(p, 0)
	}
}

// PrefetchAdjacent warms the offsets either side of offset in the background
func (c *Controller) PrefetchAdjacent(p Period, offset, maxOffset int) {
	if p == PeriodAll {
		return
	}
	if offset-1 >= 0 {
		c.prefetch(p, offset-1)
	}
	if offset+1 <= maxOffset {
		c.prefetch(p, offset+1)
	}
}

// MaxOffset returns the navigation bound for p as of now
func (c *Controller) MaxOffset(p Period) int {
	return MaxOffset(p, c.start, c.now())
}

// View returns a snapshot of the active selection
func (c *Controller) View() models.LeaderboardView {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	view := models.LeaderboardView{
		Period:      c.period.String(),
		Offset:      c.offset,
		MaxOffset:   MaxOffset(c.period, c.start, now),
		Label:       Label(c.period, c.offset, now),
		Entries:     []models.LeaderboardEntry{},
		Loading:     c.loading,
		Prefetching: c.inflight.Load() > 0,
	}

	switch {
	case c.loading || !c.settled:
		view.Status = StatusLoading
	case c.err != nil:
		view.Status = StatusError
		view.Error = c.err.Error()
	case len(c.entries) == 0:
		view.Status = StatusEmpty
	default:
		view.Status = StatusReady
		view.Entries = append(view.Entries, c.entries...)
	}
	return view
}

// Cache exposes the controller's cache
func (c *Controller) Cache() *Cache {
	return c.cache
}

// Wait blocks until all scheduled background loads have finished
func (c *Controller) Wait() {
	c.background.Wait()
}

// settle loads the selected key and publishes the result if the key is
// still selected when the load returns
func (c *Controller) settle(ctx context.Context, p Period, offset int) {
	entries, ok := c.cache.Fresh(p, offset, c.now())
	var err error
	if !ok {
		c.mu.Lock()
		if c.isCurrent(p, offset) {
			c.loading = true
			c.settled = false
			c.entries = nil
			c.err = nil
		}
		c.mu.Unlock()

		entries, err = c.Load(ctx, p, offset)
		if err != nil {
			c.logger.Error("Leaderboard load failed",
				zap.String("period", p.String()),
				zap.Int("offset", offset),
				zap.Error(err))
		}
	}

	if !c.publish(p, offset, entries, err) {
		c.logger.Debug("Discarding result for abandoned selection",
			zap.String("period", p.String()),
			zap.Int("offset", offset))
		return
	}

	if p != PeriodAll {
		c.PrefetchAdjacent(p, offset, c.MaxOffset(p))
	}
}

func (c *Controller) publish(p Period, offset int, entries []models.LeaderboardEntry, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrent(p, offset) {
		return false
	}
	c.loading = false
	c.settled = true
	c.entries = entries
	c.err = err
	return true
}

// isCurrent must be called with c.mu held
func (c *Controller) isCurrent(p Period, offset int) bool {
	return c.period == p && c.offset == offset
}

func (c *Controller) prefetch(p Period, offset int) {
	if _, ok := c.cache.Fresh(p, offset, c.now()); ok {
		return
	}

	c.background.Add(1)
	c.inflight.Add(1)
	done := func() {
		c.inflight.Add(-1)
		c.background.Done()
	}

	name := "prefetch " + cacheKey(p, offset)
	task := func(ctx context.Context) error {
		defer done()
		if _, err := c.Load(ctx, p, offset); err != nil {
			c.logger.Warn("Prefetch failed",
				zap.String("period", p.String()),
				zap.Int("offset", offset),
				zap.Error(err))
			return err
		}
		return nil
	}

	if err := c.scheduler.Schedule(name, task); err != nil {
		done()
		c.logger.Debug("Prefetch skipped", zap.String("task", name), zap.Error(err))
	}
}
