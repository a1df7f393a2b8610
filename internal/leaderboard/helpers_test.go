package leaderboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"runcomp/internal/models"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBackend = errors.New("backend unavailable")

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// fakeAggregator serves canned results per key and counts calls
type fakeAggregator struct {
	mu      sync.Mutex
	results map[string][]models.LeaderboardEntry
	errs    map[string]error
	gates   map[string]chan struct{}
	calls   map[string]int
}

func newFakeAggregator() *fakeAggregator {
	return &fakeAggregator{
		results: make(map[string][]models.LeaderboardEntry),
		errs:    make(map[string]error),
		gates:   make(map[string]chan struct{}),
		calls:   make(map[string]int),
	}
}

func (f *fakeAggregator) set(p Period, offset int, entries ...models.LeaderboardEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[cacheKey(p, offset)] = entries
	delete(f.errs, cacheKey(p, offset))
}

func (f *fakeAggregator) fail(p Period, offset int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[cacheKey(p, offset)] = err
}

// block makes calls for the key wait until the returned channel is closed
func (f *fakeAggregator) block(p Period, offset int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[cacheKey(p, offset)] = gate
	return gate
}

func (f *fakeAggregator) callCount(p Period, offset int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[cacheKey(p, offset)]
}

func (f *fakeAggregator) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeAggregator) GetLeaderboardPeriod(ctx context.Context, p Period, offset int) ([]models.LeaderboardEntry, error) {
	key := cacheKey(p, offset)

	f.mu.Lock()
	f.calls[key]++
	gate := f.gates[key]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.results[key], nil
}

func entry(user string, distance float64, runs int) models.LeaderboardEntry {
	d := distance
	return models.LeaderboardEntry{
		UserID:        user,
		DisplayName:   user,
		TotalDistance: &d,
		TotalRuns:     runs,
	}
}

func userIDs(entries []models.LeaderboardEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	return ids
}

// testNow is a Sunday in ISO week 42 of 2026
var testNow = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)
