package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prudhvinik1/pairup/internal/metrics"
	"github.com/prudhvinik1/pairup/internal/models"
	"github.com/prudhvinik1/pairup/internal/notify"
	"github.com/prudhvinik1/pairup/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errStoreDown = errors.New("store unavailable")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) types(userID string) []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.EventType
	for _, e := range n.events {
		if e.UserID == userID {
			out = append(out, e.Type)
		}
	}
	return out
}

// flakyStore fails Put for selected ids and every call when down is set.
// putsLeft lets an id succeed that many more times before it starts failing.
type flakyStore struct {
	*repositories.MemoryPresenceStore
	mu       sync.Mutex
	failPut  map[string]bool
	putsLeft map[string]int
	down     bool
	puts     int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{
		MemoryPresenceStore: repositories.NewMemoryPresenceStore(),
		failPut:             map[string]bool{},
		putsLeft:            map[string]int{},
	}
}

func (s *flakyStore) Put(ctx context.Context, r *models.UserRecord) error {
	s.mu.Lock()
	fail := s.down || s.failPut[r.ID]
	if left, ok := s.putsLeft[r.ID]; ok && !fail {
		if left == 0 {
			fail = true
		} else {
			s.putsLeft[r.ID] = left - 1
		}
	}
	if !fail {
		s.puts++
	}
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.MemoryPresenceStore.Put(ctx, r)
}

func (s *flakyStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func (s *flakyStore) Scan(ctx context.Context, match func(*models.UserRecord) bool) ([]*models.UserRecord, error) {
	s.mu.Lock()
	down := s.down
	s.mu.Unlock()
	if down {
		return nil, errStoreDown
	}
	return s.MemoryPresenceStore.Scan(ctx, match)
}

type testEnv struct {
	coordinator *SessionCoordinator
	store       *flakyStore
	notifier    *recordingNotifier
	metrics     *metrics.Metrics
	clock       *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	store := newFlakyStore()
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := metrics.New(prometheus.NewRegistry())
	n := &recordingNotifier{}

	matcher := NewMatchingService(store, 0, 5*time.Minute)
	matcher.now = clock.Now

	c := NewSessionCoordinator(store, matcher, n, m, zaptest.NewLogger(t))
	c.now = clock.Now

	return &testEnv{coordinator: c, store: store, notifier: n, metrics: m, clock: clock}
}

func (e *testEnv) goOnline(t *testing.T, id string, lat, lon float64) {
	t.Helper()
	err := e.coordinator.UpdateLocation(context.Background(), id, models.StatusOnline, &models.Location{Lat: lat, Lon: lon})
	require.NoError(t, err)
}

func (e *testEnv) record(t *testing.T, id string) *models.UserRecord {
	t.Helper()
	r, err := e.store.Get(context.Background(), id)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Offline(id)
	}
	require.NoError(t, err)
	return r
}

// assertSymmetric checks the partner invariants across every stored record
func (e *testEnv) assertSymmetric(t *testing.T) {
	t.Helper()
	all, err := e.store.MemoryPresenceStore.Scan(context.Background(), repositories.All)
	require.NoError(t, err)

	byID := make(map[string]*models.UserRecord, len(all))
	for _, r := range all {
		byID[r.ID] = r
	}
	for _, r := range all {
		if r.Status == models.StatusOffline {
			assert.Empty(t, r.PartnerID, "offline record %s must not have a partner", r.ID)
			assert.Nil(t, r.Location, "offline record %s must not have a location", r.ID)
		}
		if r.PartnerID == "" {
			assert.False(t, r.Status.Paired(), "record %s is %s without a partner", r.ID, r.Status)
			continue
		}
		assert.True(t, r.Status.Paired(), "record %s has a partner but is %s", r.ID, r.Status)
		assert.NotEqual(t, r.ID, r.PartnerID, "record %s paired with itself", r.ID)
		partner, ok := byID[r.PartnerID]
		if assert.True(t, ok, "partner %s of %s missing", r.PartnerID, r.ID) {
			assert.Equal(t, r.ID, partner.PartnerID, "partner link %s -> %s is not mutual", r.ID, r.PartnerID)
		}
	}
}
