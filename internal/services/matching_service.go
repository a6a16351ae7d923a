package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prudhvinik1/pairup/internal/models"
	"github.com/prudhvinik1/pairup/internal/repositories"
)

const earthRadiusKm = 6371.0

// MatchingService picks the nearest online user for a requester. It scans the
// whole store on every call; there is no spatial index.
type MatchingService struct {
	store          repositories.PresenceStore
	maxRadiusKm    float64
	staleThreshold time.Duration
	now            func() time.Time
}

// NewMatchingService returns a matcher. maxRadiusKm <= 0 means unbounded and
// staleThreshold <= 0 disables skipping of stale candidates.
func NewMatchingService(store repositories.PresenceStore, maxRadiusKm float64, staleThreshold time.Duration) *MatchingService {
	return &MatchingService{
		store:          store,
		maxRadiusKm:    maxRadiusKm,
		staleThreshold: staleThreshold,
		now:            time.Now,
	}
}

// FindNearest returns the id of the closest online candidate other than the
// requester and any excluded ids. Equal distances resolve to the smaller id.
func (s *MatchingService) FindNearest(ctx context.Context, requesterID string, loc models.Location, exclude ...string) (string, bool, error) {
	skip := make(map[string]bool, len(exclude)+1)
	skip[requesterID] = true
	for _, id := range exclude {
		skip[id] = true
	}

	now := s.now()
	candidates, err := s.store.Scan(ctx, func(r *models.UserRecord) bool {
		if r.Status != models.StatusOnline || r.Location == nil || skip[r.ID] {
			return false
		}
		return s.staleThreshold <= 0 || !r.IsStale(now, s.staleThreshold)
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to scan candidates: %w", err)
	}

	var (
		bestID   string
		bestDist = math.Inf(1)
	)
	for _, c := range candidates {
		d := HaversineKm(loc, *c.Location)
		if s.maxRadiusKm > 0 && d > s.maxRadiusKm {
			continue
		}
		if d < bestDist || (d == bestDist && c.ID < bestID) {
			bestID, bestDist = c.ID, d
		}
	}

	return bestID, bestID != "", nil
}

// HaversineKm is the great-circle distance between two points in kilometers.
func HaversineKm(a, b models.Location) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
