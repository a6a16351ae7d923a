package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/pairup/internal/metrics"
	"github.com/prudhvinik1/pairup/internal/models"
	"github.com/prudhvinik1/pairup/internal/notify"
	"github.com/prudhvinik1/pairup/internal/repositories"
	"go.uber.org/zap"
)

const (
	// maxPairAttempts bounds how often find-partner rescans after losing a
	// candidate to a concurrent pairing.
	maxPairAttempts = 3
	maxLockAttempts = 5
)

// SessionCoordinator owns the per-user state machine
// offline -> online -> matched <-> ringing -> offline. Every transition runs
// under the keyed locks of the records it touches, which serializes pairing
// decisions per candidate.
type SessionCoordinator struct {
	store    repositories.PresenceStore
	matcher  *MatchingService
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	locks    *keyedLocker
	now      func() time.Time
}

type MatchResult struct {
	Matched   bool
	PartnerID string
}

// StatusView is what a user's poll sees.
type StatusView struct {
	Status          models.Status
	Location        *models.Location
	PartnerID       string
	PartnerLocation *models.Location
	LastSeen        time.Time
	PartnerLeft     bool
}

func NewSessionCoordinator(
	store repositories.PresenceStore,
	matcher *MatchingService,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SessionCoordinator {
	return &SessionCoordinator{
		store:    store,
		matcher:  matcher,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		locks:    newKeyedLocker(),
		now:      time.Now,
	}
}

// NewSession issues a fresh user id. Nothing is stored until the client
// reports a location.
func (c *SessionCoordinator) NewSession() string {
	return uuid.NewString()
}

// UpdateLocation applies a client status report. status is online, offline or
// matched; ringing can only be set by a partner's ring.
func (c *SessionCoordinator) UpdateLocation(ctx context.Context, userID string, status models.Status, loc *models.Location) error {
	switch status {
	case models.StatusOffline:
		return c.goOffline(ctx, userID)
	case models.StatusOnline, models.StatusMatched:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if loc == nil {
		return fmt.Errorf("%w: location is required", ErrInvalidLocation)
	}
	if err := loc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}

	unlock := c.locks.Lock(userID)
	defer unlock()

	record, err := c.load(ctx, userID)
	if err != nil {
		return err
	}

	switch {
	case status == models.StatusMatched && !record.Status.Paired():
		return ErrNotMatched
	case status == models.StatusMatched:
		// Answering a ring: ringing goes back to matched
		record.Status = models.StatusMatched
	case !record.Status.Paired():
		record = &models.UserRecord{ID: userID, Status: models.StatusOnline}
	}
	// A paired user reporting online only refreshes its location; leaving a
	// match goes through ExitMatch.

	record.Location = loc
	record.LastSeen = c.now()
	return c.put(ctx, record)
}

func (c *SessionCoordinator) goOffline(ctx context.Context, userID string) error {
	user, unlock, err := c.lockWithPartner(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	if user.Status == models.StatusOffline {
		return nil
	}
	if user.Status.Paired() {
		return c.unlinkLocked(ctx, user, user.PartnerID)
	}

	return c.put(ctx, offlineRecord(user, c.now()))
}

// FindPartner records the requester as online at loc and pairs it with the
// nearest online user. A requester that is already paired gets its current
// partner back.
func (c *SessionCoordinator) FindPartner(ctx context.Context, userID string, loc models.Location) (*MatchResult, error) {
	if err := loc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}

	if res, err := c.refreshRequester(ctx, userID, loc); err != nil || res != nil {
		return res, err
	}

	var exclude []string
	for attempt := 0; attempt < maxPairAttempts; attempt++ {
		candidateID, ok, err := c.matcher.FindNearest(ctx, userID, loc, exclude...)
		if err != nil {
			c.metrics.StoreErrors.WithLabelValues("scan").Inc()
			return nil, err
		}
		if !ok {
			break
		}

		res, retry, err := c.tryPair(ctx, userID, candidateID)
		if err != nil {
			return nil, err
		}
		if !retry {
			return res, nil
		}

		c.logger.Debug("candidate taken before pairing, rescanning",
			zap.String("user", userID), zap.String("candidate", candidateID))
		exclude = append(exclude, candidateID)
	}

	c.metrics.MatchMisses.Inc()
	return &MatchResult{}, nil
}

// refreshRequester stores the requester's location. It returns a non-nil
// result when the requester is still in a live match. A match whose other side
// is gone is dropped and the requester goes back to online.
func (c *SessionCoordinator) refreshRequester(ctx context.Context, userID string, loc models.Location) (*MatchResult, error) {
	unlock := c.locks.Lock(userID)
	defer unlock()

	record, err := c.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	mutual := false
	if record.Status.Paired() {
		if mutual, err = c.partnerLinked(ctx, record); err != nil {
			return nil, err
		}
	}

	staleMatch := record.PartnerID
	if !mutual {
		record = &models.UserRecord{ID: userID, Status: models.StatusOnline}
	}
	record.Location = &loc
	record.LastSeen = c.now()
	if err := c.put(ctx, record); err != nil {
		return nil, err
	}

	if mutual {
		return &MatchResult{Matched: true, PartnerID: record.PartnerID}, nil
	}
	if staleMatch != "" {
		c.metrics.Divergences.Inc()
		c.logger.Info("partner gone, searching again", zap.String("user", userID), zap.String("partner", staleMatch))
		c.notify(ctx, notify.EventPartnerLeft, userID, staleMatch, c.now())
	}
	return nil, nil
}

// tryPair re-reads both records under their locks and commits the pairing if
// both are still unpaired and online. retry reports that the candidate was
// lost and another should be tried.
func (c *SessionCoordinator) tryPair(ctx context.Context, userID, candidateID string) (*MatchResult, bool, error) {
	unlock := c.locks.Lock(userID, candidateID)
	defer unlock()

	requester, err := c.load(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	candidate, err := c.load(ctx, candidateID)
	if err != nil {
		return nil, false, err
	}

	switch {
	case requester.Status.Paired():
		// Someone else picked the requester while we were scanning
		return &MatchResult{Matched: true, PartnerID: requester.PartnerID}, false, nil
	case requester.Status != models.StatusOnline:
		return &MatchResult{}, false, nil
	case candidate.Status != models.StatusOnline || candidate.Location == nil:
		return nil, true, nil
	}

	if err := c.commitPair(ctx, requester, candidate); err != nil {
		return nil, false, err
	}
	return &MatchResult{Matched: true, PartnerID: candidateID}, false, nil
}

// commitPair writes both halves of a match. If the second write fails the
// first is rolled back; should the rollback fail too, the requester's next
// check-status sees the partner unlinked and exits locally.
func (c *SessionCoordinator) commitPair(ctx context.Context, requester, candidate *models.UserRecord) error {
	now := c.now()
	previous := requester.Clone()

	requester.Status = models.StatusMatched
	requester.PartnerID = candidate.ID
	requester.LastSeen = now
	if err := c.put(ctx, requester); err != nil {
		return err
	}

	candidate.Status = models.StatusMatched
	candidate.PartnerID = requester.ID
	if err := c.put(ctx, candidate); err != nil {
		if rbErr := c.put(ctx, previous); rbErr != nil {
			c.logger.Error("failed to roll back half-written match",
				zap.String("user", requester.ID),
				zap.String("partner", candidate.ID),
				zap.Error(rbErr))
		}
		return err
	}

	c.metrics.Matches.Inc()
	c.logger.Info("users matched", zap.String("user", requester.ID), zap.String("partner", candidate.ID))
	c.notify(ctx, notify.EventMatched, requester.ID, candidate.ID, now)
	c.notify(ctx, notify.EventMatched, candidate.ID, requester.ID, now)
	return nil
}

// RingPartner sets a paired partner to ringing. It returns false when the
// partner is not in a match.
func (c *SessionCoordinator) RingPartner(ctx context.Context, partnerID string) (bool, error) {
	unlock := c.locks.Lock(partnerID)
	defer unlock()

	partner, err := c.load(ctx, partnerID)
	if err != nil {
		return false, err
	}
	if !partner.Status.Paired() {
		return false, nil
	}
	if partner.Status == models.StatusRinging {
		return true, nil
	}

	partner.Status = models.StatusRinging
	if err := c.put(ctx, partner); err != nil {
		return false, err
	}

	c.metrics.Rings.Inc()
	c.notify(ctx, notify.EventRinging, partnerID, partner.PartnerID, c.now())
	return true, nil
}

// CheckStatus reports the user's state and, when paired, the partner's current
// location. A match whose other side is gone is closed locally.
func (c *SessionCoordinator) CheckStatus(ctx context.Context, userID string) (*StatusView, error) {
	unlock := c.locks.Lock(userID)
	defer unlock()

	user, err := c.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &StatusView{Status: user.Status, Location: user.Location, LastSeen: user.LastSeen}
	if !user.Status.Paired() {
		return view, nil
	}

	partner, err := c.load(ctx, user.PartnerID)
	if err != nil {
		return nil, err
	}
	if linkedTo(partner, userID) {
		view.PartnerID = user.PartnerID
		view.PartnerLocation = partner.Location
		return view, nil
	}

	// Partner exited, was reaped or never got the second half of the match
	partnerID := user.PartnerID
	if err := c.put(ctx, offlineRecord(user, user.LastSeen)); err != nil {
		return nil, err
	}

	c.metrics.Divergences.Inc()
	c.logger.Info("partner gone, closing match", zap.String("user", userID), zap.String("partner", partnerID))
	c.notify(ctx, notify.EventPartnerLeft, userID, partnerID, c.now())

	return &StatusView{Status: models.StatusOffline, LastSeen: user.LastSeen, PartnerLeft: true}, nil
}

// GetPartnerLocation returns nil when the partner is absent, offline or has no
// location.
func (c *SessionCoordinator) GetPartnerLocation(ctx context.Context, partnerID string) (*models.Location, error) {
	partner, err := c.load(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if partner.Status == models.StatusOffline || partner.Location == nil {
		return nil, nil
	}
	return partner.Location, nil
}

// ExitMatch moves both users offline. It is idempotent: records that are
// already offline or absent are left alone. A partner that has since been
// paired with someone else is not touched.
func (c *SessionCoordinator) ExitMatch(ctx context.Context, userID, partnerID string) error {
	unlock := c.locks.Lock(userID, partnerID)
	defer unlock()

	user, err := c.load(ctx, userID)
	if err != nil {
		return err
	}
	return c.unlinkLocked(ctx, user, partnerID)
}

// unlinkLocked clears user and partnerID. Callers hold both locks. The partner
// is written first so a failure on the first write changes nothing; a failure
// on the second leaves the user pointing at an offline partner, which the
// user's next check-status resolves.
func (c *SessionCoordinator) unlinkLocked(ctx context.Context, user *models.UserRecord, partnerID string) error {
	now := c.now()
	changed := false

	if partnerID != "" && partnerID != user.ID {
		partner, err := c.load(ctx, partnerID)
		if err != nil {
			return err
		}
		linkedElsewhere := partner.PartnerID != "" && partner.PartnerID != user.ID
		if partner.Status != models.StatusOffline && !linkedElsewhere {
			if err := c.put(ctx, offlineRecord(partner, partner.LastSeen)); err != nil {
				return err
			}
			c.notify(ctx, notify.EventExited, partnerID, user.ID, now)
			changed = true
		}
	}

	if user.Status != models.StatusOffline {
		if err := c.put(ctx, offlineRecord(user, now)); err != nil {
			return err
		}
		c.notify(ctx, notify.EventExited, user.ID, partnerID, now)
		changed = true
	}

	if changed {
		c.metrics.Exits.Inc()
		c.logger.Info("match exited", zap.String("user", user.ID), zap.String("partner", partnerID))
	}
	return nil
}

// lockWithPartner locks userID together with its current partner, re-reading
// until the partner link is stable under the lock.
func (c *SessionCoordinator) lockWithPartner(ctx context.Context, userID string) (*models.UserRecord, func(), error) {
	record, err := c.load(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		partnerID := record.PartnerID
		unlock := c.locks.Lock(userID, partnerID)

		record, err = c.load(ctx, userID)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		if record.PartnerID == partnerID {
			return record, unlock, nil
		}
		unlock()
	}

	return nil, nil, ErrContention
}

// partnerLinked reports whether user's partner still points back at user.
func (c *SessionCoordinator) partnerLinked(ctx context.Context, user *models.UserRecord) (bool, error) {
	partner, err := c.load(ctx, user.PartnerID)
	if err != nil {
		return false, err
	}
	return linkedTo(partner, user.ID), nil
}

func linkedTo(partner *models.UserRecord, userID string) bool {
	return partner.Status.Paired() && partner.PartnerID == userID
}

func offlineRecord(r *models.UserRecord, lastSeen time.Time) *models.UserRecord {
	return &models.UserRecord{ID: r.ID, Status: models.StatusOffline, LastSeen: lastSeen}
}

// load treats an absent record as offline.
func (c *SessionCoordinator) load(ctx context.Context, id string) (*models.UserRecord, error) {
	record, err := c.store.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Offline(id), nil
	}
	if err != nil {
		c.metrics.StoreErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	return record, nil
}

func (c *SessionCoordinator) put(ctx context.Context, record *models.UserRecord) error {
	if err := c.store.Put(ctx, record); err != nil {
		c.metrics.StoreErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("failed to save user %s: %w", record.ID, err)
	}
	return nil
}

func (c *SessionCoordinator) notify(ctx context.Context, typ notify.EventType, userID, partnerID string, at time.Time) {
	err := c.notifier.Notify(ctx, notify.Event{Type: typ, UserID: userID, PartnerID: partnerID, At: at})
	if err != nil {
		c.logger.Warn("failed to publish presence event",
			zap.String("type", string(typ)),
			zap.String("user", userID),
			zap.Error(err))
	}
}
