package repositories

import (
	"context"
	"errors"

	"github.com/prudhvinik1/pairup/internal/models"
)

var ErrNotFound = errors.New("not found")

// PresenceStore keeps one record per user id. Writes are full overwrites with
// last-write-wins semantics; no multi-key atomicity is offered.
type PresenceStore interface {
	// Get returns ErrNotFound when no record exists for id.
	Get(ctx context.Context, id string) (*models.UserRecord, error)
	Put(ctx context.Context, record *models.UserRecord) error
	// Scan visits every record. Cost is linear in the number of users.
	Scan(ctx context.Context, match func(*models.UserRecord) bool) ([]*models.UserRecord, error)
}

// All matches every record.
func All(*models.UserRecord) bool { return true }
