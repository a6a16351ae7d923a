package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/pairup/internal/models"
)

const presenceSchema = `CREATE TABLE IF NOT EXISTS user_presence (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	lat        DOUBLE PRECISION,
	lon        DOUBLE PRECISION,
	partner_id TEXT,
	last_seen  TIMESTAMPTZ NOT NULL
)`

type PostgresPresenceStore struct {
	pool *pgxpool.Pool
}

func NewPostgresPresenceStore(pool *pgxpool.Pool) *PostgresPresenceStore {
	return &PostgresPresenceStore{pool: pool}
}

// EnsureSchema creates the user_presence table if it does not exist yet.
func (r *PostgresPresenceStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, presenceSchema); err != nil {
		return fmt.Errorf("failed to create presence schema: %w", err)
	}
	return nil
}

func (r *PostgresPresenceStore) Get(ctx context.Context, id string) (*models.UserRecord, error) {
	query := `SELECT id, status, lat, lon, partner_id, last_seen
	          FROM user_presence
	          WHERE id = $1`

	record, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}
	return record, nil
}

// Put overwrites the whole row. Last write wins.
func (r *PostgresPresenceStore) Put(ctx context.Context, record *models.UserRecord) error {
	query := `INSERT INTO user_presence (id, status, lat, lon, partner_id, last_seen)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (id) DO UPDATE
	          SET status = EXCLUDED.status,
	              lat = EXCLUDED.lat,
	              lon = EXCLUDED.lon,
	              partner_id = EXCLUDED.partner_id,
	              last_seen = EXCLUDED.last_seen`

	var lat, lon *float64
	if record.Location != nil {
		lat, lon = &record.Location.Lat, &record.Location.Lon
	}
	var partnerID *string
	if record.PartnerID != "" {
		partnerID = &record.PartnerID
	}

	_, err := r.pool.Exec(ctx, query,
		record.ID,
		string(record.Status),
		lat,
		lon,
		partnerID,
		record.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("failed to put presence: %w", err)
	}
	return nil
}

func (r *PostgresPresenceStore) Scan(ctx context.Context, match func(*models.UserRecord) bool) ([]*models.UserRecord, error) {
	query := `SELECT id, status, lat, lon, partner_id, last_seen
	          FROM user_presence
	          ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query presence: %w", err)
	}
	defer rows.Close()

	var records []*models.UserRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan presence: %w", err)
		}
		if match(record) {
			records = append(records, record)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating presence: %w", err)
	}

	return records, nil
}

func scanRecord(row pgx.Row) (*models.UserRecord, error) {
	var (
		record    models.UserRecord
		status    string
		lat, lon  *float64
		partnerID *string
		lastSeen  time.Time
	)

	if err := row.Scan(&record.ID, &status, &lat, &lon, &partnerID, &lastSeen); err != nil {
		return nil, err
	}

	record.Status = models.Status(status)
	if lat != nil && lon != nil {
		record.Location = &models.Location{Lat: *lat, Lon: *lon}
	}
	if partnerID != nil {
		record.PartnerID = *partnerID
	}
	record.LastSeen = lastSeen
	return &record, nil
}
