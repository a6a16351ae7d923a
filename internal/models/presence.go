package models

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusOffline Status = "offline"
	StatusOnline  Status = "online"
	StatusMatched Status = "matched"
	StatusRinging Status = "ringing"
)

// Paired reports whether a record in this status must carry a partner.
func (s Status) Paired() bool {
	return s == StatusMatched || s == StatusRinging
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOffline, StatusOnline, StatusMatched, StatusRinging:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", l.Lat)
	}
	if l.Lon < -180 || l.Lon > 180 {
		return fmt.Errorf("longitude %v out of range", l.Lon)
	}
	return nil
}

// UserRecord is the single presence document kept per user id.
type UserRecord struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Location  *Location `json:"location,omitempty"`
	PartnerID string    `json:"partner_id,omitempty"`
	LastSeen  time.Time `json:"last_seen"`
}

// Offline returns the record an absent user is treated as.
func Offline(id string) *UserRecord {
	return &UserRecord{ID: id, Status: StatusOffline}
}

func (r *UserRecord) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(r.LastSeen) > threshold
}

func (r *UserRecord) Clone() *UserRecord {
	c := *r
	if r.Location != nil {
		loc := *r.Location
		c.Location = &loc
	}
	return &c
}
