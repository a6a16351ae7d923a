// Package notify pushes presence transitions to subscribers. Polling stays the
// source of truth; a pushed event only lets a client poll sooner.
package notify

import (
	"context"
	"time"
)

type EventType string

const (
	EventMatched     EventType = "matched"
	EventRinging     EventType = "ringing"
	EventExited      EventType = "exited"
	EventPartnerLeft EventType = "partner_left"
	EventReaped      EventType = "reaped"
)

type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"userId"`
	PartnerID string    `json:"partnerId,omitempty"`
	At        time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Notify(context.Context, Event) error { return nil }
