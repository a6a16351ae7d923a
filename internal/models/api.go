package models

import "time"

// Response status values shared by the presence endpoints.
const (
	ResultSuccess        = "success"
	ResultError          = "error"
	ResultMatched        = "matched"
	ResultNoPartnerFound = "no_partner_found"
	ResultAvailable      = "available"
	ResultUnavailable    = "unavailable"
)

type UpdateLocationRequest struct {
	UserID string   `json:"userId"`
	Status string   `json:"status"`
	Lat    *float64 `json:"lat,omitempty"`
	Lon    *float64 `json:"lon,omitempty"`
}

type FindPartnerRequest struct {
	UserID string   `json:"userId"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
}

type FindPartnerResponse struct {
	Status    string `json:"status"`
	PartnerID string `json:"partnerId,omitempty"`
}

type RingPartnerRequest struct {
	PartnerID string `json:"partnerId"`
}

type CheckStatusRequest struct {
	UserID string `json:"userId"`
}

type CheckStatusResponse struct {
	Status          Status     `json:"status"`
	Location        *Location  `json:"location,omitempty"`
	PartnerID       string     `json:"partnerId,omitempty"`
	PartnerLocation *Location  `json:"partnerLocation,omitempty"`
	LastSeen        *time.Time `json:"lastSeen,omitempty"`
	PartnerLeft     bool       `json:"partnerLeft,omitempty"`
}

type PartnerLocationRequest struct {
	PartnerID string `json:"partnerId"`
}

type PartnerLocationResponse struct {
	Status string   `json:"status"`
	Lat    *float64 `json:"lat,omitempty"`
	Lon    *float64 `json:"lon,omitempty"`
}

type ExitMatchRequest struct {
	UserID    string `json:"userId"`
	PartnerID string `json:"partnerId"`
}

type NewSessionResponse struct {
	UserID string `json:"userId"`
}

// StatusResponse is the generic acknowledgement and error body.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
