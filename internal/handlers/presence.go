package handlers

import (
	"net/http"

	"github.com/prudhvinik1/pairup/internal/models"
	"github.com/prudhvinik1/pairup/internal/services"
	"go.uber.org/zap"
)

type PresenceHandler struct {
	coordinator *services.SessionCoordinator
	logger      *zap.Logger
}

func NewPresenceHandler(coordinator *services.SessionCoordinator, logger *zap.Logger) *PresenceHandler {
	return &PresenceHandler{coordinator: coordinator, logger: logger}
}

// UpdateLocation handles POST /update-location
func (h *PresenceHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateLocationRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}
	if req.UserID == "" || req.Status == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Missing required fields: userId, status")
		return
	}
	if !validIDs(w, h.logger, []string{"userId"}, req.UserID) {
		return
	}

	status, err := models.ParseStatus(req.Status)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	// Offline reports may omit the coordinates; anything else needs both
	var loc *models.Location
	switch {
	case req.Lat != nil && req.Lon != nil:
		loc = &models.Location{Lat: *req.Lat, Lon: *req.Lon}
	case status != models.StatusOffline:
		writeError(w, h.logger, http.StatusBadRequest, "Missing required fields: lat, lon")
		return
	}

	if err := h.coordinator.UpdateLocation(r.Context(), req.UserID, status, loc); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, models.StatusResponse{Status: models.ResultSuccess})
}

// FindPartner handles POST /find-partner
func (h *PresenceHandler) FindPartner(w http.ResponseWriter, r *http.Request) {
	var req models.FindPartnerRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}
	if req.UserID == "" || req.Lat == nil || req.Lon == nil {
		writeError(w, h.logger, http.StatusBadRequest, "Missing required fields: userId, lat, lon")
		return
	}
	if !validIDs(w, h.logger, []string{"userId"}, req.UserID) {
		return
	}

	res, err := h.coordinator.FindPartner(r.Context(), req.UserID, models.Location{Lat: *req.Lat, Lon: *req.Lon})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if !res.Matched {
		writeJSON(w, h.logger, http.StatusOK, models.FindPartnerResponse{Status: models.ResultNoPartnerFound})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, models.FindPartnerResponse{
		Status:    models.ResultMatched,
		PartnerID: res.PartnerID,
	})
}

// RingPartner handles POST /ring-partner
func (h *PresenceHandler) RingPartner(w http.ResponseWriter, r *http.Request) {
	var req models.RingPartnerRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}
	if req.PartnerID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Partner ID is required")
		return
	}
	if !validIDs(w, h.logger, []string{"partnerId"}, req.PartnerID) {
		return
	}

	rung, err := h.coordinator.RingPartner(r.Context(), req.PartnerID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if !rung {
		writeJSON(w, h.logger, http.StatusOK, models.StatusResponse{
			Status:  models.ResultUnavailable,
			Message: "Partner is not in a match",
		})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, models.StatusResponse{
		Status:  models.ResultSuccess,
		Message: "Ringing user " + req.PartnerID,
	})
}

// CheckStatus handles POST /check-status
func (h *PresenceHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	var req models.CheckStatusRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "User ID is required")
		return
	}
	if !validIDs(w, h.logger, []string{"userId"}, req.UserID) {
		return
	}

	view, err := h.coordinator.CheckStatus(r.Context(), req.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := models.CheckStatusResponse{
		Status:          view.Status,
		Location:        view.Location,
		PartnerID:       view.PartnerID,
		PartnerLocation: view.PartnerLocation,
		PartnerLeft:     view.PartnerLeft,
	}
	if !view.LastSeen.IsZero() {
		lastSeen := view.LastSeen
		resp.LastSeen = &lastSeen
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// GetPartnerLocation handles POST /get-partner-location
func (h *PresenceHandler) GetPartnerLocation(w http.ResponseWriter, r *http.Request) {
	var req models.PartnerLocationRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}
	if req.PartnerID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Partner ID is required")
		return
	}
	if !validIDs(w, h.logger, []string{"partnerId"}, req.PartnerID) {
		return
	}

	loc, err := h.coordinator.GetPartnerLocation(r.Context(), req.PartnerID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if loc == nil {
		writeJSON(w, h.logger, http.StatusOK, models.PartnerLocationResponse{Status: models.ResultUnavailable})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, models.PartnerLocationResponse{
		Status: models.ResultAvailable,
		Lat:    &loc.Lat,
		Lon:    &loc.Lon,
	})
}

// ExitMatch handles POST /exit-match
func (h *PresenceHandler) ExitMatch(w http.ResponseWriter, r *http.Request) {
	var req models.ExitMatchRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}
	if req.UserID == "" || req.PartnerID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Missing required fields: userId, partnerId")
		return
	}
	if !validIDs(w, h.logger, []string{"userId", "partnerId"}, req.UserID, req.PartnerID) {
		return
	}

	if err := h.coordinator.ExitMatch(r.Context(), req.UserID, req.PartnerID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, models.StatusResponse{Status: models.ResultSuccess})
}

// NewSession handles POST /session
func (h *PresenceHandler) NewSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusCreated, models.NewSessionResponse{UserID: h.coordinator.NewSession()})
}
