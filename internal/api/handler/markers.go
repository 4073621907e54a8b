package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/apierr"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/middleware"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/request"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/response"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/markers"
)

// MarkerHandler handles marker and hub status endpoints
type MarkerHandler struct {
	controller *markers.Controller
}

// NewMarkerHandler creates a new marker handler
func NewMarkerHandler(controller *markers.Controller) *MarkerHandler {
	return &MarkerHandler{controller: controller}
}

// List handles GET /api/v1/markers
func (h *MarkerHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.controller.List(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	if list == nil {
		list = []*model.Marker{}
	}
	response.JSON(w, http.StatusOK, list)
}

// Add handles POST /api/v1/markers
func (h *MarkerHandler) Add(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.AddMarkerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("id is required"))
		return
	}

	marker := &model.Marker{
		ID:        req.ID,
		Type:      model.MarkerType(req.Type),
		Shape:     model.MarkerShape(req.Shape),
		X:         req.X,
		Y:         req.Y,
		Color:     req.Color,
		CreatedBy: req.CreatedBy,
		Notes:     req.Notes,
	}
	if err := h.controller.Add(r.Context(), marker, identity); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.OK)
}

// Remove handles DELETE /api/v1/markers/{id}
func (h *MarkerHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.controller.Remove(r.Context(), id); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.OK)
}

// Clear handles DELETE /api/v1/admin/markers
func (h *MarkerHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Clear(r.Context()); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.OK)
}

// HubStatus handles GET /api/v1/hub/status
func (h *MarkerHandler) HubStatus(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, h.controller.Status())
}
