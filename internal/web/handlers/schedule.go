package handlers

import (
	"errors"
	"net/http"

	"github.com/racktic/bookmarket/internal/schedule"
	"github.com/racktic/bookmarket/pkg/models"
)

// UploadCoursesDict replaces the caller's stored class schedule with
// the posted list of entries.
func (h *Handler) UploadCoursesDict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string              `json:"username"`
		Courses  []models.ClassEntry `json:"courses"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	user := h.userByEmail(w, req.Username)
	if user == nil {
		return
	}
	if err := schedule.ValidateEntries(req.Courses); err != nil {
		jsonMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.db.UpdateUserSchedule(user.ID, req.Courses); err != nil {
		serviceError(w, err)
		return
	}
	jsonMessage(w, http.StatusCreated, "Class schedule uploaded successfully")
}

// Courses returns the caller's stored schedule, an empty list if none.
func (h *Handler) Courses(w http.ResponseWriter, r *http.Request) {
	user := h.userByEmail(w, r.URL.Query().Get("username"))
	if user == nil {
		return
	}
	entries := user.ClassSchedule
	if entries == nil {
		entries = []models.ClassEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// RecommendLocation intersects the seller's and buyer's schedules and
// suggests meeting spots. A missing schedule on either side is 404.
func (h *Handler) RecommendLocation(w http.ResponseWriter, r *http.Request) {
	sellerEmail := r.URL.Query().Get("seller_email")
	buyerEmail := r.URL.Query().Get("buyer_email")

	seller := h.userByEmail(w, sellerEmail)
	if seller == nil {
		return
	}
	buyer := h.userByEmail(w, buyerEmail)
	if buyer == nil {
		return
	}

	spots, err := schedule.Recommend(seller.ClassSchedule, buyer.ClassSchedule)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			jsonMessage(w, http.StatusNotFound, "Class schedule not found")
			return
		}
		jsonMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, spots)
}
