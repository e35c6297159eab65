package handlers

import (
	"net/http"

	"github.com/racktic/bookmarket/internal/listings"
	"github.com/racktic/bookmarket/pkg/models"
)

type needView struct {
	Title           string          `json:"title"`
	Username        string          `json:"username"`
	PriceLowerBound float64         `json:"price_lower_bound"`
	PriceUpperBound float64         `json:"price_upper_bound"`
	Meta            models.MetaInfo `json:"meta_info"`
	ID              string          `json:"id"`
}

func needViewOf(n *models.Need) needView {
	return needView{
		Title:           n.Title,
		Username:        n.Username,
		PriceLowerBound: n.PriceLowerBound,
		PriceUpperBound: n.PriceUpperBound,
		Meta:            n.Meta,
		ID:              n.ID,
	}
}

type needRequest struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	listings.NeedInput
}

func (h *Handler) RaiseNeed(w http.ResponseWriter, r *http.Request) {
	var req needRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user := h.userByEmail(w, req.Username)
	if user == nil {
		return
	}
	need, err := h.listings.RaiseNeed(r.Context(), user, req.NeedInput)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{
		"message": "Need raised successfully",
		"id":      need.ID,
	})
}

func (h *Handler) ModifyNeed(w http.ResponseWriter, r *http.Request) {
	var req needRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user := h.userByEmail(w, req.Username)
	if user == nil {
		return
	}
	if _, err := h.listings.ModifyNeed(r.Context(), user.ID, req.ID, req.NeedInput); err != nil {
		serviceError(w, err)
		return
	}
	jsonMessage(w, http.StatusOK, "Need modified successfully")
}

func (h *Handler) UserNeeds(w http.ResponseWriter, r *http.Request) {
	user := h.userByEmail(w, r.URL.Query().Get("username"))
	if user == nil {
		return
	}
	needs, err := h.listings.UserNeeds(user.ID)
	if err != nil {
		serviceError(w, err)
		return
	}
	views := make([]needView, len(needs))
	for i := range needs {
		views[i] = needViewOf(&needs[i])
	}
	jsonResponse(w, http.StatusOK, views)
}

func (h *Handler) GetNeed(w http.ResponseWriter, r *http.Request) {
	need, err := h.listings.GetNeed(r.URL.Query().Get("id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, needViewOf(need))
}

func (h *Handler) DeleteNeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	user := h.userByEmail(w, req.Username)
	if user == nil {
		return
	}
	if err := h.listings.DeleteNeed(user.ID, req.ID); err != nil {
		serviceError(w, err)
		return
	}
	jsonMessage(w, http.StatusOK, "Need deleted successfully")
}
