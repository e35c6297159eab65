package handlers

import (
	"errors"
	"net/http"

	"github.com/racktic/bookmarket/internal/purchase"
	"github.com/racktic/bookmarket/pkg/models"
)

// UpdatePurchase raises or overwrites the negotiation terms for an
// (item, seller, buyer) triple.
func (h *Handler) UpdatePurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID   string  `json:"item_id"`
		SellerID string  `json:"seller_id"`
		BuyerID  string  `json:"buyer_id"`
		RaiserID string  `json:"raiser_id"`
		Price    float64 `json:"price"`
		Time     string  `json:"time"`
		Place    string  `json:"place"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.purchases.Raise(req.ItemID, req.SellerID, req.BuyerID, req.RaiserID, req.Price, req.Time, req.Place)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonMessage(w, http.StatusOK, "Purchase updated successfully")
}

// LoadPurchase polls the negotiation on behalf of the checker. The body
// is always an array with one snapshot, mirroring the original API; a
// read the checker already consumed answers 404 but still carries the
// snapshot so the client can render the final state.
func (h *Handler) LoadPurchase(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	snap, err := h.purchases.Load(q.Get("item_id"), q.Get("seller_id"), q.Get("buyer_id"), q.Get("checker_id"))
	switch {
	case err == nil:
		jsonResponse(w, http.StatusOK, []*models.Snapshot{snap})
	case errors.Is(err, purchase.ErrNoNewData):
		jsonResponse(w, http.StatusNotFound, []*models.Snapshot{snap})
	default:
		serviceError(w, err)
	}
}

// ConfirmPurchase records the seller's decision.
func (h *Handler) ConfirmPurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID      string `json:"item_id"`
		SellerID    string `json:"seller_id"`
		BuyerID     string `json:"buyer_id"`
		ResponderID string `json:"responder_id"`
		Confirm     bool   `json:"confirm"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	results, err := h.purchases.Confirm(req.ItemID, req.SellerID, req.BuyerID, req.ResponderID, req.Confirm)
	if err != nil {
		serviceError(w, err)
		return
	}
	if results == models.ResultAccepted {
		jsonMessage(w, http.StatusOK, "Purchase confirmed successfully and item has been marked as sold")
		return
	}
	jsonMessage(w, http.StatusOK, "Purchase declined")
}
