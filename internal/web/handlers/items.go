package handlers

import (
	"net/http"

	"github.com/racktic/bookmarket/internal/listings"
	"github.com/racktic/bookmarket/pkg/identity"
	"github.com/racktic/bookmarket/pkg/models"
)

// itemView is the wire shape of one item in search results.
type itemView struct {
	Title           string          `json:"title"`
	Picture         *string         `json:"picture"`
	Username        string          `json:"username"`
	PriceLowerBound float64         `json:"price_lower_bound"`
	PriceUpperBound float64         `json:"price_upper_bound"`
	Meta            models.MetaInfo `json:"meta_info"`
	ID              string          `json:"id"`
}

func viewOf(it *models.Item) itemView {
	v := itemView{
		Title:           it.Title,
		Username:        it.Username,
		PriceLowerBound: it.PriceLowerBound,
		PriceUpperBound: it.PriceUpperBound,
		Meta:            it.Meta,
		ID:              it.ID,
	}
	if it.Picture != "" {
		p := it.Picture
		v.Picture = &p
	}
	return v
}

func viewsOf(items []models.Item) []itemView {
	out := make([]itemView, len(items))
	for i := range items {
		out[i] = viewOf(&items[i])
	}
	return out
}

type itemRequest struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	listings.ItemInput
}

func (h *Handler) UploadItems(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user := h.userByEmail(w, req.Username)
	if user == nil {
		return
	}
	item, err := h.listings.UploadItem(r.Context(), user, req.ItemInput)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{
		"message": "Item uploaded successfully",
		"id":      item.ID,
	})
}

func (h *Handler) ModifyItems(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user := h.userByEmail(w, req.Username)
	if user == nil {
		return
	}
	if _, err := h.listings.ModifyItem(r.Context(), user.ID, req.ID, req.ItemInput); err != nil {
		serviceError(w, err)
		return
	}
	jsonMessage(w, http.StatusOK, "Item modified successfully")
}

func (h *Handler) DeleteItems(w http.ResponseWriter, r *http.Request) {
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
	if err := h.listings.DeleteItem(user.ID, req.ID); err != nil {
		serviceError(w, err)
		return
	}
	jsonMessage(w, http.StatusOK, "Item deleted successfully")
}

// SearchItems serves every read path over items: lookup by id, a user's
// own listings, the ranked homepage feed, and fuzzy per-field search.
// Results are wrapped in a count/next/previous/results envelope.
func (h *Handler) SearchItems(w http.ResponseWriter, r *http.Request) {
	contentType := r.URL.Query().Get("content_type")
	keyword := r.URL.Query().Get("search_keyword")

	var items []models.Item
	switch contentType {
	case "id":
		item, err := h.listings.GetItem(keyword)
		if err != nil {
			serviceError(w, err)
			return
		}
		items = []models.Item{*item}
	case "user_items":
		user := h.userByEmail(w, keyword)
		if user == nil {
			return
		}
		var err error
		items, err = h.listings.UserItems(user.ID)
		if err != nil {
			serviceError(w, err)
			return
		}
	case "homepage":
		var err error
		items, err = h.homepageItems(keyword)
		if err != nil {
			serviceError(w, err)
			return
		}
	case "title", "course", "teacher", "author", "username", "description":
		var excludeID string
		if email := r.URL.Query().Get("user"); email != "" {
			if user, err := h.db.GetUserByEmailHash(identity.EmailHash(email)); err == nil && user != nil {
				excludeID = user.ID
			}
		}
		var err error
		items, err = h.listings.SearchByField(contentType, keyword, excludeID)
		if err != nil {
			serviceError(w, err)
			return
		}
	default:
		jsonMessage(w, http.StatusBadRequest, "Invalid content_type")
		return
	}

	views := viewsOf(items)
	envelope := h.paginate(r, len(views), func(lo, hi int) interface{} { return views[lo:hi] })
	jsonResponse(w, http.StatusOK, envelope)
}

// homepageItems returns the unsold items ordered for the viewer. An
// empty email serves the anonymous feed in storage order.
func (h *Handler) homepageItems(email string) ([]models.Item, error) {
	items, err := h.db.ListOpenItems()
	if err != nil {
		return nil, err
	}
	if email == "" {
		return items, nil
	}
	user, err := h.db.GetUserByEmailHash(identity.EmailHash(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return items, nil
	}

	others := items[:0:0]
	for _, it := range items {
		if it.UserID != user.ID {
			others = append(others, it)
		}
	}
	needs, err := h.db.ListNeedsByUser(user.ID)
	if err != nil {
		return nil, err
	}
	return h.ranker.Rank(others, user.ClassSchedule, needs), nil
}
