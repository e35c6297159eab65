// Package handlers binds the marketplace services to their JSON HTTP
// surface. Request and response field names follow the original REST
// API (price_lower_bound, meta_info, ...), so existing clients keep
// working unchanged.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/racktic/bookmarket/config"
	"github.com/racktic/bookmarket/internal/database"
	"github.com/racktic/bookmarket/internal/listings"
	"github.com/racktic/bookmarket/internal/purchase"
	"github.com/racktic/bookmarket/internal/recommend"
	"github.com/racktic/bookmarket/pkg/identity"
	"github.com/racktic/bookmarket/pkg/models"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	db        *database.DB
	cfg       *config.Config
	listings  *listings.Service
	purchases *purchase.Service
	ranker    *recommend.Ranker
}

func New(db *database.DB, cfg *config.Config, ls *listings.Service, ps *purchase.Service, ranker *recommend.Ranker) *Handler {
	return &Handler{db: db, cfg: cfg, listings: ls, purchases: ps, ranker: ranker}
}

// Routes registers every endpoint on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/users", h.CreateUser)

	r.Post("/upload-items", h.UploadItems)
	r.Get("/search-items", h.SearchItems)
	r.Post("/modify-items", h.ModifyItems)
	r.Post("/delete-items", h.DeleteItems)

	r.Post("/raise-need", h.RaiseNeed)
	r.Post("/modify-need", h.ModifyNeed)
	r.Get("/user-needs", h.UserNeeds)
	r.Get("/get-need", h.GetNeed)
	r.Post("/delete-need", h.DeleteNeed)

	r.Post("/upload-courses-dict", h.UploadCoursesDict)
	r.Get("/courses", h.Courses)
	r.Get("/recommend-location", h.RecommendLocation)

	r.Post("/update-purchase", h.UpdatePurchase)
	r.Get("/load-purchase", h.LoadPurchase)
	r.Post("/confirm-purchase", h.ConfirmPurchase)

	r.Post("/chat/create-room", h.CreateChatRoom)
	r.Get("/chat/check-rooms", h.CheckChatRooms)
	r.Get("/chat/messages", h.ChatMessages)
}

// --- helpers ---

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func jsonMessage(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"message": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// userByEmail resolves the acting user from an email parameter. There
// are no sessions; callers identify themselves per request, and an
// unknown email is treated as not logged in.
func (h *Handler) userByEmail(w http.ResponseWriter, email string) *models.User {
	if email == "" {
		jsonMessage(w, http.StatusUnauthorized, "User is not logged in")
		return nil
	}
	user, err := h.db.GetUserByEmailHash(identity.EmailHash(email))
	if err != nil {
		log.Printf("handlers: lookup user %s: %v", email, err)
		jsonMessage(w, http.StatusInternalServerError, "Internal error")
		return nil
	}
	if user == nil {
		jsonMessage(w, http.StatusUnauthorized, "User is not logged in")
		return nil
	}
	return user
}

// serviceError maps sentinel errors onto the HTTP taxonomy: validation
// 400, not found 404, permission 403, conflict 409, state 404.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, listings.ErrItemNotFound),
		errors.Is(err, listings.ErrNeedNotFound),
		errors.Is(err, purchase.ErrItemNotFound),
		errors.Is(err, purchase.ErrPurchaseNotFound):
		jsonMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, listings.ErrNotOwner),
		errors.Is(err, purchase.ErrNotRaiser),
		errors.Is(err, purchase.ErrNotSeller),
		errors.Is(err, purchase.ErrNotParty):
		jsonMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, listings.ErrItemSold),
		errors.Is(err, purchase.ErrItemSold),
		errors.Is(err, purchase.ErrAlreadyDecided):
		jsonMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, purchase.ErrNothingToCheck):
		jsonMessage(w, http.StatusNotFound, "You do not need to check this purchase")
	case errors.Is(err, listings.ErrInvalidPrice),
		errors.Is(err, listings.ErrInvalidMeta),
		errors.Is(err, listings.ErrEmptyTitle),
		errors.Is(err, purchase.ErrInvalidPrice),
		errors.Is(err, purchase.ErrSameParty),
		errors.Is(err, purchase.ErrSellerMismatch):
		jsonMessage(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("handlers: internal error: %v", err)
		jsonMessage(w, http.StatusInternalServerError, "Internal error")
	}
}

// page is the DRF-style pagination envelope.
type page struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// paginate slices results according to the page/page_size query params
// and builds next/previous links off the request URL.
func (h *Handler) paginate(r *http.Request, total int, slice func(lo, hi int) interface{}) page {
	pageNum, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if pageNum < 1 {
		pageNum = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if size < 1 {
		size = h.cfg.Search.PageSize
	}
	if size > h.cfg.Search.MaxPageSize {
		size = h.cfg.Search.MaxPageSize
	}

	lo := (pageNum - 1) * size
	if lo > total {
		lo = total
	}
	hi := lo + size
	if hi > total {
		hi = total
	}

	p := page{Count: total, Results: slice(lo, hi)}
	if hi < total {
		p.Next = pageLink(r.URL, pageNum+1)
	}
	if pageNum > 1 {
		p.Previous = pageLink(r.URL, pageNum-1)
	}
	return p
}

func pageLink(u *url.URL, pageNum int) *string {
	link := *u
	q := link.Query()
	q.Set("page", strconv.Itoa(pageNum))
	link.RawQuery = q.Encode()
	s := link.String()
	return &s
}
