package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/studio-lm/booooks/internal/catalog"
	"github.com/studio-lm/booooks/internal/checkout"
	"github.com/studio-lm/booooks/internal/page"
	"github.com/studio-lm/booooks/internal/shipping"
	"github.com/studio-lm/booooks/internal/solar"
)

const sessionCookie = "booooks_sid"

// CheckoutForm is the static half of the payment-redirect submission. The
// exported cart fields are appended on every checkout.
type CheckoutForm struct {
	Action   string
	Business string
	Currency string
}

type Handler struct {
	sessions *page.Manager
	catalog  catalog.Reader
	options  []shipping.Option
	form     CheckoutForm
	log      *zap.Logger
}

func NewHandler(sessions *page.Manager, cat catalog.Reader, options []shipping.Option, form CheckoutForm, log *zap.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		catalog:  cat,
		options:  options,
		form:     form,
		log:      log,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/shipping/options", h.ListShippingOptions)
		r.Get("/cart", h.GetCart)
		r.Put("/cart/{product_id}", h.SetQuantity)
		r.Post("/cart/{product_id}/increment", h.Increment)
		r.Post("/cart/{product_id}/decrement", h.Decrement)
		r.Put("/shipping", h.SelectShipping)
		r.Delete("/shipping", h.DeselectShipping)
		r.Post("/checkout", h.Checkout)
		r.Get("/meta", h.PageMeta)
	})

	return r
}

type SetQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type SelectShippingRequestDTO struct {
	Fee json.Number `json:"fee"`
}

type ProductDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url"`
}

type ShippingOptionDTO struct {
	Label string `json:"label"`
	Fee   string `json:"fee"`
}

type SubmissionDTO struct {
	Action string           `json:"action"`
	Method string           `json:"method"`
	Fields []checkout.Field `json:"fields"`
}

type MetaDTO struct {
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
	Direction string  `json:"direction"`
	Dark      bool    `json:"dark"`
	ShadowX   float64 `json:"shadow_x"`
	ShadowY   float64 `json:"shadow_y"`
	LocalTime string  `json:"local_time"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		h.log.Error("listing products failed", zap.String("request_id", getRequestID(r.Context())), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "internal_error", "could not load catalog")
		return
	}

	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, ProductDTO{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price.StringFixed(2),
			ImageURL:    p.ImageURL,
		})
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *Handler) ListShippingOptions(w http.ResponseWriter, r *http.Request) {
	out := make([]ShippingOptionDTO, 0, len(h.options))
	for _, opt := range h.options {
		out = append(out, ShippingOptionDTO{Label: opt.Label, Fee: opt.Fee.StringFixed(2)})
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c := h.session(w, r)
	h.respondJSON(w, http.StatusOK, c.Current(r.Context()))
}

func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		h.respondError(w, http.StatusBadRequest, "invalid_product_id", "product id is required")
		return
	}

	// Malformed quantities read as zero; the page never rejects input.
	var req SetQuantityRequestDTO
	_ = json.NewDecoder(r.Body).Decode(&req)

	c := h.session(w, r)
	h.respondJSON(w, http.StatusOK, c.SetQuantity(r.Context(), productID, req.Quantity))
}

func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		h.respondError(w, http.StatusBadRequest, "invalid_product_id", "product id is required")
		return
	}

	c := h.session(w, r)
	h.respondJSON(w, http.StatusOK, c.Increment(r.Context(), productID))
}

func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		h.respondError(w, http.StatusBadRequest, "invalid_product_id", "product id is required")
		return
	}

	c := h.session(w, r)
	h.respondJSON(w, http.StatusOK, c.Decrement(r.Context(), productID))
}

func (h *Handler) SelectShipping(w http.ResponseWriter, r *http.Request) {
	var req SelectShippingRequestDTO
	_ = json.NewDecoder(r.Body).Decode(&req)

	c := h.session(w, r)

	// A fee that does not parse matches no option and empties the selection,
	// the same as picking an option that no longer exists. It must not fall
	// back to 0: a zero fee is a real option.
	fee, err := strconv.ParseFloat(req.Fee.String(), 64)
	if err != nil {
		h.respondJSON(w, http.StatusOK, c.DeselectShipping(r.Context()))
		return
	}

	h.respondJSON(w, http.StatusOK, c.SelectShipping(r.Context(), decimal.NewFromFloat(fee)))
}

func (h *Handler) DeselectShipping(w http.ResponseWriter, r *http.Request) {
	c := h.session(w, r)
	h.respondJSON(w, http.StatusOK, c.DeselectShipping(r.Context()))
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	c := h.session(w, r)

	submission, err := c.ConfirmOrder(r.Context())
	if errors.Is(err, page.ErrShippingRequired) {
		h.respondError(w, http.StatusConflict, "shipping_required", "select a shipping method first")
		return
	}
	if err != nil {
		h.log.Error("checkout failed", zap.String("request_id", getRequestID(r.Context())), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "internal_error", "checkout failed")
		return
	}

	fields := make([]checkout.Field, 0, len(submission.Fields)+4)
	fields = append(fields,
		checkout.Field{Name: "cmd", Value: "_cart"},
		checkout.Field{Name: "upload", Value: "1"},
		checkout.Field{Name: "business", Value: h.form.Business},
		checkout.Field{Name: "currency_code", Value: h.form.Currency},
	)
	fields = append(fields, submission.Fields...)

	h.respondJSON(w, http.StatusOK, SubmissionDTO{
		Action: h.form.Action,
		Method: http.MethodPost,
		Fields: fields,
	})
}

func (h *Handler) PageMeta(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	lat, lon := solar.GuessCoords(now)
	pos := solar.At(now, lat, lon)
	x, y := solar.Shadow(pos.Azimuth, 20)

	h.respondJSON(w, http.StatusOK, MetaDTO{
		Azimuth:   pos.Azimuth,
		Elevation: pos.Elevation,
		Direction: solar.Direction(pos.Azimuth),
		Dark:      pos.Dark(),
		ShadowX:   x,
		ShadowY:   y,
		LocalTime: now.Format("15:04"),
	})
}

// session resolves the visitor's controller from the session cookie, minting
// a new session when the cookie is missing or not a uuid.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *page.Controller {
	if ck, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(ck.Value); err == nil {
			return h.sessions.Session(r.Context(), ck.Value)
		}
	}

	id := h.sessions.NewSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return h.sessions.Session(r.Context(), id)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
