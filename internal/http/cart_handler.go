package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/contracts"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/session"
)

const (
	msgSelectSize     = "please select a size before adding to cart"
	msgUnknownSize    = "size is not offered"
	msgCartNotFound   = "cart not found"
	msgInvalidJSON    = "invalid json"
	msgMissingProduct = "missing productId"
)

type Sessions interface {
	Open() (string, *cart.Store)
	Cart(id string) (*cart.Store, error)
	End(id string)
}

type CartEventsPublisher interface {
	PublishCartUpdated(ctx context.Context, sessionID string, action contracts.Action, s cart.Summary, meta events.PublishMetadata) error
}

type CartHandler struct {
	sessions  Sessions
	publisher CartEventsPublisher
	sizes     map[string]struct{}
	logger    *zap.Logger
}

func NewCartHandler(sessions Sessions, publisher CartEventsPublisher, sizes []string, logger *zap.Logger) *CartHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[string]struct{}, len(sizes))
	for _, s := range sizes {
		set[s] = struct{}{}
	}
	return &CartHandler{sessions: sessions, publisher: publisher, sizes: set, logger: logger}
}

type cartView struct {
	SessionID string          `json:"sessionId"`
	Items     []cart.LineItem `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

type addItemRequest struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Size      string          `json:"size"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

type sizeRequest struct {
	Size string `json:"size"`
}

func (h *CartHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "storefront-cart"})
}

func (h *CartHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	id, _ := h.sessions.Open()
	w.Header().Set("Location", "/api/cart/"+id)
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": id})
}

func (h *CartHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.End(pathParam(r, "sessionId"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID, c, ok := h.loadCart(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCartView(sessionID, c.Summary()))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sessionID, summary, ok := h.addItem(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCartView(sessionID, summary))
}

// BuyNow adds the item and sends the shopper straight to their cart.
func (h *CartHandler) BuyNow(w http.ResponseWriter, r *http.Request) {
	sessionID, _, ok := h.addItem(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, "/api/cart/"+sessionID, http.StatusSeeOther)
}

func (h *CartHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	productID := pathParam(r, "productId")
	h.mutate(w, r, contracts.ActionProductRemoved, func(c *cart.Store) {
		c.RemoveProduct(productID)
	})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	key := itemKey(r)
	h.mutate(w, r, contracts.ActionItemRemoved, func(c *cart.Store) {
		c.Remove(key)
	})
}

func (h *CartHandler) SetProductQuantity(w http.ResponseWriter, r *http.Request) {
	qty, ok := decodeQuantity(w, r)
	if !ok {
		return
	}
	productID := pathParam(r, "productId")
	h.mutate(w, r, contracts.ActionQuantityChanged, func(c *cart.Store) {
		c.SetProductQuantity(productID, qty)
	})
}

func (h *CartHandler) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	qty, ok := decodeQuantity(w, r)
	if !ok {
		return
	}
	key := itemKey(r)
	h.mutate(w, r, contracts.ActionQuantityChanged, func(c *cart.Store) {
		c.SetQuantity(key, qty)
	})
}

func (h *CartHandler) UpdateSize(w http.ResponseWriter, r *http.Request) {
	size, ok := h.decodeSize(w, r)
	if !ok {
		return
	}
	productID := pathParam(r, "productId")
	h.mutate(w, r, contracts.ActionSizeChanged, func(c *cart.Store) {
		c.UpdateSize(productID, size)
	})
}

func (h *CartHandler) ChangeSize(w http.ResponseWriter, r *http.Request) {
	size, ok := h.decodeSize(w, r)
	if !ok {
		return
	}
	key := itemKey(r)
	h.mutate(w, r, contracts.ActionSizeChanged, func(c *cart.Store) {
		c.ChangeSize(key, size)
	})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, contracts.ActionCleared, func(c *cart.Store) {
		c.Clear()
	})
}

// addItem validates the catalog tuple and size selection, then adds one unit.
// The store is never touched when validation fails.
func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) (string, cart.Summary, bool) {
	var body addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return "", cart.Summary{}, false
	}
	switch {
	case body.ProductID == "":
		writeError(w, http.StatusBadRequest, msgMissingProduct)
		return "", cart.Summary{}, false
	case body.Size == "":
		writeError(w, http.StatusBadRequest, msgSelectSize)
		return "", cart.Summary{}, false
	case !h.offered(body.Size):
		writeError(w, http.StatusBadRequest, msgUnknownSize)
		return "", cart.Summary{}, false
	case body.Price.IsNegative():
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return "", cart.Summary{}, false
	}

	sessionID, c, ok := h.loadCart(w, r)
	if !ok {
		return "", cart.Summary{}, false
	}

	h.logger.Debug("adding item",
		zap.String("session_id", sessionID),
		zap.String("user_id", middleware.GetUserID(r.Context())),
		zap.String("product_id", body.ProductID),
		zap.String("size", body.Size),
	)
	summary := h.apply(r, sessionID, c, contracts.ActionItemAdded, func(c *cart.Store) {
		c.Add(cart.Product{
			ID:       body.ProductID,
			Name:     body.Name,
			Price:    body.Price,
			ImageURL: body.Image,
		}, body.Size)
	})
	return sessionID, summary, true
}

func (h *CartHandler) mutate(w http.ResponseWriter, r *http.Request, action contracts.Action, fn func(c *cart.Store)) {
	sessionID, c, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	h.logger.Debug("updating cart",
		zap.String("session_id", sessionID),
		zap.String("action", string(action)),
		zap.String("product_id", pathParam(r, "productId")),
	)
	summary := h.apply(r, sessionID, c, action, fn)
	writeJSON(w, http.StatusOK, newCartView(sessionID, summary))
}

// apply changes the cart and publishes the result before the next change to
// the same cart can start, so event sequences follow the order of the changes.
func (h *CartHandler) apply(r *http.Request, sessionID string, c *cart.Store, action contracts.Action, fn func(c *cart.Store)) cart.Summary {
	return c.Apply(fn, func(s cart.Summary) {
		h.publish(r, sessionID, action, s)
	})
}

func (h *CartHandler) loadCart(w http.ResponseWriter, r *http.Request) (string, *cart.Store, bool) {
	sessionID := pathParam(r, "sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing sessionId")
		return "", nil, false
	}

	c, err := h.sessions.Cart(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgCartNotFound)
			return "", nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return "", nil, false
	}
	return sessionID, c, true
}

// publish is best-effort: the in-memory cart is already updated and stays
// the source of truth, so a broker failure is logged and not returned.
func (h *CartHandler) publish(r *http.Request, sessionID string, action contracts.Action, s cart.Summary) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	meta := events.PublishMetadata{
		CorrelationID: middleware.GetCorrelationID(r.Context()),
		CausationID:   middleware.GetCausationID(r.Context()),
	}
	if err := h.publisher.PublishCartUpdated(ctx, sessionID, action, s, meta); err != nil {
		h.logger.Warn("publish cart updated failed",
			zap.String("session_id", sessionID),
			zap.String("action", string(action)),
			zap.String("correlation_id", meta.CorrelationID),
			zap.Error(err),
		)
	}
}

func (h *CartHandler) decodeSize(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body sizeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return "", false
	}
	if body.Size == "" {
		writeError(w, http.StatusBadRequest, "missing size")
		return "", false
	}
	if !h.offered(body.Size) {
		writeError(w, http.StatusBadRequest, msgUnknownSize)
		return "", false
	}
	return body.Size, true
}

func (h *CartHandler) offered(size string) bool {
	_, ok := h.sizes[size]
	return ok
}

func decodeQuantity(w http.ResponseWriter, r *http.Request) (int, bool) {
	var body quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return 0, false
	}
	if body.Quantity == nil {
		writeError(w, http.StatusBadRequest, "missing quantity")
		return 0, false
	}
	return *body.Quantity, true
}

func itemKey(r *http.Request) cart.Key {
	return cart.Key{
		ProductID: pathParam(r, "productId"),
		Size:      pathParam(r, "size"),
	}
}

// pathParam returns the decoded URL parameter. chi hands back the escaped
// segment when the request path carries escapes such as %2F.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func newCartView(sessionID string, s cart.Summary) cartView {
	return cartView{
		SessionID: sessionID,
		Items:     s.Items,
		Total:     s.Total,
		ItemCount: s.ItemCount,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
