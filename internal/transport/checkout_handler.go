package transport

import (
	"errors"
	"net/http"

	"tienda-api/internal/domain"
	"tienda-api/internal/middleware"
	"tienda-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PurchaseRequest represents the checkout payload
type PurchaseRequest struct {
	Cart         []domain.CartItem `json:"cart"`
	CustomerData domain.Customer   `json:"customerData"`
}

// CheckoutHandler handles HTTP requests for purchases
type CheckoutHandler struct {
	checkout service.CheckoutService
	logger   *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkout service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		logger:   logger,
	}
}

// RegisterRoutes registers the purchase route
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/purchase", h.Purchase)
}

// Purchase prices the cart and returns the WhatsApp deep link
func (h *CheckoutHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	result, err := h.checkout.Checkout(r.Context(), req.Cart, req.CustomerData)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			middleware.RespondWithError(w, http.StatusBadRequest, "cart is empty")
			return
		}
		h.logger.Error("Checkout failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to process purchase")
		return
	}

	h.logger.Info("Purchase processed", zap.String("total", result.Total.StringFixed(2)))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"whatsappUrl": result.WhatsAppURL,
		"total":       result.Total,
		"message":     "Compra procesada. Serás redirigido a WhatsApp.",
	})
}

func (h *CheckoutHandler) decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		h.logger.Debug("Purchase validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
