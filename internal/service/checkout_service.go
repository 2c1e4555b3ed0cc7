package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"tienda-api/internal/config"
	"tienda-api/internal/domain"
	"tienda-api/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
)

const customerPlaceholder = "No especificado"

// CheckoutResult is the outcome of a purchase: the computed total and the
// pre-filled WhatsApp deep link the client redirects to.
type CheckoutResult struct {
	Total       decimal.Decimal `json:"total"`
	WhatsAppURL string          `json:"whatsappUrl"`
}

// CheckoutService turns a cart into a WhatsApp checkout handoff
type CheckoutService interface {
	Checkout(ctx context.Context, cart []domain.CartItem, customer domain.Customer) (*CheckoutResult, error)
}

type checkoutService struct {
	products repository.ProductRepository
	whatsapp config.WhatsAppConfig
	logger   *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	products repository.ProductRepository,
	whatsapp config.WhatsAppConfig,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		products: products,
		whatsapp: whatsapp,
		logger:   logger,
	}
}

// Checkout prices the cart against the current catalog and builds the
// pre-filled chat message. Items whose product no longer exists are dropped
// from the total and the itemization without failing the purchase.
func (s *checkoutService) Checkout(ctx context.Context, cart []domain.CartItem, customer domain.Customer) (*CheckoutResult, error) {
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	total := decimal.Zero
	lines := []string{}

	for _, item := range cart {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				s.logger.Debug("checkout: cart item no longer exists",
					zap.Int64("product_id", item.ProductID),
				)
				continue
			}
			return nil, fmt.Errorf("failed to price cart item: %w", err)
		}

		itemTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(itemTotal)
		lines = append(lines, fmt.Sprintf("%s x%d - %s %s",
			product.Name, item.Quantity, s.whatsapp.Currency, itemTotal.StringFixed(2)))
	}

	message := s.buildMessage(customer, lines, total)
	deepLink := fmt.Sprintf("https://wa.me/%s?text=%s", s.whatsapp.Number, url.QueryEscape(message))

	return &CheckoutResult{
		Total:       total,
		WhatsAppURL: deepLink,
	}, nil
}

func (s *checkoutService) buildMessage(customer domain.Customer, lines []string, total decimal.Decimal) string {
	var b strings.Builder

	b.WriteString("🛒 *Nueva Compra*\n\n")
	b.WriteString(fmt.Sprintf("👤 *Cliente:* %s\n", orPlaceholder(customer.Name)))
	b.WriteString(fmt.Sprintf("📱 *Teléfono:* %s\n", orPlaceholder(customer.Phone)))
	b.WriteString(fmt.Sprintf("📧 *Email:* %s\n\n", orPlaceholder(customer.Email)))
	b.WriteString("🛍️ *Productos:*\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("💰 *Total: %s %s*", s.whatsapp.Currency, total.StringFixed(2)))

	return b.String()
}

func orPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return customerPlaceholder
	}
	return v
}
