package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"hawker-order-service/internal/models"
	"hawker-order-service/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Checkout errors
var (
	ErrEmptyCart                = errors.New("cart is empty")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidCardDetails       = errors.New("invalid card details")
)

// PaymentMethod is how the diner pays at checkout
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodQR   PaymentMethod = "qr"
)

// Valid reports whether m is a supported payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodQR:
		return true
	}
	return false
}

// CardDetails is the card form; CardNumber may contain spaces
type CardDetails struct {
	CardNumber     string `json:"card_number" validate:"required,min=13,max=19"`
	ExpiryDate     string `json:"expiry_date" validate:"required,expiry"`
	CVV            string `json:"cvv" validate:"required,min=3,max=4"`
	CardholderName string `json:"cardholder_name" validate:"required"`
}

// CheckoutRequest is the checkout form
type CheckoutRequest struct {
	PaymentMethod PaymentMethod `json:"payment_method" binding:"required"`
	Card          *CardDetails  `json:"card,omitempty"`
}

// OrderCreator places orders from cart contents
type OrderCreator interface {
	CreateOrder(ctx context.Context, cartItems []models.CartItem, totalAmount decimal.Decimal) (*models.Order, error)
}

var (
	expiryPattern = regexp.MustCompile(`^\d{2}/\d{2}$`)
	nonDigit      = regexp.MustCompile(`\D`)
)

func newCardValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return expiryPattern.MatchString(fl.Field().String())
	})
	return v
}

// PaymentService turns the cart into an order (payment itself is simulated)
type PaymentService struct {
	cart     *CartStore
	orders   OrderCreator
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(cart *CartStore, orders OrderCreator) *PaymentService {
	return &PaymentService{
		cart:     cart,
		orders:   orders,
		validate: newCardValidator(),
		logger:   util.GetLogger(),
	}
}

// ValidateCardDetails checks the card form; spaces in the card number are ignored
func (ps *PaymentService) ValidateCardDetails(card CardDetails) error {
	card.CardNumber = strings.Join(strings.Fields(card.CardNumber), "")
	if err := ps.validate.Struct(card); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCardDetails, err)
	}
	return nil
}

// Checkout validates the payment form and places an order for the cart.
// The cart is cleared only when the order was created.
func (ps *PaymentService) Checkout(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Checkout")
	defer span.End()

	util.CheckoutAttemptsTotal.Inc()

	if !req.PaymentMethod.Valid() {
		util.CheckoutFailedTotal.WithLabelValues("unsupported_method").Inc()
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, req.PaymentMethod)
	}
	if req.PaymentMethod == PaymentMethodCard {
		if req.Card == nil {
			util.CheckoutFailedTotal.WithLabelValues("invalid_card").Inc()
			return nil, fmt.Errorf("%w: card details missing", ErrInvalidCardDetails)
		}
		if err := ps.ValidateCardDetails(*req.Card); err != nil {
			util.CheckoutFailedTotal.WithLabelValues("invalid_card").Inc()
			return nil, err
		}
	}

	items := ps.cart.Items()
	if len(items) == 0 {
		util.CheckoutFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}
	total := ps.cart.Total()

	ps.logger.Info("Processing checkout",
		zap.String("method", string(req.PaymentMethod)),
		zap.Int("lines", len(items)),
		zap.String("total", total.StringFixed(2)))

	order, err := ps.orders.CreateOrder(ctx, items, total)
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues("order_failed").Inc()
		ps.logger.Error("Checkout failed", zap.Error(err))
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	ps.cart.ClearCart()
	util.CheckoutSuccessTotal.WithLabelValues(string(req.PaymentMethod)).Inc()
	ps.logger.Info("Checkout succeeded", zap.String("order_id", order.ID))
	return order, nil
}

// FormatCardNumber groups the digits of a card number in blocks of four
func FormatCardNumber(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)

	var b strings.Builder
	for i, r := range []rune(cleaned) {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatExpiryDate keeps the digits of input and renders them as MM/YY
func FormatExpiryDate(input string) string {
	digits := nonDigit.ReplaceAllString(input, "")
	if len(digits) < 2 {
		return digits
	}
	if len(digits) > 4 {
		digits = digits[:4]
	}
	return digits[:2] + "/" + digits[2:]
}
