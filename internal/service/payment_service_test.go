package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCard() CardDetails {
	return CardDetails{
		CardNumber:     "4111 1111 1111 1111",
		ExpiryDate:     "12/28",
		CVV:            "123",
		CardholderName: "Tan Ah Kow",
	}
}

func TestValidateCardDetails(t *testing.T) {
	ps := NewPaymentService(NewCartStore(), nil)

	tests := []struct {
		name    string
		mutate  func(*CardDetails)
		wantErr bool
	}{
		{"valid", func(*CardDetails) {}, false},
		{"missing holder", func(c *CardDetails) { c.CardholderName = "" }, true},
		{"short number", func(c *CardDetails) { c.CardNumber = "4111 1111 111" }, true},
		{"long number", func(c *CardDetails) { c.CardNumber = "41111111111111111111" }, true},
		{"thirteen digits", func(c *CardDetails) { c.CardNumber = "4111111111111" }, false},
		{"bad expiry", func(c *CardDetails) { c.ExpiryDate = "1228" }, true},
		{"short cvv", func(c *CardDetails) { c.CVV = "12" }, true},
		{"four digit cvv", func(c *CardDetails) { c.CVV = "1234" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := validCard()
			tt.mutate(&card)
			err := ps.ValidateCardDetails(card)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCardDetails)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormatCardNumber(t *testing.T) {
	assert.Equal(t, "4111 1111 1111 1111", FormatCardNumber("4111111111111111"))
	assert.Equal(t, "4111 1111 11", FormatCardNumber("4111 11111 1"))
	assert.Equal(t, "1234 5678 9012 345", FormatCardNumber("123456789012345"))
	assert.Equal(t, "1234 5678 9012 3456", FormatCardNumber("1234 5678 9012 3456"))
	assert.Equal(t, "", FormatCardNumber(""))
}

func TestFormatExpiryDate(t *testing.T) {
	assert.Equal(t, "1", FormatExpiryDate("1"))
	assert.Equal(t, "12/", FormatExpiryDate("12"))
	assert.Equal(t, "12/2", FormatExpiryDate("122"))
	assert.Equal(t, "12/28", FormatExpiryDate("12/28"))
	assert.Equal(t, "12/28", FormatExpiryDate("122899"))
}

func newCheckoutFixture(t *testing.T) (*PaymentService, *CartStore, *orderStoreFixture) {
	t.Helper()
	f := newOrderStoreFixture(t)
	cart := NewCartStore()
	return NewPaymentService(cart, f.store), cart, f
}

func TestCheckoutPlacesOrderAndClearsCart(t *testing.T) {
	ps, cart, f := newCheckoutFixture(t)
	f.signIn()
	cart.AddToCart(chickenRice)
	cart.AddToCart(chickenRice)

	order, err := ps.Checkout(context.Background(), CheckoutRequest{PaymentMethod: PaymentMethodCash})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.True(t, chickenRice.Price.Mul(decimal.NewFromInt(2)).Equal(order.TotalAmount))
	assert.Empty(t, cart.Items())
	assert.Len(t, f.store.Orders(), 1)
}

func TestCheckoutWithCard(t *testing.T) {
	ps, cart, f := newCheckoutFixture(t)
	f.signIn()
	cart.AddToCart(chickenRice)
	card := validCard()

	_, err := ps.Checkout(context.Background(), CheckoutRequest{PaymentMethod: PaymentMethodCard, Card: &card})
	require.NoError(t, err)
	assert.Empty(t, cart.Items())
}

func TestCheckoutRejectsInvalidInput(t *testing.T) {
	ps, cart, f := newCheckoutFixture(t)
	f.signIn()
	ctx := context.Background()

	_, err := ps.Checkout(ctx, CheckoutRequest{PaymentMethod: PaymentMethodCash})
	assert.ErrorIs(t, err, ErrEmptyCart)

	cart.AddToCart(chickenRice)

	_, err = ps.Checkout(ctx, CheckoutRequest{PaymentMethod: "bitcoin"})
	assert.ErrorIs(t, err, ErrUnsupportedPaymentMethod)

	_, err = ps.Checkout(ctx, CheckoutRequest{PaymentMethod: PaymentMethodCard})
	assert.ErrorIs(t, err, ErrInvalidCardDetails)

	bad := validCard()
	bad.CVV = ""
	_, err = ps.Checkout(ctx, CheckoutRequest{PaymentMethod: PaymentMethodCard, Card: &bad})
	assert.ErrorIs(t, err, ErrInvalidCardDetails)

	assert.Len(t, cart.Items(), 1)
	assert.Empty(t, f.store.Orders())
}

func TestCheckoutKeepsCartWhenOrderFails(t *testing.T) {
	ps, cart, f := newCheckoutFixture(t)
	cart.AddToCart(charKwayTeow)

	_, err := ps.Checkout(context.Background(), CheckoutRequest{PaymentMethod: PaymentMethodQR})

	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Len(t, cart.Items(), 1)
	assert.Empty(t, f.store.Orders())
}
