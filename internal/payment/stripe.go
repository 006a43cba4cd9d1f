// ABOUTME: Stripe Checkout implementation of the payment gateway
// ABOUTME: Creates hosted checkout sessions with inline price data and reads back their payment status

package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// StripeGateway talks to Stripe Checkout. Amounts are integer cents.
type StripeGateway struct {
	client   *session.Client
	currency string
	logger   *slog.Logger
}

// StripeOption configures a StripeGateway.
type StripeOption func(*StripeGateway)

// WithBackend overrides the Stripe API backend (for tests or proxies).
func WithBackend(b stripe.Backend) StripeOption {
	return func(g *StripeGateway) {
		g.client.B = b
	}
}

// WithLogger sets the gateway logger.
func WithLogger(logger *slog.Logger) StripeOption {
	return func(g *StripeGateway) {
		g.logger = logger
	}
}

// NewStripeGateway creates a gateway using the given secret key. currency
// is used when a request does not name one.
func NewStripeGateway(secretKey, currency string, opts ...StripeOption) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	g := &StripeGateway{
		client: &session.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: secretKey,
		},
		currency: currency,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "stripe")
	return g, nil
}

// CreateCheckout opens a Checkout session in payment mode. The order ID is
// carried as the client reference and in metadata.
func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, item := range req.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(item.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}
	params.AddMetadata("order_id", req.OrderID)
	params.Context = ctx

	s, err := g.client.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating stripe checkout session: %w", err)
	}

	g.logger.Info("checkout session created", "session_id", s.ID, "order_id", req.OrderID, "amount_cents", s.AmountTotal)
	return toCheckoutSession(s), nil
}

// GetCheckout fetches a Checkout session. Unknown IDs return ErrSessionNotFound.
func (g *StripeGateway) GetCheckout(ctx context.Context, id string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.client.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("fetching stripe checkout session: %w", err)
	}
	return toCheckoutSession(s), nil
}

func toCheckoutSession(s *stripe.CheckoutSession) *CheckoutSession {
	orderID := s.ClientReferenceID
	if orderID == "" {
		orderID = s.Metadata["order_id"]
	}
	return &CheckoutSession{
		ID:      s.ID,
		URL:     s.URL,
		OrderID: orderID,
		Paid: s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			s.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired,
		AmountTotalCents: s.AmountTotal,
	}
}
