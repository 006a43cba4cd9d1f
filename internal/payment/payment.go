// ABOUTME: Payment gateway abstraction for hosted checkout sessions
// ABOUTME: Defines the Gateway interface, request and session types, and the no-op gateway

package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SessionIDPlaceholder is replaced with the checkout session ID in success URLs.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

var (
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrInvalidRequest  = errors.New("invalid checkout request")
)

// LineItem is one product line charged at checkout.
type LineItem struct {
	Name            string
	UnitAmountCents int64
	Quantity        int
}

// CheckoutRequest describes a payment to collect for an order.
type CheckoutRequest struct {
	OrderID       string
	CustomerEmail string
	Currency      string
	Items         []LineItem
	SuccessURL    string
	CancelURL     string
}

// Validate checks the request before it is sent to a provider.
func (r CheckoutRequest) Validate() error {
	if r.OrderID == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidRequest)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidRequest)
	}
	for _, item := range r.Items {
		if item.Quantity <= 0 || item.UnitAmountCents < 0 {
			return fmt.Errorf("%w: item %q has invalid amount or quantity", ErrInvalidRequest, item.Name)
		}
	}
	return nil
}

// TotalCents sums the request's line items.
func (r CheckoutRequest) TotalCents() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.UnitAmountCents * int64(item.Quantity)
	}
	return total
}

// CheckoutSession is a provider-hosted payment page and its state.
type CheckoutSession struct {
	ID               string
	URL              string // where to send the customer
	OrderID          string
	Paid             bool
	AmountTotalCents int64
}

// Gateway creates and inspects hosted checkout sessions.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckout(ctx context.Context, id string) (*CheckoutSession, error)
}

// NoopGateway settles every checkout immediately without contacting a
// provider. The customer is sent straight to the success URL.
type NoopGateway struct {
	mu       sync.Mutex
	sessions map[string]CheckoutSession
}

// NewNoopGateway creates a gateway that marks sessions paid on creation.
func NewNoopGateway() *NoopGateway {
	return &NoopGateway{sessions: make(map[string]CheckoutSession)}
}

func (g *NoopGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := "noop_" + uuid.NewString()
	sess := CheckoutSession{
		ID:               id,
		URL:              strings.ReplaceAll(req.SuccessURL, SessionIDPlaceholder, id),
		OrderID:          req.OrderID,
		Paid:             true,
		AmountTotalCents: req.TotalCents(),
	}

	g.mu.Lock()
	g.sessions[id] = sess
	g.mu.Unlock()

	return &sess, nil
}

func (g *NoopGateway) GetCheckout(ctx context.Context, id string) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, ok := g.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}
