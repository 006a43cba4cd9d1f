// Package payment collects payment for storefront orders through a hosted
// checkout page.
//
// Gateway has two implementations. StripeGateway creates Stripe Checkout
// sessions with inline price data; the order ID travels as the session's
// client reference. NoopGateway settles every checkout immediately and is
// used when payments.provider is "none".
//
// A checkout is confirmed by fetching the session again with GetCheckout
// and checking Paid, never by trusting the redirect alone.
package payment
