// Package shop serves the customer-facing storefront API under /api.
//
// Accounts go through auth.Service: sign-up and sign-in set the session
// cookie, sign-out clears it. The catalog is public and product
// descriptions are markdown rendered to HTML with goldmark.
//
// The cart lives entirely in the storefront_cart cookie, signed (and
// optionally encrypted) with gorilla/securecookie. Lines are priced from
// the current catalog on every read, so a cart never carries prices.
//
// Checkout requires a signed-in customer. It snapshots the priced cart into
// a pending order and opens a payment.Gateway session. The confirm endpoint
// asks the gateway whether the session was paid before marking the order
// paid and taking stock.
package shop
