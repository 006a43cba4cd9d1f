// Package server wires the storefront together and runs it.
//
// # Routes
//
//	GET  /health        liveness, always 200
//	GET  /health/ready  200 when the database answers a ping, else 503
//	     /api/...       storefront JSON API (shop package)
//	     /admin/...     back office behind the admin gate (webadmin package)
//
// The storefront API is wrapped with rs/cors when cors.allowed_origins is
// set. Without origins no CORS headers are sent.
//
// # Listeners
//
// The server listens on server.http_addr, or joins a tailnet with tsnet when
// tailscale.enabled is set: port 80 inside the tailnet, or port 443 through
// Funnel when tailscale.funnel is set.
//
// # Shutdown
//
// Run blocks until its context is canceled, then shuts the HTTP server down
// with a 5 second deadline and closes the tailnet node and store.
package server
