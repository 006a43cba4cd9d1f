// Package webadmin provides the storefront's back office as a JSON API
// under /admin.
//
// # Overview
//
// The back office covers:
//
//   - Dashboard: shop totals and daily paid sales for the last 30 days
//   - Users: list, create, edit and delete accounts
//   - Orders: inspect, deliver, cancel and delete orders
//   - Catalog: categories and products
//
// # Authentication
//
// Every route is wrapped by auth.Gate. Until an admin exists, everything
// except /admin/setup redirects there with 303 See Other. POST /admin/setup
// creates the first admin and signs them in; once an admin exists it
// answers 409. After setup /admin/login is open and every other path needs
// an admin session, redirecting to /admin/login otherwise.
//
// Login refuses valid credentials of a customer account with 403 and
// issues no session.
//
// # CSRF
//
// State-changing requests other than setup, login and logout must echo the
// storefront_admin_csrf cookie in the X-CSRF-Token header. Setup, login and
// GET /admin/login return the token in their response body.
//
// # Self-protection
//
// An admin cannot delete their own account or remove their own admin role.
package webadmin
