// Package store provides persistent storage for the storefront using SQLite.
//
// # Architecture
//
// The store package uses an interface-driven architecture with small
// specialized interfaces:
//
//   - UserStore: Customers and administrators, first-user promotion
//   - CatalogStore: Categories, products and stock
//   - OrderStore: Orders and their status lifecycle
//   - StatsStore: Dashboard aggregates
//
// Store combines them with Ping and Close. SQLiteStore implements all
// interfaces in a single struct; MockStore is the in-memory equivalent.
//
// # Users
//
// Emails are unique ignoring case (a NOCASE unique index). RegisterUser
// decides admin status inside the INSERT statement, so the first user to
// register becomes admin exactly once even under concurrent sign-ups.
// CreateInitialAdmin inserts an admin only while no admin exists.
//
// # Orders
//
// Order line items are snapshots (name and price at checkout) persisted as
// a JSON document, so deleting or repricing a product never rewrites history.
// Status moves through pending, paid, delivered or cancelled.
//
// # SQLite Configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//	PRAGMA busy_timeout=5000;
//
// # Connection ownership
//
// Pool owns the single database handle. It opens the store on first use
// and closes it at shutdown; there is no package-level database state.
//
// # Testing
//
// Use NewMockStore() for unit tests. MockStore.SetError injects a failure
// into every call. Use NewSQLiteStore on a t.TempDir() path for
// integration tests with real SQLite.
package store
