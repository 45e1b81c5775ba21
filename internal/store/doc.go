// Package store provides persistence for the admin console: tenants, bots,
// console users, and the audit log. The Store interface is what the rest of
// the console programs against; SQLiteStore is the production implementation
// and MockStore is the in-memory implementation used by tests.
package store
