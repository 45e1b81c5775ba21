// Package server assembles the console HTTP server: the chi router with the
// admin API mounted, request logging, and the listener (plain TCP or a
// Tailscale tsnet node). Shutdown is graceful with a fresh 5 second context.
package server
