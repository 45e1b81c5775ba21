// Package config handles configuration loading for the botdesk console.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from BOTDESK_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/botdesk/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${BOTDESK_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	botapi:
//	  send_timeout: "30s"
//	  close_timeout: "5s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # API and websocket
//
// Database:
//
//	database:
//	  path: "/var/lib/botdesk/console.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${BOTDESK_JWT_SECRET}"   # Required
//	  token_ttl: "12h"
//
// Upstream bot backend:
//
//	botapi:
//	  base_url: "https://bots.example.com"
//	  socket_url: "wss://bots.example.com/socket"
//	  send_timeout: "30s"
//
// Widget tuning:
//
//	widget:
//	  dedup_window: "1s"
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "botdesk"
//	  auth_key: "${TS_AUTHKEY}"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
