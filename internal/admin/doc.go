// Package admin implements the console's service layer and HTTP API:
// tenant provisioning, bot management scoped to the effective tenant,
// TOML bot-pack seeding, login, and the public widget-config endpoint.
// Administrative mutations are audit-logged.
package admin
