// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides tenant/bot/user/audit persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tenants (
			id           TEXT PRIMARY KEY,
			display_name TEXT NOT NULL UNIQUE,
			kind         TEXT NOT NULL,
			status       TEXT NOT NULL,
			created_at   DATETIME NOT NULL,
			updated_at   DATETIME NOT NULL,

			CHECK (kind IN ('managed', 'selfserve')),
			CHECK (status IN ('active', 'suspended'))
		);

		CREATE TABLE IF NOT EXISTS bots (
			id              TEXT PRIMARY KEY,
			tenant_id       TEXT NOT NULL,
			name            TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			welcome_message TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			created_at      DATETIME NOT NULL,
			updated_at      DATETIME NOT NULL,

			FOREIGN KEY (tenant_id) REFERENCES tenants(id),
			CHECK (status IN ('enabled', 'disabled'))
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_bots_tenant_name
			ON bots(tenant_id, name);

		CREATE INDEX IF NOT EXISTS idx_bots_tenant ON bots(tenant_id);

		CREATE TABLE IF NOT EXISTS console_users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL,
			tenant_id     TEXT,
			created_at    DATETIME NOT NULL,

			CHECK (role IN ('admin', 'user', 'support'))
		);

		CREATE TABLE IF NOT EXISTS audit_log (
			id          TEXT PRIMARY KEY,
			actor_id    TEXT NOT NULL,
			action      TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			detail_json TEXT,
			created_at  DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite exposes no typed error for this.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateTenant inserts a new tenant
func (s *SQLiteStore) CreateTenant(ctx context.Context, tenant *Tenant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, display_name, kind, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tenant.ID, tenant.DisplayName, tenant.Kind, tenant.Status,
		tenant.CreatedAt, tenant.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateTenant
	}
	if err != nil {
		return fmt.Errorf("inserting tenant: %w", err)
	}
	return nil
}

// GetTenant retrieves a tenant by ID
func (s *SQLiteStore) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	var t Tenant
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, kind, status, created_at, updated_at
		 FROM tenants WHERE id = ?`, id).
		Scan(&t.ID, &t.DisplayName, &t.Kind, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying tenant: %w", err)
	}
	return &t, nil
}

// ListTenants returns all tenants ordered by display name
func (s *SQLiteStore) ListTenants(ctx context.Context) ([]*Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, kind, status, created_at, updated_at
		 FROM tenants ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("querying tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.DisplayName, &t.Kind, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}

// UpdateTenant updates an existing tenant's mutable fields
func (s *SQLiteStore) UpdateTenant(ctx context.Context, tenant *Tenant) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tenants SET display_name = ?, kind = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		tenant.DisplayName, tenant.Kind, tenant.Status, time.Now().UTC(), tenant.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateTenant
	}
	if err != nil {
		return fmt.Errorf("updating tenant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBot inserts a new bot
func (s *SQLiteStore) CreateBot(ctx context.Context, bot *Bot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bots (id, tenant_id, name, description, welcome_message, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bot.ID, bot.TenantID, bot.Name, bot.Description, bot.WelcomeMessage,
		bot.Status, bot.CreatedAt, bot.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateBot
	}
	if err != nil {
		return fmt.Errorf("inserting bot: %w", err)
	}
	return nil
}

// GetBot retrieves a bot by ID
func (s *SQLiteStore) GetBot(ctx context.Context, id string) (*Bot, error) {
	var b Bot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, description, welcome_message, status, created_at, updated_at
		 FROM bots WHERE id = ?`, id).
		Scan(&b.ID, &b.TenantID, &b.Name, &b.Description, &b.WelcomeMessage,
			&b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying bot: %w", err)
	}
	return &b, nil
}

// GetBotByName retrieves a bot by its name within a tenant
func (s *SQLiteStore) GetBotByName(ctx context.Context, tenantID, name string) (*Bot, error) {
	var b Bot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, description, welcome_message, status, created_at, updated_at
		 FROM bots WHERE tenant_id = ? AND name = ?`, tenantID, name).
		Scan(&b.ID, &b.TenantID, &b.Name, &b.Description, &b.WelcomeMessage,
			&b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying bot by name: %w", err)
	}
	return &b, nil
}

// ListBots returns a tenant's bots ordered by name. An empty tenantID
// returns all bots across tenants.
func (s *SQLiteStore) ListBots(ctx context.Context, tenantID string) ([]*Bot, error) {
	query := `SELECT id, tenant_id, name, description, welcome_message, status, created_at, updated_at
		 FROM bots`
	args := []any{}
	if tenantID != "" {
		query += ` WHERE tenant_id = ?`
		args = append(args, tenantID)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bots: %w", err)
	}
	defer rows.Close()

	var bots []*Bot
	for rows.Next() {
		var b Bot
		if err := rows.Scan(&b.ID, &b.TenantID, &b.Name, &b.Description, &b.WelcomeMessage,
			&b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning bot: %w", err)
		}
		bots = append(bots, &b)
	}
	return bots, rows.Err()
}

// UpdateBot updates an existing bot's mutable fields
func (s *SQLiteStore) UpdateBot(ctx context.Context, bot *Bot) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bots SET name = ?, description = ?, welcome_message = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		bot.Name, bot.Description, bot.WelcomeMessage, bot.Status, time.Now().UTC(), bot.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateBot
	}
	if err != nil {
		return fmt.Errorf("updating bot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBot removes a bot
func (s *SQLiteStore) DeleteBot(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting bot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateConsoleUser inserts a new console user
func (s *SQLiteStore) CreateConsoleUser(ctx context.Context, user *ConsoleUser) error {
	tenantID := sql.NullString{String: user.TenantID, Valid: user.TenantID != ""}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO console_users (id, email, password_hash, role, tenant_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.Role, tenantID, user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("inserting console user: %w", err)
	}
	return nil
}

// GetConsoleUser retrieves a console user by ID
func (s *SQLiteStore) GetConsoleUser(ctx context.Context, id string) (*ConsoleUser, error) {
	return s.scanConsoleUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, tenant_id, created_at
		 FROM console_users WHERE id = ?`, id))
}

// GetConsoleUserByEmail retrieves a console user by email
func (s *SQLiteStore) GetConsoleUserByEmail(ctx context.Context, email string) (*ConsoleUser, error) {
	return s.scanConsoleUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, tenant_id, created_at
		 FROM console_users WHERE email = ?`, email))
}

func (s *SQLiteStore) scanConsoleUser(row *sql.Row) (*ConsoleUser, error) {
	var u ConsoleUser
	var tenantID sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &tenantID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying console user: %w", err)
	}
	u.TenantID = tenantID.String
	return &u, nil
}

// AppendAudit records an administrative action
func (s *SQLiteStore) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	var detail sql.NullString
	if entry.Detail != nil {
		raw, err := json.Marshal(entry.Detail)
		if err != nil {
			return fmt.Errorf("encoding audit detail: %w", err)
		}
		detail = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, actor_id, action, target_type, target_id, detail_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ActorID, entry.Action, entry.TargetType, entry.TargetID,
		detail, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the most recent audit entries, newest first
func (s *SQLiteStore) ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, actor_id, action, target_type, target_id, detail_json, created_at
		 FROM audit_log ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID,
			&detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if detail.Valid {
			if err := json.Unmarshal([]byte(detail.String), &e.Detail); err != nil {
				return nil, fmt.Errorf("decoding audit detail: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
