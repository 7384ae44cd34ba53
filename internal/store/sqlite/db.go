package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"marketplace_go/internal/domain"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// NewRepositories wires the SQLite implementation of every repository.
func NewRepositories(db *sql.DB) *domain.Repositories {
	return &domain.Repositories{
		Users:         NewUserRepo(db),
		Services:      NewServiceRepo(db),
		Conversations: NewConversationRepo(db),
		Messages:      NewMessageRepo(db),
		Deletions:     NewDeletionRepo(db),
		Monitoring:    NewMonitoringRepo(db),
	}
}

// Migrate runs idempotent DDL migrations mirroring the PostgreSQL schema.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			email VARCHAR(100) UNIQUE,
			hashed_password VARCHAR(255) NOT NULL,
			role VARCHAR(10) NOT NULL DEFAULT 'user',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS services (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			title VARCHAR(200) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category VARCHAR(100) NOT NULL DEFAULT '',
			price REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		// No FK on service_id: threads outlive deleted listings.
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY,
			service_id INTEGER NOT NULL,
			client_id INTEGER NOT NULL REFERENCES users(id),
			provider_id INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (service_id, client_id, provider_id)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			conversation_id INTEGER NOT NULL REFERENCES conversations(id),
			sender_id INTEGER NOT NULL REFERENCES users(id),
			body TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS user_delete_limits (
			user_id INTEGER PRIMARY KEY REFERENCES users(id),
			daily_delete_count INTEGER NOT NULL DEFAULT 0,
			last_delete_date VARCHAR(10)
		);`,
		`CREATE TABLE IF NOT EXISTS deleted_services (
			id INTEGER PRIMARY KEY,
			service_id INTEGER NOT NULL,
			service_title TEXT NOT NULL DEFAULT '',
			service_owner_id INTEGER NOT NULL,
			deleted_by INTEGER NOT NULL,
			deleted_by_role VARCHAR(10) NOT NULL,
			reason TEXT NOT NULL,
			deleted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS user_delete_monitoring (
			user_id INTEGER PRIMARY KEY,
			username VARCHAR(50) NOT NULL,
			email VARCHAR(100),
			delete_count_last_7_days INTEGER NOT NULL DEFAULT 0,
			is_flagged BOOLEAN NOT NULL DEFAULT 0,
			flagged_reason TEXT NOT NULL DEFAULT '',
			flagged_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			reviewed BOOLEAN NOT NULL DEFAULT 0,
			reviewed_at DATETIME,
			review_notes TEXT,
			admin_action VARCHAR(50)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_services_user ON services(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_client ON conversations(client_id);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_provider ON conversations(provider_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_deleted_services_owner ON deleted_services(service_owner_id, deleted_at);`,
		`CREATE INDEX IF NOT EXISTS idx_monitoring_flagged ON user_delete_monitoring(is_flagged, reviewed);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
