package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"marketplace_go/internal/domain"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewRepositories wires the PostgreSQL implementation of every repository.
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

// Migrate runs idempotent DDL migrations for the marketplace schema.
//
// conversations.service_id and deleted_services.service_id intentionally
// carry no foreign key: threads and audit rows outlive the listing they
// reference once it is deleted.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Users
		`CREATE TABLE IF NOT EXISTS users (
			id               BIGSERIAL PRIMARY KEY,
			username         VARCHAR(50)  UNIQUE NOT NULL,
			email            VARCHAR(100) UNIQUE,
			hashed_password  VARCHAR(255) NOT NULL,
			role             VARCHAR(10)  NOT NULL DEFAULT 'user',
			is_active        BOOLEAN      NOT NULL DEFAULT TRUE,
			created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Freelancer listings
		`CREATE TABLE IF NOT EXISTS services (
			id          BIGSERIAL    PRIMARY KEY,
			user_id     BIGINT       NOT NULL REFERENCES users(id),
			title       VARCHAR(200) NOT NULL,
			description TEXT         NOT NULL DEFAULT '',
			category    VARCHAR(100) NOT NULL DEFAULT '',
			price       NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Conversations: one thread per (service, client, provider)
		`CREATE TABLE IF NOT EXISTS conversations (
			id          BIGSERIAL   PRIMARY KEY,
			service_id  BIGINT      NOT NULL,
			client_id   BIGINT      NOT NULL REFERENCES users(id),
			provider_id BIGINT      NOT NULL REFERENCES users(id),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (service_id, client_id, provider_id)
		)`,

		// Messages
		`CREATE TABLE IF NOT EXISTS messages (
			id              BIGSERIAL   PRIMARY KEY,
			conversation_id BIGINT      NOT NULL REFERENCES conversations(id),
			sender_id       BIGINT      NOT NULL REFERENCES users(id),
			body            TEXT        NOT NULL,
			is_read         BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Per-user daily deletion quota (UTC day, YYYY-MM-DD)
		`CREATE TABLE IF NOT EXISTS user_delete_limits (
			user_id            BIGINT      PRIMARY KEY REFERENCES users(id),
			daily_delete_count INT         NOT NULL DEFAULT 0,
			last_delete_date   VARCHAR(10)
		)`,

		// Immutable deletion audit trail
		`CREATE TABLE IF NOT EXISTS deleted_services (
			id               BIGSERIAL   PRIMARY KEY,
			service_id       BIGINT      NOT NULL,
			service_title    TEXT        NOT NULL DEFAULT '',
			service_owner_id BIGINT      NOT NULL,
			deleted_by       BIGINT      NOT NULL,
			deleted_by_role  VARCHAR(10) NOT NULL,
			reason           TEXT        NOT NULL,
			deleted_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Anomaly review queue
		`CREATE TABLE IF NOT EXISTS user_delete_monitoring (
			user_id                  BIGINT      PRIMARY KEY,
			username                 VARCHAR(50) NOT NULL,
			email                    VARCHAR(100),
			delete_count_last_7_days INT         NOT NULL DEFAULT 0,
			is_flagged               BOOLEAN     NOT NULL DEFAULT FALSE,
			flagged_reason           TEXT        NOT NULL DEFAULT '',
			flagged_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			reviewed                 BOOLEAN     NOT NULL DEFAULT FALSE,
			reviewed_at              TIMESTAMPTZ,
			review_notes             TEXT,
			admin_action             VARCHAR(50)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_services_user ON services(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_client ON conversations(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_provider ON conversations(provider_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_deleted_services_owner ON deleted_services(service_owner_id, deleted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_monitoring_flagged ON user_delete_monitoring(is_flagged, reviewed)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
