package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// Get command
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}

	command := os.Args[1]

	// Connect to database
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS notifications CASCADE`,
		`DROP TABLE IF EXISTS audit_log CASCADE`,
		`DROP TABLE IF EXISTS voting_results CASCADE`,
		`DROP TABLE IF EXISTS votes CASCADE`,
		`DROP TABLE IF EXISTS candidates CASCADE`,
		`DROP TABLE IF EXISTS voting_settings CASCADE`,
		`DROP TABLE IF EXISTS voting_sessions CASCADE`,
		`DROP TABLE IF EXISTS users CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			full_name VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'voter',
			email_confirmed BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS voting_sessions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_by UUID NOT NULL REFERENCES users(id),
			start_at TIMESTAMPTZ NOT NULL,
			end_at TIMESTAMPTZ NOT NULL,
			is_published BOOLEAN NOT NULL DEFAULT false,
			visibility VARCHAR(20) NOT NULL DEFAULT 'private',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT voting_sessions_schedule CHECK (end_at > start_at)
		)`,

		`CREATE TABLE IF NOT EXISTS voting_settings (
			session_id UUID PRIMARY KEY REFERENCES voting_sessions(id) ON DELETE CASCADE,
			anonymous BOOLEAN NOT NULL DEFAULT false,
			multi_select BOOLEAN NOT NULL DEFAULT false,
			max_choices INTEGER NOT NULL DEFAULT 1,
			require_confirmed_email BOOLEAN NOT NULL DEFAULT false,
			allow_vote_change_until_close BOOLEAN NOT NULL DEFAULT false
		)`,

		`CREATE TABLE IF NOT EXISTS candidates (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			session_id UUID NOT NULL REFERENCES voting_sessions(id) ON DELETE CASCADE,
			candidate_type VARCHAR(20) NOT NULL DEFAULT 'option',
			display_name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			position SERIAL
		)`,

		// Candidate rows are referenced with RESTRICT so a candidate that
		// received votes cannot be silently removed.
		`CREATE TABLE IF NOT EXISTS votes (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			session_id UUID NOT NULL REFERENCES voting_sessions(id) ON DELETE RESTRICT,
			candidate_id UUID NOT NULL REFERENCES candidates(id) ON DELETE RESTRICT,
			voter_id UUID REFERENCES users(id),
			cast_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			weight NUMERIC NOT NULL DEFAULT 1 CHECK (weight > 0),
			is_valid BOOLEAN NOT NULL DEFAULT true
		)`,

		`CREATE TABLE IF NOT EXISTS voting_results (
			session_id UUID PRIMARY KEY REFERENCES voting_sessions(id) ON DELETE CASCADE,
			generated_at TIMESTAMPTZ NOT NULL,
			total_votes INTEGER NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			signature TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			actor_id UUID,
			action VARCHAR(50) NOT NULL,
			entity_type VARCHAR(50) NOT NULL,
			entity_id UUID NOT NULL,
			metadata JSONB,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type VARCHAR(50) NOT NULL,
			title VARCHAR(255) NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			is_read BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// One active row per voter, session and candidate. The per-voter
		// advisory lock in the vote store serializes supersede-then-insert;
		// this index is the storage-level backstop.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_one_active
			ON votes(session_id, voter_id, candidate_id)
			WHERE is_valid AND voter_id IS NOT NULL`,

		`CREATE INDEX IF NOT EXISTS idx_votes_session_valid ON votes(session_id) WHERE is_valid`,
		`CREATE INDEX IF NOT EXISTS idx_votes_candidate ON votes(candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_session ON candidates(session_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_published ON voting_sessions(is_published, end_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_creator ON voting_sessions(created_by, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", getTableName(query))
	}

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	// Admin plus two confirmed voters. Password hashes are placeholders;
	// authentication issues tokens out of band.
	userQuery := `
		INSERT INTO users (email, password_hash, full_name, role, email_confirmed) VALUES
		('admin@ballotbox.local', 'x', 'Site Admin', 'admin', true),
		('alice@ballotbox.local', 'x', 'Alice Voter', 'voter', true),
		('bob@ballotbox.local', 'x', 'Bob Voter', 'voter', false)
		ON CONFLICT (email) DO NOTHING
	`
	if _, err := conn.Exec(ctx, userQuery); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	fmt.Println("  Seeded 3 users")

	var adminID string
	if err := conn.QueryRow(ctx, `SELECT id FROM users WHERE email = 'admin@ballotbox.local'`).Scan(&adminID); err != nil {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	now := time.Now().UTC()
	var sessionID string
	sessionQuery := `
		INSERT INTO voting_sessions (title, description, created_by, start_at, end_at, is_published, visibility)
		VALUES ('Demo election', 'Seeded demo session', $1, $2, $3, true, 'public')
		RETURNING id
	`
	if err := conn.QueryRow(ctx, sessionQuery, adminID, now.Add(-time.Hour), now.Add(24*time.Hour)).Scan(&sessionID); err != nil {
		return fmt.Errorf("failed to seed session: %w", err)
	}

	settingsQuery := `
		INSERT INTO voting_settings (session_id, anonymous, multi_select, max_choices, require_confirmed_email, allow_vote_change_until_close)
		VALUES ($1, false, false, 1, false, true)
	`
	if _, err := conn.Exec(ctx, settingsQuery, sessionID); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}

	candidateQuery := `
		INSERT INTO candidates (session_id, candidate_type, display_name, description) VALUES
		($1, 'person', 'Candidate A', 'First seeded candidate'),
		($1, 'person', 'Candidate B', 'Second seeded candidate'),
		($1, 'option', 'Abstain', 'None of the above')
	`
	if _, err := conn.Exec(ctx, candidateQuery, sessionID); err != nil {
		return fmt.Errorf("failed to seed candidates: %w", err)
	}

	fmt.Println("  Seeded demo session with 3 candidates")
	return nil
}

func getTableName(query string) string {
	if len(query) > 50 {
		return query[:50] + "..."
	}
	return query
}
