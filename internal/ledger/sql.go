// internal/ledger/sql.go
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/charityrun/runproof/internal/utils"
)

// sqlDialect captures the per-driver differences the shared store needs.
type sqlDialect struct {
	name            string
	placeholderFunc func(n int) string
	createSuffix    string
}

var (
	questionPlaceholder = func(int) string { return "?" }
	dollarPlaceholder   = func(n int) string { return fmt.Sprintf("$%d", n) }

	sqliteDialect = sqlDialect{
		name:            "sqlite3",
		placeholderFunc: questionPlaceholder,
	}
	postgresDialect = sqlDialect{
		name:            "postgres",
		placeholderFunc: dollarPlaceholder,
	}
	mysqlDialect = sqlDialect{
		name:            "mysql",
		placeholderFunc: questionPlaceholder,
		createSuffix:    " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
	}
)

// SQLStore implements Store on database/sql. Timestamps are stored as
// RFC 3339 strings so the schema is identical across drivers.
type SQLStore struct {
	db       *sql.DB
	dialect  sqlDialect
	regTable string
	subTable string
	logger   utils.Logger
}

func newSQLStore(db *sql.DB, dialect sqlDialect, regTable, subTable string, logger utils.Logger) (*SQLStore, error) {
	store := &SQLStore{
		db:       db,
		dialect:  dialect,
		regTable: regTable,
		subTable: subTable,
		logger:   logger,
	}
	if err := store.ensureTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLStore) ensureTables() error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			email VARCHAR(255) NOT NULL,
			PRIMARY KEY (email)
		)%s`, s.regTable, s.dialect.createSuffix),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			email VARCHAR(255) NOT NULL,
			activity_ref VARCHAR(512) NOT NULL,
			distance_km DOUBLE PRECISION NOT NULL,
			duration VARCHAR(16) NOT NULL,
			submitted_at VARCHAR(64) NOT NULL
		)%s`, s.subTable, s.dialect.createSuffix),
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create ledger table: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) placeholders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s.dialect.placeholderFunc(i + 1)
	}
	return out
}

// IsRegistered checks the roster table for the normalized email.
func (s *SQLStore) IsRegistered(ctx context.Context, email string) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE email = %s",
		s.regTable, s.dialect.placeholderFunc(1))

	var count int
	if err := s.db.QueryRowContext(ctx, query, utils.NormalizeEmail(email)).Scan(&count); err != nil {
		return false, fmt.Errorf("registration lookup failed: %w", err)
	}
	return count > 0, nil
}

// ListEntries reads the full submission log.
func (s *SQLStore) ListEntries(ctx context.Context) ([]Entry, error) {
	query := fmt.Sprintf(
		"SELECT email, activity_ref, distance_km, duration, submitted_at FROM %s", s.subTable)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("submission log query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var submittedAt string
		if err := rows.Scan(&entry.Email, &entry.ActivityRef, &entry.DistanceKm, &entry.Duration, &submittedAt); err != nil {
			return nil, fmt.Errorf("submission log scan failed: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, submittedAt); err == nil {
			entry.SubmittedAt = ts
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Append inserts one submission row.
func (s *SQLStore) Append(ctx context.Context, entry Entry) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (email, activity_ref, distance_km, duration, submitted_at) VALUES (%s)",
		s.subTable, strings.Join(s.placeholders(5), ", "))

	_, err := s.db.ExecContext(ctx, query,
		entry.Email,
		entry.ActivityRef,
		entry.DistanceKm,
		entry.Duration,
		entry.SubmittedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("submission insert failed: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
