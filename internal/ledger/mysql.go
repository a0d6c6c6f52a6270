// internal/ledger/mysql.go
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/charityrun/runproof/internal/config"
	"github.com/charityrun/runproof/internal/utils"
)

// NewMySQLStore opens a MySQL-backed ledger.
func NewMySQLStore(cfg config.DatabaseLedger, logger utils.Logger) (*SQLStore, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql ledger: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	return newSQLStore(db, mysqlDialect, cfg.RegistrationsTable, cfg.SubmissionsTable, logger)
}
