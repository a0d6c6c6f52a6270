// internal/ledger/manager.go
package ledger

import (
	"fmt"

	"github.com/charityrun/runproof/internal/config"
	"github.com/charityrun/runproof/internal/utils"
)

// Open creates the Store selected by cfg.Backend. Config validation has
// already checked that the backend-specific settings are present.
func Open(cfg config.LedgerConfig, logger utils.Logger) (Store, error) {
	switch cfg.Backend {
	case "excel":
		return NewExcelStore(cfg.Excel, logger)
	case "sqlite":
		return NewSQLiteStore(withTableDefaults(*cfg.Database), logger)
	case "postgres":
		return NewPostgresStore(withTableDefaults(*cfg.Database), logger)
	case "mysql":
		return NewMySQLStore(withTableDefaults(*cfg.Database), logger)
	case "mongodb":
		mongo := *cfg.Mongo
		if mongo.RegistrationsCollection == "" {
			mongo.RegistrationsCollection = "registrations"
		}
		if mongo.SubmissionsCollection == "" {
			mongo.SubmissionsCollection = "submissions"
		}
		return NewMongoStore(mongo, logger)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", cfg.Backend)
	}
}

func withTableDefaults(cfg config.DatabaseLedger) config.DatabaseLedger {
	if cfg.RegistrationsTable == "" {
		cfg.RegistrationsTable = "registrations"
	}
	if cfg.SubmissionsTable == "" {
		cfg.SubmissionsTable = "submissions"
	}
	return cfg
}
