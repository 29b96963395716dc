package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Archive is the local SQLite ledger of processed receipts. It backs the
// run summaries and de-duplicates receipts that get fetched again after a
// cursor reset.
type Archive struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewArchive opens the archive database, creating it and its schema on
// first use.
func NewArchive(dbPath string, logger *logrus.Logger) (*Archive, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	archive := &Archive{
		db:     db,
		logger: logger,
	}

	if err := archive.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.WithField("path", dbPath).Info("Archive initialized")
	return archive, nil
}

func (a *Archive) initSchema() error {
	if _, err := a.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// DB returns the underlying database connection (for use in store.go).
func (a *Archive) DB() *sql.DB {
	return a.db
}
