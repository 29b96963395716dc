package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/michaeltansg/grab-receipts-exporter/pkg/types"
)

// Receipt row statuses.
const (
	StatusExported = "exported"
	StatusFailed   = "failed"
)

// Store provides methods for recording runs and receipts in the archive
type Store struct {
	archive *Archive
	logger  *logrus.Logger
}

// NewStore creates a new store instance
func NewStore(archive *Archive, logger *logrus.Logger) *Store {
	return &Store{
		archive: archive,
		logger:  logger,
	}
}

// BeginRun records the start of an exporter invocation.
func (s *Store) BeginRun(runID string, startedAt time.Time) error {
	query := `INSERT INTO runs (id, started_at) VALUES (?, ?)`
	if _, err := s.archive.DB().Exec(query, runID, startedAt); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(runID string, finishedAt time.Time, processed, exported, failed int) error {
	query := `
		UPDATE runs
		SET finished_at = ?, processed = ?, exported = ?, failed = ?
		WHERE id = ?
	`
	if _, err := s.archive.DB().Exec(query, finishedAt, processed, exported, failed, runID); err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// UpsertReceipt records one processed receipt. The row is keyed by the
// mailbox UID, so processing the same message again replaces the earlier
// outcome; a receipt that failed in one run and exported in a later one
// keeps only the exported row.
func (s *Store) UpsertReceipt(runID string, rec types.Record, status, errText string) error {
	metadataJSON := ""
	if len(rec.Metadata) > 0 {
		data, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON = string(data)
	}

	query := `
		INSERT INTO receipts (uid, run_id, date, type, order_id, currency, total_amount, metadata, status, error, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(uid) DO UPDATE SET
			run_id = excluded.run_id,
			date = excluded.date,
			type = excluded.type,
			order_id = excluded.order_id,
			currency = excluded.currency,
			total_amount = excluded.total_amount,
			metadata = excluded.metadata,
			status = excluded.status,
			error = excluded.error,
			archived_at = CURRENT_TIMESTAMP
	`
	_, err := s.archive.DB().Exec(query,
		rec.UID,
		runID,
		rec.Date,
		string(rec.Type),
		rec.OrderID,
		rec.Currency,
		rec.TotalAmount,
		metadataJSON,
		status,
		errText,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert receipt: %w", err)
	}

	return nil
}
