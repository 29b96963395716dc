package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/michaeltansg/grab-receipts-exporter/pkg/types"
)

// QueryOptions contains receipt query parameters
type QueryOptions struct {
	Type     *string
	Status   *string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
}

// ArchivedReceipt is a receipt row read back from the archive.
type ArchivedReceipt struct {
	types.Record
	RunID  string
	Status string
	Error  string
}

// TypeSummary aggregates exported receipts for one service type.
type TypeSummary struct {
	Type  string
	Count int
	Total float64
}

// Run records one exporter invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Processed  int
	Exported   int
	Failed     int
}

// ListReceipts returns archived receipts matching the options, newest
// first.
func (s *Store) ListReceipts(opts QueryOptions) ([]ArchivedReceipt, error) {
	var conditions []string
	var args []interface{}

	if opts.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, *opts.Type)
	}

	if opts.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *opts.Status)
	}

	if opts.DateFrom != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, opts.DateFrom)
	}

	if opts.DateTo != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, opts.DateTo)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := fmt.Sprintf(`
		SELECT uid, run_id, date, type, order_id, currency, total_amount, metadata, status, error
		FROM receipts
		%s
		ORDER BY date DESC
		LIMIT ?
	`, whereClause)

	args = append(args, limit)

	rows, err := s.archive.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var results []ArchivedReceipt
	for rows.Next() {
		var r ArchivedReceipt
		var dateStr string
		var orderID, currency, metadata, errText sql.NullString
		var total sql.NullFloat64

		err := rows.Scan(
			&r.UID,
			&r.RunID,
			&dateStr,
			&r.Type,
			&orderID,
			&currency,
			&total,
			&metadata,
			&r.Status,
			&errText,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}

		r.Date = parseStoredTime(dateStr)
		r.OrderID = orderID.String
		r.Currency = currency.String
		r.TotalAmount = total.Float64
		r.Error = errText.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}

		results = append(results, r)
	}

	return results, nil
}

// SummarizeByType aggregates the exported receipts per service type.
func (s *Store) SummarizeByType() ([]TypeSummary, error) {
	query := `
		SELECT type, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM receipts
		WHERE status = ?
		GROUP BY type
		ORDER BY type
	`
	rows, err := s.archive.DB().Query(query, StatusExported)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize receipts: %w", err)
	}
	defer rows.Close()

	var summaries []TypeSummary
	for rows.Next() {
		var summary TypeSummary
		if err := rows.Scan(&summary.Type, &summary.Count, &summary.Total); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// LastRun returns the most recent run, or nil if none have been recorded.
func (s *Store) LastRun() (*Run, error) {
	query := `
		SELECT id, started_at, finished_at, processed, exported, failed
		FROM runs
		ORDER BY started_at DESC
		LIMIT 1
	`
	var run Run
	var startedStr string
	var finishedStr sql.NullString

	err := s.archive.DB().QueryRow(query).Scan(
		&run.ID,
		&startedStr,
		&finishedStr,
		&run.Processed,
		&run.Exported,
		&run.Failed,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last run: %w", err)
	}

	run.StartedAt = parseStoredTime(startedStr)
	if finishedStr.Valid {
		t := parseStoredTime(finishedStr.String)
		run.FinishedAt = &t
	}

	return &run, nil
}

// storedTimeFormats are the shapes DATETIME columns come back in,
// depending on whether the value was bound as a time, written by
// CURRENT_TIMESTAMP, or converted by database/sql.
var storedTimeFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func parseStoredTime(s string) time.Time {
	for _, format := range storedTimeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
