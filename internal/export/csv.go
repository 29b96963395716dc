package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/michaeltansg/grab-receipts-exporter/pkg/types"
)

// columns is the fixed output column order.
var columns = []string{"uid", "date", "type", "order_id", "currency", "total_amount", "metadata"}

// CSVSink appends receipt records to a CSV file. The header row is
// written only when the file starts out empty, so repeated runs keep
// extending a single spreadsheet-friendly file.
type CSVSink struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink opens or creates the CSV file at path, creating parent
// directories on first use.
func NewCSVSink(path string) (*CSVSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat csv file: %w", err)
	}

	sink := &CSVSink{file: file, writer: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := sink.writeRow(columns); err != nil {
			file.Close()
			return nil, err
		}
	}
	return sink, nil
}

// Append writes one record and flushes it, so rows already exported
// survive an interrupted run.
func (s *CSVSink) Append(rec types.Record) error {
	metadata, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	return s.writeRow([]string{
		strconv.FormatUint(uint64(rec.UID), 10),
		rec.Date.Format(time.RFC3339),
		string(rec.Type),
		rec.OrderID,
		rec.Currency,
		strconv.FormatFloat(rec.TotalAmount, 'f', 2, 64),
		metadata,
	})
}

// Close flushes any buffered rows and closes the file.
func (s *CSVSink) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to flush csv file: %w", err)
	}
	return s.file.Close()
}

func (s *CSVSink) writeRow(row []string) error {
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	return nil
}

// encodeMetadata renders the metadata mapping as a single JSON cell.
// Keys serialize in sorted order, so identical records produce identical
// rows across runs. An empty mapping renders as an empty cell.
func encodeMetadata(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(metadata); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
