package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/michaeltansg/grab-receipts-exporter/internal/receipt"
	"github.com/michaeltansg/grab-receipts-exporter/pkg/types"
)

// Source yields receipt messages with UIDs past the cursor, ascending.
type Source interface {
	FetchReceiptsAfter(lastUID uint32) ([]*types.Message, error)
}

// Sink receives every successfully extracted record.
type Sink interface {
	Append(rec types.Record) error
}

// Ledger records runs and per-receipt outcomes for later summaries.
type Ledger interface {
	BeginRun(runID string, startedAt time.Time) error
	FinishRun(runID string, finishedAt time.Time, processed, exported, failed int) error
	UpsertReceipt(runID string, rec types.Record, status, errText string) error
}

// Cursor persists the highest processed UID between runs.
type Cursor interface {
	Read() (uint32, error)
	Write(uint32) error
}

// Summary reports what one run did.
type Summary struct {
	RunID     string
	Processed int
	Exported  int
	Failed    int
	ByType    map[types.ServiceType]int
	LastUID   uint32
}

// Runner drives one export batch: fetch everything past the cursor, then
// classify, extract, assemble and sink each message in UID order,
// advancing the cursor after every message whether or not extraction
// succeeded. Extraction failures are counted and archived, never fatal.
type Runner struct {
	source Source
	sink   Sink
	ledger Ledger
	cursor Cursor
	logger *logrus.Logger
}

func NewRunner(source Source, sink Sink, ledger Ledger, cursor Cursor, logger *logrus.Logger) *Runner {
	return &Runner{
		source: source,
		sink:   sink,
		ledger: ledger,
		cursor: cursor,
		logger: logger,
	}
}

// receiptZone renders per-receipt dates in the receipts' home timezone.
var receiptZone = time.FixedZone("ICT", 7*60*60)

// Run executes one batch. The context is checked between messages, so an
// interrupt stops the run at a message boundary with the cursor already
// persisted for everything processed so far.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	lastUID, err := r.cursor.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read cursor: %w", err)
	}

	summary := &Summary{
		RunID:   uuid.New().String(),
		ByType:  make(map[types.ServiceType]int),
		LastUID: lastUID,
	}

	if err := r.ledger.BeginRun(summary.RunID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}

	messages, err := r.source.FetchReceiptsAfter(lastUID)
	if err != nil {
		r.finish(summary)
		return nil, fmt.Errorf("failed to fetch receipts: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"run_id":   summary.RunID,
		"cursor":   lastUID,
		"messages": len(messages),
	}).Info("Starting export run")

	for _, msg := range messages {
		select {
		case <-ctx.Done():
			r.finish(summary)
			return summary, ctx.Err()
		default:
		}

		r.process(msg, summary)

		if err := r.cursor.Write(msg.UID); err != nil {
			r.finish(summary)
			return summary, fmt.Errorf("failed to advance cursor: %w", err)
		}
		summary.LastUID = msg.UID
	}

	r.finish(summary)
	return summary, nil
}

// process runs the classify → extract → assemble → sink pipeline for one
// message. Failures stay local to the message.
func (r *Runner) process(msg *types.Message, summary *Summary) {
	summary.Processed++

	serviceType := receipt.Classify(msg.Body)
	summary.ByType[serviceType]++

	log := r.logger.WithFields(logrus.Fields{
		"uid":  msg.UID,
		"date": msg.Date.In(receiptZone).Format("2006-01-02 15:04"),
		"type": serviceType,
	})

	ex, err := receipt.Extract(msg.Body, serviceType)
	if err != nil {
		summary.Failed++
		log.WithError(err).Warn("Receipt extraction failed")
		failed := types.Record{
			UID:      msg.UID,
			Date:     msg.Date,
			Type:     serviceType,
			Currency: receipt.DefaultCurrency,
		}
		if err := r.ledger.UpsertReceipt(summary.RunID, failed, "failed", err.Error()); err != nil {
			log.WithError(err).Error("Failed to archive receipt")
		}
		return
	}

	rec := receipt.Assemble(msg, serviceType, ex)

	if err := r.sink.Append(rec); err != nil {
		summary.Failed++
		log.WithError(err).Error("Failed to append record to sink")
		if err := r.ledger.UpsertReceipt(summary.RunID, rec, "failed", err.Error()); err != nil {
			log.WithError(err).Error("Failed to archive receipt")
		}
		return
	}

	if err := r.ledger.UpsertReceipt(summary.RunID, rec, "exported", ""); err != nil {
		log.WithError(err).Error("Failed to archive receipt")
	}

	summary.Exported++
	log.WithFields(logrus.Fields{
		"order_id": rec.OrderID,
		"amount":   rec.TotalAmount,
	}).Info("Receipt exported")
}

func (r *Runner) finish(summary *Summary) {
	if err := r.ledger.FinishRun(summary.RunID, time.Now(), summary.Processed, summary.Exported, summary.Failed); err != nil {
		r.logger.WithError(err).Error("Failed to record run finish")
	}
}
