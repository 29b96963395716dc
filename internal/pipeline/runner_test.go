package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltansg/grab-receipts-exporter/pkg/types"
)

type fakeSource struct {
	messages []*types.Message
	gotUID   uint32
}

func (s *fakeSource) FetchReceiptsAfter(lastUID uint32) ([]*types.Message, error) {
	s.gotUID = lastUID
	var out []*types.Message
	for _, m := range s.messages {
		if m.UID > lastUID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeSink struct {
	records []types.Record
	err     error
}

func (s *fakeSink) Append(rec types.Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

type archivedRow struct {
	uid    uint32
	status string
	err    string
}

type fakeLedger struct {
	began    []string
	finished []string
	rows     []archivedRow
}

func (l *fakeLedger) BeginRun(runID string, startedAt time.Time) error {
	l.began = append(l.began, runID)
	return nil
}

func (l *fakeLedger) FinishRun(runID string, finishedAt time.Time, processed, exported, failed int) error {
	l.finished = append(l.finished, runID)
	return nil
}

func (l *fakeLedger) UpsertReceipt(runID string, rec types.Record, status, errText string) error {
	l.rows = append(l.rows, archivedRow{uid: rec.UID, status: status, err: errText})
	return nil
}

type memCursor struct {
	uid    uint32
	writes []uint32
}

func (c *memCursor) Read() (uint32, error) { return c.uid, nil }

func (c *memCursor) Write(uid uint32) error {
	c.uid = uid
	c.writes = append(c.writes, uid)
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func msg(uid uint32, body string) *types.Message {
	return &types.Message{
		UID:  uid,
		Date: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
		Body: body,
	}
}

func TestRunExportsMixedBatch(t *testing.T) {
	source := &fakeSource{messages: []*types.Message{
		msg(1201, "SOURCE_GRABFOOD ฿196.00 สถานที่เริ่มต้นการเดินทาง: Sample Restaurant สถานที่ปลายทาง"),
		msg(1202, "myteksi.s3.amazonaws.com Fare ฿556"),
		msg(1203, "Grab Tips E-Receipt ฿20.00 ชื่อผู้ขับ: Somchai"),
		msg(1204, "Newsletter with no receipt content"),
	}}
	sink := &fakeSink{}
	ledger := &fakeLedger{}
	cursor := &memCursor{uid: 1200}

	runner := NewRunner(source, sink, ledger, cursor, testLogger())
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint32(1200), source.gotUID)
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 3, summary.Exported)
	assert.Equal(t, 1, summary.Failed, "the newsletter has no total amount")
	assert.Equal(t, map[types.ServiceType]int{
		types.ServiceFood:      1,
		types.ServiceTransport: 1,
		types.ServiceTip:       1,
		types.ServiceUnknown:   1,
	}, summary.ByType)

	require.Len(t, sink.records, 3)
	assert.Equal(t, types.ServiceFood, sink.records[0].Type)
	assert.Equal(t, 196.0, sink.records[0].TotalAmount)
	assert.Equal(t, "Sample Restaurant", sink.records[0].Metadata["restaurant"])
	assert.Equal(t, types.ServiceTransport, sink.records[1].Type)
	assert.Equal(t, types.ServiceTip, sink.records[2].Type)

	require.Len(t, ledger.rows, 4)
	assert.Equal(t, archivedRow{uid: 1204, status: "failed", err: "extract Unknown receipt: no total amount found"}, ledger.rows[3])

	require.Equal(t, []string{summary.RunID}, ledger.began)
	require.Equal(t, []string{summary.RunID}, ledger.finished)
}

func TestRunAdvancesCursorPastFailures(t *testing.T) {
	source := &fakeSource{messages: []*types.Message{
		msg(7, "SOURCE_GRABFOOD but no amount anywhere"),
		msg(8, "SOURCE_GRABFOOD ฿140"),
	}}
	sink := &fakeSink{}
	cursor := &memCursor{}

	runner := NewRunner(source, sink, &fakeLedger{}, cursor, testLogger())
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Exported)
	assert.Equal(t, []uint32{7, 8}, cursor.writes, "failed extraction still advances the cursor")
	assert.Equal(t, uint32(8), summary.LastUID)
}

func TestRunSinkFailureCountsAsFailed(t *testing.T) {
	source := &fakeSource{messages: []*types.Message{
		msg(5, "SOURCE_GRABFOOD ฿140"),
	}}
	sink := &fakeSink{err: errors.New("disk full")}
	ledger := &fakeLedger{}

	runner := NewRunner(source, sink, ledger, &memCursor{}, testLogger())
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Exported)
	require.Len(t, ledger.rows, 1)
	assert.Equal(t, "failed", ledger.rows[0].status)
	assert.Equal(t, "disk full", ledger.rows[0].err)
}

func TestRunEmptyMailbox(t *testing.T) {
	cursor := &memCursor{uid: 42}

	runner := NewRunner(&fakeSource{}, &fakeSink{}, &fakeLedger{}, cursor, testLogger())
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.Processed)
	assert.Empty(t, cursor.writes)
	assert.Equal(t, uint32(42), summary.LastUID)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	source := &fakeSource{messages: []*types.Message{
		msg(1, "SOURCE_GRABFOOD ฿10"),
		msg(2, "SOURCE_GRABFOOD ฿20"),
	}}
	cursor := &memCursor{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(source, &fakeSink{}, &fakeLedger{}, cursor, testLogger())
	summary, err := runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Zero(t, summary.Processed)
	assert.Empty(t, cursor.writes)
}
