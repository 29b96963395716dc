package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltansg/grab-receipts-exporter/pkg/types"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "grab_receipts.csv")

	sink, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(types.Record{
		UID:         1201,
		Date:        time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC),
		Type:        types.ServiceFood,
		OrderID:     "A-6JVGAB3CXNVJ",
		Currency:    "THB",
		TotalAmount: 196,
		Metadata:    map[string]any{"restaurant": "Sample Restaurant"},
	}))
	require.NoError(t, sink.Close())

	sink, err = NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(types.Record{
		UID:         1202,
		Date:        time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
		Type:        types.ServiceTip,
		Currency:    "THB",
		TotalAmount: 20,
		Metadata:    map[string]any{"driver_name": "Somchai", "payment_method": nil},
	}))
	require.NoError(t, sink.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 3, "one header and two records after two runs")
	assert.Equal(t, []string{"uid", "date", "type", "order_id", "currency", "total_amount", "metadata"}, rows[0])
	assert.Equal(t, []string{
		"1201", "2024-03-09T12:30:00Z", "GrabFood", "A-6JVGAB3CXNVJ", "THB", "196.00",
		`{"restaurant":"Sample Restaurant"}`,
	}, rows[1])
	assert.Equal(t, []string{
		"1202", "2024-03-10T08:00:00Z", "GrabTip", "", "THB", "20.00",
		`{"driver_name":"Somchai","payment_method":null}`,
	}, rows[2])
}

func TestCSVSinkFormatsAmounts(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected string
	}{
		{"Whole number gains decimals", 140, "140.00"},
		{"Half keeps trailing zero", 1234.5, "1234.50"},
		{"Two decimals unchanged", 17.18, "17.18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.csv")
			sink, err := NewCSVSink(path)
			require.NoError(t, err)
			require.NoError(t, sink.Append(types.Record{
				UID: 1, Date: time.Now(), Type: types.ServiceUnknown,
				Currency: "THB", TotalAmount: tt.amount,
			}))
			require.NoError(t, sink.Close())

			rows := readRows(t, path)
			require.Len(t, rows, 2)
			assert.Equal(t, tt.expected, rows[1][5])
		})
	}
}

func TestCSVSinkEmptyMetadataRendersEmptyCell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(types.Record{
		UID: 3, Date: time.Now(), Type: types.ServiceUnknown,
		Currency: "THB", TotalAmount: 140, Metadata: map[string]any{},
	}))
	require.NoError(t, sink.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[1][6])
}

func TestCSVSinkMetadataKeepsRawText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(types.Record{
		UID: 4, Date: time.Now(), Type: types.ServiceFood,
		Currency: "THB", TotalAmount: 260,
		Metadata: map[string]any{"restaurant": "Fish & Chips", "items": "1x ข้าวผัด @80"},
	}))
	require.NoError(t, sink.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, `{"items":"1x ข้าวผัด @80","restaurant":"Fish & Chips"}`, rows[1][6])
}
