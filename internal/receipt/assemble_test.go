package receipt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/michaeltansg/grab-receipts-exporter/pkg/types"
)

func TestAssemble(t *testing.T) {
	msg := &types.Message{
		UID:     42,
		Subject: "Your Grab E-Receipt",
		Date:    time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC),
	}
	ex := &Extraction{
		OrderID:     "A-9TIPBK12345",
		TotalAmount: 20,
		Metadata: map[string]any{
			"driver_name":    "Somchai",
			"payment_method": "GrabPay",
			"raw_text":       "never exported",
		},
	}

	rec := Assemble(msg, types.ServiceTip, ex)

	assert.Equal(t, uint32(42), rec.UID)
	assert.Equal(t, msg.Date, rec.Date)
	assert.Equal(t, types.ServiceTip, rec.Type)
	assert.Equal(t, "A-9TIPBK12345", rec.OrderID)
	assert.Equal(t, "THB", rec.Currency)
	assert.Equal(t, 20.0, rec.TotalAmount)
	assert.Equal(t, map[string]any{
		"driver_name":    "Somchai",
		"payment_method": "GrabPay",
	}, rec.Metadata, "metadata carries exactly the tip key set")
}

func TestAssembleKeepsNilForMissingFields(t *testing.T) {
	msg := &types.Message{UID: 7, Date: time.Now()}
	ex := &Extraction{TotalAmount: 75, Metadata: map[string]any{"driver_name": "Somchai"}}

	rec := Assemble(msg, types.ServiceTip, ex)

	assert.Len(t, rec.Metadata, 2)
	assert.Equal(t, "Somchai", rec.Metadata["driver_name"])
	assert.Contains(t, rec.Metadata, "payment_method")
	assert.Nil(t, rec.Metadata["payment_method"])
}

func TestAssembleUnknownHasEmptyMetadata(t *testing.T) {
	msg := &types.Message{UID: 9, Date: time.Now()}
	ex := &Extraction{TotalAmount: 140, Metadata: map[string]any{}}

	rec := Assemble(msg, types.ServiceUnknown, ex)

	assert.Equal(t, types.ServiceUnknown, rec.Type)
	assert.NotNil(t, rec.Metadata)
	assert.Empty(t, rec.Metadata)
}
