package receipt

import "github.com/michaeltansg/grab-receipts-exporter/pkg/types"

// DefaultCurrency applies to every exported receipt; Grab e-receipts in
// this mailbox are denominated in Thai baht.
const DefaultCurrency = "THB"

// Assemble merges the message envelope with the extraction output into
// the final record. Metadata is restricted to exactly the key set of the
// resolved service type, keeping nil for keys whose rules found nothing.
func Assemble(msg *types.Message, serviceType types.ServiceType, ex *Extraction) types.Record {
	keys := MetadataKeys(serviceType)
	meta := make(map[string]any, len(keys))
	for _, key := range keys {
		meta[key] = ex.Metadata[key]
	}
	return types.Record{
		UID:         msg.UID,
		Date:        msg.Date,
		Type:        serviceType,
		OrderID:     ex.OrderID,
		Currency:    DefaultCurrency,
		TotalAmount: ex.TotalAmount,
		Metadata:    meta,
	}
}
