package contract

import (
	"context"

	"venturelink-be/internal/entity"
)

type ReceiptRepository interface {
	// CreateBatch inserts receipts, ignoring rows that already exist, and
	// returns the number of newly created receipts.
	CreateBatch(ctx context.Context, receipts []*entity.MessageReceipt) (int64, error)
}
