package implementation

import (
	"context"

	"venturelink-be/internal/entity"
	"venturelink-be/internal/mapper"
	"venturelink-be/internal/model"
	"venturelink-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReceiptRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewReceiptRepository(db *gorm.DB) contract.ReceiptRepository {
	return &ReceiptRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ReceiptRepositoryImpl) CreateBatch(ctx context.Context, receipts []*entity.MessageReceipt) (int64, error) {
	if len(receipts) == 0 {
		return 0, nil
	}

	models := make([]model.MessageReceipt, len(receipts))
	for i, receipt := range receipts {
		models[i] = *r.mapper.ReceiptToModel(receipt)
	}

	// ON CONFLICT DO NOTHING makes re-marking idempotent; RowsAffected only
	// counts freshly inserted receipts.
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
