package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"timehunt/internal/model"
)

// ProfileSheet is the profile worksheet (Sheet1), one row per user.
type ProfileSheet struct {
	db *gorm.DB
}

func NewProfileSheet(db *gorm.DB) *ProfileSheet {
	return &ProfileSheet{db: db}
}

func (s *ProfileSheet) ReadAll(ctx context.Context) ([]model.ProfileRow, error) {
	var rows []model.ProfileRow
	if err := s.db.WithContext(ctx).Order("row_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return rows, nil
}

// Append adds one row at the end of the sheet.
func (s *ProfileSheet) Append(ctx context.Context, row model.ProfileRow) error {
	row.RowID = 0
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append profile: %w", err)
	}
	return nil
}

// ReplaceAll rewrites the whole sheet with rows, in one transaction.
func (s *ProfileSheet) ReplaceAll(ctx context.Context, rows []model.ProfileRow) error {
	fresh := make([]model.ProfileRow, len(rows))
	for i, r := range rows {
		r.RowID = 0
		fresh[i] = r
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.ProfileRow{}).Error; err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		if len(fresh) == 0 {
			return nil
		}
		return tx.CreateInBatches(&fresh, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("replace profiles: %w", err)
	}
	return nil
}
