package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"timehunt/internal/model"
)

const insertBatchSize = 200

// ReminderSheet is the Reminders worksheet: tasks and alarms of every user.
type ReminderSheet struct {
	db *gorm.DB
}

func NewReminderSheet(db *gorm.DB) *ReminderSheet {
	return &ReminderSheet{db: db}
}

// ReadAll returns every row in sheet order.
func (s *ReminderSheet) ReadAll(ctx context.Context) ([]model.ReminderRow, error) {
	var rows []model.ReminderRow
	if err := s.db.WithContext(ctx).Order("row_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read reminders: %w", err)
	}
	return rows, nil
}

// ReplaceAll clears the worksheet and writes rows in order, in one transaction.
func (s *ReminderSheet) ReplaceAll(ctx context.Context, rows []model.ReminderRow) error {
	fresh := make([]model.ReminderRow, len(rows))
	for i, r := range rows {
		r.RowID = 0
		fresh[i] = r
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.ReminderRow{}).Error; err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		if len(fresh) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&fresh, insertBatchSize).Error; err != nil {
			return fmt.Errorf("write: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace reminders: %w", err)
	}
	return nil
}
