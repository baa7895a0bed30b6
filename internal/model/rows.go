package model

import (
	"errors"
	"fmt"
)

// Worksheet names of the remote store.
const (
	WorksheetReminders = "Reminders"
	WorksheetProfiles  = "Sheet1"
)

// Values used in the Status and Type columns of the Reminders worksheet.
const (
	StatusDone     = "Done"
	StatusPending  = "Pending"
	TypeAlarm      = "Alarm"
	TypeSchedule   = "Schedule"
	SchedulePrefix = "Schedule-"
)

// ErrUnknownColumn is returned when a profile column name is not part of the sheet.
var ErrUnknownColumn = errors.New("unknown profile column")

// ReminderRow is one row of the Reminders worksheet. Every column is text.
type ReminderRow struct {
	RowID  uint   `gorm:"column:row_id;primaryKey;autoIncrement"`
	UserID string `gorm:"column:UserID;index"`
	Task   string `gorm:"column:Task"`
	Time   string `gorm:"column:Time"`
	Status string `gorm:"column:Status"`
	Type   string `gorm:"column:Type"`
}

func (ReminderRow) TableName() string { return WorksheetReminders }

// ProfileRow is one row of the profile worksheet. Numeric columns are kept as
// text and parsed by the caller.
type ProfileRow struct {
	RowID      uint   `gorm:"column:row_id;primaryKey;autoIncrement"`
	UserID     string `gorm:"column:UserID;index"`
	Name       string `gorm:"column:Name"`
	XP         string `gorm:"column:XP"`
	League     string `gorm:"column:League"`
	Avatar     string `gorm:"column:Avatar"`
	LastActive string `gorm:"column:LastActive"`
	PIN        string `gorm:"column:PIN"`
	MainFocus  string `gorm:"column:MainFocus"`
	ThemeMode  string `gorm:"column:ThemeMode"`
	ThemeColor string `gorm:"column:ThemeColor"`
	AIVoice    string `gorm:"column:AIVoice"`
	Streak     string `gorm:"column:Streak"`
}

func (ProfileRow) TableName() string { return WorksheetProfiles }

func (r *ProfileRow) column(name string) *string {
	switch name {
	case "UserID":
		return &r.UserID
	case "Name":
		return &r.Name
	case "XP":
		return &r.XP
	case "League":
		return &r.League
	case "Avatar":
		return &r.Avatar
	case "LastActive":
		return &r.LastActive
	case "PIN":
		return &r.PIN
	case "MainFocus":
		return &r.MainFocus
	case "ThemeMode":
		return &r.ThemeMode
	case "ThemeColor":
		return &r.ThemeColor
	case "AIVoice":
		return &r.AIVoice
	case "Streak":
		return &r.Streak
	default:
		return nil
	}
}

// Set rewrites one column addressed by its sheet name.
func (r *ProfileRow) Set(column, value string) error {
	field := r.column(column)
	if field == nil {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	*field = value
	return nil
}

// Get reads one column addressed by its sheet name.
func (r *ProfileRow) Get(column string) (string, error) {
	field := r.column(column)
	if field == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	return *field, nil
}
