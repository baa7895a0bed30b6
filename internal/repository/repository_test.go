package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"timehunt/internal/model"
)

func newTestDB(t *testing.T) *ReminderSheet {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "data", "sheets.db"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewReminderSheet(db)
}

func TestReminderSheetReplaceKeepsOrder(t *testing.T) {
	ctx := context.Background()
	sheet := newTestDB(t)

	first := []model.ReminderRow{
		{UserID: "A", Task: "call", Time: "2025-01-01 09:00", Status: model.StatusPending, Type: model.TypeAlarm},
		{UserID: "B", Task: "gym", Time: "2025-01-01 18:00", Status: model.StatusDone, Type: "Schedule-Health"},
	}
	if err := sheet.ReplaceAll(ctx, first); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	rows, err := sheet.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 2 || rows[0].Task != "call" || rows[1].Task != "gym" {
		t.Fatalf("rows=%+v", rows)
	}

	// Rows read back carry ids; replacing with them must not collide.
	second := append([]model.ReminderRow{rows[1]}, model.ReminderRow{UserID: "A", Task: "read", Time: "21:00", Status: model.StatusPending, Type: model.TypeAlarm})
	if err := sheet.ReplaceAll(ctx, second); err != nil {
		t.Fatalf("ReplaceAll second: %v", err)
	}
	rows, err = sheet.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 2 || rows[0].Task != "gym" || rows[1].Task != "read" {
		t.Fatalf("rows after replace=%+v", rows)
	}
}

func TestReminderSheetReplaceWithNothingClears(t *testing.T) {
	ctx := context.Background()
	sheet := newTestDB(t)
	if err := sheet.ReplaceAll(ctx, []model.ReminderRow{{UserID: "A", Task: "x"}}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if err := sheet.ReplaceAll(ctx, nil); err != nil {
		t.Fatalf("ReplaceAll empty: %v", err)
	}
	rows, err := sheet.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows=%+v, want none", rows)
	}
}

func TestProfileSheetAppendAndReplace(t *testing.T) {
	ctx := context.Background()
	reminders := newTestDB(t)
	profiles := NewProfileSheet(reminders.db)

	if err := profiles.Append(ctx, model.ProfileRow{UserID: "USER-1", Name: "ana", XP: "0"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := profiles.Append(ctx, model.ProfileRow{UserID: "USER-2", Name: "bo", XP: "40"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	rows, err := profiles.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%+v", rows)
	}

	rows[0].XP = "300"
	if err := profiles.ReplaceAll(ctx, rows); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	rows, err = profiles.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if rows[0].UserID != "USER-1" || rows[0].XP != "300" || rows[1].XP != "40" {
		t.Fatalf("rows after replace=%+v", rows)
	}
}

func TestLeaderboardCacheDisabled(t *testing.T) {
	ctx := context.Background()
	cache := NewLeaderboardCache(nil, time.Minute)
	if cache.Enabled() {
		t.Fatalf("cache with nil client should be disabled")
	}
	if err := cache.Set(ctx, []model.LeaderboardEntry{{Rank: 1, Name: "ana"}}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, err := cache.Get(ctx); hit || err != nil {
		t.Fatalf("Get=(hit=%v, err=%v), want miss", hit, err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	var nilCache *LeaderboardCache
	if nilCache.Enabled() {
		t.Fatalf("nil cache should be disabled")
	}
}

func TestNewRedisClientEmptyAddr(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "", "", 0)
	if client != nil || err != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", client, err)
	}
}
