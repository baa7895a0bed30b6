package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"timehunt/internal/model"
	"timehunt/internal/state"
)

var errOffline = errors.New("dial tcp: connection refused")

var ist = time.FixedZone("IST", 5*3600+30*60)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeReminderTable struct {
	rows     []model.ReminderRow
	readErr  error
	writeErr error
	reads    int
	writes   int
}

func (f *fakeReminderTable) ReadAll(context.Context) ([]model.ReminderRow, error) {
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]model.ReminderRow(nil), f.rows...), nil
}

func (f *fakeReminderTable) ReplaceAll(_ context.Context, rows []model.ReminderRow) error {
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.rows = append([]model.ReminderRow(nil), rows...)
	return nil
}

type fakeProfileTable struct {
	rows     []model.ProfileRow
	readErr  error
	writeErr error
}

func (f *fakeProfileTable) ReadAll(context.Context) ([]model.ProfileRow, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]model.ProfileRow(nil), f.rows...), nil
}

func (f *fakeProfileTable) Append(_ context.Context, row model.ProfileRow) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeProfileTable) ReplaceAll(_ context.Context, rows []model.ProfileRow) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.rows = append([]model.ProfileRow(nil), rows...)
	return nil
}

type fakeCache struct {
	entries     []model.LeaderboardEntry
	hit         bool
	sets        int
	invalidated int
}

func (f *fakeCache) Get(context.Context) ([]model.LeaderboardEntry, bool, error) {
	return f.entries, f.hit, nil
}

func (f *fakeCache) Set(_ context.Context, entries []model.LeaderboardEntry) error {
	f.entries = entries
	f.hit = true
	f.sets++
	return nil
}

func (f *fakeCache) Invalidate(context.Context) error {
	f.entries = nil
	f.hit = false
	f.invalidated++
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []model.Reminder
}

func (f *fakeNotifier) Notify(_ context.Context, _ string, r model.Reminder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, r)
}

type fakeSaver struct {
	saves int
	err   error
}

func (f *fakeSaver) Save(context.Context, *state.Store) error {
	f.saves++
	return f.err
}

type fakeProfileUpdater struct {
	updates []map[string]string
	err     error
}

func (f *fakeProfileUpdater) UpdateProfileFields(_ context.Context, _ string, fields map[string]string) error {
	f.updates = append(f.updates, fields)
	return f.err
}
