package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"timehunt/internal/model"
	"timehunt/internal/state"
)

const (
	dateLayout     = "2006-01-02"
	clockLayout    = "15:04"
	dateTimeLayout = "2006-01-02 15:04"
)

// alarm times written by older clients came in several shapes
var alarmLayouts = []string{
	dateTimeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ReminderTable is the shared Reminders worksheet.
type ReminderTable interface {
	ReadAll(ctx context.Context) ([]model.ReminderRow, error)
	ReplaceAll(ctx context.Context, rows []model.ReminderRow) error
}

// ProfileTable is the shared profile worksheet.
type ProfileTable interface {
	ReadAll(ctx context.Context) ([]model.ProfileRow, error)
	Append(ctx context.Context, row model.ProfileRow) error
	ReplaceAll(ctx context.Context, rows []model.ProfileRow) error
}

// LeaderboardStore caches the computed leaderboard. Implementations may be disabled.
type LeaderboardStore interface {
	Get(ctx context.Context) ([]model.LeaderboardEntry, bool, error)
	Set(ctx context.Context, entries []model.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

// SyncService moves a session store to and from the worksheets.
// Saving replaces the caller's whole partition; the last writer wins.
type SyncService struct {
	reminders ReminderTable
	profiles  ProfileTable
	cache     LeaderboardStore
	loc       *time.Location
	now       func() time.Time
	log       *zap.Logger
}

func NewSyncService(reminders ReminderTable, profiles ProfileTable, cache LeaderboardStore, loc *time.Location, log *zap.Logger) *SyncService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncService{
		reminders: reminders,
		profiles:  profiles,
		cache:     cache,
		loc:       loc,
		now:       time.Now,
		log:       log.Named("sync"),
	}
}

func (s *SyncService) today() time.Time {
	return s.now().In(s.loc)
}

// Save writes the store's tasks and reminders as the user's partition of the
// Reminders worksheet, keeping every other user's rows as they were.
func (s *SyncService) Save(ctx context.Context, store *state.Store) error {
	userID := store.Profile.UserID
	existing, err := s.reminders.ReadAll(ctx)
	if err != nil {
		if !isMissingSheet(err) {
			return classify("save reminders", err)
		}
		s.log.Warn("reminders sheet missing, writing own partition only", zap.Error(err))
		existing = nil
	}

	store.Normalize()
	fresh := SerializeStore(userID, store.Reminders, store.Tasks, s.today())

	rows := make([]model.ReminderRow, 0, len(existing)+len(fresh))
	for _, r := range existing {
		if r.UserID != userID {
			rows = append(rows, r)
		}
	}
	rows = append(rows, fresh...)

	if err := s.reminders.ReplaceAll(ctx, rows); err != nil {
		return classify("save reminders", err)
	}
	s.log.Debug("partition saved",
		zap.String("user_id", userID),
		zap.Int("rows", len(fresh)),
		zap.Int("total_rows", len(rows)),
	)
	return nil
}

// Load replaces the store's tasks and reminders with the user's partition.
// On error the store is left untouched.
func (s *SyncService) Load(ctx context.Context, store *state.Store) error {
	rows, err := s.reminders.ReadAll(ctx)
	if err != nil {
		return classify("load reminders", err)
	}
	tasks, reminders := ParseRows(store.Profile.UserID, rows, s.today())
	store.ReplaceCollections(tasks, reminders)
	s.log.Debug("partition loaded",
		zap.String("user_id", store.Profile.UserID),
		zap.Int("tasks", len(tasks)),
		zap.Int("reminders", len(reminders)),
	)
	return nil
}

// SerializeStore flattens reminders then tasks into worksheet rows.
func SerializeStore(userID string, reminders []model.Reminder, tasks []model.Task, today time.Time) []model.ReminderRow {
	rows := make([]model.ReminderRow, 0, len(reminders)+len(tasks))
	for _, r := range reminders {
		rows = append(rows, model.ReminderRow{
			UserID: userID,
			Task:   r.Task,
			Time:   formatReminderTime(r, today.Location()),
			Status: status(r.Notified),
			Type:   model.TypeAlarm,
		})
	}
	for _, t := range tasks {
		date := t.Date
		if date == "" {
			date = today.Format(dateLayout)
		}
		category := t.Category
		if category == "" {
			category = model.DefaultCategory
		}
		at := strings.TrimSpace(date + " " + t.Time)
		if t.Time != "" && !isClock(t.Time) {
			// legacy text is written back alone so reloads do not prefix it again
			at = t.Time
		}
		rows = append(rows, model.ReminderRow{
			UserID: userID,
			Task:   t.Activity,
			Time:   at,
			Status: status(t.Done),
			Type:   model.SchedulePrefix + category,
		})
	}
	return rows
}

// ParseRows rebuilds one user's tasks and reminders from worksheet rows.
// Unrecognised row types are skipped.
func ParseRows(userID string, rows []model.ReminderRow, today time.Time) ([]model.Task, []model.Reminder) {
	tasks := []model.Task{}
	reminders := []model.Reminder{}
	for _, row := range rows {
		if row.UserID != userID {
			continue
		}
		switch {
		case row.Type == model.TypeAlarm:
			reminders = append(reminders, parseReminder(row, today))
		case row.Type == model.TypeSchedule || strings.HasPrefix(row.Type, model.SchedulePrefix):
			tasks = append(tasks, parseTask(row, today))
		}
	}
	return tasks, reminders
}

func parseReminder(row model.ReminderRow, today time.Time) model.Reminder {
	r := model.Reminder{Task: row.Task, Notified: row.Status == model.StatusDone}
	due, ok := ParseReminderTime(row.Time, today)
	if !ok {
		r.Raw = row.Time
		return r
	}
	r.Due = due
	return r
}

// ParseReminderTime accepts a full date-time or a bare HH:MM, which is taken as today.
func ParseReminderTime(raw string, today time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	loc := today.Location()
	for _, layout := range alarmLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc), true
		}
	}
	if clock, err := time.ParseInLocation(clockLayout, raw, loc); err == nil {
		return time.Date(today.Year(), today.Month(), today.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), true
	}
	return time.Time{}, false
}

// parseTask reads the category as everything after "Schedule-", so
// "Schedule-Deep-Work" keeps "Deep-Work".
func parseTask(row model.ReminderRow, today time.Time) model.Task {
	category := strings.TrimPrefix(row.Type, model.TypeSchedule)
	category = strings.TrimPrefix(category, "-")
	if strings.TrimSpace(category) == "" {
		category = model.DefaultCategory
	}
	t := model.Task{
		Activity:   row.Task,
		Category:   category,
		Difficulty: model.DefaultDifficulty,
		Done:       row.Status == model.StatusDone,
		XP:         model.DefaultTaskXP,
	}
	if ts, err := time.ParseInLocation(dateTimeLayout, strings.TrimSpace(row.Time), today.Location()); err == nil {
		t.Date = ts.Format(dateLayout)
		t.Time = ts.Format(clockLayout)
	} else {
		t.Date = today.Format(dateLayout)
		t.Time = row.Time
	}
	return t
}

func formatReminderTime(r model.Reminder, loc *time.Location) string {
	if !r.Armed() {
		return r.Raw
	}
	return r.Due.In(loc).Format(dateTimeLayout)
}

func status(done bool) string {
	if done {
		return model.StatusDone
	}
	return model.StatusPending
}

func isClock(s string) bool {
	_, err := time.Parse(clockLayout, s)
	return err == nil
}

// isMissingSheet reports a read against a table that does not exist. NewDB
// creates both SQLite tables at startup, so only a table backend that creates
// itself on first write reaches the fallbacks built on it.
func isMissingSheet(err error) bool {
	return strings.Contains(err.Error(), "no such table")
}

// FindProfile returns the profile stored for userID.
func (s *SyncService) FindProfile(ctx context.Context, userID string) (model.Profile, error) {
	rows, err := s.profiles.ReadAll(ctx)
	if err != nil {
		return model.Profile{}, classify("read profiles", err)
	}
	for _, row := range rows {
		if row.UserID == userID {
			return ProfileFromRow(row), nil
		}
	}
	return model.Profile{}, remoteErr("read profiles", KindNotFound, ErrUserNotFound)
}

// UpdateProfileField rewrites one column of the user's profile row.
func (s *SyncService) UpdateProfileField(ctx context.Context, userID, column, value string) error {
	return s.UpdateProfileFields(ctx, userID, map[string]string{column: value})
}

// UpdateProfileFields reads the profile sheet, rewrites the given columns of
// the user's row and writes the whole sheet back. Two concurrent updates can
// lose one of the changes.
func (s *SyncService) UpdateProfileFields(ctx context.Context, userID string, fields map[string]string) error {
	const op = "update profile"
	rows, err := s.profiles.ReadAll(ctx)
	if err != nil {
		return classify(op, err)
	}
	idx := -1
	for i := range rows {
		if rows[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return remoteErr(op, KindNotFound, ErrUserNotFound)
	}
	for column, value := range fields {
		if err := rows[idx].Set(column, value); err != nil {
			return classify(op, err)
		}
	}
	if err := s.profiles.ReplaceAll(ctx, rows); err != nil {
		return classify(op, err)
	}
	s.invalidateLeaderboard(ctx)
	return nil
}

func (s *SyncService) invalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("leaderboard invalidate failed", zap.Error(err))
	}
}

// ProfileFromRow parses a profile row. Numbers that do not parse become 0.
func ProfileFromRow(row model.ProfileRow) model.Profile {
	streak := parseCount(row.Streak)
	if streak < 1 {
		streak = 1
	}
	return model.Profile{
		UserID:     row.UserID,
		Name:       row.Name,
		XP:         parseCount(row.XP),
		Streak:     streak,
		LastActive: row.LastActive,
		League:     row.League,
		Avatar:     row.Avatar,
		PIN:        row.PIN,
		MainFocus:  row.MainFocus,
		ThemeMode:  row.ThemeMode,
		ThemeColor: row.ThemeColor,
		AIVoice:    row.AIVoice,
	}
}

func ProfileToRow(p model.Profile) model.ProfileRow {
	return model.ProfileRow{
		UserID:     p.UserID,
		Name:       p.Name,
		XP:         strconv.Itoa(p.XP),
		League:     p.League,
		Avatar:     p.Avatar,
		LastActive: p.LastActive,
		PIN:        p.PIN,
		MainFocus:  p.MainFocus,
		ThemeMode:  p.ThemeMode,
		ThemeColor: p.ThemeColor,
		AIVoice:    p.AIVoice,
		Streak:     strconv.Itoa(p.Streak),
	}
}

// parseCount reads "12", "12.0" or " 12 " as 12; anything else is 0.
func parseCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f >= 0 {
		return int(f)
	}
	return 0
}
