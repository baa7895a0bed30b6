package service

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"timehunt/internal/gamification"
	"timehunt/internal/model"
	"timehunt/internal/state"
)

const reportLedgerSize = 10

// SummaryService builds text views of a session: the assistant context,
// the mission report and the daily digest.
type SummaryService struct {
	loc *time.Location
}

func NewSummaryService(loc *time.Location) *SummaryService {
	if loc == nil {
		loc = time.UTC
	}
	return &SummaryService{loc: loc}
}

// SystemContext is the prompt prefix handed to the assistant with every question.
func (s *SummaryService) SystemContext(store *state.Store, now time.Time) string {
	now = now.In(s.loc)
	today := now.Format(dateLayout)
	p := store.Profile

	var b strings.Builder
	b.WriteString("IDENTITY: You are TimeHunt AI, a productivity mentor.\n")
	fmt.Fprintf(&b, "USER PROFILE: %s | XP: %d | Level: %d | Focus: %s\n", p.Name, p.XP, gamification.Level(p.XP), p.MainFocus)
	fmt.Fprintf(&b, "CURRENT CONTEXT: Date: %s | Time: %s\n\n", today, now.Format(clockLayout))

	b.WriteString("[SCHEDULE]\n")
	todays := tasksOn(store.Tasks, today, true)
	if len(todays) == 0 {
		b.WriteString("No specific plans for today.\n")
	}
	for _, t := range todays {
		fmt.Fprintf(&b, "- %s: %s (%s) [%s]\n", t.Time, t.Activity, t.Category, status(t.Done))
	}

	b.WriteString("\n[REMINDERS]\n")
	b.WriteString(s.PendingReminders(store))

	b.WriteString("\nTo add tasks, reply with a ```json block holding a list of {\"Time\", \"Activity\", \"Category\"} objects.\n")
	return b.String()
}

// Schedule lists the tasks dated date, or today when date is empty.
func (s *SummaryService) Schedule(store *state.Store, date string, now time.Time) string {
	if date == "" {
		date = now.In(s.loc).Format(dateLayout)
	}
	tasks := tasksOn(store.Tasks, date, false)
	if len(tasks) == 0 {
		return fmt.Sprintf("No tasks scheduled for %s.", date)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Schedule for %s:\n", date)
	for _, t := range tasks {
		fmt.Fprintf(&b, "- [%s] %s: %s (%s)\n", status(t.Done), t.Time, t.Activity, t.Category)
	}
	return b.String()
}

// PendingReminders lists reminders that have not fired yet.
func (s *SummaryService) PendingReminders(store *state.Store) string {
	var b strings.Builder
	for _, r := range store.Reminders {
		if r.Notified {
			continue
		}
		fmt.Fprintf(&b, "- %s at %s\n", r.Task, s.reminderTime(r))
	}
	if b.Len() == 0 {
		return "No pending reminders.\n"
	}
	return b.String()
}

// Analytics summarises level, XP and task completion.
func (s *SummaryService) Analytics(store *state.Store) string {
	total := len(store.Tasks)
	done := len(store.CompletedTasks())
	level := gamification.Level(store.Profile.XP)
	var b strings.Builder
	fmt.Fprintf(&b, "Level: %d (%s)\n", level, gamification.RankTitle(level))
	fmt.Fprintf(&b, "Total XP: %d\n", store.Profile.XP)
	fmt.Fprintf(&b, "Streak: %d days (x%.1f)\n", store.Profile.Streak, gamification.Multiplier(store.Profile.Streak))
	fmt.Fprintf(&b, "Tasks: %d, completed: %d\n", total, done)
	fmt.Fprintf(&b, "Success Rate: %d%%\n", gamification.SuccessRate(done, total))
	return b.String()
}

// MissionReport is the exportable progress report with the latest ledger entries.
func (s *SummaryService) MissionReport(store *state.Store, now time.Time) string {
	p := store.Profile
	level := gamification.Level(p.XP)
	var b strings.Builder
	b.WriteString("TIMEHUNT MISSION REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.In(s.loc).Format(dateTimeLayout))
	fmt.Fprintf(&b, "Agent: %s\n", p.Name)
	fmt.Fprintf(&b, "Level: %d (%s)\n", level, gamification.RankTitle(level))
	fmt.Fprintf(&b, "Total XP: %d\n\n", p.XP)

	b.WriteString("Recent activity:\n")
	history := store.XPHistory
	if len(history) > reportLedgerSize {
		history = history[len(history)-reportLedgerSize:]
	}
	if len(history) == 0 {
		b.WriteString("- no XP earned this session\n")
	}
	for _, e := range history {
		fmt.Fprintf(&b, "- %s: +%d XP\n", e.Date, e.XP)
	}
	return b.String()
}

// DailyDigest is the HTML morning message: today's pending tasks and alarms.
func (s *SummaryService) DailyDigest(store *state.Store, now time.Time) string {
	now = now.In(s.loc)
	today := now.Format(dateLayout)

	var b strings.Builder
	b.WriteString("📋 <b>Daily briefing</b>\n")
	fmt.Fprintf(&b, "🗓 %s\n\n", now.Format("02.01.2006"))

	b.WriteString("🔥 <b>Today's plan</b>\n")
	var pending []model.Task
	for _, t := range tasksOn(store.Tasks, today, true) {
		if !t.Done {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		b.WriteString("· nothing scheduled\n")
	}
	for _, t := range pending {
		fmt.Fprintf(&b, "🟢 %s %s <i>(%s, %d XP)</i>\n",
			html.EscapeString(t.Time), html.EscapeString(t.Activity), html.EscapeString(t.Category), t.XP)
	}

	b.WriteString("\n⏰ <b>Alarms</b>\n")
	var alarms []model.Reminder
	for _, r := range store.Reminders {
		if !r.Notified && r.Armed() {
			alarms = append(alarms, r)
		}
	}
	sort.SliceStable(alarms, func(i, j int) bool { return alarms[i].Due.Before(alarms[j].Due) })
	if len(alarms) == 0 {
		b.WriteString("· no alarms set\n")
	}
	for _, r := range alarms {
		icon := "⏳"
		if now.After(r.Due) {
			icon = "⚠️"
		}
		fmt.Fprintf(&b, "%s %s · %s\n", icon, html.EscapeString(r.Task), s.reminderTime(r))
	}

	fmt.Fprintf(&b, "\n🔥 Streak: %d · x%.1f", store.Profile.Streak, gamification.Multiplier(store.Profile.Streak))
	return strings.TrimSpace(b.String())
}

func (s *SummaryService) reminderTime(r model.Reminder) string {
	if !r.Armed() {
		return r.Raw
	}
	return r.Due.In(s.loc).Format(dateTimeLayout)
}

// tasksOn returns tasks dated date in time order. Undated tasks count as
// today's when includeUndated is set.
func tasksOn(tasks []model.Task, date string, includeUndated bool) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.Date == date || (includeUndated && t.Date == "") {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}
