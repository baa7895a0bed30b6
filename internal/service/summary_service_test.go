package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"timehunt/internal/model"
	"timehunt/internal/state"
)

func TestAnalyticsWithNoTasks(t *testing.T) {
	svc := NewSummaryService(ist)
	store := state.New(model.Profile{UserID: "USER-A", XP: 0})
	out := svc.Analytics(store)
	if !strings.Contains(out, "Success Rate: 0%") {
		t.Fatalf("analytics=%q", out)
	}
	if !strings.Contains(out, "Level: 1 (Starter)") {
		t.Fatalf("analytics=%q", out)
	}
}

func TestAnalyticsRate(t *testing.T) {
	svc := NewSummaryService(ist)
	store := state.New(model.Profile{UserID: "USER-A", XP: 4200, Streak: 7})
	store.Tasks = []model.Task{{Done: true}, {Done: true}, {}}
	out := svc.Analytics(store)
	for _, want := range []string{"Success Rate: 66%", "Level: 5 (Achiever)", "x1.5", "Tasks: 3, completed: 2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("analytics missing %q: %q", want, out)
		}
	}
}

func TestSystemContextListsTodayOnly(t *testing.T) {
	svc := NewSummaryService(ist)
	now := time.Date(2025, 1, 1, 9, 15, 0, 0, ist)
	store := state.New(model.Profile{UserID: "USER-A", Name: "ana", XP: 10})
	store.Tasks = []model.Task{
		{Date: "2025-01-01", Time: "18:00", Activity: "gym", Category: "Health"},
		{Date: "2025-01-01", Time: "08:00", Activity: "read", Category: "Study", Done: true},
		{Date: "2025-01-02", Time: "08:00", Activity: "tomorrow", Category: "Work"},
	}
	store.Reminders = []model.Reminder{
		{Task: "call", Due: time.Date(2025, 1, 1, 12, 0, 0, 0, ist)},
		{Task: "old", Due: time.Date(2025, 1, 1, 7, 0, 0, 0, ist), Notified: true},
	}

	out := svc.SystemContext(store, now)
	if !strings.Contains(out, "Date: 2025-01-01 | Time: 09:15") {
		t.Fatalf("context=%q", out)
	}
	readAt := strings.Index(out, "read")
	gymAt := strings.Index(out, "gym")
	if readAt < 0 || gymAt < 0 || readAt > gymAt {
		t.Fatalf("schedule not in time order: %q", out)
	}
	if strings.Contains(out, "tomorrow") {
		t.Fatalf("other days leaked into context: %q", out)
	}
	if !strings.Contains(out, "- call at 2025-01-01 12:00") || strings.Contains(out, "- old at") {
		t.Fatalf("reminders section wrong: %q", out)
	}
}

func TestScheduleForDate(t *testing.T) {
	svc := NewSummaryService(ist)
	store := state.New(model.Profile{UserID: "USER-A"})
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, ist)
	if got := svc.Schedule(store, "", now); got != "No tasks scheduled for 2025-01-01." {
		t.Fatalf("Schedule=%q", got)
	}
	store.Tasks = []model.Task{{Date: "2025-01-03", Time: "10:00", Activity: "dentist", Category: "Health"}}
	if got := svc.Schedule(store, "2025-01-03", now); !strings.Contains(got, "- [Pending] 10:00: dentist (Health)") {
		t.Fatalf("Schedule=%q", got)
	}
}

func TestMissionReportShowsLastTenEntries(t *testing.T) {
	svc := NewSummaryService(ist)
	store := state.New(model.Profile{UserID: "USER-A", Name: "ana"})
	for i := 1; i <= 12; i++ {
		store.AppendXP(model.XPEvent{Date: fmt.Sprintf("2025-01-%02d", i), XP: i})
	}
	out := svc.MissionReport(store, time.Date(2025, 1, 12, 20, 0, 0, 0, ist))
	if strings.Contains(out, "2025-01-01:") || strings.Contains(out, "2025-01-02:") {
		t.Fatalf("report includes old entries: %q", out)
	}
	if !strings.Contains(out, "2025-01-03: +3 XP") || !strings.Contains(out, "2025-01-12: +12 XP") {
		t.Fatalf("report=%q", out)
	}
	if !strings.Contains(out, "Total XP: 78") {
		t.Fatalf("report=%q", out)
	}
}

func TestDailyDigestEscapesHTML(t *testing.T) {
	svc := NewSummaryService(ist)
	now := time.Date(2025, 1, 1, 7, 0, 0, 0, ist)
	store := state.New(model.Profile{UserID: "USER-A", Streak: 3})
	store.Tasks = []model.Task{{Date: "2025-01-01", Time: "09:00", Activity: "<b>R&D</b>", Category: "Work", XP: 150}}
	out := svc.DailyDigest(store, now)
	if !strings.Contains(out, "&lt;b&gt;R&amp;D&lt;/b&gt;") {
		t.Fatalf("digest not escaped: %q", out)
	}
	if !strings.Contains(out, "no alarms set") || !strings.Contains(out, "Streak: 3 · x1.2") {
		t.Fatalf("digest=%q", out)
	}
}
