package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"timehunt/internal/model"
	"timehunt/internal/state"
)

func newTaskFixture(t *testing.T) (*TaskService, *state.Store, *fakeSaver) {
	t.Helper()
	saver := &fakeSaver{}
	svc := NewTaskService(saver, ist, zaptest.NewLogger(t))
	svc.now = fixedClock(time.Date(2025, 2, 3, 3, 0, 0, 0, time.UTC)) // 08:30 IST
	return svc, state.New(model.Profile{UserID: "USER-A"}), saver
}

func TestAddTaskCapturesDifficultyXP(t *testing.T) {
	svc, store, saver := newTaskFixture(t)
	task, err := svc.AddTask(context.Background(), store, TaskInput{Activity: " thesis ", Category: "Study", Difficulty: model.DifficultyMajor})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if task.ID == "" || task.ID != store.Tasks[0].ID {
		t.Fatalf("task id=%q, stored %q", task.ID, store.Tasks[0].ID)
	}
	want := model.Task{ID: task.ID, Date: "2025-02-03", Time: "08:30", Activity: "thesis", Category: "Study", Difficulty: model.DifficultyMajor, XP: 300}
	if task != want {
		t.Fatalf("task=%+v, want %+v", task, want)
	}
	if len(store.Tasks) != 1 || saver.saves != 1 {
		t.Fatalf("tasks=%d saves=%d", len(store.Tasks), saver.saves)
	}
}

func TestAddTaskDefaultsAndValidation(t *testing.T) {
	svc, store, _ := newTaskFixture(t)
	task, err := svc.AddTask(context.Background(), store, TaskInput{Activity: "walk", Date: "2025-02-04", Time: "17:00"})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if task.Difficulty != model.DifficultyMedium || task.XP != 50 || task.Category != "General" {
		t.Fatalf("task=%+v", task)
	}

	if _, err := svc.AddTask(context.Background(), store, TaskInput{Activity: "  "}); !errors.Is(err, ErrEmptyActivity) {
		t.Fatalf("empty activity err=%v", err)
	}
	if _, err := svc.AddTask(context.Background(), store, TaskInput{Activity: "x", Time: "5pm"}); err == nil {
		t.Fatalf("expected error for bad time")
	}
	if len(store.Tasks) != 1 {
		t.Fatalf("invalid input added a task: %+v", store.Tasks)
	}
}

func TestMarkDoneAndRemove(t *testing.T) {
	ctx := context.Background()
	svc, store, saver := newTaskFixture(t)
	store.Tasks = []model.Task{{Activity: "a", XP: 20}, {Activity: "b", XP: 50}}

	done, err := svc.MarkDone(ctx, store, 1)
	if err != nil || !done.Done || !store.Tasks[1].Done {
		t.Fatalf("MarkDone=(%+v,%v)", done, err)
	}
	if done.XP != 50 {
		t.Fatalf("XP changed on completion: %d", done.XP)
	}
	if _, err := svc.MarkDone(ctx, store, 5); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("out of range err=%v", err)
	}

	removed, err := svc.RemoveTask(ctx, store, 0)
	if err != nil || removed.Activity != "a" {
		t.Fatalf("RemoveTask=(%+v,%v)", removed, err)
	}
	if len(store.Tasks) != 1 || store.Tasks[0].Activity != "b" {
		t.Fatalf("tasks=%+v", store.Tasks)
	}
	if saver.saves != 2 {
		t.Fatalf("saves=%d", saver.saves)
	}
}

func TestResetTasks(t *testing.T) {
	svc, store, _ := newTaskFixture(t)
	store.Tasks = []model.Task{{Activity: "a"}, {Activity: "b", Done: true}}
	n, err := svc.ResetTasks(context.Background(), store)
	if err != nil || n != 2 || len(store.Tasks) != 0 {
		t.Fatalf("ResetTasks=(%d,%v) tasks=%+v", n, err, store.Tasks)
	}
}

func TestAddReminder(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTaskFixture(t)

	r, err := svc.AddReminder(ctx, store, "call", "21:15")
	if err != nil {
		t.Fatalf("AddReminder: %v", err)
	}
	if want := time.Date(2025, 2, 3, 21, 15, 0, 0, ist); !r.Due.Equal(want) || r.Notified {
		t.Fatalf("reminder=%+v, want due %v", r, want)
	}

	r, err = svc.AddReminder(ctx, store, "trip", "2025-03-01 06:00")
	if err != nil || r.Due.Day() != 1 || r.Due.Month() != time.March {
		t.Fatalf("AddReminder=(%+v,%v)", r, err)
	}

	if _, err := svc.AddReminder(ctx, store, "x", "soon"); !errors.Is(err, ErrInvalidReminder) {
		t.Fatalf("bad time err=%v", err)
	}
	if len(store.Reminders) != 2 {
		t.Fatalf("reminders=%+v", store.Reminders)
	}
}

func TestImportSchedule(t *testing.T) {
	svc, store, saver := newTaskFixture(t)
	reply := "Here is the plan.\n```json\n[{\"Time\": \"10:00\", \"Activity\": \"Deep work\", \"Category\": \"Work\"}]\n```"

	tasks, err := svc.ImportSchedule(context.Background(), store, reply)
	if err != nil {
		t.Fatalf("ImportSchedule: %v", err)
	}
	if len(tasks) != 1 || len(store.Tasks) != 1 || store.Tasks[0].Date != "2025-02-03" {
		t.Fatalf("tasks=%+v", store.Tasks)
	}
	if saver.saves != 1 {
		t.Fatalf("saves=%d", saver.saves)
	}
}

func TestRemoveReminderAnyState(t *testing.T) {
	ctx := context.Background()
	svc, store, saver := newTaskFixture(t)
	store.Reminders = []model.Reminder{
		{Task: "ringing", Notified: true},
		{Task: "queued", Notified: true},
		{Task: "later"},
	}
	store.AssignIDs()
	store.SetActiveAlarm(0)

	removed, err := svc.RemoveReminder(ctx, store, 1)
	if err != nil || removed.Task != "queued" {
		t.Fatalf("RemoveReminder=(%+v,%v)", removed, err)
	}
	if a := store.ActiveAlarm(); a == nil || a.Task != "ringing" {
		t.Fatalf("active=%+v", a)
	}
	if _, err := svc.RemoveReminder(ctx, store, 2); !errors.Is(err, ErrReminderMissing) {
		t.Fatalf("out of range err=%v", err)
	}
	if len(store.Reminders) != 2 || saver.saves != 1 {
		t.Fatalf("reminders=%+v saves=%d", store.Reminders, saver.saves)
	}
}
