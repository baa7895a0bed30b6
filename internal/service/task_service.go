package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"timehunt/internal/model"
	"timehunt/internal/state"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Activity   string
	Category   string
	Difficulty model.Difficulty
	// Date and Time default to now in the configured zone.
	Date string
	Time string
}

// TaskService wraps task and reminder edits. Every edit is followed by a save;
// the edit stays in the store when the save fails.
type TaskService struct {
	saver Saver
	loc   *time.Location
	now   func() time.Time
	log   *zap.Logger
}

func NewTaskService(saver Saver, loc *time.Location, log *zap.Logger) *TaskService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskService{saver: saver, loc: loc, now: time.Now, log: log.Named("tasks")}
}

func (s *TaskService) clock() time.Time {
	return s.now().In(s.loc)
}

// AddTask appends a task whose XP is fixed from its difficulty at creation.
func (s *TaskService) AddTask(ctx context.Context, store *state.Store, input TaskInput) (model.Task, error) {
	activity := strings.TrimSpace(input.Activity)
	if activity == "" {
		return model.Task{}, ErrEmptyActivity
	}
	difficulty := input.Difficulty
	if !difficulty.IsValid() {
		difficulty = model.DefaultDifficulty
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = model.DefaultCategory
	}
	now := s.clock()
	date := strings.TrimSpace(input.Date)
	if date == "" {
		date = now.Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return model.Task{}, fmt.Errorf("date %q: want YYYY-MM-DD", date)
	}
	at := strings.TrimSpace(input.Time)
	if at == "" {
		at = now.Format(clockLayout)
	} else if _, err := time.Parse(clockLayout, at); err != nil {
		return model.Task{}, fmt.Errorf("time %q: want HH:MM", at)
	}

	task := model.Task{
		Date:       date,
		Time:       at,
		Activity:   activity,
		Category:   category,
		Difficulty: difficulty,
		XP:         difficulty.XP(),
	}
	store.Tasks = append(store.Tasks, task)
	store.AssignIDs()
	task = store.Tasks[len(store.Tasks)-1]
	return task, s.saver.Save(ctx, store)
}

// MarkDone flips the completion flag of the task at index.
func (s *TaskService) MarkDone(ctx context.Context, store *state.Store, index int) (model.Task, error) {
	if index < 0 || index >= len(store.Tasks) {
		return model.Task{}, ErrTaskNotFound
	}
	t := &store.Tasks[index]
	if t.Done {
		return *t, nil
	}
	t.Done = true
	return *t, s.saver.Save(ctx, store)
}

// RemoveTask deletes the task at index without awarding anything.
func (s *TaskService) RemoveTask(ctx context.Context, store *state.Store, index int) (model.Task, error) {
	if index < 0 || index >= len(store.Tasks) {
		return model.Task{}, ErrTaskNotFound
	}
	removed := store.Tasks[index]
	store.Tasks = append(store.Tasks[:index], store.Tasks[index+1:]...)
	return removed, s.saver.Save(ctx, store)
}

// ResetTasks deletes every task.
func (s *TaskService) ResetTasks(ctx context.Context, store *state.Store) (int, error) {
	n := len(store.Tasks)
	store.Tasks = []model.Task{}
	s.log.Info("tasks reset", zap.String("user_id", store.Profile.UserID), zap.Int("removed", n))
	return n, s.saver.Save(ctx, store)
}

// AddReminder arms a reminder at a "YYYY-MM-DD HH:MM" time or at HH:MM today.
func (s *TaskService) AddReminder(ctx context.Context, store *state.Store, task, at string) (model.Reminder, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return model.Reminder{}, ErrEmptyActivity
	}
	due, ok := ParseReminderTime(at, s.clock())
	if !ok {
		return model.Reminder{}, ErrInvalidReminder
	}
	store.Reminders = append(store.Reminders, model.Reminder{Task: task, Due: due})
	store.AssignIDs()
	return store.Reminders[len(store.Reminders)-1], s.saver.Save(ctx, store)
}

// RemoveReminder deletes the reminder at index whether or not it has fired.
func (s *TaskService) RemoveReminder(ctx context.Context, store *state.Store, index int) (model.Reminder, error) {
	if index < 0 || index >= len(store.Reminders) {
		return model.Reminder{}, ErrReminderMissing
	}
	removed := store.RemoveReminder(index)
	return removed, s.saver.Save(ctx, store)
}

// ImportSchedule appends the tasks found in an assistant reply.
func (s *TaskService) ImportSchedule(ctx context.Context, store *state.Store, reply string) ([]model.Task, error) {
	tasks, err := ParseAISchedule(reply, s.clock())
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	store.Tasks = append(store.Tasks, tasks...)
	store.AssignIDs()
	s.log.Info("schedule imported", zap.String("user_id", store.Profile.UserID), zap.Int("tasks", len(tasks)))
	return tasks, s.saver.Save(ctx, store)
}
