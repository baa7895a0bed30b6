package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"timehunt/internal/model"
	"timehunt/internal/state"
)

// SnoozeDelay is added to a reminder's due time on snooze.
const SnoozeDelay = 5 * time.Minute

// Notifier delivers a best-effort alert for a triggered reminder. It must not block.
type Notifier interface {
	Notify(ctx context.Context, userID string, reminder model.Reminder)
}

// Saver persists a store snapshot.
type Saver interface {
	Save(ctx context.Context, store *state.Store) error
}

// TickResult reports what one tick changed.
type TickResult struct {
	Triggered []int
	Active    *state.ActiveAlarm
}

// AlarmService drives the reminder state machine:
// pending -> triggered -> snoozed (pending again) | dismissed | completed.
type AlarmService struct {
	saver    Saver
	notifier Notifier
	loc      *time.Location
	log      *zap.Logger
}

func NewAlarmService(saver Saver, notifier Notifier, loc *time.Location, log *zap.Logger) *AlarmService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AlarmService{saver: saver, notifier: notifier, loc: loc, log: log.Named("alarm")}
}

// Tick triggers every armed reminder whose due time has passed. Each one is
// marked notified and announced once. The first of them becomes the active
// alarm unless one is already waiting for acknowledgement. The store is saved
// when anything triggered; the save error is returned with the result.
func (s *AlarmService) Tick(ctx context.Context, store *state.Store, now time.Time) (TickResult, error) {
	now = now.In(s.loc)
	store.AssignIDs()
	var res TickResult
	for i := range store.Reminders {
		r := &store.Reminders[i]
		if r.Notified || !r.Armed() || now.Before(r.Due) {
			continue
		}
		r.Notified = true
		res.Triggered = append(res.Triggered, i)
		if s.notifier != nil {
			s.notifier.Notify(ctx, store.Profile.UserID, *r)
		}
	}
	if len(res.Triggered) > 0 && store.ActiveAlarm() == nil {
		store.SetActiveAlarm(res.Triggered[0])
	}
	res.Active = store.ActiveAlarm()
	if len(res.Triggered) == 0 {
		return res, nil
	}

	s.log.Info("reminders triggered",
		zap.String("user_id", store.Profile.UserID),
		zap.Ints("indices", res.Triggered),
	)
	if err := s.saver.Save(ctx, store); err != nil {
		s.log.Warn("save after trigger failed", zap.String("user_id", store.Profile.UserID), zap.Error(err))
		return res, err
	}
	return res, nil
}

// activeIndex returns the index of the active alarm, clearing a pointer that
// no longer refers to the same reminder.
func activeIndex(store *state.Store) (int, error) {
	a := store.ActiveAlarm()
	if a == nil {
		return 0, ErrNoActiveAlarm
	}
	if a.Index < 0 || a.Index >= len(store.Reminders) || store.Reminders[a.Index].ID != a.ID || store.Reminders[a.Index].Task != a.Task {
		store.ClearActiveAlarm()
		return 0, ErrNoActiveAlarm
	}
	return a.Index, nil
}

// Activate makes the triggered reminder at index the active alarm, so an
// alert that was queued behind another one can be acknowledged. It fails with
// ErrAlarmBusy while a different alarm waits for acknowledgement and with
// ErrNoActiveAlarm when the reminder has not triggered.
func (s *AlarmService) Activate(store *state.Store, index int) error {
	if index < 0 || index >= len(store.Reminders) {
		return ErrReminderMissing
	}
	if idx, err := activeIndex(store); err == nil {
		if idx == index {
			return nil
		}
		return ErrAlarmBusy
	}
	if !store.Reminders[index].Notified {
		return ErrNoActiveAlarm
	}
	store.SetActiveAlarm(index)
	return nil
}

// Snooze re-arms the active alarm SnoozeDelay after its previous due time.
func (s *AlarmService) Snooze(ctx context.Context, store *state.Store) (model.Reminder, error) {
	idx, err := activeIndex(store)
	if err != nil {
		return model.Reminder{}, err
	}
	r := &store.Reminders[idx]
	r.Due = r.Due.Add(SnoozeDelay)
	r.Notified = false
	store.ClearActiveAlarm()
	snoozed := *r
	return snoozed, s.saver.Save(ctx, store)
}

// Dismiss drops the active pointer. The reminder stays notified and is not
// triggered again.
func (s *AlarmService) Dismiss(store *state.Store) (model.Reminder, error) {
	idx, err := activeIndex(store)
	if err != nil {
		return model.Reminder{}, err
	}
	store.ClearActiveAlarm()
	return store.Reminders[idx], nil
}

// Complete removes the active reminder from the collection.
func (s *AlarmService) Complete(ctx context.Context, store *state.Store) (model.Reminder, error) {
	idx, err := activeIndex(store)
	if err != nil {
		return model.Reminder{}, err
	}
	done := store.RemoveReminder(idx)
	return done, s.saver.Save(ctx, store)
}
