package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"timehunt/internal/gamification"
	"timehunt/internal/model"
	"timehunt/internal/state"
)

// ProfileUpdater rewrites columns of one profile row.
type ProfileUpdater interface {
	UpdateProfileFields(ctx context.Context, userID string, fields map[string]string) error
}

// ClaimResult describes one task-batch claim.
type ClaimResult struct {
	Claimed    []model.Task
	Awarded    int
	Multiplier float64
	Level      int
}

// RewardService turns completed work into XP.
type RewardService struct {
	saver    Saver
	profiles ProfileUpdater
	loc      *time.Location
	now      func() time.Time
	log      *zap.Logger
}

func NewRewardService(saver Saver, profiles ProfileUpdater, loc *time.Location, log *zap.Logger) *RewardService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RewardService{saver: saver, profiles: profiles, loc: loc, now: time.Now, log: log.Named("reward")}
}

// ClaimTasks awards floor(sum * multiplier) for every completed task, records
// one ledger entry and archives exactly the completed tasks. The in-memory
// award stands even when persisting it fails.
func (s *RewardService) ClaimTasks(ctx context.Context, store *state.Store) (ClaimResult, error) {
	completed := store.CompletedTasks()
	if len(completed) == 0 {
		return ClaimResult{}, ErrNothingToClaim
	}
	xps := make([]int, len(completed))
	for i, t := range completed {
		xps[i] = t.XP
	}
	streak := store.Profile.Streak
	res := ClaimResult{
		Awarded:    gamification.AwardForBatch(xps, streak),
		Multiplier: gamification.Multiplier(streak),
	}
	res.Claimed = store.RemoveCompleted()
	s.award(store, res.Awarded)
	res.Level = gamification.Level(store.Profile.XP)

	s.log.Info("tasks claimed",
		zap.String("user_id", store.Profile.UserID),
		zap.Int("tasks", len(res.Claimed)),
		zap.Int("awarded", res.Awarded),
		zap.Float64("multiplier", res.Multiplier),
	)
	return res, s.persist(ctx, store)
}

// ClaimFocusSession awards the fixed XP for a focus session the user has
// certified as completed.
func (s *RewardService) ClaimFocusSession(ctx context.Context, store *state.Store, minutes int, verified bool) (int, error) {
	if !verified {
		return 0, ErrNotVerified
	}
	xp := gamification.FocusSessionXP(minutes)
	s.award(store, xp)
	s.log.Info("focus session claimed",
		zap.String("user_id", store.Profile.UserID),
		zap.Int("minutes", minutes),
		zap.Int("awarded", xp),
	)
	if err := s.profiles.UpdateProfileFields(ctx, store.Profile.UserID, map[string]string{
		"XP": strconv.Itoa(store.Profile.XP),
	}); err != nil {
		return xp, err
	}
	return xp, nil
}

func (s *RewardService) award(store *state.Store, xp int) {
	store.AppendXP(model.XPEvent{
		Date: s.now().In(s.loc).Format(dateLayout),
		XP:   xp,
	})
}

func (s *RewardService) persist(ctx context.Context, store *state.Store) error {
	saveErr := s.saver.Save(ctx, store)
	profileErr := s.profiles.UpdateProfileFields(ctx, store.Profile.UserID, map[string]string{
		"XP": strconv.Itoa(store.Profile.XP),
	})
	return errors.Join(saveErr, profileErr)
}
