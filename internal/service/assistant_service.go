package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"timehunt/internal/model"
	"timehunt/internal/state"
)

// Assistant answers a prompt given a system context. Implementations live
// outside this module.
type Assistant interface {
	Ask(ctx context.Context, prompt, systemContext string) (string, error)
}

// AssistantReply is the assistant's answer plus any tasks imported from it.
type AssistantReply struct {
	Text     string
	Imported []model.Task
}

// AssistantService puts the session context in front of every question and
// imports schedule blocks found in the answer.
type AssistantService struct {
	assistant Assistant
	summaries *SummaryService
	tasks     *TaskService
	log       *zap.Logger
}

// NewAssistantService accepts a nil assistant; Ask then reports ErrNoAssistant.
func NewAssistantService(assistant Assistant, summaries *SummaryService, tasks *TaskService, log *zap.Logger) *AssistantService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AssistantService{assistant: assistant, summaries: summaries, tasks: tasks, log: log.Named("assistant")}
}

func (s *AssistantService) Configured() bool {
	return s.assistant != nil
}

func (s *AssistantService) Ask(ctx context.Context, store *state.Store, prompt string, now time.Time) (AssistantReply, error) {
	if s.assistant == nil {
		return AssistantReply{}, remoteErr("ask assistant", KindConfigMissing, ErrNoAssistant)
	}
	prompt = strings.TrimSpace(prompt)
	text, err := s.assistant.Ask(ctx, prompt, s.summaries.SystemContext(store, now))
	if err != nil {
		return AssistantReply{}, remoteErr("ask assistant", KindTransient, err)
	}

	reply := AssistantReply{Text: text}
	imported, err := s.tasks.ImportSchedule(ctx, store, text)
	switch {
	case errors.Is(err, ErrNoScheduleBlock):
		return reply, nil
	case err != nil && len(imported) == 0:
		// a broken block is reported but the answer is still useful
		s.log.Warn("schedule block ignored", zap.String("user_id", store.Profile.UserID), zap.Error(err))
		return reply, nil
	}
	reply.Imported = imported
	return reply, err
}
