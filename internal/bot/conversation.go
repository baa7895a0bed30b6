package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"timehunt/internal/model"
	"timehunt/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageRegisterName
	stageRegisterPIN
	stageRegisterAvatar
	stageRegisterFocus
	stageLoginName
	stageLoginPIN
	stageTaskActivity
	stageTaskCategory
	stageTaskDifficulty
	stageTaskTime
)

type conversationState struct {
	stage     conversationStage
	register  service.RegisterInput
	task      service.TaskInput
	loginName string
}

var (
	avatarOptions     = []string{"🧑‍🎓 Scholar", "👨‍💻 Techie", "🏃 Athlete", "🎨 Creator"}
	focusOptions      = []string{"Finish Tasks", "Study", "Work", "Fitness"}
	categoryOptions   = []string{"Study", "Work", "Health", "Errand", "Skill", btnSkip}
	difficultyOptions = []string{"Easy (20 XP)", "Medium (50 XP)", "Hard (150 XP)", "Major (300 XP)"}
)

func (b *Bot) startRegisterConversation(s *session, chatID int64) error {
	s.conv = &conversationState{stage: stageRegisterName}
	return b.sendWithReplyMarkup(chatID, "🆕 New hunter.\n<b>Step 1:</b> pick a name.", cancelKeyboard())
}

func (b *Bot) startTaskConversation(s *session, chatID int64) error {
	if !s.loggedIn() {
		return b.sendText(chatID, loginHint)
	}
	s.conv = &conversationState{stage: stageTaskActivity}
	return b.sendWithReplyMarkup(chatID, "🆕 New task.\n<b>Step 1:</b> what is the activity?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, s *session, msg *tgbotapi.Message) error {
	st := s.conv
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	b.log.Debug("conversation step", zap.Int64("tg_user", msg.From.ID), zap.Int("stage", int(st.stage)))

	switch st.stage {
	case stageRegisterName:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "The name cannot be empty.", cancelKeyboard())
		}
		st.register.Name = text
		st.stage = stageRegisterPIN
		return b.sendWithReplyMarkup(chatID, "<b>Step 2:</b> choose a PIN of up to 4 digits.", cancelKeyboard())
	case stageRegisterPIN:
		if _, ok := service.NormalizePIN(text); !ok {
			return b.sendWithReplyMarkup(chatID, "A PIN is 1 to 4 digits. Try again.", cancelKeyboard())
		}
		st.register.PIN = text
		st.stage = stageRegisterAvatar
		return b.sendWithReplyMarkup(chatID, "<b>Step 3:</b> pick an avatar.", optionsKeyboard(avatarOptions...))
	case stageRegisterAvatar:
		st.register.Avatar = text
		st.stage = stageRegisterFocus
		return b.sendWithReplyMarkup(chatID, "<b>Step 4:</b> what is your main focus?", optionsKeyboard(focusOptions...))
	case stageRegisterFocus:
		st.register.MainFocus = text
		s.conv = nil
		return b.finishRegistration(ctx, s, chatID, st.register)
	case stageLoginName:
		st.loginName = text
		st.stage = stageLoginPIN
		return b.sendWithReplyMarkup(chatID, "🔢 Your PIN?", cancelKeyboard())
	case stageLoginPIN:
		s.conv = nil
		return b.login(ctx, s, chatID, st.loginName, text)
	case stageTaskActivity:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "The activity cannot be empty.", cancelKeyboard())
		}
		st.task.Activity = text
		st.stage = stageTaskCategory
		return b.sendWithReplyMarkup(chatID, "<b>Step 2:</b> pick a category or type your own.", optionsKeyboard(categoryOptions...))
	case stageTaskCategory:
		if !isSkipInput(text) {
			st.task.Category = text
		}
		st.stage = stageTaskDifficulty
		return b.sendWithReplyMarkup(chatID, "<b>Step 3:</b> how hard is it?", optionsKeyboard(difficultyOptions...))
	case stageTaskDifficulty:
		d, ok := model.ParseDifficulty(text)
		if !ok {
			return b.sendWithReplyMarkup(chatID, "Pick one of the buttons.", optionsKeyboard(difficultyOptions...))
		}
		st.task.Difficulty = d
		st.stage = stageTaskTime
		return b.sendWithReplyMarkup(chatID,
			"<b>Step 4:</b> when? Send <code>HH:MM</code> or <code>YYYY-MM-DD HH:MM</code>, or skip for now.",
			optionsKeyboard(btnSkip))
	case stageTaskTime:
		if !isSkipInput(text) {
			date, at, err := splitTaskTime(text)
			if err != nil {
				return b.sendWithReplyMarkup(chatID, escape(err.Error()), optionsKeyboard(btnSkip))
			}
			st.task.Date, st.task.Time = date, at
		}
		s.conv = nil
		return b.finishTaskCreation(ctx, s, chatID, st.task)
	default:
		s.conv = nil
		return b.sendText(chatID, "Dialog reset. Start again from the menu.")
	}
}

func (b *Bot) finishRegistration(ctx context.Context, s *session, chatID int64, in service.RegisterInput) error {
	profile, err := b.svc.Profiles.Register(ctx, in)
	switch {
	case errors.Is(err, service.ErrNameTaken):
		return b.sendText(chatID, "That name is taken. Start again with /register.")
	case errors.Is(err, service.ErrInvalidPIN):
		return b.sendText(chatID, "A PIN is 1 to 4 digits. Start again with /register.")
	case err != nil:
		return b.sendResult(chatID, "Registration failed.", err)
	}
	b.log.Info("registered", zap.String("user_id", profile.UserID))
	loadErr := b.startSession(ctx, s, profile)
	text := fmt.Sprintf("🎉 Welcome, %s <b>%s</b>! Your PIN is <code>%s</code>. Add a first task with /add.",
		escape(profile.Avatar), escape(profile.Name), profile.PIN)
	return b.sendResult(chatID, text, loadErr)
}

func (b *Bot) finishTaskCreation(ctx context.Context, s *session, chatID int64, in service.TaskInput) error {
	task, err := b.svc.Tasks.AddTask(ctx, s.store, in)
	if err != nil && service.Kind(err) == 0 {
		return b.sendText(chatID, "Could not add the task: "+escape(err.Error()))
	}
	text := fmt.Sprintf("✅ <b>Task saved</b>\n%s", taskLine(len(s.store.Tasks)-1, task))
	return b.sendResult(chatID, text, err)
}

// splitTaskTime accepts "HH:MM" or "YYYY-MM-DD HH:MM".
func splitTaskTime(text string) (date, at string, err error) {
	fields := strings.Fields(text)
	switch len(fields) {
	case 1:
		at = fields[0]
	case 2:
		date, at = fields[0], fields[1]
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return "", "", fmt.Errorf("date %q: want YYYY-MM-DD", date)
		}
	default:
		return "", "", fmt.Errorf("send HH:MM or YYYY-MM-DD HH:MM")
	}
	if _, err := time.Parse("15:04", at); err != nil {
		return "", "", fmt.Errorf("time %q: want HH:MM", at)
	}
	return date, at, nil
}
