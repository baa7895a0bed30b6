package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"timehunt/internal/service"
)

// Callback data. Task and reminder buttons end with the record's session ID;
// alarm buttons read "alarm:<action>:<id>".
const (
	cbAlarmPrefix    = "alarm:"
	cbDonePrefix     = "done:"
	cbRemovePrefix   = "remove:"
	cbUnremindPrefix = "unremind:"
	cbFocusPrefix    = "focus:"
	cbClaim          = "claim"
)

const (
	alarmSnooze   = "snooze"
	alarmDismiss  = "dismiss"
	alarmComplete = "complete"
)

const (
	menuLabelNewTask = "➕ New task"
	menuLabelTasks   = "📋 Tasks"
	menuLabelAlarms  = "⏰ Alarms"
	menuLabelStats   = "📊 Stats"
	menuLabelTop     = "🏆 Top 10"
	menuLabelHelp    = "ℹ️ Help"
	btnSkip          = "⏭️ Skip"
	btnCancelDialog  = "⏪ Cancel"
)

// sender is the part of the Telegram API the bot writes through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Services bundles the core the bot drives.
type Services struct {
	Sync      *service.SyncService
	Alarms    *service.AlarmService
	Rewards   *service.RewardService
	Tasks     *service.TaskService
	Profiles  *service.ProfileService
	Summaries *service.SummaryService
	Assistant *service.AssistantService
}

// Bot aggregates the Telegram API with the TimeHunt services.
type Bot struct {
	api      *tgbotapi.BotAPI
	out      sender
	svc      Services
	notifier *TelegramNotifier
	sessions *sessions
	now      func() time.Time
	log      *zap.Logger
}

func New(api *tgbotapi.BotAPI, svc Services, notifier *TelegramNotifier, log *zap.Logger) *Bot {
	b := newBot(api, svc, notifier, log)
	b.api = api
	return b
}

func newBot(out sender, svc Services, notifier *TelegramNotifier, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		out:      out,
		svc:      svc,
		notifier: notifier,
		sessions: newSessions(),
		now:      time.Now,
		log:      log.Named("bot"),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot has no telegram api")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates", zap.String("account", b.api.Self.UserName))

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Warn("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Warn("handle message", zap.Error(err))
			}
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	s := b.sessions.get(msg.From.ID, msg.Chat.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	err := b.dispatch(ctx, s, msg)
	if s.loggedIn() {
		b.tick(ctx, s, b.now())
	}
	return err
}

func (b *Bot) dispatch(ctx context.Context, s *session, msg *tgbotapi.Message) error {
	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		s.conv = nil
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}
	if msg.IsCommand() {
		b.log.Debug("command",
			zap.Int64("tg_user", msg.From.ID),
			zap.String("command", msg.Command()),
		)
		s.conv = nil
		return b.handleCommand(ctx, s, msg)
	}
	if handled, err := b.handleMenuAlias(ctx, s, msg); handled {
		return err
	}
	if s.conv != nil {
		return b.handleConversation(ctx, s, msg)
	}
	if s.loggedIn() && b.svc.Assistant != nil && b.svc.Assistant.Configured() {
		return b.ask(ctx, s, msg.Chat.ID, msg.Text)
	}
	return b.sendText(msg.Chat.ID, "I did not get that. Try /help for the list of commands.")
}

func (b *Bot) handleMenuAlias(ctx context.Context, s *session, msg *tgbotapi.Message) (bool, error) {
	chatID := msg.Chat.ID
	switch strings.TrimSpace(msg.Text) {
	case menuLabelNewTask:
		return true, b.startTaskConversation(s, chatID)
	case menuLabelTasks:
		return true, b.handleTasks(s, chatID)
	case menuLabelAlarms:
		return true, b.handleReminders(s, chatID)
	case menuLabelStats:
		return true, b.handleStats(s, chatID)
	case menuLabelTop:
		return true, b.handleTop(ctx, chatID)
	case menuLabelHelp:
		return true, b.handleHelp(chatID)
	default:
		return false, nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}

	s := b.sessions.get(cb.From.ID, cb.Message.Chat.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	chatID := cb.Message.Chat.ID
	if !s.loggedIn() {
		return b.sendText(chatID, "Your session has ended. Log in again with /login.")
	}

	data := cb.Data
	b.log.Debug("callback", zap.Int64("tg_user", cb.From.ID), zap.String("data", data))
	switch {
	case strings.HasPrefix(data, cbAlarmPrefix):
		return b.handleAlarmButton(ctx, s, chatID, strings.TrimPrefix(data, cbAlarmPrefix))
	case data == cbClaim:
		return b.handleClaim(ctx, s, chatID)
	case strings.HasPrefix(data, cbDonePrefix):
		return b.handleTaskButton(ctx, s, chatID, strings.TrimPrefix(data, cbDonePrefix), b.markDone)
	case strings.HasPrefix(data, cbRemovePrefix):
		return b.handleTaskButton(ctx, s, chatID, strings.TrimPrefix(data, cbRemovePrefix), b.removeTask)
	case strings.HasPrefix(data, cbUnremindPrefix):
		return b.handleUnremindButton(ctx, s, chatID, strings.TrimPrefix(data, cbUnremindPrefix))
	case strings.HasPrefix(data, cbFocusPrefix):
		return b.claimFocus(ctx, s, chatID, strings.TrimPrefix(data, cbFocusPrefix))
	default:
		return nil
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

// sendResult sends text followed by a sync warning when err is a remote failure.
// Other errors are shown as-is.
func (b *Bot) sendResult(chatID int64, text string, err error) error {
	if err != nil {
		if note := syncNote(err); note != "" {
			text += "\n\n" + note
		} else {
			text = fmt.Sprintf("⚠️ %s", escape(err.Error()))
		}
	}
	return b.sendText(chatID, text)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelAlarms),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelTop),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func optionsKeyboard(options ...string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(options); i += 2 {
		row := []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(options[i])}
		if i+1 < len(options) {
			row = append(row, tgbotapi.NewKeyboardButton(options[i+1]))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return optionsKeyboard()
}
