package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"timehunt/internal/model"
)

const notifyQueueSize = 64

// TelegramNotifier delivers alarm alerts to the chat bound to a TimeHunt user.
// Notify only enqueues; Run drains the queue under the Telegram rate limit.
type TelegramNotifier struct {
	out     sender
	limiter *rate.Limiter
	queue   chan tgbotapi.MessageConfig
	log     *zap.Logger

	mu    sync.RWMutex
	chats map[string]int64
}

func NewTelegramNotifier(out sender, perSecond float64, log *zap.Logger) *TelegramNotifier {
	if perSecond <= 0 {
		perSecond = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TelegramNotifier{
		out:     out,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		queue:   make(chan tgbotapi.MessageConfig, notifyQueueSize),
		log:     log.Named("notifier"),
		chats:   make(map[string]int64),
	}
}

// Bind routes alerts for userID to chatID.
func (n *TelegramNotifier) Bind(userID string, chatID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chats[userID] = chatID
}

func (n *TelegramNotifier) Unbind(userID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.chats, userID)
}

func (n *TelegramNotifier) chatFor(userID string) (int64, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	id, ok := n.chats[userID]
	return id, ok
}

// Notify queues the alarm card. Alerts for unbound users and alerts that do
// not fit in the queue are dropped.
func (n *TelegramNotifier) Notify(_ context.Context, userID string, reminder model.Reminder) {
	chatID, ok := n.chatFor(userID)
	if !ok {
		n.log.Debug("no chat bound", zap.String("user_id", userID))
		return
	}
	msg := tgbotapi.NewMessage(chatID, alarmText(reminder))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = alarmKeyboard(reminder.ID)
	select {
	case n.queue <- msg:
	default:
		n.log.Warn("notification dropped, queue full",
			zap.String("user_id", userID),
			zap.String("task", reminder.Task),
		)
	}
}

// Run sends queued alerts until ctx is done.
func (n *TelegramNotifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.queue:
			if err := n.limiter.Wait(ctx); err != nil {
				return
			}
			if _, err := n.out.Send(msg); err != nil {
				n.log.Warn("send alarm", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
			}
		}
	}
}

func alarmText(r model.Reminder) string {
	return fmt.Sprintf("⏰ <b>%s</b>\nDue %s.",
		escape(r.Task), r.Due.Format("2006-01-02 15:04"))
}

func alarmData(action, reminderID string) string {
	return cbAlarmPrefix + action + ":" + reminderID
}

// alarmKeyboard builds the buttons of one alarm card. They act on that
// reminder only.
func alarmKeyboard(reminderID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("😴 Snooze 5m", alarmData(alarmSnooze, reminderID)),
			tgbotapi.NewInlineKeyboardButtonData("🔕 Dismiss", alarmData(alarmDismiss, reminderID)),
			tgbotapi.NewInlineKeyboardButtonData("✅ Done", alarmData(alarmComplete, reminderID)),
		),
	)
}
