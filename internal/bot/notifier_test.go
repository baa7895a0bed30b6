package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap/zaptest"

	"timehunt/internal/model"
)

func TestNotifierDropsUnboundUsers(t *testing.T) {
	n := NewTelegramNotifier(&fakeSender{}, 10, zaptest.NewLogger(t))
	n.Notify(context.Background(), "USER-x", model.Reminder{Task: "call"})
	if len(n.queue) != 0 {
		t.Fatalf("queued for unbound user")
	}

	n.Bind("USER-x", 42)
	n.Unbind("USER-x")
	n.Notify(context.Background(), "USER-x", model.Reminder{Task: "call"})
	if len(n.queue) != 0 {
		t.Fatalf("queued after unbind")
	}
}

func TestNotifierNeverBlocks(t *testing.T) {
	n := NewTelegramNotifier(&fakeSender{}, 10, zaptest.NewLogger(t))
	n.Bind("USER-a", 1)
	for i := 0; i < notifyQueueSize+5; i++ {
		n.Notify(context.Background(), "USER-a", model.Reminder{Task: "x"})
	}
	if len(n.queue) != notifyQueueSize {
		t.Fatalf("queue=%d", len(n.queue))
	}
}

func TestNotifierRunSendsAlarmCard(t *testing.T) {
	out := &fakeSender{}
	n := NewTelegramNotifier(out, 100, zaptest.NewLogger(t))
	n.Bind("USER-a", 55)
	due := time.Date(2025, 1, 1, 9, 0, 0, 0, ist)
	n.Notify(context.Background(), "USER-a", model.Reminder{Task: "<pay> rent", Due: due})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		out.mu.Lock()
		sent := len(out.sent)
		out.mu.Unlock()
		if sent == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("alarm not sent")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	msg := out.sent[0]
	if msg.ChatID != 55 || !strings.Contains(msg.Text, "&lt;pay&gt; rent") || !strings.Contains(msg.Text, "2025-01-01 09:00") {
		t.Fatalf("msg=%+v", msg)
	}
	if _, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Fatalf("alarm card has no buttons")
	}
}
