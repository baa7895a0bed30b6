package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"timehunt/internal/model"
	"timehunt/internal/service"
	"timehunt/internal/state"
)

// maxTaskButtons caps the inline keyboard under a task list.
const maxTaskButtons = 20

func escape(s string) string {
	return html.EscapeString(s)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel"
}

// parseIndex turns a 1-based task number into a slice index.
func parseIndex(arg string, n int) (int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, fmt.Errorf("send a task number, for example /done 1")
	}
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > n {
		if n == 0 {
			return 0, fmt.Errorf("there are no tasks yet")
		}
		return 0, fmt.Errorf("task number must be between 1 and %d", n)
	}
	return i - 1, nil
}

// parseReminderArgs splits "[YYYY-MM-DD] HH:MM text" into the time and the task.
func parseReminderArgs(args string) (at, task string, ok bool) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", false
	}
	if _, err := time.Parse("2006-01-02", fields[0]); err == nil {
		if len(fields) < 3 {
			return "", "", false
		}
		if _, err := time.Parse("15:04", fields[1]); err != nil {
			return "", "", false
		}
		return fields[0] + " " + fields[1], strings.Join(fields[2:], " "), true
	}
	if _, err := time.Parse("15:04", fields[0]); err != nil {
		return "", "", false
	}
	return fields[0], strings.Join(fields[1:], " "), true
}

// parseLoginArgs reads "name pin". The name may contain spaces; the PIN is
// the last word.
func parseLoginArgs(args string) (name, pin string, ok bool) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", false
	}
	return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1], true
}

// syncNote explains a remote failure to the user, or returns "" when err is
// not one.
func syncNote(err error) string {
	switch service.Kind(err) {
	case service.KindTransient:
		return "⚠️ Kept on this device, but syncing failed. Your next change will sync everything again."
	case service.KindMalformed:
		return "⚠️ The stored data could not be read. Your change was kept on this device."
	case service.KindConfigMissing:
		return "⚠️ This feature is not configured on the server."
	case service.KindNotFound:
		return "⚠️ Your profile was not found in storage."
	default:
		return ""
	}
}

func taskLine(i int, t model.Task) string {
	mark := "⬜"
	if t.Done {
		mark = "✅"
	}
	return fmt.Sprintf("%d. %s %s %s · <b>%s</b> (%s, %s, %d XP)",
		i+1, mark, escape(t.Date), escape(t.Time), escape(t.Activity),
		escape(t.Category), t.Difficulty, t.XP)
}

func taskListText(tasks []model.Task) string {
	if len(tasks) == 0 {
		return "📋 No tasks yet. Add one with /add or the ➕ button."
	}
	var sb strings.Builder
	sb.WriteString("📋 <b>Tasks</b>\n")
	for i, t := range tasks {
		sb.WriteString(taskLine(i, t))
		sb.WriteByte('\n')
	}
	sb.WriteString("\nMark tasks done, then claim XP with /claim.")
	return sb.String()
}

func taskListKeyboard(tasks []model.Task) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	anyDone := false
	for i, t := range tasks {
		if t.Done {
			anyDone = true
		}
		if i >= maxTaskButtons {
			continue
		}
		label := fmt.Sprintf("%d. %s", i+1, shortTitle(t.Activity, 24))
		var row []tgbotapi.InlineKeyboardButton
		if !t.Done {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("✅ "+label, cbDonePrefix+t.ID))
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("🗑 "+strconv.Itoa(i+1), cbRemovePrefix+t.ID))
		rows = append(rows, row)
	}
	if anyDone {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 Claim XP", cbClaim),
		))
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func reminderTime(r model.Reminder) string {
	if !r.Armed() {
		return r.Raw
	}
	return r.Due.Format("2006-01-02 15:04")
}

func reminderListText(reminders []model.Reminder, active *state.ActiveAlarm) string {
	if len(reminders) == 0 {
		return "⏰ No alarms. Set one with /remind HH:MM &lt;text&gt;."
	}
	var sb strings.Builder
	sb.WriteString("⏰ <b>Alarms</b>\n")
	for i, r := range reminders {
		mark := "⏳"
		switch {
		case active != nil && active.ID == r.ID:
			mark = "🔔"
		case r.Notified:
			mark = "✔️"
		}
		fmt.Fprintf(&sb, "%d. %s %s · <b>%s</b>\n", i+1, mark, escape(reminderTime(r)), escape(r.Task))
	}
	sb.WriteString("\nDelete one with /unremind &lt;n&gt; or the 🗑 buttons.")
	return sb.String()
}

// reminderListKeyboard puts the ringing alarm's buttons first, then one
// delete button per reminder.
func reminderListKeyboard(reminders []model.Reminder, active *state.ActiveAlarm) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	if active != nil {
		rows = append(rows, alarmKeyboard(active.ID).InlineKeyboard...)
	}
	var row []tgbotapi.InlineKeyboardButton
	for i, r := range reminders {
		if i >= maxTaskButtons {
			break
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("🗑 "+strconv.Itoa(i+1), cbUnremindPrefix+r.ID))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func leaderboardText(entries []model.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "🏆 The leaderboard is empty."
	}
	var sb strings.Builder
	sb.WriteString("🏆 <b>Top hunters</b>\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%d. %s · %s · %d XP\n", e.Rank, escape(e.Name), escape(e.League), e.XP)
	}
	return strings.TrimSpace(sb.String())
}

func claimText(res service.ClaimResult) string {
	return fmt.Sprintf("🎁 Claimed %d task(s): +%d XP (x%.1f streak bonus). Level %d.",
		len(res.Claimed), res.Awarded, res.Multiplier, res.Level)
}
