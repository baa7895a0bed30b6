package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"timehunt/internal/model"
	"timehunt/internal/service"
)

const loginHint = "🔐 Log in first: /login &lt;name&gt; &lt;pin&gt;, or create an account with /register."

// preferenceColumns maps /set keys to profile columns.
var preferenceColumns = map[string]string{
	"focus":  "MainFocus",
	"theme":  "ThemeMode",
	"color":  "ThemeColor",
	"voice":  "AIVoice",
	"avatar": "Avatar",
}

func (b *Bot) handleCommand(ctx context.Context, s *session, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(chatID)
	case "register":
		return b.startRegisterConversation(s, chatID)
	case "login":
		return b.handleLogin(ctx, s, chatID, args)
	case "cancel":
		return b.sendText(chatID, "⏪ Input cancelled.")
	case "top":
		return b.handleTop(ctx, chatID)
	}

	if !s.loggedIn() {
		return b.sendText(chatID, loginHint)
	}

	switch msg.Command() {
	case "logout":
		b.endSession(s)
		return b.sendText(chatID, "👋 Logged out.")
	case "tasks":
		return b.handleTasks(s, chatID)
	case "add", "newtask":
		return b.startTaskConversation(s, chatID)
	case "done":
		return b.handleDone(ctx, s, chatID, args)
	case "remove":
		return b.handleRemove(ctx, s, chatID, args)
	case "claim":
		return b.handleClaim(ctx, s, chatID)
	case "reset":
		return b.handleReset(ctx, s, chatID, args)
	case "remind":
		return b.handleRemind(ctx, s, chatID, args)
	case "reminders", "alarms":
		return b.handleReminders(s, chatID)
	case "unremind":
		return b.handleUnremind(ctx, s, chatID, args)
	case "snooze":
		return b.handleSnooze(ctx, s, chatID)
	case "dismiss":
		return b.handleDismiss(s, chatID)
	case "complete":
		return b.handleCompleteAlarm(ctx, s, chatID)
	case "focus":
		return b.startFocus(s, chatID, args)
	case "stats":
		return b.handleStats(s, chatID)
	case "report":
		return b.sendText(chatID, "<pre>"+escape(b.svc.Summaries.MissionReport(s.store, b.now()))+"</pre>")
	case "schedule":
		return b.sendText(chatID, escape(b.svc.Summaries.Schedule(s.store, args, b.now())))
	case "digest":
		return b.sendText(chatID, b.svc.Summaries.DailyDigest(s.store, b.now()))
	case "ask":
		return b.ask(ctx, s, chatID, args)
	case "import":
		return b.handleImport(ctx, s, chatID, args)
	case "set":
		return b.handleSet(ctx, s, chatID, args)
	case "refresh":
		return b.handleRefresh(ctx, s, chatID)
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "hunter"
	}
	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>TimeHunt turns your day into quests.</b>\n\n"+
			"• /register creates an account\n"+
			"• /login &lt;name&gt; &lt;pin&gt; opens it\n"+
			"• /help lists everything else",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /add adds a task step by step\n" +
		"• /tasks shows tasks with done and delete buttons\n" +
		"• /done &lt;n&gt; marks task n done, /remove &lt;n&gt; deletes it\n" +
		"• /claim turns done tasks into XP\n" +
		"• /reset deletes all tasks (send /reset yes)\n" +
		"• /remind [YYYY-MM-DD] HH:MM &lt;text&gt; sets an alarm\n" +
		"• /alarms lists alarms, /unremind &lt;n&gt; deletes one\n" +
		"• /snooze, /dismiss, /complete act on the ringing alarm\n" +
		"• /focus 25 or /focus 15 starts a focus session\n" +
		"• /schedule [YYYY-MM-DD] shows a day\n" +
		"• /stats, /report, /digest, /top\n" +
		"• /ask &lt;question&gt; talks to the assistant\n" +
		"• /import pastes an assistant reply with a schedule block\n" +
		"• /set focus|theme|color|voice|avatar &lt;value&gt;\n" +
		"• /refresh reloads your profile, /logout ends the session"
	return b.sendText(chatID, text)
}

func (b *Bot) handleLogin(ctx context.Context, s *session, chatID int64, args string) error {
	name, pin, ok := parseLoginArgs(args)
	if !ok {
		s.conv = &conversationState{stage: stageLoginName}
		return b.sendWithReplyMarkup(chatID, "🔐 What is your hunter name?", cancelKeyboard())
	}
	return b.login(ctx, s, chatID, name, pin)
}

func (b *Bot) login(ctx context.Context, s *session, chatID int64, name, pin string) error {
	profile, err := b.svc.Profiles.Login(ctx, name, pin)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return b.sendText(chatID, "No hunter with that name. Check the spelling or /register.")
	case errors.Is(err, service.ErrWrongPIN), errors.Is(err, service.ErrInvalidPIN):
		return b.sendText(chatID, "Wrong PIN.")
	case err != nil && profile.UserID == "":
		return b.sendResult(chatID, "Login failed.", err)
	}

	// a failed streak write still returns the profile
	loadErr := b.startSession(ctx, s, profile)
	b.log.Info("login", zap.String("user_id", profile.UserID), zap.Int64("chat_id", chatID))
	text := fmt.Sprintf("✅ Welcome back, <b>%s</b>! Streak: %d day(s), XP: %d.",
		escape(profile.Name), profile.Streak, profile.XP)
	return b.sendResult(chatID, text, errors.Join(err, loadErr))
}

func (b *Bot) handleTasks(s *session, chatID int64) error {
	if !s.loggedIn() {
		return b.sendText(chatID, loginHint)
	}
	text := taskListText(s.store.Tasks)
	if kb, ok := taskListKeyboard(s.store.Tasks); ok {
		return b.sendWithReplyMarkup(chatID, text, kb)
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleDone(ctx context.Context, s *session, chatID int64, arg string) error {
	i, err := parseIndex(arg, len(s.store.Tasks))
	if err != nil {
		return b.sendText(chatID, escape(err.Error()))
	}
	return b.markDone(ctx, s, chatID, i)
}

func (b *Bot) handleRemove(ctx context.Context, s *session, chatID int64, arg string) error {
	i, err := parseIndex(arg, len(s.store.Tasks))
	if err != nil {
		return b.sendText(chatID, escape(err.Error()))
	}
	return b.removeTask(ctx, s, chatID, i)
}

// handleTaskButton resolves the task ID carried by a button. Buttons under an
// old list keep acting on their own task or report it gone.
func (b *Bot) handleTaskButton(ctx context.Context, s *session, chatID int64, id string,
	act func(context.Context, *session, int64, int) error) error {
	i := s.store.TaskIndex(id)
	if i < 0 {
		return b.sendText(chatID, "That task is gone. Open /tasks for the current list.")
	}
	return act(ctx, s, chatID, i)
}

func (b *Bot) markDone(ctx context.Context, s *session, chatID int64, i int) error {
	task, err := b.svc.Tasks.MarkDone(ctx, s.store, i)
	return b.sendResult(chatID, fmt.Sprintf("✅ Done: <b>%s</b>. Claim XP with /claim.", escape(task.Activity)), err)
}

func (b *Bot) removeTask(ctx context.Context, s *session, chatID int64, i int) error {
	task, err := b.svc.Tasks.RemoveTask(ctx, s.store, i)
	return b.sendResult(chatID, fmt.Sprintf("🗑 Removed: %s", escape(task.Activity)), err)
}

func (b *Bot) handleClaim(ctx context.Context, s *session, chatID int64) error {
	res, err := b.svc.Rewards.ClaimTasks(ctx, s.store)
	if errors.Is(err, service.ErrNothingToClaim) {
		return b.sendText(chatID, "Nothing to claim yet. Mark a task done first.")
	}
	return b.sendResult(chatID, claimText(res), err)
}

func (b *Bot) handleReset(ctx context.Context, s *session, chatID int64, args string) error {
	if strings.ToLower(args) != "yes" {
		return b.sendText(chatID, "This deletes every task. Send /reset yes to confirm.")
	}
	n, err := b.svc.Tasks.ResetTasks(ctx, s.store)
	return b.sendResult(chatID, fmt.Sprintf("🧹 Deleted %d task(s).", n), err)
}

func (b *Bot) handleRemind(ctx context.Context, s *session, chatID int64, args string) error {
	at, task, ok := parseReminderArgs(args)
	if !ok {
		return b.sendText(chatID, "Usage: /remind [YYYY-MM-DD] HH:MM &lt;text&gt;")
	}
	r, err := b.svc.Tasks.AddReminder(ctx, s.store, task, at)
	if errors.Is(err, service.ErrInvalidReminder) || errors.Is(err, service.ErrEmptyActivity) {
		return b.sendText(chatID, "Could not read that alarm. Usage: /remind [YYYY-MM-DD] HH:MM &lt;text&gt;")
	}
	return b.sendResult(chatID, fmt.Sprintf("⏰ Alarm set: <b>%s</b> at %s.",
		escape(r.Task), r.Due.Format("2006-01-02 15:04")), err)
}

func (b *Bot) handleReminders(s *session, chatID int64) error {
	if !s.loggedIn() {
		return b.sendText(chatID, loginHint)
	}
	text := reminderListText(s.store.Reminders, s.store.ActiveAlarm())
	if kb, ok := reminderListKeyboard(s.store.Reminders, s.store.ActiveAlarm()); ok {
		return b.sendWithReplyMarkup(chatID, text, kb)
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleUnremind(ctx context.Context, s *session, chatID int64, arg string) error {
	i, err := parseIndex(arg, len(s.store.Reminders))
	if err != nil {
		return b.sendText(chatID, "Send an alarm number from /alarms, for example /unremind 1.")
	}
	return b.removeReminder(ctx, s, chatID, i)
}

func (b *Bot) handleUnremindButton(ctx context.Context, s *session, chatID int64, id string) error {
	i := s.store.ReminderIndex(id)
	if i < 0 {
		return b.sendText(chatID, "That alarm no longer exists.")
	}
	return b.removeReminder(ctx, s, chatID, i)
}

func (b *Bot) removeReminder(ctx context.Context, s *session, chatID int64, i int) error {
	r, err := b.svc.Tasks.RemoveReminder(ctx, s.store, i)
	return b.sendResult(chatID, fmt.Sprintf("🗑 Alarm removed: %s", escape(r.Task)), err)
}

// handleAlarmButton acts on the reminder named by an alarm card. A card whose
// alert was queued behind another alarm becomes the active one first.
func (b *Bot) handleAlarmButton(ctx context.Context, s *session, chatID int64, data string) error {
	action, id, _ := strings.Cut(data, ":")
	i := s.store.ReminderIndex(id)
	if i < 0 {
		return b.sendText(chatID, "That alarm no longer exists.")
	}
	err := b.svc.Alarms.Activate(s.store, i)
	switch {
	case errors.Is(err, service.ErrAlarmBusy):
		active := s.store.ActiveAlarm()
		return b.sendWithReplyMarkup(chatID,
			fmt.Sprintf("🔔 <b>%s</b> is still ringing. Answer it first.", escape(active.Task)),
			alarmKeyboard(active.ID))
	case err != nil:
		return b.sendText(chatID, "That alarm is not ringing.")
	}

	switch action {
	case alarmSnooze:
		return b.handleSnooze(ctx, s, chatID)
	case alarmDismiss:
		return b.handleDismiss(s, chatID)
	case alarmComplete:
		return b.handleCompleteAlarm(ctx, s, chatID)
	default:
		return nil
	}
}

func (b *Bot) handleSnooze(ctx context.Context, s *session, chatID int64) error {
	r, err := b.svc.Alarms.Snooze(ctx, s.store)
	if errors.Is(err, service.ErrNoActiveAlarm) {
		return b.sendText(chatID, "No alarm is ringing.")
	}
	return b.sendResult(chatID, fmt.Sprintf("😴 Snoozed <b>%s</b> until %s.",
		escape(r.Task), r.Due.Format("15:04")), err)
}

func (b *Bot) handleDismiss(s *session, chatID int64) error {
	r, err := b.svc.Alarms.Dismiss(s.store)
	if errors.Is(err, service.ErrNoActiveAlarm) {
		return b.sendText(chatID, "No alarm is ringing.")
	}
	return b.sendResult(chatID, fmt.Sprintf("🔕 Dismissed <b>%s</b>.", escape(r.Task)), err)
}

func (b *Bot) handleCompleteAlarm(ctx context.Context, s *session, chatID int64) error {
	r, err := b.svc.Alarms.Complete(ctx, s.store)
	if errors.Is(err, service.ErrNoActiveAlarm) {
		return b.sendText(chatID, "No alarm is ringing.")
	}
	return b.sendResult(chatID, fmt.Sprintf("✅ <b>%s</b> completed and removed.", escape(r.Task)), err)
}

func (b *Bot) startFocus(s *session, chatID int64, args string) error {
	minutes := 25
	if args != "" {
		m, err := strconv.Atoi(args)
		if err != nil || m <= 0 || m > 180 {
			return b.sendText(chatID, "Usage: /focus 25 or /focus 15")
		}
		minutes = m
	}
	s.focusMinutes = minutes
	s.focusStarted = b.now()
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ I finished", cbFocusPrefix+strconv.Itoa(minutes)),
	))
	return b.sendWithReplyMarkup(chatID,
		fmt.Sprintf("🎯 Focus for %d minutes. Tap the button when you are done.", minutes), kb)
}

// claimFocus pays a focus session once its timer has run out.
func (b *Bot) claimFocus(ctx context.Context, s *session, chatID int64, arg string) error {
	minutes, err := strconv.Atoi(arg)
	if err != nil || s.focusMinutes == 0 || minutes != s.focusMinutes {
		return b.sendText(chatID, "That focus session is no longer running. Start one with /focus.")
	}
	end := s.focusStarted.Add(time.Duration(minutes) * time.Minute)
	if left := end.Sub(b.now()); left > 0 {
		return b.sendText(chatID, fmt.Sprintf("Keep going, %d minute(s) left.", int((left+time.Minute-1)/time.Minute)))
	}
	s.focusMinutes = 0
	xp, err := b.svc.Rewards.ClaimFocusSession(ctx, s.store, minutes, true)
	if errors.Is(err, service.ErrNotVerified) {
		return b.sendText(chatID, "Focus session was not verified.")
	}
	return b.sendResult(chatID, fmt.Sprintf("🎯 Focus session complete: +%d XP.", xp), err)
}

func (b *Bot) handleStats(s *session, chatID int64) error {
	if !s.loggedIn() {
		return b.sendText(chatID, loginHint)
	}
	return b.sendText(chatID, "📊 <pre>"+escape(b.svc.Summaries.Analytics(s.store))+"</pre>")
}

func (b *Bot) handleTop(ctx context.Context, chatID int64) error {
	entries, err := b.svc.Profiles.Leaderboard(ctx)
	if err != nil {
		return b.sendResult(chatID, "Leaderboard is unavailable right now.", err)
	}
	return b.sendText(chatID, leaderboardText(entries))
}

func (b *Bot) ask(ctx context.Context, s *session, chatID int64, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return b.sendText(chatID, "Usage: /ask &lt;question&gt;")
	}
	reply, err := b.svc.Assistant.Ask(ctx, s.store, prompt, b.now())
	if err != nil {
		return b.sendResult(chatID, "The assistant could not answer.", err)
	}
	text := escape(reply.Text)
	if n := len(reply.Imported); n > 0 {
		text += fmt.Sprintf("\n\n📥 Added %d task(s) to your schedule.", n)
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleImport(ctx context.Context, s *session, chatID int64, reply string) error {
	if reply == "" {
		return b.sendText(chatID, "Paste the assistant reply after /import.")
	}
	tasks, err := b.svc.Tasks.ImportSchedule(ctx, s.store, reply)
	switch {
	case errors.Is(err, service.ErrNoScheduleBlock):
		return b.sendText(chatID, "No schedule block found in that text.")
	case err != nil && service.Kind(err) == 0:
		return b.sendText(chatID, "The schedule block is not valid JSON: "+escape(err.Error()))
	}
	return b.sendResult(chatID, fmt.Sprintf("📥 Imported %d task(s).", len(tasks)), err)
}

func (b *Bot) handleSet(ctx context.Context, s *session, chatID int64, args string) error {
	key, value, _ := strings.Cut(args, " ")
	column, ok := preferenceColumns[strings.ToLower(key)]
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return b.sendText(chatID, "Usage: /set focus|theme|color|voice|avatar &lt;value&gt;")
	}
	if err := b.svc.Sync.UpdateProfileField(ctx, s.store.Profile.UserID, column, value); err != nil {
		return b.sendResult(chatID, "Could not save that preference.", err)
	}
	applyPreference(&s.store.Profile, column, value)
	return b.sendText(chatID, fmt.Sprintf("✅ %s set to %s.", column, escape(value)))
}

func applyPreference(p *model.Profile, column, value string) {
	switch column {
	case "MainFocus":
		p.MainFocus = value
	case "ThemeMode":
		p.ThemeMode = value
	case "ThemeColor":
		p.ThemeColor = value
	case "AIVoice":
		p.AIVoice = value
	case "Avatar":
		p.Avatar = value
	}
}

func (b *Bot) handleRefresh(ctx context.Context, s *session, chatID int64) error {
	if err := b.svc.Profiles.Refresh(ctx, s.store); err != nil {
		return b.sendResult(chatID, "Could not refresh the profile.", err)
	}
	p := s.store.Profile
	return b.sendText(chatID, fmt.Sprintf("🔄 %s %s · %d XP · %s league · focus: %s",
		escape(p.Avatar), escape(p.Name), p.XP, escape(p.League), escape(p.MainFocus)))
}
