package bot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"timehunt/internal/model"
	"timehunt/internal/service"
	"timehunt/internal/state"
)

// session is one Telegram user's connection to the core. mu serialises every
// operation on store, whether it comes from a message or from a cron tick.
type session struct {
	mu     sync.Mutex
	chatID int64
	store  *state.Store
	conv   *conversationState

	focusMinutes int
	focusStarted time.Time
}

func (s *session) loggedIn() bool {
	return s.store != nil
}

// sessions indexes sessions by Telegram user id.
type sessions struct {
	mu   sync.Mutex
	byTG map[int64]*session
}

func newSessions() *sessions {
	return &sessions{byTG: make(map[int64]*session)}
}

// get returns the session for a Telegram user, creating an empty one.
func (r *sessions) get(tgID, chatID int64) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byTG[tgID]
	if !ok {
		s = &session{chatID: chatID}
		r.byTG[tgID] = s
	}
	if chatID != 0 {
		s.chatID = chatID
	}
	return s
}

func (r *sessions) snapshot() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session, 0, len(r.byTG))
	for _, s := range r.byTG {
		out = append(out, s)
	}
	return out
}

// startSession binds a logged-in profile to the session and pulls its data.
// A failed pull leaves an empty store and is returned as a warning.
func (b *Bot) startSession(ctx context.Context, s *session, profile model.Profile) error {
	if s.store != nil {
		b.notifier.Unbind(s.store.Profile.UserID)
	}
	s.store = state.New(profile)
	b.notifier.Bind(profile.UserID, s.chatID)
	return b.svc.Sync.Load(ctx, s.store)
}

func (b *Bot) endSession(s *session) {
	if s.store == nil {
		return
	}
	b.notifier.Unbind(s.store.Profile.UserID)
	s.store = nil
	s.conv = nil
	s.focusMinutes = 0
}

// tick runs one alarm evaluation for a locked, logged-in session. Alerts go
// out through the notifier.
func (b *Bot) tick(ctx context.Context, s *session, now time.Time) {
	res, err := b.svc.Alarms.Tick(ctx, s.store, now)
	if err != nil {
		b.log.Warn("tick save failed",
			zap.String("user_id", s.store.Profile.UserID),
			zap.String("kind", service.Kind(err).String()),
			zap.Error(err),
		)
	}
	if len(res.Triggered) > 0 {
		b.log.Debug("alarms triggered",
			zap.String("user_id", s.store.Profile.UserID),
			zap.Ints("indexes", res.Triggered),
		)
	}
}

// TickAll evaluates alarms for every logged-in session.
func (b *Bot) TickAll(ctx context.Context) {
	now := b.now()
	for _, s := range b.sessions.snapshot() {
		if ctx.Err() != nil {
			return
		}
		s.mu.Lock()
		if s.loggedIn() {
			b.tick(ctx, s, now)
		}
		s.mu.Unlock()
	}
}

// SendDailyDigests sends the morning briefing to every logged-in session.
func (b *Bot) SendDailyDigests(ctx context.Context) error {
	now := b.now()
	for _, s := range b.sessions.snapshot() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.mu.Lock()
		if !s.loggedIn() {
			s.mu.Unlock()
			continue
		}
		text := b.svc.Summaries.DailyDigest(s.store, now)
		chatID := s.chatID
		s.mu.Unlock()
		if err := b.sendText(chatID, text); err != nil {
			b.log.Warn("send digest", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	return nil
}
