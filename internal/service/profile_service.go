package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"timehunt/internal/gamification"
	"timehunt/internal/model"
	"timehunt/internal/state"
)

// Defaults shown when a profile column is empty or holds a spreadsheet "nan".
const (
	DefaultMainFocus  = "Finish Tasks"
	DefaultThemeMode  = "Light"
	DefaultThemeColor = "Green (Default)"
	DefaultAIVoice    = "Jarvis (US)"
	DefaultLeague     = "Bronze"
	DefaultAvatar     = "👤"

	leaderboardSize = 10
)

// RegisterInput carries the onboarding answers for a new account.
type RegisterInput struct {
	Name      string
	PIN       string
	Avatar    string
	MainFocus string
}

// ProfileService owns accounts: registration, PIN login, refresh and the leaderboard.
type ProfileService struct {
	profiles ProfileTable
	cache    LeaderboardStore
	loc      *time.Location
	now      func() time.Time
	newID    func() string
	log      *zap.Logger
}

func NewProfileService(profiles ProfileTable, cache LeaderboardStore, loc *time.Location, log *zap.Logger) *ProfileService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{
		profiles: profiles,
		cache:    cache,
		loc:      loc,
		now:      time.Now,
		newID:    func() string { return "USER-" + uuid.NewString() },
		log:      log.Named("profile"),
	}
}

func (s *ProfileService) today() string {
	return s.now().In(s.loc).Format(dateLayout)
}

// Register appends a new profile row. Names are unique.
func (s *ProfileService) Register(ctx context.Context, in RegisterInput) (model.Profile, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Profile{}, fmt.Errorf("name is required")
	}
	pin, ok := NormalizePIN(in.PIN)
	if !ok {
		return model.Profile{}, ErrInvalidPIN
	}

	rows, err := s.profiles.ReadAll(ctx)
	if err != nil {
		if !isMissingSheet(err) {
			return model.Profile{}, classify("register", err)
		}
		rows = nil
	}
	for _, r := range rows {
		if strings.EqualFold(strings.TrimSpace(r.Name), name) {
			return model.Profile{}, ErrNameTaken
		}
	}

	avatar := strings.TrimSpace(in.Avatar)
	if avatar == "" {
		avatar = DefaultAvatar
	}
	p := model.Profile{
		UserID:     s.newID(),
		Name:       name,
		XP:         0,
		Streak:     1,
		LastActive: s.today(),
		League:     DefaultLeague,
		Avatar:     avatar,
		PIN:        pin,
		MainFocus:  cleanDefault(in.MainFocus, DefaultMainFocus),
		ThemeMode:  DefaultThemeMode,
		ThemeColor: DefaultThemeColor,
		AIVoice:    DefaultAIVoice,
	}
	row := ProfileToRow(p)
	// leading quote keeps spreadsheet clients from eating the zero padding
	row.PIN = "'" + pin
	if err := s.profiles.Append(ctx, row); err != nil {
		return model.Profile{}, classify("register", err)
	}
	s.invalidate(ctx)
	s.log.Info("user registered", zap.String("user_id", p.UserID), zap.String("name", p.Name))
	return p, nil
}

// Login checks the PIN for name, advances the daily streak and records today
// as the last active date.
func (s *ProfileService) Login(ctx context.Context, name, pin string) (model.Profile, error) {
	const op = "login"
	name = strings.TrimSpace(name)
	want, ok := NormalizePIN(pin)
	if !ok {
		return model.Profile{}, ErrInvalidPIN
	}
	rows, err := s.profiles.ReadAll(ctx)
	if err != nil {
		return model.Profile{}, classify(op, err)
	}
	idx := -1
	for i, r := range rows {
		if strings.TrimSpace(r.Name) == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Profile{}, ErrUserNotFound
	}
	stored, _ := NormalizePIN(rows[idx].PIN)
	if stored != want {
		return model.Profile{}, ErrWrongPIN
	}

	p := withDefaults(ProfileFromRow(rows[idx]))
	p.Streak = gamification.AdvanceStreak(p.Streak, p.LastActive, s.now().In(s.loc))
	p.LastActive = s.today()
	p.PIN = stored

	rows[idx].Streak = fmt.Sprint(p.Streak)
	rows[idx].LastActive = p.LastActive
	if err := s.profiles.ReplaceAll(ctx, rows); err != nil {
		// the login itself succeeded; the streak will be retried next time
		s.log.Warn("streak update failed", zap.String("user_id", p.UserID), zap.Error(err))
		return p, classify(op, err)
	}
	s.log.Info("user logged in",
		zap.String("user_id", p.UserID),
		zap.Int("streak", p.Streak),
		zap.Int("level", gamification.Level(p.XP)),
	)
	return p, nil
}

// Refresh reloads counters and preferences for the store's user from the sheet.
// Session fields like the ledger are kept.
func (s *ProfileService) Refresh(ctx context.Context, store *state.Store) error {
	rows, err := s.profiles.ReadAll(ctx)
	if err != nil {
		return classify("refresh profile", err)
	}
	for _, r := range rows {
		if r.UserID != store.Profile.UserID {
			continue
		}
		fresh := withDefaults(ProfileFromRow(r))
		fresh.PIN, _ = NormalizePIN(r.PIN)
		store.Profile = fresh
		return nil
	}
	return remoteErr("refresh profile", KindNotFound, ErrUserNotFound)
}

// Leaderboard returns the top profiles by XP, served from the cache when possible.
func (s *ProfileService) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	if s.cache != nil {
		entries, hit, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn("leaderboard cache read failed", zap.Error(err))
		} else if hit {
			return entries, nil
		}
	}

	rows, err := s.profiles.ReadAll(ctx)
	if err != nil {
		return nil, classify("leaderboard", err)
	}
	entries := RankProfiles(rows, leaderboardSize)

	if s.cache != nil {
		if err := s.cache.Set(ctx, entries); err != nil {
			s.log.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}

// RankProfiles orders rows by XP, highest first, keeping sheet order on ties.
func RankProfiles(rows []model.ProfileRow, limit int) []model.LeaderboardEntry {
	profiles := make([]model.Profile, len(rows))
	for i, r := range rows {
		profiles[i] = ProfileFromRow(r)
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].XP > profiles[j].XP
	})
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	entries := make([]model.LeaderboardEntry, len(profiles))
	for i, p := range profiles {
		entries[i] = model.LeaderboardEntry{
			Rank:   i + 1,
			Name:   p.Name,
			League: cleanDefault(p.League, DefaultLeague),
			XP:     p.XP,
		}
	}
	return entries
}

func (s *ProfileService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("leaderboard invalidate failed", zap.Error(err))
	}
}

// NormalizePIN strips the spreadsheet quote and float suffix, then pads to 4
// digits. It reports false for anything that is not 1 to 4 digits.
func NormalizePIN(raw string) (string, bool) {
	pin := strings.TrimSpace(raw)
	pin = strings.TrimPrefix(pin, "'")
	pin = strings.TrimSuffix(pin, ".0")
	if pin == "" || len(pin) > 4 {
		return "", false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return strings.Repeat("0", 4-len(pin)) + pin, true
}

func withDefaults(p model.Profile) model.Profile {
	p.MainFocus = cleanDefault(p.MainFocus, DefaultMainFocus)
	p.ThemeMode = cleanDefault(p.ThemeMode, DefaultThemeMode)
	p.ThemeColor = cleanDefault(p.ThemeColor, DefaultThemeColor)
	p.AIVoice = cleanDefault(p.AIVoice, DefaultAIVoice)
	p.League = cleanDefault(p.League, DefaultLeague)
	p.Avatar = cleanDefault(p.Avatar, DefaultAvatar)
	return p
}

func cleanDefault(value, def string) string {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "none") {
		return def
	}
	return v
}
