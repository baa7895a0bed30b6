package model

// Profile stores the user's identity, counters and preferences.
type Profile struct {
	UserID     string
	Name       string
	XP         int
	Streak     int
	LastActive string // YYYY-MM-DD
	League     string
	Avatar     string
	PIN        string
	MainFocus  string
	ThemeMode  string
	ThemeColor string
	AIVoice    string
}

// LeaderboardEntry is one ranked line of the global leaderboard.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	Name   string `json:"name"`
	League string `json:"league"`
	XP     int    `json:"xp"`
}
