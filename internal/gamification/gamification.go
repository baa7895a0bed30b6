// Package gamification derives scores, levels and titles from profile counters.
// All functions are pure.
package gamification

import "time"

// multiplier in tenths, highest breakpoint first
var streakTenths = []struct {
	minStreak int
	tenths    int
}{
	{30, 25},
	{14, 20},
	{7, 15},
	{3, 12},
	{0, 10},
}

func multiplierTenths(streak int) int {
	for _, b := range streakTenths {
		if streak >= b.minStreak {
			return b.tenths
		}
	}
	return 10
}

// Multiplier returns the XP multiplier for a consecutive-day streak.
func Multiplier(streak int) float64 {
	return float64(multiplierTenths(streak)) / 10
}

// AwardForBatch returns floor(sum(xps) * Multiplier(streak)).
func AwardForBatch(xps []int, streak int) int {
	sum := 0
	for _, xp := range xps {
		sum += xp
	}
	if sum <= 0 {
		return 0
	}
	return sum * multiplierTenths(streak) / 10
}

// FocusSessionXP returns the fixed award for a verified focus session.
func FocusSessionXP(minutes int) int {
	switch minutes {
	case 25:
		return 50
	case 15:
		return 100
	default:
		return 10
	}
}

const xpPerLevel = 1000

func Level(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/xpPerLevel + 1
}

// SuccessRate returns the completed share as a floored percentage, 0 for no tasks.
func SuccessRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return completed * 100 / total
}

var rankTable = []struct {
	level int
	title string
}{
	{1, "Starter"},
	{5, "Achiever"},
	{10, "Pro"},
	{20, "Master"},
	{50, "Grandmaster"},
}

// RankTitle returns the title of the highest threshold not above level.
func RankTitle(level int) string {
	title := rankTable[0].title
	for _, r := range rankTable {
		if level < r.level {
			break
		}
		title = r.title
	}
	return title
}

const dateLayout = "2006-01-02"

// AdvanceStreak returns the streak after activity on today, given the last
// active date. Same day keeps it, the following day extends it, anything
// else restarts at 1.
func AdvanceStreak(streak int, lastActive string, today time.Time) int {
	if streak < 1 {
		streak = 1
	}
	last, err := time.ParseInLocation(dateLayout, lastActive, today.Location())
	if err != nil {
		return 1
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	switch {
	case last.Equal(day):
		return streak
	case last.AddDate(0, 0, 1).Equal(day):
		return streak + 1
	default:
		return 1
	}
}
