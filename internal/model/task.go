package model

import "strings"

// Difficulty is the effort tier chosen when a task is created.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
	DifficultyMajor  Difficulty = "Major"
)

// Defaults applied to tasks that come back from storage without these fields.
const (
	DefaultDifficulty = DifficultyMedium
	DefaultTaskXP     = 50
	DefaultCategory   = "General"
)

var difficultyXP = map[Difficulty]int{
	DifficultyEasy:   20,
	DifficultyMedium: 50,
	DifficultyHard:   150,
	DifficultyMajor:  300,
}

// XP returns the fixed reward for the tier, or 0 for an unknown tier.
func (d Difficulty) XP() int {
	return difficultyXP[d]
}

func (d Difficulty) IsValid() bool {
	_, ok := difficultyXP[d]
	return ok
}

// ParseDifficulty accepts tier names case-insensitively. Labels such as
// "Major Project" or "Hard (150 XP)" match on their first word.
func ParseDifficulty(input string) (Difficulty, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", false
	}
	first := strings.Fields(s)[0]
	for d := range difficultyXP {
		if strings.EqualFold(first, string(d)) {
			return d, true
		}
	}
	return "", false
}

// Task is one scheduled activity in the planner.
type Task struct {
	// ID is assigned per session and never stored.
	ID         string
	Date       string // YYYY-MM-DD
	Time       string // HH:MM, or the raw stored value for legacy rows
	Activity   string
	Category   string
	Difficulty Difficulty
	Done       bool
	// XP is captured at creation and never recomputed.
	XP int
}
