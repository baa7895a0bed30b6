package service

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"timehunt/internal/model"
)

var (
	scheduleBlock = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n\\s*```")
	plainText     = bluemonday.StrictPolicy()
)

type scheduleItem struct {
	Time     string `json:"Time"`
	Activity string `json:"Activity"`
	Category string `json:"Category"`
}

// ParseAISchedule extracts the first fenced json block of {Time, Activity,
// Category} objects and returns them as pending Medium tasks dated today.
// Items missing Activity or Time are skipped.
func ParseAISchedule(reply string, today time.Time) ([]model.Task, error) {
	m := scheduleBlock.FindStringSubmatch(reply)
	if m == nil {
		return nil, ErrNoScheduleBlock
	}
	var items []scheduleItem
	if err := json.Unmarshal([]byte(m[1]), &items); err != nil {
		return nil, fmt.Errorf("decode schedule block: %w", err)
	}

	date := today.Format(dateLayout)
	tasks := make([]model.Task, 0, len(items))
	for _, it := range items {
		activity := cleanText(it.Activity)
		at := cleanText(it.Time)
		if activity == "" || at == "" {
			continue
		}
		category := cleanText(it.Category)
		if category == "" {
			category = model.DefaultCategory
		}
		tasks = append(tasks, model.Task{
			Date:       date,
			Time:       at,
			Activity:   activity,
			Category:   category,
			Difficulty: model.DefaultDifficulty,
			XP:         model.DefaultTaskXP,
		})
	}
	return tasks, nil
}

// cleanText strips markup and surrounding space from assistant-supplied text.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}
