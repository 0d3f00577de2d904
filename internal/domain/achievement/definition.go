// Package achievement defines the static achievement catalog and the engine
// that evaluates it against the progress aggregate. Conditions are pure
// predicates over (progress, chapter catalog); they never mutate state.
// Awards are irrevocable: once earned, an achievement is never removed, even
// if the condition later stops holding.
package achievement

import (
	"time"

	"github.com/learnhub/learnhub-progress/internal/domain/catalog"
	"github.com/learnhub/learnhub-progress/internal/domain/progress"
)

// Condition is a pure predicate evaluated against current progress and the
// external chapter catalog. The catalog slice may be empty when the content
// layer has not supplied it yet; catalog-dependent conditions must return
// false in that case rather than guess.
type Condition func(d *progress.Data, chapters []catalog.Chapter) bool

// Definition describes one achievement. Defined once at process start;
// immutable.
type Definition struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Color       string
	Condition   Condition
}

// WithStatus is the catalog annotated with earned state, for display.
type WithStatus struct {
	Definition
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earnedAt,omitempty"`
}

// Definitions returns the full achievement catalog in evaluation order.
func Definitions() []Definition {
	return []Definition{
		{
			ID: "first-chapter", Name: "First Steps", Icon: "🎯", Color: "#4CAF50",
			Description: "Complete your first chapter",
			Condition: func(d *progress.Data, _ []catalog.Chapter) bool {
				return len(d.CompletedChapters) >= 1
			},
		},
		{
			ID: "five-chapters", Name: "Getting Serious", Icon: "📖", Color: "#2196F3",
			Description: "Complete 5 chapters",
			Condition: func(d *progress.Data, _ []catalog.Chapter) bool {
				return len(d.CompletedChapters) >= 5
			},
		},
		{
			ID: "ten-chapters", Name: "Double Digits", Icon: "🔟", Color: "#3F51B5",
			Description: "Complete 10 chapters",
			Condition: func(d *progress.Data, _ []catalog.Chapter) bool {
				return len(d.CompletedChapters) >= 10
			},
		},
		{
			ID: "halfway", Name: "Halfway There", Icon: "⛰️", Color: "#FF9800",
			Description: "Complete half of all chapters",
			Condition: func(d *progress.Data, chapters []catalog.Chapter) bool {
				if len(chapters) == 0 {
					return false
				}
				return len(d.CompletedChapters)*2 >= len(chapters)
			},
		},
		{
			ID: "completionist", Name: "Completionist", Icon: "🏆", Color: "#FFD700",
			Description: "Complete every chapter",
			Condition: func(d *progress.Data, chapters []catalog.Chapter) bool {
				if len(chapters) == 0 {
					return false
				}
				for _, ch := range chapters {
					if !d.HasChapter(ch.ID) {
						return false
					}
				}
				return true
			},
		},
		{
			ID: "category-master", Name: "Category Master", Icon: "🧩", Color: "#9C27B0",
			Description: "Complete every chapter in one category",
			Condition: func(d *progress.Data, chapters []catalog.Chapter) bool {
				if len(chapters) == 0 {
					return false
				}
				for _, ids := range catalog.ByCategory(chapters) {
					done := true
					for _, id := range ids {
						if !d.HasChapter(id) {
							done = false
							break
						}
					}
					if done {
						return true
					}
				}
				return false
			},
		},
		{
			ID: "first-bookmark", Name: "Marked", Icon: "🔖", Color: "#00BCD4",
			Description: "Add your first bookmark",
			Condition: func(d *progress.Data, _ []catalog.Chapter) bool {
				return len(d.Bookmarks) >= 1
			},
		},
		{
			ID: "bookworm", Name: "Bookworm", Icon: "🐛", Color: "#8BC34A",
			Description: "Keep 5 bookmarks",
			Condition: func(d *progress.Data, _ []catalog.Chapter) bool {
				return len(d.Bookmarks) >= 5
			},
		},
		{
			ID: "streak-3", Name: "Warming Up", Icon: "✨", Color: "#FFC107",
			Description: "Study 3 days in a row",
			Condition: func(d *progress.Data, _ []catalog.Chapter) bool {
				return d.Streak.Current >= 3 || d.Streak.Longest >= 3
			},
		},
		{
			ID: "streak-7", Name: "Week of Fire", Icon: "🔥", Color: "#FF5722",
			Description: "Study 7 days in a row",
			Condition: func(d *progress.Data, _ []catalog.Chapter) bool {
				return d.Streak.Current >= 7 || d.Streak.Longest >= 7
			},
		},
		{
			ID: "streak-30", Name: "Iron Will", Icon: "💪", Color: "#F44336",
			Description: "Study 30 days in a row",
			Condition: func(d *progress.Data, _ []catalog.Chapter) bool {
				return d.Streak.Current >= 30 || d.Streak.Longest >= 30
			},
		},
		{
			ID: "dedicated-hour", Name: "Dedicated Hour", Icon: "⏰", Color: "#607D8B",
			Description: "Study for a total of one hour",
			Condition: func(d *progress.Data, _ []catalog.Chapter) bool {
				return d.TimeTracking.TotalMinutes >= 60
			},
		},
		{
			ID: "marathon", Name: "Marathon", Icon: "🏃", Color: "#795548",
			Description: "Study for a total of ten hours",
			Condition: func(d *progress.Data, _ []catalog.Chapter) bool {
				return d.TimeTracking.TotalMinutes >= 600
			},
		},
		{
			ID: "goal-crusher", Name: "Goal Crusher", Icon: "🎉", Color: "#E91E63",
			Description: "Reach a weekly goal",
			Condition: func(d *progress.Data, _ []catalog.Chapter) bool {
				return d.WeeklyGoal != nil && d.WeeklyGoal.Reached()
			},
		},
	}
}

// ByID returns the definition with the given ID, or nil.
func ByID(id string) *Definition {
	defs := Definitions()
	for i := range defs {
		if defs[i].ID == id {
			return &defs[i]
		}
	}
	return nil
}
