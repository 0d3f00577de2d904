package progress

import (
	"sort"
	"time"

	"github.com/learnhub/learnhub-progress/pkg/timeutil"
)

// WeeklyGoalStats is the read model for the active weekly goal.
type WeeklyGoalStats struct {
	Target        int     `json:"target"`
	Completed     int     `json:"completed"`
	Percentage    float64 `json:"percentage"`
	WeekStart     string  `json:"weekStart"`
	DaysRemaining int     `json:"daysRemaining"`
}

// NewWeeklyGoal creates a goal for the current calendar week, discarding any
// prior goal state. The target must already be validated as positive.
func NewWeeklyGoal(target int, now time.Time) *WeeklyGoal {
	return &WeeklyGoal{
		TargetChapters:    target,
		WeekStart:         timeutil.WeekStartKey(now),
		CompletedThisWeek: []int{},
	}
}

// Rollover resets weekly completion state when the stored week start no
// longer matches the Monday of the current calendar week. The target is
// preserved across weeks. Returns true if a rollover happened.
func (g *WeeklyGoal) Rollover(now time.Time) bool {
	currentWeek := timeutil.WeekStartKey(now)
	if g.WeekStart == currentWeek {
		return false
	}
	g.WeekStart = currentWeek
	g.CompletedThisWeek = []int{}
	return true
}

// RecordCompletion adds a chapter to this week's tally. Idempotent per
// chapter ID. The caller performs the rollover check first.
func (g *WeeklyGoal) RecordCompletion(chapterID int) bool {
	i := sort.SearchInts(g.CompletedThisWeek, chapterID)
	if i < len(g.CompletedThisWeek) && g.CompletedThisWeek[i] == chapterID {
		return false
	}
	g.CompletedThisWeek = append(g.CompletedThisWeek, 0)
	copy(g.CompletedThisWeek[i+1:], g.CompletedThisWeek[i:])
	g.CompletedThisWeek[i] = chapterID
	return true
}

// Reached reports whether the target has been met this week.
func (g *WeeklyGoal) Reached() bool {
	return len(g.CompletedThisWeek) >= g.TargetChapters
}

// Stats computes the read model for the goal as of now. The caller performs
// the rollover check first.
func (g *WeeklyGoal) Stats(now time.Time) WeeklyGoalStats {
	completed := len(g.CompletedThisWeek)
	percentage := float64(completed) / float64(g.TargetChapters) * 100
	if percentage > 100 {
		percentage = 100
	}
	return WeeklyGoalStats{
		Target:        g.TargetChapters,
		Completed:     completed,
		Percentage:    percentage,
		WeekStart:     g.WeekStart,
		DaysRemaining: timeutil.DaysUntilNextMonday(now),
	}
}
