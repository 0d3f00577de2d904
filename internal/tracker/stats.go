package tracker

import (
	"github.com/learnhub/learnhub-progress/internal/domain/achievement"
	"github.com/learnhub/learnhub-progress/internal/domain/catalog"
	"github.com/learnhub/learnhub-progress/pkg/timeutil"
)

// Stats is the aggregate read model shown on the progress dashboard.
type Stats struct {
	TotalChapters         int     `json:"totalChapters"`
	CompletedChapters     int     `json:"completedChapters"`
	CompletionPercentage  float64 `json:"completionPercentage"`
	TotalTimeMinutes      int     `json:"totalTimeMinutes"`
	AverageTimePerChapter int     `json:"averageTimePerChapter"`
	CurrentStreak         int     `json:"currentStreak"`
	LongestStreak         int     `json:"longestStreak"`
	TodayMinutes          int     `json:"todayMinutes"`
	WeekMinutes           int     `json:"weekMinutes"`
}

// CategoryStats is the per-category completion read model.
type CategoryStats struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Percentage float64 `json:"percentage"`
}

// GetStats computes dashboard statistics against the supplied chapter list.
func (s *Store) GetStats(chapters []catalog.Chapter) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	today := timeutil.DayKey(now)
	weekStart := timeutil.WeekStartKey(now)

	st := Stats{
		TotalChapters:     len(chapters),
		CompletedChapters: len(s.data.CompletedChapters),
		TotalTimeMinutes:  s.data.TimeTracking.TotalMinutes,
		CurrentStreak:     s.data.Streak.Current,
		LongestStreak:     s.data.Streak.Longest,
		TodayMinutes:      s.data.TimeTracking.DailyLog[today],
	}
	if st.TotalChapters > 0 {
		st.CompletionPercentage = float64(st.CompletedChapters) / float64(st.TotalChapters) * 100
	}
	if st.CompletedChapters > 0 {
		st.AverageTimePerChapter = st.TotalTimeMinutes / st.CompletedChapters
	}
	// Day keys sort chronologically, so the week filter is a string compare.
	for day, minutes := range s.data.TimeTracking.DailyLog {
		if day >= weekStart && day <= today {
			st.WeekMinutes += minutes
		}
	}
	return st
}

// GetCategoryProgress aggregates completion per category tag, in no
// particular map order.
func (s *Store) GetCategoryProgress(chapters []catalog.Chapter) map[string]CategoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]CategoryStats)
	for _, ch := range chapters {
		cs := out[ch.Category]
		cs.Total++
		if s.data.HasChapter(ch.ID) {
			cs.Completed++
		}
		out[ch.Category] = cs
	}
	for cat, cs := range out {
		if cs.Total > 0 {
			cs.Percentage = float64(cs.Completed) / float64(cs.Total) * 100
			out[cat] = cs
		}
	}
	return out
}

// GetAllAchievements returns the full achievement catalog annotated with
// earned state and timestamps.
func (s *Store) GetAllAchievements() []achievement.WithStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Annotate(s.data)
}
