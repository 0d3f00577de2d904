// Package progress contains the progress aggregate and the pure calendar
// logic built on top of it: the streak calculator and the weekly goal state
// machine. The aggregate is a plain value; exclusive ownership and
// persistence discipline live in the tracker service.
package progress

import (
	"sort"
	"time"

	"github.com/learnhub/learnhub-progress/internal/domain/shared"
	"github.com/learnhub/learnhub-progress/pkg/timeutil"
)

// SchemaVersion is the current snapshot schema version. Older persisted
// snapshots are migrated forward on load.
const SchemaVersion = 1

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATE
// ══════════════════════════════════════════════════════════════════════════════

// Bookmark marks a position inside a chapter, with an optional note.
type Bookmark struct {
	// ID is generated at creation time and is unique within the aggregate.
	ID        string    `json:"id"`
	ChapterID int       `json:"chapterId"`
	SectionID int       `json:"sectionId"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TimeTracking accumulates total and per-day study minutes.
// Invariant: TotalMinutes == sum of DailyLog values after every local
// mutation. A merge import deliberately breaks this (totals are summed while
// per-day entries are not merged); see the import codec.
type TimeTracking struct {
	TotalMinutes int            `json:"totalMinutes"`
	DailyLog     map[string]int `json:"dailyLog"`
	SessionStart *time.Time     `json:"sessionStart,omitempty"`
}

// Streak holds the consecutive-day activity state.
// Invariant: Current <= Longest; ActiveDays is sorted, deduplicated, and only
// ever grows (entries are removed solely by a full reset).
type Streak struct {
	Current          int      `json:"current"`
	Longest          int      `json:"longest"`
	LastActivityDate string   `json:"lastActivityDate,omitempty"`
	ActiveDays       []string `json:"activeDays"`
}

// WeeklyGoal tracks progress toward a user-set chapter target for one
// calendar week. WeekStart is always a Monday day key.
type WeeklyGoal struct {
	TargetChapters    int    `json:"targetChapters"`
	WeekStart         string `json:"weekStart"`
	CompletedThisWeek []int  `json:"completedThisWeek"`
}

// EarnedAchievement records a single irrevocable award.
type EarnedAchievement struct {
	ID       string    `json:"id"`
	EarnedAt time.Time `json:"earnedAt"`
}

// Data is the root progress aggregate. It is owned exclusively by the tracker
// store and mutated only through store operations.
type Data struct {
	Version            int                 `json:"version"`
	CompletedChapters  []int               `json:"completedChapters"`
	Bookmarks          []Bookmark          `json:"bookmarks"`
	TimeTracking       TimeTracking        `json:"timeTracking"`
	Streak             Streak              `json:"streak"`
	WeeklyGoal         *WeeklyGoal         `json:"weeklyGoal,omitempty"`
	EarnedAchievements []EarnedAchievement `json:"earnedAchievements"`
	LastUpdated        time.Time           `json:"lastUpdated"`
}

// NewData creates a fresh aggregate with first-launch defaults.
func NewData() *Data {
	return &Data{
		Version:            SchemaVersion,
		CompletedChapters:  []int{},
		Bookmarks:          []Bookmark{},
		TimeTracking:       TimeTracking{DailyLog: map[string]int{}},
		Streak:             Streak{ActiveDays: []string{}},
		EarnedAchievements: []EarnedAchievement{},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CHAPTER SET
// ══════════════════════════════════════════════════════════════════════════════

// HasChapter reports whether chapterID is marked complete.
func (d *Data) HasChapter(chapterID int) bool {
	i := sort.SearchInts(d.CompletedChapters, chapterID)
	return i < len(d.CompletedChapters) && d.CompletedChapters[i] == chapterID
}

// AddChapter inserts chapterID into the completed set, keeping it sorted.
// Returns false if the chapter was already present.
func (d *Data) AddChapter(chapterID int) bool {
	i := sort.SearchInts(d.CompletedChapters, chapterID)
	if i < len(d.CompletedChapters) && d.CompletedChapters[i] == chapterID {
		return false
	}
	d.CompletedChapters = append(d.CompletedChapters, 0)
	copy(d.CompletedChapters[i+1:], d.CompletedChapters[i:])
	d.CompletedChapters[i] = chapterID
	return true
}

// RemoveChapter removes chapterID from the completed set.
// Returns false if the chapter was not present.
func (d *Data) RemoveChapter(chapterID int) bool {
	i := sort.SearchInts(d.CompletedChapters, chapterID)
	if i >= len(d.CompletedChapters) || d.CompletedChapters[i] != chapterID {
		return false
	}
	d.CompletedChapters = append(d.CompletedChapters[:i], d.CompletedChapters[i+1:]...)
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// BOOKMARKS
// ══════════════════════════════════════════════════════════════════════════════

// FindBookmark returns the index of the bookmark with the given ID, or -1.
func (d *Data) FindBookmark(id string) int {
	for i := range d.Bookmarks {
		if d.Bookmarks[i].ID == id {
			return i
		}
	}
	return -1
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY & TIME
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivity inserts today into the active-day set, stamps the last
// activity date and recommits a freshly computed streak. Idempotent for a day
// that is already recorded, though the streak is still recomputed because
// "today" may have moved since the last commit.
func (d *Data) RecordActivity(today string) {
	d.Streak.addActiveDay(today)
	d.Streak.LastActivityDate = today
	current, longest := CalculateStreak(d.Streak.ActiveDays, today, d.Streak.Longest)
	d.Streak.Current = current
	d.Streak.Longest = longest
}

// RecomputeStreak re-derives the current streak for the given day without
// recording new activity. Called on load: time may have passed since the last
// persisted write, so the stored current streak is never trusted as-is.
func (d *Data) RecomputeStreak(today string) {
	current, longest := CalculateStreak(d.Streak.ActiveDays, today, d.Streak.Longest)
	d.Streak.Current = current
	d.Streak.Longest = longest
}

// AddMinute accrues one minute of study time for today.
func (d *Data) AddMinute(today string) {
	if d.TimeTracking.DailyLog == nil {
		d.TimeTracking.DailyLog = map[string]int{}
	}
	d.TimeTracking.TotalMinutes++
	d.TimeTracking.DailyLog[today]++
}

// addActiveDay inserts a day key keeping ActiveDays sorted and deduplicated.
func (s *Streak) addActiveDay(day string) bool {
	i := sort.SearchStrings(s.ActiveDays, day)
	if i < len(s.ActiveDays) && s.ActiveDays[i] == day {
		return false
	}
	s.ActiveDays = append(s.ActiveDays, "")
	copy(s.ActiveDays[i+1:], s.ActiveDays[i:])
	s.ActiveDays[i] = day
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

// HasAchievement reports whether the achievement ID has already been earned.
func (d *Data) HasAchievement(id string) bool {
	for i := range d.EarnedAchievements {
		if d.EarnedAchievements[i].ID == id {
			return true
		}
	}
	return false
}

// AddAchievement records an award. Returns false if the ID is already
// present; awards are monotonic and never duplicated.
func (d *Data) AddAchievement(id string, earnedAt time.Time) bool {
	if d.HasAchievement(id) {
		return false
	}
	d.EarnedAchievements = append(d.EarnedAchievements, EarnedAchievement{ID: id, EarnedAt: earnedAt})
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// COPY / NORMALIZE / VALIDATE
// ══════════════════════════════════════════════════════════════════════════════

// Clone returns a deep copy of the aggregate. Subscribers receive clones so
// they can never observe a half-updated aggregate, and imports mutate a clone
// so a validation failure leaves current state untouched.
func (d *Data) Clone() *Data {
	out := *d
	out.CompletedChapters = append([]int(nil), d.CompletedChapters...)
	out.Bookmarks = append([]Bookmark(nil), d.Bookmarks...)
	out.EarnedAchievements = append([]EarnedAchievement(nil), d.EarnedAchievements...)
	out.Streak.ActiveDays = append([]string(nil), d.Streak.ActiveDays...)
	out.TimeTracking.DailyLog = make(map[string]int, len(d.TimeTracking.DailyLog))
	for k, v := range d.TimeTracking.DailyLog {
		out.TimeTracking.DailyLog[k] = v
	}
	if d.TimeTracking.SessionStart != nil {
		ss := *d.TimeTracking.SessionStart
		out.TimeTracking.SessionStart = &ss
	}
	if d.WeeklyGoal != nil {
		wg := *d.WeeklyGoal
		wg.CompletedThisWeek = append([]int(nil), d.WeeklyGoal.CompletedThisWeek...)
		out.WeeklyGoal = &wg
	}
	return &out
}

// Normalize restores set/ordering invariants after decoding an external
// snapshot: sorted deduplicated chapter IDs and active days, non-nil slices
// and maps, schema version floor.
func (d *Data) Normalize() {
	d.CompletedChapters = dedupInts(d.CompletedChapters)
	d.Streak.ActiveDays = dedupStrings(d.Streak.ActiveDays)
	if d.Bookmarks == nil {
		d.Bookmarks = []Bookmark{}
	}
	if d.EarnedAchievements == nil {
		d.EarnedAchievements = []EarnedAchievement{}
	}
	if d.TimeTracking.DailyLog == nil {
		d.TimeTracking.DailyLog = map[string]int{}
	}
	if d.WeeklyGoal != nil && d.WeeklyGoal.CompletedThisWeek == nil {
		d.WeeklyGoal.CompletedThisWeek = []int{}
	}
	if d.Version < SchemaVersion {
		d.Version = SchemaVersion
	}
}

// Validate checks structural invariants of a decoded aggregate.
func (d *Data) Validate() error {
	if d.TimeTracking.TotalMinutes < 0 {
		return shared.NewDomainError("progress", "Validate", shared.ErrNegativeValue, "totalMinutes is negative")
	}
	for day, minutes := range d.TimeTracking.DailyLog {
		if minutes < 0 {
			return shared.NewDomainError("progress", "Validate", shared.ErrNegativeValue, "dailyLog minutes are negative")
		}
		if !timeutil.IsDayKey(day) {
			return shared.ErrInvalidDayKey
		}
	}
	if d.Streak.Current < 0 || d.Streak.Longest < 0 {
		return shared.NewDomainError("progress", "Validate", shared.ErrNegativeValue, "streak counters are negative")
	}
	for _, day := range d.Streak.ActiveDays {
		if !timeutil.IsDayKey(day) {
			return shared.ErrInvalidDayKey
		}
	}
	if d.WeeklyGoal != nil {
		if d.WeeklyGoal.TargetChapters <= 0 {
			return shared.ErrGoalTargetRange
		}
		if !timeutil.IsDayKey(d.WeeklyGoal.WeekStart) {
			return shared.ErrInvalidDayKey
		}
	}
	for i := range d.Bookmarks {
		if d.Bookmarks[i].ID == "" {
			return shared.NewDomainError("progress", "Validate", shared.ErrEmptyValue, "bookmark has empty ID")
		}
	}
	return nil
}

// Merge combines an incoming aggregate into d using the merge-import policy:
// chapter union, bookmark concatenation, summed total minutes, active-day
// union. Per-day minute entries from the incoming side are NOT merged; only
// the aggregate total is summed. The caller recomputes the streak afterwards.
func (d *Data) Merge(incoming *Data) {
	for _, ch := range incoming.CompletedChapters {
		d.AddChapter(ch)
	}
	d.Bookmarks = append(d.Bookmarks, incoming.Bookmarks...)
	d.TimeTracking.TotalMinutes += incoming.TimeTracking.TotalMinutes
	for _, day := range incoming.Streak.ActiveDays {
		d.Streak.addActiveDay(day)
	}
	if incoming.Streak.Longest > d.Streak.Longest {
		d.Streak.Longest = incoming.Streak.Longest
	}
	for _, ea := range incoming.EarnedAchievements {
		d.AddAchievement(ea.ID, ea.EarnedAt)
	}
}

func dedupInts(in []int) []int {
	if in == nil {
		return []int{}
	}
	sort.Ints(in)
	out := in[:0]
	for i, v := range in {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func dedupStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	sort.Strings(in)
	out := in[:0]
	for i, v := range in {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
