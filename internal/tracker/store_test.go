package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-progress/internal/domain/catalog"
	"github.com/learnhub/learnhub-progress/internal/domain/shared"
	"github.com/learnhub/learnhub-progress/internal/infrastructure/persistence/memory"
	"github.com/learnhub/learnhub-progress/pkg/timeutil"
)

// fakeClock is a settable clock injected via WithNow.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// Wednesday, Jan 3 2024. Week start is Monday 2024-01-01.
func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 3, 12, 0, 0, 0, timeutil.Location())}
}

func testCatalog() catalog.Provider {
	return catalog.StaticProvider{List: []catalog.Chapter{
		{ID: 1, Title: "Variables", Category: "Basics"},
		{ID: 2, Title: "Functions", Category: "Basics"},
		{ID: 3, Title: "Goroutines", Category: "Concurrency"},
		{ID: 4, Title: "Channels", Category: "Concurrency"},
	}}
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *memory.Store, *fakeClock) {
	t.Helper()
	backend := memory.NewStore()
	clock := newFakeClock()
	opts = append([]Option{WithNow(clock.Now)}, opts...)
	s, err := NewStore(context.Background(), backend, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, backend, clock
}

func TestNewStore_FirstLaunchDefaults(t *testing.T) {
	s, _, clock := newTestStore(t)

	d := s.Data()
	assert.Empty(t, d.CompletedChapters)
	assert.Empty(t, d.Bookmarks)
	assert.Zero(t, d.TimeTracking.TotalMinutes)
	assert.Nil(t, d.WeeklyGoal)
	require.NotNil(t, d.TimeTracking.SessionStart)
	assert.True(t, d.TimeTracking.SessionStart.Equal(clock.t))
}

func TestNewStore_ReloadsPersistedState(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	clock := newFakeClock()

	s1, err := NewStore(ctx, backend, WithNow(clock.Now))
	require.NoError(t, err)
	require.NoError(t, s1.MarkChapterComplete(ctx, 1))
	require.NoError(t, s1.MarkChapterComplete(ctx, 2))
	s1.Close()

	s2, err := NewStore(ctx, backend, WithNow(clock.Now))
	require.NoError(t, err)
	defer s2.Close()

	d := s2.Data()
	assert.Equal(t, []int{1, 2}, d.CompletedChapters)
	assert.Equal(t, 1, d.Streak.Current)
}

func TestNewStore_RecomputesStreakOnLoad(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	clock := newFakeClock()

	s1, err := NewStore(ctx, backend, WithNow(clock.Now))
	require.NoError(t, err)
	require.NoError(t, s1.MarkChapterComplete(ctx, 1))
	assert.Equal(t, 1, s1.Data().Streak.Current)
	s1.Close()

	// Reopen three days later: the gap voids the current streak, longest stays.
	clock.Advance(72 * time.Hour)
	s2, err := NewStore(ctx, backend, WithNow(clock.Now))
	require.NoError(t, err)
	defer s2.Close()

	d := s2.Data()
	assert.Equal(t, 0, d.Streak.Current)
	assert.Equal(t, 1, d.Streak.Longest)
}

func TestNewStore_RejectsCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	require.NoError(t, backend.Save(ctx, []byte(`{"totalGarbage":true}`)))

	_, err := NewStore(ctx, backend)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestMarkChapterComplete(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkChapterComplete(ctx, 4))

	d := s.Data()
	assert.Equal(t, []int{4}, d.CompletedChapters)
	assert.Equal(t, []string{"2024-01-03"}, d.Streak.ActiveDays)
	assert.Equal(t, 1, d.Streak.Current)
	assert.True(t, d.LastUpdated.Equal(clock.t))
}

func TestMarkChapterComplete_Idempotent(t *testing.T) {
	s, _, clock := newTestStore(t, WithCatalogProvider(testCatalog()))
	ctx := context.Background()

	require.NoError(t, s.MarkChapterComplete(ctx, 1))
	first := s.Data()

	// Second mark of the same chapter later the same day changes nothing.
	clock.Advance(time.Hour)
	require.NoError(t, s.MarkChapterComplete(ctx, 1))
	second := s.Data()

	assert.Equal(t, first.CompletedChapters, second.CompletedChapters)
	assert.True(t, first.LastUpdated.Equal(second.LastUpdated))
	assert.Len(t, second.EarnedAchievements, len(first.EarnedAchievements))
}

func TestMarkChapterComplete_RejectsNegativeID(t *testing.T) {
	s, _, _ := newTestStore(t)

	err := s.MarkChapterComplete(context.Background(), -1)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestMarkChapterComplete_AwardsFirstChapterOnce(t *testing.T) {
	s, _, _ := newTestStore(t, WithCatalogProvider(testCatalog()))
	ctx := context.Background()

	events, cancel := s.SubscribeAchievements()
	defer cancel()

	for id := 1; id <= 4; id++ {
		require.NoError(t, s.MarkChapterComplete(ctx, id))
	}

	seen := map[string]int{}
	for len(events) > 0 {
		seen[(<-events).AchievementID]++
	}
	assert.Equal(t, 1, seen["first-chapter"])
	assert.Equal(t, 1, seen["completionist"])

	d := s.Data()
	assert.True(t, d.HasAchievement("first-chapter"))
}

func TestUnmarkChapterComplete_KeepsAwardsAndActivity(t *testing.T) {
	s, _, _ := newTestStore(t, WithCatalogProvider(testCatalog()))
	ctx := context.Background()

	require.NoError(t, s.MarkChapterComplete(ctx, 1))
	marked := s.Data()
	require.True(t, marked.HasAchievement("first-chapter"))

	require.NoError(t, s.UnmarkChapterComplete(ctx, 1))

	d := s.Data()
	assert.Empty(t, d.CompletedChapters)
	assert.True(t, d.HasAchievement("first-chapter"), "awards are irrevocable")
	assert.Equal(t, []string{"2024-01-03"}, d.Streak.ActiveDays)

	// Unmarking an absent chapter is a no-op.
	require.NoError(t, s.UnmarkChapterComplete(ctx, 99))
}

func TestBookmarkLifecycle(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddBookmark(ctx, BookmarkInput{ChapterID: 2, SectionID: 3, Note: "revisit"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	other, err := s.AddBookmark(ctx, BookmarkInput{ChapterID: 2, SectionID: 3, Note: "revisit"})
	require.NoError(t, err)
	assert.NotEqual(t, id, other, "identical positions still get distinct IDs")

	require.NoError(t, s.UpdateBookmarkNote(ctx, id, "done"))
	d := s.Data()
	require.Len(t, d.Bookmarks, 2)
	assert.Equal(t, "done", d.Bookmarks[d.FindBookmark(id)].Note)

	require.NoError(t, s.RemoveBookmark(ctx, id))
	assert.Len(t, s.Data().Bookmarks, 1)

	// Removing an unknown ID is a no-op.
	require.NoError(t, s.RemoveBookmark(ctx, "missing"))

	require.NoError(t, s.ClearBookmarks(ctx))
	assert.Empty(t, s.Data().Bookmarks)
}

func TestWeeklyGoalFlow(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	_, err := s.WeeklyGoalStats(ctx)
	assert.ErrorIs(t, err, shared.ErrNoWeeklyGoal)

	assert.True(t, shared.IsPrecondition(s.SetWeeklyGoal(ctx, 0)))
	require.NoError(t, s.SetWeeklyGoal(ctx, 3))

	for id := 1; id <= 3; id++ {
		require.NoError(t, s.MarkChapterComplete(ctx, id))
	}

	stats, err := s.WeeklyGoalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Target)
	assert.Equal(t, 3, stats.Completed)
	assert.Equal(t, 100.0, stats.Percentage)
	assert.Equal(t, "2024-01-01", stats.WeekStart)

	// Next week: the tally resets, the target carries over.
	clock.Advance(7 * 24 * time.Hour)
	stats, err = s.WeeklyGoalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Target)
	assert.Equal(t, 0, stats.Completed)
	assert.Equal(t, "2024-01-08", stats.WeekStart)

	require.NoError(t, s.ClearWeeklyGoal(ctx))
	_, err = s.WeeklyGoalStats(ctx)
	assert.ErrorIs(t, err, shared.ErrNoWeeklyGoal)
}

func TestRecordTick_AccruesTimeAndStreak(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordTick(ctx))
	require.NoError(t, s.RecordTick(ctx))

	clock.Advance(24 * time.Hour)
	require.NoError(t, s.RecordTick(ctx))

	d := s.Data()
	assert.Equal(t, 3, d.TimeTracking.TotalMinutes)
	assert.Equal(t, 2, d.TimeTracking.DailyLog["2024-01-03"])
	assert.Equal(t, 1, d.TimeTracking.DailyLog["2024-01-04"])
	assert.Equal(t, 2, d.Streak.Current, "passive time accrual extends the streak")
}

func TestPersistenceFailure_SurfacesButStateAdvances(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	backend.SaveErr = errors.New("disk full")
	err := s.MarkChapterComplete(ctx, 1)
	require.Error(t, err)
	assert.True(t, shared.IsPersistence(err))

	// The in-memory mutation stands; the next successful write reconverges.
	assert.Equal(t, []int{1}, s.Data().CompletedChapters)

	backend.SaveErr = nil
	require.NoError(t, s.MarkChapterComplete(ctx, 2))
	blob, found, err := backend.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, string(blob), `"completedChapters":[1,2]`)
}

func TestResetProgress(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkChapterComplete(ctx, 1))
	require.NoError(t, s.SetWeeklyGoal(ctx, 2))
	require.NoError(t, s.RecordTick(ctx))

	require.NoError(t, s.ResetProgress(ctx))

	d := s.Data()
	assert.Empty(t, d.CompletedChapters)
	assert.Zero(t, d.TimeTracking.TotalMinutes)
	assert.Nil(t, d.WeeklyGoal)
	assert.Empty(t, d.Streak.ActiveDays)
	require.NotNil(t, d.TimeTracking.SessionStart)
}

func TestSetCatalogProvider_RunsDeferredEvaluation(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	for id := 1; id <= 4; id++ {
		require.NoError(t, s.MarkChapterComplete(ctx, id))
	}
	before := s.Data()
	assert.False(t, before.HasAchievement("completionist"))

	require.NoError(t, s.SetCatalogProvider(ctx, testCatalog()))
	after := s.Data()
	assert.True(t, after.HasAchievement("completionist"))
	assert.True(t, after.HasAchievement("halfway"))
}

func TestSubscribe_ReceivesCommittedSnapshots(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	updates, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.MarkChapterComplete(ctx, 7))

	select {
	case d := <-updates:
		assert.Equal(t, []int{7}, d.CompletedChapters)
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}
}

func TestSubscribeEvents_GranularStream(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	events, cancel := s.SubscribeEvents()
	defer cancel()

	require.NoError(t, s.MarkChapterComplete(ctx, 3))

	ev := <-events
	completed, ok := ev.(shared.ChapterCompletedEvent)
	require.True(t, ok, "first event is the chapter completion")
	assert.Equal(t, shared.EventChapterCompleted, completed.EventType())
	assert.Equal(t, 3, completed.ChapterID)
	assert.Equal(t, "2024-01-03", completed.DayKey)

	ev = <-events
	streak, ok := ev.(shared.StreakUpdatedEvent)
	require.True(t, ok, "streak change follows")
	assert.Equal(t, 1, streak.Current)
}

func TestGetStats(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	chapters := testCatalog().Chapters()

	require.NoError(t, s.MarkChapterComplete(ctx, 1))
	require.NoError(t, s.MarkChapterComplete(ctx, 3))
	require.NoError(t, s.RecordTick(ctx))
	require.NoError(t, s.RecordTick(ctx))

	st := s.GetStats(chapters)
	assert.Equal(t, 4, st.TotalChapters)
	assert.Equal(t, 2, st.CompletedChapters)
	assert.Equal(t, 50.0, st.CompletionPercentage)
	assert.Equal(t, 2, st.TotalTimeMinutes)
	assert.Equal(t, 1, st.AverageTimePerChapter)
	assert.Equal(t, 2, st.TodayMinutes)
	assert.Equal(t, 2, st.WeekMinutes)
	assert.Equal(t, 1, st.CurrentStreak)
}

func TestGetCategoryProgress(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	chapters := testCatalog().Chapters()

	require.NoError(t, s.MarkChapterComplete(ctx, 3))
	require.NoError(t, s.MarkChapterComplete(ctx, 4))

	byCat := s.GetCategoryProgress(chapters)
	require.Len(t, byCat, 2)
	assert.Equal(t, CategoryStats{Total: 2, Completed: 0, Percentage: 0}, byCat["Basics"])
	assert.Equal(t, CategoryStats{Total: 2, Completed: 2, Percentage: 100}, byCat["Concurrency"])
}

func TestGetAllAchievements(t *testing.T) {
	s, _, _ := newTestStore(t, WithCatalogProvider(testCatalog()))
	ctx := context.Background()

	require.NoError(t, s.MarkChapterComplete(ctx, 1))

	all := s.GetAllAchievements()
	require.NotEmpty(t, all)
	var earned int
	for _, ws := range all {
		if ws.Earned {
			earned++
			require.NotNil(t, ws.EarnedAt)
		}
	}
	assert.GreaterOrEqual(t, earned, 1)
}
