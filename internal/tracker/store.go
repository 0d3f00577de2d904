// Package tracker implements the progress store: the single exclusive owner
// of the progress aggregate. All reads see the latest committed value, all
// writes are sequential, and every committed mutation is persisted
// synchronously and broadcast to subscribers.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/learnhub/learnhub-progress/internal/domain/achievement"
	"github.com/learnhub/learnhub-progress/internal/domain/catalog"
	"github.com/learnhub/learnhub-progress/internal/domain/progress"
	"github.com/learnhub/learnhub-progress/internal/domain/shared"
	"github.com/learnhub/learnhub-progress/internal/infrastructure/messaging"
	"github.com/learnhub/learnhub-progress/pkg/timeutil"
)

// Store owns the progress aggregate. One mutex serializes user-triggered
// mutations and the background minute tick, so neither ever observes a
// half-updated aggregate.
type Store struct {
	mu sync.Mutex

	data    *progress.Data
	storage progress.SnapshotStore
	engine  *achievement.Engine
	catalog catalog.Provider // nil until the content layer injects it

	progressStream    *messaging.Broadcaster[progress.Data]
	achievementStream *messaging.Broadcaster[shared.AchievementEarnedEvent]
	eventStream       *messaging.Broadcaster[shared.Event]

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithNow overrides the clock. Used by tests to pin down streak and weekly
// rollover behavior.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCatalogProvider injects the chapter catalog at construction time, for
// shells that have it available up front.
func WithCatalogProvider(p catalog.Provider) Option {
	return func(s *Store) { s.catalog = p }
}

// NewStore loads the persisted aggregate (or initializes defaults), freshly
// recomputes the streak, stamps the session start, and persists the result.
//
// A decode or validation failure of the persisted blob is returned as an
// error: silently discarding a user's progress is worse than refusing to
// start. A failed initial write is only logged; the in-memory aggregate is
// valid and the next successful write reconverges.
func NewStore(ctx context.Context, storage progress.SnapshotStore, opts ...Option) (*Store, error) {
	s := &Store{
		storage:           storage,
		engine:            achievement.NewEngine(),
		progressStream:    messaging.NewBroadcaster[progress.Data](messaging.DefaultBufferSize, true, nil),
		achievementStream: messaging.NewBroadcaster[shared.AchievementEarnedEvent](messaging.DefaultBufferSize, false, nil),
		eventStream:       messaging.NewBroadcaster[shared.Event](messaging.DefaultBufferSize, false, nil),
		logger:            slog.Default(),
		now:               timeutil.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	blob, found, err := storage.Load(ctx)
	if err != nil {
		return nil, err
	}
	if found {
		data, err := decodeData(blob)
		if err != nil {
			return nil, err
		}
		s.data = data
	} else {
		s.data = progress.NewData()
	}

	now := s.now()
	// Time may have passed since the last persisted write; the stored
	// current streak is re-derived, never trusted as-is.
	s.data.RecomputeStreak(timeutil.DayKey(now))
	start := now
	s.data.TimeTracking.SessionStart = &start
	s.data.LastUpdated = now

	if err := s.persistLocked(ctx); err != nil {
		s.logger.Warn("initial snapshot write failed, continuing with in-memory state", "error", err)
	}

	if s.catalog != nil {
		awards := s.evaluateLocked(now)
		if len(awards) > 0 {
			if err := s.persistLocked(ctx); err != nil {
				s.logger.Warn("snapshot write after startup evaluation failed", "error", err)
			}
			s.publishAwards(awards)
		}
	}

	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CHAPTER COMPLETION
// ══════════════════════════════════════════════════════════════════════════════

// MarkChapterComplete adds a chapter to the completed set, records today's
// activity, advances the weekly goal and re-evaluates achievements.
// Idempotent: a second call for the same chapter performs no side effects.
func (s *Store) MarkChapterComplete(ctx context.Context, chapterID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chapterID < 0 {
		return shared.ErrInvalidChapterID
	}
	if !s.data.AddChapter(chapterID) {
		return nil
	}

	now := s.now()
	today := timeutil.DayKey(now)
	before := s.data.Streak.Current
	s.data.RecordActivity(today)

	if g := s.data.WeeklyGoal; g != nil {
		if g.Rollover(now) {
			s.logger.Info("weekly goal rolled over", "week_start", g.WeekStart)
			s.eventStream.Publish(shared.NewBaseEvent(shared.EventWeeklyGoalRollover))
		}
		g.RecordCompletion(chapterID)
	}

	awards := s.evaluateLocked(now)
	s.data.LastUpdated = now

	err := s.commitLocked(ctx)
	s.eventStream.Publish(shared.NewChapterCompletedEvent(chapterID, today))
	if s.data.Streak.Current != before {
		s.eventStream.Publish(shared.NewStreakUpdatedEvent(s.data.Streak.Current, s.data.Streak.Longest))
	}
	s.publishAwards(awards)
	return err
}

// UnmarkChapterComplete removes a chapter from the completed set. The
// activity-day record stays and earned achievements stay; awards are
// irrevocable, so no achievement re-evaluation happens here.
func (s *Store) UnmarkChapterComplete(ctx context.Context, chapterID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.data.RemoveChapter(chapterID) {
		return nil
	}
	s.data.LastUpdated = s.now()
	err := s.commitLocked(ctx)
	s.eventStream.Publish(shared.NewBaseEvent(shared.EventChapterUnmarked))
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// BOOKMARKS
// ══════════════════════════════════════════════════════════════════════════════

// BookmarkInput is the caller-supplied part of a bookmark.
type BookmarkInput struct {
	ChapterID int
	SectionID int
	Note      string
}

// AddBookmark appends a bookmark and returns its generated ID.
func (s *Store) AddBookmark(ctx context.Context, in BookmarkInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	bm := progress.Bookmark{
		ID:        uuid.NewString(),
		ChapterID: in.ChapterID,
		SectionID: in.SectionID,
		Note:      in.Note,
		CreatedAt: now,
	}
	s.data.Bookmarks = append(s.data.Bookmarks, bm)

	awards := s.evaluateLocked(now)
	s.data.LastUpdated = now

	err := s.commitLocked(ctx)
	s.eventStream.Publish(shared.NewBaseEvent(shared.EventBookmarkAdded))
	s.publishAwards(awards)
	return bm.ID, err
}

// RemoveBookmark deletes a bookmark by ID. No-op if the ID is absent.
func (s *Store) RemoveBookmark(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.data.FindBookmark(id)
	if i < 0 {
		return nil
	}
	s.data.Bookmarks = append(s.data.Bookmarks[:i], s.data.Bookmarks[i+1:]...)
	s.data.LastUpdated = s.now()
	err := s.commitLocked(ctx)
	s.eventStream.Publish(shared.NewBaseEvent(shared.EventBookmarkRemoved))
	return err
}

// UpdateBookmarkNote replaces the note of a bookmark. No-op if the ID is
// absent.
func (s *Store) UpdateBookmarkNote(ctx context.Context, id, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.data.FindBookmark(id)
	if i < 0 {
		return nil
	}
	s.data.Bookmarks[i].Note = note
	s.data.LastUpdated = s.now()
	return s.commitLocked(ctx)
}

// ClearBookmarks empties the bookmark list only.
func (s *Store) ClearBookmarks(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Bookmarks = []progress.Bookmark{}
	s.data.LastUpdated = s.now()
	return s.commitLocked(ctx)
}

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY GOAL
// ══════════════════════════════════════════════════════════════════════════════

// SetWeeklyGoal creates a goal for the current week, discarding any prior
// goal. The target must be a positive integer.
func (s *Store) SetWeeklyGoal(ctx context.Context, target int) error {
	if target <= 0 {
		return shared.ErrGoalTargetRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.data.WeeklyGoal = progress.NewWeeklyGoal(target, now)
	s.data.LastUpdated = now
	err := s.commitLocked(ctx)
	s.eventStream.Publish(shared.NewBaseEvent(shared.EventWeeklyGoalSet))
	return err
}

// ClearWeeklyGoal removes the goal.
func (s *Store) ClearWeeklyGoal(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.WeeklyGoal == nil {
		return nil
	}
	s.data.WeeklyGoal = nil
	s.data.LastUpdated = s.now()
	err := s.commitLocked(ctx)
	s.eventStream.Publish(shared.NewBaseEvent(shared.EventWeeklyGoalCleared))
	return err
}

// WeeklyGoalStats returns the current goal read model, performing the week
// rollover check first. Returns shared.ErrNoWeeklyGoal when no goal is set.
func (s *Store) WeeklyGoalStats(ctx context.Context) (progress.WeeklyGoalStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.data.WeeklyGoal
	if g == nil {
		return progress.WeeklyGoalStats{}, shared.ErrNoWeeklyGoal
	}

	now := s.now()
	if g.Rollover(now) {
		s.logger.Info("weekly goal rolled over", "week_start", g.WeekStart)
		s.eventStream.Publish(shared.NewBaseEvent(shared.EventWeeklyGoalRollover))
		s.data.LastUpdated = now
		if err := s.commitLocked(ctx); err != nil {
			return g.Stats(now), err
		}
	}
	return g.Stats(now), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TIME TRACKING
// ══════════════════════════════════════════════════════════════════════════════

// RecordTick accrues one study minute for today and records activity, so
// passive time accrual also extends the streak. Called by the scheduler's
// minute-tick job; no other component mutates time tracking.
func (s *Store) RecordTick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	today := timeutil.DayKey(now)
	before := s.data.Streak.Current
	s.data.AddMinute(today)
	s.data.RecordActivity(today)

	awards := s.evaluateLocked(now)
	s.data.LastUpdated = now

	err := s.commitLocked(ctx)
	s.eventStream.Publish(shared.NewBaseEvent(shared.EventMinuteTicked))
	if s.data.Streak.Current != before {
		s.eventStream.Publish(shared.NewStreakUpdatedEvent(s.data.Streak.Current, s.data.Streak.Longest))
	}
	s.publishAwards(awards)
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// RESET / CATALOG / READS
// ══════════════════════════════════════════════════════════════════════════════

// ResetProgress replaces the aggregate with fresh defaults. Confirmation UX
// belongs to the UI collaborator, not here.
func (s *Store) ResetProgress(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.data = progress.NewData()
	start := now
	s.data.TimeTracking.SessionStart = &start
	s.data.LastUpdated = now
	err := s.commitLocked(ctx)
	s.eventStream.Publish(shared.NewBaseEvent(shared.EventProgressReset))
	return err
}

// SetCatalogProvider injects (or replaces) the chapter catalog collaborator
// and runs the deferred achievement evaluation that had to wait for it.
func (s *Store) SetCatalogProvider(ctx context.Context, p catalog.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog = p

	now := s.now()
	awards := s.evaluateLocked(now)
	if len(awards) == 0 {
		return nil
	}
	s.data.LastUpdated = now
	err := s.commitLocked(ctx)
	s.publishAwards(awards)
	return err
}

// Data returns a deep copy of the latest committed aggregate.
func (s *Store) Data() progress.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.data.Clone()
}

// Subscribe returns a stream that receives the full aggregate after every
// committed mutation. Slow consumers miss intermediate states but always
// converge on the latest.
func (s *Store) Subscribe() (<-chan progress.Data, func()) {
	return s.progressStream.Subscribe()
}

// SubscribeAchievements returns the "achievement just earned" stream.
// Fire-and-forget: no replay for late subscribers, no delivery guarantee.
func (s *Store) SubscribeAchievements() (<-chan shared.AchievementEarnedEvent, func()) {
	return s.achievementStream.Subscribe()
}

// SubscribeEvents returns the granular domain-event stream. Delivery is
// best-effort like the achievement stream; consumers that need guaranteed
// state should use Subscribe instead.
func (s *Store) SubscribeEvents() (<-chan shared.Event, func()) {
	return s.eventStream.Subscribe()
}

// Close shuts down the subscription streams. The minute-tick scheduler is
// owned and stopped by the caller.
func (s *Store) Close() {
	s.progressStream.Close()
	s.achievementStream.Close()
	s.eventStream.Close()
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERNAL
// ══════════════════════════════════════════════════════════════════════════════

// evaluateLocked runs one achievement pass. The catalog is re-read through
// the provider on every pass; stale chapter lists must never be cached.
// Catalog-dependent conditions see an empty list until a provider exists.
func (s *Store) evaluateLocked(now time.Time) []achievement.Award {
	var chapters []catalog.Chapter
	if s.catalog != nil {
		chapters = s.catalog.Chapters()
	}
	awards := s.engine.Evaluate(s.data, chapters, now)
	for _, a := range awards {
		s.logger.Info("achievement earned",
			"achievement_id", a.Definition.ID,
			"name", a.Definition.Name,
		)
	}
	return awards
}

// persistLocked writes the aggregate through the storage collaborator.
func (s *Store) persistLocked(ctx context.Context) error {
	blob, err := marshalData(s.data)
	if err != nil {
		return shared.WrapError("progress", "Persist", shared.ErrPersistence, "failed to encode snapshot", err)
	}
	if err := s.storage.Save(ctx, blob); err != nil {
		return shared.WrapError("progress", "Persist", shared.ErrPersistence, "failed to write snapshot", err)
	}
	return nil
}

// commitLocked persists the aggregate and notifies subscribers. The
// in-memory mutation stands even when the write fails; the error is surfaced
// so the caller can retry or warn, and in-memory and persisted state diverge
// until the next successful write.
func (s *Store) commitLocked(ctx context.Context) error {
	err := s.persistLocked(ctx)
	s.progressStream.Publish(*s.data.Clone())
	return err
}

func (s *Store) publishAwards(awards []achievement.Award) {
	for _, a := range awards {
		s.achievementStream.Publish(shared.NewAchievementEarnedEvent(
			a.Definition.ID,
			a.Definition.Name,
			a.Definition.Icon,
			a.EarnedAt,
		))
	}
}
