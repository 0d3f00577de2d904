package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened to the progress aggregate.
const (
	// Progress events
	EventChapterCompleted EventType = "progress.chapter_completed"
	EventChapterUnmarked  EventType = "progress.chapter_unmarked"
	EventBookmarkAdded    EventType = "progress.bookmark_added"
	EventBookmarkRemoved  EventType = "progress.bookmark_removed"
	EventStreakUpdated    EventType = "progress.streak_updated"
	EventMinuteTicked     EventType = "progress.minute_ticked"
	EventProgressReset    EventType = "progress.reset"

	// Weekly goal events
	EventWeeklyGoalSet      EventType = "goal.set"
	EventWeeklyGoalCleared  EventType = "goal.cleared"
	EventWeeklyGoalRollover EventType = "goal.week_rollover"

	// Achievement events
	EventAchievementEarned EventType = "achievement.earned"

	// Snapshot events
	EventSnapshotImported EventType = "snapshot.imported"
	EventSnapshotExported EventType = "snapshot.exported"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

// ChapterCompletedEvent is emitted when a chapter is marked complete for the
// first time.
type ChapterCompletedEvent struct {
	BaseEvent
	ChapterID int    `json:"chapter_id"`
	DayKey    string `json:"day_key"`
}

// NewChapterCompletedEvent creates a new ChapterCompletedEvent.
func NewChapterCompletedEvent(chapterID int, dayKey string) ChapterCompletedEvent {
	return ChapterCompletedEvent{
		BaseEvent: NewBaseEvent(EventChapterCompleted),
		ChapterID: chapterID,
		DayKey:    dayKey,
	}
}

// StreakUpdatedEvent is emitted when the streak is recomputed.
type StreakUpdatedEvent struct {
	BaseEvent
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(current, longest int) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent: NewBaseEvent(EventStreakUpdated),
		Current:   current,
		Longest:   longest,
	}
}

// AchievementEarnedEvent is emitted exactly once per newly awarded
// achievement. Delivery is best-effort: subscribers that are not listening at
// the moment of the award never see it.
type AchievementEarnedEvent struct {
	BaseEvent
	AchievementID string    `json:"achievement_id"`
	Name          string    `json:"name"`
	Icon          string    `json:"icon"`
	EarnedAt      time.Time `json:"earned_at"`
}

// NewAchievementEarnedEvent creates a new AchievementEarnedEvent.
func NewAchievementEarnedEvent(id, name, icon string, earnedAt time.Time) AchievementEarnedEvent {
	return AchievementEarnedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementEarned),
		AchievementID: id,
		Name:          name,
		Icon:          icon,
		EarnedAt:      earnedAt,
	}
}
