package achievement

import (
	"time"

	"github.com/learnhub/learnhub-progress/internal/domain/catalog"
	"github.com/learnhub/learnhub-progress/internal/domain/progress"
)

// Award is one newly earned achievement produced by an evaluation pass.
type Award struct {
	Definition Definition
	EarnedAt   time.Time
}

// Engine evaluates the definition table against the aggregate. It holds no
// mutable state of its own; the earned list lives in the aggregate, so the
// engine can be shared freely.
type Engine struct {
	defs []Definition
}

// NewEngine creates an engine over the standard definition table.
func NewEngine() *Engine {
	return &Engine{defs: Definitions()}
}

// NewEngineWith creates an engine over a custom definition table. Used by
// tests to pin down evaluation order and condition behavior.
func NewEngineWith(defs []Definition) *Engine {
	return &Engine{defs: defs}
}

// Evaluate runs one pass over the definition table in declaration order.
// Definitions already present in the aggregate's earned list are skipped;
// newly satisfied ones are appended to it with the given award time and
// returned. The caller persists once after the pass and emits one
// notification per returned award.
func (e *Engine) Evaluate(d *progress.Data, chapters []catalog.Chapter, now time.Time) []Award {
	var awards []Award
	for _, def := range e.defs {
		if d.HasAchievement(def.ID) {
			continue
		}
		if !def.Condition(d, chapters) {
			continue
		}
		d.AddAchievement(def.ID, now)
		awards = append(awards, Award{Definition: def, EarnedAt: now})
	}
	return awards
}

// Annotate returns the full definition table annotated with the aggregate's
// earned state.
func (e *Engine) Annotate(d *progress.Data) []WithStatus {
	earnedAt := make(map[string]time.Time, len(d.EarnedAchievements))
	for _, ea := range d.EarnedAchievements {
		earnedAt[ea.ID] = ea.EarnedAt
	}
	out := make([]WithStatus, 0, len(e.defs))
	for _, def := range e.defs {
		ws := WithStatus{Definition: def}
		if at, ok := earnedAt[def.ID]; ok {
			ws.Earned = true
			t := at
			ws.EarnedAt = &t
		}
		out = append(out, ws)
	}
	return out
}
