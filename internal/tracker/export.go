package tracker

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/learnhub/learnhub-progress/internal/domain/progress"
	"github.com/learnhub/learnhub-progress/internal/domain/shared"
	"github.com/learnhub/learnhub-progress/pkg/timeutil"
)

// Snapshot envelope constants.
const (
	// SnapshotFormat identifies an exported blob as ours.
	SnapshotFormat = "learnhub-progress"

	// SnapshotVersion is the envelope version this build reads and writes.
	SnapshotVersion = 1
)

// Envelope is the self-describing export format: a JSON document wrapping
// the serialized aggregate with identity, version and an integrity digest.
type Envelope struct {
	Format     string          `json:"format"`
	Version    int             `json:"version"`
	ExportedAt time.Time       `json:"exportedAt"`
	Checksum   string          `json:"checksum,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// snapshotPayload mirrors progress.Data with pointers on the required
// sections, so a structurally incomplete blob is detectable. Plain
// unmarshaling into progress.Data would silently zero-fill missing sections.
type snapshotPayload struct {
	Version            *int                         `json:"version"`
	CompletedChapters  []int                        `json:"completedChapters"`
	Bookmarks          []progress.Bookmark          `json:"bookmarks"`
	TimeTracking       *progress.TimeTracking       `json:"timeTracking"`
	Streak             *progress.Streak             `json:"streak"`
	WeeklyGoal         *progress.WeeklyGoal         `json:"weeklyGoal"`
	EarnedAchievements []progress.EarnedAchievement `json:"earnedAchievements"`
	LastUpdated        time.Time                    `json:"lastUpdated"`
}

// marshalData produces the canonical serialized aggregate. Both the
// persisted blob and the export envelope payload use this encoding, so the
// checksum and the round-trip law hold for either.
func marshalData(d *progress.Data) ([]byte, error) {
	return json.Marshal(d)
}

// decodeData parses and structurally validates a serialized aggregate.
// Returns a validation error without partial results on malformed input.
func decodeData(blob []byte) (*progress.Data, error) {
	var p snapshotPayload
	if err := json.Unmarshal(blob, &p); err != nil {
		return nil, shared.WrapError("snapshot", "Decode", shared.ErrSnapshotMalformed, "snapshot blob is not valid JSON", err)
	}
	if p.TimeTracking == nil {
		return nil, shared.NewDomainError("snapshot", "Decode", shared.ErrValidation, "timeTracking section is missing")
	}
	if p.Streak == nil {
		return nil, shared.NewDomainError("snapshot", "Decode", shared.ErrValidation, "streak section is missing")
	}

	d := &progress.Data{
		CompletedChapters:  p.CompletedChapters,
		Bookmarks:          p.Bookmarks,
		TimeTracking:       *p.TimeTracking,
		Streak:             *p.Streak,
		WeeklyGoal:         p.WeeklyGoal,
		EarnedAchievements: p.EarnedAchievements,
		LastUpdated:        p.LastUpdated,
	}
	if p.Version != nil {
		d.Version = *p.Version
	}
	if d.Version > progress.SchemaVersion {
		return nil, shared.ErrSnapshotVersion
	}
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// checksum returns the SHA3-256 hex digest of the payload in compact JSON
// form. The payload is canonicalized first: the envelope is emitted indented,
// which reformats the embedded data section, so export and import would
// otherwise hash different bytes for the same document.
func checksum(payload []byte) string {
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload); err == nil {
		payload = compact.Bytes()
	}
	sum := sha3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// ExportSnapshot serializes the full aggregate to a portable, self-describing
// text blob. Lossless: importing the result with merge=false reproduces an
// equal aggregate.
func (s *Store) ExportSnapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := marshalData(s.data)
	if err != nil {
		return nil, shared.WrapError("snapshot", "Export", shared.ErrPersistence, "failed to encode aggregate", err)
	}
	env := Envelope{
		Format:     SnapshotFormat,
		Version:    SnapshotVersion,
		ExportedAt: s.now(),
		Checksum:   checksum(payload),
		Data:       payload,
	}
	blob, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, shared.WrapError("snapshot", "Export", shared.ErrPersistence, "failed to encode envelope", err)
	}
	s.eventStream.Publish(shared.NewBaseEvent(shared.EventSnapshotExported))
	return blob, nil
}

// ImportSnapshot parses blob and either replaces the current aggregate
// (merge=false) or combines it with the current one (merge=true):
// chapter-set union, bookmark concatenation, summed total minutes,
// active-day union. Per-day minute entries from the incoming side are not
// merged; only the aggregate total is summed.
//
// Validation is atomic: a malformed blob is rejected with a validation error
// and current state stays fully intact. After a successful import the streak
// is recomputed and the result persisted.
func (s *Store) ImportSnapshot(ctx context.Context, blob []byte, merge bool) error {
	var env Envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return shared.WrapError("snapshot", "Import", shared.ErrSnapshotMalformed, "blob is not a valid snapshot envelope", err)
	}
	if env.Format != SnapshotFormat {
		return shared.ErrSnapshotFormat
	}
	if env.Version > SnapshotVersion {
		return shared.ErrSnapshotVersion
	}
	if len(env.Data) == 0 {
		return shared.NewDomainError("snapshot", "Import", shared.ErrValidation, "data section is missing")
	}
	if env.Checksum != "" && env.Checksum != checksum(env.Data) {
		return shared.ErrSnapshotChecksum
	}

	incoming, err := decodeData(env.Data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var next *progress.Data
	if merge {
		next = s.data.Clone()
		next.Merge(incoming)
	} else {
		next = incoming
	}
	next.RecomputeStreak(timeutil.DayKey(now))
	next.LastUpdated = now

	s.data = next
	s.logger.Info("snapshot imported", "merge", merge,
		"chapters", len(next.CompletedChapters),
		"bookmarks", len(next.Bookmarks),
	)
	err = s.commitLocked(ctx)
	s.eventStream.Publish(shared.NewBaseEvent(shared.EventSnapshotImported))
	return err
}
