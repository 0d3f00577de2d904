package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-progress/internal/domain/shared"
)

func TestExportSnapshot_EnvelopeShape(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.MarkChapterComplete(ctx, 1))

	blob, err := s.ExportSnapshot()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(blob, &env))
	assert.Equal(t, SnapshotFormat, env.Format)
	assert.Equal(t, SnapshotVersion, env.Version)
	assert.True(t, env.ExportedAt.Equal(clock.t))
	assert.Equal(t, checksum(env.Data), env.Checksum)
	assert.Contains(t, string(env.Data), `"completedChapters":[1]`)
}

func TestImportSnapshot_ReplaceRoundTrip(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkChapterComplete(ctx, 1))
	require.NoError(t, s.SetWeeklyGoal(ctx, 2))
	require.NoError(t, s.RecordTick(ctx))
	_, err := s.AddBookmark(ctx, BookmarkInput{ChapterID: 1, Note: "resume here"})
	require.NoError(t, err)

	exported, err := s.ExportSnapshot()
	require.NoError(t, err)

	// Importing into a fresh store under the same clock reproduces the state.
	s2, _, _ := newTestStore(t)
	require.NoError(t, s2.ImportSnapshot(ctx, exported, false))

	reExported, err := s2.ExportSnapshot()
	require.NoError(t, err)

	var env1, env2 Envelope
	require.NoError(t, json.Unmarshal(exported, &env1))
	require.NoError(t, json.Unmarshal(reExported, &env2))
	assert.JSONEq(t, string(env1.Data), string(env2.Data))
}

func TestImportSnapshot_Merge(t *testing.T) {
	ctx := context.Background()

	s1, _, _ := newTestStore(t)
	require.NoError(t, s1.MarkChapterComplete(ctx, 2))
	require.NoError(t, s1.MarkChapterComplete(ctx, 3))
	_, err := s1.AddBookmark(ctx, BookmarkInput{ChapterID: 2})
	require.NoError(t, err)
	require.NoError(t, s1.RecordTick(ctx)) // 1 minute

	other, _, _ := newTestStore(t)
	require.NoError(t, other.MarkChapterComplete(ctx, 1))
	require.NoError(t, other.MarkChapterComplete(ctx, 2))
	require.NoError(t, other.RecordTick(ctx))
	require.NoError(t, other.RecordTick(ctx)) // 2 minutes
	exported, err := other.ExportSnapshot()
	require.NoError(t, err)

	require.NoError(t, s1.ImportSnapshot(ctx, exported, true))

	d := s1.Data()
	assert.Equal(t, []int{1, 2, 3}, d.CompletedChapters)
	assert.Equal(t, 3, d.TimeTracking.TotalMinutes)
	assert.Len(t, d.Bookmarks, 1)
	assert.Equal(t, []string{"2024-01-03"}, d.Streak.ActiveDays)
}

func TestImportSnapshot_RejectsForeignFormat(t *testing.T) {
	s, _, _ := newTestStore(t)

	blob := []byte(`{"format":"other-app","version":1,"data":{}}`)
	err := s.ImportSnapshot(context.Background(), blob, false)
	assert.ErrorIs(t, err, shared.ErrSnapshotFormat)
}

func TestImportSnapshot_RejectsNewerVersion(t *testing.T) {
	s, _, _ := newTestStore(t)

	blob := []byte(`{"format":"learnhub-progress","version":99,"data":{}}`)
	err := s.ImportSnapshot(context.Background(), blob, false)
	assert.ErrorIs(t, err, shared.ErrSnapshotVersion)
}

func TestImportSnapshot_RejectsChecksumMismatch(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.MarkChapterComplete(ctx, 1))

	exported, err := s.ExportSnapshot()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(exported, &env))
	env.Checksum = "deadbeef"
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	err = s.ImportSnapshot(ctx, tampered, false)
	assert.ErrorIs(t, err, shared.ErrSnapshotChecksum)
}

func TestImportSnapshot_ChecksumIgnoresWhitespace(t *testing.T) {
	// The exported envelope is indented, which reflows the embedded data
	// section relative to the bytes the checksum was computed over. Import
	// must verify the checksum against the canonical form, so reformatting
	// the document never invalidates it.
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.MarkChapterComplete(ctx, 1))
	require.NoError(t, s.RecordTick(ctx))

	exported, err := s.ExportSnapshot()
	require.NoError(t, err)

	var reindented bytes.Buffer
	require.NoError(t, json.Indent(&reindented, exported, "", "\t"))

	s2, _, _ := newTestStore(t)
	require.NoError(t, s2.ImportSnapshot(ctx, reindented.Bytes(), false))
	d := s2.Data()
	assert.Equal(t, []int{1}, d.CompletedChapters)
	assert.Equal(t, 1, d.TimeTracking.TotalMinutes)
}

func TestImportSnapshot_MalformedBlobLeavesStateIntact(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.MarkChapterComplete(ctx, 5))
	before := s.Data()

	cases := []struct {
		name string
		blob string
	}{
		{"not json", "not json at all"},
		{"missing data", `{"format":"learnhub-progress","version":1}`},
		{"missing timeTracking", `{"format":"learnhub-progress","version":1,"data":{"streak":{"activeDays":[]}}}`},
		{"missing streak", `{"format":"learnhub-progress","version":1,"data":{"timeTracking":{"totalMinutes":0}}}`},
		{"negative minutes", `{"format":"learnhub-progress","version":1,"data":{"timeTracking":{"totalMinutes":-5},"streak":{"activeDays":[]}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.ImportSnapshot(ctx, []byte(tc.blob), false)
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))
			assert.Equal(t, before.CompletedChapters, s.Data().CompletedChapters)
		})
	}
}

func TestImportSnapshot_RecomputesStreakForToday(t *testing.T) {
	ctx := context.Background()

	// Exporter last studied two days before the importer's "today".
	exporter, _, expClock := newTestStore(t)
	expClock.t = expClock.t.Add(-48 * time.Hour) // Monday
	require.NoError(t, exporter.MarkChapterComplete(ctx, 1))
	exported, err := exporter.ExportSnapshot()
	require.NoError(t, err)

	importer, _, _ := newTestStore(t) // Wednesday
	require.NoError(t, importer.ImportSnapshot(ctx, exported, false))

	d := importer.Data()
	assert.Equal(t, 0, d.Streak.Current, "stale activity does not count toward today")
	assert.Equal(t, 1, d.Streak.Longest)
}
