// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package shale

import (
	"testing"
	"time"

	"github.com/cockroachdb/crlib/crtime"
	"github.com/stretchr/testify/require"
)

type testStorage struct {
	files      [][]FileInfo
	bytes      []uint64
	scores     []LevelScore
	activeKeys uint64
}

func (s *testStorage) NumLevelFiles(level int) int     { return len(s.files[level]) }
func (s *testStorage) NumLevelBytes(level int) uint64  { return s.bytes[level] }
func (s *testStorage) LevelFiles(level int) []FileInfo { return s.files[level] }
func (s *testStorage) CompactionScores() []LevelScore  { return s.scores }
func (s *testStorage) EstimatedActiveKeys() uint64     { return s.activeKeys }

type testMemTable struct {
	size    uint64
	entries uint64
}

func (m *testMemTable) ApproximateMemoryUsage() uint64 { return m.size }
func (m *testMemTable) NumEntries() uint64             { return m.entries }

type testMemTableList struct {
	n            int
	flushPending bool
	size         uint64
	entries      uint64
}

func (l *testMemTableList) Len() int                       { return l.n }
func (l *testMemTableList) FlushPending() bool             { return l.flushPending }
func (l *testMemTableList) ApproximateMemoryUsage() uint64 { return l.size }
func (l *testMemTableList) TotalNumEntries() uint64        { return l.entries }

type testSnapshots struct {
	times []time.Time
}

func (s *testSnapshots) Count() int { return len(s.times) }

func (s *testSnapshots) Oldest() time.Time {
	if len(s.times) == 0 {
		return time.Time{}
	}
	return s.times[0]
}

type testVersion struct {
	readersMem uint64
	debug      string
}

func (v *testVersion) MemoryUsageByTableReaders() uint64 { return v.readersMem }
func (v *testVersion) DebugString() string               { return v.debug }

// testEnv bundles fake collaborators and a mocked monotonic clock.
type testEnv struct {
	storage         *testStorage
	mem             *testMemTable
	imm             *testMemTableList
	snapshots       *testSnapshots
	version         Version
	needsCompaction bool
	fileDeletions   bool
	liveVersions    uint64
	now             crtime.Mono
}

func newTestEnv(numLevels int) *testEnv {
	return &testEnv{
		storage: &testStorage{
			files: make([][]FileInfo, numLevels),
			bytes: make([]uint64, numLevels),
		},
		mem:       &testMemTable{},
		imm:       &testMemTableList{},
		snapshots: &testSnapshots{},
	}
}

func (e *testEnv) newStats(cfName string) *Stats {
	return NewStats(Options{
		CFName:    cfName,
		NumLevels: len(e.storage.bytes),
		Collaborators: Collaborators{
			Mem:                  e.mem,
			Imm:                  e.imm,
			Storage:              func() StorageReader { return e.storage },
			Current:              func() Version { return e.version },
			NumLiveVersions:      func() uint64 { return e.liveVersions },
			NeedsCompaction:      func() bool { return e.needsCompaction },
			Snapshots:            e.snapshots,
			FileDeletionsEnabled: func() bool { return e.fileDeletions },
		},
		NowMono: func() crtime.Mono { return e.now },
	})
}

func TestGetIntPropertyLocked(t *testing.T) {
	e := newTestEnv(3)
	e.mem = &testMemTable{size: 1000, entries: 10}
	e.imm = &testMemTableList{n: 2, flushPending: true, size: 500, entries: 20}
	e.storage.activeKeys = 300
	oldest := time.Unix(1_700_000_000, 0)
	e.snapshots.times = []time.Time{oldest, oldest.Add(time.Minute)}
	e.needsCompaction = true
	e.fileDeletions = false
	e.liveVersions = 3

	s := e.newStats("default")
	s.RecordBackgroundError()
	s.RecordBackgroundError()

	testCases := []struct {
		kind PropertyKind
		want uint64
	}{
		{PropertyNumImmutableMemTable, 2},
		{PropertyMemTableFlushPending, 1},
		{PropertyCompactionPending, 1},
		{PropertyBackgroundErrors, 2},
		{PropertyCurSizeActiveMemTable, 1000},
		{PropertyCurSizeAllMemTables, 1500},
		{PropertyNumEntriesActiveMemTable, 10},
		{PropertyNumEntriesImmMemTables, 20},
		{PropertyEstimateNumKeys, 330},
		{PropertyIsFileDeletionsEnabled, 0},
		{PropertyNumSnapshots, 2},
		{PropertyOldestSnapshotTime, uint64(oldest.Unix())},
		{PropertyNumLiveVersions, 3},
	}
	for _, c := range testCases {
		t.Run(c.kind.String(), func(t *testing.T) {
			v, ok := s.GetIntPropertyLocked(c.kind)
			require.True(t, ok)
			require.Equal(t, c.want, v)
		})
	}

	// String kinds are not served by the integer path.
	_, ok := s.GetIntPropertyLocked(PropertyStats)
	require.False(t, ok)
	_, ok = s.GetIntPropertyLocked(PropertyUnknown)
	require.False(t, ok)

	// No snapshots: oldest time reads as zero, successfully.
	e.snapshots.times = nil
	v, ok := s.GetIntPropertyLocked(PropertyOldestSnapshotTime)
	require.True(t, ok)
	require.Equal(t, uint64(0), v)
}

func TestGetIntPropertyIsolated(t *testing.T) {
	e := newTestEnv(3)
	s := e.newStats("default")

	// A missing version is a valid steady state: success with value zero.
	v, ok := s.GetIntPropertyIsolated(PropertyEstimateTableReadersMem, nil)
	require.True(t, ok)
	require.Equal(t, uint64(0), v)

	v, ok = s.GetIntPropertyIsolated(PropertyEstimateTableReadersMem, &testVersion{readersMem: 123})
	require.True(t, ok)
	require.Equal(t, uint64(123), v)

	// Only the table-readers estimate is served by the isolated path.
	_, ok = s.GetIntPropertyIsolated(PropertyNumSnapshots, &testVersion{})
	require.False(t, ok)
}
