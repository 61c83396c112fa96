// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package shale implements the operational-statistics and property-reporting
// subsystem of an LSM-tree key-value engine. It turns the raw counters
// accumulated by the engine's compaction, flush, and write paths into
// queryable properties and fixed-format text reports. It performs no I/O and
// owns no background work; the only state it mutates are the epoch snapshots
// used to compute since-last-report intervals.
package shale

import (
	"time"

	"github.com/cockroachdb/crlib/crtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shaledb/shale/internal/base"
	"github.com/shaledb/shale/internal/invariants"
)

// ErrUnknownProperty is returned by GetStringPropertyLocked for an
// unrecognized property kind.
var ErrUnknownProperty = base.ErrUnknownProperty

// CFStatsKind indexes the column-family-scoped counters that are not
// per-level compaction stats. The first three kinds are the level-0 write
// stall causes; each records a (micros, count) pair.
type CFStatsKind uint8

const (
	// CFStatsL0Slowdown: writes were slowed because L0 reached its size
	// slowdown trigger.
	CFStatsL0Slowdown CFStatsKind = iota
	// CFStatsL0NumFiles: writes were slowed because L0 reached its
	// file-count trigger.
	CFStatsL0NumFiles
	// CFStatsMemTableCompaction: writes waited for memtable flushes to catch
	// up.
	CFStatsMemTableCompaction
	// CFStatsBytesFlushed: bytes flushed from memtables into L0. This is the
	// ingest volume used as the baseline for aggregate write amplification.
	CFStatsBytesFlushed

	numCFStatsKinds
)

// numL0StallKinds delimits the CFStatsKind values that record stall time.
const numL0StallKinds = 3

// DBStatsKind indexes the DB-wide counters maintained by the write path.
type DBStatsKind uint8

const (
	// DBStatsBytesWritten: bytes written by the user.
	DBStatsBytesWritten DBStatsKind = iota
	// DBStatsKeysWritten: key updates issued by all write requests.
	DBStatsKeysWritten
	// DBStatsWriteDoneBySelf: writes a thread performed itself, i.e. group
	// commits issued to the engine.
	DBStatsWriteDoneBySelf
	// DBStatsWriteDoneByOther: writes folded into another thread's batch.
	DBStatsWriteDoneByOther
	// DBStatsWALBytes: bytes written to the WAL.
	DBStatsWALBytes
	// DBStatsWALSynced: WAL sync operations.
	DBStatsWALSynced
	// DBStatsWriteWithWAL: writes accompanied by a WAL record.
	DBStatsWriteWithWAL
	// DBStatsWriteStallMicros: cumulative time writes were stalled.
	DBStatsWriteStallMicros

	numDBStatsKinds
)

// StallCounter is a write-stall duration and the number of stall events that
// produced it. The two move in lockstep: a nonzero Micros implies a nonzero
// Count.
type StallCounter struct {
	Micros uint64
	Count  uint64
}

func (c *StallCounter) add(micros uint64) {
	c.Micros += micros
	c.Count++
}

func (c *StallCounter) subtract(o StallCounter) {
	c.Micros = subClamped(c.Micros, o.Micros)
	c.Count = subClamped(c.Count, o.Count)
}

// MemTable exposes the read accessors of the active memtable.
type MemTable interface {
	// ApproximateMemoryUsage returns the memtable's memory footprint in
	// bytes.
	ApproximateMemoryUsage() uint64
	// NumEntries returns the number of entries in the memtable.
	NumEntries() uint64
}

// MemTableList exposes the read accessors of the immutable-memtable list.
type MemTableList interface {
	// Len returns the number of immutable memtables.
	Len() int
	// FlushPending reports whether an immutable memtable is ready to flush.
	FlushPending() bool
	// ApproximateMemoryUsage returns the combined memory footprint of the
	// immutable memtables in bytes.
	ApproximateMemoryUsage() uint64
	// TotalNumEntries returns the number of entries across the immutable
	// memtables.
	TotalNumEntries() uint64
}

// SnapshotList exposes the read accessors of the engine's snapshot registry.
type SnapshotList interface {
	// Count returns the number of unreleased snapshots.
	Count() int
	// Oldest returns the creation time of the oldest unreleased snapshot,
	// or the zero time if there are none.
	Oldest() time.Time
}

// Version is an immutable, independently reference-counted view of a column
// family's table files. The isolated property path operates only on a
// Version, never on live metadata, so it is safe to run concurrently with
// ongoing mutation.
type Version interface {
	// MemoryUsageByTableReaders returns the memory used by the version's
	// open table readers. Its cost scales with the number of files.
	MemoryUsageByTableReaders() uint64
	// DebugString returns a human-readable listing of the version's files.
	DebugString() string
}

// FileInfo describes a single table file within a level.
type FileInfo struct {
	// FileNum is the file's number within the engine.
	FileNum uint64
	// Size is the file size in bytes.
	Size uint64
	// BeingCompacted is true while the file is an input to a running
	// compaction.
	BeingCompacted bool
}

// LevelScore is one entry of the compaction priority list: the score of a
// level, tagged with the level it belongs to. The picker produces the list
// sorted by priority, not by level.
type LevelScore struct {
	Level int
	Score float64
}

// StorageReader exposes the read-only view of the current version's level
// metadata, as maintained by the version/manifest subsystem. All methods
// require the engine mutex.
type StorageReader interface {
	// NumLevelFiles returns the number of files at the level.
	NumLevelFiles(level int) int
	// NumLevelBytes returns the total size of the files at the level.
	NumLevelBytes(level int) uint64
	// LevelFiles returns the files at the level.
	LevelFiles(level int) []FileInfo
	// CompactionScores returns the compaction priority list, ordered by
	// priority.
	CompactionScores() []LevelScore
	// EstimatedActiveKeys returns the estimated number of undeleted keys in
	// the version's table files.
	EstimatedActiveKeys() uint64
}

// Collaborators wires the external subsystems this package reads from. All
// fields must be populated; the accessors are only invoked under the engine
// mutex except Current, whose result outlives the mutex by design.
type Collaborators struct {
	// Mem is the active memtable.
	Mem MemTable
	// Imm is the immutable-memtable list.
	Imm MemTableList
	// Storage returns the current version's level metadata.
	Storage func() StorageReader
	// Current returns a reference to the current version, for the sstables
	// dump and for callers of the isolated property path.
	Current func() Version
	// NumLiveVersions returns the number of live versions.
	NumLiveVersions func() uint64
	// NeedsCompaction reports whether the picker has determined that at
	// least one compaction is needed.
	NeedsCompaction func() bool
	// Snapshots is the snapshot registry.
	Snapshots SnapshotList
	// FileDeletionsEnabled reports whether obsolete file deletion is
	// enabled.
	FileDeletionsEnabled func() bool
}

// Options configures a Stats instance.
type Options struct {
	// CFName is the column family name, used in report headers.
	CFName string
	// NumLevels is the configured number of levels.
	NumLevels int
	// Collaborators are the external read accessors.
	Collaborators Collaborators
	// Lock asserts, in instrumented builds, that the engine mutex is held.
	// Optional; defaults to no checking.
	Lock base.LockAsserter
	// StallLatency, if set, observes each write-stall duration in seconds.
	StallLatency prometheus.Histogram
	// NowMono overrides the monotonic clock. For testing.
	NowMono func() crtime.Mono
}

func (o *Options) ensureDefaults() {
	if o.Lock == nil {
		o.Lock = base.NoopLockAsserter{}
	}
	if o.NowMono == nil {
		o.NowMono = crtime.NowMono
	}
}

// Stats accumulates and reports the operational statistics of one column
// family, plus the DB-wide write and WAL counters. The engine creates one
// Stats per column family and routes the DB-wide recorder calls to the
// default column family's instance.
//
// The counters are written by the external write/flush/compaction paths via
// the Record*/Add* methods and read by the property paths; both sides run
// under the engine mutex, so Stats performs no locking of its own. The
// retained report snapshots are written only from the string property path,
// which is likewise always invoked under the mutex.
type Stats struct {
	cfName    string
	numLevels int
	c         Collaborators
	lock      base.LockAsserter

	nowMono   func() crtime.Mono
	startedAt crtime.Mono

	// Per-level compaction stats, indexed by level.
	compStats []CompactionStats
	// CF-scoped counters: (value, count) per CFStatsKind. For the stall
	// kinds the value is micros; for CFStatsBytesFlushed it is bytes.
	cfValue [numCFStatsKinds]uint64
	cfCount [numCFStatsKinds]uint64
	// Per-level slowdown counters for levels >= 1. Index 0 is unused.
	softSlowdown []StallCounter
	hardSlowdown []StallCounter
	// DB-wide counters, populated only on the default column family.
	dbStats [numDBStatsKinds]uint64
	// Errors in background flushes and compactions.
	bgErrorCount uint64

	stallLatency prometheus.Histogram

	// Exactly one retained snapshot per scope. Overwritten, never
	// accumulated, on each report.
	cfSnapshot cfStatsSnapshot
	dbSnapshot dbStatsSnapshot
}

// NewStats returns a Stats for one column family.
func NewStats(opts Options) *Stats {
	opts.ensureDefaults()
	s := &Stats{
		cfName:       opts.CFName,
		numLevels:    opts.NumLevels,
		c:            opts.Collaborators,
		lock:         opts.Lock,
		nowMono:      opts.NowMono,
		compStats:    make([]CompactionStats, opts.NumLevels),
		softSlowdown: make([]StallCounter, opts.NumLevels),
		hardSlowdown: make([]StallCounter, opts.NumLevels),
		stallLatency: opts.StallLatency,
	}
	s.startedAt = s.nowMono()
	return s
}

// NumLevels returns the configured number of levels.
func (s *Stats) NumLevels() int { return s.numLevels }

// AddCompactionStats folds the stats of a finished compaction into the
// level's accumulator. Requires the engine mutex.
func (s *Stats) AddCompactionStats(level int, cs CompactionStats) {
	s.lock.AssertHeld()
	invariants.CheckBounds(level, s.numLevels)
	s.compStats[level].Add(cs)
}

// AddCFStats adds value to a CF-scoped counter and bumps its event count.
// For the level-0 stall kinds, value is the stall duration in microseconds.
// Requires the engine mutex.
func (s *Stats) AddCFStats(kind CFStatsKind, value uint64) {
	s.lock.AssertHeld()
	s.cfValue[kind] += value
	s.cfCount[kind]++
	if kind < numL0StallKinds {
		s.observeStall(value)
	}
}

// RecordLevelNSlowdown records a write slowdown caused by a level >= 1
// exceeding its soft or hard threshold. Requires the engine mutex.
func (s *Stats) RecordLevelNSlowdown(level int, micros uint64, soft bool) {
	s.lock.AssertHeld()
	invariants.CheckBounds(level, s.numLevels)
	if soft {
		s.softSlowdown[level].add(micros)
	} else {
		s.hardSlowdown[level].add(micros)
	}
	s.observeStall(micros)
}

func (s *Stats) observeStall(micros uint64) {
	if s.stallLatency != nil {
		s.stallLatency.Observe(float64(micros) / 1e6)
	}
}

// AddDBStats adds value to a DB-wide counter. Only meaningful on the default
// column family's instance. Requires the engine mutex.
func (s *Stats) AddDBStats(kind DBStatsKind, value uint64) {
	s.lock.AssertHeld()
	s.dbStats[kind] += value
}

// RecordBackgroundError counts an error in a background flush or compaction.
// Requires the engine mutex.
func (s *Stats) RecordBackgroundError() {
	s.lock.AssertHeld()
	s.bgErrorCount++
}

// GetIntPropertyLocked returns the value of an integer property served from
// live engine state. The caller must hold the engine mutex; this entry point
// reads a bounded handful of integers, so it is cheap enough to run while
// foreground writers are blocked. Returns false for kinds not served by this
// path.
func (s *Stats) GetIntPropertyLocked(kind PropertyKind) (uint64, bool) {
	s.lock.AssertHeld()
	switch kind {
	case PropertyNumImmutableMemTable:
		return uint64(s.c.Imm.Len()), true
	case PropertyMemTableFlushPending:
		return boolToUint64(s.c.Imm.FlushPending()), true
	case PropertyCompactionPending:
		return boolToUint64(s.c.NeedsCompaction()), true
	case PropertyBackgroundErrors:
		return s.bgErrorCount, true
	case PropertyCurSizeActiveMemTable:
		return s.c.Mem.ApproximateMemoryUsage(), true
	case PropertyCurSizeAllMemTables:
		return s.c.Mem.ApproximateMemoryUsage() + s.c.Imm.ApproximateMemoryUsage(), true
	case PropertyNumEntriesActiveMemTable:
		return s.c.Mem.NumEntries(), true
	case PropertyNumEntriesImmMemTables:
		return s.c.Imm.TotalNumEntries(), true
	case PropertyEstimateNumKeys:
		return s.c.Mem.NumEntries() + s.c.Imm.TotalNumEntries() +
			s.c.Storage().EstimatedActiveKeys(), true
	case PropertyIsFileDeletionsEnabled:
		return boolToUint64(s.c.FileDeletionsEnabled()), true
	case PropertyNumSnapshots:
		return uint64(s.c.Snapshots.Count()), true
	case PropertyOldestSnapshotTime:
		oldest := s.c.Snapshots.Oldest()
		if oldest.IsZero() {
			return 0, true
		}
		return uint64(oldest.Unix()), true
	case PropertyNumLiveVersions:
		return s.c.NumLiveVersions(), true
	}
	return 0, false
}

// GetIntPropertyIsolated returns the value of an integer property computed
// against an isolated version reference, without the engine mutex. The cost
// scales with the number of files in the version. A nil version is a valid
// steady state for a freshly opened engine and yields zero, not a failure.
// Returns false for kinds not served by this path.
func (s *Stats) GetIntPropertyIsolated(kind PropertyKind, v Version) (uint64, bool) {
	if kind != PropertyEstimateTableReadersMem {
		return 0, false
	}
	if v == nil {
		return 0, true
	}
	return v.MemoryUsageByTableReaders(), true
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
