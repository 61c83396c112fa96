// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package shale

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Counters is a copy of the raw statistic counters, captured under the
// engine mutex. Unlike the string reports, capturing a Counters does not
// advance any interval baseline.
type Counters struct {
	// Levels holds the per-level compaction stats, indexed by level.
	Levels []CompactionStats
	// L0 write stall causes.
	L0Slowdown         StallCounter
	L0NumFiles         StallCounter
	MemTableCompaction StallCounter
	// Soft and hard slowdowns summed over levels >= 1.
	SoftSlowdown StallCounter
	HardSlowdown StallCounter
	// BytesFlushed is the ingest volume: bytes flushed from memtables to L0.
	BytesFlushed uint64
	// DB-wide write path counters.
	BytesWritten     uint64
	KeysWritten      uint64
	WriteDoneBySelf  uint64
	WriteDoneByOther uint64
	WALBytes         uint64
	WALSynced        uint64
	WriteWithWAL     uint64
	WriteStallMicros uint64
	// BackgroundErrors is the accumulated background error count.
	BackgroundErrors uint64
}

// CountersLocked captures a copy of the raw counters. The caller must hold
// the engine mutex.
func (s *Stats) CountersLocked() Counters {
	s.lock.AssertHeld()
	c := Counters{
		Levels: append([]CompactionStats(nil), s.compStats...),
		L0Slowdown: StallCounter{
			Micros: s.cfValue[CFStatsL0Slowdown], Count: s.cfCount[CFStatsL0Slowdown],
		},
		L0NumFiles: StallCounter{
			Micros: s.cfValue[CFStatsL0NumFiles], Count: s.cfCount[CFStatsL0NumFiles],
		},
		MemTableCompaction: StallCounter{
			Micros: s.cfValue[CFStatsMemTableCompaction], Count: s.cfCount[CFStatsMemTableCompaction],
		},
		BytesFlushed:     s.cfValue[CFStatsBytesFlushed],
		BytesWritten:     s.dbStats[DBStatsBytesWritten],
		KeysWritten:      s.dbStats[DBStatsKeysWritten],
		WriteDoneBySelf:  s.dbStats[DBStatsWriteDoneBySelf],
		WriteDoneByOther: s.dbStats[DBStatsWriteDoneByOther],
		WALBytes:         s.dbStats[DBStatsWALBytes],
		WALSynced:        s.dbStats[DBStatsWALSynced],
		WriteWithWAL:     s.dbStats[DBStatsWriteWithWAL],
		WriteStallMicros: s.dbStats[DBStatsWriteStallMicros],
		BackgroundErrors: s.bgErrorCount,
	}
	for level := 1; level < s.numLevels; level++ {
		c.SoftSlowdown.Micros += s.softSlowdown[level].Micros
		c.SoftSlowdown.Count += s.softSlowdown[level].Count
		c.HardSlowdown.Micros += s.hardSlowdown[level].Micros
		c.HardSlowdown.Count += s.hardSlowdown[level].Count
	}
	return c
}

// MetricsCollector exposes a Stats' counters as prometheus metrics. Collect
// acquires the engine mutex only long enough to copy the counters.
type MetricsCollector struct {
	stats *Stats
	mu    sync.Locker

	compactions       *prometheus.Desc
	compactionSeconds *prometheus.Desc
	compactionRead    *prometheus.Desc
	compactionWritten *prometheus.Desc
	compactionMoved   *prometheus.Desc
	stalls            *prometheus.Desc
	stallSeconds      *prometheus.Desc
	flushedBytes      *prometheus.Desc
	userWrittenBytes  *prometheus.Desc
	keysWritten       *prometheus.Desc
	writes            *prometheus.Desc
	walWrittenBytes   *prometheus.Desc
	walSyncs          *prometheus.Desc
	writesWithWAL     *prometheus.Desc
	writeStallSeconds *prometheus.Desc
	backgroundErrors  *prometheus.Desc
}

var _ prometheus.Collector = (*MetricsCollector)(nil)

// NewMetricsCollector returns a collector over stats. mu is the engine
// mutex; it is acquired for the duration of each counter copy.
func NewMetricsCollector(stats *Stats, mu sync.Locker) *MetricsCollector {
	return &MetricsCollector{
		stats: stats,
		mu:    mu,
		compactions: prometheus.NewDesc(
			"shale_compactions_total",
			"Number of compactions completed, by level.",
			[]string{"level"}, nil,
		),
		compactionSeconds: prometheus.NewDesc(
			"shale_compaction_seconds_total",
			"Wall time spent compacting, by level.",
			[]string{"level"}, nil,
		),
		compactionRead: prometheus.NewDesc(
			"shale_compaction_read_bytes_total",
			"Bytes read by compactions, by level.",
			[]string{"level"}, nil,
		),
		compactionWritten: prometheus.NewDesc(
			"shale_compaction_written_bytes_total",
			"Bytes written by compactions, by level.",
			[]string{"level"}, nil,
		),
		compactionMoved: prometheus.NewDesc(
			"shale_compaction_moved_bytes_total",
			"Bytes trivially moved between levels, by level.",
			[]string{"level"}, nil,
		),
		stalls: prometheus.NewDesc(
			"shale_write_stalls_total",
			"Write stall events, by cause.",
			[]string{"cause"}, nil,
		),
		stallSeconds: prometheus.NewDesc(
			"shale_write_stall_cause_seconds_total",
			"Write stall time, by cause.",
			[]string{"cause"}, nil,
		),
		flushedBytes: prometheus.NewDesc(
			"shale_flushed_bytes_total",
			"Bytes flushed from memtables into L0.",
			nil, nil,
		),
		userWrittenBytes: prometheus.NewDesc(
			"shale_user_written_bytes_total",
			"Bytes written by the user.",
			nil, nil,
		),
		keysWritten: prometheus.NewDesc(
			"shale_keys_written_total",
			"Key updates issued by all write requests.",
			nil, nil,
		),
		writes: prometheus.NewDesc(
			"shale_writes_total",
			"Write requests, by whether the issuing thread performed the write itself.",
			[]string{"source"}, nil,
		),
		walWrittenBytes: prometheus.NewDesc(
			"shale_wal_written_bytes_total",
			"Bytes written to the WAL.",
			nil, nil,
		),
		walSyncs: prometheus.NewDesc(
			"shale_wal_syncs_total",
			"WAL sync operations.",
			nil, nil,
		),
		writesWithWAL: prometheus.NewDesc(
			"shale_writes_with_wal_total",
			"Writes accompanied by a WAL record.",
			nil, nil,
		),
		writeStallSeconds: prometheus.NewDesc(
			"shale_write_stall_seconds_total",
			"Cumulative time writes were stalled.",
			nil, nil,
		),
		backgroundErrors: prometheus.NewDesc(
			"shale_background_errors_total",
			"Errors in background flushes and compactions.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.compactions
	ch <- c.compactionSeconds
	ch <- c.compactionRead
	ch <- c.compactionWritten
	ch <- c.compactionMoved
	ch <- c.stalls
	ch <- c.stallSeconds
	ch <- c.flushedBytes
	ch <- c.userWrittenBytes
	ch <- c.keysWritten
	ch <- c.writes
	ch <- c.walWrittenBytes
	ch <- c.walSyncs
	ch <- c.writesWithWAL
	ch <- c.writeStallSeconds
	ch <- c.backgroundErrors
}

// Collect implements prometheus.Collector.
func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	snap := c.stats.CountersLocked()
	c.mu.Unlock()

	counter := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, v, labels...)
	}
	for level, cs := range snap.Levels {
		l := strconv.Itoa(level)
		counter(c.compactions, float64(cs.Count), l)
		counter(c.compactionSeconds, float64(cs.Micros)/1e6, l)
		counter(c.compactionRead, float64(cs.BytesReadN+cs.BytesReadNP1), l)
		counter(c.compactionWritten, float64(cs.BytesWritten), l)
		counter(c.compactionMoved, float64(cs.BytesMoved), l)
	}
	stall := func(cause string, sc StallCounter) {
		counter(c.stalls, float64(sc.Count), cause)
		counter(c.stallSeconds, float64(sc.Micros)/1e6, cause)
	}
	stall("l0_slowdown", snap.L0Slowdown)
	stall("l0_numfiles", snap.L0NumFiles)
	stall("memtable_compaction", snap.MemTableCompaction)
	stall("leveln_slowdown_soft", snap.SoftSlowdown)
	stall("leveln_slowdown_hard", snap.HardSlowdown)

	counter(c.flushedBytes, float64(snap.BytesFlushed))
	counter(c.userWrittenBytes, float64(snap.BytesWritten))
	counter(c.keysWritten, float64(snap.KeysWritten))
	counter(c.writes, float64(snap.WriteDoneBySelf), "self")
	counter(c.writes, float64(snap.WriteDoneByOther), "other")
	counter(c.walWrittenBytes, float64(snap.WALBytes))
	counter(c.walSyncs, float64(snap.WALSynced))
	counter(c.writesWithWAL, float64(snap.WriteWithWAL))
	counter(c.writeStallSeconds, float64(snap.WriteStallMicros)/1e6)
	counter(c.backgroundErrors, float64(snap.BackgroundErrors))
}
