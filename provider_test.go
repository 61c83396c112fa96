// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package shale

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector(t *testing.T) {
	e := newTestEnv(3)
	s := e.newStats("default")
	s.AddCompactionStats(1, CompactionStats{
		Count:        2,
		Micros:       4_000_000,
		BytesReadN:   100 << 20,
		BytesReadNP1: 50 << 20,
		BytesWritten: 120 << 20,
	})
	s.AddCFStats(CFStatsL0Slowdown, 2_000_000)
	s.AddDBStats(DBStatsWriteDoneBySelf, 2)
	s.AddDBStats(DBStatsWriteDoneByOther, 1)
	s.AddDBStats(DBStatsWALSynced, 800)

	var mu sync.Mutex
	c := NewMetricsCollector(s, &mu)

	// 5 compaction families x 3 levels, 2 stall families x 5 causes, the
	// writes family x 2 sources, and 8 singletons.
	require.Equal(t, 35, testutil.CollectAndCount(c))

	expected := `
# HELP shale_wal_syncs_total WAL sync operations.
# TYPE shale_wal_syncs_total counter
shale_wal_syncs_total 800
# HELP shale_writes_total Write requests, by whether the issuing thread performed the write itself.
# TYPE shale_writes_total counter
shale_writes_total{source="other"} 1
shale_writes_total{source="self"} 2
# HELP shale_write_stalls_total Write stall events, by cause.
# TYPE shale_write_stalls_total counter
shale_write_stalls_total{cause="l0_numfiles"} 0
shale_write_stalls_total{cause="l0_slowdown"} 1
shale_write_stalls_total{cause="leveln_slowdown_hard"} 0
shale_write_stalls_total{cause="leveln_slowdown_soft"} 0
shale_write_stalls_total{cause="memtable_compaction"} 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"shale_wal_syncs_total", "shale_writes_total", "shale_write_stalls_total"))
}

func TestCountersLockedDoesNotAdvanceEpoch(t *testing.T) {
	_, s := workedExampleEnv()
	before := s.cfSnapshot
	_ = s.CountersLocked()
	require.Equal(t, before, s.cfSnapshot)

	snap := s.CountersLocked()
	require.Equal(t, uint64(1), snap.Levels[1].Count)
	require.Equal(t, uint64(120<<20), snap.Levels[1].BytesWritten)
}

func TestStallLatencyHistogram(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shale_write_stall_duration_seconds",
		Help:    "Duration of individual write stalls.",
		Buckets: prometheus.DefBuckets,
	})
	e := newTestEnv(3)
	s := NewStats(Options{
		CFName:    "default",
		NumLevels: 3,
		Collaborators: Collaborators{
			Mem:                  e.mem,
			Imm:                  e.imm,
			Storage:              func() StorageReader { return e.storage },
			Current:              func() Version { return e.version },
			NumLiveVersions:      func() uint64 { return 0 },
			NeedsCompaction:      func() bool { return false },
			Snapshots:            e.snapshots,
			FileDeletionsEnabled: func() bool { return true },
		},
		StallLatency: h,
	})

	s.AddCFStats(CFStatsL0Slowdown, 2_500_000)
	s.RecordLevelNSlowdown(1, 500_000, true)
	// Flush volume is not a stall; it must not be observed.
	s.AddCFStats(CFStatsBytesFlushed, 10<<20)

	var m dto.Metric
	require.NoError(t, h.Write(&m))
	require.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
	require.InDelta(t, 3.0, m.GetHistogram().GetSampleSum(), 1e-9)
}
