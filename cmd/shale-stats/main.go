// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// shale-stats renders the shale statistics reports from a synthetic engine
// state. It exists to exercise the library end-to-end and to preview the
// report formats without a running engine.
package main

import (
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/shaledb/shale"
	"github.com/spf13/cobra"
)

var (
	numLevels int
	seed      uint64
)

var rootCmd = &cobra.Command{
	Use:   "shale-stats [command] (flags)",
	Short: "shale statistics report preview tool",
	Long:  ``,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "render the combined cfstats + dbstats report",
	Run: func(cmd *cobra.Command, args []string) {
		runProperty("stats")
	},
}

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "render the levelstats table",
	Run: func(cmd *cobra.Command, args []string) {
		runProperty("levelstats")
	},
}

var sstablesCmd = &cobra.Command{
	Use:   "sstables",
	Short: "render the sstables debug dump",
	Run: func(cmd *cobra.Command, args []string) {
		runProperty("sstables")
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <property>",
	Short: "show how a property name resolves",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, isInt, isolated := shale.ResolveProperty(args[0])
		fmt.Printf("kind=%s is-int=%t needs-isolated-read=%t\n", kind, isInt, isolated)
	},
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		reportCmd,
		levelsCmd,
		sstablesCmd,
		resolveCmd,
	)
	for _, cmd := range []*cobra.Command{reportCmd, levelsCmd, sstablesCmd} {
		cmd.Flags().IntVarP(
			&numLevels, "levels", "l", 7, "number of LSM levels")
		cmd.Flags().Uint64VarP(
			&seed, "seed", "s", 0, "seed for the synthetic workload")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runProperty(suffix string) {
	var mu sync.Mutex
	stats, name := buildSyntheticState(), shale.PropertyPrefix+suffix
	kind, _, _ := shale.ResolveProperty(name)

	// No concurrency here; the lock stands in for the engine mutex the
	// string property path requires.
	mu.Lock()
	text, err := stats.GetStringPropertyLocked(kind, name)
	mu.Unlock()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Println()
	}
}

// buildSyntheticState fabricates a busy column family: a few files per
// level, compaction history on the upper levels, and some stall time.
func buildSyntheticState() *shale.Stats {
	rng := rand.New(rand.NewPCG(seed, seed))
	storage := &syntheticStorage{levels: make([]syntheticLevel, numLevels)}
	for level := range storage.levels {
		l := &storage.levels[level]
		numFiles := rng.IntN(4 << level)
		for i := 0; i < numFiles; i++ {
			l.files = append(l.files, shale.FileInfo{
				FileNum:        uint64(level*100 + i + 1),
				Size:           4<<20 + rng.Uint64N(64<<20),
				BeingCompacted: rng.IntN(8) == 0,
			})
		}
		if level > 0 {
			storage.scores = append(storage.scores, shale.LevelScore{
				Level: level,
				Score: float64(rng.IntN(200)) / 100,
			})
		}
	}

	stats := shale.NewStats(shale.Options{
		CFName:    "default",
		NumLevels: numLevels,
		Collaborators: shale.Collaborators{
			Mem:                  syntheticMemTable{size: 16 << 20, entries: 12000},
			Imm:                  syntheticMemTableList{},
			Storage:              func() shale.StorageReader { return storage },
			Current:              func() shale.Version { return syntheticVersion{storage} },
			NumLiveVersions:      func() uint64 { return 1 },
			NeedsCompaction:      func() bool { return true },
			Snapshots:            syntheticSnapshots{},
			FileDeletionsEnabled: func() bool { return true },
		},
	})

	for level := 0; level < numLevels-1; level++ {
		if storage.levels[level].numBytes() == 0 {
			continue
		}
		read := storage.levels[level].numBytes()
		stats.AddCompactionStats(level, shale.CompactionStats{
			Count:             uint64(1 + rng.IntN(20)),
			Micros:            uint64(1+rng.IntN(300)) * 1e6,
			BytesReadN:        read,
			BytesReadNP1:      read / 2,
			BytesWritten:      read + read/2,
			BytesMoved:        rng.Uint64N(32 << 20),
			NumInputRecords:   rng.Uint64N(1 << 20),
			NumDroppedRecords: rng.Uint64N(1 << 16),
		})
	}
	stats.AddCFStats(shale.CFStatsBytesFlushed, storage.levels[0].numBytes()+1<<28)
	stats.AddCFStats(shale.CFStatsL0Slowdown, 1200*1000)
	stats.AddCFStats(shale.CFStatsMemTableCompaction, 700*1000)
	for level := 1; level < numLevels; level++ {
		if rng.IntN(2) == 0 {
			stats.RecordLevelNSlowdown(level, uint64(rng.IntN(500))*1000, true)
		}
	}
	stats.AddDBStats(shale.DBStatsWriteDoneBySelf, 9000)
	stats.AddDBStats(shale.DBStatsWriteDoneByOther, 1000)
	stats.AddDBStats(shale.DBStatsKeysWritten, 45000)
	stats.AddDBStats(shale.DBStatsBytesWritten, 3<<30)
	stats.AddDBStats(shale.DBStatsWALBytes, 3<<30)
	stats.AddDBStats(shale.DBStatsWALSynced, 800)
	stats.AddDBStats(shale.DBStatsWriteWithWAL, 10000)
	stats.AddDBStats(shale.DBStatsWriteStallMicros, 1900*1000)
	return stats
}

type syntheticLevel struct {
	files []shale.FileInfo
}

func (l *syntheticLevel) numBytes() uint64 {
	var n uint64
	for _, f := range l.files {
		n += f.Size
	}
	return n
}

type syntheticStorage struct {
	levels []syntheticLevel
	scores []shale.LevelScore
}

func (s *syntheticStorage) NumLevelFiles(level int) int    { return len(s.levels[level].files) }
func (s *syntheticStorage) NumLevelBytes(level int) uint64 { return s.levels[level].numBytes() }
func (s *syntheticStorage) LevelFiles(level int) []shale.FileInfo {
	return s.levels[level].files
}
func (s *syntheticStorage) CompactionScores() []shale.LevelScore { return s.scores }
func (s *syntheticStorage) EstimatedActiveKeys() uint64          { return 1 << 20 }

type syntheticVersion struct {
	storage *syntheticStorage
}

func (v syntheticVersion) MemoryUsageByTableReaders() uint64 { return 48 << 20 }

func (v syntheticVersion) DebugString() string {
	var b strings.Builder
	for level, l := range v.storage.levels {
		fmt.Fprintf(&b, "--- level %d ---\n", level)
		for _, f := range l.files {
			fmt.Fprintf(&b, "  %06d: %s\n", f.FileNum,
				crhumanize.Bytes(f.Size, crhumanize.Compact, crhumanize.OmitI))
		}
	}
	return b.String()
}

type syntheticMemTable struct {
	size    uint64
	entries uint64
}

func (m syntheticMemTable) ApproximateMemoryUsage() uint64 { return m.size }
func (m syntheticMemTable) NumEntries() uint64             { return m.entries }

type syntheticMemTableList struct{}

func (syntheticMemTableList) Len() int                       { return 1 }
func (syntheticMemTableList) FlushPending() bool             { return false }
func (syntheticMemTableList) ApproximateMemoryUsage() uint64 { return 8 << 20 }
func (syntheticMemTableList) TotalNumEntries() uint64        { return 6000 }

type syntheticSnapshots struct{}

func (syntheticSnapshots) Count() int        { return 2 }
func (syntheticSnapshots) Oldest() time.Time { return time.Now().Add(-time.Hour) }
