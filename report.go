// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package shale

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// The report formats below are scraped as text by operator tooling. Column
// order, widths, and units (MB = 2^20 bytes, GB = 2^30 bytes) are a
// compatibility surface; changing them is a breaking change.
const (
	mb = float64(1 << 20)
	gb = float64(1 << 30)
)

// cfStatsSnapshot is the retained baseline for the column family's interval
// figures: the summed compaction stats, ingest bytes, and stall totals as of
// the last cfstats report.
type cfStatsSnapshot struct {
	compStats   CompactionStats
	ingestBytes uint64
	stallMicros uint64
	stallCount  uint64
}

// dbStatsSnapshot is the retained baseline for the DB-wide interval figures
// as of the last dbstats report.
type dbStatsSnapshot struct {
	secondsUp        float64
	ingestBytes      uint64
	writeOther       uint64
	writeSelf        uint64
	keysWritten      uint64
	walBytes         uint64
	walSynced        uint64
	writeWithWAL     uint64
	writeStallMicros uint64
}

// GetStringPropertyLocked returns the rendered value of a string property.
// The caller must hold the engine mutex. Rendering the cfstats, dbstats, or
// stats reports advances the corresponding interval baseline, so those
// reports are not idempotent: a second call in quick succession shows a
// near-zero interval.
func (s *Stats) GetStringPropertyLocked(kind PropertyKind, name string) (string, error) {
	s.lock.AssertHeld()
	var buf bytes.Buffer
	switch kind {
	case PropertyNumFilesAtLevel:
		prefix := PropertyPrefix + numFilesAtLevelPrefix
		if !strings.HasPrefix(name, prefix) {
			return "", errors.Errorf("shale: malformed property %q", errors.Safe(name))
		}
		level, err := strconv.ParseUint(name[len(prefix):], 10, 32)
		if err != nil {
			return "", errors.Wrapf(err, "shale: malformed property %q", errors.Safe(name))
		}
		if int(level) >= s.numLevels {
			return "", errors.Errorf("shale: property %q: level %d out of range (%d levels)",
				errors.Safe(name), level, s.numLevels)
		}
		return strconv.Itoa(s.c.Storage().NumLevelFiles(int(level))), nil

	case PropertyLevelStats:
		s.dumpLevelStats(&buf)
		return buf.String(), nil

	case PropertyStats:
		s.dumpCFStats(&buf)
		s.dumpDBStats(&buf)
		return buf.String(), nil

	case PropertyCFStats:
		s.dumpCFStats(&buf)
		return buf.String(), nil

	case PropertyDBStats:
		s.dumpDBStats(&buf)
		return buf.String(), nil

	case PropertySSTables:
		// A not-yet-available version is defined as empty, not an error.
		if v := s.c.Current(); v != nil {
			return v.DebugString(), nil
		}
		return "", nil
	}
	return "", ErrUnknownProperty
}

func printLevelStatsHeader(buf *bytes.Buffer, cfName string) {
	fmt.Fprintf(buf,
		"\n** Compaction Stats [%s] **\n"+
			"Level   Files   Size(MB) Score Read(GB)  Rn(GB) Rnp1(GB) "+
			"Write(GB) Wnew(GB) Moved(GB) W-Amp Rd(MB/s) Wr(MB/s) "+
			"Comp(sec) Comp(cnt) Avg(sec) "+
			"Stall(sec) Stall(cnt) Avg(ms)     RecordIn   RecordDrop\n"+
			"--------------------------------------------------------------------"+
			"--------------------------------------------------------------------"+
			"----------------------------------------------------------\n",
		cfName)
}

func printLevelStats(
	buf *bytes.Buffer, name string, numFiles, beingCompacted int,
	totalFileSize, score, wAmp, stallMicros float64, stalls uint64,
	cs CompactionStats,
) {
	bytesRead := cs.BytesReadN + cs.BytesReadNP1
	bytesNew := float64(cs.BytesWritten) - float64(cs.BytesReadNP1)
	// The +1 biases the throughput denominator so that an idle level renders
	// as zero rather than dividing by zero. It understates the true rate
	// when Micros is genuinely zero, matching the historical reports.
	elapsed := float64(cs.Micros+1) / 1e6
	var avgSec float64
	if cs.Count > 0 {
		avgSec = float64(cs.Micros) / 1e6 / float64(cs.Count)
	}
	var avgMs float64
	if stalls > 0 {
		avgMs = stallMicros / 1e3 / float64(stalls)
	}
	fmt.Fprintf(buf,
		"%4s %5d/%-3d %8.0f %5.1f %8.1f %7.1f %8.1f %9.1f %8.1f %9.1f "+
			"%5.1f %8.1f %8.1f %9.0f %9d %8.3f %10.2f %10d %7.2f %12d %12d\n",
		name, numFiles, beingCompacted, totalFileSize/mb, score,
		float64(bytesRead)/gb, float64(cs.BytesReadN)/gb,
		float64(cs.BytesReadNP1)/gb, float64(cs.BytesWritten)/gb,
		bytesNew/gb, float64(cs.BytesMoved)/gb,
		wAmp, float64(bytesRead)/mb/elapsed, float64(cs.BytesWritten)/mb/elapsed,
		float64(cs.Micros)/1e6, cs.Count, avgSec,
		stallMicros/1e6, stalls, avgMs,
		cs.NumInputRecords, cs.NumDroppedRecords)
}

// dumpCFStats renders the per-level compaction table: one row per level that
// has ever had files or compaction time, a Sum row across those levels, and
// an Int row diffed against the retained snapshot. The snapshot is
// overwritten at the end.
func (s *Stats) dumpCFStats(buf *bytes.Buffer) {
	vstorage := s.c.Storage()

	// The compaction scores arrive sorted by priority; scatter them back to
	// level-indexed position in a single pass.
	scores := make([]float64, s.numLevels)
	for _, e := range vstorage.CompactionScores() {
		if e.Level >= 0 && e.Level < s.numLevels {
			scores[e.Level] = e.Score
		}
	}
	filesBeingCompacted := make([]int, s.numLevels)
	for level := range filesBeingCompacted {
		for _, f := range vstorage.LevelFiles(level) {
			if f.BeingCompacted {
				filesBeingCompacted[level]++
			}
		}
	}

	printLevelStatsHeader(buf, s.cfName)

	var sum CompactionStats
	var totalFiles, totalBeingCompacted int
	var totalFileSize float64
	var totalSlowdownSoft, totalSlowdownCountSoft uint64
	var totalSlowdownHard, totalSlowdownCountHard uint64
	var totalStallMicros, totalStallCount uint64
	for level := 0; level < s.numLevels; level++ {
		files := vstorage.NumLevelFiles(level)
		totalFiles += files
		totalBeingCompacted += filesBeingCompacted[level]
		if s.compStats[level].Micros == 0 && files == 0 {
			continue
		}
		var stallMicros, stalls uint64
		if level == 0 {
			stallMicros = s.cfValue[CFStatsL0Slowdown] +
				s.cfValue[CFStatsL0NumFiles] +
				s.cfValue[CFStatsMemTableCompaction]
			stalls = s.cfCount[CFStatsL0Slowdown] +
				s.cfCount[CFStatsL0NumFiles] +
				s.cfCount[CFStatsMemTableCompaction]
		} else {
			stallMicros = s.softSlowdown[level].Micros + s.hardSlowdown[level].Micros
			stalls = s.softSlowdown[level].Count + s.hardSlowdown[level].Count
		}
		sum.Add(s.compStats[level])
		totalFileSize += float64(vstorage.NumLevelBytes(level))
		totalStallMicros += stallMicros
		totalStallCount += stalls
		totalSlowdownSoft += s.softSlowdown[level].Micros
		totalSlowdownCountSoft += s.softSlowdown[level].Count
		totalSlowdownHard += s.hardSlowdown[level].Micros
		totalSlowdownCountHard += s.hardSlowdown[level].Count
		printLevelStats(buf, "L"+strconv.Itoa(level), files, filesBeingCompacted[level],
			float64(vstorage.NumLevelBytes(level)), scores[level],
			s.compStats[level].WriteAmp(), float64(stallMicros), stalls,
			s.compStats[level])
	}

	// The aggregate write amplification uses the bytes flushed from
	// memtables as its baseline: that is the true input volume the LSM
	// structure multiplies. The +1 bias mirrors the scalar reports.
	currIngest := s.cfValue[CFStatsBytesFlushed]
	wAmp := float64(sum.BytesWritten) / float64(currIngest+1)
	printLevelStats(buf, "Sum", totalFiles, totalBeingCompacted, totalFileSize,
		0, wAmp, float64(totalStallMicros), totalStallCount, sum)

	intervalIngest := subClamped(currIngest, s.cfSnapshot.ingestBytes) + 1
	intervalStats := sum
	intervalStats.Subtract(s.cfSnapshot.compStats)
	wAmp = float64(intervalStats.BytesWritten) / float64(intervalIngest)
	printLevelStats(buf, "Int", 0, 0, 0, 0, wAmp,
		float64(subClamped(totalStallMicros, s.cfSnapshot.stallMicros)),
		subClamped(totalStallCount, s.cfSnapshot.stallCount), intervalStats)

	fmt.Fprintf(buf, "Flush(GB): accumulative %.3f, interval %.3f\n",
		float64(currIngest)/gb, float64(intervalIngest)/gb)
	fmt.Fprintf(buf,
		"Stalls(secs): %.3f level0_slowdown, %.3f level0_numfiles, "+
			"%.3f memtable_compaction, %.3f leveln_slowdown_soft, "+
			"%.3f leveln_slowdown_hard\n",
		float64(s.cfValue[CFStatsL0Slowdown])/1e6,
		float64(s.cfValue[CFStatsL0NumFiles])/1e6,
		float64(s.cfValue[CFStatsMemTableCompaction])/1e6,
		float64(totalSlowdownSoft)/1e6,
		float64(totalSlowdownHard)/1e6)
	fmt.Fprintf(buf,
		"Stalls(count): %d level0_slowdown, %d level0_numfiles, "+
			"%d memtable_compaction, %d leveln_slowdown_soft, "+
			"%d leveln_slowdown_hard\n",
		s.cfCount[CFStatsL0Slowdown],
		s.cfCount[CFStatsL0NumFiles],
		s.cfCount[CFStatsMemTableCompaction],
		totalSlowdownCountSoft, totalSlowdownCountHard)

	s.cfSnapshot = cfStatsSnapshot{
		compStats:   sum,
		ingestBytes: currIngest,
		stallMicros: totalStallMicros,
		stallCount:  totalStallCount,
	}
}

// dumpDBStats renders the DB-wide narrative report and advances its interval
// baseline. Only meaningful on the default column family's instance.
func (s *Stats) dumpDBStats(buf *bytes.Buffer) {
	secondsUp := float64(s.nowMono().Sub(s.startedAt).Microseconds()+1) / 1e6
	intervalSecondsUp := secondsUp - s.dbSnapshot.secondsUp
	fmt.Fprintf(buf, "\n** DB Stats **\nUptime(secs): %.1f total, %.1f interval\n",
		secondsUp, intervalSecondsUp)

	userBytesWritten := s.dbStats[DBStatsBytesWritten]
	keysWritten := s.dbStats[DBStatsKeysWritten]
	writeOther := s.dbStats[DBStatsWriteDoneByOther]
	writeSelf := s.dbStats[DBStatsWriteDoneBySelf]
	walBytes := s.dbStats[DBStatsWALBytes]
	walSynced := s.dbStats[DBStatsWALSynced]
	writeWithWAL := s.dbStats[DBStatsWriteWithWAL]
	writeStallMicros := s.dbStats[DBStatsWriteStallMicros]

	// writes/keys is the average keys per write request; writes/batches the
	// average group commit size (each self write is one group commit). The
	// +1 biases the denominators against an idle engine.
	fmt.Fprintf(buf,
		"Cumulative writes: %d writes, %d keys, %d batches, "+
			"%.1f writes per batch, %.2f GB user ingest, stall micros: %d\n",
		writeOther+writeSelf, keysWritten, writeSelf,
		float64(writeOther+writeSelf)/float64(writeSelf+1),
		float64(userBytesWritten)/gb, writeStallMicros)
	fmt.Fprintf(buf,
		"Cumulative WAL: %d writes, %d syncs, %.2f writes per sync, %.2f GB written\n",
		writeWithWAL, walSynced,
		float64(writeWithWAL)/float64(walSynced+1), float64(walBytes)/gb)

	intervalWriteOther := subClamped(writeOther, s.dbSnapshot.writeOther)
	intervalWriteSelf := subClamped(writeSelf, s.dbSnapshot.writeSelf)
	intervalKeysWritten := subClamped(keysWritten, s.dbSnapshot.keysWritten)
	fmt.Fprintf(buf,
		"Interval writes: %d writes, %d keys, %d batches, "+
			"%.1f writes per batch, %.1f MB user ingest, stall micros: %d\n",
		intervalWriteOther+intervalWriteSelf, intervalKeysWritten, intervalWriteSelf,
		float64(intervalWriteOther+intervalWriteSelf)/float64(intervalWriteSelf+1),
		float64(subClamped(userBytesWritten, s.dbSnapshot.ingestBytes))/mb,
		subClamped(writeStallMicros, s.dbSnapshot.writeStallMicros))

	intervalWriteWithWAL := subClamped(writeWithWAL, s.dbSnapshot.writeWithWAL)
	intervalWALSynced := subClamped(walSynced, s.dbSnapshot.walSynced)
	intervalWALBytes := subClamped(walBytes, s.dbSnapshot.walBytes)
	// Historical: the interval WAL volume is divided by GB even though the
	// label says MB. Preserved; tooling parses this line.
	fmt.Fprintf(buf,
		"Interval WAL: %d writes, %d syncs, %.2f writes per sync, %.2f MB written\n",
		intervalWriteWithWAL, intervalWALSynced,
		float64(intervalWriteWithWAL)/float64(intervalWALSynced+1),
		float64(intervalWALBytes)/gb)

	s.dbSnapshot = dbStatsSnapshot{
		secondsUp:        secondsUp,
		ingestBytes:      userBytesWritten,
		writeOther:       writeOther,
		writeSelf:        writeSelf,
		keysWritten:      keysWritten,
		walBytes:         walBytes,
		walSynced:        walSynced,
		writeWithWAL:     writeWithWAL,
		writeStallMicros: writeStallMicros,
	}
}

// dumpLevelStats renders the small file-count table over all configured
// levels, including empty ones.
func (s *Stats) dumpLevelStats(buf *bytes.Buffer) {
	vstorage := s.c.Storage()
	fmt.Fprintf(buf, "Level Files Size(MB)\n--------------------\n")
	for level := 0; level < s.numLevels; level++ {
		fmt.Fprintf(buf, "%3d %8d %8.0f\n", level,
			vstorage.NumLevelFiles(level),
			float64(vstorage.NumLevelBytes(level))/mb)
	}
}
