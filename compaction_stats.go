// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package shale

// CompactionStats accumulates the work performed by compactions at a single
// level. All fields are monotonically non-decreasing within a process
// lifetime; the external compaction path mutates them under the engine
// mutex, and this subsystem only reads them.
type CompactionStats struct {
	// Count is the number of compactions completed at the level.
	Count uint64
	// Micros is the cumulative wall time spent compacting, in microseconds.
	Micros uint64
	// BytesReadN is the number of bytes read from the source level (level N).
	BytesReadN uint64
	// BytesReadNP1 is the number of bytes read from the output level (level
	// N+1).
	BytesReadNP1 uint64
	// BytesWritten is the number of bytes written to the output level.
	BytesWritten uint64
	// BytesMoved is the number of bytes trivially moved to the output level
	// without being rewritten.
	BytesMoved uint64
	// NumInputRecords is the number of records read by the compactions.
	NumInputRecords uint64
	// NumDroppedRecords is the number of records elided by the compactions
	// (deletion tombstones and records merged away).
	NumDroppedRecords uint64
}

// Add folds o into s elementwise. It is used to aggregate per-level stats
// into a column-family-wide sum.
func (s *CompactionStats) Add(o CompactionStats) {
	s.Count += o.Count
	s.Micros += o.Micros
	s.BytesReadN += o.BytesReadN
	s.BytesReadNP1 += o.BytesReadNP1
	s.BytesWritten += o.BytesWritten
	s.BytesMoved += o.BytesMoved
	s.NumInputRecords += o.NumInputRecords
	s.NumDroppedRecords += o.NumDroppedRecords
}

// Subtract removes o from s elementwise, clamping each field at zero. The
// clamp matters when a retained snapshot predates a counter reset: the
// interval is then defined as empty rather than wrapping.
func (s *CompactionStats) Subtract(o CompactionStats) {
	s.Count = subClamped(s.Count, o.Count)
	s.Micros = subClamped(s.Micros, o.Micros)
	s.BytesReadN = subClamped(s.BytesReadN, o.BytesReadN)
	s.BytesReadNP1 = subClamped(s.BytesReadNP1, o.BytesReadNP1)
	s.BytesWritten = subClamped(s.BytesWritten, o.BytesWritten)
	s.BytesMoved = subClamped(s.BytesMoved, o.BytesMoved)
	s.NumInputRecords = subClamped(s.NumInputRecords, o.NumInputRecords)
	s.NumDroppedRecords = subClamped(s.NumDroppedRecords, o.NumDroppedRecords)
}

// WriteAmp computes the write amplification of compactions out of this
// level: BytesWritten / BytesReadN, or 0 when nothing has been read.
func (s CompactionStats) WriteAmp() float64 {
	if s.BytesReadN == 0 {
		return 0
	}
	return float64(s.BytesWritten) / float64(s.BytesReadN)
}

func subClamped(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
