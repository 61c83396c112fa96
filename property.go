// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package shale

import "github.com/cockroachdb/redact"

// PropertyKind identifies a queryable engine property. The set is closed;
// unrecognized query strings map to PropertyUnknown.
type PropertyKind uint8

const (
	// PropertyUnknown is returned for query strings outside the "shale."
	// namespace or with an unrecognized suffix.
	PropertyUnknown PropertyKind = iota
	// PropertyNumFilesAtLevel is "shale.num-files-at-level<N>": the number of
	// table files at level N, as a decimal string. The level suffix is parsed
	// and range-checked by the string property path, not by ResolveProperty.
	PropertyNumFilesAtLevel
	// PropertyLevelStats is "shale.levelstats": a small per-level table of
	// file counts and sizes.
	PropertyLevelStats
	// PropertyStats is "shale.stats": the cfstats report followed by the
	// dbstats report.
	PropertyStats
	// PropertyCFStats is "shale.cfstats": the per-column-family compaction
	// and stall report.
	PropertyCFStats
	// PropertyDBStats is "shale.dbstats": the DB-wide write and WAL report.
	PropertyDBStats
	// PropertySSTables is "shale.sstables": a debug listing of the table
	// files in the current version.
	PropertySSTables
	// PropertyNumImmutableMemTable is the number of immutable memtables.
	PropertyNumImmutableMemTable
	// PropertyMemTableFlushPending is 1 if an immutable memtable is waiting
	// to be flushed.
	PropertyMemTableFlushPending
	// PropertyCompactionPending is 1 if the picker has determined at least
	// one compaction is needed.
	PropertyCompactionPending
	// PropertyBackgroundErrors is the accumulated number of errors in
	// background flushes and compactions.
	PropertyBackgroundErrors
	// PropertyCurSizeActiveMemTable is the approximate memory usage of the
	// active memtable.
	PropertyCurSizeActiveMemTable
	// PropertyCurSizeAllMemTables is the approximate memory usage of the
	// active and immutable memtables.
	PropertyCurSizeAllMemTables
	// PropertyNumEntriesActiveMemTable is the number of entries in the
	// active memtable.
	PropertyNumEntriesActiveMemTable
	// PropertyNumEntriesImmMemTables is the number of entries in the
	// immutable memtables.
	PropertyNumEntriesImmMemTables
	// PropertyEstimateNumKeys is the estimated number of keys in the column
	// family (memtables plus tables).
	PropertyEstimateNumKeys
	// PropertyEstimateTableReadersMem is the estimated memory used by table
	// readers across live versions. This is the one isolated-read property:
	// computing it walks per-file structures and must not run under the
	// engine mutex.
	PropertyEstimateTableReadersMem
	// PropertyIsFileDeletionsEnabled is 1 if obsolete file deletion is
	// currently enabled.
	PropertyIsFileDeletionsEnabled
	// PropertyNumSnapshots is the number of unreleased snapshots.
	PropertyNumSnapshots
	// PropertyOldestSnapshotTime is the unix time of the oldest unreleased
	// snapshot.
	PropertyOldestSnapshotTime
	// PropertyNumLiveVersions is the number of live versions. More live
	// versions often mean more table files are held open by iterators or
	// unfinished compactions.
	PropertyNumLiveVersions
)

// PropertyPrefix is the namespace shared by all property query strings.
const PropertyPrefix = "shale."

const numFilesAtLevelPrefix = "num-files-at-level"

var propertyKindNames = [...]string{
	PropertyUnknown:                  "unknown",
	PropertyNumFilesAtLevel:          "num-files-at-level",
	PropertyLevelStats:               "levelstats",
	PropertyStats:                    "stats",
	PropertyCFStats:                  "cfstats",
	PropertyDBStats:                  "dbstats",
	PropertySSTables:                 "sstables",
	PropertyNumImmutableMemTable:     "num-immutable-mem-table",
	PropertyMemTableFlushPending:     "mem-table-flush-pending",
	PropertyCompactionPending:        "compaction-pending",
	PropertyBackgroundErrors:         "background-errors",
	PropertyCurSizeActiveMemTable:    "cur-size-active-mem-table",
	PropertyCurSizeAllMemTables:      "cur-size-all-mem-tables",
	PropertyNumEntriesActiveMemTable: "num-entries-active-mem-table",
	PropertyNumEntriesImmMemTables:   "num-entries-imm-mem-tables",
	PropertyEstimateNumKeys:          "estimate-num-keys",
	PropertyEstimateTableReadersMem:  "estimate-table-readers-mem",
	PropertyIsFileDeletionsEnabled:   "is-file-deletions-enabled",
	PropertyNumSnapshots:             "num-snapshots",
	PropertyOldestSnapshotTime:       "oldest-snapshot-time",
	PropertyNumLiveVersions:          "num-live-versions",
}

// String implements fmt.Stringer.
func (k PropertyKind) String() string {
	if int(k) >= len(propertyKindNames) {
		return "unknown"
	}
	return propertyKindNames[k]
}

// SafeValue implements redact.SafeValue.
func (k PropertyKind) SafeValue() {}

var _ redact.SafeValue = PropertyKind(0)

// ResolveProperty maps a property query string to its kind and policy flags.
// isInt reports whether the property is served by the integer paths rather
// than the string path. needsIsolatedRead reports whether the property must
// be computed without the engine mutex, against an isolated version
// reference, because its cost scales with the number of files.
//
// ResolveProperty is pure: it never consults engine state and does not
// allocate.
func ResolveProperty(name string) (kind PropertyKind, isInt bool, needsIsolatedRead bool) {
	if len(name) < len(PropertyPrefix) || name[:len(PropertyPrefix)] != PropertyPrefix {
		return PropertyUnknown, false, false
	}
	in := name[len(PropertyPrefix):]

	if len(in) >= len(numFilesAtLevelPrefix) && in[:len(numFilesAtLevelPrefix)] == numFilesAtLevelPrefix {
		return PropertyNumFilesAtLevel, false, false
	}
	switch in {
	case "levelstats":
		return PropertyLevelStats, false, false
	case "stats":
		return PropertyStats, false, false
	case "cfstats":
		return PropertyCFStats, false, false
	case "dbstats":
		return PropertyDBStats, false, false
	case "sstables":
		return PropertySSTables, false, false
	}

	switch in {
	case "num-immutable-mem-table":
		return PropertyNumImmutableMemTable, true, false
	case "mem-table-flush-pending":
		return PropertyMemTableFlushPending, true, false
	case "compaction-pending":
		return PropertyCompactionPending, true, false
	case "background-errors":
		return PropertyBackgroundErrors, true, false
	case "cur-size-active-mem-table":
		return PropertyCurSizeActiveMemTable, true, false
	case "cur-size-all-mem-tables":
		return PropertyCurSizeAllMemTables, true, false
	case "num-entries-active-mem-table":
		return PropertyNumEntriesActiveMemTable, true, false
	case "num-entries-imm-mem-tables":
		return PropertyNumEntriesImmMemTables, true, false
	case "estimate-num-keys":
		return PropertyEstimateNumKeys, true, false
	case "estimate-table-readers-mem":
		return PropertyEstimateTableReadersMem, true, true
	case "is-file-deletions-enabled":
		return PropertyIsFileDeletionsEnabled, true, false
	case "num-snapshots":
		return PropertyNumSnapshots, true, false
	case "oldest-snapshot-time":
		return PropertyOldestSnapshotTime, true, false
	case "num-live-versions":
		return PropertyNumLiveVersions, true, false
	}
	return PropertyUnknown, false, false
}
