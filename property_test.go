// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package shale

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"
)

func TestResolveProperty(t *testing.T) {
	datadriven.RunTest(t, "testdata/property", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "resolve":
			var buf bytes.Buffer
			for _, line := range strings.Split(strings.TrimSpace(td.Input), "\n") {
				kind, isInt, isolated := ResolveProperty(line)
				fmt.Fprintf(&buf, "%s: kind=%s is-int=%t needs-isolated-read=%t\n",
					line, kind, isInt, isolated)
			}
			return buf.String()
		default:
			return fmt.Sprintf("unknown command: %s", td.Cmd)
		}
	})
}

// Every known property resolves to a distinct non-unknown kind, and exactly
// one property needs an isolated read.
func TestResolvePropertyFlags(t *testing.T) {
	known := []string{
		"num-files-at-level7",
		"levelstats",
		"stats",
		"cfstats",
		"dbstats",
		"sstables",
		"num-immutable-mem-table",
		"mem-table-flush-pending",
		"compaction-pending",
		"background-errors",
		"cur-size-active-mem-table",
		"cur-size-all-mem-tables",
		"num-entries-active-mem-table",
		"num-entries-imm-mem-tables",
		"estimate-num-keys",
		"estimate-table-readers-mem",
		"is-file-deletions-enabled",
		"num-snapshots",
		"oldest-snapshot-time",
		"num-live-versions",
	}
	seen := make(map[PropertyKind]bool)
	var isolatedCount int
	for _, suffix := range known {
		kind, isInt, isolated := ResolveProperty(PropertyPrefix + suffix)
		require.NotEqualf(t, PropertyUnknown, kind, "%s", suffix)
		require.Falsef(t, seen[kind], "duplicate kind for %s", suffix)
		seen[kind] = true
		if isolated {
			isolatedCount++
			require.True(t, isInt)
			require.Equal(t, PropertyEstimateTableReadersMem, kind)
		}
		// Queries without the namespace prefix never resolve.
		kind, isInt, isolated = ResolveProperty(suffix)
		require.Equal(t, PropertyUnknown, kind)
		require.False(t, isInt)
		require.False(t, isolated)
	}
	require.Equal(t, 1, isolatedCount)
}
