// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package shale

import (
	"context"
	"sync"
	"time"

	"github.com/shaledb/shale/internal/base"
)

// StatsDumper periodically renders the stats report through a Logger. It is
// the background-logger surface of the engine's administrative interface;
// the core property paths never log. Each dump advances the interval
// baselines, so the logged interval figures cover one dump period.
type StatsDumper struct {
	stats    *Stats
	mu       sync.Locker
	logger   base.Logger
	interval time.Duration
}

// NewStatsDumper returns a dumper that renders stats every interval. mu is
// the engine mutex guarding stats.
func NewStatsDumper(
	stats *Stats, mu sync.Locker, logger base.Logger, interval time.Duration,
) *StatsDumper {
	return &StatsDumper{
		stats:    stats,
		mu:       mu,
		logger:   logger,
		interval: interval,
	}
}

// Run dumps stats until ctx is canceled. It is intended to be run in its own
// goroutine, owned by the caller.
func (d *StatsDumper) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			text, err := d.stats.GetStringPropertyLocked(PropertyStats, PropertyPrefix+"stats")
			d.mu.Unlock()
			if err != nil {
				d.logger.Errorf("stats dump: %v", err)
				continue
			}
			d.logger.Infof("%s", text)
		}
	}
}
