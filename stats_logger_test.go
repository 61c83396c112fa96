// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package shale

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type capturingLogger struct {
	mu     sync.Mutex
	logged []string
}

func (l *capturingLogger) Infof(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logged = append(l.logged, fmt.Sprintf(format, args...))
}

func (l *capturingLogger) Errorf(format string, args ...interface{}) {
	l.Infof(format, args...)
}

func (l *capturingLogger) Fatalf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

func (l *capturingLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.logged...)
}

func TestStatsDumper(t *testing.T) {
	e := newTestEnv(3)
	s := e.newStats("default")

	var mu sync.Mutex
	logger := &capturingLogger{}
	d := NewStatsDumper(s, &mu, logger, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(logger.snapshot()) > 0
	}, 10*time.Second, time.Millisecond)
	cancel()
	<-done

	dump := logger.snapshot()[0]
	require.Contains(t, dump, "** Compaction Stats [default] **")
	require.Contains(t, dump, "** DB Stats **")
}
