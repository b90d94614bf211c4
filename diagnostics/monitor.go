/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package diagnostics runs a background integrity checker over a
// pool.Pool. memory_pool.c exposes memory_pool_check_integrity as a
// function a caller must remember to invoke; here it additionally runs
// on a ticker so corruption surfaces in logs without any caller action.
// The start/stop guard and ticker loop are the same shape as
// concurrency/gopool.GoPool's runTicker, adapted from aging idle
// goroutines to periodically calling pool.Check.
package diagnostics

import (
	"sync/atomic"
	"time"

	"github.com/arenapool/arenapool/pool"
)

// Monitor periodically calls Check on a bound pool.Pool and logs the
// outcome through the same Logger interface the pool itself uses.
type Monitor struct {
	pool     *pool.Pool
	interval time.Duration
	logger   pool.Logger

	running int32
	stop    chan struct{}
	done    chan struct{}
}

// NewMonitor binds a Monitor to p, checking its integrity every interval.
// A nil logger falls back to a no-op logger, matching pool.Option's own
// default.
func NewMonitor(p *pool.Pool, interval time.Duration, logger pool.Logger) *Monitor {
	if logger == nil {
		logger = noopLogger{}
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Monitor{
		pool:     p,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the background check loop. Calling Start on an
// already-running Monitor is a no-op.
func (m *Monitor) Start() {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run()
}

// Stop halts the background loop and waits for it to exit. Calling Stop
// on a Monitor that was never started, or already stopped, is a no-op.
func (m *Monitor) Stop() {
	if !atomic.CompareAndSwapInt32(&m.running, 1, 0) {
		return
	}
	close(m.stop)
	<-m.done
}

// Running reports whether the background loop is currently active.
func (m *Monitor) Running() bool {
	return atomic.LoadInt32(&m.running) != 0
}

func (m *Monitor) run() {
	defer close(m.done)

	t := time.NewTicker(m.interval)
	defer t.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			if !m.pool.IsValid() {
				continue
			}
			if ok := m.pool.Check(); !ok {
				m.logger.Log(pool.LevelError, "integrity check failed")
			} else {
				m.logger.Log(pool.LevelDebug, "integrity check passed")
			}
		}
	}
}

type noopLogger struct{}

func (noopLogger) Log(level pool.Level, format string, args ...interface{}) {}
