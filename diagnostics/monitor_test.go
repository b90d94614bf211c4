package diagnostics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenapool/arenapool/pool"
)

type countingLogger struct {
	mu     sync.Mutex
	counts map[pool.Level]int
}

func newCountingLogger() *countingLogger {
	return &countingLogger{counts: make(map[pool.Level]int)}
}

func (l *countingLogger) Log(level pool.Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[level]++
}

func (l *countingLogger) count(level pool.Level) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[level]
}

func TestMonitor_RunsAndStops(t *testing.T) {
	p, err := pool.Create(4096, pool.FirstFit)
	require.NoError(t, err)
	defer p.Destroy()

	logger := newCountingLogger()
	m := NewMonitor(p, 5*time.Millisecond, logger)

	m.Start()
	assert.True(t, m.Running())

	// Starting an already-running Monitor must be a no-op, not a second
	// goroutine racing the first.
	m.Start()

	require.Eventually(t, func() bool {
		return logger.count(pool.LevelDebug) > 0
	}, 500*time.Millisecond, 5*time.Millisecond, "monitor should have logged at least one passing check")

	m.Stop()
	assert.False(t, m.Running())

	seen := logger.count(pool.LevelDebug)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, seen, logger.count(pool.LevelDebug), "no further checks should run after Stop")
}

func TestMonitor_StopBeforeStartIsNoop(t *testing.T) {
	p, err := pool.Create(4096, pool.FirstFit)
	require.NoError(t, err)
	defer p.Destroy()

	m := NewMonitor(p, time.Second, nil)
	assert.NotPanics(t, func() { m.Stop() })
	assert.False(t, m.Running())
}

func TestMonitor_HealthyPoolLogsNoError(t *testing.T) {
	p, err := pool.Create(4096, pool.FirstFit)
	require.NoError(t, err)
	defer p.Destroy()

	payload, err := p.Alloc(64, 1)
	require.NoError(t, err)
	_ = payload

	logger := newCountingLogger()
	m := NewMonitor(p, 5*time.Millisecond, logger)
	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool {
		return logger.count(pool.LevelDebug) > 0 || logger.count(pool.LevelError) > 0
	}, 500*time.Millisecond, 5*time.Millisecond)

	assert.Equal(t, 0, logger.count(pool.LevelError), "a single in-use block is not corruption")
}

func TestMonitor_SurvivesInactivePool(t *testing.T) {
	p, err := pool.Create(4096, pool.FirstFit)
	require.NoError(t, err)
	p.Destroy()

	m := NewMonitor(p, 5*time.Millisecond, nil)
	assert.NotPanics(t, func() {
		m.Start()
		time.Sleep(20 * time.Millisecond)
		m.Stop()
	})
}
