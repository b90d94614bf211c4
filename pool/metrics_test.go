package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_FreshPoolIsOneFreeBlock(t *testing.T) {
	p, err := Create(4096, FirstFit)
	require.NoError(t, err)

	m, err := p.GetMetrics()
	require.NoError(t, err)

	assert.Equal(t, 1, m.BlockCount)
	assert.Equal(t, 1, m.FreeBlocks)
	assert.Equal(t, 0, m.UsedBlocks)
	assert.Equal(t, int64(0), m.UsedMemory)
	assert.Equal(t, m.TotalMemory, m.FreeMemory)
	assert.Equal(t, float64(0), m.Fragmentation, "a single free block is never fragmented")
}

func TestMetrics_FragmentationRisesWithScatteredFreeBlocks(t *testing.T) {
	total := exactFitArena(100, 100, 100, 100)
	p, err := Create(total, FirstFit)
	require.NoError(t, err)

	blocks := make([][]byte, 4)
	for i := range blocks {
		b, err := p.Alloc(100, 1)
		require.NoError(t, err)
		blocks[i] = b
	}

	// Free every other block so none of the resulting free regions can
	// coalesce with each other.
	require.NoError(t, p.Free(blocks[0], 1))
	require.NoError(t, p.Free(blocks[2], 1))

	m, err := p.GetMetrics()
	require.NoError(t, err)
	assert.Equal(t, 2, m.FreeBlocks)
	assert.Greater(t, m.Fragmentation, float64(0))
	assert.Less(t, m.Fragmentation, float64(100))
}

func TestMetrics_CountersSurviveFailedAllocation(t *testing.T) {
	p, err := Create(256, FirstFit)
	require.NoError(t, err)

	_, err = p.Alloc(10000, 1)
	assert.Error(t, err)

	m, err := p.GetMetrics()
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.FailedAllocations)
	assert.Equal(t, int64(0), m.AllocationCount)
}

func TestCheck_DetectsHealthyPool(t *testing.T) {
	p, err := Create(4096, FirstFit)
	require.NoError(t, err)

	payload, err := p.Alloc(64, 1)
	require.NoError(t, err)
	assert.True(t, p.Check())

	require.NoError(t, p.Free(payload, 1))
	assert.True(t, p.Check())
}

func TestCheck_InactivePoolReturnsFalse(t *testing.T) {
	p, err := Create(4096, FirstFit)
	require.NoError(t, err)
	p.Destroy()
	assert.False(t, p.Check())
}

func TestGetMetrics_OnInactivePoolFails(t *testing.T) {
	p, err := Create(4096, FirstFit)
	require.NoError(t, err)
	p.Destroy()

	_, err = p.GetMetrics()
	assert.ErrorIs(t, err, StatusPoolNotInit)
}

func TestConvenienceWrappers(t *testing.T) {
	p, err := Create(4096, FirstFit)
	require.NoError(t, err)

	payload, err := p.Alloc(64, 1)
	require.NoError(t, err)

	assert.Equal(t, headerSize+64, p.GetUsedMemory())
	assert.Equal(t, p.GetTotalSize(), int(p.GetUsedMemory()+p.GetFreeMemory()))

	require.NoError(t, p.Free(payload, 1))
	assert.Equal(t, int64(0), p.GetUsedMemory())
}
