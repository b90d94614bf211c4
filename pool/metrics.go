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

package pool

// Metrics is a point-in-time snapshot of a pool's occupancy, produced by
// a full physical arena walk, the same traversal memory_metrics.c runs
// to populate its stats struct. AllocationCount, FreeCount and
// FailedAllocations are the incrementally maintained counters; everything
// else is recomputed from scratch on every call.
type Metrics struct {
	TotalMemory       int64
	UsedMemory        int64
	FreeMemory        int64
	BlockCount        int
	UsedBlocks        int
	FreeBlocks        int
	LargestFreeBlock  int64
	Fragmentation     float64
	AllocationCount   int64
	FreeCount         int64
	FailedAllocations int64
}

// GetMetrics returns a snapshot of the pool's current state.
func (p *Pool) GetMetrics() (Metrics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return Metrics{}, StatusPoolNotInit
	}

	m := p.snapshotLocked()
	return m, nil
}

// snapshotLocked performs the physical arena walk memory_metrics.c does
// to compute occupancy. Must be called with mu held.
func (p *Pool) snapshotLocked() Metrics {
	m := Metrics{
		TotalMemory:       p.totalSize,
		AllocationCount:   p.allocationCount,
		FreeCount:         p.freeCount,
		FailedAllocations: p.failedAllocations,
	}

	for cur := int64(0); cur < p.totalSize; {
		if !p.isValidHeader(cur) {
			break
		}
		h := p.headerAt(cur)
		blockTotal := headerSize + h.size

		m.BlockCount++
		if h.used != 0 {
			m.UsedMemory += blockTotal
			m.UsedBlocks++
		} else {
			m.FreeMemory += blockTotal
			m.FreeBlocks++
			if blockTotal > m.LargestFreeBlock {
				m.LargestFreeBlock = blockTotal
			}
		}

		if blockTotal <= 0 {
			break
		}
		cur += blockTotal
	}

	if m.FreeBlocks > 1 && m.FreeMemory > 0 {
		frag := (1.0 - float64(m.LargestFreeBlock)/float64(m.FreeMemory)) * 100.0
		if frag > 0 {
			m.Fragmentation = frag
		}
	}

	return m
}

// usedBlocksLocked is the narrow slice of snapshotLocked Destroy needs for
// its leak warning. Must be called with mu held.
func (p *Pool) usedBlocksLocked() int {
	return p.snapshotLocked().UsedBlocks
}

// Check walks the free index (not the arena) verifying every node has a
// live magic number, is marked free, and lies inside the arena. It also
// cross-checks the free-list walk's block count against an independent
// arena walk's free-block count — a dual-walk sanity check beyond what
// memory_pool.c's own integrity check does, added because the free list
// and the arena are two independent sources of truth about occupancy and
// a silent divergence between them is exactly the kind of corruption a
// single-direction walk would miss. The walk is bounded to guard against
// a cyclic, corrupted list. Returns true iff no errors were found.
func (p *Pool) Check() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return false
	}

	const maxCheckSteps = 1000
	errs := 0
	steps := 0
	listFree := 0

	for cur := p.freeHead; cur != noOffset; {
		if steps >= maxCheckSteps {
			p.logger.Log(LevelError, "possible cycle in free list")
			errs++
			break
		}
		if !p.isValidHeader(cur) {
			p.logger.Log(LevelError, "invalid header in free list at offset %d", cur)
			errs++
			break
		}
		h := p.headerAt(cur)
		if h.used != 0 {
			p.logger.Log(LevelError, "block marked used found in free list at offset %d", cur)
			errs++
		}
		listFree++
		cur = h.next
		steps++
	}

	arenaFree := p.snapshotLocked().FreeBlocks
	if errs == 0 && listFree != arenaFree {
		p.logger.Log(LevelError, "free list walk (%d) disagrees with arena walk (%d)", listFree, arenaFree)
		errs++
	}

	return errs == 0
}

// GetFragmentation, GetUsedMemory and GetFreeMemory are convenience
// wrappers over GetMetrics for callers that want a single number.
func (p *Pool) GetFragmentation() float64 {
	m, err := p.GetMetrics()
	if err != nil {
		return 0
	}
	return m.Fragmentation
}

func (p *Pool) GetUsedMemory() int64 {
	m, err := p.GetMetrics()
	if err != nil {
		return 0
	}
	return m.UsedMemory
}

func (p *Pool) GetFreeMemory() int64 {
	m, err := p.GetMetrics()
	if err != nil {
		return 0
	}
	return m.FreeMemory
}
