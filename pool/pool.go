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

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"
)

// Pool owns a single contiguous arena and carves it into blocks for
// multiple concurrent clients. The arena, free index, next-fit cursor and
// metrics are all mutated only under mu — one lock for the whole pool,
// mirroring memory_pool.c's single pthread_mutex_t rather than lock-free
// or sharded refinements.
type Pool struct {
	mu sync.Mutex

	arena     []byte
	basePtr   unsafe.Pointer
	totalSize int64
	alignment int

	strategy Strategy
	freeHead int64
	nextFit  int64
	active   bool

	logger Logger

	allocationCount   int64
	freeCount         int64
	failedAllocations int64
}

// Create allocates a pool managing an arena of totalSize bytes, using the
// given placement strategy and default tunables. It fails if totalSize is
// too small to hold even one minimum-sized block.
func Create(totalSize int, strategy Strategy) (*Pool, error) {
	return CreateWithOption(totalSize, &Option{Strategy: strategy})
}

// CreateWithOption is Create with full control over alignment and
// logging, for callers that need more than the (total_size, strategy)
// shortcut.
func CreateWithOption(totalSize int, opt *Option) (*Pool, error) {
	o := resolveOption(opt)

	minTotal := int(headerSize) + MinBlockSize
	if totalSize < minTotal {
		return nil, fmt.Errorf("pool: total_size %d smaller than minimum %d: %w", totalSize, minTotal, StatusInvalidParam)
	}

	arena := mcache.Malloc(totalSize)
	for i := range arena {
		arena[i] = 0
	}

	p := &Pool{
		arena:     arena,
		basePtr:   unsafe.Pointer(&arena[0]),
		totalSize: int64(totalSize),
		alignment: o.Alignment,
		strategy:  o.Strategy,
		freeHead:  noOffset,
		nextFit:   noOffset,
		active:    true,
		logger:    o.Logger,
	}

	first := p.headerAt(0)
	first.size = int64(totalSize) - headerSize
	first.used = 0
	first.clientID = noOffset
	first.magic = magicNumber
	first.next = noOffset
	first.prev = noOffset
	p.insertFree(0)

	p.logger.Log(LevelInfo, "pool created: %d bytes, strategy=%s", totalSize, p.strategy)
	return p, nil
}

// Destroy deactivates the pool and releases its arena. If blocks are
// still marked used, it emits an advisory warning through the logger but
// tears down anyway, matching memory_pool_destroy's behavior: destruction
// with live clients is permitted but unsafe by contract.
func (p *Pool) Destroy() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}

	if used := p.usedBlocksLocked(); used > 0 {
		p.logger.Log(LevelWarn, "destroying pool with %d blocks still in use - potential leak", used)
	}

	arena := p.arena
	p.active = false
	p.arena = nil
	p.basePtr = nil
	p.freeHead = noOffset
	p.nextFit = noOffset
	p.totalSize = 0
	p.mu.Unlock()

	mcache.Free(arena)
	p.logger.Log(LevelInfo, "pool destroyed")
}

// Alloc reserves size bytes for clientID using the pool's current
// placement strategy, returning the zeroed payload slice. It returns an
// error (a Status) without allocating on invalid or oversized requests,
// and on corruption-free starvation (no block fits), incrementing the
// failed-allocation counter in both cases.
func (p *Pool) Alloc(size int, clientID int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if size <= 0 {
		p.failedAllocations++
		return nil, StatusInvalidParam
	}

	if !p.active {
		return nil, StatusPoolNotInit
	}

	aligned := int64(alignUp(size, p.alignment))
	if aligned > p.totalSize-headerSize {
		p.failedAllocations++
		p.logger.Log(LevelError, "requested size too large: %d aligned bytes", aligned)
		return nil, StatusOutOfMemory
	}

	offset := p.findBlock(aligned)
	if offset == noOffset {
		p.failedAllocations++
		p.logger.Log(LevelWarn, "no free block fits %d bytes", aligned)
		return nil, StatusOutOfMemory
	}

	// removeFree moves a cursor resting on the chosen block to its list
	// successor; put it back so splitIfPossible can retarget it to the
	// remainder (or the list head when nothing is split off).
	cursorOnBlock := p.nextFit == offset
	p.removeFree(offset)
	if cursorOnBlock {
		p.nextFit = offset
	}
	p.splitIfPossible(offset, aligned)

	h := p.headerAt(offset)
	h.used = 1
	h.clientID = int64(clientID)

	payload := p.payloadAt(offset)
	for i := range payload {
		payload[i] = 0
	}

	p.allocationCount++

	p.logger.Log(LevelDebug, "client %d allocated %d bytes at offset %d", clientID, h.size, offset)
	return payload, nil
}

// Free releases payload, previously returned by Alloc, back to the pool.
// Releasing a block owned by a different client returns
// StatusClientInvalid and leaves the block untouched. Releasing an
// already-free block is tolerated: it is logged and reported as success,
// matching memory_pool_free's double-free handling rather than treating
// it as a hard error.
func (p *Pool) Free(payload []byte, clientID int) error {
	if payload == nil {
		return StatusInvalidParam
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return StatusPoolNotInit
	}

	offset, ok := p.offsetOfPayload(payload)
	if !ok || !p.isValidHeader(offset) {
		p.logger.Log(LevelError, "free of out-of-arena or corrupt block")
		return StatusCorruption
	}

	h := p.headerAt(offset)
	if h.used == 0 {
		p.logger.Log(LevelWarn, "double free at offset %d", offset)
		return nil
	}
	if h.clientID != int64(clientID) {
		p.logger.Log(LevelError, "client %d attempted to free block owned by client %d", clientID, h.clientID)
		return StatusClientInvalid
	}

	p.freeCount++

	h.used = 0
	h.clientID = noOffset

	merged := p.fuse(offset)
	p.insertFree(merged)

	p.logger.Log(LevelDebug, "client %d freed block at offset %d", clientID, offset)
	return nil
}

// SetStrategy switches the placement policy and resets the next-fit
// cursor, since a cursor position chosen under the old strategy has no
// defined meaning under the new one.
func (p *Pool) SetStrategy(strategy Strategy) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return StatusPoolNotInit
	}
	p.strategy = strategy
	p.nextFit = noOffset
	return nil
}

// GetStrategy, GetTotalSize and IsValid are pure getters. Like
// memory_pool.c's equivalents they intentionally do not take the pool
// mutex: reading a single word racily is harmless and avoids contending
// the lock for a snapshot that can go stale the instant it's returned
// anyway.
func (p *Pool) GetStrategy() Strategy {
	return p.strategy
}

func (p *Pool) GetTotalSize() int {
	return int(p.totalSize)
}

func (p *Pool) IsValid() bool {
	return p != nil && p.active && p.arena != nil
}
