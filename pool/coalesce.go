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

// maxFuseIterations bounds the coalescing loop so corruption (a cycle of
// headers claiming to be each other's neighbor) cannot hang a caller.
const maxFuseIterations = 100

// splitIfPossible carves a suffix off the free block at offset so it
// holds exactly size payload bytes, the same split memory_pool.c's
// allocate_block performs after picking a candidate. When the leftover
// is too small to be a useful block on its own (less than
// headerSize+MinBlockSize) it is left as slack inside the allocation
// instead, and no new header is written.
func (p *Pool) splitIfPossible(offset, size int64) {
	h := p.headerAt(offset)
	remaining := h.size - size
	remainder := noOffset

	if remaining >= headerSize+MinBlockSize {
		newOffset := offset + headerSize + size
		nh := p.headerAt(newOffset)
		nh.size = remaining - headerSize
		nh.used = 0
		nh.clientID = noOffset
		nh.magic = magicNumber
		nh.next = noOffset
		nh.prev = noOffset
		h.size = size

		p.insertFree(newOffset)
		remainder = newOffset
	}

	p.retargetNextFit(offset, remainder)
}

// fuse repeatedly merges the block at offset with its adjacent physical
// free neighbors, the way memory_pool.c's fuse_with_neighbors walks both
// directions from a freed block. offset must not currently be linked into
// the free index — the caller is mid-release, between marking the block
// free and reinserting it. Returns the offset of the resulting block,
// still not inserted into the free index; the caller inserts it once
// fusion is exhausted.
func (p *Pool) fuse(offset int64) int64 {
	block := offset
	for i := 0; i < maxFuseIterations; i++ {
		if next, ok := p.fuseForward(block); ok {
			block = next
			continue
		}
		if prev, ok := p.fuseBackward(block); ok {
			block = prev
			continue
		}
		break
	}
	return block
}

// fuseForward absorbs the physical next neighbor of block into block, if
// that neighbor lies in the arena, has a live header and is free.
func (p *Pool) fuseForward(block int64) (int64, bool) {
	h := p.headerAt(block)
	nextOff := block + headerSize + h.size
	if nextOff >= p.totalSize || !p.isValidHeader(nextOff) {
		return 0, false
	}
	nh := p.headerAt(nextOff)
	if nh.used != 0 {
		return 0, false
	}

	// Unlink before poisoning: poisoning first would zero nh.magic while
	// removeFree still needs nh's own next/prev links to patch its
	// neighbors, corrupting the list.
	p.removeFree(nextOff)
	h.size += headerSize + nh.size
	nh.magic = 0
	return block, true
}

// fuseBackward absorbs block into its physical previous neighbor, if that
// neighbor is free. A free neighbor is always currently linked into the
// free index, so it must be unlinked before
// its size changes underneath the list — otherwise the top-level insert
// that happens once fuse() finally settles would re-link a node that
// never left the list, producing a self-referential entry. block itself
// was never linked at this point in its lifecycle (it is either the
// block just released, or the result of a prior fuseForward on it), so
// only its header needs poisoning.
func (p *Pool) fuseBackward(block int64) (int64, bool) {
	if block <= 0 {
		return 0, false
	}
	prevOff, found := p.findPhysicalPrev(block)
	if !found {
		return 0, false
	}
	ph := p.headerAt(prevOff)
	if ph.used != 0 {
		return 0, false
	}

	p.removeFree(prevOff)

	h := p.headerAt(block)
	ph.size += headerSize + h.size
	h.magic = 0
	return prevOff, true
}

// findPhysicalPrev scans forward from the arena base looking for the
// header whose physical successor is target. This is O(n) in block
// count; memory_pool.c accepts the same cost rather than maintaining a
// footer word for O(1) backward traversal.
func (p *Pool) findPhysicalPrev(target int64) (int64, bool) {
	cur := int64(0)
	for cur < target {
		if !p.isValidHeader(cur) {
			return 0, false
		}
		next := p.nextPhysical(cur)
		if next == target {
			return cur, true
		}
		if next <= cur {
			return 0, false
		}
		cur = next
	}
	return 0, false
}
