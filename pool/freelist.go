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

// insertFree links the block at offset into the head of the free index
// (LIFO insertion, same as memory_pool.c's add_to_free_list) and marks it
// free. The list is not address-sorted; physical order is recovered
// separately by arena traversal when coalescing or checking.
func (p *Pool) insertFree(offset int64) {
	h := p.headerAt(offset)
	h.used = 0
	h.clientID = noOffset
	h.next = p.freeHead
	h.prev = noOffset
	if p.freeHead != noOffset {
		p.headerAt(p.freeHead).prev = offset
	}
	p.freeHead = offset
}

// removeFree unlinks offset from the free index. A linked block is free
// (used == 0) and is either the list head or has a predecessor; removal
// clears prev without touching used, so checking both is the O(1)
// "verify it is actually linked" guard remove_from_free_list runs before
// touching next/prev — it tolerates being asked to remove a block twice
// without corrupting the list on the second call.
func (p *Pool) removeFree(offset int64) bool {
	h := p.headerAt(offset)
	if h.used != 0 || (h.prev == noOffset && p.freeHead != offset) {
		return false
	}

	if h.prev != noOffset {
		p.headerAt(h.prev).next = h.next
	} else {
		p.freeHead = h.next
	}
	if h.next != noOffset {
		p.headerAt(h.next).prev = h.prev
	}

	if p.nextFit == offset {
		p.nextFit = h.next
	}

	h.next = noOffset
	h.prev = noOffset
	return true
}

// retargetNextFit is called when a chosen block is consumed by a split:
// if the cursor pointed at the block that was just split, it resumes at
// the remainder, or at the free-list head if no split occurred.
func (p *Pool) retargetNextFit(consumed, remainder int64) {
	if p.nextFit != consumed {
		return
	}
	if remainder != noOffset {
		p.nextFit = remainder
	} else {
		p.nextFit = p.freeHead
	}
}
