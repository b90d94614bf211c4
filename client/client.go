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

// Package client implements the per-client registry of outstanding
// payloads, mirroring memory_client.c: a lightweight handle bound to one
// pool.Pool that lets its owner release every block it still holds in
// one call, without the pool having to track clients itself.
package client

import (
	"sync"

	"github.com/arenapool/arenapool/pool"
)

// Client tracks every payload pointer it has obtained from its bound
// Pool. It does not own the memory; the Pool does. The registry here is
// a dynamic array with swap-with-last removal, the same shape as
// memory_client.c's allocated_blocks array, preferred here over a hash
// index because a client's outstanding-block count is expected to stay
// small relative to a shared pool's block count.
type Client struct {
	mu sync.Mutex

	id   int
	pool *pool.Pool

	allocated [][]byte
}

// Create binds a new client with a non-negative id to p.
func Create(id int, p *pool.Pool) (*Client, error) {
	if p == nil || id < 0 {
		return nil, pool.StatusInvalidParam
	}
	return &Client{
		id:        id,
		pool:      p,
		allocated: make([][]byte, 0, 10),
	}, nil
}

// Destroy releases every block this client still holds and discards its
// registry.
func (c *Client) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.freeAllLocked()
}

// Alloc requests size bytes from the bound pool under this client's id
// and records the returned payload.
func (c *Client) Alloc(size int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := c.pool.Alloc(size, c.id)
	if err != nil {
		return nil, err
	}
	c.allocated = append(c.allocated, payload)
	return payload, nil
}

// Free releases payload back to the pool and removes it from the
// registry. The registry entry is only dropped once the pool confirms
// the release succeeded.
func (c *Client) Free(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.pool.Free(payload, c.id); err != nil {
		return err
	}
	c.removeLocked(payload)
	return nil
}

// FreeAll releases every payload this client currently holds. Entries
// whose underlying block was already poisoned by external coalescing are
// tolerated: pool.Free validates each one and simply reports corruption
// for those, which FreeAll ignores since there is nothing more a client
// can do about memory it no longer owns a live view of.
func (c *Client) FreeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.freeAllLocked()
}

func (c *Client) freeAllLocked() {
	for _, payload := range c.allocated {
		if payload == nil {
			continue
		}
		_ = c.pool.Free(payload, c.id)
	}
	c.allocated = c.allocated[:0]
}

// ReassignPool releases every block held in the current pool, then
// rebinds the client to newPool.
func (c *Client) ReassignPool(newPool *pool.Pool) error {
	if newPool == nil {
		return pool.StatusInvalidParam
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.freeAllLocked()
	c.pool = newPool
	return nil
}

// GetID returns the client's id.
func (c *Client) GetID() int {
	return c.id
}

// GetPool returns the pool the client is currently bound to.
func (c *Client) GetPool() *pool.Pool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pool
}

// GetAllocatedCount returns the number of blocks this client currently
// holds, per its own registry.
func (c *Client) GetAllocatedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.allocated)
}

func (c *Client) removeLocked(payload []byte) {
	for i, p := range c.allocated {
		if samePayload(p, payload) {
			last := len(c.allocated) - 1
			c.allocated[i] = c.allocated[last]
			c.allocated[last] = nil
			c.allocated = c.allocated[:last]
			return
		}
	}
}

func samePayload(a, b []byte) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}
