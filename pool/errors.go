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

// Status is a result code returned alongside (or instead of) a value by
// every fallible operation. It satisfies the error interface so it can be
// returned, wrapped and compared with errors.Is like any other Go error,
// while still carrying the small fixed vocabulary the C source exposed.
type Status int

const (
	// StatusSuccess indicates the call completed normally, including the
	// idempotent "already free" and "warn and proceed" cases spec'd as
	// non-errors.
	StatusSuccess Status = 0
	// StatusInvalidParam is returned for null/zero/negative arguments.
	StatusInvalidParam Status = -1
	// StatusOutOfMemory is returned when no free block satisfies a request.
	StatusOutOfMemory Status = -2
	// StatusCorruption is returned for an out-of-arena header or bad magic.
	StatusCorruption Status = -3
	// StatusClientInvalid is returned when client_id does not own the block.
	StatusClientInvalid Status = -4
	// StatusPoolNotInit is returned for operations on an inactive pool.
	StatusPoolNotInit Status = -5
)

func (s Status) Error() string {
	switch s {
	case StatusSuccess:
		return "pool: success"
	case StatusInvalidParam:
		return "pool: invalid parameter"
	case StatusOutOfMemory:
		return "pool: out of memory"
	case StatusCorruption:
		return "pool: corruption detected"
	case StatusClientInvalid:
		return "pool: client does not own block"
	case StatusPoolNotInit:
		return "pool: pool not active"
	default:
		return "pool: unknown status"
	}
}

// OK reports whether s represents a successful outcome.
func (s Status) OK() bool {
	return s == StatusSuccess
}
