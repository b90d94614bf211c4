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

// Strategy selects the placement policy used to satisfy an allocation
// request. It mirrors alloc_strategy_t from the C source.
type Strategy int

const (
	FirstFit Strategy = iota
	BestFit
	WorstFit
	NextFit
)

func (s Strategy) String() string {
	switch s {
	case FirstFit:
		return "FIRST_FIT"
	case BestFit:
		return "BEST_FIT"
	case WorstFit:
		return "WORST_FIT"
	case NextFit:
		return "NEXT_FIT"
	default:
		return "UNKNOWN"
	}
}

// Option customizes pool creation beyond the (total_size, strategy) pair
// the spec's public surface takes directly. Nil fields fall back to their
// DefaultOption value.
type Option struct {
	// Strategy is the initial placement policy.
	Strategy Strategy

	// Alignment overrides MemoryAlignment (default 8). Must be a power of
	// two when set; zero means "use the default".
	Alignment int

	// Logger receives diagnostic events. Nil means silence (noopLogger).
	Logger Logger
}

// DefaultOption returns the zero-value-safe defaults: first-fit
// placement, default alignment, silent logging.
func DefaultOption() *Option {
	return &Option{
		Strategy:  FirstFit,
		Alignment: MemoryAlignment,
		Logger:    noopLogger{},
	}
}

func resolveOption(o *Option) *Option {
	if o == nil {
		return DefaultOption()
	}
	resolved := *o
	if resolved.Alignment <= 0 {
		resolved.Alignment = MemoryAlignment
	}
	if resolved.Logger == nil {
		resolved.Logger = noopLogger{}
	}
	return &resolved
}
