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

import "log"

// Level is a logging severity, mirroring memory_log_level_t in the C
// source (DEBUG, INFO, WARN, ERROR).
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the single injection point for all diagnostic output the pool
// produces (double-free warnings, leak-on-destroy warnings, corruption
// errors). There is no process-wide logging state; a Pool with no Logger
// configured is silent.
type Logger interface {
	Log(level Level, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Log(Level, string, ...interface{}) {}

// StdLogger adapts the standard library's log package to Logger, printing
// one level-prefixed line per event the way the C source's MEMORY_LOG
// macro writes to stderr.
type StdLogger struct {
	*log.Logger
}

// NewStdLogger returns a StdLogger writing to log.Default().
func NewStdLogger() StdLogger {
	return StdLogger{Logger: log.Default()}
}

func (l StdLogger) Log(level Level, format string, args ...interface{}) {
	l.Logger.Printf("[POOL-%s] "+format, append([]interface{}{level.String()}, args...)...)
}
