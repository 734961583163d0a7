// Package mlog is mdflow's ambient logging surface: a timestamped stderr
// writer, optionally teed to a log file via the "logs" surface, shared
// across every component so a single invocation produces one coherent
// trail regardless of which internal package emits a line.
package mlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu   sync.RWMutex
	sink io.WriteCloser
)

// SetSink installs a secondary writer that every subsequent Printf call
// is teed to, in addition to stderr. Passing nil disables teeing.
func SetSink(w io.WriteCloser) {
	mu.Lock()
	defer mu.Unlock()
	if sink != nil {
		sink.Close()
	}
	sink = w
}

// CloseSink closes and clears the current sink, if any.
func CloseSink() {
	mu.Lock()
	defer mu.Unlock()
	if sink != nil {
		sink.Close()
		sink = nil
	}
}

// Printf writes a timestamped line to stderr, and to the installed sink
// if one is set.
func Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] %s\n", time.Now().Format(time.RFC3339), msg)

	fmt.Fprint(os.Stderr, line)

	mu.RLock()
	s := sink
	mu.RUnlock()
	if s != nil {
		io.WriteString(s, line)
	}
}
