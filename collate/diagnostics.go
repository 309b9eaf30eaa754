package collate

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Diagnostics collects anomaly counts and logs each occurrence, the way
// gitp4transfer's GitFile/GitCommit types log through a shared
// *logrus.Logger rather than returning errors for conditions collation
// should survive.
type Diagnostics struct {
	mu     sync.Mutex
	counts map[Kind]int
	logger *logrus.Logger
}

// NewDiagnostics returns a Diagnostics that logs through logger.
func NewDiagnostics(logger *logrus.Logger) *Diagnostics {
	return &Diagnostics{counts: make(map[Kind]int), logger: logger}
}

// Warn records one occurrence of kind and logs a formatted message.
// DuplicateGitspaceAssignment logs at debug level only, the way
// collate.c only prints it under its own GITSPACEDEBUG build flag; it is
// still counted.
func (d *Diagnostics) Warn(kind Kind, format string, args ...interface{}) {
	d.mu.Lock()
	d.counts[kind]++
	d.mu.Unlock()
	if d.logger == nil {
		return
	}
	if kind == DuplicateGitspaceAssignment {
		d.logger.Debugf("%s: %s", kind, fmt.Sprintf(format, args...))
		return
	}
	d.logger.Warnf("%s: %s", kind, fmt.Sprintf(format, args...))
}

// Count returns how many times kind has been reported.
func (d *Diagnostics) Count(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[kind]
}

// Total returns the sum of all anomaly counts.
func (d *Diagnostics) Total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.counts {
		n += c
	}
	return n
}
