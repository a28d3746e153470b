// Package logx is a thin wrapper over the standard log package shared by
// the cmd/sparqlplan CLI, grounded on the teacher's own direct use of
// log.Fatalf/log.Printf in cmd/datalog/main.go — this module adds a
// leveled prefix but otherwise stays out of log's way.
package logx

import (
	"fmt"
	"log"
	"os"
)

// Logger wraps the stdlib log.Logger with a component prefix.
type Logger struct {
	*log.Logger
}

// New returns a Logger that writes to stderr, prefixed with component.
func New(component string) *Logger {
	return &Logger{Logger: log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags)}
}

// Warn logs a formatted warning line.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.Printf("WARN: "+format, args...)
}

// Error logs a formatted error line.
func (l *Logger) Error(format string, args ...interface{}) {
	l.Printf("ERROR: "+format, args...)
}
