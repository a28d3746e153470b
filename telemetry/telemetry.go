// Package telemetry emits best-effort (event_name, measurements, metadata)
// events at query and update start/stop/exception boundaries (§6.3).
// Handlers are advisory: nothing in the planning core blocks on, retries,
// or fails because of a telemetry handler. Grounded on the teacher's
// datalog/annotations event-handler shape, generalized from datalog-
// specific event names to the planning core's own boundaries.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// Event is one telemetry occurrence.
type Event struct {
	Name         string
	Measurements map[string]float64
	Metadata     map[string]string
	At           time.Time
}

// Handler receives Events. Handle must not block the caller for long and
// must never panic; a slow or buggy Handler degrades observability, not
// correctness.
type Handler interface {
	Handle(Event)
}

// NullHandler discards every event; it is the default when no handler is
// configured.
type NullHandler struct{}

func (NullHandler) Handle(Event) {}

// Emitter is the planning core's telemetry entry point: one call per
// boundary (query/update start, stop, exception), delegating formatting
// and sinking to Handler.
type Emitter struct {
	Handler Handler
}

// NewEmitter constructs an Emitter; a nil handler is replaced by
// NullHandler so callers never need a nil check.
func NewEmitter(h Handler) *Emitter {
	if h == nil {
		h = NullHandler{}
	}
	return &Emitter{Handler: h}
}

func (e *Emitter) emit(name string, measurements map[string]float64, metadata map[string]string) {
	e.Handler.Handle(Event{Name: name, Measurements: measurements, Metadata: metadata, At: time.Now()})
}

// QueryStart records that query planning for queryID began.
func (e *Emitter) QueryStart(queryID string) {
	e.emit("query.start", nil, map[string]string{"query_id": queryID})
}

// QueryStop records that planning for queryID completed, along with its
// elapsed duration and the cardinality estimate the planner settled on.
func (e *Emitter) QueryStop(queryID string, elapsed time.Duration, estimatedCardinality float64) {
	e.emit("query.stop",
		map[string]float64{"elapsed_ms": float64(elapsed.Microseconds()) / 1000.0, "estimated_cardinality": estimatedCardinality},
		map[string]string{"query_id": queryID},
	)
}

// QueryException records that planning for queryID failed.
func (e *Emitter) QueryException(queryID string, err error) {
	e.emit("query.exception", nil, map[string]string{"query_id": queryID, "error": err.Error()})
}

// UpdateStart records that an update operation began.
func (e *Emitter) UpdateStart(opType string) {
	e.emit("update.start", nil, map[string]string{"op_type": opType})
}

// UpdateStop records that an update operation committed successfully.
func (e *Emitter) UpdateStop(opType string, elapsed time.Duration, count int) {
	e.emit("update.stop",
		map[string]float64{"elapsed_ms": float64(elapsed.Microseconds()) / 1000.0, "count": float64(count)},
		map[string]string{"op_type": opType},
	)
}

// UpdateException records that an update operation failed.
func (e *Emitter) UpdateException(opType string, err error) {
	e.emit("update.exception", nil, map[string]string{"op_type": opType, "error": err.Error()})
}

// OutputHandler renders events as human-readable lines, colorizing
// exceptions in red. Whether color is emitted is decided by fatih/color's
// global setting (standard output being a terminal), not by the writer
// the handler was given.
type OutputHandler struct {
	writer io.Writer
}

// NewOutputHandler constructs an OutputHandler writing to w, defaulting to
// stderr.
func NewOutputHandler(w io.Writer) *OutputHandler {
	if w == nil {
		w = os.Stderr
	}
	return &OutputHandler{writer: w}
}

func (h *OutputHandler) Handle(e Event) {
	line := fmt.Sprintf("[%s] %s %v %v", e.At.Format(time.RFC3339), e.Name, e.Measurements, e.Metadata)
	if _, hasErr := e.Metadata["error"]; hasErr {
		line = color.RedString(line)
	}
	fmt.Fprintln(h.writer, line)
}
