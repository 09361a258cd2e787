package interpreter

import (
	"time"

	"github.com/thomasrohde/golox/pkg/ast"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart    TraceEventType = "run_start"
	TraceRunEnd      TraceEventType = "run_end"
	TraceCallStart   TraceEventType = "call_start"
	TraceCallEnd     TraceEventType = "call_end"
	TraceClassDefine TraceEventType = "class_define"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId"`
	Event     TraceEventType    `json:"event"`
	Span      *ast.Span         `json:"span,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

func (in *Interpreter) emit(event TraceEventType, span ast.Span, data map[string]string) {
	if in.trace == nil {
		return
	}
	in.trace(TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     in.runID,
		Event:     event,
		Span:      &span,
		Data:      data,
	})
}

func calleeName(c Callable) string {
	switch fn := c.(type) {
	case *Function:
		return fn.Name()
	case *Class:
		return fn.Name
	case *Native:
		return fn.Name
	}
	return "?"
}
