package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/thomasrohde/golox/pkg/interpreter"
)

// TraceSummary aggregates a JSONL trace written by lox run --trace.
type TraceSummary struct {
	RunID          string         `json:"runId"`
	TotalEvents    int            `json:"totalEvents"`
	Calls          int            `json:"calls"`
	CallsByName    map[string]int `json:"callsByName"`
	CallErrors     int            `json:"callErrors"`
	ClassesDefined []string       `json:"classesDefined,omitempty"`
	Error          string         `json:"error,omitempty"`
	StartTime      string         `json:"startTime,omitempty"`
	EndTime        string         `json:"endTime,omitempty"`
	DurationMs     float64        `json:"durationMs"`
}

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		CallsByName: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event interpreter.TraceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case interpreter.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.Timestamp
			}
		case interpreter.TraceRunEnd:
			summary.EndTime = event.Timestamp
			if msg, ok := event.Data["error"]; ok {
				summary.Error = msg
			}
		case interpreter.TraceCallStart:
			summary.Calls++
			if name, ok := event.Data["callee"]; ok {
				summary.CallsByName[name]++
			}
		case interpreter.TraceCallEnd:
			if _, failed := event.Data["error"]; failed {
				summary.CallErrors++
			}
		case interpreter.TraceClassDefine:
			if name, ok := event.Data["class"]; ok {
				summary.ClassesDefined = append(summary.ClassesDefined, name)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := time.Parse(time.RFC3339Nano, summary.StartTime)
		end, err2 := time.Parse(time.RFC3339Nano, summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Calls: %d (%d failed)\n", s.Calls, s.CallErrors)

	names := make([]string, 0, len(s.CallsByName))
	for name := range s.CallsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, s.CallsByName[name])
	}

	if len(s.ClassesDefined) > 0 {
		fmt.Fprintf(w, "Classes: %s\n", strings.Join(s.ClassesDefined, ", "))
	}
	if s.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", s.Error)
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}
