package framework

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// EventType categorizes telemetry events.
type EventType string

const (
	EventGraphStart    EventType = "graph_start"
	EventGraphFinish   EventType = "graph_finish"
	EventNodeStart     EventType = "node_start"
	EventNodeFinish    EventType = "node_finish"
	EventNodeError     EventType = "node_error"
	EventToolCall      EventType = "tool_call"
	EventToolResult    EventType = "tool_result"
	EventModelPrompt   EventType = "model_prompt"
	EventModelResponse EventType = "model_response"
)

// Event captures structured telemetry data.
type Event struct {
	Type      EventType      `json:"type"`
	NodeID    string         `json:"node_id,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	Message   string         `json:"message,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Telemetry captures execution traces emitted by the graph runtime, the
// dispatcher and instrumented models.
type Telemetry interface {
	Emit(event Event)
}

// TelemetryFunc adapts a function to Telemetry.
type TelemetryFunc func(Event)

// Emit calls f.
func (f TelemetryFunc) Emit(event Event) { f(event) }

// MultiplexTelemetry broadcasts events to multiple sinks.
type MultiplexTelemetry struct {
	Sinks []Telemetry
}

// Emit forwards the event to all registered sinks.
func (m MultiplexTelemetry) Emit(event Event) {
	for _, s := range m.Sinks {
		if s != nil {
			s.Emit(event)
		}
	}
}

// JSONFileTelemetry writes events as newline-delimited JSON to a file.
// External tools can tail and process the stream while a run is in flight.
type JSONFileTelemetry struct {
	path string
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewJSONFileTelemetry opens (or creates) the trace file in append mode.
func NewJSONFileTelemetry(path string) (*JSONFileTelemetry, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONFileTelemetry{
		path: path,
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Emit writes the JSON record.
func (j *JSONFileTelemetry) Emit(event Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.enc != nil {
		_ = j.enc.Encode(event)
	}
}

// Close releases the file handle.
func (j *JSONFileTelemetry) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		j.enc = nil
		return err
	}
	return nil
}

// LoggerTelemetry emits events through slog at debug level so every node
// transition is visible with --log-level=debug.
type LoggerTelemetry struct {
	Logger *slog.Logger
}

// Emit logs the event.
func (t LoggerTelemetry) Emit(event Event) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"type", string(event.Type), "run", event.TaskID}
	if event.NodeID != "" {
		attrs = append(attrs, "node", event.NodeID)
	}
	if event.Message != "" {
		attrs = append(attrs, "msg", event.Message)
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, k, v)
	}
	logger.Debug("telemetry", attrs...)
}
