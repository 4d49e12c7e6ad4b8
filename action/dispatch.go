package action

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexcodex/actloop/framework"
)

// Observation is the text fed back after a dispatch. Failed is set for
// tool faults and lookups that missed; the text is still usable either way.
type Observation struct {
	Tool   string        `json:"tool"`
	Call   string        `json:"call"`
	Text   string        `json:"text"`
	Failed bool          `json:"failed"`
	Took   time.Duration `json:"took"`
}

func (o Observation) String() string { return o.Text }

// Dispatcher invokes tools for action decisions and converts every failure
// into observation text.
type Dispatcher struct {
	registry  *framework.ToolRegistry
	logger    *slog.Logger
	telemetry framework.Telemetry
}

// NewDispatcher returns a dispatcher bound to registry.
func NewDispatcher(registry *framework.ToolRegistry, logger *slog.Logger, telemetry framework.Telemetry) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = framework.NewToolRegistry()
	}
	return &Dispatcher{registry: registry, logger: logger, telemetry: telemetry}
}

// Dispatch runs the tool named by an action decision. It never returns an
// error and never panics because of the tool.
func (d *Dispatcher) Dispatch(ctx context.Context, taskID string, decision Decision) Observation {
	if decision.Kind != KindAction {
		return Observation{
			Text:   fmt.Sprintf("Error: cannot dispatch a %s decision", decision.Kind),
			Failed: true,
		}
	}
	call := decision.Call
	if call == "" {
		call = FormatCall(decision.Tool, decision.Args)
	}
	obs := Observation{Tool: decision.Tool, Call: call}
	tool, ok := d.registry.Get(decision.Tool)
	if !ok {
		obs.Text = fmt.Sprintf("Error: Tool '%s' not found.", decision.Tool)
		obs.Failed = true
		d.logger.Warn("dispatch to unknown tool", "tool", decision.Tool)
		return obs
	}
	args := decision.Args
	if args == nil {
		args = framework.Args{}
	}

	d.emit(framework.Event{
		Type:      framework.EventToolCall,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Message:   call,
		Metadata:  map[string]any{"tool": tool.Name()},
	})
	d.logger.Debug("executing tool", "tool", tool.Name(), "args", Encode(args))

	start := time.Now()
	result, err := invoke(ctx, tool, args)
	obs.Took = time.Since(start)
	if err != nil {
		obs.Text = fmt.Sprintf("error executing tool '%s': %v", tool.Name(), err)
		obs.Failed = true
		d.logger.Warn("tool failed", "tool", tool.Name(), "err", err)
	} else {
		obs.Text = FormatResult(result)
		d.logger.Debug("tool result", "tool", tool.Name(), "result", obs.Text, "took", obs.Took)
	}

	d.emit(framework.Event{
		Type:      framework.EventToolResult,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Message:   obs.Text,
		Metadata:  map[string]any{"tool": tool.Name(), "failed": obs.Failed, "took_ms": obs.Took.Milliseconds()},
	})
	return obs
}

func invoke(ctx context.Context, tool framework.Tool, args framework.Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return tool.Invoke(ctx, args)
}

func (d *Dispatcher) emit(event framework.Event) {
	if d.telemetry != nil {
		d.telemetry.Emit(event)
	}
}
