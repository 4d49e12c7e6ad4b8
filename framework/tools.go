package framework

import (
	"context"
	"fmt"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Tool is an invocable capability exposed to the model. The metadata doubles
// as the schema rendered into prompts so the model knows what it may call.
type Tool interface {
	Name() string
	Description() string
	Parameters() []ToolParameter
	Invoke(ctx context.Context, args Args) (any, error)
}

// ToolParameter describes an argument the tool accepts.
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Parameter types understood by the literal argument grammar.
const (
	ParamString  = "string"
	ParamNumber  = "number"
	ParamBoolean = "boolean"
	ParamList    = "list"
	ParamMapping = "mapping"
)

// FuncTool is the plain descriptor form of a Tool: metadata plus a function.
type FuncTool struct {
	ToolName        string
	ToolDescription string
	Params          []ToolParameter
	Fn              func(ctx context.Context, args Args) (any, error)
}

func (t *FuncTool) Name() string                { return t.ToolName }
func (t *FuncTool) Description() string         { return t.ToolDescription }
func (t *FuncTool) Parameters() []ToolParameter { return t.Params }

// Invoke calls the wrapped function.
func (t *FuncTool) Invoke(ctx context.Context, args Args) (any, error) {
	if t.Fn == nil {
		return nil, fmt.Errorf("tool %s has no implementation", t.ToolName)
	}
	if args == nil {
		args = Args{}
	}
	return t.Fn(ctx, args)
}

// ToolRegistry resolves tool names to tools. It is populated once at startup
// and shared read-only between runs; listing preserves registration order.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewToolRegistry builds an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool unless its name is already taken. The first
// registration wins; the return value reports whether tool was added.
func (r *ToolRegistry) Register(tool Tool) bool {
	if tool == nil || tool.Name() == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		return false
	}
	r.tools[tool.Name()] = tool
	r.order = append(r.order, tool.Name())
	return true
}

// Get fetches a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// All returns the registered tools in registration order.
func (r *ToolRegistry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		res = append(res, r.tools[name])
	}
	return res
}

// Names returns the registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Restrict returns a new registry holding only the tools whose names match at
// least one of the doublestar patterns. An empty pattern list keeps nothing.
func (r *ToolRegistry) Restrict(patterns []string) (*ToolRegistry, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid tool pattern %q", p)
		}
	}
	out := NewToolRegistry()
	for _, tool := range r.All() {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, tool.Name()); ok {
				out.Register(tool)
				break
			}
		}
	}
	return out, nil
}
