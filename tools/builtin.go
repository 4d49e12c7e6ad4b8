package tools

import (
	"github.com/lexcodex/actloop/framework"
)

// Builtins returns the default tool set in prompt order.
func Builtins() []framework.Tool {
	return []framework.Tool{
		&SearchTool{},
		&DateTool{},
		FactorialTool{},
		FibonacciTool{},
		SumTool{},
		PowerTool{},
		SqrtTool{},
	}
}

// RegisterBuiltins adds the default tools to reg and returns how many were
// new. Calling it twice is harmless.
func RegisterBuiltins(reg *framework.ToolRegistry) int {
	added := 0
	for _, tool := range Builtins() {
		if reg.Register(tool) {
			added++
		}
	}
	return added
}

// NewRegistry builds a registry holding the builtins that match allow. An
// empty allow list keeps everything.
func NewRegistry(allow []string) (*framework.ToolRegistry, error) {
	reg := framework.NewToolRegistry()
	RegisterBuiltins(reg)
	if len(allow) == 0 {
		return reg, nil
	}
	return reg.Restrict(allow)
}
