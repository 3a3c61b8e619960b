package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Tchaikovic/NeuroGym/backend/internal/adapter"
)

// Handler performs one tool's side effect. It receives the raw JSON arguments
// and must always return a result.
type Handler func(ctx context.Context, execCtx *ExecutionContext, args json.RawMessage) *ToolResult

type registeredTool struct {
	definition adapter.Tool
	handler    Handler
}

// Registry is the fixed mapping from tool name to schema and handler
type Registry struct {
	tools map[string]registeredTool
	order []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// Register adds a tool. Registering the same name twice is a programming error.
func (r *Registry) Register(definition adapter.Tool, handler Handler) {
	name := definition.Function.Name
	if _, exists := r.tools[name]; exists {
		panic(fmt.Sprintf("tool %q registered twice", name))
	}
	r.tools[name] = registeredTool{definition: definition, handler: handler}
	r.order = append(r.order, name)
}

// Lookup returns the handler registered under name
func (r *Registry) Lookup(name string) (Handler, bool) {
	t, ok := r.tools[name]
	return t.handler, ok
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Definitions returns the schemas of all registered tools in registration order
func (r *Registry) Definitions() []adapter.Tool {
	defs := make([]adapter.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].definition)
	}
	return defs
}

// Names returns the registered tool names in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
