package tool

import (
	"sync"

	"cora/internal/llm"
	"cora/internal/logger"
)

// Registry holds every registered tool. Registration happens once at
// process start; lookups happen concurrently from the relay loop, the
// command router and the agent.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Spec
	order []string
	log   *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		tools: make(map[string]*Spec),
		log:   log,
	}
}

// Register adds a tool to the registry. Registering a name twice
// replaces the earlier handler; the last registration wins.
func (r *Registry) Register(spec *Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[spec.Name]; exists {
		r.log.Debug("tool %s re-registered, replacing earlier handler", spec.Name)
	} else {
		r.order = append(r.order, spec.Name)
	}
	r.tools[spec.Name] = spec
}

// Get returns the spec for a name, or false when unknown.
func (r *Registry) Get(name string) (*Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.tools[name]
	return spec, ok
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// List returns all specs in registration order.
func (r *Registry) List() []*Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]*Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name])
	}
	return specs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions renders every tool in the function-calling shape the chat
// backends consume.
func (r *Registry) Definitions() []*llm.ToolDefinition {
	specs := r.List()
	defs := make([]*llm.ToolDefinition, len(specs))

	for i, s := range specs {
		params := s.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		defs[i] = &llm.ToolDefinition{
			Type: "function",
			Function: &llm.FunctionDef{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  params,
			},
		}
	}

	return defs
}
