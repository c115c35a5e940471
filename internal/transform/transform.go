// Package transform holds per-log-type custom document transforms.
// Deployments register hooks at startup; the registry is read-only once
// the pipeline runs.
package transform

import "fmt"

// Func replaces a structured document wholesale. It must be pure: same
// input document, same output. An error is a hard failure for the entry.
type Func func(doc map[string]any) (map[string]any, error)

// Registry maps log type names to their transform hooks.
type Registry struct {
	hooks map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]Func)}
}

// Register installs the hook for a log type. Registering twice for the
// same type is a programming error.
func (r *Registry) Register(logType string, fn Func) error {
	if _, dup := r.hooks[logType]; dup {
		return fmt.Errorf("transform for log type %q already registered", logType)
	}
	r.hooks[logType] = fn
	return nil
}

// Get returns the hook for a log type, ok=false when none is registered.
func (r *Registry) Get(logType string) (Func, bool) {
	fn, ok := r.hooks[logType]
	return fn, ok
}
