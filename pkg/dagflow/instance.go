package dagflow

import (
	"context"
	"maps"

	"github.com/google/uuid"

	"github.com/randalmurphal/dagflow/pkg/dagflow/pathtmpl"
)

// Instance binds a Definition to one workflow run. Instances are cheap;
// the workflow id is the namespace for every cached value.
type Instance struct {
	def      *Definition
	id       string
	vars     map[string]any
	resolver *Resolver
}

// InstanceOption configures an Instance.
type InstanceOption func(*Instance)

// WithWorkflowID sets the run id. Default: a random UUID.
// Instances with the same definition and id share cached values.
func WithWorkflowID(id string) InstanceOption {
	return func(i *Instance) {
		i.id = id
	}
}

// WithVars sets run variables, read by FromVar seeds and path templates.
// Later calls add to earlier ones.
func WithVars(vars map[string]any) InstanceOption {
	return func(i *Instance) {
		maps.Copy(i.vars, vars)
	}
}

// WithResolver sets the resolver used by Resolve. Default: DefaultResolver().
func WithResolver(r *Resolver) InstanceOption {
	return func(i *Instance) {
		i.resolver = r
	}
}

// NewInstance creates an instance of def.
// Panics if def is nil.
func NewInstance(def *Definition, opts ...InstanceOption) *Instance {
	if def == nil {
		panic("dagflow: definition cannot be nil")
	}
	inst := &Instance{
		def:  def,
		vars: make(map[string]any),
	}
	for _, opt := range opts {
		opt(inst)
	}
	if inst.id == "" {
		inst.id = uuid.NewString()
	}
	if inst.resolver == nil {
		inst.resolver = DefaultResolver()
	}
	return inst
}

// Definition returns the bound definition.
func (i *Instance) Definition() *Definition {
	return i.def
}

// WorkflowID returns the run id.
func (i *Instance) WorkflowID() string {
	return i.id
}

// Var returns the run variable key.
func (i *Instance) Var(key string) (any, bool) {
	v, ok := i.vars[key]
	return v, ok
}

// Vars returns a copy of the run variables.
func (i *Instance) Vars() map[string]any {
	return maps.Clone(i.vars)
}

// Resolver returns the resolver the instance delegates to.
func (i *Instance) Resolver() *Resolver {
	return i.resolver
}

// Resolve returns the value of node name for this run.
// See Resolver.Resolve for the error types and for how the value's type
// depends on the workspace.
func (i *Instance) Resolve(ctx context.Context, name string) (any, error) {
	return i.resolver.Resolve(ctx, i, name)
}

// ResolveMany resolves several nodes concurrently.
func (i *Instance) ResolveMany(ctx context.Context, names ...string) (map[string]any, error) {
	return i.resolver.ResolveMany(ctx, i, names...)
}

// Status reports the state of node name for this run.
func (i *Instance) Status(ctx context.Context, name string) (State, error) {
	return i.resolver.Status(ctx, i, name)
}

// Invalidate clears name and its descendants for this run.
func (i *Instance) Invalidate(ctx context.Context, name string) ([]string, error) {
	return i.resolver.Invalidate(ctx, i, name)
}

// ResolvePath expands template with the run's workflow id, its variables,
// and extra. extra wins over run variables; ${workflow_id} is always the
// run id.
func (i *Instance) ResolvePath(template string, extra map[string]any) (string, error) {
	vars := maps.Clone(i.vars)
	maps.Copy(vars, extra)
	return pathtmpl.ResolvePath(template, i.id, vars)
}

// Resolve is a typed convenience around Instance.Resolve. It converts
// workspace-decoded values with As, so the result type is the same whether
// the value was computed or loaded.
func Resolve[T any](ctx context.Context, inst *Instance, name string) (T, error) {
	v, err := inst.Resolve(ctx, name)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](v)
}
