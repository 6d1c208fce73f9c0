package dagflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/dagflow/pkg/dagflow/pathtmpl"
)

func TestNewInstance_Defaults(t *testing.T) {
	def := featuresDef()
	inst := NewInstance(def)

	assert.Same(t, def, inst.Definition())
	assert.Same(t, DefaultResolver(), inst.Resolver())
	_, err := uuid.Parse(inst.WorkflowID())
	assert.NoError(t, err, "default id is a UUID")
	assert.Empty(t, inst.Vars())

	other := NewInstance(def)
	assert.NotEqual(t, inst.WorkflowID(), other.WorkflowID())
}

func TestNewInstance_Options(t *testing.T) {
	r := newTestResolver()
	inst := NewInstance(featuresDef(),
		WithWorkflowID("run-9"),
		WithVars(map[string]any{"a": 1}),
		WithVars(map[string]any{"b": 2}),
		WithResolver(r),
	)

	assert.Equal(t, "run-9", inst.WorkflowID())
	assert.Same(t, r, inst.Resolver())
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, inst.Vars())

	v, ok := inst.Var("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	vars := inst.Vars()
	vars["a"] = 100
	v, _ = inst.Var("a")
	assert.Equal(t, 1, v, "Vars returns a copy")
}

func TestNewInstance_NilDefinitionPanics(t *testing.T) {
	assert.Panics(t, func() { NewInstance(nil) })
}

func TestInstance_ResolvePath(t *testing.T) {
	inst := NewInstance(featuresDef(),
		WithWorkflowID("run-3"),
		WithVars(map[string]any{"root": "/data", "split": "train"}),
	)

	p, err := inst.ResolvePath("${root}/${workflow_id}/$split.json", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/data/run-3/train.json"), p)

	p, err = inst.ResolvePath("${root}/$split.json", map[string]any{"split": "test"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/data/test.json"), p, "extra wins over vars")

	_, err = inst.ResolvePath("${root}/${missing}", nil)
	var undef *pathtmpl.UndefinedVariableError
	require.ErrorAs(t, err, &undef)
	assert.Equal(t, []string{"missing"}, undef.Names)
}

func TestInstance_ResolvePathRejectsUnsafeID(t *testing.T) {
	inst := NewInstance(featuresDef(), WithWorkflowID("../escape"))

	_, err := inst.ResolvePath("/data/${workflow_id}", nil)
	assert.ErrorIs(t, err, pathtmpl.ErrUnsafeWorkflowID)
}

func TestResolveGeneric_ConversionError(t *testing.T) {
	def := NewBuilder("typed").Seed("s", Const("text")).MustBuild()
	inst := NewInstance(def, WithResolver(newTestResolver()))

	s, err := Resolve[string](context.Background(), inst, "s")
	require.NoError(t, err)
	assert.Equal(t, "text", s)

	_, err = Resolve[int](context.Background(), inst, "s")
	assert.Error(t, err)

	_, err = Resolve[int](context.Background(), inst, "nope")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}
