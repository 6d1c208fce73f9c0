/*
Package pathtmpl renders the path templates steps use to place their output.

# Overview

A path template references variables as ${name} or $name:

	p, err := pathtmpl.ResolvePath("/data/${workflow_id}/features-$split.parquet",
	    "run-42", map[string]any{"split": "train"})
	// p: "/data/run-42/features-train.parquet"

workflow_id is always available and is bound to the run's identifier. Any
other referenced variable must be supplied; a template with unbound
variables fails with *UndefinedVariableError rather than producing a
partially rendered path.

The dollar form stops at a word boundary, so $run does not match inside
$runner. Brace and dollar forms may be mixed in one template.

# Parsing Once

Templates used repeatedly can be parsed ahead of time:

	t := pathtmpl.Parse("/cache/${workflow_id}/${node}.json")
	t.Vars() // ["workflow_id", "node"]
	out, err := t.Render(vars)

Template is immutable and safe for concurrent use.
*/
package pathtmpl
