package controllers

import (
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/rzbill/streamsync/internal/notification"
)

// streamFilter wraps a compiled CEL program evaluated against recorded
// streams. When disabled, Eval always returns true.
type streamFilter struct {
	prog    cel.Program
	enabled bool
}

func newStreamFilter(expr string) (streamFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return streamFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("description", cel.StringType),
		cel.Variable("replay_support", cel.BoolType),
		cel.Variable("attributes", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return streamFilter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return streamFilter{}, iss.Err()
	}
	prog, err := env.Program(ast)
	if err != nil {
		return streamFilter{}, err
	}
	return streamFilter{prog: prog, enabled: true}, nil
}

// Eval reports whether s matches. Evaluation errors and non-bool results
// count as no match.
func (f streamFilter) Eval(s notification.Stream) bool {
	if !f.enabled {
		return true
	}
	attrs := s.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"name":           string(s.Name),
		"description":    s.Description,
		"replay_support": s.ReplaySupport,
		"attributes":     attrs,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
