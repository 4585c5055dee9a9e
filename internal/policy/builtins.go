package policy

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/types"
)

var registerOnce sync.Once

// BuiltinNames lists the custom functions available to policies.
var BuiltinNames = []string{withinBuiltin}

const withinBuiltin = "gptworker.within"

// RegisterBuiltins registers the custom OPA built-ins. It is safe to call
// more than once.
//
//	gptworker.within(root, path) -> boolean
//
// reports whether path, taken relative to root unless absolute, stays inside root.
func RegisterBuiltins() {
	registerOnce.Do(func() {
		within := &rego.Function{
			Name: withinBuiltin,
			Decl: types.NewFunction(
				types.Args(types.S, types.S),
				types.B,
			),
			Memoize: true,
		}
		rego.RegisterBuiltin2(within, func(_ rego.BuiltinContext, a, b *ast.Term) (*ast.Term, error) {
			root, ok1 := a.Value.(ast.String)
			path, ok2 := b.Value.(ast.String)
			if !ok1 || !ok2 {
				return ast.BooleanTerm(false), nil
			}
			return ast.BooleanTerm(Within(string(root), string(path))), nil
		})
	})
}

// Within reports whether path resolves inside root.
func Within(root, path string) bool {
	root = filepath.Clean(root)
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
