package policy

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/storage/inmem"
	"github.com/rs/zerolog"

	"github.com/rolegate/rolegate/internal/core/ports"
)

//go:embed access.rego
var accessModule string

const allowQuery = "data.rolegate.access.allow"

// Gate implements ports.AccessGate on a prepared rego query. It is safe for
// concurrent use.
type Gate struct {
	query rego.PreparedEvalQuery
	log   zerolog.Logger
}

// NewGate compiles the access module against doc.
func NewGate(ctx context.Context, doc *Document, log zerolog.Logger) (*Gate, error) {
	compiler, err := ast.CompileModules(map[string]string{"access.rego": accessModule})
	if err != nil {
		return nil, fmt.Errorf("compile access policy: %w", err)
	}

	q, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
		rego.Store(inmem.NewFromObject(doc.data())),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare access policy: %w", err)
	}
	return &Gate{query: q, log: log}, nil
}

// Allow reports whether p may invoke operation. Operations missing from the
// table are denied.
func (g *Gate) Allow(ctx context.Context, p ports.Principal, operation string) (bool, error) {
	input := map[string]any{
		"service":   serviceOf(operation),
		"operation": operation,
		"role":      p.Role,
		"audience":  p.Audience,
	}

	rs, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("evaluate access policy: %w", err)
	}
	allowed := rs.Allowed()

	g.log.Debug().
		Str("operation", operation).
		Str("role", p.Role).
		Bool("allowed", allowed).
		Msg("access decision")
	return allowed, nil
}

// HealthCheck evaluates a probe request; any engine failure surfaces here.
func (g *Gate) HealthCheck(ctx context.Context) error {
	_, err := g.Allow(ctx, ports.Principal{}, "health.probe")
	return err
}
