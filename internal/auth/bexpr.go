package auth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-bexpr"
)

// bexprCache stores compiled go-bexpr evaluators for performance
// Key: filter expression string, Value: *bexpr.Evaluator
var bexprCache = &sync.Map{}

// CompileFilter parses a go-bexpr expression, reusing a cached evaluator
// when the same expression was seen before. Empty expressions return nil.
func CompileFilter(expr string) (*bexpr.Evaluator, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	if cached, ok := bexprCache.Load(expr); ok {
		return cached.(*bexpr.Evaluator), nil
	}

	evaluator, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}
	bexprCache.Store(expr, evaluator)
	return evaluator, nil
}

// MatchFilter evaluates evaluator against fields. A nil evaluator matches
// everything; evaluation errors (e.g. a missing key) do not match.
func MatchFilter(evaluator *bexpr.Evaluator, fields map[string]any) bool {
	if evaluator == nil {
		return true
	}
	matches, err := evaluator.Evaluate(fields)
	if err != nil {
		return false
	}
	return matches
}
