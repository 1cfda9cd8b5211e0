package wave

import (
	"fmt"

	"github.com/itchyny/gojq"
)

// Filter is a set of compiled jq expressions evaluated against the JSON
// form of a wave ({"address", "timestamp", "message"}). A wave matches
// when every expression yields a truthy value.
type Filter struct {
	codes []*gojq.Code
}

// NewFilter parses and compiles the given jq expressions.
func NewFilter(exprs ...string) (*Filter, error) {
	codes := make([]*gojq.Code, 0, len(exprs))
	for _, expr := range exprs {
		query, err := gojq.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
		}
		code, err := gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
		}
		codes = append(codes, code)
	}
	return &Filter{codes: codes}, nil
}

// Match reports whether the wave satisfies every expression.
// A nil or empty filter matches everything.
func (f *Filter) Match(w Wave) bool {
	if f == nil || len(f.codes) == 0 {
		return true
	}

	// gojq only accepts plain maps, slices, strings, numbers, bools and nil.
	input := map[string]any{
		"address":   w.Address,
		"timestamp": int(w.Timestamp.Unix()),
		"message":   w.Message,
	}

	for _, code := range f.codes {
		iter := code.Run(input)
		v, ok := iter.Next()
		if !ok {
			return false
		}
		if _, isErr := v.(error); isErr {
			return false
		}
		if !isTruthy(v) {
			return false
		}
	}
	return true
}

// Apply returns the waves that match, preserving order.
func (f *Filter) Apply(waves []Wave) []Wave {
	out := make([]Wave, 0, len(waves))
	for _, w := range waves {
		if f.Match(w) {
			out = append(out, w)
		}
	}
	return out
}

// isTruthy follows jq semantics: only false and null are falsy.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	default:
		return true
	}
}
