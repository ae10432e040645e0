package document

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/finops-claw-gang/snapdrift/internal/faults"
)

// Filter is a compiled jq expression applied to documents before comparison,
// typically to drop volatile fields such as etags or provisioning state.
// A nil Filter is the identity.
type Filter struct {
	expr string
	code *gojq.Code
}

// CompileFilter compiles expr. An empty expression yields a nil Filter.
func CompileFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, faults.Wrap(faults.ConfigError, "parse jq filter", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, faults.Wrap(faults.ConfigError, "compile jq filter", expr, err)
	}
	return &Filter{expr: expr, code: code}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Apply parses raw and runs the filter over it. Multiple outputs are collected into
// a sequence, no output yields Null.
func (f *Filter) Apply(raw []byte) (Node, error) {
	if f == nil || f.code == nil {
		return Parse(raw)
	}
	v, err := decode(raw)
	if err != nil {
		return Node{}, err
	}

	iter := f.code.Run(jqValue(v))
	var results []any
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := out.(error); ok {
			return Node{}, faults.Wrap(faults.ParseError, "apply jq filter", f.expr, err)
		}
		results = append(results, out)
	}

	var result any
	switch len(results) {
	case 0:
		result = nil
	case 1:
		result = results[0]
	default:
		result = results
	}
	n, err := FromValue(result)
	if err != nil {
		return Node{}, faults.Wrap(faults.ParseError, "convert filtered document", f.expr, err)
	}
	return n, nil
}

// jqValue rewrites json.Number into the numeric types gojq accepts.
func jqValue(v any) any {
	switch typed := v.(type) {
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return int(i)
		}
		if b, ok := new(big.Int).SetString(typed.String(), 10); ok {
			return b
		}
		f, _ := typed.Float64() // decoder already validated the literal
		return f
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = jqValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = jqValue(item)
		}
		return out
	}
	return v
}
