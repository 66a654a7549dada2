package util

import (
	"encoding/json"
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// Query is a compiled JMESPath expression applied to log messages.
type Query struct {
	expr string
	jp   *jmespath.JMESPath
}

// CompileQuery parses a JMESPath expression.
func CompileQuery(expr string) (*Query, error) {
	jp, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, err)
	}
	return &Query{expr: expr, jp: jp}, nil
}

func (q *Query) String() string { return q.expr }

// Apply evaluates q against message (decoded as JSON if possible; otherwise
// wrapped as {"message": raw}) and renders the result. Strings are returned
// as is, other values as compact JSON. ok is false when the result is empty.
func (q *Query) Apply(message string) (string, bool, error) {
	res, err := q.jp.Search(decodeMessage(message))
	if err != nil {
		return "", false, fmt.Errorf("jmespath search failed: %w", err)
	}
	if isEmpty(res) {
		return "", false, nil
	}
	if s, ok := res.(string); ok {
		return s, true, nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return "", false, fmt.Errorf("marshal result failed: %w", err)
	}
	return string(b), true, nil
}

func decodeMessage(raw string) any {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		if _, isObj := decoded.(map[string]any); isObj {
			return decoded
		}
		if _, isArr := decoded.([]any); isArr {
			return decoded
		}
	}
	return map[string]any{"message": raw}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
