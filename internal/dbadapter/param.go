package dbadapter

import "encoding/json"

// QueryParam wraps one decoded JSON value as a typed SQL bind parameter so
// numbers bind as numeric, booleans as boolean, and everything else as
// text/jsonb rather than falling through to driver-inferred text. pgx/v4
// accepts the typed Go value directly as an argument, so Arg just unwraps
// to the concrete type the driver already knows how to bind.
type QueryParam struct {
	value interface{}
}

// NewQueryParam converts one decoded JSON value (as produced by
// encoding/json.Unmarshal into interface{}) into a QueryParam.
func NewQueryParam(v interface{}) QueryParam {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return QueryParam{value: i}
		}
		if f, err := t.Float64(); err == nil {
			return QueryParam{value: f}
		}
		return QueryParam{value: t.String()}
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return QueryParam{value: nil}
		}
		return QueryParam{value: string(b)}
	default:
		return QueryParam{value: v}
	}
}

// Arg returns the value in the shape pgx/v4 binds directly.
func (p QueryParam) Arg() interface{} { return p.value }

// ArgsOf converts a slice of decoded JSON values into pgx-ready arguments.
func ArgsOf(values []interface{}) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = NewQueryParam(v).Arg()
	}
	return args
}
